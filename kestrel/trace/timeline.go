package trace

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/fogleman/gg"

	"kestrel/kestrel/kernel"
)

// ErrEmpty is returned when there is nothing to draw.
var ErrEmpty = errors.New("trace: no slices recorded")

const (
	rowHeight   = 18
	labelWidth  = 90
	axisHeight  = 20
	marginRight = 10
)

// palette cycles over the task rows.
var palette = []string{
	"#4e79a7", "#f28e2b", "#e15759", "#76b7b2",
	"#59a14f", "#edc948", "#b07aa1", "#ff9da7",
}

// TimelineOptions sizes a timeline image. Zero fields take defaults.
type TimelineOptions struct {
	// Width of the image in pixels.
	Width int
	// From and To bound the drawn tick range. To of 0 means the end of the
	// last slice.
	From uint64
	To   uint64
}

// WriteTimeline draws one row per task with a bar for each run slice and
// encodes it as PNG.
func (r *Recorder) WriteTimeline(w io.Writer, opt TimelineOptions) error {
	dc, err := r.timeline(opt)
	if err != nil {
		return err
	}
	return dc.EncodePNG(w)
}

// SaveTimeline is WriteTimeline to a file.
func (r *Recorder) SaveTimeline(path string, opt TimelineOptions) error {
	dc, err := r.timeline(opt)
	if err != nil {
		return err
	}
	return dc.SavePNG(path)
}

func (r *Recorder) timeline(opt TimelineOptions) (*gg.Context, error) {
	slices := r.Slices()
	if len(slices) == 0 {
		return nil, ErrEmpty
	}
	if opt.Width <= 0 {
		opt.Width = 800
	}
	if opt.To == 0 {
		opt.To = slices[len(slices)-1].End
	}
	if opt.To <= opt.From {
		return nil, fmt.Errorf("trace: empty tick range [%d, %d)", opt.From, opt.To)
	}

	rows := r.rows(slices)
	height := axisHeight + len(rows)*rowHeight + axisHeight
	dc := gg.NewContext(opt.Width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	plotW := float64(opt.Width - labelWidth - marginRight)
	span := float64(opt.To - opt.From)
	x := func(tick uint64) float64 {
		if tick < opt.From {
			tick = opt.From
		}
		if tick > opt.To {
			tick = opt.To
		}
		return labelWidth + float64(tick-opt.From)/span*plotW
	}

	index := make(map[kernel.TaskID]int, len(rows))
	for i, id := range rows {
		index[id] = i
		y := float64(axisHeight + i*rowHeight)
		dc.SetRGB(0.2, 0.2, 0.2)
		dc.DrawStringAnchored(r.Name(id), 4, y+rowHeight/2, 0, 0.5)
		dc.SetRGB(0.92, 0.92, 0.92)
		dc.SetLineWidth(1)
		dc.DrawLine(labelWidth, y+rowHeight, float64(opt.Width-marginRight), y+rowHeight)
		dc.Stroke()
	}

	for _, s := range slices {
		if s.End < opt.From || s.Start > opt.To {
			continue
		}
		i := index[s.Task]
		x0, x1 := x(s.Start), x(s.End)
		if x1-x0 < 1 {
			x1 = x0 + 1
		}
		dc.SetHexColor(palette[i%len(palette)])
		dc.DrawRectangle(x0, float64(axisHeight+i*rowHeight+3), x1-x0, rowHeight-6)
		dc.Fill()
	}

	// Tick axis.
	base := float64(axisHeight + len(rows)*rowHeight)
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawLine(labelWidth, base, float64(opt.Width-marginRight), base)
	dc.Stroke()
	const marks = 5
	for m := 0; m <= marks; m++ {
		tick := opt.From + uint64(m)*(opt.To-opt.From)/marks
		px := x(tick)
		dc.DrawLine(px, base, px, base+4)
		dc.Stroke()
		dc.DrawStringAnchored(fmt.Sprint(tick), px, base+12, 0.5, 0.5)
	}
	return dc, nil
}

// rows orders tasks by first appearance, earliest on top.
func (r *Recorder) rows(slices []Slice) []kernel.TaskID {
	first := make(map[kernel.TaskID]uint64)
	for _, s := range slices {
		if _, ok := first[s.Task]; !ok {
			first[s.Task] = s.Start
		}
	}
	ids := make([]kernel.TaskID, 0, len(first))
	for id := range first {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if first[ids[i]] != first[ids[j]] {
			return first[ids[i]] < first[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}
