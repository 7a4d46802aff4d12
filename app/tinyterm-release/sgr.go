package tinyterm

import "image/color"

// Select Graphic Rendition parameters.
const (
	SGRReset = 0
	SGRBold  = 1

	SGRFgBlack        = 30
	SGRFgRed          = 31
	SGRFgGreen        = 32
	SGRFgYellow       = 33
	SGRFgBlue         = 34
	SGRFgMagenta      = 35
	SGRFgCyan         = 36
	SGRFgWhite        = 37
	SGRSetFgColor     = 38
	SGRDefaultFgColor = 39

	SGRBgBlack        = 40
	SGRBgRed          = 41
	SGRBgGreen        = 42
	SGRBgYellow       = 43
	SGRBgBlue         = 44
	SGRBgMagenta      = 45
	SGRBgCyan         = 46
	SGRBgWhite        = 47
	SGRSetBgColor     = 48
	SGRDefaultBgColor = 49
)

// Color is an index into the terminal palette.
type Color uint8

const (
	ColorBlack Color = iota
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorMagenta
	ColorCyan
	ColorWhite
	ColorBrightBlack
	ColorBrightRed
	ColorBrightGreen
	ColorBrightYellow
	ColorBrightBlue
	ColorBrightMagenta
	ColorBrightCyan
	ColorBrightWhite
)

var palette = [...]color.RGBA{
	ColorBlack:         {0x00, 0x00, 0x00, 0xff},
	ColorRed:           {0xcd, 0x00, 0x00, 0xff},
	ColorGreen:         {0x00, 0xcd, 0x00, 0xff},
	ColorYellow:        {0xcd, 0xcd, 0x00, 0xff},
	ColorBlue:          {0x00, 0x00, 0xee, 0xff},
	ColorMagenta:       {0xcd, 0x00, 0xcd, 0xff},
	ColorCyan:          {0x00, 0xcd, 0xcd, 0xff},
	ColorWhite:         {0xe5, 0xe5, 0xe5, 0xff},
	ColorBrightBlack:   {0x7f, 0x7f, 0x7f, 0xff},
	ColorBrightRed:     {0xff, 0x00, 0x00, 0xff},
	ColorBrightGreen:   {0x00, 0xff, 0x00, 0xff},
	ColorBrightYellow:  {0xff, 0xff, 0x00, 0xff},
	ColorBrightBlue:    {0x5c, 0x5c, 0xff, 0xff},
	ColorBrightMagenta: {0xff, 0x00, 0xff, 0xff},
	ColorBrightCyan:    {0x00, 0xff, 0xff, 0xff},
	ColorBrightWhite:   {0xff, 0xff, 0xff, 0xff},
}

// RGBA returns the palette entry for c. Indexes past the palette map to
// white.
func (c Color) RGBA() color.RGBA {
	if int(c) >= len(palette) {
		return palette[ColorWhite]
	}
	return palette[c]
}

// sgrAttrs is the current rendition state.
type sgrAttrs struct {
	attrs byte
	fg    Color
	bg    Color
	fgcol color.RGBA
	bgcol color.RGBA
}

func (a *sgrAttrs) reset() {
	a.attrs = 0
	a.setFG(ColorWhite)
	a.setBG(ColorBlack)
}

func (a *sgrAttrs) setFG(c Color) {
	a.fg = c
	a.fgcol = c.RGBA()
}

func (a *sgrAttrs) setBG(c Color) {
	a.bg = c
	a.bgcol = c.RGBA()
}
