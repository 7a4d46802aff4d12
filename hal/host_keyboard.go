//go:build !tinygo && cgo

package hal

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// hostKeyboard forwards characters typed into the window.
type hostKeyboard struct {
	onKey func(r rune)
	buf   []rune
}

func (k *hostKeyboard) poll() {
	if k.onKey == nil {
		return
	}
	k.buf = ebiten.AppendInputChars(k.buf[:0])
	for _, r := range k.buf {
		k.onKey(r)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		k.onKey(KeyEscape)
	}
}
