package tray

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
)

const (
	iconSize     = 64
	iconFontSize = 20
	iconDPI      = 72
)

// renderIcon draws each line of text centred on a transparent square icon
// and returns it as PNG
func renderIcon(f *truetype.Font, fg color.Color, lines ...string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))

	face := truetype.NewFace(f, &truetype.Options{Size: iconFontSize, DPI: iconDPI})
	defer face.Close()

	metrics := face.Metrics()
	lineHeight := (metrics.Ascent + metrics.Descent).Ceil()
	ascent := metrics.Ascent.Ceil()

	c := freetype.NewContext()
	c.SetFont(f)
	c.SetFontSize(iconFontSize)
	c.SetDPI(iconDPI)
	c.SetClip(img.Bounds())
	c.SetDst(img)
	c.SetSrc(image.NewUniform(fg))

	top := (iconSize - lineHeight*len(lines)) / 2
	for i, line := range lines {
		width := 0
		for _, r := range line {
			if adv, ok := face.GlyphAdvance(r); ok {
				width += adv.Round()
			}
		}
		pt := freetype.Pt((iconSize-width)/2, top+i*lineHeight+ascent)
		if _, err := c.DrawString(line, pt); err != nil {
			return nil, fmt.Errorf("failed to draw %q: %w", line, err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode icon: %w", err)
	}
	return buf.Bytes(), nil
}
