package captcha

import (
	"bytes"
	"fmt"
	"math/rand"

	"github.com/fogleman/gg"
)

// ImageConfig controls how challenge text is drawn.
type ImageConfig struct {
	FontPath    string
	FontSize    float64
	MaxRotation int    // each glyph is rotated within ±MaxRotation degrees
	MarginWidth int    // vertical padding added above and below, pixels
	MarginColor string // hex fill for the padding, e.g. "#0e1621"
}

// ImageRenderer draws challenge text as a PNG with per-glyph rotation and
// line noise, then pads it top and bottom with a solid border.
type ImageRenderer struct {
	cfg ImageConfig
}

func NewImageRenderer(cfg ImageConfig) *ImageRenderer {
	if cfg.FontSize <= 0 {
		cfg.FontSize = 42
	}
	if cfg.MarginColor == "" {
		cfg.MarginColor = "#0e1621"
	}
	return &ImageRenderer{cfg: cfg}
}

func (r *ImageRenderer) Render(text string) ([]byte, error) {
	glyphs := []rune(text)
	cell := int(r.cfg.FontSize * 1.2)
	width := cell*len(glyphs) + cell
	height := cell * 2

	dc := gg.NewContext(width, height)
	dc.SetHexColor("#f5f2e8")
	dc.Clear()
	if err := dc.LoadFontFace(r.cfg.FontPath, r.cfg.FontSize); err != nil {
		return nil, fmt.Errorf("captcha: load font %s: %w", r.cfg.FontPath, err)
	}

	for i, g := range glyphs {
		x := float64(cell)*float64(i) + float64(cell)
		y := float64(height) / 2
		angle := gg.Radians(float64(rand.Intn(2*r.cfg.MaxRotation+1) - r.cfg.MaxRotation))
		dc.Push()
		dc.RotateAbout(angle, x, y)
		dc.SetRGB(0.1+rand.Float64()*0.2, 0.1+rand.Float64()*0.2, 0.1+rand.Float64()*0.2)
		dc.DrawStringAnchored(string(g), x, y, 0.5, 0.5)
		dc.Pop()
	}

	// Strike-through noise so the text does not OCR trivially.
	for i := 0; i < 4; i++ {
		dc.SetRGBA(rand.Float64(), rand.Float64(), rand.Float64(), 0.5)
		dc.SetLineWidth(1.5)
		dc.DrawLine(
			rand.Float64()*float64(width), rand.Float64()*float64(height),
			rand.Float64()*float64(width), rand.Float64()*float64(height),
		)
		dc.Stroke()
	}

	framed := gg.NewContext(width, height+2*r.cfg.MarginWidth)
	framed.SetHexColor(r.cfg.MarginColor)
	framed.Clear()
	framed.DrawImage(dc.Image(), 0, r.cfg.MarginWidth)

	var buf bytes.Buffer
	if err := framed.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("captcha: encode png: %w", err)
	}
	return buf.Bytes(), nil
}
