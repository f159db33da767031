package captcha

import (
	"bytes"
	"image"
	"image/jpeg"
	"math/rand/v2"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
)

const (
	// Width and Height are the canvas size of every captcha image.
	Width  = 200
	Height = 100

	lineCount  = 10
	pixelCount = 101

	// 只绘制前 4 个字符：数字、运算符、数字、"="
	glyphCount  = 4
	glyphStride = 50
	glyphOffset = 25

	minFontSize = 20
	maxFontSize = 38
	maxAngle    = 30
	minGlyphY   = 30
	maxGlyphY   = 70

	// 颜色分量下限，保证在黑底上足够亮
	minChannel = 127

	// DefaultJPEGQuality matches the libgd default.
	DefaultJPEGQuality = 75
)

// Renderer draws challenges onto pooled canvases.
type Renderer struct {
	font    *truetype.Font
	quality int
	canvas  sync.Pool
}

// NewRenderer returns a Renderer drawing glyphs with f. A quality outside
// 1..100 falls back to DefaultJPEGQuality.
func NewRenderer(f *truetype.Font, quality int) *Renderer {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &Renderer{
		font:    f,
		quality: quality,
		canvas: sync.Pool{
			New: func() any {
				return image.NewRGBA(image.Rect(0, 0, Width, Height))
			},
		},
	}
}

// Render draws c with noise taken from r and returns the JPEG bytes.
func (rd *Renderer) Render(c Challenge, r *rand.Rand) ([]byte, error) {
	p := newPlan(c, r)

	im := rd.canvas.Get().(*image.RGBA)
	defer rd.canvas.Put(im)

	dc := gg.NewContextForRGBA(im)
	// 黑底
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	drawNoise(dc, p)
	rd.drawGlyphs(dc, p.glyphs)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, im, &jpeg.Options{Quality: rd.quality}); err != nil {
		return nil, renderingFailure(err, "encode jpeg")
	}
	return buf.Bytes(), nil
}

type rgb struct{ r, g, b int }

type noiseLine struct {
	x1, y1, x2, y2 int
	color          rgb
}

type noisePixel struct {
	x, y  int
	color rgb
}

type glyphSpec struct {
	text  string
	size  float64
	angle float64 // degrees, counter-clockwise
	x, y  float64
	color rgb
}

// plan holds every random choice of one image, drawn up front so drawing
// itself is deterministic.
type plan struct {
	lines  []noiseLine
	pixels []noisePixel
	glyphs []glyphSpec
}

func newPlan(c Challenge, r *rand.Rand) plan {
	p := plan{
		lines:  make([]noiseLine, 0, lineCount),
		pixels: make([]noisePixel, 0, pixelCount),
	}
	// 干扰线
	for i := 0; i < lineCount; i++ {
		l := noiseLine{
			x1: randBetween(r, 0, Width), y1: randBetween(r, 0, Height),
			x2: randBetween(r, 0, Width), y2: randBetween(r, 0, Height),
		}
		l.color = randomColor(r)
		p.lines = append(p.lines, l)
	}
	// 噪点
	for i := 0; i < pixelCount; i++ {
		px := noisePixel{x: randBetween(r, 0, Width), y: randBetween(r, 0, Height)}
		px.color = randomColor(r)
		p.pixels = append(p.pixels, px)
	}
	for i, g := range c.Glyphs() {
		gs := glyphSpec{text: g, x: float64(i*glyphStride + glyphOffset)}
		gs.size = float64(randBetween(r, minFontSize, maxFontSize))
		gs.angle = float64(randBetween(r, 0, maxAngle))
		gs.y = float64(randBetween(r, minGlyphY, maxGlyphY))
		gs.color = randomColor(r)
		p.glyphs = append(p.glyphs, gs)
	}
	return p
}

func drawNoise(dc *gg.Context, p plan) {
	dc.SetLineWidth(1)
	for _, l := range p.lines {
		dc.SetRGB255(l.color.r, l.color.g, l.color.b)
		dc.DrawLine(float64(l.x1), float64(l.y1), float64(l.x2), float64(l.y2))
		dc.Stroke()
	}
	for _, px := range p.pixels {
		dc.SetRGB255(px.color.r, px.color.g, px.color.b)
		// points on the far edge fall outside the canvas and are dropped
		dc.SetPixel(px.x, px.y)
	}
}

func (rd *Renderer) drawGlyphs(dc *gg.Context, glyphs []glyphSpec) {
	for _, g := range glyphs {
		face := newFace(rd.font, g.size)
		dc.Push()
		dc.SetFontFace(face)
		dc.SetRGB255(g.color.r, g.color.g, g.color.b)
		// gg's y axis points down, so a negative angle turns counter-clockwise
		dc.RotateAbout(gg.Radians(-g.angle), g.x, g.y)
		dc.DrawString(g.text, g.x, g.y)
		dc.Pop()
		face.Close()
	}
}

func randomColor(r *rand.Rand) rgb {
	return rgb{
		r: randBetween(r, minChannel, 255),
		g: randBetween(r, minChannel, 255),
		b: randBetween(r, minChannel, 255),
	}
}

// randBetween returns an int in [lo, hi].
func randBetween(r *rand.Rand, lo, hi int) int {
	return lo + r.IntN(hi-lo+1)
}
