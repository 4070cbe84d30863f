package checkserver

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/Iron-Ham/stepcheck/internal/geometry"
	"github.com/Iron-Ham/stepcheck/internal/inference"
)

var (
	boxColor    = color.RGBA{G: 255, A: 255}
	centerColor = color.RGBA{R: 255, B: 255, A: 255}
)

const (
	boxThickness = 2
	centerRadius = 5
	labelOffset  = 10
)

// drawDetection outlines a detection and labels it with class and confidence.
func drawDetection(img *image.RGBA, d inference.Detection) {
	x1, y1, x2, y2 := int(d.Box[0]), int(d.Box[1]), int(d.Box[2]), int(d.Box[3])
	drawRect(img, image.Rect(x1, y1, x2, y2), boxColor, boxThickness)
	drawLabel(img, fmt.Sprintf("%s %.2f", d.Class, d.Confidence), x1, y1-labelOffset, boxColor)
}

// drawRect strokes r with the given line thickness, clipped to img.
func drawRect(img *image.RGBA, r image.Rectangle, c color.RGBA, thickness int) {
	r = r.Canon()
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X+1, r.Min.Y+thickness),
		image.Rect(r.Min.X, r.Max.Y-thickness+1, r.Max.X+1, r.Max.Y+1),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+thickness, r.Max.Y+1),
		image.Rect(r.Max.X-thickness+1, r.Min.Y, r.Max.X+1, r.Max.Y+1),
	}
	for _, e := range edges {
		fill(img, e, c)
	}
}

func fill(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

// drawCenter paints a filled dot at p.
func drawCenter(img *image.RGBA, p geometry.Point2D) {
	cx, cy := int(p.X), int(p.Y)
	for y := cy - centerRadius; y <= cy+centerRadius; y++ {
		for x := cx - centerRadius; x <= cx+centerRadius; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= centerRadius*centerRadius && (image.Point{X: x, Y: y}).In(img.Bounds()) {
				img.SetRGBA(x, y, centerColor)
			}
		}
	}
}

// drawLabel writes text with its baseline at y, kept inside the image.
func drawLabel(img *image.RGBA, text string, x, y int, c color.RGBA) {
	face := basicfont.Face7x13
	y = max(y, face.Ascent)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(max(x, 0), y),
	}
	d.DrawString(text)
}
