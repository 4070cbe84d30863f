package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"

	"github.com/Iron-Ham/stepcheck/internal/geometry"
)

// DefaultJPEGQuality is used when Encoder.Quality is unset.
const DefaultJPEGQuality = 90

// Encoder turns a captured frame into the JPEG payload sent to the classifier.
type Encoder struct {
	Quality int // 1-100, 0 selects DefaultJPEGQuality
	// MaxDimension caps the longest side in pixels; 0 disables scaling.
	MaxDimension int
}

// Encode scales img if needed and encodes it as JPEG. size is the pixel size
// of the encoded image, the space the classifier reports coordinates in.
func (e Encoder) Encode(img image.Image) (data []byte, size image.Point, err error) {
	if img == nil {
		return nil, image.Point{}, fmt.Errorf("encode frame: no image")
	}
	quality := e.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	scaled := e.scale(img)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: quality}); err != nil {
		return nil, image.Point{}, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), scaled.Bounds().Size(), nil
}

// scale returns img resized so that its longest side is at most MaxDimension.
func (e Encoder) scale(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := max(w, h)
	if e.MaxDimension <= 0 || longest <= e.MaxDimension {
		return img
	}

	ratio := float64(e.MaxDimension) / float64(longest)
	nw := max(1, int(float64(w)*ratio+0.5))
	nh := max(1, int(float64(h)*ratio+0.5))

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// toScreen maps p from a sent image of size sent into a w x h viewport.
// A zero size leaves p unchanged.
func toScreen(p geometry.Point2D, sent image.Point, w, h int) geometry.Point2D {
	if sent.X <= 0 || sent.Y <= 0 || (sent.X == w && sent.Y == h) {
		return p
	}
	return geometry.Point2D{
		X: p.X * float64(w) / float64(sent.X),
		Y: p.Y * float64(h) / float64(sent.Y),
	}
}
