package scene

import (
	"context"
	"image"
	"os"

	"github.com/Iron-Ham/stepcheck/internal/errors"
)

// FileFrame serves a single image file as the frame. It is used for one-shot
// verification of a saved screenshot.
type FileFrame struct {
	Path string
}

// WaitFrame returns at once; the file is the frame.
func (f FileFrame) WaitFrame(ctx context.Context) error {
	return ctx.Err()
}

// Capture decodes the file.
func (f FileFrame) Capture() (image.Image, error) {
	file, err := os.Open(f.Path)
	if os.IsNotExist(err) {
		return nil, errors.NewNotFoundError("frame", f.Path).WithCause(err)
	}
	if err != nil {
		return nil, errors.Wrap(err, "open frame")
	}
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "decode frame %s", f.Path)
	}
	return img, nil
}
