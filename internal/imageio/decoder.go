// Package imageio decodes replay frames from disk.
//
// PNG is what capture indexes point at, but BMP, TIFF, WebP and JPEG frames
// decode too, so re-encoded datasets replay without conversion.
package imageio

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/banshee-data/sensor-replay/internal/fsutil"
)

// ErrEmptyImage is returned for images that decode to zero pixels.
var ErrEmptyImage = errors.New("empty image")

// Decoder loads the image for one frame.
type Decoder interface {
	Decode(path string) (image.Image, error)
}

// FileDecoder decodes images read through a FileSystem.
type FileDecoder struct {
	FS fsutil.FileSystem
}

// NewFileDecoder returns a decoder reading from fsys, or the OS filesystem
// when fsys is nil.
func NewFileDecoder(fsys fsutil.FileSystem) *FileDecoder {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	return &FileDecoder{FS: fsys}
}

// Decode opens path and decodes it with whichever registered format matches
// its header.
func (d *FileDecoder) Decode(path string) (image.Image, error) {
	f, err := d.FS.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := checkImage(img); err != nil {
		return nil, fmt.Errorf("decode %s (%s): %w", path, format, err)
	}
	return img, nil
}

func checkImage(img image.Image) error {
	if img == nil || img.Bounds().Empty() {
		return ErrEmptyImage
	}
	return nil
}
