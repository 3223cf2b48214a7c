// Package image loads the floor-plan background and watches it for changes.
package image

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"siteplan/pkg/geometry"
)

// ErrUnsupportedFormat is wrapped by LoadError when the extension is not one
// of SupportedFormats.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// LoadError reports a floor-plan image that could not be opened or decoded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load floor plan %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Layer is a decoded floor-plan image.
type Layer struct {
	Path    string
	Image   image.Image
	Format  string
	ModTime time.Time
}

// Load decodes the image at path.
func Load(path string) (*Layer, error) {
	if !IsSupportedFormat(path) {
		return nil, &LoadError{Path: path, Err: ErrUnsupportedFormat}
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("decode: %w", err)}
	}

	layer := &Layer{Path: path, Image: img, Format: format}
	if info, err := file.Stat(); err == nil {
		layer.ModTime = info.ModTime()
	}
	return layer, nil
}

// Size returns the image size in pixels; zero for an empty layer.
func (l *Layer) Size() geometry.Size {
	if l == nil || l.Image == nil {
		return geometry.Size{}
	}
	b := l.Image.Bounds()
	return geometry.NewSize(float64(b.Dx()), float64(b.Dy()))
}

// SupportedFormats returns the accepted file extensions.
func SupportedFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tiff", ".tif"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
