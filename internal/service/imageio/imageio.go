// Package imageio decodes uploaded images and encodes annotated results.
package imageio

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"peoplecounter/internal/service/detection"
)

// Supported lists the formats accepted for upload.
var Supported = map[string]bool{
	"jpeg": true,
	"png":  true,
	"webp": true,
}

// Decode parses image bytes, applying EXIF orientation. Failures are InputErrors.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", &detection.InputError{Reason: "empty file"}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", &detection.InputError{Reason: "unrecognized image data", Err: err}
	}
	if !Supported[format] {
		return nil, "", &detection.InputError{Reason: fmt.Sprintf("unsupported format %q", format)}
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, "", &detection.InputError{Reason: "image has no pixels"}
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", &detection.InputError{Reason: "failed to decode " + format, Err: err}
	}
	return img, format, nil
}

// OutputFormat picks the encoding used for an annotated copy of a file in the
// given source format. webp has no pure Go encoder, so it is written as PNG.
func OutputFormat(format string) imaging.Format {
	if format == "jpeg" {
		return imaging.JPEG
	}
	return imaging.PNG
}

// OutputExt returns the file extension matching OutputFormat.
func OutputExt(format string) string {
	if OutputFormat(format) == imaging.JPEG {
		return ".jpg"
	}
	return ".png"
}

// OutputName derives the annotated filename for a stored upload.
func OutputName(storedName, format string) string {
	base := strings.TrimSuffix(storedName, filepath.Ext(storedName))
	if OutputFormat(format) == imaging.JPEG {
		return "annotated_" + storedName
	}
	return "annotated_" + base + OutputExt(format)
}

// Encode writes img in the output format for the given source format.
func Encode(w io.Writer, img image.Image, format string) error {
	if err := imaging.Encode(w, img, OutputFormat(format), imaging.JPEGQuality(90)); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}
