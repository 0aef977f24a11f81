// Package annotate draws detection boxes and confidence labels onto images.
package annotate

import (
	"fmt"
	"image"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"peoplecounter/internal/service/detection"
)

const (
	lineWidth   = 2
	labelOffset = 10
)

// Draw returns a copy of img with a red box and confidence label for each detection.
// The copy has the same dimensions as img.
func Draw(img image.Image, detections []detection.Detection) image.Image {
	dc := gg.NewContextForImage(img)
	dc.SetFontFace(basicfont.Face7x13)
	dc.SetRGB(1, 0, 0)
	dc.SetLineWidth(lineWidth)

	for _, d := range detections {
		x1, y1 := d.Box.X1, d.Box.Y1
		dc.DrawRectangle(x1, y1, d.Box.X2-x1, d.Box.Y2-y1)
		dc.Stroke()

		// top-left of the label sits labelOffset pixels above the box
		dc.DrawStringAnchored(fmt.Sprintf("%.2f", d.Confidence), x1, y1-labelOffset, 0, 1)
	}

	return dc.Image()
}
