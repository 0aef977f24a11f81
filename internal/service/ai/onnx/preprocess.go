package onnx

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// Tensorize pads img to a square anchored at the top-left corner, resizes it to
// size x size and lays it out as a 1x3xHxW RGB tensor scaled to [0, 1]. The
// returned scale maps model coordinates back to source pixels.
func Tensorize(img image.Image, size int) ([]float32, float64) {
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	side := max(width, height)

	square := imaging.New(side, side, color.Black)
	square = imaging.Paste(square, img, image.Pt(0, 0))
	resized := resize.Resize(uint(size), uint(size), square, resize.Bilinear)

	plane := size * size
	tensor := make([]float32, 3*plane)
	bounds := resized.Bounds()
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			i := y*size + x
			tensor[i] = float32(r>>8) / 255.0
			tensor[plane+i] = float32(g>>8) / 255.0
			tensor[2*plane+i] = float32(b>>8) / 255.0
		}
	}

	return tensor, float64(side) / float64(size)
}
