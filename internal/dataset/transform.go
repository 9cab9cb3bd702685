package dataset

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// ImageNet channel statistics.
var (
	ImageNetMean = [3]float64{0.485, 0.456, 0.406}
	ImageNetStd  = [3]float64{0.229, 0.224, 0.225}
)

// Normalizer resizes an image and applies per-channel normalization, then maps
// the normalized values back to 0..255 so the result can be stored as JPEG.
type Normalizer struct {
	Width  int
	Height int
	Mean   [3]float64
	Std    [3]float64
}

// DefaultNormalizer targets 224x244 with ImageNet statistics.
func DefaultNormalizer() Normalizer {
	return Normalizer{Width: 224, Height: 244, Mean: ImageNetMean, Std: ImageNetStd}
}

// Transform returns an opaque RGB image of the target size.
func (n Normalizer) Transform(src image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, n.Width, n.Height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	values := make([]float64, 0, n.Width*n.Height*3)
	minV, maxV := math.Inf(1), math.Inf(-1)
	for y := 0; y < n.Height; y++ {
		for x := 0; x < n.Width; x++ {
			c := dst.RGBAAt(x, y)
			for ch, v := range [3]uint8{c.R, c.G, c.B} {
				norm := (float64(v)/255 - n.Mean[ch]) / n.Std[ch]
				values = append(values, norm)
				minV = math.Min(minV, norm)
				maxV = math.Max(maxV, norm)
			}
		}
	}

	span := maxV - minV
	i := 0
	for y := 0; y < n.Height; y++ {
		for x := 0; x < n.Width; x++ {
			var px [3]uint8
			for ch := range px {
				if span > 0 {
					px[ch] = uint8(math.Round((values[i] - minV) / span * 255))
				}
				i++
			}
			dst.SetRGBA(x, y, color.RGBA{R: px[0], G: px[1], B: px[2], A: 255})
		}
	}

	return dst
}
