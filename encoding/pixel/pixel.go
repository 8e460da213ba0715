// Package pixel moves images between files and the flat byte buffers the
// rest of the module works on: row-major, depth interleaved, one byte per
// channel.
package pixel

import (
	"image"
	"image/color"
	"image/png"
	"os"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// Decode reads an image file and flattens it. Grayscale sources come back
// with depth 1, everything else with depth 3.
func Decode(filename string) (pix []uint8, w, h, depth int, err error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, 0, 0, 0, errors.WithStack(err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, 0, 0, 0, errors.Wrapf(err, "decode %q", filename)
	}
	return flatten(img)
}

func flatten(img image.Image) (pix []uint8, w, h, depth int, err error) {
	b := img.Bounds()
	w, h = b.Dx(), b.Dy()

	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		depth = 1
	default:
		depth = 3
	}

	pix = make([]uint8, w*h*depth)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if depth == 1 {
				pix[i] = uint8(r >> 8)
				i++
				continue
			}
			pix[i] = uint8(r >> 8)
			pix[i+1] = uint8(g >> 8)
			pix[i+2] = uint8(bl >> 8)
			i += 3
		}
	}
	return pix, w, h, depth, nil
}

// toImage wraps a flat buffer in an image. Depth 1 becomes grayscale, depth 3
// opaque RGBA.
func toImage(pix []uint8, w, h, depth int) (image.Image, error) {
	if w < 1 || h < 1 {
		return nil, errors.Errorf("pixel: bad geometry %dx%d", w, h)
	}
	if len(pix) != w*h*depth {
		return nil, errors.Errorf("pixel: buffer holds %d bytes, want %dx%dx%d = %d", len(pix), w, h, depth, w*h*depth)
	}
	switch depth {
	case 1:
		img := image.NewGray(image.Rect(0, 0, w, h))
		copy(img.Pix, pix)
		return img, nil
	case 3:
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for i := 0; i < w*h; i++ {
			img.Pix[i*4] = pix[i*3]
			img.Pix[i*4+1] = pix[i*3+1]
			img.Pix[i*4+2] = pix[i*3+2]
			img.Pix[i*4+3] = 255
		}
		return img, nil
	default:
		return nil, errors.Errorf("pixel: unsupported depth %d", depth)
	}
}

// Encode writes a flat buffer to a PNG file.
func Encode(filename string, pix []uint8, w, h, depth int) error {
	img, err := toImage(pix, w, h, depth)
	if err != nil {
		return err
	}
	f, err := os.Create(filename)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return errors.Wrapf(err, "encode %q", filename)
	}
	return errors.WithStack(f.Close())
}

// Resize scales a flat buffer to a new geometry with nearest-neighbour
// sampling, which keeps hard edges hard. Depth is preserved.
func Resize(pix []uint8, w, h, depth, newW, newH int) ([]uint8, error) {
	src, err := toImage(pix, w, h, depth)
	if err != nil {
		return nil, err
	}
	if newW < 1 || newH < 1 {
		return nil, errors.Errorf("pixel: bad target geometry %dx%d", newW, newH)
	}

	switch depth {
	case 1:
		dst := image.NewGray(image.Rect(0, 0, newW, newH))
		draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
		retVal := make([]uint8, newW*newH)
		copy(retVal, dst.Pix)
		return retVal, nil
	default:
		dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
		draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
		retVal := make([]uint8, newW*newH*3)
		for i := 0; i < newW*newH; i++ {
			retVal[i*3] = dst.Pix[i*4]
			retVal[i*3+1] = dst.Pix[i*4+1]
			retVal[i*3+2] = dst.Pix[i*4+2]
		}
		return retVal, nil
	}
}

// Grayscale collapses a depth-3 buffer to depth 1 with the usual luma
// weights. Depth-1 buffers are returned as a copy.
func Grayscale(pix []uint8, w, h, depth int) ([]uint8, error) {
	if len(pix) != w*h*depth {
		return nil, errors.Errorf("pixel: buffer holds %d bytes, want %dx%dx%d = %d", len(pix), w, h, depth, w*h*depth)
	}
	retVal := make([]uint8, w*h)
	if depth == 1 {
		copy(retVal, pix)
		return retVal, nil
	}
	if depth != 3 {
		return nil, errors.Errorf("pixel: unsupported depth %d", depth)
	}
	for i := 0; i < w*h; i++ {
		r := uint32(pix[i*3])
		g := uint32(pix[i*3+1])
		b := uint32(pix[i*3+2])
		retVal[i] = uint8((299*r + 587*g + 114*b) / 1000)
	}
	return retVal, nil
}
