package feature

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
)

// Draw rasterises the dictionary as a sheet of tiles onto a w×h byte image
// with depth channels, nearest-neighbour scaled, templates laid out row-major
// on a near-square grid with a white background behind any unused tiles. When
// depth differs from the dictionary's channel count, the mean over template
// channels is painted into every output channel so deep-layer dictionaries
// stay viewable.
func (d *Dictionary) Draw(img []uint8, w, h, depth int) error {
	if w < 1 || h < 1 || depth < 1 || len(img) != w*h*depth {
		return errors.Errorf("draw: image holds %d bytes, want %dx%dx%d = %d", len(img), w, h, depth, w*h*depth)
	}
	across := int(math32.Ceil(math32.Sqrt(float32(d.Count))))
	down := (d.Count + across - 1) / across
	tileW, tileH := w/across, h/down
	if tileW < 1 || tileH < 1 {
		return errors.Errorf("draw: %dx%d image cannot fit %d tiles", w, h, d.Count)
	}

	for i := range img {
		img[i] = 255
	}
	for f := 0; f < d.Count; f++ {
		t := d.Template(f)
		ox := (f % across) * tileW
		oy := (f / across) * tileH
		for y := 0; y < tileH; y++ {
			sy := y * d.Width / tileH
			for x := 0; x < tileW; x++ {
				sx := x * d.Width / tileW
				n := (sy*d.Width + sx) * d.Depth
				px := ((oy+y)*w + ox + x) * depth
				if depth == d.Depth {
					for dd := 0; dd < depth; dd++ {
						img[px+dd] = byteValue(t[n+dd])
					}
					continue
				}
				var mean float32
				for dd := 0; dd < d.Depth; dd++ {
					mean += t[n+dd]
				}
				v := byteValue(mean / float32(d.Depth))
				for dd := 0; dd < depth; dd++ {
					img[px+dd] = v
				}
			}
		}
	}
	return nil
}

func byteValue(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v * 255)
}
