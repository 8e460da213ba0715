// Package featjpeg streams training snapshots over HTTP as MJPEG, so a
// browser pointed at a running trainer watches the dictionary sheet evolve
// live.
package featjpeg

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"math"
	"net/http"

	"github.com/golang/freetype/truetype"
	"github.com/mattn/go-mjpeg"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/math/fixed"

	"github.com/strataml/strata"
)

var regular *truetype.Font

const (
	dpi             = 144.0
	fontsize        = 12.0
	lineheight      = 1.2
	dummyLongString = `Iteration 10000000, layer 10/10`
)

func init() {
	var err error
	if regular, err = truetype.Parse(gomono.TTF); err != nil {
		panic(err)
	}
}

var grays = func() color.Palette {
	p := make(color.Palette, 256)
	for i := range p {
		p[i] = color.Gray{uint8(i)}
	}
	return p
}()

var _ strata.OutputEncoder = (*Encoder)(nil)

// Encoder renders frames like the gif encoder but pushes each one onto an
// MJPEG stream instead of collecting them.
type Encoder struct {
	H, W int
	font.Drawer

	stream *mjpeg.Stream
	face   font.Face

	maxH, maxW  int
	padH, padW  int
	sheet       int
	scratch     []uint8
	initialized bool
}

func (enc *Encoder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	enc.stream.ServeHTTP(w, r)
}

// NewEncoder with maximum height and width.
func NewEncoder(h, w int) *Encoder {
	return &Encoder{
		H:    -1,
		W:    -1,
		maxH: h,
		maxW: w,
		padH: 10,
		padW: 10,

		stream: mjpeg.NewStream(),
		Drawer: font.Drawer{
			Src: image.Black,
		},
	}
}

// Encode pushes one snapshot frame onto the stream.
func (enc *Encoder) Encode(s *strata.Stack) error {
	cur := s.CurrentLayer()
	if cur >= s.Layers() {
		cur = s.Layers() - 1
	}
	dict := s.Dictionary(cur)

	if !enc.initialized {
		// lazy init of frame geometry
		enc.face = truetype.NewFace(regular, &truetype.Options{
			Size:    fontsize,
			DPI:     dpi,
			Hinting: font.HintingFull,
		})
		enc.Drawer.Src = image.Black
		enc.Drawer.Face = enc.face

		dy := int(math.Ceil(fontsize * lineheight * dpi / 72))
		labelW := font.MeasureString(enc.Face, dummyLongString).Ceil()
		labelH := 3*dy + enc.padH

		sheet := enc.maxW - 2*enc.padW
		if max := enc.maxH - labelH - 2*enc.padH; max < sheet {
			sheet = max
		}
		if sheet < dict.Width {
			return errors.Errorf("featjpeg: %dx%d frame cannot hold a dictionary sheet", enc.maxW, enc.maxH)
		}
		enc.sheet = sheet
		enc.scratch = make([]uint8, sheet*sheet)

		w := sheet + 2*enc.padW
		if labelW+2*enc.padW > w {
			w = labelW + 2*enc.padW
		}
		if w > enc.maxW {
			w = enc.maxW
		}
		enc.W = w
		enc.H = labelH + sheet + 2*enc.padH
		enc.initialized = true
	}

	if err := dict.Draw(enc.scratch, enc.sheet, enc.sheet, 1); err != nil {
		return errors.Wrap(err, "featjpeg: dictionary sheet")
	}

	im := image.NewPaletted(image.Rect(0, 0, enc.W, enc.H), grays)
	draw.Draw(im, im.Bounds(), image.White, image.ZP, draw.Src)

	dy := int(math.Ceil(fontsize * lineheight * dpi / 72))
	y := enc.padH + dy
	enc.Dst = im

	score, seen := s.AvgScore()
	lines := []string{
		fmt.Sprintf("Iteration %d, layer %d/%d", s.Iterations(), cur+1, s.Layers()),
		fmt.Sprintf("%d templates %dx%dx%d", dict.Count, dict.Width, dict.Width, dict.Depth),
		"score: n/a",
	}
	if seen {
		lines[2] = fmt.Sprintf("score: %.5f", score)
	}
	for _, line := range lines {
		enc.Dot = fixed.P(0+enc.padW, y)
		enc.DrawString(line)
		y += dy
	}

	top := 3*dy + 2*enc.padH
	left := (enc.W - enc.sheet) / 2
	for sy := 0; sy < enc.sheet; sy++ {
		for sx := 0; sx < enc.sheet; sx++ {
			im.SetColorIndex(left+sx, top+sy, enc.scratch[sy*enc.sheet+sx])
		}
	}

	var b bytes.Buffer
	if err := jpeg.Encode(&b, im, nil); err != nil {
		return errors.Wrap(err, "featjpeg: frame")
	}
	return errors.Wrap(enc.stream.Update(b.Bytes()), "featjpeg: stream")
}

// Flush is a no-op; frames go out as they are encoded.
func (enc *Encoder) Flush() error { return nil }
