// Package featgif renders the evolution of a training run as an animated
// gif: one frame per snapshot, each showing the dictionary sheet of the
// layer in training with a short status header.
package featgif

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"io"
	"math"

	"github.com/golang/freetype/truetype"
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

// grays is a full 8-bit grayscale palette, index i being gray level i, so
// dictionary bytes map straight onto palette indices.
var grays = func() color.Palette {
	p := make(color.Palette, 256)
	for i := range p {
		p[i] = color.Gray{uint8(i)}
	}
	return p
}()

var _ strata.OutputEncoder = (*Encoder)(nil)

// Encoder collects one frame per Encode call and writes the animation on
// Flush.
type Encoder struct {
	H, W int
	font.Drawer

	out *gif.GIF
	io.Writer
	face font.Face

	maxH, maxW  int
	padH, padW  int
	sheet       int // side of the square dictionary sheet
	scratch     []uint8
	initialized bool
}

// NewEncoder with maximum height and width. Frames size themselves within
// those bounds on the first Encode.
func NewEncoder(h, w int) *Encoder {
	return &Encoder{
		H:    -1,
		W:    -1,
		maxH: h,
		maxW: w,
		padH: 10,
		padW: 10,

		Drawer: font.Drawer{
			Src: image.Black,
		},
		out: &gif.GIF{LoopCount: -1},
	}
}

// Encode snapshots the stack: the dictionary sheet of the layer currently in
// training (or the deepest layer once training has finished) under a header
// of iteration count, layer position and running score.
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
			return errors.Errorf("featgif: %dx%d frame cannot hold a dictionary sheet", enc.maxW, enc.maxH)
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
		return errors.Wrap(err, "featgif: dictionary sheet")
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

	delay := 10
	if s.TrainingComplete() {
		delay = 300
	}
	enc.out.Image = append(enc.out.Image, im)
	enc.out.Delay = append(enc.out.Delay, delay)
	return nil
}

// Flush writes the gif into the writer.
func (enc *Encoder) Flush() error {
	if len(enc.out.Image) == 0 {
		return errors.New("featgif: no frames encoded")
	}
	return errors.Wrap(gif.EncodeAll(enc.Writer, enc.out), "featgif: flush")
}
