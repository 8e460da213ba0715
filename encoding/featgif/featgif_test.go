package featgif

import (
	"bytes"
	"image/gif"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/strataml/strata"
)

func smallStack(t *testing.T) *strata.Stack {
	t.Helper()
	s, err := strata.New(strata.Config{
		Layers:       2,
		Width:        32,
		Height:       32,
		Depth:        1,
		Features:     4,
		FeatureWidth: 4,
		OutputWidth:  8,
		OutputHeight: 8,
		LearnRate:    1,
		Seed:         7,
	})
	if err != nil {
		t.Fatalf("%+v", err)
	}
	return s
}

func TestEncoderAnimates(t *testing.T) {
	assert := assert.New(t)
	s := smallStack(t)
	img := make([]uint8, 32*32)
	for i := range img {
		img[i] = uint8(i % 251)
	}

	var buf bytes.Buffer
	enc := NewEncoder(400, 300)
	enc.Writer = &buf

	for i := 0; i < 3; i++ {
		if _, err := s.Learn(img, 20); err != nil {
			t.Fatalf("%+v", err)
		}
		if err := enc.Encode(s); err != nil {
			t.Fatalf("%+v", err)
		}
	}
	if err := enc.Flush(); err != nil {
		t.Fatalf("%+v", err)
	}

	out, err := gif.DecodeAll(&buf)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Len(out.Image, 3)
	assert.Equal(-1, out.LoopCount)
	for _, frame := range out.Image {
		assert.Equal(enc.W, frame.Bounds().Dx())
		assert.Equal(enc.H, frame.Bounds().Dy())
	}
}

func TestEncoderRejectsTinyFrames(t *testing.T) {
	s := smallStack(t)
	enc := NewEncoder(40, 20)
	if err := enc.Encode(s); err == nil {
		t.Fatal("expected a geometry error")
	}
}

func TestFlushWithoutFrames(t *testing.T) {
	enc := NewEncoder(400, 300)
	enc.Writer = &bytes.Buffer{}
	assert.Error(t, enc.Flush())
}
