package pixel

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeGray(t *testing.T) {
	assert := assert.New(t)
	pix := make([]uint8, 16*8)
	for i := range pix {
		pix[i] = uint8(i)
	}
	path := filepath.Join(t.TempDir(), "gray.png")
	if err := Encode(path, pix, 16, 8, 1); err != nil {
		t.Fatalf("%+v", err)
	}

	got, w, h, depth, err := Decode(path)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal(16, w)
	assert.Equal(8, h)
	assert.Equal(1, depth)
	assert.Equal(pix, got)
}

func TestEncodeDecodeRGB(t *testing.T) {
	assert := assert.New(t)
	pix := make([]uint8, 4*4*3)
	for i := range pix {
		pix[i] = uint8(i * 5)
	}
	path := filepath.Join(t.TempDir(), "rgb.png")
	if err := Encode(path, pix, 4, 4, 3); err != nil {
		t.Fatalf("%+v", err)
	}

	got, w, h, depth, err := Decode(path)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal(4, w)
	assert.Equal(4, h)
	assert.Equal(3, depth)
	assert.Equal(pix, got)
}

func TestEncodeRejectsBadGeometry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.png")
	if err := Encode(path, make([]uint8, 10), 16, 8, 1); err == nil {
		t.Fatal("expected a geometry error")
	}
	if err := Encode(path, make([]uint8, 16), 4, 4, 2); err == nil {
		t.Fatal("expected a depth error")
	}
}

func TestResize(t *testing.T) {
	assert := assert.New(t)

	// 2x2 checkerboard blown up to 4x4 keeps its quadrants intact
	pix := []uint8{0, 255, 255, 0}
	got, err := Resize(pix, 2, 2, 1, 4, 4)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	want := []uint8{
		0, 0, 255, 255,
		0, 0, 255, 255,
		255, 255, 0, 0,
		255, 255, 0, 0,
	}
	assert.Equal(want, got)

	// shrinking back recovers the original
	back, err := Resize(got, 4, 4, 1, 2, 2)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal(pix, back)
}

func TestResizeRGB(t *testing.T) {
	assert := assert.New(t)
	pix := make([]uint8, 2*2*3)
	for i := range pix {
		pix[i] = uint8(40 * i)
	}
	got, err := Resize(pix, 2, 2, 3, 4, 4)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Len(got, 4*4*3)
	assert.Equal(pix[0:3], got[0:3], "top left texel survives scaling")
}

func TestGrayscale(t *testing.T) {
	assert := assert.New(t)
	pix := []uint8{255, 255, 255, 0, 0, 0, 255, 0, 0}
	got, err := Grayscale(pix, 3, 1, 3)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal(uint8(255), got[0])
	assert.Equal(uint8(0), got[1])
	assert.Equal(uint8(76), got[2]) // 0.299 of full red

	same, err := Grayscale(got, 3, 1, 1)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal(got, same)
}
