package chart

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlotWritesDecodablePNG(t *testing.T) {
	assert := assert.New(t)
	path := filepath.Join(t.TempDir(), "history.png")
	c := PNG{Path: path}

	series := []float32{9, 7, 5.5, 4, 3.2, 2.9}
	if err := c.Plot("training error", 4, series, 640, 480); err != nil {
		t.Fatalf("%+v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.True(img.Bounds().Dx() > 0)
	assert.True(img.Bounds().Dy() > 0)
}

func TestPlotEmptySeries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.png")
	if err := (PNG{Path: path}).Plot("nothing yet", 1, nil, 320, 240); err != nil {
		t.Fatalf("%+v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("%+v", err)
	}
}

func TestPlotRejectsBadCanvas(t *testing.T) {
	err := (PNG{Path: "nope.png"}).Plot("t", 1, []float32{1}, 0, 240)
	assert.Error(t, err)
}
