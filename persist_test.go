package strata

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func trainedStack(t *testing.T) *Stack {
	t.Helper()
	s, err := New(scenarioConfig())
	if err != nil {
		t.Fatalf("%+v", err)
	}
	img := testImage(128, 128)
	for i := 0; i < 5; i++ {
		if _, err := s.Learn(img, 50); err != nil {
			t.Fatalf("%+v", err)
		}
	}
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	assert := assert.New(t)
	src := trainedStack(t)

	var buf bytes.Buffer
	if err := src.Save(&buf); err != nil {
		t.Fatalf("%+v", err)
	}
	got, err := Load(&buf)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	// the seed is spent at construction and is not part of the stream
	wantConf := src.Config()
	wantConf.Seed = 0
	if diff := cmp.Diff(wantConf, got.Config()); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(src.CurrentLayer(), got.CurrentLayer())
	assert.Equal(src.Iterations(), got.Iterations())
	for i := 0; i < src.Layers(); i++ {
		assert.Equal(src.Dictionary(i).Values, got.Dictionary(i).Values, "layer %d templates", i)
	}
	assert.Equal(src.History().Series(), got.History().Series())
	assert.Equal(src.History().Step(), got.History().Step())
	assert.Equal(src.History().Iterations(), got.History().Iterations())

	// a second save of the loaded stack is byte-identical
	var buf2 bytes.Buffer
	if err := src.Save(&buf2); err != nil {
		t.Fatalf("%+v", err)
	}
	var buf3 bytes.Buffer
	if err := got.Save(&buf3); err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal(buf2.Bytes(), buf3.Bytes())
}

func TestLoadedStackKeepsLearning(t *testing.T) {
	src := trainedStack(t)
	var buf bytes.Buffer
	if err := src.Save(&buf); err != nil {
		t.Fatalf("%+v", err)
	}
	got, err := Load(&buf)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	img := testImage(128, 128)
	score, err := got.Learn(img, 50)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if score < 0 {
		t.Fatalf("score = %v", score)
	}
	if got.Iterations() != src.Iterations()+1 {
		t.Fatalf("iterations = %d, want %d", got.Iterations(), src.Iterations()+1)
	}
	if err := got.FeedForward(img, got.Layers()); err != nil {
		t.Fatalf("%+v", err)
	}
}

func TestSaveLoadFile(t *testing.T) {
	src := trainedStack(t)
	path := filepath.Join(t.TempDir(), "stack.bin")
	if err := src.SaveFile(path); err != nil {
		t.Fatalf("%+v", err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal(t, src.Dictionary(0).Values, got.Dictionary(0).Values)
}

func TestLoadRejectsCorruptStreams(t *testing.T) {
	src := trainedStack(t)
	var buf bytes.Buffer
	if err := src.Save(&buf); err != nil {
		t.Fatalf("%+v", err)
	}
	good := buf.Bytes()

	// scenario header offsets: 3 layers of 5 int32 fields follow the layer
	// count, then output width, output count, rate, current layer, three
	// thresholds, the iteration counter and the history header
	const (
		offLayer1Width = 24
		offCurrent     = 76
		offHistStep    = 104
	)

	corrupt := func(off int, v uint32) []byte {
		b := make([]byte, len(good))
		copy(b, good)
		binary.LittleEndian.PutUint32(b[off:], v)
		return b
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated header", good[:10]},
		{"truncated values", good[:len(good)-100]},
		{"zero layers", corrupt(0, 0)},
		{"huge layer count", corrupt(0, 1 << 30)},
		{"geometry that does not derive", corrupt(offLayer1Width, 127)},
		{"current layer out of range", corrupt(offCurrent, 99)},
		{"zero history step", corrupt(offHistStep, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(bytes.NewReader(tt.data)); err == nil {
				t.Fatal("expected a load error")
			}
		})
	}
}
