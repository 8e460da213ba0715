package strata

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

// The persisted layout is a little-endian stream with a fixed field order
// and no padding: layer count; per layer width, height, depth, feature
// count, feature width; output width; output element count; learning rate;
// current layer; per-layer thresholds; iteration counter; history length,
// decimation counter and step; history series; then every layer's template
// values. Counts and indices are int32, the iteration counter uint32,
// everything else float32.

type stickyWriter struct {
	w   io.Writer
	err error
}

func (sw *stickyWriter) write(v interface{}) {
	if sw.err != nil {
		return
	}
	sw.err = binary.Write(sw.w, binary.LittleEndian, v)
}

type stickyReader struct {
	r   io.Reader
	err error
}

func (sr *stickyReader) read(v interface{}) {
	if sr.err != nil {
		return
	}
	sr.err = binary.Read(sr.r, binary.LittleEndian, v)
}

func (sr *stickyReader) int32() int32 {
	var v int32
	sr.read(&v)
	return v
}

func (sr *stickyReader) uint32() uint32 {
	var v uint32
	sr.read(&v)
	return v
}

func (sr *stickyReader) float32() float32 {
	var v float32
	sr.read(&v)
	return v
}

// Save writes the stack to w in the persisted layout. Activation and output
// buffers are derived state and are not written.
func (s *Stack) Save(w io.Writer) error {
	sw := &stickyWriter{w: w}
	sw.write(int32(len(s.layers)))
	for i := range s.layers {
		l := &s.layers[i]
		sw.write(int32(l.Width))
		sw.write(int32(l.Height))
		sw.write(int32(l.Depth))
		sw.write(int32(l.Dict.Count))
		sw.write(int32(l.Dict.Width))
	}
	sw.write(int32(s.conf.OutputWidth))
	sw.write(int32(len(s.outputs)))
	sw.write(s.conf.LearnRate)
	sw.write(int32(s.current))
	sw.write(s.thresholds)
	sw.write(s.iterations)
	sw.write(int32(s.history.Len()))
	sw.write(int32(s.history.ctr))
	sw.write(int32(s.history.step))
	if s.history.Len() > 0 {
		sw.write(s.history.series)
	}
	for i := range s.layers {
		sw.write(s.layers[i].Dict.Values)
	}
	return errors.Wrap(sw.err, "save stack")
}

type layerGeom struct {
	w, h, depth, count, fw int
}

// Load rebuilds a stack from a stream written by Save. The header is decoded
// into a Config and run through New, so every derived buffer is sized by the
// same rules as at construction; the stream's per-layer geometry must agree
// with what those rules derive, then template values are read straight into
// the fresh dictionaries.
func Load(r io.Reader) (*Stack, error) {
	sr := &stickyReader{r: r}
	nlayers := int(sr.int32())
	if sr.err != nil {
		return nil, errors.Wrap(sr.err, "load stack: layer count")
	}
	if nlayers < 1 {
		return nil, errors.Errorf("load stack: bad layer count %d", nlayers)
	}

	var geoms []layerGeom
	for i := 0; i < nlayers; i++ {
		g := layerGeom{
			w:     int(sr.int32()),
			h:     int(sr.int32()),
			depth: int(sr.int32()),
			count: int(sr.int32()),
			fw:    int(sr.int32()),
		}
		if sr.err != nil {
			return nil, errors.Wrapf(sr.err, "load stack: layer %d geometry", i)
		}
		geoms = append(geoms, g)
	}
	outW := int(sr.int32())
	outCount := int(sr.int32())
	rate := sr.float32()
	current := int(sr.int32())
	thresholds := make([]float32, nlayers)
	sr.read(thresholds)
	iterations := sr.uint32()
	histLen := int(sr.int32())
	histCtr := int(sr.int32())
	histStep := int(sr.int32())
	if sr.err != nil {
		return nil, errors.Wrap(sr.err, "load stack: header")
	}

	g0 := geoms[0]
	if outW < 1 || g0.count < 1 || outCount < 1 || outCount%(outW*g0.count) != 0 {
		return nil, errors.Errorf("load stack: output of %d values cannot be %d wide with %d features", outCount, outW, g0.count)
	}
	conf := Config{
		Layers:       nlayers,
		Width:        g0.w,
		Height:       g0.h,
		Depth:        g0.depth,
		Features:     g0.count,
		FeatureWidth: g0.fw,
		OutputWidth:  outW,
		OutputHeight: outCount / (outW * g0.count),
		Thresholds:   thresholds,
		LearnRate:    rate,
	}
	s, err := New(conf)
	if err != nil {
		return nil, errors.Wrap(err, "load stack")
	}
	for i, g := range geoms {
		l := &s.layers[i]
		if l.Width != g.w || l.Height != g.h || l.Depth != g.depth || l.Dict.Count != g.count || l.Dict.Width != g.fw {
			return nil, errors.Errorf("load stack: layer %d geometry %dx%dx%d with %d %dx%d templates does not derive from the header", i, g.w, g.h, g.depth, g.count, g.fw, g.fw)
		}
	}
	if current < 0 || current > nlayers {
		return nil, errors.Errorf("load stack: current layer %d out of range", current)
	}
	if histLen < 0 || histLen > s.history.capacity || histStep < 1 || histCtr < 0 {
		return nil, errors.Errorf("load stack: history state len %d ctr %d step %d", histLen, histCtr, histStep)
	}

	s.current = current
	s.iterations = iterations
	s.history.series = s.history.series[:histLen]
	if histLen > 0 {
		sr.read(s.history.series)
	}
	s.history.ctr = histCtr
	s.history.step = histStep
	s.history.itns = iterations // one recording per learning iteration
	for i := range s.layers {
		sr.read(s.layers[i].Dict.Values)
	}
	if sr.err != nil {
		return nil, errors.Wrap(sr.err, "load stack: values")
	}
	return s, nil
}

// SaveFile writes the stack to a file.
func (s *Stack) SaveFile(filename string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	if err := s.Save(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(f.Close())
}

// LoadFile reads a stack from a file written by SaveFile.
func LoadFile(filename string) (*Stack, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	return Load(bufio.NewReader(f))
}
