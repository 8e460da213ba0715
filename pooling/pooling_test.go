package pooling

import (
	"testing"

	rng "github.com/leesper/go_rng"
	"github.com/stretchr/testify/assert"
)

func TestPoolMax(t *testing.T) {
	assert := assert.New(t)

	src := []float32{
		0, 1, 2, 3,
		4, 5, 6, 7,
		8, 9, 10, 11,
		12, 13, 14, 15,
	}
	dst := make([]float32, 4)
	if err := Pool(1, src, 4, 4, dst, 2, 2); err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal([]float32{5, 7, 13, 15}, dst)

	// uneven grids scale proportionally
	src = []float32{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}
	dst = make([]float32, 4)
	if err := Pool(1, src, 3, 3, dst, 2, 2); err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal([]float32{5, 6, 8, 9}, dst)

	// per-channel maxima are independent
	src = []float32{1, 8, 3, 2, 5, 4, 0, 6}
	dst = make([]float32, 2)
	if err := Pool(2, src, 2, 2, dst, 1, 1); err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal([]float32{5, 8}, dst)
}

func TestEqualAreaCopies(t *testing.T) {
	assert := assert.New(t)
	src := []float32{9, 1, 4, 7, 0, 3}
	dst := make([]float32, len(src))
	if err := Pool(2, src, 3, 1, dst, 3, 1); err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal(src, dst)

	dst2 := make([]float32, len(src))
	if err := Unpool(2, src, 3, 1, dst2, 3, 1); err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal(src, dst2)
}

func TestUnpoolBroadcast(t *testing.T) {
	assert := assert.New(t)
	src := []float32{5, 7, 13, 15}
	dst := make([]float32, 16)
	if err := Unpool(1, src, 2, 2, dst, 4, 4); err != nil {
		t.Fatalf("%+v", err)
	}
	want := []float32{
		5, 5, 7, 7,
		5, 5, 7, 7,
		13, 13, 15, 15,
		13, 13, 15, 15,
	}
	assert.Equal(want, dst)
}

func TestPoolUnpoolRoundTrip(t *testing.T) {
	gen := rng.NewUniformGenerator(1337)
	tests := []struct {
		name                   string
		depth                  int
		srcW, srcH, dstW, dstH int
	}{
		{"even halving", 3, 8, 8, 4, 4},
		{"uneven", 2, 7, 5, 3, 2},
		{"tall", 1, 4, 12, 2, 3},
		{"deep single cell", 5, 6, 6, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			src := make([]float32, tt.srcW*tt.srcH*tt.depth)
			for i := range src {
				src[i] = gen.Float32()
			}
			pooled := make([]float32, tt.dstW*tt.dstH*tt.depth)
			if err := Pool(tt.depth, src, tt.srcW, tt.srcH, pooled, tt.dstW, tt.dstH); err != nil {
				t.Fatalf("%+v", err)
			}

			expanded := make([]float32, len(src))
			if err := Unpool(tt.depth, pooled, tt.dstW, tt.dstH, expanded, tt.srcW, tt.srcH); err != nil {
				t.Fatalf("%+v", err)
			}

			// every expanded cell carries exactly its pooled cell's value
			for y := 0; y < tt.srcH; y++ {
				py := y * tt.dstH / tt.srcH
				for x := 0; x < tt.srcW; x++ {
					px := x * tt.dstW / tt.srcW
					n := (y*tt.srcW + x) * tt.depth
					pn := (py*tt.dstW + px) * tt.depth
					assert.Equal(pooled[pn:pn+tt.depth], expanded[n:n+tt.depth], "cell (%d,%d)", x, y)
				}
			}

			// re-pooling the expanded buffer reproduces the pooled buffer exactly
			repooled := make([]float32, len(pooled))
			if err := Pool(tt.depth, expanded, tt.srcW, tt.srcH, repooled, tt.dstW, tt.dstH); err != nil {
				t.Fatalf("%+v", err)
			}
			assert.Equal(pooled, repooled)
		})
	}
}

func TestPoolGeometryErrors(t *testing.T) {
	assert := assert.New(t)
	src := make([]float32, 4)
	dst := make([]float32, 16)

	// destination larger than source
	assert.Error(Pool(1, src, 2, 2, dst, 4, 4))
	// source larger than destination
	assert.Error(Unpool(1, dst, 4, 4, src, 2, 2))
	// buffer length does not match the declared grid
	assert.Error(Pool(1, src, 3, 3, dst, 2, 2))
	assert.Error(Unpool(2, src, 2, 2, dst, 4, 4))
	// nonsense depth
	assert.Error(Pool(0, src, 2, 2, dst, 1, 1))
}
