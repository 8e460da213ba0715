package strata

import "github.com/pkg/errors"

// Augmenter derives one variant of a normalised single-channel grid.
// Rotate90 and Mirror are Augmenters.
type Augmenter func(vals []float32, m, n int) ([]float32, error)

// Variants chains augmenters: the result holds the original grid followed by
// each successive application. Three Rotate90s give all four orientations;
// following them with a Mirror and three more Rotate90s gives all eight.
func Variants(vals []float32, m, n int, augs ...Augmenter) ([][]float32, error) {
	retVal := make([][]float32, 0, len(augs)+1)
	retVal = append(retVal, vals)
	cur := vals
	for _, aug := range augs {
		next, err := aug(cur, m, n)
		if err != nil {
			return nil, err
		}
		retVal = append(retVal, next)
		cur = next
	}
	return retVal, nil
}

// Rotate90 returns a quarter turn of a square single-channel grid. Feeding
// rotated copies of a training image into Learn stretches a small corpus
// without touching the learning rule.
func Rotate90(vals []float32, m, n int) ([]float32, error) {
	if m != n {
		return nil, errors.Errorf("Cannot handle m %d, n %d. This function only takes square grids", m, n)
	}
	if len(vals) != m*n {
		return nil, errors.Errorf("grid holds %d values, want %dx%d = %d", len(vals), m, n, m*n)
	}
	copied := make([]float32, len(vals))
	copy(copied, vals)
	for i := 0; i < m/2; i++ {
		mi1 := m - i - 1
		for j := i; j < mi1; j++ {
			mj1 := m - j - 1
			tmp := copied[i*n+j]
			// right to top
			copied[i*n+j] = copied[j*n+mi1]

			// bottom to right
			copied[j*n+mi1] = copied[mi1*n+mj1]

			// left to bottom
			copied[mi1*n+mj1] = copied[mj1*n+i]

			// tmp is left
			copied[mj1*n+i] = tmp
		}
	}
	return copied, nil
}

// Mirror returns a left-right flip of a single-channel grid.
func Mirror(vals []float32, m, n int) ([]float32, error) {
	if len(vals) != m*n {
		return nil, errors.Errorf("grid holds %d values, want %dx%d = %d", len(vals), m, n, m*n)
	}
	copied := make([]float32, len(vals))
	for y := 0; y < m; y++ {
		for x := 0; x < n; x++ {
			copied[y*n+x] = vals[y*n+(n-1-x)]
		}
	}
	return copied, nil
}
