package strata

import "sync"

var (
	slabLock sync.Mutex
	slabPool = make(map[int]*sync.Pool)
)

// borrowSlab hands out a float buffer of exactly n values for intermediate
// reconstruction grids. Contents are whatever the previous user left behind;
// every consumer overwrites fully.
func borrowSlab(n int) []float32 {
	slabLock.Lock()
	pool, ok := slabPool[n]
	if !ok {
		pool = &sync.Pool{
			New: func() interface{} { return make([]float32, n) },
		}
		slabPool[n] = pool
	}
	slabLock.Unlock()
	return pool.Get().([]float32)
}

func returnSlab(s []float32) {
	slabLock.Lock()
	pool, ok := slabPool[len(s)]
	slabLock.Unlock()
	if ok {
		pool.Put(s)
	}
}
