package md

import "fmt"

// Partition splits steps into blocks of blocksize, with one trailing block
// holding any remainder. Blocks are named 001, 002, ...
func Partition(steps, blocksize int) (names []string, sizes []int, err error) {
	if steps <= 0 || blocksize <= 0 {
		return nil, nil, fmt.Errorf("md: cannot split %d steps into blocks of %d", steps, blocksize)
	}
	full, rem := steps/blocksize, steps%blocksize
	for i := 0; i < full; i++ {
		sizes = append(sizes, blocksize)
	}
	if rem != 0 {
		sizes = append(sizes, rem)
	}
	names = make([]string, len(sizes))
	for i := range sizes {
		names[i] = fmt.Sprintf("%03d", i+1)
	}
	return names, sizes, nil
}
