package enhance

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	apperrors "go-invoice-capture/internal/errors"
	"go-invoice-capture/internal/frame"
)

// Sharpen convolves the color channels with the kernel
//
//	[ 0  -k   0 ]
//	[-k 1+4k -k ]
//	[ 0  -k   0 ]
//
// Alpha and the outermost ring of pixels are copied unchanged.
func Sharpen(f frame.Frame, k float64) (frame.Frame, error) {
	if err := f.Validate(); err != nil {
		return frame.Frame{}, err
	}
	if k < 0 || math.IsNaN(k) || math.IsInf(k, 0) {
		return frame.Frame{}, apperrors.NewValidationError(fmt.Sprintf("sharpen intensity must be >= 0, got %v", k), nil)
	}

	out := f.Clone()
	if k == 0 || f.Width < 3 || f.Height < 3 {
		return out, nil
	}

	// Interior rows only, split into horizontal strips
	firstRow, lastRow := 1, f.Height-1
	rows := lastRow - firstRow
	numWorkers := runtime.NumCPU()
	if rows < numWorkers {
		numWorkers = rows
	}
	if numWorkers <= 0 {
		numWorkers = 1
	}
	rowsPerWorker := (rows + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		startY := firstRow + i*rowsPerWorker
		endY := startY + rowsPerWorker
		if endY > lastRow {
			endY = lastRow
		}
		if startY >= endY {
			break
		}
		wg.Add(1)
		go func(startY, endY int) {
			defer wg.Done()
			sharpenRows(f, out.Pix, k, startY, endY)
		}(startY, endY)
	}
	wg.Wait()

	return out, nil
}

func sharpenRows(src frame.Frame, dst []byte, k float64, startY, endY int) {
	stride := src.Width * 4
	center := 1 + 4*k
	for y := startY; y < endY; y++ {
		for x := 1; x < src.Width-1; x++ {
			i := src.Offset(x, y)
			for c := 0; c < 3; c++ {
				v := center*float64(src.Pix[i+c]) -
					k*float64(src.Pix[i+c-stride]) -
					k*float64(src.Pix[i+c+stride]) -
					k*float64(src.Pix[i+c-4]) -
					k*float64(src.Pix[i+c+4])
				dst[i+c] = toByte(v)
			}
		}
	}
}
