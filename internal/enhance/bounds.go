package enhance

import (
	"gonum.org/v1/gonum/stat"

	"go-invoice-capture/internal/frame"
	"go-invoice-capture/pkg/models"
)

// Detection limits for DetectDocumentBounds
const (
	// MinLuminanceStdDev below which the frame is too flat to separate a page
	MinLuminanceStdDev = 8.0
	// MaxCoverage at or above which the bound is effectively the whole frame
	MaxCoverage = 0.98
	// MinCoverage below which the bound is too small to be a document
	MinCoverage = 0.10
	// lineShare is the share of a row/column's peak bright count a line needs
	lineShare = 0.5
)

func luminance(pix []byte) []float64 {
	lum := make([]float64, len(pix)/4)
	for i := range lum {
		o := i * 4
		lum[i] = 0.299*float64(pix[o]) + 0.587*float64(pix[o+1]) + 0.114*float64(pix[o+2])
	}
	return lum
}

// DetectDocumentBounds estimates the rectangle of a bright document on a
// darker background. A nil area means no confident bound was found.
func DetectDocumentBounds(f frame.Frame) (*models.CropArea, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	lum := luminance(f.Pix)
	mean, std := stat.MeanStdDev(lum, nil)
	if std < MinLuminanceStdDev {
		return nil, nil
	}

	rowCounts := make([]int, f.Height)
	colCounts := make([]int, f.Width)
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			if lum[y*f.Width+x] > mean {
				rowCounts[y]++
				colCounts[x]++
			}
		}
	}

	top, bottom, ok := lineSpan(rowCounts)
	if !ok {
		return nil, nil
	}
	left, right, ok := lineSpan(colCounts)
	if !ok {
		return nil, nil
	}

	bw, bh := right-left+1, bottom-top+1
	coverage := float64(bw*bh) / float64(f.Width*f.Height)
	if coverage >= MaxCoverage || coverage < MinCoverage {
		return nil, nil
	}

	return &models.CropArea{
		X:      float64(left) * 100 / float64(f.Width),
		Y:      float64(top) * 100 / float64(f.Height),
		Width:  float64(bw) * 100 / float64(f.Width),
		Height: float64(bh) * 100 / float64(f.Height),
	}, nil
}

// lineSpan returns the first and last index whose count reaches lineShare of the peak
func lineSpan(counts []int) (int, int, bool) {
	peak := 0
	for _, c := range counts {
		if c > peak {
			peak = c
		}
	}
	if peak == 0 {
		return 0, 0, false
	}
	limit := float64(peak) * lineShare
	first, last := -1, -1
	for i, c := range counts {
		if float64(c) >= limit {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	return first, last, first >= 0
}
