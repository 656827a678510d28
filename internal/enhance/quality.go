package enhance

import (
	"gonum.org/v1/gonum/stat"

	"go-invoice-capture/internal/frame"
	"go-invoice-capture/pkg/models"
	"go-invoice-capture/pkg/validation"
)

// Assessor measures capture quality for display at review
type Assessor struct {
	validator *validation.QualityValidator
}

// NewAssessor creates an assessor; a nil validator uses the default thresholds
func NewAssessor(v *validation.QualityValidator) *Assessor {
	if v == nil {
		v = validation.NewQualityValidator()
	}
	return &Assessor{validator: v}
}

// Measure computes the raw metrics of a frame
func (a *Assessor) Measure(f frame.Frame) (validation.CaptureMetrics, error) {
	if err := f.Validate(); err != nil {
		return validation.CaptureMetrics{}, err
	}
	lum := luminance(f.Pix)
	mean, std := stat.MeanStdDev(lum, nil)
	return validation.CaptureMetrics{
		Width:        f.Width,
		Height:       f.Height,
		LaplacianVar: laplacianVariance(lum, f.Width, f.Height),
		Brightness:   mean,
		Contrast:     std,
	}, nil
}

// Assess measures a frame and reports its quality issues
func (a *Assessor) Assess(f frame.Frame) (models.QualityReport, error) {
	m, err := a.Measure(f)
	if err != nil {
		return models.QualityReport{}, err
	}
	return a.validator.Report(m), nil
}

// laplacianVariance uses the kernel [0,1,0; 1,-4,1; 0,1,0] over the interior
func laplacianVariance(lum []float64, width, height int) float64 {
	if width < 3 || height < 3 || (width-2)*(height-2) < 2 {
		return 0
	}
	data := make([]float64, 0, (width-2)*(height-2))
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			data = append(data, -4*lum[i]+lum[i-width]+lum[i+width]+lum[i-1]+lum[i+1])
		}
	}
	return stat.Variance(data, nil)
}
