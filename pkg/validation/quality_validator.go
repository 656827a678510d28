package validation

import (
	"go-invoice-capture/pkg/models"
)

// QualityThresholds defines configurable thresholds for capture quality checks
type QualityThresholds struct {
	// Sharpness thresholds
	MinLaplacianVariance float64
	MaxLaplacianVariance float64

	// Brightness thresholds (mean gray level, 0-255)
	MinBrightness float64
	MaxBrightness float64

	// Resolution thresholds, orientation independent
	MinShortSide   int
	MinTotalPixels int
}

// DefaultQualityThresholds returns the default quality thresholds
func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{
		MinLaplacianVariance: 100.0,  // below this text strokes are smeared
		MaxLaplacianVariance: 4000.0, // sensor noise or heavy digital sharpening
		MinBrightness:        80.0,
		MaxBrightness:        220.0,
		MinShortSide:         600,
		MinTotalPixels:       480000,
	}
}

// QualityValidator turns raw capture metrics into operator-facing issues
type QualityValidator struct {
	thresholds QualityThresholds
}

// NewQualityValidator creates a new quality validator with default thresholds
func NewQualityValidator() *QualityValidator {
	return &QualityValidator{
		thresholds: DefaultQualityThresholds(),
	}
}

// NewQualityValidatorWithThresholds creates a quality validator with custom thresholds
func NewQualityValidatorWithThresholds(thresholds QualityThresholds) *QualityValidator {
	return &QualityValidator{
		thresholds: thresholds,
	}
}

// Thresholds returns the thresholds in use
func (qv *QualityValidator) Thresholds() QualityThresholds {
	return qv.thresholds
}

// CaptureMetrics are the measurements taken from a captured frame
type CaptureMetrics struct {
	Width        int
	Height       int
	LaplacianVar float64
	Brightness   float64
	// Contrast is the standard deviation of the gray levels
	Contrast float64
}

// isBlurry treats a flat, low-contrast frame as blank rather than blurry
func (qv *QualityValidator) isBlurry(m CaptureMetrics) bool {
	if m.LaplacianVar >= qv.thresholds.MinLaplacianVariance {
		return false
	}
	if m.LaplacianVar < 1.0 {
		return true
	}
	return m.Contrast >= 8
}

// Report builds the full quality report for a capture
func (qv *QualityValidator) Report(m CaptureMetrics) models.QualityReport {
	issues := qv.Validate(m)
	report := models.QualityReport{
		Width:        m.Width,
		Height:       m.Height,
		LaplacianVar: m.LaplacianVar,
		Brightness:   m.Brightness,
		Issues:       issues,
	}
	for _, issue := range issues {
		switch issue.Type {
		case "blurriness":
			report.Blurry = true
		case "too_dark":
			report.IsTooDark = true
		case "too_bright":
			report.IsTooBright = true
		case "low_resolution":
			report.IsLowResolution = true
		}
	}
	return report
}

// Validate returns every issue found for the capture
func (qv *QualityValidator) Validate(m CaptureMetrics) []models.QualityIssue {
	var issues []models.QualityIssue

	// 1. Sharpness
	if qv.isBlurry(m) {
		issues = append(issues, models.QualityIssue{
			Type:        "blurriness",
			Message:     "Invoice is blurry. Hold the camera steady and retake.",
			Severity:    models.SeverityError,
			ActualValue: m.LaplacianVar,
			Threshold:   qv.thresholds.MinLaplacianVariance,
		})
	} else if m.LaplacianVar >= qv.thresholds.MaxLaplacianVariance {
		issues = append(issues, models.QualityIssue{
			Type:        "noise",
			Message:     "Image is very noisy. Use more light and avoid digital zoom.",
			Severity:    models.SeverityWarning,
			ActualValue: m.LaplacianVar,
			Threshold:   qv.thresholds.MaxLaplacianVariance,
		})
	}

	// 2. Brightness
	if m.Brightness < qv.thresholds.MinBrightness {
		issues = append(issues, models.QualityIssue{
			Type:        "too_dark",
			Message:     "Invoice is too dark. Move to a brighter spot.",
			Severity:    models.SeverityError,
			ActualValue: m.Brightness,
			Threshold:   qv.thresholds.MinBrightness,
		})
	} else if m.Brightness > qv.thresholds.MaxBrightness {
		issues = append(issues, models.QualityIssue{
			Type:        "too_bright",
			Message:     "Invoice is washed out. Avoid direct light or flash.",
			Severity:    models.SeverityError,
			ActualValue: m.Brightness,
			Threshold:   qv.thresholds.MaxBrightness,
		})
	}

	// 3. Resolution
	short := m.Width
	if m.Height < short {
		short = m.Height
	}
	total := m.Width * m.Height
	if short < qv.thresholds.MinShortSide || total < qv.thresholds.MinTotalPixels {
		issues = append(issues, models.QualityIssue{
			Type:        "low_resolution",
			Message:     "Invoice is too small to read. Move closer or crop less.",
			Severity:    models.SeverityWarning,
			ActualValue: float64(total),
			Threshold:   float64(qv.thresholds.MinTotalPixels),
		})
	}

	return issues
}

// ConvertIssuesToMessages flattens issues to their messages
func (qv *QualityValidator) ConvertIssuesToMessages(issues []models.QualityIssue) []string {
	var messages []string
	for _, issue := range issues {
		messages = append(messages, issue.Message)
	}
	return messages
}

// HasCriticalIssues checks if there are any critical (error severity) issues
func (qv *QualityValidator) HasCriticalIssues(issues []models.QualityIssue) bool {
	for _, issue := range issues {
		if issue.Severity == models.SeverityError {
			return true
		}
	}
	return false
}
