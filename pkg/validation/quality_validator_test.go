package validation

import (
	"testing"

	"go-invoice-capture/pkg/models"
)

func TestNewQualityValidator(t *testing.T) {
	validator := NewQualityValidator()
	if validator == nil {
		t.Fatal("Expected non-nil quality validator")
	}

	expected := DefaultQualityThresholds().MinLaplacianVariance
	if validator.Thresholds().MinLaplacianVariance != expected {
		t.Errorf("Expected MinLaplacianVariance to be %f, got %f", expected, validator.Thresholds().MinLaplacianVariance)
	}
}

func TestNewQualityValidatorWithThresholds(t *testing.T) {
	custom := QualityThresholds{
		MinLaplacianVariance: 500.0,
		MinBrightness:        100.0,
		MaxBrightness:        200.0,
	}

	validator := NewQualityValidatorWithThresholds(custom)
	if validator.Thresholds().MinLaplacianVariance != 500.0 {
		t.Errorf("Expected custom MinLaplacianVariance to be 500.0, got %f", validator.Thresholds().MinLaplacianVariance)
	}
}

func hasIssue(issues []models.QualityIssue, issueType string) bool {
	for _, issue := range issues {
		if issue.Type == issueType {
			return true
		}
	}
	return false
}

func TestValidate(t *testing.T) {
	good := CaptureMetrics{Width: 1920, Height: 1080, LaplacianVar: 800, Brightness: 150, Contrast: 60}

	tests := []struct {
		name       string
		mutate     func(m *CaptureMetrics)
		wantIssue  string
		wantCritic bool
	}{
		{"high quality", func(m *CaptureMetrics) {}, "", false},
		{"blurry", func(m *CaptureMetrics) { m.LaplacianVar = 20 }, "blurriness", true},
		{"no detail at all", func(m *CaptureMetrics) { m.LaplacianVar = 0.2; m.Contrast = 0 }, "blurriness", true},
		{"blank page is not blurry", func(m *CaptureMetrics) { m.LaplacianVar = 20; m.Contrast = 2 }, "", false},
		{"noisy", func(m *CaptureMetrics) { m.LaplacianVar = 5000 }, "noise", false},
		{"too dark", func(m *CaptureMetrics) { m.Brightness = 40 }, "too_dark", true},
		{"too bright", func(m *CaptureMetrics) { m.Brightness = 240 }, "too_bright", true},
		{"low resolution", func(m *CaptureMetrics) { m.Width, m.Height = 640, 480 }, "low_resolution", false},
	}

	validator := NewQualityValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := good
			tt.mutate(&m)
			issues := validator.Validate(m)

			if tt.wantIssue == "" && len(issues) > 0 {
				t.Errorf("Expected no issues, got %v", issues)
			}
			if tt.wantIssue != "" && !hasIssue(issues, tt.wantIssue) {
				t.Errorf("Expected %s issue, got %v", tt.wantIssue, issues)
			}
			if got := validator.HasCriticalIssues(issues); got != tt.wantCritic {
				t.Errorf("HasCriticalIssues = %v, want %v", got, tt.wantCritic)
			}
		})
	}
}

func TestReportFlags(t *testing.T) {
	validator := NewQualityValidator()
	report := validator.Report(CaptureMetrics{Width: 300, Height: 200, LaplacianVar: 10, Brightness: 30, Contrast: 20})

	if !report.Blurry || !report.IsTooDark || !report.IsLowResolution {
		t.Errorf("Expected blurry, dark and low resolution flags, got %+v", report)
	}
	if report.IsTooBright {
		t.Error("Did not expect too bright flag")
	}
	if report.IsAcceptable() {
		t.Error("Expected report with error issues to be unacceptable")
	}
	if len(validator.ConvertIssuesToMessages(report.Issues)) != len(report.Issues) {
		t.Error("Expected one message per issue")
	}
}
