package models

// QualityReport summarises how readable a captured frame is likely to be.
// It is advisory: the operator still decides at review.
type QualityReport struct {
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	LaplacianVar float64 `json:"laplacian_variance"`
	Brightness   float64 `json:"brightness"`

	Blurry          bool `json:"blurry"`
	IsTooDark       bool `json:"is_too_dark"`
	IsTooBright     bool `json:"is_too_bright"`
	IsLowResolution bool `json:"is_low_resolution"`

	Issues []QualityIssue `json:"issues,omitempty"`
}

// IsAcceptable reports whether no error-severity issue was found
func (q QualityReport) IsAcceptable() bool {
	for _, issue := range q.Issues {
		if issue.Severity == SeverityError {
			return false
		}
	}
	return true
}

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// QualityIssue represents a quality validation issue
type QualityIssue struct {
	Type        string  `json:"type"`
	Message     string  `json:"message"`
	Severity    string  `json:"severity"`
	ActualValue float64 `json:"actual_value,omitempty"`
	Threshold   float64 `json:"threshold,omitempty"`
}
