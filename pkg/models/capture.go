package models

import "time"

// FacingMode selects which device camera a capture uses
type FacingMode string

const (
	FacingUser        FacingMode = "user"
	FacingEnvironment FacingMode = "environment"
)

// Valid reports whether the facing mode is one the camera understands
func (f FacingMode) Valid() bool {
	return f == FacingUser || f == FacingEnvironment
}

// CropArea is a rectangle expressed as percentages of a frame's dimensions
type CropArea struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// FullFrame covers the entire source frame
var FullFrame = CropArea{X: 0, Y: 0, Width: 100, Height: 100}

// EnhancementParams holds the operator-adjustable color and sharpness settings.
// Brightness, Contrast and Saturation are percentages where 100 is unchanged;
// Sharpness is the kernel intensity and 0 disables sharpening.
type EnhancementParams struct {
	Brightness float64 `json:"brightness" yaml:"brightness"`
	Contrast   float64 `json:"contrast" yaml:"contrast"`
	Saturation float64 `json:"saturation" yaml:"saturation"`
	Sharpness  float64 `json:"sharpness" yaml:"sharpness"`
}

// NeutralEnhancement returns params that leave a frame unchanged
func NeutralEnhancement() EnhancementParams {
	return EnhancementParams{Brightness: 100, Contrast: 100, Saturation: 100}
}

// RecognitionEnhancement returns the params tuned for text recognition
func RecognitionEnhancement() EnhancementParams {
	return EnhancementParams{Brightness: 110, Contrast: 120, Saturation: 90, Sharpness: 1.2}
}

// IsNeutral reports whether applying the params would be a no-op
func (p EnhancementParams) IsNeutral() bool {
	return p == NeutralEnhancement()
}

// ConfidenceLevel buckets an extraction confidence for display
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// ExtractionResult is the structured output of the extraction collaborator
type ExtractionResult struct {
	Supplier      string  `json:"supplier"`
	Amount        string  `json:"amount"`
	Date          string  `json:"date"`
	InvoiceNumber string  `json:"invoiceNumber"`
	Confidence    float64 `json:"confidence"`
}

// ConfidenceLevel returns the display bucket for the result's confidence
func (r ExtractionResult) ConfidenceLevel() ConfidenceLevel {
	switch {
	case r.Confidence >= 90:
		return ConfidenceHigh
	case r.Confidence >= 70:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// QueuedInvoiceRecord is an approved capture waiting for, or done with, upload.
// Only the sync path flips Synced, and only from false to true.
type QueuedInvoiceRecord struct {
	ID          string           `json:"id"`
	Image       []byte           `json:"image"`
	ContentType string           `json:"content_type"`
	Extraction  ExtractionResult `json:"extraction"`
	CreatedAt   time.Time        `json:"created_at"`
	Synced      bool             `json:"synced"`
}

// Clone returns a deep copy so callers can't alias store-owned buffers
func (r *QueuedInvoiceRecord) Clone() *QueuedInvoiceRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.Image != nil {
		c.Image = append([]byte(nil), r.Image...)
	}
	return &c
}
