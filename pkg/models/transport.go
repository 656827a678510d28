package models

import "time"

// UploadPayload is the body POSTed to the invoices endpoint.
// Exactly one of ImageBytes or ImageRef is set.
type UploadPayload struct {
	ID            string    `json:"id" binding:"required"`
	ImageBytes    []byte    `json:"imageBytes,omitempty"`
	ImageRef      string    `json:"imageRef,omitempty"`
	Supplier      string    `json:"supplier"`
	Amount        string    `json:"amount"`
	Date          string    `json:"date"`
	InvoiceNumber string    `json:"invoiceNumber"`
	Confidence    float64   `json:"confidence"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewUploadPayload builds the wire body for a queued record
func NewUploadPayload(rec *QueuedInvoiceRecord) UploadPayload {
	return UploadPayload{
		ID:            rec.ID,
		ImageBytes:    rec.Image,
		Supplier:      rec.Extraction.Supplier,
		Amount:        rec.Extraction.Amount,
		Date:          rec.Extraction.Date,
		InvoiceNumber: rec.Extraction.InvoiceNumber,
		Confidence:    rec.Extraction.Confidence,
		Timestamp:     rec.CreatedAt,
	}
}

// UploadResponse is returned by the invoices endpoint
type UploadResponse struct {
	ID        string `json:"id"`
	Duplicate bool   `json:"duplicate"`
}

// ReceivedInvoice is an invoice as persisted by the endpoint
type ReceivedInvoice struct {
	ID            string    `json:"id"`
	ImageRef      string    `json:"imageRef,omitempty"`
	ImageSize     int       `json:"imageSize"`
	Supplier      string    `json:"supplier"`
	Amount        string    `json:"amount"`
	Date          string    `json:"date"`
	InvoiceNumber string    `json:"invoiceNumber"`
	Confidence    float64   `json:"confidence"`
	CapturedAt    time.Time `json:"capturedAt"`
	ReceivedAt    time.Time `json:"receivedAt"`
}

// ErrorResponse is the JSON error envelope of the endpoint
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
