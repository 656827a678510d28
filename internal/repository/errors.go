package repository

import "errors"

var (
	// ErrInvoiceNotFound indicates no invoice was received under the id
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrRepositoryUnavailable indicates the repository is unavailable
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
