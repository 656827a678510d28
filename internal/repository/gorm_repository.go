package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"go-invoice-capture/pkg/models"
)

type invoiceRow struct {
	ID            string `gorm:"primaryKey;size:36"`
	ImageRef      string
	Image         []byte
	ImageSize     int
	Supplier      string
	Amount        string
	Date          string
	InvoiceNumber string `gorm:"index"`
	Confidence    float64
	CapturedAt    time.Time
	ReceivedAt    time.Time `gorm:"index"`
}

func (invoiceRow) TableName() string {
	return "received_invoices"
}

func rowFromInvoice(inv *models.ReceivedInvoice, image []byte) invoiceRow {
	return invoiceRow{
		ID:            inv.ID,
		ImageRef:      inv.ImageRef,
		Image:         image,
		ImageSize:     inv.ImageSize,
		Supplier:      inv.Supplier,
		Amount:        inv.Amount,
		Date:          inv.Date,
		InvoiceNumber: inv.InvoiceNumber,
		Confidence:    inv.Confidence,
		CapturedAt:    inv.CapturedAt.UTC(),
		ReceivedAt:    inv.ReceivedAt.UTC(),
	}
}

func (r invoiceRow) invoice() *models.ReceivedInvoice {
	return &models.ReceivedInvoice{
		ID:            r.ID,
		ImageRef:      r.ImageRef,
		ImageSize:     r.ImageSize,
		Supplier:      r.Supplier,
		Amount:        r.Amount,
		Date:          r.Date,
		InvoiceNumber: r.InvoiceNumber,
		Confidence:    r.Confidence,
		CapturedAt:    r.CapturedAt.UTC(),
		ReceivedAt:    r.ReceivedAt.UTC(),
	}
}

// OpenDatabase connects to DATABASE_URL. Postgres URLs and key=value DSNs
// use the postgres driver; "sqlite:<path>" opens a local database.
func OpenDatabase(dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"), strings.Contains(dsn, "host="):
		dialector = postgres.Open(dsn)
	case strings.HasPrefix(dsn, "sqlite:"):
		dialector = sqlite.Open(strings.TrimPrefix(dsn, "sqlite:"))
	default:
		return nil, fmt.Errorf("unsupported database URL %q", dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}
	return db, nil
}

// GormRepository stores invoices in a SQL database through gorm
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository migrates the schema and returns the repository
func NewGormRepository(db *gorm.DB) (*GormRepository, error) {
	if err := db.AutoMigrate(&invoiceRow{}); err != nil {
		return nil, fmt.Errorf("migrate invoices: %w", err)
	}
	return &GormRepository{db: db}, nil
}

// Save implements InvoiceRepository. A conflicting id is left untouched.
func (r *GormRepository) Save(ctx context.Context, invoice *models.ReceivedInvoice, image []byte) (bool, error) {
	row := rowFromInvoice(invoice, image)
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Get implements InvoiceRepository
func (r *GormRepository) Get(ctx context.Context, id string) (*models.ReceivedInvoice, error) {
	var row invoiceRow
	err := r.db.WithContext(ctx).Omit("image").First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.invoice(), nil
}

// List implements InvoiceRepository
func (r *GormRepository) List(ctx context.Context, limit int) ([]*models.ReceivedInvoice, error) {
	var rows []invoiceRow
	q := r.db.WithContext(ctx).Omit("image").Order("received_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]*models.ReceivedInvoice, len(rows))
	for i, row := range rows {
		out[i] = row.invoice()
	}
	return out, nil
}

// Image implements InvoiceRepository
func (r *GormRepository) Image(ctx context.Context, id string) ([]byte, error) {
	var row invoiceRow
	err := r.db.WithContext(ctx).Select("id", "image").First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.Image, nil
}

// Close releases the underlying connection pool
func (r *GormRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
