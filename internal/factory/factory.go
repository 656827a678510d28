package factory

import (
	"fmt"

	"go-invoice-capture/internal/config"
	"go-invoice-capture/internal/connectivity"
	"go-invoice-capture/internal/extraction"
	"go-invoice-capture/internal/extraction/tesseract"
	"go-invoice-capture/internal/frame"
	"go-invoice-capture/internal/queue"
	"go-invoice-capture/internal/repository"
	"go-invoice-capture/internal/storage"
	"go-invoice-capture/internal/syncer"
)

// ExtractorType represents the available extraction backends
type ExtractorType string

const (
	// SimulatedExtractor returns a fixed demo result
	SimulatedExtractor ExtractorType = config.ExtractorSimulated
	// HTTPExtractor calls a remote extraction service
	HTTPExtractor ExtractorType = config.ExtractorHTTP
	// TesseractExtractor runs OCR locally
	TesseractExtractor ExtractorType = config.ExtractorTesseract
)

// ComponentFactory builds the configured implementation of each collaborator
type ComponentFactory struct {
	cfg *config.Config
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{cfg: cfg}
}

// CreateExtractor creates the extractor selected by EXTRACTOR_DRIVER
func (f *ComponentFactory) CreateExtractor() (extraction.Extractor, error) {
	switch ExtractorType(f.cfg.ExtractorDriver) {
	case SimulatedExtractor:
		return extraction.NewSimulated(extraction.DefaultSimulatedDelay), nil
	case HTTPExtractor:
		return extraction.NewHTTPExtractor(f.cfg.ExtractorURL, f.cfg.ExtractionTimeout), nil
	case TesseractExtractor:
		return tesseract.New(f.cfg.OCRLanguage), nil
	default:
		return nil, fmt.Errorf("unsupported extractor type: %s", f.cfg.ExtractorDriver)
	}
}

// CreateCodec creates the frame codec used for submitted images
func (f *ComponentFactory) CreateCodec() frame.Codec {
	return frame.NewJPEGCodec(f.cfg.JPEGQuality)
}

// CreateQueueStore opens the offline queue
func (f *ComponentFactory) CreateQueueStore() (queue.Store, error) {
	return queue.Open(f.cfg.QueueDriver, f.cfg.QueuePath)
}

// CreateImageStore returns the blob store, or nil when offload is not configured
func (f *ComponentFactory) CreateImageStore() (storage.ImageStore, error) {
	if !f.cfg.AzureEnabled() {
		return nil, nil
	}
	return storage.NewAzureStorage(f.cfg.AzureStorageAccount, f.cfg.AzureStorageKey, f.cfg.AzureStorageContainer)
}

// CreateUploader creates the uploader for UPLOAD_ENDPOINT, offloading images
// when a blob store is given
func (f *ComponentFactory) CreateUploader(images storage.ImageStore) (*syncer.HTTPUploader, error) {
	u, err := syncer.NewHTTPUploader(f.cfg.UploadEndpoint, f.cfg.UploadTimeout, f.cfg.UploadAttempts)
	if err != nil {
		return nil, err
	}
	if images != nil {
		u = u.WithImageStore(images)
	}
	return u, nil
}

// CreateProber creates the connectivity prober
func (f *ComponentFactory) CreateProber() *connectivity.Prober {
	return connectivity.NewProber(f.cfg.ProbeURL(), f.cfg.ConnectivityProbeInterval)
}

// CreateRepository creates the endpoint's invoice repository: gorm when
// DATABASE_URL is set, memory otherwise. The returned func closes it.
func (f *ComponentFactory) CreateRepository() (repository.InvoiceRepository, func() error, error) {
	if f.cfg.DatabaseURL == "" {
		return repository.NewMemoryRepository(), func() error { return nil }, nil
	}
	db, err := repository.OpenDatabase(f.cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	repo, err := repository.NewGormRepository(db)
	if err != nil {
		return nil, nil, err
	}
	return repo, repo.Close, nil
}
