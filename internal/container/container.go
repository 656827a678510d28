package container

import (
	"fmt"
	"io"
	"net/http"

	"go-invoice-capture/internal/camera"
	"go-invoice-capture/internal/capture"
	"go-invoice-capture/internal/config"
	"go-invoice-capture/internal/connectivity"
	"go-invoice-capture/internal/enhance"
	"go-invoice-capture/internal/extraction"
	"go-invoice-capture/internal/factory"
	"go-invoice-capture/internal/logger"
	"go-invoice-capture/internal/observer"
	"go-invoice-capture/internal/queue"
	"go-invoice-capture/internal/repository"
	"go-invoice-capture/internal/service"
	"go-invoice-capture/internal/syncer"
	"go-invoice-capture/internal/transport"

	"github.com/sirupsen/logrus"
)

// Container holds the upload endpoint's dependencies
type Container struct {
	config     *config.Config
	repository repository.InvoiceRepository
	service    service.InvoiceService
	handler    http.Handler
	closeRepo  func() error
}

// NewContainer creates the endpoint container
func NewContainer(cfg *config.Config) (*Container, error) {
	f := factory.NewComponentFactory(cfg)

	repo, closeRepo, err := f.CreateRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	images, err := f.CreateImageStore()
	if err != nil {
		closeRepo()
		return nil, fmt.Errorf("failed to create image store: %w", err)
	}

	svc := service.NewInvoiceService(repo, images)
	handler := transport.NewHandler(svc, cfg)

	return &Container{
		config:     cfg,
		repository: repo,
		service:    svc,
		handler:    handler,
		closeRepo:  closeRepo,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Close releases the repository
func (c *Container) Close() error {
	return c.closeRepo()
}

// ClientContainer holds the capture client's dependencies
type ClientContainer struct {
	Config      *config.Config
	Store       queue.Store
	Extractor   extraction.Extractor
	Uploader    syncer.Uploader
	Prober      *connectivity.Prober
	Events      *observer.EventPublisher
	Metrics     *observer.MetricsObserver
	Coordinator *syncer.Coordinator

	factory *factory.ComponentFactory
}

// NewClientContainer wires the offline queue, the prober, the sync coordinator
// and the observers. Operator notifications are printed to out when non-nil.
func NewClientContainer(cfg *config.Config, out io.Writer) (*ClientContainer, error) {
	f := factory.NewComponentFactory(cfg)

	store, err := f.CreateQueueStore()
	if err != nil {
		return nil, fmt.Errorf("failed to open queue: %w", err)
	}

	extractor, err := f.CreateExtractor()
	if err != nil {
		store.Close()
		return nil, err
	}

	images, err := f.CreateImageStore()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create image store: %w", err)
	}
	uploader, err := f.CreateUploader(images)
	if err != nil {
		store.Close()
		return nil, err
	}

	prober := f.CreateProber()

	events := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)
	if out != nil {
		events.Subscribe(observer.NewConsoleObserver(out))
	}

	coord := syncer.NewCoordinator(store, uploader, prober, events, syncer.Options{
		Concurrency:      cfg.SyncConcurrency,
		FallbackInterval: cfg.SyncFallbackInterval,
	})

	logger.WithFields(logrus.Fields{
		"queue_driver": cfg.QueueDriver,
		"queue_path":   cfg.QueuePath,
		"extractor":    cfg.ExtractorDriver,
		"endpoint":     cfg.UploadEndpoint,
		"offload":      images != nil,
	}).Debug("Client container ready")

	return &ClientContainer{
		Config:      cfg,
		Store:       store,
		Extractor:   extractor,
		Uploader:    uploader,
		Prober:      prober,
		Events:      events,
		Metrics:     metrics,
		Coordinator: coord,
		factory:     f,
	}, nil
}

// NewMachine creates a capture machine reading frames from cam
func (c *ClientContainer) NewMachine(cam camera.Camera) (*capture.Machine, error) {
	return capture.New(capture.Dependencies{
		Camera:       cam,
		Extractor:    c.Extractor,
		Store:        c.Store,
		Codec:        c.factory.CreateCodec(),
		Assessor:     enhance.NewAssessor(nil),
		Listener:     c.Coordinator,
		Connectivity: c.Prober,
		Events:       c.Events,
	})
}

// Close flushes pending notifications and closes the queue
func (c *ClientContainer) Close() error {
	c.Events.Flush()
	return c.Store.Close()
}
