// Package capture drives one document scan from camera to the offline queue.
//
// A Machine owns at most one session at a time. Camera acquisition and the
// extraction call run outside the machine's lock; a generation counter makes
// any completion that arrives after a Retake a no-op.
package capture

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"go-invoice-capture/internal/camera"
	"go-invoice-capture/internal/connectivity"
	"go-invoice-capture/internal/enhance"
	apperrors "go-invoice-capture/internal/errors"
	"go-invoice-capture/internal/extraction"
	"go-invoice-capture/internal/frame"
	"go-invoice-capture/internal/logger"
	"go-invoice-capture/internal/observer"
	"go-invoice-capture/internal/queue"
	"go-invoice-capture/pkg/models"
	"go-invoice-capture/pkg/validation"
)

// State is a phase of the capture lifecycle
type State string

const (
	StateIdle           State = "idle"
	StateCapturing      State = "capturing"
	StateEditing        State = "editing"
	StateSubmitting     State = "submitting"
	StateAwaitingReview State = "awaiting_review"
)

// Notification texts shown to the operator
const (
	MessageApprovedOnline  = "Invoice approved and uploading"
	MessageApprovedOffline = "Invoice saved for sync when online"
	MessageRejected        = "Invoice rejected"
)

// AppendListener is told after a record has been durably queued
type AppendListener interface {
	RecordAppended()
}

// Dependencies are the collaborators of a Machine. Camera, Extractor and
// Store are required.
type Dependencies struct {
	Camera       camera.Camera
	Extractor    extraction.Extractor
	Store        queue.Store
	Codec        frame.Codec
	Assessor     *enhance.Assessor
	Listener     AppendListener
	Connectivity connectivity.Source
	Events       observer.Subject
	Clock        func() time.Time
}

// Review is what the operator sees before approving or rejecting
type Review struct {
	Result      models.ExtractionResult `json:"result"`
	Level       models.ConfidenceLevel  `json:"level"`
	Quality     models.QualityReport    `json:"quality"`
	Image       []byte                  `json:"-"`
	ContentType string                  `json:"content_type"`
}

// Machine is the capture state machine
type Machine struct {
	deps Dependencies

	mu           sync.Mutex
	state        State
	gen          uint64
	stream       camera.Stream
	session      *session
	cancelSubmit context.CancelFunc
}

// New creates a machine in the Idle state
func New(deps Dependencies) (*Machine, error) {
	if deps.Camera == nil || deps.Extractor == nil || deps.Store == nil {
		return nil, apperrors.NewValidationError("capture requires a camera, an extractor and a store", nil)
	}
	if deps.Codec == nil {
		deps.Codec = frame.NewJPEGCodec(0)
	}
	if deps.Assessor == nil {
		deps.Assessor = enhance.NewAssessor(nil)
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Machine{deps: deps, state: StateIdle}, nil
}

// State returns the current phase
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) transition(to State) {
	if m.state == to {
		return
	}
	logger.WithFields(logrus.Fields{"from": m.state, "to": to}).Debug("Capture state changed")
	m.state = to
}

func invalidState(op string, s State) error {
	return apperrors.NewInvalidStateError(op+" is not allowed while "+string(s), nil)
}

// reset drops the session and any stream and returns to Idle. Callers hold mu.
func (m *Machine) reset() {
	if m.cancelSubmit != nil {
		m.cancelSubmit()
		m.cancelSubmit = nil
	}
	if m.stream != nil {
		m.stream.Release()
		m.stream = nil
	}
	m.session = nil
	m.gen++
	m.transition(StateIdle)
}

// Start acquires a camera stream. Only one capture may be in progress; a
// second Start is rejected rather than queued.
func (m *Machine) Start(ctx context.Context, facing models.FacingMode) error {
	if facing == "" {
		facing = models.FacingEnvironment
	}

	m.mu.Lock()
	if m.state != StateIdle {
		s := m.state
		m.mu.Unlock()
		return invalidState("start", s)
	}
	m.gen++
	gen := m.gen
	m.transition(StateCapturing)
	m.mu.Unlock()

	stream, err := m.deps.Camera.Acquire(ctx, facing, camera.IdealWidth, camera.IdealHeight)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen {
		if stream != nil {
			stream.Release()
		}
		return apperrors.NewCancelledError("capture was reset while the camera started", err)
	}
	if err != nil {
		m.transition(StateIdle)
		if ctx.Err() != nil {
			return apperrors.NewCancelledError("camera start cancelled", err)
		}
		logger.WithError(err).WithField("facing", facing).Warn("Camera acquisition failed")
		return apperrors.NewPermissionDeniedError("Unable to access camera. Please check permissions.", err)
	}

	m.stream = stream
	logger.WithField("facing", facing).Info("Camera started")
	return nil
}

// Capture freezes the current frame, releases the camera and opens an
// editing session
func (m *Machine) Capture() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateCapturing || m.stream == nil {
		return invalidState("capture", m.state)
	}

	f, err := m.stream.Frame()
	m.stream.Release()
	m.stream = nil

	if err == nil {
		err = f.Validate()
	}
	if err != nil {
		m.reset()
		if apperrors.IsType(err, apperrors.ErrorTypeMalformedFrame) {
			return err
		}
		return apperrors.NewMalformedFrameError("captured frame is unusable", err)
	}

	m.session = newSession(f)
	m.transition(StateEditing)
	logger.WithFields(logrus.Fields{"width": f.Width, "height": f.Height}).Info("Frame captured")
	return nil
}

// edit applies fn to a copy of the session and commits it only if the
// derived frame can be built
func (m *Machine) edit(op string, fn func(s *session) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateEditing || m.session == nil {
		return invalidState(op, m.state)
	}

	next := m.session.copy()
	if err := fn(next); err != nil {
		return err
	}
	if err := next.derive(); err != nil {
		logger.WithError(err).WithField("op", op).Warn("Edit rejected")
		return err
	}
	m.session = next
	return nil
}

// Rotate turns the document by deg degrees clockwise, accumulating
func (m *Machine) Rotate(deg float64) error {
	return m.edit("rotate", func(s *session) error {
		if err := validation.ValidateAngle(deg); err != nil {
			return err
		}
		s.rotation = enhance.NormalizeDegrees(s.rotation + deg)
		return nil
	})
}

// SetCrop enables cropping to area
func (m *Machine) SetCrop(area models.CropArea) error {
	return m.edit("crop", func(s *session) error {
		if err := validation.ValidateCropArea(area); err != nil {
			return err
		}
		s.setCrop(area)
		return nil
	})
}

// ClearCrop disables cropping; the last area is remembered for ToggleCrop
func (m *Machine) ClearCrop() error {
	return m.edit("clear crop", func(s *session) error {
		s.crop = nil
		return nil
	})
}

// ToggleCrop switches cropping off, or back on with the last area used.
// It reports whether cropping is now enabled.
func (m *Machine) ToggleCrop() (bool, error) {
	var enabled bool
	err := m.edit("toggle crop", func(s *session) error {
		if s.crop != nil {
			s.crop = nil
			enabled = false
			return nil
		}
		s.setCrop(s.lastCrop)
		enabled = true
		return nil
	})
	return enabled, err
}

// AutoCrop crops to the detected document bounds. It reports false and
// leaves the session unchanged when no confident bound is found.
func (m *Machine) AutoCrop() (bool, error) {
	found := false
	err := m.edit("auto crop", func(s *session) error {
		rotated, err := s.rotated()
		if err != nil {
			return err
		}
		area, err := enhance.DetectDocumentBounds(rotated)
		if err != nil {
			return err
		}
		if area == nil {
			return nil
		}
		s.setCrop(*area)
		found = true
		return nil
	})
	return found, err
}

// SetEnhancement replaces the color and sharpness settings
func (m *Machine) SetEnhancement(p models.EnhancementParams) error {
	return m.edit("enhance", func(s *session) error {
		if err := validation.ValidateEnhancement(p); err != nil {
			return err
		}
		s.params = p
		return nil
	})
}

// Retake abandons the current attempt from any state, cancelling an
// in-flight extraction
func (m *Machine) Retake() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateIdle {
		return
	}
	logger.WithField("state", m.state).Info("Capture retaken")
	m.reset()
}

// Submit sends the current frame to the extractor. On failure the session
// returns to Editing with its edits intact so the operator can retry.
func (m *Machine) Submit(ctx context.Context) (*Review, error) {
	m.mu.Lock()
	if m.state != StateEditing || m.session == nil {
		s := m.state
		m.mu.Unlock()
		return nil, invalidState("submit", s)
	}
	m.gen++
	gen := m.gen
	current := m.session.current
	subCtx, cancel := context.WithCancel(ctx)
	m.cancelSubmit = cancel
	m.transition(StateSubmitting)
	m.mu.Unlock()
	defer cancel()

	start := time.Now()
	review, err := m.review(subCtx, current)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen || m.state != StateSubmitting {
		logger.WithField("duration_ms", time.Since(start).Milliseconds()).Debug("Discarding stale extraction result")
		return nil, apperrors.NewCancelledError("submission was abandoned", err)
	}
	m.cancelSubmit = nil

	if err != nil {
		m.transition(StateEditing)
		switch {
		case ctx.Err() != nil:
			return nil, apperrors.NewCancelledError("submission cancelled", err)
		case apperrors.IsType(err, apperrors.ErrorTypeMalformedFrame):
			return nil, err
		}
		m.publish(ctx, observer.PipelineEvent{
			EventType:    observer.ExtractionFailed,
			Message:      "Extraction failed, please try again",
			ErrorMessage: err.Error(),
		})
		if apperrors.IsType(err, apperrors.ErrorTypeExtraction) {
			return nil, err
		}
		return nil, apperrors.NewExtractionError("extraction failed", err)
	}

	m.session.review = review
	m.transition(StateAwaitingReview)
	logger.WithFields(logrus.Fields{
		"confidence":  review.Result.Confidence,
		"level":       review.Level,
		"acceptable":  review.Quality.IsAcceptable(),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Extraction ready for review")
	return review.copy(), nil
}

func (m *Machine) review(ctx context.Context, current frame.Frame) (*Review, error) {
	data, err := m.deps.Codec.Encode(current)
	if err != nil {
		return nil, err
	}
	quality, err := m.deps.Assessor.Assess(current)
	if err != nil {
		return nil, err
	}

	result, err := m.deps.Extractor.Extract(ctx, data)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateExtraction(result); err != nil {
		return nil, apperrors.NewExtractionError("extractor returned an invalid result", err)
	}

	return &Review{
		Result:      result,
		Level:       result.ConfidenceLevel(),
		Quality:     quality,
		Image:       data,
		ContentType: m.deps.Codec.ContentType(),
	}, nil
}

// Approve queues the reviewed invoice and ends the session. If the store
// fails the machine stays in review so approval can be retried.
func (m *Machine) Approve(ctx context.Context) (*models.QueuedInvoiceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateAwaitingReview || m.session == nil || m.session.review == nil {
		return nil, invalidState("approve", m.state)
	}

	review := m.session.review
	rec := &models.QueuedInvoiceRecord{
		ID:          uuid.NewString(),
		Image:       review.Image,
		ContentType: review.ContentType,
		Extraction:  review.Result,
		CreatedAt:   m.deps.Clock().UTC(),
	}

	if err := m.deps.Store.Append(ctx, rec); err != nil {
		logger.WithError(err).WithField("record_id", rec.ID).Error("Failed to queue approved invoice")
		return nil, apperrors.NewStorageError("failed to save invoice", err)
	}

	online := m.deps.Connectivity != nil && m.deps.Connectivity.Online()
	message := MessageApprovedOffline
	if online {
		message = MessageApprovedOnline
	}
	m.publish(ctx, observer.PipelineEvent{
		EventType: observer.RecordSaved,
		RecordID:  rec.ID,
		Message:   message,
		Success:   true,
		Metadata:  map[string]interface{}{"online": online, "confidence": rec.Extraction.Confidence},
	})
	if m.deps.Listener != nil {
		m.deps.Listener.RecordAppended()
	}

	logger.WithFields(logrus.Fields{"record_id": rec.ID, "online": online}).Info("Invoice approved")
	m.reset()
	return rec.Clone(), nil
}

// Reject discards the reviewed invoice without queueing anything
func (m *Machine) Reject(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateAwaitingReview {
		return invalidState("reject", m.state)
	}
	m.publish(ctx, observer.PipelineEvent{
		EventType: observer.CaptureRejected,
		Message:   MessageRejected,
		Success:   true,
	})
	m.reset()
	return nil
}

func (m *Machine) publish(ctx context.Context, event observer.PipelineEvent) {
	if m.deps.Events == nil {
		return
	}
	event.Timestamp = m.deps.Clock()
	m.deps.Events.NotifyObservers(ctx, event)
}
