package capture

import (
	"go-invoice-capture/internal/enhance"
	"go-invoice-capture/internal/frame"
	"go-invoice-capture/pkg/models"
)

// session is the in-progress state of one scan. Frames are never mutated,
// so copies share pixel buffers.
type session struct {
	source   frame.Frame
	current  frame.Frame
	rotation float64
	crop     *models.CropArea
	lastCrop models.CropArea
	params   models.EnhancementParams
	review   *Review
}

func newSession(f frame.Frame) *session {
	return &session{
		source:   f,
		current:  f,
		lastCrop: models.FullFrame,
		params:   models.NeutralEnhancement(),
	}
}

func (s *session) copy() *session {
	c := *s
	if s.crop != nil {
		area := *s.crop
		c.crop = &area
	}
	return &c
}

func (s *session) setCrop(area models.CropArea) {
	s.crop = &area
	s.lastCrop = area
}

func (s *session) rotated() (frame.Frame, error) {
	if s.rotation == 0 {
		return s.source, nil
	}
	return enhance.Rotate(s.source, s.rotation)
}

// derive rebuilds the current frame: rotate, then crop, then enhance
func (s *session) derive() error {
	f, err := s.rotated()
	if err != nil {
		return err
	}
	if s.crop != nil {
		if f, err = enhance.Crop(f, *s.crop); err != nil {
			return err
		}
	}
	if !s.params.IsNeutral() {
		if f, err = enhance.Enhance(f, s.params); err != nil {
			return err
		}
	}
	s.current = f
	return nil
}

func (r *Review) copy() *Review {
	c := *r
	c.Image = append([]byte(nil), r.Image...)
	c.Quality.Issues = append([]models.QualityIssue(nil), r.Quality.Issues...)
	return &c
}

// Snapshot is a read-only view of the machine for display
type Snapshot struct {
	State       State                    `json:"state"`
	Rotation    float64                  `json:"rotation"`
	Crop        *models.CropArea         `json:"crop,omitempty"`
	Enhancement models.EnhancementParams `json:"enhancement"`
	Width       int                      `json:"width,omitempty"`
	Height      int                      `json:"height,omitempty"`
	Review      *Review                  `json:"review,omitempty"`
}

// Snapshot copies the session state
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{State: m.state}
	s := m.session
	if s == nil {
		return snap
	}
	snap.Rotation = s.rotation
	if s.crop != nil {
		area := *s.crop
		snap.Crop = &area
	}
	snap.Enhancement = s.params
	snap.Width = s.current.Width
	snap.Height = s.current.Height
	if s.review != nil {
		snap.Review = s.review.copy()
	}
	return snap
}

// CurrentFrame returns a copy of the derived frame being edited
func (m *Machine) CurrentFrame() (frame.Frame, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return frame.Frame{}, false
	}
	return m.session.current.Clone(), true
}
