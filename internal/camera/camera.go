// Package camera defines the device camera collaborator and the file backed
// implementation used by the CLI.
package camera

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	apperrors "go-invoice-capture/internal/errors"
	"go-invoice-capture/internal/frame"
	"go-invoice-capture/pkg/models"
)

// Ideal capture resolution requested from the device
const (
	IdealWidth  = 1920
	IdealHeight = 1080
)

// ErrPermissionDenied is returned when the operator or the OS refuses camera access
var ErrPermissionDenied = errors.New("camera permission denied")

// ErrReleased is returned by a stream used after Release
var ErrReleased = errors.New("camera stream released")

// Camera acquires a live stream from a device
type Camera interface {
	Acquire(ctx context.Context, facing models.FacingMode, idealWidth, idealHeight int) (Stream, error)
}

// Stream is a live video stream. Release stops it and may be called more than once.
type Stream interface {
	Frame() (frame.Frame, error)
	Release()
}

// FileCamera serves a still image from disk as if it were a live stream
type FileCamera struct {
	Path string
	// Clock stamps captured frames; defaults to time.Now
	Clock func() time.Time
}

// NewFileCamera creates a camera over an image file
func NewFileCamera(path string) *FileCamera {
	return &FileCamera{Path: path, Clock: time.Now}
}

// Acquire opens the file; OS permission errors become ErrPermissionDenied
func (c *FileCamera) Acquire(ctx context.Context, facing models.FacingMode, _, _ int) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !facing.Valid() {
		return nil, apperrors.NewValidationError("unknown facing mode "+string(facing), nil)
	}
	f, err := os.Open(c.Path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, ErrPermissionDenied
		}
		return nil, err
	}
	f.Close()

	return &fileStream{camera: c, facing: facing}, nil
}

type fileStream struct {
	camera *FileCamera
	facing models.FacingMode

	mu       sync.Mutex
	released bool
}

func (s *fileStream) Frame() (frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return frame.Frame{}, ErrReleased
	}
	f, err := frame.Load(s.camera.Path)
	if err != nil {
		return frame.Frame{}, err
	}
	clock := s.camera.Clock
	if clock == nil {
		clock = time.Now
	}
	f.CapturedAt = clock()
	f.Facing = s.facing
	return f, nil
}

func (s *fileStream) Release() {
	s.mu.Lock()
	s.released = true
	s.mu.Unlock()
}

// StaticCamera serves a fixed in-memory frame. Err, when set, is returned by
// Acquire instead of a stream.
type StaticCamera struct {
	Frame frame.Frame
	Err   error
	// Delay simulates the time the device takes to start
	Delay time.Duration

	mu      sync.Mutex
	streams []*StaticStream
}

// Acquire returns a stream over the configured frame
func (c *StaticCamera) Acquire(ctx context.Context, facing models.FacingMode, _, _ int) (Stream, error) {
	if c.Delay > 0 {
		select {
		case <-time.After(c.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.Err != nil {
		return nil, c.Err
	}
	s := &StaticStream{frame: c.Frame, facing: facing}
	c.mu.Lock()
	c.streams = append(c.streams, s)
	c.mu.Unlock()
	return s, nil
}

// OpenStreams counts streams handed out and not yet released
func (c *StaticCamera) OpenStreams() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.streams {
		if !s.Released() {
			n++
		}
	}
	return n
}

// StaticStream is the stream handed out by StaticCamera
type StaticStream struct {
	frame  frame.Frame
	facing models.FacingMode

	mu       sync.Mutex
	released bool
}

// Frame returns a copy of the configured frame
func (s *StaticStream) Frame() (frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return frame.Frame{}, ErrReleased
	}
	f := s.frame.Clone()
	if f.CapturedAt.IsZero() {
		f.CapturedAt = time.Now()
	}
	f.Facing = s.facing
	return f, nil
}

// Release stops the stream
func (s *StaticStream) Release() {
	s.mu.Lock()
	s.released = true
	s.mu.Unlock()
}

// Released reports whether Release was called
func (s *StaticStream) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}
