package queue

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	apperrors "go-invoice-capture/internal/errors"
	"go-invoice-capture/pkg/models"
	"go-invoice-capture/pkg/validation"
)

type fileDocument struct {
	Records []*models.QueuedInvoiceRecord `json:"records"`
}

// FileStore keeps the whole queue in one JSON document that is rewritten
// atomically on every mutation. Suited to small queues on devices without
// SQLite.
type FileStore struct {
	path string

	mu      sync.RWMutex
	records []*models.QueuedInvoiceRecord
	index   map[string]int
}

// NewFileStore loads the queue document at path, creating it if missing
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, index: make(map[string]int)}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, apperrors.NewStorageError("failed to create queue directory", err)
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := s.persist(); err != nil {
			return nil, err
		}
		return s, nil
	case err != nil:
		return nil, apperrors.NewStorageError("failed to read queue file", err)
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.NewStorageError("queue file is corrupt", err)
	}
	s.records = doc.Records
	s.reindex()
	return s, nil
}

func (s *FileStore) reindex() {
	s.index = make(map[string]int, len(s.records))
	for i, r := range s.records {
		s.index[r.ID] = i
	}
}

// persist writes the document to a temp file and renames it into place
func (s *FileStore) persist() error {
	data, err := json.Marshal(fileDocument{Records: s.records})
	if err != nil {
		return apperrors.NewStorageError("failed to encode queue", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".queue-*.tmp")
	if err != nil {
		return apperrors.NewStorageError("failed to write queue", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apperrors.NewStorageError("failed to write queue", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return apperrors.NewStorageError("failed to sync queue", err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewStorageError("failed to write queue", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return apperrors.NewStorageError("failed to replace queue", err)
	}
	return nil
}

// mutate applies fn and persists; on failure the in-memory state is restored
func (s *FileStore) mutate(fn func() bool) error {
	prev := append([]*models.QueuedInvoiceRecord(nil), s.records...)
	prevSynced := make([]bool, len(prev))
	for i, r := range prev {
		prevSynced[i] = r.Synced
	}

	if changed := fn(); !changed {
		return nil
	}
	if err := s.persist(); err != nil {
		for i, r := range prev {
			r.Synced = prevSynced[i]
		}
		s.records = prev
		s.reindex()
		return err
	}
	return nil
}

func (s *FileStore) Append(ctx context.Context, rec *models.QueuedInvoiceRecord) error {
	if err := validation.ValidateRecord(rec); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[rec.ID]; ok {
		return duplicateError(rec.ID)
	}
	return s.mutate(func() bool {
		c := rec.Clone()
		c.Synced = false
		s.records = append(s.records, c)
		s.index[c.ID] = len(s.records) - 1
		return true
	})
}

func (s *FileStore) MarkSynced(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mutate(func() bool {
		i, ok := s.index[id]
		if !ok || s.records[i].Synced {
			return false
		}
		s.records[i].Synced = true
		return true
	})
}

func (s *FileStore) ListUnsynced(ctx context.Context) ([]*models.QueuedInvoiceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.QueuedInvoiceRecord
	for _, r := range s.records {
		if !r.Synced {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*models.QueuedInvoiceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return nil, notFoundError(id)
	}
	return s.records[i].Clone(), nil
}

func (s *FileStore) PurgeSynced(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	err := s.mutate(func() bool {
		kept := make([]*models.QueuedInvoiceRecord, 0, len(s.records))
		for _, r := range s.records {
			if r.Synced {
				removed++
				continue
			}
			kept = append(kept, r)
		}
		if removed == 0 {
			return false
		}
		s.records = kept
		s.reindex()
		return true
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *FileStore) Discard(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return notFoundError(id)
	}
	return s.mutate(func() bool {
		s.records = append(s.records[:i:i], s.records[i+1:]...)
		s.reindex()
		return true
	})
}

func (s *FileStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Total: len(s.records)}
	for _, r := range s.records {
		if !r.Synced {
			st.Unsynced++
		}
	}
	st.Synced = st.Total - st.Unsynced
	return st, nil
}

// Close is a no-op; every mutation is already on disk
func (s *FileStore) Close() error {
	return nil
}
