// Package store persists the release collection as a single JSON document.
//
// Every mutation is a full read-modify-write of the document that ends in an
// atomic rename, so readers only ever see a complete previous or next
// version of the file. Mutations on one Store are serialized; two processes
// writing the same file are not coordinated.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/giantswarm/microerror"
	"github.com/natefinch/atomic"

	"github.com/sir-timeline/timeline/internal/model"
	"github.com/sir-timeline/timeline/internal/version"
)

// Store owns the document at path.
type Store struct {
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// New returns a Store for the document at path. The file is created on the
// first mutation; a missing file reads as an empty collection.
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the document location.
func (s *Store) Path() string {
	return s.path
}

// ReadAll returns the full collection, or a storage error if the document
// cannot be read or does not match the schema.
func (s *Store) ReadAll() (*model.ReleaseCollection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, err := s.read()
	if err != nil {
		return nil, microerror.Mask(err)
	}
	return coll, nil
}

// Raw returns the encoded document exactly as it would be written.
func (s *Store) Raw() ([]byte, error) {
	coll, err := s.ReadAll()
	if err != nil {
		return nil, microerror.Mask(err)
	}
	data, err := encode(coll)
	if err != nil {
		return nil, microerror.Mask(err)
	}
	return data, nil
}

// Get returns the record stored under v.
func (s *Store) Get(v string) (*model.ReleaseRecord, bool, error) {
	coll, err := s.ReadAll()
	if err != nil {
		return nil, false, microerror.Mask(err)
	}
	if i := indexOf(coll.Data, v); i >= 0 {
		rec := coll.Data[i]
		return &rec, true, nil
	}
	return nil, false, nil
}

// Latest returns the highest version in the collection, or nil when empty.
func (s *Store) Latest() (*model.ReleaseRecord, error) {
	coll, err := s.ReadAll()
	if err != nil {
		return nil, microerror.Mask(err)
	}
	if len(coll.Data) == 0 {
		return nil, nil
	}
	latest := slices.MaxFunc(coll.Data, func(a, b model.ReleaseRecord) int {
		return version.Compare(a.Version, b.Version)
	})
	return &latest, nil
}

// Upsert replaces the record with an equal version ("1.0" matches "1.0.0")
// or appends it, then
// re-sorts and persists the collection. It reports whether a record was
// replaced.
func (s *Store) Upsert(rec model.ReleaseRecord) (bool, error) {
	if rec.Version == "" {
		return false, microerror.Maskf(storageError, "record without version")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.read()
	if err != nil {
		return false, microerror.Mask(err)
	}

	replaced := false
	if i := indexOf(coll.Data, rec.Version); i >= 0 {
		coll.Data[i] = rec
		replaced = true
	} else {
		coll.Data = append(coll.Data, rec)
	}

	if err := s.write(coll); err != nil {
		return false, microerror.Mask(err)
	}

	s.logger.Info("release stored", "version", rec.Version, "details", len(rec.Details), "replaced", replaced)
	return replaced, nil
}

// Remove deletes the record stored under v and reports whether one existed.
// Nothing is written when v is absent.
func (s *Store) Remove(v string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.read()
	if err != nil {
		return false, microerror.Mask(err)
	}

	i := indexOf(coll.Data, v)
	if i < 0 {
		return false, nil
	}
	coll.Data = slices.Delete(coll.Data, i, i+1)

	if err := s.write(coll); err != nil {
		return false, microerror.Mask(err)
	}

	s.logger.Info("release removed", "version", v)
	return true, nil
}

// Replace swaps the whole collection, e.g. when restoring from a mirror.
// The incoming collection is validated and sorted before it is written.
func (s *Store) Replace(coll *model.ReleaseCollection) error {
	if err := validate(coll); err != nil {
		return microerror.Mask(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(coll); err != nil {
		return microerror.Mask(err)
	}
	return nil
}

// Decode parses and validates an encoded collection.
func Decode(data []byte) (*model.ReleaseCollection, error) {
	var raw struct {
		Data *[]model.ReleaseRecord `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode document: %w", storageError, err)
	}
	if raw.Data == nil {
		return nil, microerror.Maskf(storageError, "document has no data array")
	}

	coll := &model.ReleaseCollection{Data: *raw.Data}
	if err := validate(coll); err != nil {
		return nil, microerror.Mask(err)
	}
	return coll, nil
}

func (s *Store) read() (*model.ReleaseCollection, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &model.ReleaseCollection{Data: []model.ReleaseRecord{}}, nil
	} else if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", storageError, s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, microerror.Maskf(storageError, "read %s: empty document", s.path)
	}

	coll, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return coll, nil
}

// write sorts coll, checks that the encoded form decodes back to a valid
// collection, and replaces the document through a synced temp file.
func (s *Store) write(coll *model.ReleaseCollection) error {
	slices.SortStableFunc(coll.Data, func(a, b model.ReleaseRecord) int {
		return version.Compare(a.Version, b.Version)
	})

	data, err := encode(coll)
	if err != nil {
		return err
	}
	if _, err := Decode(data); err != nil {
		return fmt.Errorf("round-trip check: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %w", storageError, dir, err)
	}

	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: write %s: %w", storageError, s.path, err)
	}
	// atomic.WriteFile only keeps the mode of a file it replaces.
	if err := os.Chmod(s.path, 0o644); err != nil {
		return fmt.Errorf("%w: chmod %s: %w", storageError, s.path, err)
	}
	return nil
}

func encode(coll *model.ReleaseCollection) ([]byte, error) {
	data, err := json.MarshalIndent(coll, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: encode document: %w", storageError, err)
	}
	return append(data, '\n'), nil
}

func validate(coll *model.ReleaseCollection) error {
	if coll == nil {
		return microerror.Maskf(storageError, "nil collection")
	}
	seen := make(map[string]string, len(coll.Data))
	for i, rec := range coll.Data {
		if rec.Version == "" {
			return microerror.Maskf(storageError, "data[%d]: missing version", i)
		}
		key := version.Canonical(rec.Version)
		if prev, ok := seen[key]; ok {
			return microerror.Maskf(storageError, "data[%d]: version %q duplicates %q", i, rec.Version, prev)
		}
		seen[key] = rec.Version
	}
	return nil
}

func indexOf(data []model.ReleaseRecord, v string) int {
	return slices.IndexFunc(data, func(r model.ReleaseRecord) bool {
		return version.Equal(r.Version, v)
	})
}
