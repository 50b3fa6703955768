// Package store holds the object store backends: in-memory, Redis and
// PostgreSQL. Each keeps objects in the repository envelope encoding so a
// caller never shares memory with the store.
package store

import (
	"context"
	"fmt"
	"sync"

	"dor/internal/repository"
	"dor/pkg/platform/sentinel"
)

type memoryEntry struct {
	data     []byte
	revision int64
	sourceID string
}

type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryEntry
	sources map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]memoryEntry),
		sources: make(map[string]string),
	}
}

func (s *MemoryStore) Find(_ context.Context, id string) (repository.Object, error) {
	s.mu.RLock()
	entry, ok := s.objects[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("object %s: %w", id, sentinel.ErrNotFound)
	}
	return repository.Decode(entry.data)
}

func (s *MemoryStore) Save(_ context.Context, obj repository.Object) error {
	st, err := stage(obj)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.objects[st.id]
	if current.revision != st.prev {
		st.rollback()
		return revisionConflict(st.id, st.prev, current.revision)
	}
	if owner, taken := s.sources[st.sourceID]; st.sourceID != "" && taken && owner != st.id {
		st.rollback()
		return &repository.DuplicateSourceIDError{SourceID: st.sourceID, ExistingID: owner}
	}
	if current.sourceID != "" && current.sourceID != st.sourceID {
		delete(s.sources, current.sourceID)
	}
	if st.sourceID != "" {
		s.sources[st.sourceID] = st.id
	}
	s.objects[st.id] = memoryEntry{data: st.data, revision: st.prev + 1, sourceID: st.sourceID}
	return nil
}

// staged is an object encoded at its next revision, ready to be written.
type staged struct {
	obj      repository.Object
	id       string
	sourceID string
	prev     int64
	data     []byte
}

// stage bumps obj's revision and encodes it. Callers rollback when the write
// does not land.
func stage(obj repository.Object) (staged, error) {
	if obj == nil {
		return staged{}, fmt.Errorf("save object: nil object")
	}
	core := obj.Core()
	if core.ID == "" {
		return staged{}, fmt.Errorf("save object: identifier is required")
	}
	st := staged{obj: obj, id: core.ID, sourceID: core.SourceID, prev: core.Revision}
	core.Revision = st.prev + 1
	data, err := repository.Encode(obj)
	if err != nil {
		st.rollback()
		return staged{}, err
	}
	st.data = data
	return st, nil
}

func (st staged) rollback() {
	st.obj.Core().Revision = st.prev
}

func revisionConflict(id string, based, stored int64) error {
	if based == 0 {
		return fmt.Errorf("object %s already exists: %w", id, sentinel.ErrConflict)
	}
	return fmt.Errorf("object %s changed since it was read (revision %d, stored %d): %w", id, based, stored, sentinel.ErrConflict)
}
