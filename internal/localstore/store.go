// Package localstore keeps the handful of records a portal device persists
// between runs: the student's registration snapshot and the admin session.
package localstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"regportal/internal/domain"
)

// Keys used by the portal.
const (
	KeyStudentRegistration = "studentRegistration"
	KeyAdminToken          = "adminToken"
	KeyAdminData           = "adminData"
	KeyAdminTokenExpiry    = "adminTokenExpiry"
)

// ErrNotFound is returned when a key holds no value.
var ErrNotFound = errors.New("key not found")

// Store is a small string key/value store.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// MemoryStore keeps values in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

// LoadSnapshot reads the cached registration. A record that no longer
// parses is removed and reported as absent.
func LoadSnapshot(ctx context.Context, s Store, log logrus.FieldLogger) (*domain.Snapshot, error) {
	raw, err := s.Get(ctx, KeyStudentRegistration)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read registration snapshot")
	}
	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil || snap.StudentID == "" {
		log.WithError(err).Warn("discarding unreadable registration snapshot")
		if derr := s.Delete(ctx, KeyStudentRegistration); derr != nil {
			return nil, errors.Wrap(derr, "clear registration snapshot")
		}
		return nil, nil
	}
	return &snap, nil
}

// SaveSnapshot overwrites the cached registration.
func SaveSnapshot(ctx context.Context, s Store, snap domain.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "encode registration snapshot")
	}
	return errors.Wrap(s.Set(ctx, KeyStudentRegistration, string(b)), "write registration snapshot")
}

// ClearSnapshot removes the cached registration.
func ClearSnapshot(ctx context.Context, s Store) error {
	return errors.Wrap(s.Delete(ctx, KeyStudentRegistration), "clear registration snapshot")
}
