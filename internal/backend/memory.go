package backend

import (
	"context"
	"sort"
	"sync"

	"regportal/internal/domain"
)

// MemoryStore keeps everything in maps guarded by an RWMutex.
type MemoryStore struct {
	mu       sync.RWMutex
	students map[string]StudentRecord
	admins   map[string]AdminRecord
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		students: make(map[string]StudentRecord),
		admins:   make(map[string]AdminRecord),
	}
}

func (m *MemoryStore) CreateStudent(_ context.Context, r StudentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[r.StudentID]; ok {
		return ErrDuplicate
	}
	email, phone := normalizeEmail(r.Email), normalizePhone(r.Phone)
	for _, s := range m.students {
		if normalizeEmail(s.Email) == email {
			return ErrDuplicate
		}
		if phone != "" && normalizePhone(s.Phone) == phone {
			return ErrDuplicate
		}
	}
	r.Documents = r.Documents.Clone()
	m.students[r.StudentID] = r
	return nil
}

func (m *MemoryStore) GetStudent(_ context.Context, id string) (StudentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.students[id]
	if !ok {
		return StudentRecord{}, ErrNotFound
	}
	r.Documents = r.Documents.Clone()
	return r, nil
}

// ListStudents returns every student, oldest registration first.
func (m *MemoryStore) ListStudents(_ context.Context) ([]StudentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]StudentRecord, 0, len(m.students))
	for _, r := range m.students {
		r.Documents = r.Documents.Clone()
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].StudentID < out[j].StudentID
		}
		return out[i].RegisteredAt.Before(out[j].RegisteredAt)
	})
	return out, nil
}

func (m *MemoryStore) update(id string, fn func(*StudentRecord)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.students[id]
	if !ok {
		return ErrNotFound
	}
	fn(&r)
	m.students[id] = r
	return nil
}

func (m *MemoryStore) SetStatus(_ context.Context, id string, status domain.StudentStatus) error {
	return m.update(id, func(r *StudentRecord) { r.Status = status })
}

func (m *MemoryStore) SetPhoto(_ context.Context, id, applicationNumber, photoURL string) error {
	return m.update(id, func(r *StudentRecord) {
		if r.ApplicationNumber == nil {
			r.ApplicationNumber = &applicationNumber
		}
		r.HasPhoto = true
		r.PhotoURL = photoURL
	})
}

func (m *MemoryStore) SaveDocuments(_ context.Context, id string, docs domain.DocumentMap) error {
	return m.update(id, func(r *StudentRecord) { r.Documents = docs.Clone() })
}

func (m *MemoryStore) CreateAdmin(_ context.Context, a AdminRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := normalizeEmail(a.Email)
	for _, existing := range m.admins {
		if normalizeEmail(existing.Email) == email {
			return ErrDuplicate
		}
	}
	m.admins[a.ID] = a
	return nil
}

func (m *MemoryStore) AdminByEmail(_ context.Context, email string) (AdminRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	email = normalizeEmail(email)
	for _, a := range m.admins {
		if normalizeEmail(a.Email) == email {
			return a, nil
		}
	}
	return AdminRecord{}, ErrNotFound
}

// ListAdmins returns every admin ordered by email.
func (m *MemoryStore) ListAdmins(_ context.Context) ([]domain.Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Admin, 0, len(m.admins))
	for _, a := range m.admins {
		out = append(out, a.Admin)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *MemoryStore) DeleteAdmin(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.admins[id]; !ok {
		return ErrNotFound
	}
	delete(m.admins, id)
	return nil
}
