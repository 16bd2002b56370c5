// Package backend is a reference implementation of the registration REST
// API the portal talks to. It backs local development and the end-to-end
// tests of the portal packages.
package backend

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"regportal/internal/domain"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// StudentRecord is a stored student with its verification checklist.
type StudentRecord struct {
	domain.Student
	RegisteredAt time.Time
	Documents    domain.DocumentMap
}

// View is the student as the API returns it, progress included.
func (r StudentRecord) View() domain.Student {
	s := r.Student
	s.RegistrationDate = r.RegisteredAt.UTC().Format(time.RFC3339)
	p := r.Documents.WithDefaults().Progress()
	s.DocumentsProgress = &p
	return s
}

// AdminRecord is a stored admin with its password hash.
type AdminRecord struct {
	domain.Admin
	PasswordHash string
}

// Store persists students and admins.
type Store interface {
	CreateStudent(ctx context.Context, r StudentRecord) error
	GetStudent(ctx context.Context, id string) (StudentRecord, error)
	ListStudents(ctx context.Context) ([]StudentRecord, error)
	SetStatus(ctx context.Context, id string, status domain.StudentStatus) error
	SetPhoto(ctx context.Context, id, applicationNumber, photoURL string) error
	SaveDocuments(ctx context.Context, id string, docs domain.DocumentMap) error

	CreateAdmin(ctx context.Context, a AdminRecord) error
	AdminByEmail(ctx context.Context, email string) (AdminRecord, error)
	ListAdmins(ctx context.Context) ([]domain.Admin, error)
	DeleteAdmin(ctx context.Context, id string) error
}

// NewStudentID returns an id such as "STU1A2B3C4D".
func NewStudentID() string {
	return "STU" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// NewApplicationNumber returns the number assigned when a photo is taken,
// such as "APP2025-9F8E7D6C".
func NewApplicationNumber(now time.Time) string {
	return "APP" + now.Format("2006") + "-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizePhone drops whitespace so "98765 43210" and "9876543210" collide.
func normalizePhone(phone string) string {
	return strings.Join(strings.Fields(phone), "")
}
