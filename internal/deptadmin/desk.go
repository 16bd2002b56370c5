// Package deptadmin is the department desk where an admin checks each
// student's physical documents and records the result.
package deptadmin

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"regportal/internal/apiclient"
	"regportal/internal/domain"
	"regportal/internal/notify"
)

// DefaultVerifier is recorded when the signed-in admin has no name.
const DefaultVerifier = "Department Admin"

var (
	ErrUnknownDepartment = errors.New("unknown department")
	ErrNoStudentOpen     = errors.New("no student open")
	ErrUnknownDocument   = errors.New("unknown document type")
	ErrNothingSelected   = errors.New("no students selected")
)

// Backend is the part of the API the desk uses.
type Backend interface {
	PendingVerification(ctx context.Context, department string) ([]domain.Student, error)
	Documents(ctx context.Context, studentID string) (domain.DocumentMap, error)
	SaveDocuments(ctx context.Context, studentID string, docs domain.DocumentMap, departmentAdmin string) error
	UpdateStatus(ctx context.Context, studentID string, status domain.StudentStatus) error
	BulkVerify(ctx context.Context, studentIDs []string, verifiedBy string) (int, error)
}

// DepartmentFromRoute turns a route segment such as "Computer-Science" or
// "computer%20science" back into a catalog department name.
func DepartmentFromRoute(param string) (string, error) {
	raw, err := url.PathUnescape(param)
	if err != nil {
		raw = param
	}
	raw = strings.ReplaceAll(raw, "-", " ")
	name, ok := domain.ResolveDepartment(raw)
	if !ok {
		return "", errors.Wrap(ErrUnknownDepartment, raw)
	}
	return name, nil
}

// Stats summarises the department list.
type Stats struct {
	Total          int `json:"totalStudents"`
	FullyVerified  int `json:"fullyVerified"`
	Pending        int `json:"pendingVerification"`
	CompletionRate int `json:"completionRate"`
}

// ComputeStats counts students whose documents are all verified.
func ComputeStats(students []domain.Student) Stats {
	s := Stats{Total: len(students)}
	for _, st := range students {
		if st.Status == domain.StatusDocumentsVerified {
			s.FullyVerified++
		}
	}
	s.Pending = s.Total - s.FullyVerified
	if s.Total > 0 {
		s.CompletionRate = int(math.Round(float64(s.FullyVerified) * 100 / float64(s.Total)))
	}
	return s
}

// Progress returns the server's verification progress for a student, or
// false when the server sent none.
func Progress(s domain.Student) (domain.Progress, bool) {
	if s.DocumentsProgress == nil {
		return domain.Progress{}, false
	}
	return *s.DocumentsProgress, true
}

// Desk owns one department's verification page.
type Desk struct {
	api        Backend
	department string
	verifier   string
	notes      *notify.Center
	log        logrus.FieldLogger
	now        func() time.Time

	mu       sync.Mutex
	students []domain.Student
	stats    Stats
	open     *domain.Student
	docs     domain.DocumentMap
	selected map[string]struct{}
}

// New builds the desk for department. verifier is the signed-in admin's name.
func New(api Backend, department, verifier string, notes *notify.Center, log logrus.FieldLogger) *Desk {
	if strings.TrimSpace(verifier) == "" {
		verifier = DefaultVerifier
	}
	return &Desk{
		api:        api,
		department: department,
		verifier:   verifier,
		notes:      notes,
		log:        log.WithField("department", department),
		now:        time.Now,
		selected:   map[string]struct{}{},
	}
}

// Department is the desk's department.
func (d *Desk) Department() string { return d.department }

// Load fetches the students awaiting verification. On failure the previous
// list is kept.
func (d *Desk) Load(ctx context.Context) error {
	students, err := d.api.PendingVerification(ctx, d.department)
	if err != nil {
		d.log.WithError(err).Warn("loading students for verification")
		d.notes.Show(notify.Error, apiclient.Describe(err))
		return err
	}
	d.mu.Lock()
	d.students = students
	d.stats = ComputeStats(students)
	for id := range d.selected {
		if !containsStudent(students, id) {
			delete(d.selected, id)
		}
	}
	d.mu.Unlock()
	return nil
}

func containsStudent(students []domain.Student, id string) bool {
	for _, s := range students {
		if s.StudentID == id {
			return true
		}
	}
	return false
}

// Students returns the loaded list.
func (d *Desk) Students() []domain.Student {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.Student(nil), d.students...)
}

// Stats returns the figures for the loaded list.
func (d *Desk) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Filter returns students whose name, id or email contains query.
func (d *Desk) Filter(query string) []domain.Student {
	d.mu.Lock()
	defer d.mu.Unlock()
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.Student, 0, len(d.students))
	for _, s := range d.students {
		if q == "" ||
			strings.Contains(strings.ToLower(s.Name), q) ||
			strings.Contains(strings.ToLower(s.StudentID), q) ||
			strings.Contains(strings.ToLower(s.Email), q) {
			out = append(out, s)
		}
	}
	return out
}

// Open loads a student's checklist. A missing or failing checklist opens
// with every document unverified.
func (d *Desk) Open(ctx context.Context, student domain.Student) domain.DocumentMap {
	docs, err := d.api.Documents(ctx, student.StudentID)
	if err != nil {
		d.log.WithError(err).WithField("student_id", student.StudentID).Info("no saved checklist, starting fresh")
		docs = domain.NewDocumentMap()
	} else {
		docs = docs.WithDefaults()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = &student
	d.docs = docs
	return docs.Clone()
}

// Close drops the open checklist without saving.
func (d *Desk) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = nil
	d.docs = nil
}

// Checklist returns a copy of the open checklist.
func (d *Desk) Checklist() (domain.Student, domain.DocumentMap, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open == nil {
		return domain.Student{}, nil, ErrNoStudentOpen
	}
	return *d.open, d.docs.Clone(), nil
}

// Toggle marks a document. Becoming verified stamps the time and verifier;
// a document that is already verified keeps its stamp. Unverifying clears it.
func (d *Desk) Toggle(docID string, verified bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open == nil {
		return ErrNoStudentOpen
	}
	if _, ok := domain.LookupDocumentType(docID); !ok {
		return errors.Wrap(ErrUnknownDocument, docID)
	}
	c := d.docs[docID]
	switch {
	case verified && !c.Verified:
		at := d.now().UTC()
		by := d.verifier
		c.Verified, c.VerifiedAt, c.VerifiedBy = true, &at, &by
	case !verified:
		c.Verified, c.VerifiedAt, c.VerifiedBy = false, nil, nil
	}
	d.docs[docID] = c
	return nil
}

// SetNotes records a note on a document.
func (d *Desk) SetNotes(docID, notes string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open == nil {
		return ErrNoStudentOpen
	}
	if _, ok := domain.LookupDocumentType(docID); !ok {
		return errors.Wrap(ErrUnknownDocument, docID)
	}
	c := d.docs[docID]
	c.Notes = notes
	d.docs[docID] = c
	return nil
}

// Save stores the open checklist. When every required document is verified
// the student moves to documents_verified. It reports whether that happened.
func (d *Desk) Save(ctx context.Context) (bool, error) {
	d.mu.Lock()
	if d.open == nil {
		d.mu.Unlock()
		return false, ErrNoStudentOpen
	}
	student, docs := *d.open, d.docs.Clone()
	d.mu.Unlock()

	log := d.log.WithField("student_id", student.StudentID)
	if err := d.api.SaveDocuments(ctx, student.StudentID, docs, d.verifier); err != nil {
		log.WithError(err).Warn("saving checklist")
		d.notes.Show(notify.Error, orMessage(err, "Failed to save verification"))
		return false, err
	}

	complete := docs.Complete()
	if complete {
		if err := d.api.UpdateStatus(ctx, student.StudentID, domain.StatusDocumentsVerified); err != nil {
			log.WithError(err).Error("checklist saved but status update failed")
			d.notes.Show(notify.Error, "Documents saved but the status could not be updated. Save again to retry.")
			return false, errors.Wrap(err, "update status after save")
		}
		d.notes.Show(notify.Success, "All documents verified! Student registration completed.")
	} else {
		d.notes.Show(notify.Success, "Document verification saved successfully!")
	}
	log.WithField("verified", docs.VerifiedCount()).Info("checklist saved")

	d.mu.Lock()
	d.open, d.docs = nil, nil
	d.mu.Unlock()
	_ = d.Load(ctx)
	return complete, nil
}

// Select adds a student to the bulk selection.
func (d *Desk) Select(studentID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if containsStudent(d.students, studentID) {
		d.selected[studentID] = struct{}{}
	}
}

// Deselect removes a student from the bulk selection.
func (d *Desk) Deselect(studentID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.selected, studentID)
}

// Selected returns the bulk selection in id order.
func (d *Desk) Selected() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selectedLocked()
}

func (d *Desk) selectedLocked() []string {
	ids := make([]string, 0, len(d.selected))
	for id := range d.selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BulkVerify verifies every document of every selected student.
func (d *Desk) BulkVerify(ctx context.Context) (int, error) {
	d.mu.Lock()
	ids := d.selectedLocked()
	d.mu.Unlock()
	if len(ids) == 0 {
		return 0, ErrNothingSelected
	}

	n, err := d.api.BulkVerify(ctx, ids, d.verifier)
	if err != nil {
		d.log.WithError(err).WithField("count", len(ids)).Warn("bulk verification failed")
		d.notes.Show(notify.Error, "Bulk verification failed")
		return 0, err
	}
	d.notes.Show(notify.Success, fmt.Sprintf("%d students verified successfully!", n))

	d.mu.Lock()
	d.selected = map[string]struct{}{}
	d.mu.Unlock()
	_ = d.Load(ctx)
	return n, nil
}

func orMessage(err error, def string) string {
	if msg := apiclient.MessageOf(err); msg != "" {
		return msg
	}
	return def
}
