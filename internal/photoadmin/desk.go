// Package photoadmin is the photo desk: it lists students still waiting for
// a photo, captures or picks one, and uploads it.
package photoadmin

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"regportal/internal/apiclient"
	"regportal/internal/domain"
	"regportal/internal/notify"
)

var (
	ErrNoStudent      = errors.New("select a student first")
	ErrUnknownStudent = errors.New("student is not waiting for a photo")
	ErrNoPhoto        = errors.New("no photo to upload")
)

// Backend is the part of the API the desk uses.
type Backend interface {
	ListStudents(ctx context.Context) ([]domain.Student, error)
	UploadPhoto(ctx context.Context, studentID string, photo domain.Photo) (apiclient.Uploaded, error)
	UpdateStatus(ctx context.Context, studentID string, status domain.StudentStatus) error
}

// DeskState is what the desk renders.
type DeskState struct {
	Capture  State
	Selected *domain.Student
	Photo    *domain.Photo
	Students []domain.Student
}

// Desk owns the photo desk.
type Desk struct {
	api    Backend
	camera Camera
	notes  *notify.Center
	log    logrus.FieldLogger

	mu       sync.Mutex
	fsm      Machine
	stream   Stream
	photo    *domain.Photo
	selected *domain.Student
	students []domain.Student
}

// NewDesk builds a desk. camera may be nil when only file picks are used.
func NewDesk(api Backend, camera Camera, notes *notify.Center, log logrus.FieldLogger) *Desk {
	return &Desk{api: api, camera: camera, notes: notes, log: log}
}

// Load fetches the students who still need a photo. On failure the previous
// list is kept.
func (d *Desk) Load(ctx context.Context) error {
	all, err := d.api.ListStudents(ctx)
	if err != nil {
		d.notes.Show(notify.Error, apiclient.Describe(err))
		return err
	}
	pending := make([]domain.Student, 0, len(all))
	for _, s := range all {
		if s.NeedsPhoto() {
			pending = append(pending, s)
		}
	}
	d.mu.Lock()
	d.students = pending
	d.mu.Unlock()
	d.log.WithField("pending", len(pending)).Debug("photo desk loaded")
	return nil
}

// Filter returns the loaded students whose name, id, email or department
// contains query, ignoring case.
func (d *Desk) Filter(query string) []domain.Student {
	d.mu.Lock()
	defer d.mu.Unlock()
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.Student, 0, len(d.students))
	for _, s := range d.students {
		if q == "" ||
			strings.Contains(strings.ToLower(s.Name), q) ||
			strings.Contains(strings.ToLower(s.StudentID), q) ||
			strings.Contains(strings.ToLower(s.Email), q) ||
			strings.Contains(strings.ToLower(s.Department), q) {
			out = append(out, s)
		}
	}
	return out
}

// Select picks the student to photograph and resets any capture in
// progress.
func (d *Desk) Select(studentID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fsm.State() == Uploading {
		return errors.Wrap(ErrIllegalTransition, "upload in progress")
	}
	for i := range d.students {
		if d.students[i].StudentID == studentID {
			s := d.students[i]
			d.resetLocked()
			d.selected = &s
			return nil
		}
	}
	return errors.Wrap(ErrUnknownStudent, studentID)
}

// StartCamera opens the camera for the selected student.
func (d *Desk) StartCamera(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.selected == nil {
		return ErrNoStudent
	}
	if d.camera == nil {
		return errors.New("no camera available")
	}
	if !d.fsm.Can(StartCamera) {
		return errors.Wrapf(ErrIllegalTransition, "%s in %s", StartCamera, d.fsm.State())
	}
	stream, err := d.camera.Open(ctx, DefaultConstraints)
	if err != nil {
		d.notes.Show(notify.Error, "Unable to access camera. Please check permissions.")
		return errors.Wrap(err, "open camera")
	}
	_ = d.fsm.Fire(StartCamera)
	d.photo = nil
	d.stream = stream
	return nil
}

// Capture grabs the current frame as a JPEG and stops the camera.
func (d *Desk) Capture() (domain.Photo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.fsm.Can(Capture) {
		return domain.Photo{}, errors.Wrapf(ErrIllegalTransition, "%s in %s", Capture, d.fsm.State())
	}
	frame, err := d.stream.Frame()
	if err != nil {
		return domain.Photo{}, errors.Wrap(err, "read frame")
	}
	photo, err := EncodeFrame(frame, d.selected.StudentID)
	if err != nil {
		return domain.Photo{}, err
	}
	_ = d.fsm.Fire(Capture)
	d.closeStreamLocked()
	d.photo = &photo
	return photo, nil
}

// PickFile uses an image file instead of the camera.
func (d *Desk) PickFile(data []byte) (domain.Photo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.selected == nil {
		return domain.Photo{}, ErrNoStudent
	}
	if !d.fsm.Can(PickFile) {
		return domain.Photo{}, errors.Wrapf(ErrIllegalTransition, "%s in %s", PickFile, d.fsm.State())
	}
	photo, err := PhotoFromFile(data, d.selected.StudentID)
	if err != nil {
		d.notes.Show(notify.Error, "Please select an image file")
		return domain.Photo{}, err
	}
	_ = d.fsm.Fire(PickFile)
	d.closeStreamLocked()
	d.photo = &photo
	return photo, nil
}

// Discard drops the preview or stops the camera.
func (d *Desk) Discard() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fsm.Fire(Discard); err != nil {
		return err
	}
	d.closeStreamLocked()
	d.photo = nil
	return nil
}

// Upload sends the previewed photo, marks the student photo_taken and
// reloads the list. A failed upload keeps the photo for a retry.
func (d *Desk) Upload(ctx context.Context) (apiclient.Uploaded, error) {
	d.mu.Lock()
	if d.photo == nil || d.selected == nil {
		d.mu.Unlock()
		return apiclient.Uploaded{}, ErrNoPhoto
	}
	if err := d.fsm.Fire(Upload); err != nil {
		d.mu.Unlock()
		return apiclient.Uploaded{}, err
	}
	student, photo := *d.selected, *d.photo
	d.mu.Unlock()

	log := d.log.WithField("student_id", student.StudentID)
	res, err := d.api.UploadPhoto(ctx, student.StudentID, photo)
	if err != nil {
		d.mu.Lock()
		_ = d.fsm.Fire(UploadFailed)
		d.mu.Unlock()
		log.WithError(err).Warn("photo upload failed")
		d.notes.Show(notify.Error, apiclient.Describe(err))
		return apiclient.Uploaded{}, err
	}

	d.mu.Lock()
	_ = d.fsm.Fire(UploadOK)
	d.photo = nil
	d.selected = nil
	d.mu.Unlock()
	log.WithField("application_number", res.ApplicationNumber).Info("photo uploaded")

	if err := d.api.UpdateStatus(ctx, student.StudentID, domain.StatusPhotoTaken); err != nil {
		log.WithError(err).Error("photo stored but status update failed")
		d.notes.Show(notify.Error, "Photo uploaded but the status could not be updated. Use Mark Complete to retry.")
		return res, errors.Wrap(err, "update status after upload")
	}
	d.notes.Show(notify.Success, "Photo uploaded for "+student.Name)
	_ = d.Load(ctx)
	return res, nil
}

// MarkComplete sets a student to photo_taken without an upload.
func (d *Desk) MarkComplete(ctx context.Context, studentID string) error {
	if err := d.api.UpdateStatus(ctx, studentID, domain.StatusPhotoTaken); err != nil {
		d.notes.Show(notify.Error, apiclient.Describe(err))
		return err
	}
	d.notes.Show(notify.Success, "Student marked as photo taken")
	return d.Load(ctx)
}

// State returns a copy of what the desk shows.
func (d *Desk) State() DeskState {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := DeskState{Capture: d.fsm.State(), Students: append([]domain.Student(nil), d.students...)}
	if d.selected != nil {
		s := *d.selected
		st.Selected = &s
	}
	if d.photo != nil {
		p := *d.photo
		st.Photo = &p
	}
	return st
}

// Close releases the camera.
func (d *Desk) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
	return nil
}

func (d *Desk) resetLocked() {
	d.closeStreamLocked()
	d.photo = nil
	_ = d.fsm.Fire(Reset)
}

func (d *Desk) closeStreamLocked() {
	if d.stream == nil {
		return
	}
	if err := d.stream.Close(); err != nil {
		d.log.WithError(err).Debug("closing camera stream")
	}
	d.stream = nil
}
