// Package registration drives the student self-registration page: the form,
// the status card that replaces it once registered, and the manual status
// refresh.
package registration

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"regportal/internal/apiclient"
	"regportal/internal/domain"
	"regportal/internal/localstore"
	"regportal/internal/validate"
)

// Mode is which half of the page is showing.
type Mode int

const (
	ModeForm Mode = iota
	ModeStatus
)

var (
	ErrValidation     = errors.New("registration form is invalid")
	ErrBusy           = errors.New("a request is already in progress")
	ErrNotRegistered  = errors.New("no registration on this device")
	ErrNoClearPending = errors.New("clear was not requested")
)

// FormError carries the per-field messages of a rejected form.
type FormError struct {
	Fields validate.Errors
}

func (e *FormError) Error() string { return ErrValidation.Error() + ": " + e.Fields.Error() }

func (e *FormError) Is(target error) bool { return target == ErrValidation }

// Backend is the part of the API the page uses.
type Backend interface {
	Register(ctx context.Context, form domain.RegistrationForm) (apiclient.Registered, error)
	Status(ctx context.Context, studentID string) (domain.Student, error)
}

// State is what the page renders.
type State struct {
	Mode            Mode
	Snapshot        *domain.Snapshot
	Message         string
	FieldErrors     validate.Errors
	Busy            bool
	ConfirmingClear bool
}

// View owns the registration page state.
type View struct {
	api   Backend
	store localstore.Store
	log   logrus.FieldLogger
	now   func() time.Time

	mu    sync.Mutex
	state State
}

// New builds the page controller.
func New(api Backend, store localstore.Store, log logrus.FieldLogger) *View {
	return &View{api: api, store: store, log: log, now: time.Now}
}

// Start restores a registration saved on this device.
func (v *View) Start(ctx context.Context) error {
	snap, err := localstore.LoadSnapshot(ctx, v.store, v.log)
	if err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if snap == nil {
		v.state = State{Mode: ModeForm}
		return nil
	}
	v.state = State{Mode: ModeStatus, Snapshot: snap, Message: "Welcome back, " + snap.Name + "!"}
	return nil
}

// State returns a copy of the page state.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	st := v.state
	if st.Snapshot != nil {
		snap := *st.Snapshot
		st.Snapshot = &snap
	}
	return st
}

func (v *View) begin(msg string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state.Busy {
		return ErrBusy
	}
	v.state.Busy = true
	v.state.FieldErrors = nil
	v.state.Message = msg
	return nil
}

func (v *View) finish(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.Busy = false
	v.state.Message = msg
}

// Submit validates and sends the form. An invalid form never reaches the
// network and returns a *FormError.
func (v *View) Submit(ctx context.Context, form domain.RegistrationForm) (domain.Snapshot, error) {
	if errs := validate.Registration(form, v.now()); len(errs) > 0 {
		v.mu.Lock()
		v.state.FieldErrors = errs
		v.state.Message = "Please correct the highlighted fields."
		v.mu.Unlock()
		return domain.Snapshot{}, &FormError{Fields: errs}
	}
	if err := v.begin("Processing registration..."); err != nil {
		return domain.Snapshot{}, err
	}

	reg, err := v.api.Register(ctx, form.Trimmed())
	if err != nil {
		v.log.WithError(err).Warn("registration failed")
		v.finish(Message(err))
		return domain.Snapshot{}, err
	}

	snap := domain.Snapshot{
		Name:             reg.Name,
		StudentID:        reg.StudentID,
		Department:       reg.Department,
		Status:           domain.StatusPending,
		HasPhoto:         false,
		RegistrationDate: v.now().UTC().Format(time.RFC3339Nano),
	}
	if err := localstore.SaveSnapshot(ctx, v.store, snap); err != nil {
		v.log.WithError(err).Error("saving registration snapshot")
	}

	v.mu.Lock()
	v.state = State{Mode: ModeStatus, Snapshot: &snap, Message: "Registration successful!"}
	v.mu.Unlock()
	v.log.WithField("student_id", snap.StudentID).Info("student registered")
	return snap, nil
}

// CheckStatus refreshes the saved registration from the backend and
// overwrites every cached field.
func (v *View) CheckStatus(ctx context.Context) (domain.Snapshot, error) {
	v.mu.Lock()
	if v.state.Snapshot == nil {
		v.mu.Unlock()
		return domain.Snapshot{}, ErrNotRegistered
	}
	id := v.state.Snapshot.StudentID
	v.mu.Unlock()

	if err := v.begin("Checking for updates..."); err != nil {
		return domain.Snapshot{}, err
	}
	student, err := v.api.Status(ctx, id)
	if err != nil {
		v.log.WithError(err).WithField("student_id", id).Warn("status check failed")
		v.finish(Message(err))
		return domain.Snapshot{}, err
	}

	snap := domain.SnapshotFromStudent(student)
	if snap.StudentID == "" {
		snap.StudentID = id
	}
	if err := localstore.SaveSnapshot(ctx, v.store, snap); err != nil {
		v.log.WithError(err).Error("saving registration snapshot")
	}

	v.mu.Lock()
	v.state.Snapshot = &snap
	v.state.Busy = false
	v.state.Message = "Status updated!"
	v.mu.Unlock()
	return snap, nil
}

// RequestClear asks for confirmation before forgetting the registration.
func (v *View) RequestClear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state.Snapshot != nil {
		v.state.ConfirmingClear = true
	}
}

// CancelClear keeps the registration.
func (v *View) CancelClear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.ConfirmingClear = false
}

// ConfirmClear forgets the registration and shows the form again.
func (v *View) ConfirmClear(ctx context.Context) error {
	v.mu.Lock()
	if !v.state.ConfirmingClear {
		v.mu.Unlock()
		return ErrNoClearPending
	}
	v.mu.Unlock()

	if err := localstore.ClearSnapshot(ctx, v.store); err != nil {
		return err
	}
	v.mu.Lock()
	v.state = State{Mode: ModeForm, Message: "Registration data cleared"}
	v.mu.Unlock()
	return nil
}

// Message is the sentence shown for a failed submit or status check.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "Please correct the highlighted fields."
	case errors.Is(err, apiclient.ErrConflict):
		if msg := apiclient.MessageOf(err); msg != "" {
			return msg
		}
		return "A student with this email or phone number is already registered."
	case errors.Is(err, apiclient.ErrNotFound):
		return "No registration found for this Student ID."
	case errors.Is(err, apiclient.ErrRejected):
		if msg := apiclient.MessageOf(err); msg != "" {
			return msg
		}
		return "Registration failed. Please try again."
	}
	return apiclient.Describe(err)
}
