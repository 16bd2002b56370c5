// Package superadmin is the account console: super admins list, add and
// remove admin accounts.
package superadmin

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"regportal/internal/apiclient"
	"regportal/internal/domain"
	"regportal/internal/notify"
	"regportal/internal/session"
	"regportal/internal/validate"
)

var (
	ErrSelfDelete      = errors.New("you cannot delete your own account")
	ErrNoDeletePending = errors.New("no deletion awaiting confirmation")
)

// Backend is the part of the API the console uses.
type Backend interface {
	Admins(ctx context.Context) ([]domain.Admin, error)
	AdminStats(ctx context.Context) (domain.AdminStats, error)
	CreateAdmin(ctx context.Context, a domain.NewAdmin) (domain.Admin, error)
	DeleteAdmin(ctx context.Context, id string) error
}

// Console owns the account management page.
type Console struct {
	api   Backend
	me    domain.Admin
	notes *notify.Center
	log   logrus.FieldLogger

	mu      sync.Mutex
	admins  []domain.Admin
	stats   domain.AdminStats
	pending *domain.Admin
}

// New opens the console for the signed-in admin, who must be a super admin.
func New(api Backend, sess *session.Session, notes *notify.Center, log logrus.FieldLogger) (*Console, error) {
	me, err := sess.Require(domain.RoleSuperAdmin)
	if err != nil {
		return nil, err
	}
	return &Console{api: api, me: me, notes: notes, log: log.WithField("admin", me.Email)}, nil
}

// Load fetches the accounts and their stats. Stats the backend cannot
// provide are counted from the list.
func (c *Console) Load(ctx context.Context) error {
	admins, err := c.api.Admins(ctx)
	if err != nil {
		c.log.WithError(err).Warn("loading admins")
		c.notes.Show(notify.Error, apiclient.Describe(err))
		return err
	}
	stats, err := c.api.AdminStats(ctx)
	if err != nil {
		c.log.WithError(err).Debug("admin stats unavailable, counting locally")
		stats = domain.CountRoles(admins)
	}
	c.mu.Lock()
	c.admins, c.stats = admins, stats
	c.mu.Unlock()
	return nil
}

// Admins returns the loaded accounts.
func (c *Console) Admins() []domain.Admin {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Admin(nil), c.admins...)
}

// Stats returns the per-role counts.
func (c *Console) Stats() domain.AdminStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Filter matches query against name, email, department and role.
func (c *Console) Filter(query string) []domain.Admin {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.Admin, 0, len(c.admins))
	for _, a := range c.admins {
		if q == "" ||
			strings.Contains(strings.ToLower(a.Name), q) ||
			strings.Contains(strings.ToLower(a.Email), q) ||
			strings.Contains(strings.ToLower(a.DepartmentName()), q) ||
			strings.Contains(strings.ToLower(string(a.Role)), q) ||
			strings.Contains(strings.ToLower(a.Role.Label()), q) {
			out = append(out, a)
		}
	}
	return out
}

// Add validates form and creates the account. Invalid forms come back as
// validate.Errors without any call being made.
func (c *Console) Add(ctx context.Context, form domain.AdminForm) (domain.Admin, error) {
	if errs := validate.AdminForm(form); len(errs) > 0 {
		return domain.Admin{}, errs
	}
	role, _ := domain.ParseAdminRole(form.Role)
	na := domain.NewAdmin{
		Name:        strings.TrimSpace(form.Name),
		Email:       strings.TrimSpace(form.Email),
		Password:    form.Password,
		Role:        role,
		Permissions: form.Permissions,
		CreatedBy:   c.me.Email,
	}
	if na.Permissions == nil {
		na.Permissions = []string{}
	}
	if role == domain.RoleDepartmentAdmin {
		dept := strings.TrimSpace(form.Department)
		na.Department = &dept
	}

	created, err := c.api.CreateAdmin(ctx, na)
	if err != nil {
		c.log.WithError(err).WithField("email", na.Email).Warn("creating admin")
		c.notes.Show(notify.Error, apiclient.Describe(err))
		return domain.Admin{}, err
	}
	c.log.WithField("email", na.Email).WithField("role", role).Info("admin created")
	c.notes.Show(notify.Success, "Admin created successfully")
	_ = c.Load(ctx)
	return created, nil
}

// RequestDelete arms the confirmation for deleting a. Deleting yourself is
// refused outright.
func (c *Console) RequestDelete(a domain.Admin) error {
	if strings.EqualFold(strings.TrimSpace(a.Email), strings.TrimSpace(c.me.Email)) {
		c.notes.Show(notify.Error, "You cannot delete your own account")
		return ErrSelfDelete
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = &a
	return nil
}

// Pending returns the account awaiting deletion, if any.
func (c *Console) Pending() (domain.Admin, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return domain.Admin{}, false
	}
	return *c.pending, true
}

// CancelDelete drops the pending deletion.
func (c *Console) CancelDelete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = nil
}

// ConfirmDelete deletes the pending account and reloads.
func (c *Console) ConfirmDelete(ctx context.Context) error {
	c.mu.Lock()
	target := c.pending
	c.pending = nil
	c.mu.Unlock()
	if target == nil {
		return ErrNoDeletePending
	}

	if err := c.api.DeleteAdmin(ctx, target.ID); err != nil {
		c.log.WithError(err).WithField("target", target.Email).Warn("deleting admin")
		c.notes.Show(notify.Error, apiclient.Describe(err))
		return err
	}
	c.log.WithField("target", target.Email).Info("admin deleted")
	c.notes.Show(notify.Success, "Admin deleted successfully")
	_ = c.Load(ctx)
	return nil
}
