package superadmin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regportal/internal/apiclient"
	"regportal/internal/domain"
	"regportal/internal/localstore"
	"regportal/internal/notify"
	"regportal/internal/session"
	"regportal/internal/validate"
)

type fakeBackend struct {
	admins   []domain.Admin
	statsErr error
	created  []domain.NewAdmin
	deleted  []string
	calls    int
}

func (f *fakeBackend) Admins(context.Context) ([]domain.Admin, error) {
	f.calls++
	return append([]domain.Admin(nil), f.admins...), nil
}

func (f *fakeBackend) AdminStats(context.Context) (domain.AdminStats, error) {
	f.calls++
	if f.statsErr != nil {
		return domain.AdminStats{}, f.statsErr
	}
	return domain.AdminStats{TotalAdmins: 99}, nil
}

func (f *fakeBackend) CreateAdmin(_ context.Context, a domain.NewAdmin) (domain.Admin, error) {
	f.calls++
	f.created = append(f.created, a)
	admin := domain.Admin{ID: "new", Name: a.Name, Email: a.Email, Role: a.Role, Department: a.Department}
	f.admins = append(f.admins, admin)
	return admin, nil
}

func (f *fakeBackend) DeleteAdmin(_ context.Context, id string) error {
	f.calls++
	f.deleted = append(f.deleted, id)
	return nil
}

func strp(s string) *string { return &s }

var root = domain.Admin{ID: "a1", Name: "Root", Email: "Root@College.edu", Role: domain.RoleSuperAdmin}

func signedIn(t *testing.T, a domain.Admin) *session.Session {
	t.Helper()
	log, _ := test.NewNullLogger()
	s := session.New(localstore.NewMemoryStore(), log)
	require.NoError(t, s.Establish(context.Background(), "tok", a, time.Now().Add(time.Hour)))
	return s
}

func newConsole(t *testing.T, api *fakeBackend) (*Console, *notify.Center) {
	t.Helper()
	log, _ := test.NewNullLogger()
	notes := notify.NewCenter(nil)
	c, err := New(api, signedIn(t, root), notes, log)
	require.NoError(t, err)
	require.NoError(t, c.Load(context.Background()))
	return c, notes
}

func seeded() *fakeBackend {
	return &fakeBackend{admins: []domain.Admin{
		root,
		{ID: "a2", Name: "Civil Desk", Email: "civil@college.edu", Role: domain.RoleDepartmentAdmin, Department: strp("Civil")},
		{ID: "a3", Name: "Camera", Email: "photo@college.edu", Role: domain.RolePhotoAdmin},
	}}
}

func TestNewRequiresSuperAdmin(t *testing.T) {
	log, _ := test.NewNullLogger()
	photo := domain.Admin{Email: "p@x.edu", Role: domain.RolePhotoAdmin}
	_, err := New(seeded(), signedIn(t, photo), notify.NewCenter(nil), log)
	assert.ErrorIs(t, err, session.ErrForbidden)

	_, err = New(seeded(), session.New(localstore.NewMemoryStore(), log), notify.NewCenter(nil), log)
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestLoadAndFilter(t *testing.T) {
	c, _ := newConsole(t, seeded())
	assert.Len(t, c.Admins(), 3)
	assert.Equal(t, 99, c.Stats().TotalAdmins)

	assert.Len(t, c.Filter("civil"), 1)
	assert.Len(t, c.Filter("PHOTO_ADMIN"), 1)
	assert.Len(t, c.Filter("super admin"), 1)
	assert.Len(t, c.Filter("college.edu"), 3)
	assert.Len(t, c.Filter(""), 3)
}

func TestStatsFallBackToCounting(t *testing.T) {
	api := seeded()
	api.statsErr = &apiclient.Error{Kind: apiclient.KindNotFound, Status: 404}
	c, _ := newConsole(t, api)
	assert.Equal(t, domain.AdminStats{TotalAdmins: 3, SuperAdmins: 1, DepartmentAdmins: 1, PhotoAdmins: 1}, c.Stats())
}

func TestAddValidatesBeforeCalling(t *testing.T) {
	api := seeded()
	c, _ := newConsole(t, api)
	before := api.calls

	_, err := c.Add(context.Background(), domain.AdminForm{
		Name: "Dept", Email: "d@college.edu", Password: "longenough", ConfirmPassword: "different",
		Role: string(domain.RoleDepartmentAdmin),
	})
	var fields validate.Errors
	require.True(t, errors.As(err, &fields))
	assert.Equal(t, "Passwords do not match", fields["confirmPassword"])
	assert.Equal(t, "Department is required for department admins", fields["department"])
	assert.Equal(t, before, api.calls)
}

func TestAddSetsCreatorAndDepartment(t *testing.T) {
	api := seeded()
	c, notes := newConsole(t, api)
	ctx := context.Background()

	_, err := c.Add(ctx, domain.AdminForm{
		Name: "Photo Two", Email: "p2@college.edu", Password: "password1", ConfirmPassword: "password1",
		Role: string(domain.RolePhotoAdmin), Department: "Civil",
	})
	require.NoError(t, err)
	require.Len(t, api.created, 1)
	assert.Equal(t, "Root@College.edu", api.created[0].CreatedBy)
	assert.Nil(t, api.created[0].Department, "only department admins carry a department")

	_, err = c.Add(ctx, domain.AdminForm{
		Name: "CS Desk", Email: "cs@college.edu", Password: "password1", ConfirmPassword: "password1",
		Role: string(domain.RoleDepartmentAdmin), Department: "Computer Science",
	})
	require.NoError(t, err)
	require.NotNil(t, api.created[1].Department)
	assert.Equal(t, "Computer Science", *api.created[1].Department)
	assert.Len(t, c.Admins(), 5)

	n, _ := notes.Current()
	assert.Equal(t, notify.Success, n.Kind)
}

func TestDeleteFlow(t *testing.T) {
	api := seeded()
	c, _ := newConsole(t, api)
	ctx := context.Background()
	before := api.calls

	self := root
	self.Email = "  root@college.EDU "
	assert.ErrorIs(t, c.RequestDelete(self), ErrSelfDelete)
	assert.Equal(t, before, api.calls)
	_, ok := c.Pending()
	assert.False(t, ok)

	assert.ErrorIs(t, c.ConfirmDelete(ctx), ErrNoDeletePending)

	require.NoError(t, c.RequestDelete(api.admins[2]))
	c.CancelDelete()
	assert.ErrorIs(t, c.ConfirmDelete(ctx), ErrNoDeletePending)

	require.NoError(t, c.RequestDelete(api.admins[2]))
	p, ok := c.Pending()
	require.True(t, ok)
	assert.Equal(t, "a3", p.ID)
	require.NoError(t, c.ConfirmDelete(ctx))
	assert.Equal(t, []string{"a3"}, api.deleted)
	_, ok = c.Pending()
	assert.False(t, ok)
}
