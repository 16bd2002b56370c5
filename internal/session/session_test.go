package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regportal/internal/apiclient"
	"regportal/internal/auth"
	"regportal/internal/domain"
	"regportal/internal/localstore"
	"regportal/internal/validate"
)

func newSession(t *testing.T) (*Session, *localstore.MemoryStore) {
	t.Helper()
	log, _ := test.NewNullLogger()
	store := localstore.NewMemoryStore()
	return New(store, log), store
}

var photoAdmin = domain.Admin{ID: "p1", Name: "Photo Desk", Email: "photo@x.edu", Role: domain.RolePhotoAdmin}

func TestEstablishAndLoad(t *testing.T) {
	ctx := context.Background()
	s, store := newSession(t)
	exp := time.Now().Add(time.Hour).Truncate(time.Millisecond)
	require.NoError(t, s.Establish(ctx, "tok", photoAdmin, exp))

	v, err := store.Get(ctx, localstore.KeyAdminTokenExpiry)
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(exp.UnixMilli(), 10), v)

	log, _ := test.NewNullLogger()
	again := New(store, log)
	require.NoError(t, again.Load(ctx))
	assert.Equal(t, "tok", again.Token())
	a, ok := again.Admin()
	require.True(t, ok)
	assert.Equal(t, "photo@x.edu", a.Email)
	assert.True(t, exp.Equal(again.ExpiresAt()))
}

func TestLoadClearsBadState(t *testing.T) {
	ctx := context.Background()

	s, store := newSession(t)
	require.NoError(t, store.Set(ctx, localstore.KeyAdminToken, "tok"))
	require.NoError(t, store.Set(ctx, localstore.KeyAdminData, "{oops"))
	require.NoError(t, s.Load(ctx))
	assert.Empty(t, s.Token())
	_, err := store.Get(ctx, localstore.KeyAdminToken)
	assert.ErrorIs(t, err, localstore.ErrNotFound)

	s, store = newSession(t)
	profile, _ := json.Marshal(photoAdmin)
	require.NoError(t, store.Set(ctx, localstore.KeyAdminToken, "tok"))
	require.NoError(t, store.Set(ctx, localstore.KeyAdminData, string(profile)))
	require.NoError(t, store.Set(ctx, localstore.KeyAdminTokenExpiry, strconv.FormatInt(time.Now().Add(-time.Minute).UnixMilli(), 10)))
	require.NoError(t, s.Load(ctx))
	_, ok := s.Admin()
	assert.False(t, ok)
	_, err = store.Get(ctx, localstore.KeyAdminData)
	assert.ErrorIs(t, err, localstore.ErrNotFound)
}

func TestUnauthorizedEndsOnce(t *testing.T) {
	ctx := context.Background()
	s, store := newSession(t)
	require.NoError(t, s.Establish(ctx, "tok", photoAdmin, time.Now().Add(time.Hour)))

	var redirects atomic.Int32
	var reason Reason
	s.OnInvalidate(func(r Reason) {
		redirects.Add(1)
		reason = r
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Unauthorized()
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, redirects.Load())
	assert.Equal(t, ReasonUnauthorized, reason)
	assert.Empty(t, s.Token())
	_, err := store.Get(ctx, localstore.KeyAdminToken)
	assert.ErrorIs(t, err, localstore.ErrNotFound)

	s.Logout()
	assert.EqualValues(t, 1, redirects.Load())
}

func TestWatchExpiry(t *testing.T) {
	s, _ := newSession(t)
	require.NoError(t, s.Establish(context.Background(), "tok", photoAdmin, time.Now().Add(30*time.Millisecond)))

	done := make(chan Reason, 1)
	s.OnInvalidate(func(r Reason) { done <- r })
	s.WatchExpiry()

	select {
	case r := <-done:
		assert.Equal(t, ReasonExpired, r)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not expire")
	}
}

func TestRequire(t *testing.T) {
	s, _ := newSession(t)
	_, err := s.Require()
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	require.NoError(t, s.Establish(context.Background(), "tok", photoAdmin, time.Now().Add(time.Hour)))
	_, err = s.Require(domain.RoleSuperAdmin)
	assert.ErrorIs(t, err, ErrForbidden)
	a, err := s.Require(domain.RolePhotoAdmin, domain.RoleSuperAdmin)
	require.NoError(t, err)
	assert.Equal(t, "p1", a.ID)
}

func TestLogin(t *testing.T) {
	dept := "Civil"
	tok, err := auth.Issue(auth.Identity{ID: "d1", Role: "department_admin"}, "", "k", 2*time.Hour)
	require.NoError(t, err)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var body domain.LoginForm
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body.RememberMe)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"token":   tok.Value,
			"admin":   domain.Admin{ID: "d1", Email: "hod@x.edu", Role: domain.RoleDepartmentAdmin, Department: &dept},
		})
	}))
	defer srv.Close()

	s, _ := newSession(t)
	api := apiclient.New(srv.URL, apiclient.WithAuth(s))

	_, err = Login(context.Background(), api, s, domain.LoginForm{Email: "hod@x.edu", Password: "123"})
	var verrs validate.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "password")
	assert.Zero(t, calls.Load())

	route, err := Login(context.Background(), api, s, domain.LoginForm{Email: "hod@x.edu", Password: "secret1", RememberMe: true})
	require.NoError(t, err)
	assert.Equal(t, "/admin/department/Civil", route)
	assert.Equal(t, tok.Value, s.Token())
	assert.WithinDuration(t, tok.ExpiresAt, s.ExpiresAt(), time.Second)
}

func TestExpiryFallback(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(DefaultTTL), expiryOf(apiclient.LoggedIn{Token: "opaque"}, now))
	assert.Equal(t, int64(1700000000000), expiryOf(apiclient.LoggedIn{Token: "opaque", ExpiresAt: 1700000000000}, now).UnixMilli())
}
