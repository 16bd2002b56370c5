package localstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regportal/internal/domain"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	log, _ := test.NewNullLogger()
	fs, err := NewFileStore(t.TempDir(), "default", log)
	require.NoError(t, err)

	_, err = fs.Get(ctx, KeyAdminToken)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, fs.Set(ctx, KeyAdminToken, "tok"))
	require.NoError(t, fs.Set(ctx, KeyAdminTokenExpiry, "1700000000000"))

	reopened, err := NewFileStore(t.TempDir(), "x", log)
	require.NoError(t, err)
	reopened.path = fs.Path()
	v, err := reopened.Get(ctx, KeyAdminToken)
	require.NoError(t, err)
	assert.Equal(t, "tok", v)

	require.NoError(t, fs.Delete(ctx, KeyAdminToken, KeyAdminTokenExpiry))
	_, err = fs.Get(ctx, KeyAdminTokenExpiry)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreRejectsPathProfiles(t *testing.T) {
	log, _ := test.NewNullLogger()
	dir := t.TempDir()
	for _, name := range []string{"", ".", "..", "../x", "a/b", `a\b`, "/etc/passwd"} {
		_, err := NewFileStore(dir, name, log)
		assert.ErrorIs(t, err, ErrBadProfile, name)
	}

	fs, err := NewFileStore(dir, "kiosk-2", log)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(fs.Path()))
}

func TestFileStoreCorruptFileStartsEmpty(t *testing.T) {
	ctx := context.Background()
	log, hook := test.NewNullLogger()
	fs, err := NewFileStore(t.TempDir(), "default", log)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(fs.Path(), []byte("{not json"), 0o600))

	_, err = fs.Get(ctx, KeyAdminToken)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	require.NoError(t, fs.Set(ctx, KeyAdminToken, "fresh"))
	v, err := fs.Get(ctx, KeyAdminToken)
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
}

func TestSnapshotLifecycle(t *testing.T) {
	ctx := context.Background()
	log, _ := test.NewNullLogger()
	s := NewMemoryStore()

	snap, err := LoadSnapshot(ctx, s, log)
	require.NoError(t, err)
	assert.Nil(t, snap)

	want := domain.Snapshot{Name: "A", StudentID: "S1", Department: "Computer Science", Status: domain.StatusPending, RegistrationDate: "2025-06-15T10:00:00Z"}
	require.NoError(t, SaveSnapshot(ctx, s, want))

	snap, err = LoadSnapshot(ctx, s, log)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, want, *snap)

	require.NoError(t, ClearSnapshot(ctx, s))
	snap, err = LoadSnapshot(ctx, s, log)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestLoadSnapshotClearsCorruptRecord(t *testing.T) {
	ctx := context.Background()
	log, hook := test.NewNullLogger()
	s := NewMemoryStore()

	for _, raw := range []string{"{broken", `{"name":"no id"}`} {
		require.NoError(t, s.Set(ctx, KeyStudentRegistration, raw))
		snap, err := LoadSnapshot(ctx, s, log)
		require.NoError(t, err)
		assert.Nil(t, snap)
		_, err = s.Get(ctx, KeyStudentRegistration)
		assert.ErrorIs(t, err, ErrNotFound, raw)
	}
	assert.Len(t, hook.AllEntries(), 2)
}
