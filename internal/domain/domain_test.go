package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudentStatusDecode(t *testing.T) {
	tests := []struct {
		in   string
		want StudentStatus
	}{
		{`"pending"`, StatusPending},
		{`"photo_taken"`, StatusPhotoTaken},
		{`"documents_verified"`, StatusDocumentsVerified},
		{`"approved"`, StatusUnknown},
		{`null`, StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var got StudentStatus
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 7, 1, 9, 30, 0, 0, time.UTC)
	for _, s := range []string{
		"2024-07-01T09:30:00Z",
		"2024-07-01T09:30:00.000Z",
		"2024-07-01T09:30:00",
		"Mon, 01 Jul 2024 09:30:00 UTC",
	} {
		got, ok := ParseTimestamp(s)
		require.True(t, ok, s)
		assert.True(t, want.Equal(got.UTC()), "%s parsed as %s", s, got)
	}
	_, ok := ParseTimestamp("yesterday")
	assert.False(t, ok)
	_, ok = ParseTimestamp("")
	assert.False(t, ok)
}

func TestResolveDepartment(t *testing.T) {
	for in, want := range map[string]string{
		"Computer Science":       "Computer Science",
		"computer-science":       "Computer Science",
		"COMPUTERSCIENCE":        "Computer Science",
		"information_technology": "Information Technology",
	} {
		got, ok := ResolveDepartment(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got)
	}
	_, ok := ResolveDepartment("Astrology")
	assert.False(t, ok)
	_, ok = ResolveDepartment("  ")
	assert.False(t, ok)
}

func TestDocumentMapComplete(t *testing.T) {
	m := NewDocumentMap()
	assert.Len(t, m, 10)
	assert.False(t, m.Complete())

	for _, dt := range DocumentTypes {
		if dt.Required {
			m[dt.ID] = DocumentCheck{Verified: true}
		}
	}
	assert.True(t, m.Complete())
	assert.Equal(t, 6, m.VerifiedCount())
	assert.Equal(t, Progress{Verified: 6, Total: 10, Percentage: 60}, m.Progress())

	m["aadhar_card"] = DocumentCheck{}
	assert.False(t, m.Complete())
}

func TestDocumentMapCloneIsDeep(t *testing.T) {
	by := "Dr. Rao"
	at := time.Now()
	m := DocumentMap{"10th_marksheet": {Verified: true, VerifiedAt: &at, VerifiedBy: &by}}
	c := m.Clone()
	*c["10th_marksheet"].VerifiedBy = "someone else"
	assert.Equal(t, "Dr. Rao", *m["10th_marksheet"].VerifiedBy)
}

func TestAdminAcceptsEitherID(t *testing.T) {
	var a Admin
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"a1","name":"A","role":"photo_admin"}`), &a))
	assert.Equal(t, "a1", a.ID)

	var b Admin
	require.NoError(t, json.Unmarshal([]byte(`{"id":"b2","name":"B","role":"super_admin","department":null}`), &b))
	assert.Equal(t, "b2", b.ID)
	assert.Equal(t, RoleSuperAdmin, b.Role)
	assert.Equal(t, "", b.DepartmentName())
}

func TestSnapshotDisplay(t *testing.T) {
	s := Snapshot{StudentID: "STU1", Status: StatusPending}
	label, value := s.DisplayID()
	assert.Equal(t, "Student ID", label)
	assert.Equal(t, "STU1", value)
	assert.Equal(t, "Next step: Visit the photo room with your Student ID", s.NextStep())

	app := "APP1"
	s.ApplicationNumber = &app
	s.Status = StatusPhotoTaken
	label, value = s.DisplayID()
	assert.Equal(t, "Application Number", label)
	assert.Equal(t, "APP1", value)
	assert.Equal(t, "Next step: Visit your department admin for document verification", s.NextStep())

	s.Status = StatusUnknown
	assert.Equal(t, "Contact administration for status update", s.NextStep())
}

func TestAdminHome(t *testing.T) {
	dept := "Computer Science"
	tests := []struct {
		admin Admin
		want  string
	}{
		{Admin{Role: RoleSuperAdmin}, "/admin/super"},
		{Admin{Role: RoleDepartmentAdmin, Department: &dept}, "/admin/department/Computer-Science"},
		{Admin{Role: RolePhotoAdmin}, "/admin/photo"},
		{Admin{Role: RoleQueueAdmin}, "/queue"},
		{Admin{Role: "janitor"}, "/admin/login"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AdminHome(tt.admin), string(tt.admin.Role))
	}
}

func TestCountRoles(t *testing.T) {
	st := CountRoles([]Admin{
		{Role: RoleSuperAdmin}, {Role: RolePhotoAdmin}, {Role: RolePhotoAdmin}, {Role: RoleDepartmentAdmin},
	})
	assert.Equal(t, AdminStats{TotalAdmins: 4, SuperAdmins: 1, DepartmentAdmins: 1, PhotoAdmins: 2}, st)
}
