package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regportal/internal/domain"
)

type fakeAuth struct {
	token        string
	unauthorized atomic.Int32
}

func (f *fakeAuth) Token() string { return f.token }
func (f *fakeAuth) Unauthorized() { f.unauthorized.Add(1) }

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	log, _ := test.NewNullLogger()
	return New(srv.URL, append([]Option{WithLogger(log)}, opts...)...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestRegister(t *testing.T) {
	var got domain.RegistrationForm
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/students/register", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusCreated, map[string]any{
			"success":   true,
			"studentId": "S1",
			"data":      map[string]string{"name": "A", "department": "Computer Science"},
		})
	}, WithAuth(&fakeAuth{token: "admin-token"}))

	reg, err := c.Register(context.Background(), domain.RegistrationForm{Name: "A", Department: "Computer Science"})
	require.NoError(t, err)
	assert.Equal(t, Registered{StudentID: "S1", Name: "A", Department: "Computer Science"}, reg)
	assert.Equal(t, "A", got.Name)
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   Kind
		msg    string
	}{
		{"conflict", http.StatusConflict, `{"success":false,"error":"Email already registered"}`, KindConflict, "Email already registered"},
		{"bad request", http.StatusBadRequest, `{"error":"dob is invalid"}`, KindInvalid, "dob is invalid"},
		{"server", http.StatusBadGateway, `upstream down`, KindServer, "upstream down"},
		{"not found", http.StatusNotFound, `{"message":"Student not found"}`, KindNotFound, "Student not found"},
		{"teapot", http.StatusTeapot, `{}`, KindClient, ""},
		{"rejected", http.StatusOK, `{"success":false,"error":"Registration closed"}`, KindRejected, "Registration closed"},
		{"not json", http.StatusOK, `<html>`, KindMalformed, "response is not JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := c.Register(context.Background(), domain.RegistrationForm{})
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.Equal(t, tt.msg, MessageOf(err))
		})
	}
}

func TestTimeoutAndNetwork(t *testing.T) {
	block := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	})
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Status(ctx, "S1")
	assert.ErrorIs(t, err, ErrTimeout)

	dead := New("http://127.0.0.1:1")
	_, err = dead.Status(context.Background(), "S1")
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "S1", body["studentId"])
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"student": map[string]any{"studentId": "S1", "status": "photo_taken", "hasPhoto": true, "applicationNumber": "APP1"},
		})
	})
	st, err := c.Status(context.Background(), "S1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPhotoTaken, st.Status)
	require.NotNil(t, st.ApplicationNumber)
	assert.Equal(t, "APP1", *st.ApplicationNumber)

	c = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	_, err = c.Status(context.Background(), "S1")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestListStudentsShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"students":[{"studentId":"S1","name":"A","department":"Civil"},"junk",{"studentId":"S2","hasPhoto":"nope"}]}`)
	})
	students, err := c.ListStudents(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "S1", students[0].StudentID)

	c = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":[]}`)
	})
	_, err = c.ListStudents(context.Background())
	assert.ErrorIs(t, err, ErrMalformed)

	c = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"students":[]}`)
	})
	students, err = c.ListStudents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, students)
}

func TestBearerAndUnauthorized(t *testing.T) {
	auth := &fakeAuth{token: "tok"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
	}, WithAuth(auth))

	err := c.UpdateStatus(context.Background(), "S1", domain.StatusPhotoTaken)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.EqualValues(t, 1, auth.unauthorized.Load())
}

func TestLoginFailureDoesNotInvalidate(t *testing.T) {
	auth := &fakeAuth{token: "old"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
	}, WithAuth(auth))

	_, err := c.Login(context.Background(), domain.LoginForm{Email: "a@b.co", Password: "secret"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "Invalid credentials", MessageOf(err))
	assert.Zero(t, auth.unauthorized.Load())
}

func TestUploadPhoto(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "S9", r.FormValue("studentId"))
		f, hdr, err := r.FormFile("photo")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "S9.jpg", hdr.Filename)
		data, _ := io.ReadAll(f)
		assert.Equal(t, []byte("jpegbytes"), data)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "applicationNumber": "APP9"})
	})
	up, err := c.UploadPhoto(context.Background(), "S9", domain.Photo{Data: []byte("jpegbytes")})
	require.NoError(t, err)
	assert.Equal(t, "APP9", up.ApplicationNumber)
}

func TestUpdateStatusRejectsUnknown(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })
	require.Error(t, c.UpdateStatus(context.Background(), "S1", domain.StatusUnknown))
	assert.Zero(t, calls.Load())
}

func TestDocumentsAndBulk(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/students/S1/documents":
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "documents": map[string]any{"aadhar_card": map[string]any{"verified": true, "notes": "ok"}}})
		case r.Method == http.MethodPut && r.URL.Path == "/api/students/S1/documents":
			var body struct {
				Documents       domain.DocumentMap `json:"documents"`
				DepartmentAdmin string             `json:"departmentAdmin"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "Dr. Rao", body.DepartmentAdmin)
			assert.True(t, body.Documents["aadhar_card"].Verified)
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
		case r.URL.Path == "/api/students/bulk-verify-documents":
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "verifiedCount": 2})
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	})
	ctx := context.Background()
	docs, err := c.Documents(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, "ok", docs["aadhar_card"].Notes)
	require.NoError(t, c.SaveDocuments(ctx, "S1", docs, "Dr. Rao"))
	n, err := c.BulkVerify(ctx, []string{"S1", "S2"}, "Dr. Rao")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPendingVerificationEscapesDepartment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/students/department/Computer%20Science/pending-verification", r.URL.EscapedPath())
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "students": []any{}})
	})
	_, err := c.PendingVerification(context.Background(), "Computer Science")
	require.NoError(t, err)
}

func TestAdmins(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/admins":
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "admins": []any{map[string]any{"_id": "a1", "email": "root@x.edu", "role": "super_admin"}}})
		case "/api/admins/stats":
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "stats": map[string]int{"totalAdmins": 1, "superAdmins": 1}})
		case "/api/admins/a1":
			assert.Equal(t, http.MethodDelete, r.Method)
			w.WriteHeader(http.StatusNoContent)
		}
	})
	ctx := context.Background()
	admins, err := c.Admins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "a1", admins[0].ID)

	st, err := c.AdminStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.SuperAdmins)

	require.NoError(t, c.DeleteAdmin(ctx, "a1"))
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "boom"})
	}, WithMetrics(m))
	_, _ = c.ListStudents(context.Background())
	_, _ = c.ListStudents(context.Background())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("list_students", "server")))
}
