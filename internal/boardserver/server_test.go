package boardserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regportal/internal/domain"
	"regportal/internal/queueboard"
)

type fixedSource struct{ st queueboard.State }

func (f fixedSource) State() queueboard.State { return f.st }

func get(t *testing.T, r http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestQueue(t *testing.T) {
	gin.SetMode(gin.TestMode)
	groups := queueboard.GroupStudents([]domain.Student{
		{StudentID: "a", Name: "A", Department: "Civil", RegistrationDate: "2025-06-15T10:01:00Z"},
		{StudentID: "b", Name: "B", Department: "Civil", RegistrationDate: "2025-06-15T10:02:00Z"},
	})
	src := fixedSource{queueboard.State{Groups: groups, Loaded: true, UpdatedAt: time.Date(2025, 6, 15, 10, 5, 0, 0, time.UTC)}}
	r := Router(src, Options{Gatherer: prometheus.NewRegistry()})

	rec := get(t, r, "/queue")
	require.Equal(t, http.StatusOK, rec.Code)
	var got Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Loaded)
	assert.False(t, got.Stale)
	assert.Equal(t, 2, got.Waiting)
	require.Len(t, got.Departments, 1)
	assert.Equal(t, "a", got.Departments[0].Next.StudentID)
	assert.Equal(t, 1, got.Departments[0].Remaining)
	require.NotNil(t, got.UpdatedAt)

	assert.Equal(t, http.StatusOK, get(t, r, "/healthz").Code)
	assert.Equal(t, http.StatusOK, get(t, r, "/metrics").Code)
}

func TestQueueUnreachable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := Router(fixedSource{queueboard.State{Err: errors.New("dial tcp: refused")}}, Options{Gatherer: prometheus.NewRegistry()})

	rec := get(t, r, "/queue")
	var got Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.ConnectionError)
	assert.NotEmpty(t, got.Error)
	assert.Empty(t, got.Departments)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, r, "/healthz").Code)
}
