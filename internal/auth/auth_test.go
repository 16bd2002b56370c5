package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueParse(t *testing.T) {
	id := Identity{ID: "a1", Role: "department_admin", Email: "hod@x.edu", Name: "HoD", Department: "Civil"}
	tok, err := Issue(id, "regportal", "k", time.Hour)
	require.NoError(t, err)

	claims, err := Parse(tok.Value, "k", "regportal")
	require.NoError(t, err)
	assert.Equal(t, "a1", claims.Subject)
	assert.Equal(t, "Civil", claims.Department)

	_, err = Parse(tok.Value, "other", "regportal")
	assert.Error(t, err)
	_, err = Parse(tok.Value, "k", "someone-else")
	assert.Error(t, err)

	exp, ok := ExpiryFromToken(tok.Value)
	require.True(t, ok)
	assert.WithinDuration(t, tok.ExpiresAt, exp, time.Second)

	_, ok = ExpiryFromToken("not-a-jwt")
	assert.False(t, ok)
}

func TestExpiredToken(t *testing.T) {
	nowFunc = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, err := Issue(Identity{ID: "a1", Role: "photo_admin"}, "", "k", time.Hour)
	nowFunc = time.Now // reset
	require.NoError(t, err)

	_, err = Parse(tok.Value, "k", "")
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/super", AdminAuth("k", "iss"), RequireRole("super_admin"), func(c *gin.Context) {
		claims, _ := ClaimsFrom(c)
		c.String(http.StatusOK, claims.Email)
	})

	do := func(authz string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/super", nil)
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, do("").Code)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer garbage").Code)

	photo, err := Issue(Identity{ID: "p", Role: "photo_admin"}, "iss", "k", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do("Bearer "+photo.Value).Code)

	super, err := Issue(Identity{ID: "s", Role: "super_admin", Email: "root@x.edu"}, "iss", "k", time.Hour)
	require.NoError(t, err)
	rec := do("bearer " + super.Value)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "root@x.edu", rec.Body.String())
}
