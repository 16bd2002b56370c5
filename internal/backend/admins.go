package backend

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"regportal/internal/auth"
	"regportal/internal/domain"
)

// invalidAdminError is a rejected admin form; its text is shown to the caller.
type invalidAdminError string

func (e invalidAdminError) Error() string { return string(e) }

func (s *Server) login(c *gin.Context) {
	var form domain.LoginForm
	if err := c.ShouldBindJSON(&form); err != nil || strings.TrimSpace(form.Email) == "" || form.Password == "" {
		fail(c, http.StatusBadRequest, "Email and password are required")
		return
	}
	ctx := c.Request.Context()
	rec, err := s.store.AdminByEmail(ctx, form.Email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.log.WithError(err).Error("load admin")
		fail(c, http.StatusInternalServerError, "login failed")
		return
	}
	if err != nil || bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(form.Password)) != nil {
		s.log.WithField("email", form.Email).Warn("failed admin login")
		fail(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if !rec.IsActive {
		fail(c, http.StatusForbidden, "Account is disabled")
		return
	}

	tok, err := auth.Issue(auth.Identity{
		ID:         rec.ID,
		Role:       string(rec.Role),
		Email:      rec.Email,
		Name:       rec.Name,
		Department: rec.DepartmentName(),
	}, s.opts.JWTIssuer, s.opts.JWTSigningKey, s.opts.AccessTTL)
	if err != nil {
		s.log.WithError(err).Error("issue token")
		fail(c, http.StatusInternalServerError, "token issue failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"token":     tok.Value,
		"admin":     rec.Admin,
		"expiresAt": tok.ExpiresAt.UnixMilli(),
	})
}

func (s *Server) listAdmins(c *gin.Context) {
	admins, err := s.store.ListAdmins(c.Request.Context())
	if err != nil {
		s.log.WithError(err).Error("list admins")
		fail(c, http.StatusInternalServerError, "could not list admins")
		return
	}
	if admins == nil {
		admins = []domain.Admin{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "admins": admins})
}

func (s *Server) adminStats(c *gin.Context) {
	admins, err := s.store.ListAdmins(c.Request.Context())
	if err != nil {
		s.log.WithError(err).Error("list admins")
		fail(c, http.StatusInternalServerError, "could not load stats")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": domain.CountRoles(admins)})
}

func (s *Server) createAdmin(c *gin.Context) {
	var req domain.NewAdmin
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if claims, ok := auth.ClaimsFrom(c); ok && req.CreatedBy == "" {
		req.CreatedBy = claims.Email
	}
	a, err := s.createAdminRecord(c.Request.Context(), req)
	var invalid invalidAdminError
	switch {
	case errors.As(err, &invalid):
		fail(c, http.StatusBadRequest, string(invalid))
		return
	case errors.Is(err, ErrDuplicate):
		fail(c, http.StatusConflict, "An admin with this email already exists")
		return
	case err != nil:
		s.log.WithError(err).Error("create admin")
		fail(c, http.StatusInternalServerError, "could not create admin")
		return
	}
	s.log.WithField("email", a.Email).WithField("role", a.Role).Info("admin created")
	c.JSON(http.StatusCreated, gin.H{"success": true, "admin": a})
}

func (s *Server) createAdminRecord(ctx context.Context, req domain.NewAdmin) (domain.Admin, error) {
	name, email := strings.TrimSpace(req.Name), strings.TrimSpace(req.Email)
	switch {
	case name == "" || email == "":
		return domain.Admin{}, invalidAdminError("Name and email are required")
	case len(req.Password) < 8:
		return domain.Admin{}, invalidAdminError("Password must be at least 8 characters")
	}
	role, ok := domain.ParseAdminRole(string(req.Role))
	if !ok {
		return domain.Admin{}, invalidAdminError("Invalid role")
	}
	var dept *string
	if role == domain.RoleDepartmentAdmin {
		if req.Department == nil {
			return domain.Admin{}, invalidAdminError("Department is required for department admins")
		}
		resolved, ok := domain.ResolveDepartment(*req.Department)
		if !ok {
			return domain.Admin{}, invalidAdminError("Unknown department")
		}
		dept = &resolved
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.opts.BcryptCost)
	if err != nil {
		return domain.Admin{}, errors.Wrap(err, "hash password")
	}
	perms := req.Permissions
	if perms == nil {
		perms = []string{}
	}
	rec := AdminRecord{
		Admin: domain.Admin{
			ID:          uuid.NewString(),
			Name:        name,
			Email:       email,
			Role:        role,
			Department:  dept,
			Permissions: perms,
			IsActive:    true,
			CreatedAt:   s.now().UTC().Format("2006-01-02T15:04:05Z07:00"),
			CreatedBy:   req.CreatedBy,
		},
		PasswordHash: string(hash),
	}
	if err := s.store.CreateAdmin(ctx, rec); err != nil {
		return domain.Admin{}, err
	}
	return rec.Admin, nil
}

func (s *Server) deleteAdmin(c *gin.Context) {
	id := c.Param("id")
	if claims, ok := auth.ClaimsFrom(c); ok && claims.Subject == id {
		fail(c, http.StatusBadRequest, "You cannot delete your own account")
		return
	}
	if err := s.store.DeleteAdmin(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			fail(c, http.StatusNotFound, "Admin not found")
			return
		}
		s.log.WithError(err).WithField("admin_id", id).Error("delete admin")
		fail(c, http.StatusInternalServerError, "could not delete admin")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Admin deleted"})
}
