package domain

import (
	"encoding/json"
	"strings"
)

// AdminRole decides which desk an admin lands on.
type AdminRole string

const (
	RoleSuperAdmin      AdminRole = "super_admin"
	RoleDepartmentAdmin AdminRole = "department_admin"
	RolePhotoAdmin      AdminRole = "photo_admin"
	RoleQueueAdmin      AdminRole = "queue_admin"
)

// AdminRoles lists every role in display order.
var AdminRoles = []AdminRole{RoleSuperAdmin, RoleDepartmentAdmin, RolePhotoAdmin, RoleQueueAdmin}

// ParseAdminRole maps a wire value onto the closed set of roles.
func ParseAdminRole(s string) (AdminRole, bool) {
	switch r := AdminRole(strings.TrimSpace(s)); r {
	case RoleSuperAdmin, RoleDepartmentAdmin, RolePhotoAdmin, RoleQueueAdmin:
		return r, true
	default:
		return "", false
	}
}

// Label is the human name of the role.
func (r AdminRole) Label() string {
	switch r {
	case RoleSuperAdmin:
		return "Super Admin"
	case RoleDepartmentAdmin:
		return "Department Admin"
	case RolePhotoAdmin:
		return "Photo Admin"
	case RoleQueueAdmin:
		return "Queue Admin"
	}
	return string(r)
}

// Admin is an administrator account. The password hash stays server side.
type Admin struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Role        AdminRole `json:"role"`
	Department  *string   `json:"department"`
	Permissions []string  `json:"permissions,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   string    `json:"createdAt,omitempty"`
	CreatedBy   string    `json:"createdBy,omitempty"`
}

// UnmarshalJSON accepts both "_id" and "id" for the identifier.
func (a *Admin) UnmarshalJSON(b []byte) error {
	type plain Admin
	var aux struct {
		plain
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*a = Admin(aux.plain)
	if a.ID == "" {
		a.ID = aux.AltID
	}
	return nil
}

// DepartmentName returns the department or "" when unset.
func (a Admin) DepartmentName() string {
	if a.Department == nil {
		return ""
	}
	return *a.Department
}

// NewAdmin is the payload for creating an admin account.
type NewAdmin struct {
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Password    string    `json:"password"`
	Role        AdminRole `json:"role"`
	Department  *string   `json:"department"`
	Permissions []string  `json:"permissions"`
	CreatedBy   string    `json:"createdBy"`
}

// AdminForm is the add-admin form as typed by a super admin.
type AdminForm struct {
	Name            string   `json:"name" validate:"required"`
	Email           string   `json:"email" validate:"required,emaillite"`
	Password        string   `json:"password" validate:"required,min=8"`
	ConfirmPassword string   `json:"confirmPassword" validate:"eqfield=Password"`
	Role            string   `json:"role" validate:"required,adminrole"`
	Department      string   `json:"department" validate:"omitempty,department"`
	Permissions     []string `json:"permissions"`
}

// LoginForm is the admin sign-in form.
type LoginForm struct {
	Email      string `json:"email" validate:"required"`
	Password   string `json:"password" validate:"required,min=6"`
	RememberMe bool   `json:"rememberMe"`
}

// Permissions that can be granted to an admin.
var Permissions = []string{
	"view_students",
	"edit_students",
	"verify_documents",
	"manage_photos",
	"export_data",
	"view_reports",
}

// AdminStats are the per-role account counts.
type AdminStats struct {
	TotalAdmins      int `json:"totalAdmins"`
	SuperAdmins      int `json:"superAdmins"`
	DepartmentAdmins int `json:"departmentAdmins"`
	PhotoAdmins      int `json:"photoAdmins"`
	QueueAdmins      int `json:"queueAdmins"`
}

// CountRoles derives stats from a list of accounts.
func CountRoles(admins []Admin) AdminStats {
	st := AdminStats{TotalAdmins: len(admins)}
	for _, a := range admins {
		switch a.Role {
		case RoleSuperAdmin:
			st.SuperAdmins++
		case RoleDepartmentAdmin:
			st.DepartmentAdmins++
		case RolePhotoAdmin:
			st.PhotoAdmins++
		case RoleQueueAdmin:
			st.QueueAdmins++
		}
	}
	return st
}
