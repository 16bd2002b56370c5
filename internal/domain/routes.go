package domain

import (
	"net/url"
	"strings"
)

// User-facing routes.
const (
	RouteRegistration = "/"
	RouteHome         = "/home"
	RouteQueue        = "/queue"
	RouteAdminLogin   = "/admin/login"
	RoutePhotoAdmin   = "/admin/photo"
	RouteSuperAdmin   = "/admin/super"
	routeDepartment   = "/admin/department/"
)

// DepartmentRoute builds the department desk route, hyphenating spaces.
func DepartmentRoute(department string) string {
	return routeDepartment + url.PathEscape(strings.ReplaceAll(department, " ", "-"))
}

// AdminHome is where an admin lands after signing in.
func AdminHome(a Admin) string {
	switch a.Role {
	case RoleSuperAdmin:
		return RouteSuperAdmin
	case RoleDepartmentAdmin:
		return DepartmentRoute(a.DepartmentName())
	case RolePhotoAdmin:
		return RoutePhotoAdmin
	case RoleQueueAdmin:
		return RouteQueue
	}
	return RouteAdminLogin
}
