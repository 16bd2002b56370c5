package validate

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"regportal/internal/domain"
)

const (
	minAge = 16
	maxAge = 100
)

var (
	nameCharsRegex = regexp.MustCompile(`^[a-zA-Z\s.'-]+$`)
	phoneRegex     = regexp.MustCompile(`^\d{10,15}$`)
	emailRegex     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

const (
	nameLenTag    = "namelen"
	nameCharsTag  = "namechars"
	phoneTag      = "phone"
	emailLiteTag  = "emaillite"
	departmentTag = "department"
	isoDateTag    = "isodate"
	notFutureTag  = "notfuture"
	ageRangeTag   = "agerange"
	adminRoleTag  = "adminrole"
	deptForRole   = "dept_for_role"
)

func registerTags() {
	_ = Validate.RegisterValidation(nameLenTag, nameLenValidation)
	_ = Validate.RegisterValidation(nameCharsTag, nameCharsValidation)
	_ = Validate.RegisterValidation(phoneTag, phoneValidation)
	_ = Validate.RegisterValidation(emailLiteTag, emailLiteValidation)
	_ = Validate.RegisterValidation(departmentTag, departmentValidation)
	_ = Validate.RegisterValidation(isoDateTag, isoDateValidation)
	_ = Validate.RegisterValidationCtx(notFutureTag, notFutureValidation)
	_ = Validate.RegisterValidationCtx(ageRangeTag, ageRangeValidation)
	_ = Validate.RegisterValidation(adminRoleTag, adminRoleValidation)

	RegisterCustomTranslation(nameLenTag, "{0} must be at least 2 characters")
	RegisterCustomTranslation(nameCharsTag, "{0} can only contain letters, spaces, dots, apostrophes and hyphens")
	RegisterCustomTranslation(phoneTag, "Please enter a valid {0} (10-15 digits)")
	RegisterCustomTranslation(emailLiteTag, "Please enter a valid {0}")
	RegisterCustomTranslation(departmentTag, "Please select a valid {0}")
	RegisterCustomTranslation(isoDateTag, "{0} must be a date in YYYY-MM-DD format")
	RegisterCustomTranslation(notFutureTag, "{0} cannot be in the future")
	RegisterCustomTranslation(ageRangeTag, "Age must be between 16 and 100 years")
	RegisterCustomTranslation(adminRoleTag, "Please select a valid {0}")
	RegisterCustomTranslation(deptForRole, "Department is required for department admins")

	RegisterCustomTranslation("required", "Please fill in: {0}", true)
	RegisterCustomTranslation("min", "{0} must be at least {1} characters", true)
	RegisterCustomTranslation("eqfield", "Passwords do not match", true)
}

func nameLenValidation(fl validator.FieldLevel) bool {
	return len([]rune(strings.TrimSpace(fl.Field().String()))) >= 2
}

func nameCharsValidation(fl validator.FieldLevel) bool {
	return nameCharsRegex.MatchString(fl.Field().String())
}

// phoneValidation accepts 10 to 15 digits once whitespace is stripped.
func phoneValidation(fl validator.FieldLevel) bool {
	return phoneRegex.MatchString(stripSpace(fl.Field().String()))
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func emailLiteValidation(fl validator.FieldLevel) bool {
	return emailRegex.MatchString(fl.Field().String())
}

func departmentValidation(fl validator.FieldLevel) bool {
	return domain.IsDepartment(fl.Field().String())
}

func parseDOB(s string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	return t, err == nil
}

func isoDateValidation(fl validator.FieldLevel) bool {
	_, ok := parseDOB(fl.Field().String())
	return ok
}

// notFutureValidation passes unparseable input; isodate reports those.
func notFutureValidation(ctx context.Context, fl validator.FieldLevel) bool {
	dob, ok := parseDOB(fl.Field().String())
	if !ok {
		return true
	}
	now := nowFrom(ctx)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return !dob.After(today)
}

func ageRangeValidation(ctx context.Context, fl validator.FieldLevel) bool {
	dob, ok := parseDOB(fl.Field().String())
	if !ok {
		return true
	}
	age := Age(dob, nowFrom(ctx))
	return age >= minAge && age <= maxAge
}

// Age is the number of completed years between dob and now.
func Age(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

func adminRoleValidation(fl validator.FieldLevel) bool {
	_, ok := domain.ParseAdminRole(fl.Field().String())
	return ok
}

// adminFormStructValidation requires a department for department admins.
func adminFormStructValidation(sl validator.StructLevel) {
	if f, ok := sl.Current().Interface().(domain.AdminForm); ok {
		if f.Role == string(domain.RoleDepartmentAdmin) && strings.TrimSpace(f.Department) == "" {
			sl.ReportError(f.Department, "department", "Department", deptForRole, "")
		}
	}
}
