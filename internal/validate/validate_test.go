package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regportal/internal/domain"
)

var now = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func validForm() domain.RegistrationForm {
	return domain.RegistrationForm{
		Name:        "Asha Nair",
		Phone:       "98765 43210",
		Email:       "asha@example.com",
		Department:  "Computer Science",
		ParentName:  "R. Nair",
		ParentEmail: "nair@example.com",
		ParentPhone: "9123456780",
		DOB:         "2006-02-01",
	}
}

func TestRegistrationValid(t *testing.T) {
	assert.Empty(t, Registration(validForm(), now))
}

func TestRegistrationMissingFields(t *testing.T) {
	blank := func(f *domain.RegistrationForm) []*string {
		return []*string{&f.Name, &f.Phone, &f.Email, &f.Department, &f.ParentName, &f.ParentEmail, &f.ParentPhone, &f.DOB}
	}
	for i := 0; i < 8; i++ {
		f := validForm()
		*blank(&f)[i] = "   "
		errs := Registration(f, now)
		require.NotEmpty(t, errs, "field %d", i)
		assert.Len(t, errs, 1)
	}

	errs := Registration(domain.RegistrationForm{}, now)
	assert.Len(t, errs, 8)
	assert.Equal(t, "Please fill in: Full Name", errs["name"])
	assert.Equal(t, "Please fill in: Date of Birth", errs["dob"])
}

func TestRegistrationPhone(t *testing.T) {
	tests := []struct {
		phone string
		ok    bool
	}{
		{"9876543210", true},
		{"98765 43210", true},
		{"123456789012345", true},
		{" 98 76 54 32 10 ", true},
		{"123456789", false},
		{"1234567890123456", false},
		{"+919876543210", false},
		{"98765-43210", false},
		{"phone12345", false},
	}
	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			f := validForm()
			f.Phone = tt.phone
			errs := Registration(f, now)
			_, bad := errs["phone"]
			assert.Equal(t, !tt.ok, bad, errs)
		})
	}
}

func TestRegistrationNames(t *testing.T) {
	f := validForm()
	f.Name = "A"
	assert.Equal(t, "Full Name must be at least 2 characters", Registration(f, now)["name"])

	f = validForm()
	f.ParentName = "R2-D2"
	assert.Contains(t, Registration(f, now), "parentName")

	f = validForm()
	f.Name = "Mary-Jane O'Neil Jr."
	assert.Empty(t, Registration(f, now))
}

func TestRegistrationEmailAndDepartment(t *testing.T) {
	f := validForm()
	f.Email = "asha@example"
	f.ParentEmail = "nair example.com"
	f.Department = "Astrology"
	errs := Registration(f, now)
	assert.Equal(t, "Please enter a valid Email Address", errs["email"])
	assert.Equal(t, "Please enter a valid Parent Email", errs["parentEmail"])
	assert.Equal(t, "Please select a valid Department", errs["department"])
}

func TestRegistrationDOB(t *testing.T) {
	tests := []struct {
		dob string
		ok  bool
	}{
		{"2009-06-15", true},  // turns 16 today
		{"2009-06-16", false}, // 16 tomorrow
		{"1925-06-15", true},  // 100 today
		{"1924-06-14", false}, // 101
		{"2025-06-16", false}, // future
		{"15/06/2000", false},
	}
	for _, tt := range tests {
		t.Run(tt.dob, func(t *testing.T) {
			f := validForm()
			f.DOB = tt.dob
			_, bad := Registration(f, now)["dob"]
			assert.Equal(t, !tt.ok, bad)
		})
	}

	f := validForm()
	f.DOB = "2025-07-01"
	assert.Equal(t, "Date of Birth cannot be in the future", Registration(f, now)["dob"])
}

func TestAdminForm(t *testing.T) {
	ok := domain.AdminForm{
		Name:            "Dept Head",
		Email:           "head@college.edu",
		Password:        "longenough",
		ConfirmPassword: "longenough",
		Role:            "department_admin",
		Department:      "Civil",
	}
	assert.Empty(t, AdminForm(ok))

	f := ok
	f.Department = ""
	assert.Equal(t, "Department is required for department admins", AdminForm(f)["department"])

	f = ok
	f.Role = "photo_admin"
	f.Department = ""
	assert.Empty(t, AdminForm(f))

	f = ok
	f.Password = "short"
	f.ConfirmPassword = "short"
	assert.Equal(t, "Password must be at least 8 characters", AdminForm(f)["password"])

	f = ok
	f.ConfirmPassword = "different"
	assert.Equal(t, "Passwords do not match", AdminForm(f)["confirmPassword"])

	f = ok
	f.Name = "  "
	f.Role = "janitor"
	errs := AdminForm(f)
	assert.Equal(t, "Please fill in: Full Name", errs["name"])
	assert.Contains(t, errs, "role")
}

func TestLogin(t *testing.T) {
	assert.Empty(t, Login(domain.LoginForm{Email: "a@b.co", Password: "secret"}))
	assert.Equal(t, "Password must be at least 6 characters", Login(domain.LoginForm{Email: "a@b.co", Password: "12345"})["password"])
	assert.Contains(t, Login(domain.LoginForm{Password: "secret1"}), "email")
}

func TestErrorsString(t *testing.T) {
	e := Errors{"phone": "bad", "email": "worse"}
	assert.Equal(t, "email: worse; phone: bad", e.Error())
}
