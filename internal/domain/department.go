package domain

import "strings"

// UnknownDepartment buckets records that carry no department.
const UnknownDepartment = "Unknown"

// Departments is the fixed catalogue students register against.
var Departments = []string{
	"Computer Science",
	"Electronics",
	"Mechanical",
	"Civil",
	"Chemical",
	"Electrical",
	"Information Technology",
	"Biotechnology",
}

// IsDepartment reports an exact catalogue match.
func IsDepartment(name string) bool {
	for _, d := range Departments {
		if d == name {
			return true
		}
	}
	return false
}

// ResolveDepartment matches name against the catalogue ignoring case,
// spaces, hyphens and underscores, so "computer-science" and
// "computerscience" both resolve to "Computer Science".
func ResolveDepartment(name string) (string, bool) {
	want := foldDepartment(name)
	if want == "" {
		return "", false
	}
	for _, d := range Departments {
		if foldDepartment(d) == want {
			return d, true
		}
	}
	return "", false
}

func foldDepartment(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch r {
		case ' ', '-', '_', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
