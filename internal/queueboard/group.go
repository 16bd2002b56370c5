package queueboard

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"regportal/internal/domain"
)

// Group is one department's queue, earliest registration first.
type Group struct {
	Department string           `json:"department"`
	Students   []domain.Student `json:"students"`
}

// Sanitize drops records missing a student id, name or department.
func Sanitize(students []domain.Student, log logrus.FieldLogger) []domain.Student {
	valid := make([]domain.Student, 0, len(students))
	for _, s := range students {
		if strings.TrimSpace(s.StudentID) == "" || strings.TrimSpace(s.Name) == "" || strings.TrimSpace(s.Department) == "" {
			continue
		}
		valid = append(valid, s)
	}
	if dropped := len(students) - len(valid); dropped > 0 {
		log.Warnf("filtered out %d invalid student records", dropped)
	}
	return valid
}

// GroupStudents buckets students by department and orders each bucket by
// registration time. Records whose time does not parse keep their relative
// order after every dated record. Departments are sorted by name.
//
// A blank department lands in the Unknown bucket. The board itself never
// produces one: fetch runs Sanitize first, which drops department-less
// records, so Unknown only appears for callers grouping raw lists.
func GroupStudents(students []domain.Student) []Group {
	byDept := map[string][]domain.Student{}
	for _, s := range students {
		dept := strings.TrimSpace(s.Department)
		if dept == "" {
			dept = domain.UnknownDepartment
		}
		byDept[dept] = append(byDept[dept], s)
	}

	groups := make([]Group, 0, len(byDept))
	for dept, list := range byDept {
		sort.SliceStable(list, func(i, j int) bool {
			ti, iok := list[i].RegisteredAt()
			tj, jok := list[j].RegisteredAt()
			switch {
			case iok && jok:
				return ti.Before(tj)
			case iok:
				return true
			default:
				return false
			}
		})
		groups = append(groups, Group{Department: dept, Students: list})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Department < groups[j].Department })
	return groups
}
