package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// StudentStatus is the registration stage a student has reached.
type StudentStatus string

const (
	StatusUnknown           StudentStatus = ""
	StatusPending           StudentStatus = "pending"
	StatusPhotoTaken        StudentStatus = "photo_taken"
	StatusDocumentsVerified StudentStatus = "documents_verified"
)

// ParseStudentStatus maps a wire value onto the closed set of statuses.
// Anything unrecognised becomes StatusUnknown.
func ParseStudentStatus(s string) StudentStatus {
	switch st := StudentStatus(strings.TrimSpace(s)); st {
	case StatusPending, StatusPhotoTaken, StatusDocumentsVerified:
		return st
	default:
		return StatusUnknown
	}
}

// Valid reports whether s is one of the known statuses.
func (s StudentStatus) Valid() bool {
	return ParseStudentStatus(string(s)) != StatusUnknown
}

// Label is the upper-case badge text shown next to a student.
func (s StudentStatus) Label() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusPhotoTaken:
		return "PHOTO TAKEN"
	case StatusDocumentsVerified:
		return "DOCUMENTS VERIFIED"
	case StatusUnknown:
		return "UNKNOWN"
	}
	return "UNKNOWN"
}

func (s *StudentStatus) UnmarshalJSON(b []byte) error {
	var raw *string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		*s = StatusUnknown
		return nil
	}
	*s = ParseStudentStatus(*raw)
	return nil
}

// Progress is the server-reported document verification progress.
type Progress struct {
	Verified   int `json:"verified"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// Student is a registration record as the backend reports it.
type Student struct {
	StudentID         string        `json:"studentId"`
	Name              string        `json:"name"`
	Email             string        `json:"email,omitempty"`
	Phone             string        `json:"phone,omitempty"`
	Department        string        `json:"department"`
	ParentName        string        `json:"parentName,omitempty"`
	ParentEmail       string        `json:"parentEmail,omitempty"`
	ParentPhone       string        `json:"parentPhone,omitempty"`
	DOB               string        `json:"dob,omitempty"`
	Status            StudentStatus `json:"status"`
	HasPhoto          bool          `json:"hasPhoto"`
	ApplicationNumber *string       `json:"applicationNumber"`
	PhotoURL          string        `json:"photoUrl,omitempty"`
	RegistrationDate  string        `json:"registrationDate"`
	DocumentsProgress *Progress     `json:"documentsProgress,omitempty"`
}

// timestampLayouts covers ISO-8601 (with and without zone) and the
// RFC 1123 form Flask-style backends emit for datetimes.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	time.RFC1123,
	time.RFC1123Z,
	"2006-01-02",
}

// ParseTimestamp parses the timestamp formats seen on the wire.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// RegisteredAt returns the parsed registration time, if any.
func (s Student) RegisteredAt() (time.Time, bool) {
	return ParseTimestamp(s.RegistrationDate)
}

// NeedsPhoto reports whether the photo room still has work for the student.
func (s Student) NeedsPhoto() bool {
	return s.Status == StatusPending || !s.HasPhoto
}

// RegistrationForm is what a student fills in to register.
type RegistrationForm struct {
	Name        string `json:"name" validate:"required,namelen,namechars"`
	Phone       string `json:"phone" validate:"required,phone"`
	Email       string `json:"email" validate:"required,emaillite"`
	Department  string `json:"department" validate:"required,department"`
	ParentName  string `json:"parentName" validate:"required,namelen,namechars"`
	ParentEmail string `json:"parentEmail" validate:"required,emaillite"`
	ParentPhone string `json:"parentPhone" validate:"required,phone"`
	DOB         string `json:"dob" validate:"required,isodate,notfuture,agerange"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (f RegistrationForm) Trimmed() RegistrationForm {
	return RegistrationForm{
		Name:        strings.TrimSpace(f.Name),
		Phone:       strings.TrimSpace(f.Phone),
		Email:       strings.TrimSpace(f.Email),
		Department:  strings.TrimSpace(f.Department),
		ParentName:  strings.TrimSpace(f.ParentName),
		ParentEmail: strings.TrimSpace(f.ParentEmail),
		ParentPhone: strings.TrimSpace(f.ParentPhone),
		DOB:         strings.TrimSpace(f.DOB),
	}
}

// Photo is an opaque encoded image ready to be attached to an upload.
type Photo struct {
	Data        []byte
	Filename    string
	ContentType string
}
