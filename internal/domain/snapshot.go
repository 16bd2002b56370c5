package domain

// Snapshot is the slice of a student's record cached on the device so the
// status page survives restarts.
type Snapshot struct {
	Name              string        `json:"name"`
	StudentID         string        `json:"studentId"`
	Department        string        `json:"department"`
	Status            StudentStatus `json:"status"`
	HasPhoto          bool          `json:"hasPhoto"`
	ApplicationNumber *string       `json:"applicationNumber"`
	RegistrationDate  string        `json:"registrationDate"`
}

// SnapshotFromStudent copies the cached fields out of a full record.
func SnapshotFromStudent(s Student) Snapshot {
	return Snapshot{
		Name:              s.Name,
		StudentID:         s.StudentID,
		Department:        s.Department,
		Status:            s.Status,
		HasPhoto:          s.HasPhoto,
		ApplicationNumber: s.ApplicationNumber,
		RegistrationDate:  s.RegistrationDate,
	}
}

// NextStep tells the student what to do after the stage they are in.
func (s Snapshot) NextStep() string {
	switch s.Status {
	case StatusPending:
		return "Next step: Visit the photo room with your Student ID"
	case StatusPhotoTaken:
		return "Next step: Visit your department admin for document verification"
	case StatusDocumentsVerified:
		return "Registration complete! All steps finished."
	case StatusUnknown:
		return "Contact administration for status update"
	}
	return "Contact administration for status update"
}

// DisplayID prefers the application number once one has been assigned.
func (s Snapshot) DisplayID() (label, value string) {
	if s.ApplicationNumber != nil && *s.ApplicationNumber != "" {
		return "Application Number", *s.ApplicationNumber
	}
	return "Student ID", s.StudentID
}
