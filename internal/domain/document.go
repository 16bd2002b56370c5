package domain

import "time"

// DocumentType is one entry of the verification checklist.
type DocumentType struct {
	ID       string
	Label    string
	Note     string
	Required bool
}

// DocumentTypes is the checklist every department verifies.
var DocumentTypes = []DocumentType{
	{ID: "10th_marksheet", Label: "10th Marksheet", Required: true},
	{ID: "12th_marksheet", Label: "12th Marksheet", Required: true},
	{ID: "transfer_certificate", Label: "Transfer Certificate", Required: true},
	{ID: "character_certificate", Label: "Character Certificate", Required: true},
	{ID: "caste_certificate", Label: "Caste Certificate", Note: "(if applicable)"},
	{ID: "income_certificate", Label: "Income Certificate", Note: "(if applicable)"},
	{ID: "domicile_certificate", Label: "Domicile Certificate"},
	{ID: "migration_certificate", Label: "Migration Certificate", Note: "(for external students)"},
	{ID: "passport_photos", Label: "Passport Size Photos", Required: true},
	{ID: "aadhar_card", Label: "Aadhar Card Copy", Required: true},
}

// LookupDocumentType finds a checklist entry by id.
func LookupDocumentType(id string) (DocumentType, bool) {
	for _, dt := range DocumentTypes {
		if dt.ID == id {
			return dt, true
		}
	}
	return DocumentType{}, false
}

// DocumentCheck is the verification state of one document.
type DocumentCheck struct {
	Verified   bool       `json:"verified"`
	Notes      string     `json:"notes"`
	VerifiedAt *time.Time `json:"verifiedAt"`
	VerifiedBy *string    `json:"verifiedBy"`
}

// DocumentMap is a student's verification record keyed by document type id.
type DocumentMap map[string]DocumentCheck

// NewDocumentMap returns a record with every document unverified.
func NewDocumentMap() DocumentMap {
	m := make(DocumentMap, len(DocumentTypes))
	for _, dt := range DocumentTypes {
		m[dt.ID] = DocumentCheck{}
	}
	return m
}

// WithDefaults returns a copy that has an entry for every checklist type.
func (m DocumentMap) WithDefaults() DocumentMap {
	out := NewDocumentMap()
	for id, chk := range m {
		out[id] = chk
	}
	return out
}

// Clone deep-copies the record.
func (m DocumentMap) Clone() DocumentMap {
	if m == nil {
		return nil
	}
	out := make(DocumentMap, len(m))
	for id, chk := range m {
		if chk.VerifiedAt != nil {
			at := *chk.VerifiedAt
			chk.VerifiedAt = &at
		}
		if chk.VerifiedBy != nil {
			by := *chk.VerifiedBy
			chk.VerifiedBy = &by
		}
		out[id] = chk
	}
	return out
}

// Complete reports whether every required document is verified.
func (m DocumentMap) Complete() bool {
	for _, dt := range DocumentTypes {
		if dt.Required && !m[dt.ID].Verified {
			return false
		}
	}
	return true
}

// VerifiedCount counts verified checklist entries.
func (m DocumentMap) VerifiedCount() int {
	n := 0
	for _, dt := range DocumentTypes {
		if m[dt.ID].Verified {
			n++
		}
	}
	return n
}

// Progress summarises the record against the checklist.
func (m DocumentMap) Progress() Progress {
	verified, total := m.VerifiedCount(), len(DocumentTypes)
	return Progress{Verified: verified, Total: total, Percentage: verified * 100 / total}
}
