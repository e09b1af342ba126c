package profile

import (
	"strings"
	"time"
)

// DocumentType classifies an uploaded medical document.
type DocumentType string

const (
	DocPrescription  DocumentType = "Prescription"
	DocMedicalReport DocumentType = "Medical Report"
	DocInsuranceCard DocumentType = "Insurance Card"
	DocVaccineRecord DocumentType = "Vaccine Record"
	DocOther         DocumentType = "Other"
)

// ValidDocumentType reports whether t is one of the allowed document types.
func ValidDocumentType(t DocumentType) bool {
	switch t {
	case DocPrescription, DocMedicalReport, DocInsuranceCard, DocVaccineRecord, DocOther:
		return true
	}
	return false
}

type EmergencyContact struct {
	Name         string `json:"name" bson:"name"`
	Phone        string `json:"phone" bson:"phone"`
	Relationship string `json:"relationship,omitempty" bson:"relationship,omitempty"`
}

// DocumentRef points at a binary object held by the document sub-store.
// The profile record never carries the bytes themselves.
type DocumentRef struct {
	ID            string       `json:"id" bson:"id"`
	Name          string       `json:"name" bson:"name"`
	Type          DocumentType `json:"type" bson:"type"`
	URL           string       `json:"url" bson:"url"`
	FileSizeBytes int64        `json:"file_size_bytes" bson:"file_size_bytes"`
	UploadedAt    time.Time    `json:"uploaded_at" bson:"uploaded_at"`
}

type Profile struct {
	ID      string `json:"id" bson:"_id"`
	OwnerID string `json:"owner_id" bson:"owner_id"`

	// Email is private to the owner; the access gate never exposes it.
	Email string `json:"email" bson:"email"`

	Name       string `json:"name" bson:"name"`
	Phone      string `json:"phone" bson:"phone"`
	Age        string `json:"age,omitempty" bson:"age,omitempty"`
	Address    string `json:"address,omitempty" bson:"address,omitempty"`
	BloodGroup string `json:"blood_group,omitempty" bson:"blood_group,omitempty"`

	// Free-text medical fields, encrypted at rest.
	MedicalConditions string `json:"medical_conditions,omitempty" bson:"medical_conditions,omitempty"`
	Allergies         string `json:"allergies,omitempty" bson:"allergies,omitempty"`
	Medications       string `json:"medications,omitempty" bson:"medications,omitempty"`

	EmergencyContacts []EmergencyContact `json:"emergency_contacts" bson:"emergency_contacts"`
	MedicalDocuments  []DocumentRef      `json:"medical_documents" bson:"medical_documents"`

	NFCTagID string `json:"nfc_tag_id,omitempty" bson:"nfc_tag_id,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Validate performs basic validation of profile data.
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrMissingName
	}
	if strings.TrimSpace(p.Phone) == "" {
		return ErrMissingPhone
	}
	return nil
}

// Clone returns a deep copy so callers can mutate the result freely.
func (p *Profile) Clone() *Profile {
	cp := *p
	cp.EmergencyContacts = append([]EmergencyContact(nil), p.EmergencyContacts...)
	cp.MedicalDocuments = append([]DocumentRef(nil), p.MedicalDocuments...)
	return &cp
}

// FilterContacts drops entries missing a name or a phone number, matching
// what the contacts editor submits after its own client-side filtering.
func FilterContacts(contacts []EmergencyContact) []EmergencyContact {
	filtered := make([]EmergencyContact, 0, len(contacts))
	for _, c := range contacts {
		if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Phone) == "" {
			continue
		}
		filtered = append(filtered, c)
	}
	return filtered
}
