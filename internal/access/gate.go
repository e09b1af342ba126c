// Package access decides which fields of a profile are visible or writable
// for a given caller. Owners get the full record; anonymous responders get a
// fixed allow-listed subset. The gate is enforced server-side so the contract
// holds regardless of the storage backend.
package access

import (
	"errors"

	"github.com/tagithq/tagit/internal/profile"
)

var ErrForbidden = errors.New("caller is not the profile owner")

// PublicProfile is the read-only subset exposed to anonymous responders.
// It never carries the owner's email, account id, or internal identifiers
// beyond the public profile id.
type PublicProfile struct {
	ID                string                     `json:"id"`
	Name              string                     `json:"name"`
	Phone             string                     `json:"phone"`
	Age               string                     `json:"age,omitempty"`
	Address           string                     `json:"address,omitempty"`
	BloodGroup        string                     `json:"blood_group,omitempty"`
	MedicalConditions string                     `json:"medical_conditions,omitempty"`
	Allergies         string                     `json:"allergies,omitempty"`
	Medications       string                     `json:"medications,omitempty"`
	EmergencyContacts []profile.EmergencyContact `json:"emergency_contacts"`
	MedicalDocuments  []profile.DocumentRef      `json:"medical_documents"`
}

// PublicView filters a full profile down to the anonymous-responder subset.
func PublicView(p *profile.Profile) *PublicProfile {
	return &PublicProfile{
		ID:                p.ID,
		Name:              p.Name,
		Phone:             p.Phone,
		Age:               p.Age,
		Address:           p.Address,
		BloodGroup:        p.BloodGroup,
		MedicalConditions: p.MedicalConditions,
		Allergies:         p.Allergies,
		Medications:       p.Medications,
		EmergencyContacts: append([]profile.EmergencyContact{}, p.EmergencyContacts...),
		MedicalDocuments:  append([]profile.DocumentRef{}, p.MedicalDocuments...),
	}
}

// AuthorizeWrite rejects any write whose caller is not the record's owner.
func AuthorizeWrite(callerID string, p *profile.Profile) error {
	if callerID == "" || callerID != p.OwnerID {
		return ErrForbidden
	}
	return nil
}
