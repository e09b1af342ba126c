package profile

import "time"

// Each editor submits a typed partial update touching only its own field
// subset. Nil pointer members are left untouched by the merge, so two
// editors writing disjoint subsets never conflict.

type BasicInfoUpdate struct {
	Name       *string `json:"name,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Age        *string `json:"age,omitempty"`
	Address    *string `json:"address,omitempty"`
	BloodGroup *string `json:"blood_group,omitempty"`
}

type MedicalInfoUpdate struct {
	MedicalConditions *string `json:"medical_conditions,omitempty"`
	Allergies         *string `json:"allergies,omitempty"`
	Medications       *string `json:"medications,omitempty"`
}

type ContactsUpdate struct {
	EmergencyContacts []EmergencyContact `json:"emergency_contacts"`
}

// Patch is the store-level shallow merge: nil members are skipped, the
// contacts list is replaced wholesale, and UpdatedAt is always written.
type Patch struct {
	Name       *string
	Phone      *string
	Age        *string
	Address    *string
	BloodGroup *string

	MedicalConditions *string
	Allergies         *string
	Medications       *string

	EmergencyContacts *[]EmergencyContact

	NFCTagID *string

	UpdatedAt time.Time
}

// Apply merges the patch into p in place.
func (patch *Patch) Apply(p *Profile) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Phone != nil {
		p.Phone = *patch.Phone
	}
	if patch.Age != nil {
		p.Age = *patch.Age
	}
	if patch.Address != nil {
		p.Address = *patch.Address
	}
	if patch.BloodGroup != nil {
		p.BloodGroup = *patch.BloodGroup
	}
	if patch.MedicalConditions != nil {
		p.MedicalConditions = *patch.MedicalConditions
	}
	if patch.Allergies != nil {
		p.Allergies = *patch.Allergies
	}
	if patch.Medications != nil {
		p.Medications = *patch.Medications
	}
	if patch.EmergencyContacts != nil {
		p.EmergencyContacts = append([]EmergencyContact(nil), (*patch.EmergencyContacts)...)
	}
	if patch.NFCTagID != nil {
		p.NFCTagID = *patch.NFCTagID
	}
	p.UpdatedAt = patch.UpdatedAt
}
