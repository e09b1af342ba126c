package access

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagithq/tagit/internal/profile"
)

func sampleProfile() *profile.Profile {
	return &profile.Profile{
		ID:                "profile-1",
		OwnerID:           "owner-1",
		Email:             "asha@example.com",
		Name:              "Asha",
		Phone:             "+911234567890",
		Age:               "34",
		Address:           "12 MG Road",
		BloodGroup:        "O+",
		MedicalConditions: "Type 1 diabetes",
		Allergies:         "Penicillin",
		Medications:       "Insulin",
		NFCTagID:          "tag-77",
		EmergencyContacts: []profile.EmergencyContact{
			{Name: "Ravi", Phone: "+919876543210", Relationship: "Spouse"},
		},
		MedicalDocuments: []profile.DocumentRef{
			{ID: "1", Name: "report", Type: profile.DocMedicalReport, URL: "/files/owner-1/1_report.pdf"},
		},
		CreatedAt: time.Now().UTC().Add(-time.Hour),
		UpdatedAt: time.Now().UTC(),
	}
}

func TestPublicViewCarriesResponderFields(t *testing.T) {
	p := sampleProfile()

	pub := PublicView(p)

	assert.Equal(t, p.ID, pub.ID)
	assert.Equal(t, "Asha", pub.Name)
	assert.Equal(t, "O+", pub.BloodGroup)
	require.Len(t, pub.EmergencyContacts, 1)
	assert.Equal(t, "Ravi", pub.EmergencyContacts[0].Name)
	require.Len(t, pub.MedicalDocuments, 1)
	assert.Equal(t, "report", pub.MedicalDocuments[0].Name)
}

// TestPublicViewFieldSetPinned marshals a fully populated view and checks
// every emitted key against the fixed allow-list, so any field added to
// PublicProfile has to be an explicit decision here too.
func TestPublicViewFieldSetPinned(t *testing.T) {
	raw, err := json.Marshal(PublicView(sampleProfile()))
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))

	allowed := map[string]bool{
		"id":                 true,
		"name":               true,
		"phone":              true,
		"age":                true,
		"address":            true,
		"blood_group":        true,
		"medical_conditions": true,
		"allergies":          true,
		"medications":        true,
		"emergency_contacts": true,
		"medical_documents":  true,
	}

	for key := range fields {
		assert.True(t, allowed[key], "field %q outside the public allow-list", key)
	}
	assert.Len(t, fields, len(allowed))
}

func TestPublicViewExcludesAccountFields(t *testing.T) {
	pub := PublicView(sampleProfile())

	raw, err := json.Marshal(pub)
	require.NoError(t, err)

	body := string(raw)
	assert.NotContains(t, body, "asha@example.com")
	assert.NotContains(t, body, "tag-77")
	assert.NotContains(t, body, "created_at")
	assert.NotContains(t, body, "updated_at")
}

func TestPublicViewCopiesSlices(t *testing.T) {
	p := sampleProfile()
	pub := PublicView(p)

	pub.EmergencyContacts[0].Name = "mutated"
	assert.Equal(t, "Ravi", p.EmergencyContacts[0].Name)
}

func TestAuthorizeWrite(t *testing.T) {
	p := sampleProfile()

	assert.NoError(t, AuthorizeWrite("owner-1", p))
	assert.ErrorIs(t, AuthorizeWrite("owner-2", p), ErrForbidden)
	assert.ErrorIs(t, AuthorizeWrite("", p), ErrForbidden)
}
