package profile

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tagithq/tagit/internal/audit"
	"github.com/tagithq/tagit/internal/encryption"
)

var (
	ErrNotFound        = errors.New("profile not found")
	ErrDuplicateOwner  = errors.New("profile already exists for owner")
	ErrMissingName     = errors.New("name is required")
	ErrMissingPhone    = errors.New("phone is required")
	ErrNoValidContacts = errors.New("no valid emergency contacts submitted")
	ErrInvalidDocument = errors.New("invalid document reference")
)

// IsValidationError reports whether err is a user-visible validation failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingName) ||
		errors.Is(err, ErrMissingPhone) ||
		errors.Is(err, ErrNoValidContacts) ||
		errors.Is(err, ErrInvalidDocument)
}

// CreateParams are the minimal fields set at account registration.
type CreateParams struct {
	OwnerID string
	Email   string
	Name    string
	Phone   string
}

type Service interface {
	Create(ctx context.Context, params CreateParams) (*Profile, error)
	Get(ctx context.Context, id string) (*Profile, error)
	GetByOwner(ctx context.Context, ownerID string) (*Profile, error)
	UpdateBasicInfo(ctx context.Context, id string, upd BasicInfoUpdate) (*Profile, error)
	UpdateMedicalInfo(ctx context.Context, id string, upd MedicalInfoUpdate) (*Profile, error)
	UpdateContacts(ctx context.Context, id string, upd ContactsUpdate) (*Profile, error)
	AppendDocument(ctx context.Context, id string, ref DocumentRef) (*Profile, error)
}

type service struct {
	store   Store
	encrypt encryption.Service
	audit   audit.Service
}

func NewService(store Store, encrypt encryption.Service, audit audit.Service) Service {
	return &service{
		store:   store,
		encrypt: encrypt,
		audit:   audit,
	}
}

func (s *service) Create(ctx context.Context, params CreateParams) (*Profile, error) {
	now := time.Now().UTC()
	p := &Profile{
		ID:                uuid.New().String(),
		OwnerID:           params.OwnerID,
		Email:             params.Email,
		Name:              params.Name,
		Phone:             params.Phone,
		EmergencyContacts: []EmergencyContact{},
		MedicalDocuments:  []DocumentRef{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Insert(ctx, p); err != nil {
		return nil, err
	}

	s.audit.LogEvent(ctx, &audit.AuditEvent{
		EventType:  audit.EventModify,
		UserID:     params.OwnerID,
		Action:     "CREATE",
		Resource:   "profile",
		ResourceID: p.ID,
		Status:     "success",
	})

	return p, nil
}

func (s *service) Get(ctx context.Context, id string) (*Profile, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.decryptMedicalFields(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) GetByOwner(ctx context.Context, ownerID string) (*Profile, error) {
	p, err := s.store.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := s.decryptMedicalFields(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) UpdateBasicInfo(ctx context.Context, id string, upd BasicInfoUpdate) (*Profile, error) {
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return nil, ErrMissingName
	}
	if upd.Phone != nil && strings.TrimSpace(*upd.Phone) == "" {
		return nil, ErrMissingPhone
	}

	patch := Patch{
		Name:       upd.Name,
		Phone:      upd.Phone,
		Age:        upd.Age,
		Address:    upd.Address,
		BloodGroup: upd.BloodGroup,
		UpdatedAt:  time.Now().UTC(),
	}
	return s.update(ctx, id, patch, "UPDATE_BASIC_INFO")
}

func (s *service) UpdateMedicalInfo(ctx context.Context, id string, upd MedicalInfoUpdate) (*Profile, error) {
	patch := Patch{UpdatedAt: time.Now().UTC()}

	var err error
	if patch.MedicalConditions, err = s.encryptField(upd.MedicalConditions); err != nil {
		return nil, err
	}
	if patch.Allergies, err = s.encryptField(upd.Allergies); err != nil {
		return nil, err
	}
	if patch.Medications, err = s.encryptField(upd.Medications); err != nil {
		return nil, err
	}
	return s.update(ctx, id, patch, "UPDATE_MEDICAL_INFO")
}

func (s *service) UpdateContacts(ctx context.Context, id string, upd ContactsUpdate) (*Profile, error) {
	contacts := FilterContacts(upd.EmergencyContacts)
	if len(contacts) == 0 {
		return nil, ErrNoValidContacts
	}

	patch := Patch{
		EmergencyContacts: &contacts,
		UpdatedAt:         time.Now().UTC(),
	}
	return s.update(ctx, id, patch, "UPDATE_CONTACTS")
}

func (s *service) AppendDocument(ctx context.Context, id string, ref DocumentRef) (*Profile, error) {
	if ref.ID == "" || ref.URL == "" || !ValidDocumentType(ref.Type) {
		return nil, ErrInvalidDocument
	}
	if ref.UploadedAt.IsZero() {
		ref.UploadedAt = time.Now().UTC()
	}

	p, err := s.store.AppendDocument(ctx, id, ref)
	if err != nil {
		return nil, err
	}
	if err := s.decryptMedicalFields(p); err != nil {
		return nil, err
	}

	s.audit.LogEvent(ctx, &audit.AuditEvent{
		EventType:  audit.EventUpload,
		UserID:     p.OwnerID,
		Action:     "APPEND_DOCUMENT",
		Resource:   "profile",
		ResourceID: id,
		Status:     "success",
	})

	return p, nil
}

func (s *service) update(ctx context.Context, id string, patch Patch, action string) (*Profile, error) {
	p, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if err := s.decryptMedicalFields(p); err != nil {
		return nil, err
	}

	s.audit.LogEvent(ctx, &audit.AuditEvent{
		EventType:  audit.EventModify,
		UserID:     p.OwnerID,
		Action:     action,
		Resource:   "profile",
		ResourceID: id,
		Status:     "success",
	})

	return p, nil
}

func (s *service) encryptField(value *string) (*string, error) {
	if value == nil || *value == "" {
		return value, nil
	}
	encrypted, err := s.encrypt.Encrypt([]byte(*value))
	if err != nil {
		return nil, err
	}
	return &encrypted, nil
}

func (s *service) decryptMedicalFields(p *Profile) error {
	fields := []*string{&p.MedicalConditions, &p.Allergies, &p.Medications}
	for _, field := range fields {
		if *field == "" {
			continue
		}
		plaintext, err := s.encrypt.Decrypt(*field)
		if err != nil {
			return err
		}
		*field = string(plaintext)
	}
	return nil
}
