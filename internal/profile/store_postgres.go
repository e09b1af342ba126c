package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const profileColumns = `id, owner_id, email, name, phone, age, address, blood_group,
	medical_conditions, allergies, medications, emergency_contacts, medical_documents,
	nfc_tag_id, created_at, updated_at`

// PostgresStore persists profiles in a single profiles table. Contact and
// document lists live in jsonb columns because each editor replaces its own
// sub-list wholesale; only the document list needs sub-record appends.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, p *Profile) error {
	contacts, err := json.Marshal(p.EmergencyContacts)
	if err != nil {
		return fmt.Errorf("marshal emergency contacts: %w", err)
	}
	documents, err := json.Marshal(p.MedicalDocuments)
	if err != nil {
		return fmt.Errorf("marshal medical documents: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO profiles (id, owner_id, email, name, phone, age, address, blood_group,
			medical_conditions, allergies, medications, emergency_contacts, medical_documents,
			nfc_tag_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		p.ID, p.OwnerID, p.Email, p.Name, p.Phone, p.Age, p.Address, p.BloodGroup,
		p.MedicalConditions, p.Allergies, p.Medications, contacts, documents,
		p.NFCTagID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateOwner
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Profile, error) {
	return s.getWhere(ctx, "id = $1", id)
}

func (s *PostgresStore) GetByOwner(ctx context.Context, ownerID string) (*Profile, error) {
	return s.getWhere(ctx, "owner_id = $1", ownerID)
}

func (s *PostgresStore) getWhere(ctx context.Context, where string, arg any) (*Profile, error) {
	row := s.db.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM profiles WHERE %s", profileColumns, where), arg)
	return scanProfile(row)
}

func (s *PostgresStore) Update(ctx context.Context, id string, patch Patch) (*Profile, error) {
	sets := make([]string, 0, 10)
	args := make([]any, 0, 11)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Phone != nil {
		add("phone", *patch.Phone)
	}
	if patch.Age != nil {
		add("age", *patch.Age)
	}
	if patch.Address != nil {
		add("address", *patch.Address)
	}
	if patch.BloodGroup != nil {
		add("blood_group", *patch.BloodGroup)
	}
	if patch.MedicalConditions != nil {
		add("medical_conditions", *patch.MedicalConditions)
	}
	if patch.Allergies != nil {
		add("allergies", *patch.Allergies)
	}
	if patch.Medications != nil {
		add("medications", *patch.Medications)
	}
	if patch.EmergencyContacts != nil {
		contacts, err := json.Marshal(*patch.EmergencyContacts)
		if err != nil {
			return nil, fmt.Errorf("marshal emergency contacts: %w", err)
		}
		add("emergency_contacts", contacts)
	}
	if patch.NFCTagID != nil {
		add("nfc_tag_id", *patch.NFCTagID)
	}
	add("updated_at", patch.UpdatedAt)

	args = append(args, id)
	query := fmt.Sprintf("UPDATE profiles SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), profileColumns)

	row := s.db.QueryRow(ctx, query, args...)
	return scanProfile(row)
}

func (s *PostgresStore) AppendDocument(ctx context.Context, id string, ref DocumentRef) (*Profile, error) {
	doc, err := json.Marshal([]DocumentRef{ref})
	if err != nil {
		return nil, fmt.Errorf("marshal document ref: %w", err)
	}

	// jsonb || is a single-statement append, so concurrent uploads from the
	// same owner never lose entries.
	row := s.db.QueryRow(ctx, fmt.Sprintf(`
		UPDATE profiles
		SET medical_documents = medical_documents || $2::jsonb, updated_at = $3
		WHERE id = $1
		RETURNING %s`, profileColumns),
		id, doc, ref.UploadedAt)
	return scanProfile(row)
}

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	var contacts, documents []byte
	err := row.Scan(&p.ID, &p.OwnerID, &p.Email, &p.Name, &p.Phone, &p.Age, &p.Address,
		&p.BloodGroup, &p.MedicalConditions, &p.Allergies, &p.Medications,
		&contacts, &documents, &p.NFCTagID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	if err := json.Unmarshal(contacts, &p.EmergencyContacts); err != nil {
		return nil, fmt.Errorf("unmarshal emergency contacts: %w", err)
	}
	if err := json.Unmarshal(documents, &p.MedicalDocuments); err != nil {
		return nil, fmt.Errorf("unmarshal medical documents: %w", err)
	}
	return &p, nil
}
