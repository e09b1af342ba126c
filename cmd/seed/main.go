package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tagithq/tagit/internal/audit"
	"github.com/tagithq/tagit/internal/auth"
	"github.com/tagithq/tagit/internal/database"
	"github.com/tagithq/tagit/internal/encryption"
	"github.com/tagithq/tagit/internal/profile"
)

type seedContact struct {
	Name         string `yaml:"name"`
	Phone        string `yaml:"phone"`
	Relationship string `yaml:"relationship"`
}

type seedOwner struct {
	Email             string        `yaml:"email"`
	Password          string        `yaml:"password"`
	Name              string        `yaml:"name"`
	Phone             string        `yaml:"phone"`
	BloodGroup        string        `yaml:"blood_group"`
	EmergencyContacts []seedContact `yaml:"emergency_contacts"`
}

type seedFile struct {
	Owners []seedOwner `yaml:"owners"`
}

// Seeds owner accounts and profiles from a YAML file. Intended for demo and
// staging environments; runs without an Elasticsearch cluster.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	path := flag.String("file", "configs/seed.yaml", "Seed file path")
	flag.Parse()

	raw, err := os.ReadFile(*path)
	if err != nil {
		log.Fatalf("Failed to read seed file: %v", err)
	}

	var seeds seedFile
	if err := yaml.Unmarshal(raw, &seeds); err != nil {
		log.Fatalf("Failed to parse seed file: %v", err)
	}

	postgresConfig := database.PostgresConfig{
		Host:        os.Getenv("POSTGRES_HOST"),
		Port:        5432,
		Database:    os.Getenv("POSTGRES_DB"),
		User:        os.Getenv("POSTGRES_USER"),
		Password:    os.Getenv("POSTGRES_PASSWORD"),
		SSLMode:     os.Getenv("POSTGRES_SSLMODE"),
		MaxPoolSize: 1,
		ConnTimeout: 5 * time.Second,
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, postgresConfig)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer database.Disconnect(db)

	auditService := audit.NewNop()

	authService := auth.NewService(db, auditService, auth.ServiceConfig{
		JWTSecret:   os.Getenv("JWT_SECRET"),
		TokenExpiry: 24 * time.Hour,
	})
	if err := authService.Initialize(ctx); err != nil {
		log.Fatalf("Failed to initialize auth schema: %v", err)
	}

	encryptService, err := encryption.NewService()
	if err != nil {
		log.Fatalf("Failed to initialize encryption service: %v", err)
	}

	profileService := profile.NewService(profile.NewPostgresStore(db), encryptService, auditService)

	for _, owner := range seeds.Owners {
		user, err := authService.Register(ctx, owner.Email, owner.Password)
		if err != nil {
			if errors.Is(err, auth.ErrEmailTaken) {
				log.Printf("Skipping %s: already registered", owner.Email)
				continue
			}
			log.Fatalf("Failed to register %s: %v", owner.Email, err)
		}

		p, err := profileService.Create(ctx, profile.CreateParams{
			OwnerID: user.ID,
			Email:   owner.Email,
			Name:    owner.Name,
			Phone:   owner.Phone,
		})
		if err != nil {
			log.Fatalf("Failed to create profile for %s: %v", owner.Email, err)
		}

		if owner.BloodGroup != "" {
			if _, err := profileService.UpdateBasicInfo(ctx, p.ID, profile.BasicInfoUpdate{
				BloodGroup: &owner.BloodGroup,
			}); err != nil {
				log.Fatalf("Failed to set blood group for %s: %v", owner.Email, err)
			}
		}

		if len(owner.EmergencyContacts) > 0 {
			contacts := make([]profile.EmergencyContact, 0, len(owner.EmergencyContacts))
			for _, c := range owner.EmergencyContacts {
				contacts = append(contacts, profile.EmergencyContact{
					Name:         c.Name,
					Phone:        c.Phone,
					Relationship: c.Relationship,
				})
			}
			if _, err := profileService.UpdateContacts(ctx, p.ID, profile.ContactsUpdate{
				EmergencyContacts: contacts,
			}); err != nil {
				log.Fatalf("Failed to set contacts for %s: %v", owner.Email, err)
			}
		}

		log.Printf("Seeded %s (profile %s)", owner.Email, p.ID)
	}
}
