// Command seed wipes the database and loads a test user, an admin and a
// batch of generated leads for local development.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	leads "github.com/erino/leads-api"
	"github.com/erino/leads-api/auth"
	"github.com/erino/leads-api/postgres"
)

const leadCount = 120

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	godotenv.Load()

	cfg := struct {
		DB struct {
			User       string `conf:"default:leadsvc"`
			Password   string `conf:"default:leadsvc,mask"`
			Host       string `conf:"default:localhost"`
			Name       string `conf:"default:leads"`
			DisableTLS bool   `conf:"default:true"`
		}
	}{}

	help, err := conf.Parse("LEAD", &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	db, err := postgres.Open(postgres.Config{
		User:       cfg.DB.User,
		Password:   cfg.DB.Password,
		Host:       cfg.DB.Host,
		Name:       cfg.DB.Name,
		DisableTLS: cfg.DB.DisableTLS,
	})
	if err != nil {
		return fmt.Errorf("connecting to db: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	if err := postgres.Migrate(ctx, db); err != nil {
		return fmt.Errorf("updating database schema: %w", err)
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM leads`); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return err
	}

	users := postgres.NewUserService(db)
	store := postgres.NewLeadService(db)

	user, err := seedUser(ctx, users, "Test User", "test@erino.test", "Test1234!", leads.RoleUser)
	if err != nil {
		return err
	}
	admin, err := seedUser(ctx, users, "Admin User", "admin@erino.test", "Admin1234!", leads.RoleAdmin)
	if err != nil {
		return err
	}

	sources := []leads.Source{
		leads.SourceWebsite, leads.SourceFacebookAds, leads.SourceGoogleAds,
		leads.SourceReferral, leads.SourceEvents, leads.SourceOther,
	}
	statuses := []leads.Status{
		leads.StatusNew, leads.StatusContacted, leads.StatusQualified,
		leads.StatusLost, leads.StatusWon,
	}

	now := time.Now().UTC()
	for i := 0; i < leadCount; i++ {
		firstName := gofakeit.FirstName()
		lastName := gofakeit.LastName()
		createdAt := now.Add(-time.Duration(rand.Intn(365*24)) * time.Hour)

		var lastActivity *time.Time
		if rand.Float64() > 0.3 {
			t := gofakeit.DateRange(createdAt, now)
			lastActivity = &t
		}

		owner := user
		if rand.Float64() <= 0.2 {
			owner = admin
		}

		lead := leads.Lead{
			ID:        uuid.NewString(),
			FirstName: firstName,
			LastName:  lastName,
			Email: fmt.Sprintf("%s.%s%d@example.com",
				strings.ToLower(firstName), strings.ToLower(lastName), i),
			Phone:          gofakeit.Phone(),
			Company:        gofakeit.Company(),
			City:           gofakeit.City(),
			State:          gofakeit.State(),
			Source:         sources[rand.Intn(len(sources))],
			Status:         statuses[rand.Intn(len(statuses))],
			Score:          rand.Intn(101),
			LeadValue:      float64(rand.Intn(1000000)) / 100,
			IsQualified:    rand.Float64() > 0.7,
			LastActivityAt: lastActivity,
			CreatedAt:      createdAt,
			UpdatedAt:      now,
			CreatedBy:      owner.ID,
		}
		if err := store.Create(ctx, lead); err != nil {
			return fmt.Errorf("seeding lead %d: %w", i, err)
		}
	}

	fmt.Printf("Seeded %d leads.\n", leadCount)
	fmt.Printf("Test credentials: %s / Test1234!\n", user.Email)
	fmt.Printf("Admin credentials: %s / Admin1234!\n", admin.Email)
	return nil
}

func seedUser(ctx context.Context, users leads.UserService, name, email, password string, role leads.Role) (leads.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return leads.User{}, err
	}

	user := leads.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := users.Create(ctx, user); err != nil {
		return leads.User{}, fmt.Errorf("seeding user %s: %w", email, err)
	}
	return user, nil
}
