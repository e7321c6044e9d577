package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"contentflow/internal/auth"
	"contentflow/internal/config"
	"contentflow/internal/db"
	"contentflow/internal/model"
	"contentflow/internal/policy"
	"contentflow/internal/repository"
	"contentflow/internal/service"
)

// Fixtures is the seed file layout.
type Fixtures struct {
	Profiles []ProfileFixture `json:"profiles"`
	Content  []ContentFixture `json:"content"`
}

// ProfileFixture describes one principal. Profiles are provisioned like any
// first login, so only BOOTSTRAP_ADMIN_EMAIL yields an admin.
type ProfileFixture struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// ContentFixture describes one content item. CreatedBy must name an admin
// profile; items are created through the regular policy checks.
type ContentFixture struct {
	Title        *string `json:"title"`
	Caption      string  `json:"caption"`
	ContentType  string  `json:"content_type"`
	MediaURL     string  `json:"media_url"`
	ScheduleDate string  `json:"schedule_date"`
	AssignedTo   string  `json:"assigned_to"`
	CreatedBy    string  `json:"created_by"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var file string

	rootCmd := &cobra.Command{
		Use:           "seed",
		Short:         "Load fixture profiles and content into the database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&file, "file", "f", "fixtures.json", "fixture file")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "profiles",
		Short: "Create fixture profiles that do not exist yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fx, cfg, gormDB, err := setup(file)
			if err != nil {
				return err
			}
			profileRepo := repository.NewProfileRepository(gormDB)
			engine := policy.NewEngine(profileRepo, nil, 0)
			profileService := service.NewProfileService(profileRepo, engine, cfg.BootstrapAdminEmail, nil)
			created, skipped, err := seedProfiles(cmd.Context(), profileService, profileRepo, fx.Profiles)
			if err != nil {
				return err
			}
			log.Printf("Profiles seeded: %d created, %d already present", created, skipped)
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "content",
		Short: "Create fixture content items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fx, cfg, gormDB, err := setup(file)
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			profileRepo := repository.NewProfileRepository(gormDB)
			engine := policy.NewEngine(profileRepo, nil, 0)
			contentService := service.NewContentService(
				repository.NewContentRepository(gormDB),
				repository.NewContentEventRepository(gormDB),
				profileRepo,
				loc,
				nil,
			)
			created, err := seedContent(cmd.Context(), engine, contentService, fx.Content)
			if err != nil {
				return err
			}
			log.Printf("Content seeded: %d items created", created)
			return nil
		},
	})

	return rootCmd
}

// setup reads the fixture file, loads config and opens a migrated database.
func setup(path string) (*Fixtures, *config.Config, *gorm.DB, error) {
	_ = godotenv.Load()

	fx, err := readFixtures(path)
	if err != nil {
		return nil, nil, nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("config: %w", err)
	}
	gormDB, err := db.Open(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Println("Connected to database")

	if err := db.Migrate(gormDB); err != nil {
		return nil, nil, nil, err
	}
	return fx, cfg, gormDB, nil
}

func readFixtures(path string) (*Fixtures, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var fx Fixtures
	if err := json.Unmarshal(body, &fx); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	return &fx, nil
}

// seedProfiles provisions missing profiles through the user-created hook.
// Existing rows are left untouched.
func seedProfiles(ctx context.Context, profiles service.ProfileService, repo repository.ProfileRepository, fixtures []ProfileFixture) (created, skipped int, err error) {
	for _, f := range fixtures {
		if f.ID == "" || f.Email == "" {
			return created, skipped, fmt.Errorf("profile fixture needs id and email: %+v", f)
		}
		exists, err := repo.Exists(ctx, f.ID)
		if err != nil {
			return created, skipped, fmt.Errorf("check profile %s: %w", f.ID, err)
		}
		if exists {
			skipped++
			continue
		}
		if _, err := profiles.Provision(ctx, auth.Principal{Subject: f.ID, Email: f.Email, Name: f.DisplayName}); err != nil {
			return created, skipped, fmt.Errorf("create profile %s: %w", f.ID, err)
		}
		created++
	}
	return created, skipped, nil
}

// seedContent creates every item as its CreatedBy profile.
func seedContent(ctx context.Context, engine *policy.Engine, svc service.ContentService, fixtures []ContentFixture) (int, error) {
	created := 0
	for i, f := range fixtures {
		schedule, err := time.Parse("2006-01-02", f.ScheduleDate)
		if err != nil {
			return created, fmt.Errorf("content fixture %d: schedule_date: %w", i, err)
		}
		subject, err := engine.Resolve(ctx, auth.Principal{Subject: f.CreatedBy})
		if err != nil {
			return created, fmt.Errorf("content fixture %d: resolve creator: %w", i, err)
		}
		if _, err := svc.Create(ctx, subject, service.CreateContentInput{
			Title:        f.Title,
			Caption:      f.Caption,
			ContentType:  model.ContentType(f.ContentType),
			MediaURL:     f.MediaURL,
			ScheduleDate: schedule,
			AssignedTo:   f.AssignedTo,
		}); err != nil {
			return created, fmt.Errorf("content fixture %d: %w", i, err)
		}
		created++
	}
	return created, nil
}
