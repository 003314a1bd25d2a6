// Command seed fills an empty database with demo users and courses.
package main

import (
	"context"
	"os"

	"github.com/Skotchmaster/learnhub/internal/config"
	"github.com/Skotchmaster/learnhub/internal/repo"
	"github.com/Skotchmaster/learnhub/internal/service"
	"github.com/Skotchmaster/learnhub/pkg/apperr"
	"github.com/Skotchmaster/learnhub/pkg/db"
	"github.com/Skotchmaster/learnhub/pkg/hash"
	"github.com/Skotchmaster/learnhub/pkg/logging"
	"github.com/Skotchmaster/learnhub/pkg/mykafka"
	"github.com/Skotchmaster/learnhub/pkg/tokens"
)

const seedPassword = "password123"

var seedUsers = []service.SignupInput{
	{Name: "Admin", Email: "admin@learnhub.dev", Password: seedPassword, Role: "admin"},
	{Name: "Ivy Instructor", Email: "instructor@learnhub.dev", Password: seedPassword, Role: "instructor"},
	{Name: "Sam Student", Email: "student@learnhub.dev", Password: seedPassword, Role: "student"},
}

var seedCourses = []service.CourseInput{
	{
		Title:       "Go for Backend Developers",
		Description: "Build HTTP services with the standard library and echo.",
		Price:       49.99,
		Category:    "programming",
		Difficulty:  "intermediate",
		Instructor:  "Ivy Instructor",
		Lessons: []service.LessonInput{
			{Title: "Tooling and modules", ContentHTML: "<p>go mod init</p>"},
			{Title: "Goroutines and channels"},
			{Title: "Writing an HTTP API"},
			{Title: "Testing"},
		},
	},
	{
		Title:       "Design Fundamentals",
		Description: "Color, type and layout for product teams.",
		Price:       0,
		Category:    "design",
		Difficulty:  "beginner",
		Instructor:  "Ivy Instructor",
		Lessons: []service.LessonInput{
			{Title: "Color"},
			{Title: "Typography"},
		},
	},
	{
		Title:       "Practical Data Science",
		Description: "From raw CSV to a deployed model.",
		Price:       89,
		Category:    "data-science",
		Difficulty:  "advanced",
		Instructor:  "Ivy Instructor",
		Lessons: []service.LessonInput{
			{Title: "Cleaning data"},
			{Title: "Features"},
			{Title: "Models"},
		},
	},
}

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel).With("cmd", "seed")
	ctx := logging.IntoContext(context.Background(), logger)

	gdb, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db_init_failed", "error", err)
		os.Exit(1)
	}
	defer db.Close(gdb)

	store := repo.New(gdb)
	if err := store.AutoMigrate(ctx); err != nil {
		logger.Error("db_migrate_failed", "error", err)
		os.Exit(1)
	}

	auth := &service.AuthService{
		Users:            store,
		Hasher:           hash.NewHasher(cfg.BcryptCost),
		Tokens:           tokens.NewService(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.JWTExpire, cfg.JWTRefreshExpire),
		Events:           mykafka.Nop{},
		AllowAdminSignup: true,
	}
	catalog := &service.CatalogService{Courses: store, Events: mykafka.Nop{}}
	enrollments := &service.EnrollmentService{Enrollments: store, Courses: store, Events: mykafka.Nop{}}

	ids := make(map[string]tokens.Identity, len(seedUsers))
	for _, in := range seedUsers {
		res, err := auth.Signup(ctx, in)
		if ae, ok := apperr.As(err); ok && ae.Kind == apperr.KindConflict {
			res, err = auth.Login(ctx, in.Email, in.Password)
		}
		if err != nil {
			logger.Error("seed_user_failed", "email", in.Email, "error", err)
			os.Exit(1)
		}
		ids[in.Role] = tokens.Identity{ID: res.User.ID.String(), Email: res.User.Email, Role: res.User.Role}
	}

	var created []string
	for _, in := range seedCourses {
		c, err := catalog.Create(ctx, ids["instructor"], in)
		if ae, ok := apperr.As(err); ok && ae.Kind == apperr.KindConflict {
			logger.Info("course already seeded", "title", in.Title)
			continue
		}
		if err != nil {
			logger.Error("seed_course_failed", "title", in.Title, "error", err)
			os.Exit(1)
		}
		created = append(created, c.ID.String())
	}

	for _, id := range created {
		if _, err := enrollments.Enroll(ctx, ids["student"], id); err != nil {
			logger.Warn("seed_enrollment_failed", "course_id", id, "error", err)
		}
	}

	logger.Info("seed complete", "users", len(ids), "courses", len(created), "password", seedPassword)
}
