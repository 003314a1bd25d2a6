package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/learnhub/internal/models"
	"github.com/Skotchmaster/learnhub/internal/repo"
	"github.com/Skotchmaster/learnhub/pkg/apperr"
	"github.com/Skotchmaster/learnhub/pkg/db"
	"github.com/Skotchmaster/learnhub/pkg/hash"
	"github.com/Skotchmaster/learnhub/pkg/mykafka"
	"github.com/Skotchmaster/learnhub/pkg/tokens"
)

type testEnv struct {
	repo       *repo.GormRepo
	tokens     *tokens.Service
	events     *mykafka.Recorder
	auth       *AuthService
	catalog    *CatalogService
	enrollment *EnrollmentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })

	r := repo.New(gdb)
	require.NoError(t, r.AutoMigrate(context.Background()))

	tok := tokens.NewService(
		[]byte("test-access-secret-0123456789abcdef"),
		[]byte("test-refresh-secret-0123456789abcdef"),
		0, 0,
	)
	events := &mykafka.Recorder{}

	return &testEnv{
		repo:   r,
		tokens: tok,
		events: events,
		auth: &AuthService{
			Users:  r,
			Hasher: hash.NewHasher(4),
			Tokens: tok,
			Events: events,
		},
		catalog: &CatalogService{
			Courses: r,
			Events:  events,
		},
		enrollment: &EnrollmentService{
			Enrollments: r,
			Courses:     r,
			Events:      events,
		},
	}
}

func requireKind(t *testing.T, err error, kind apperr.Kind) *apperr.Error {
	t.Helper()
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok, "expected *apperr.Error, got %T: %v", err, err)
	require.Equal(t, kind, ae.Kind, "error: %v", err)
	return ae
}

func (env *testEnv) signup(t *testing.T, name, email, role string) (*AuthResult, tokens.Identity) {
	t.Helper()
	res, err := env.auth.Signup(context.Background(), SignupInput{
		Name: name, Email: email, Password: "secret1", Role: role,
	})
	require.NoError(t, err)
	return res, identityOf(res.User)
}

func (env *testEnv) createCourse(t *testing.T, actor tokens.Identity, title string, lessons int) *models.Course {
	t.Helper()
	in := CourseInput{
		Title:       title,
		Description: "learn " + title,
		Price:       19.99,
		Category:    "programming",
		Difficulty:  "beginner",
		Instructor:  "Jane Doe",
	}
	for i := 0; i < lessons; i++ {
		in.Lessons = append(in.Lessons, LessonInput{Title: "Lesson"})
	}
	c, err := env.catalog.Create(context.Background(), actor, in)
	require.NoError(t, err)
	return c
}

func eventTypes(rec *mykafka.Recorder) []string {
	var out []string
	for _, e := range rec.Events() {
		if ev, ok := e.Payload.(Event); ok {
			out = append(out, ev.Type)
		}
	}
	return out
}

type failingPublisher struct{}

func (failingPublisher) PublishEvent(context.Context, string, string, any) error {
	return errors.New("broker down")
}

func (failingPublisher) Close() error { return nil }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
