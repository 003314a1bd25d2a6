package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/learnhub/internal/repo"
	"github.com/Skotchmaster/learnhub/internal/service"
	"github.com/Skotchmaster/learnhub/pkg/db"
	"github.com/Skotchmaster/learnhub/pkg/hash"
	"github.com/Skotchmaster/learnhub/pkg/logging"
	middleware "github.com/Skotchmaster/learnhub/pkg/middleware/auth"
	"github.com/Skotchmaster/learnhub/pkg/mykafka"
	"github.com/Skotchmaster/learnhub/pkg/ratelimit"
	"github.com/Skotchmaster/learnhub/pkg/tokens"
)

type envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Errors     []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
	RetryAfter int `json:"retryAfter"`
}

type authData struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
}

type courseData struct {
	Course struct {
		ID      string `json:"id"`
		Slug    string `json:"slug"`
		Lessons []struct {
			ID string `json:"id"`
		} `json:"lessons"`
	} `json:"course"`
}

type enrollmentData struct {
	Enrollment struct {
		ID                 string          `json:"id"`
		Progress           map[string]bool `json:"progress"`
		ProgressPercentage int             `json:"progressPercentage"`
		CompletedAt        *time.Time      `json:"completedAt"`
	} `json:"enrollment"`
}

func newTestServer(t *testing.T, authPolicy ratelimit.Policy) *echo.Echo {
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
	store := ratelimit.NewMemoryStore()
	catalog := &service.CatalogService{Courses: r, Events: events}

	e := NewServer(logging.NewWithWriter(io.Discard, "error"))
	Register(e, &Deps{
		Auth: &AuthHTTP{Svc: &service.AuthService{
			Users: r, Hasher: hash.NewHasher(4), Tokens: tok, Events: events,
		}},
		Catalog: &CatalogHTTP{Svc: catalog},
		Enrollment: &EnrollmentHTTP{Svc: &service.EnrollmentService{
			Enrollments: r, Courses: r, Events: events,
		}},
		Health:        &HealthHTTP{DB: gdb},
		Authenticator: middleware.NewAuthenticator(tok),
		AuthLimiter:   ratelimit.NewLimiter(store, authPolicy),
		APILimiter:    ratelimit.NewLimiter(store, ratelimit.Policy{Disabled: true}),
	})
	return e
}

func call(t *testing.T, e *echo.Echo, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func signupAs(t *testing.T, e *echo.Echo, name, email, role string) authData {
	t.Helper()
	rec, env := call(t, e, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": name, "email": email, "password": "secret1", "role": role,
	})
	require.Equal(t, http.StatusCreated, rec.Code, env.Message)
	return decode[authData](t, env)
}

func newCourse(lessons int) map[string]any {
	ls := make([]map[string]any, lessons)
	for i := range ls {
		ls[i] = map[string]any{"title": "Lesson"}
	}
	return map[string]any{
		"title":       "Intro to Go",
		"description": "Channels and goroutines",
		"price":       49.5,
		"category":    "programming",
		"difficulty":  "beginner",
		"instructor":  "Ivy",
		"lessons":     ls,
	}
}

func TestSignupThenLogin(t *testing.T) {
	t.Parallel()
	e := newTestServer(t, ratelimit.Policy{Disabled: true})

	signed := signupAs(t, e, "Ann", "ann@x.com", "")
	assert.Equal(t, "student", signed.User.Role)
	assert.NotEmpty(t, signed.AccessToken)

	rec, env := call(t, e, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ann@x.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	logged := decode[authData](t, env)
	assert.NotEqual(t, signed.AccessToken, logged.AccessToken)
	assert.NotEqual(t, signed.RefreshToken, logged.RefreshToken)

	rec, env = call(t, e, http.MethodGet, "/api/auth/me", logged.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"createdAt"`)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestAuthErrors(t *testing.T) {
	t.Parallel()
	e := newTestServer(t, ratelimit.Policy{Disabled: true})
	signupAs(t, e, "Ann", "ann@x.com", "")

	rec, env := call(t, e, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "Ann", "email": "ANN@x.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)

	rec, env = call(t, e, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": " ", "email": "bad", "password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation failed", env.Message)
	assert.NotEmpty(t, env.Errors)

	_, wrongPw := call(t, e, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ann@x.com", "password": "nope12",
	})
	rec, noUser := call(t, e, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ghost@x.com", "password": "nope12",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, wrongPw.Message, noUser.Message)

	rec, _ = call(t, e, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = call(t, e, http.MethodGet, "/api/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = call(t, e, http.MethodPost, "/api/auth/reset-password", "", map[string]string{
		"token": "t", "password": "secret1",
	})
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	rec, env = call(t, e, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{
		"email": "ghost@x.com",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}

func TestRefreshRotationAndLogout(t *testing.T) {
	t.Parallel()
	e := newTestServer(t, ratelimit.Policy{Disabled: true})
	signed := signupAs(t, e, "Ann", "ann@x.com", "")

	rec, env := call(t, e, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refreshToken": signed.RefreshToken,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := decode[authData](t, env)
	assert.NotEqual(t, signed.RefreshToken, rotated.RefreshToken)

	rec, _ = call(t, e, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refreshToken": signed.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = call(t, e, http.MethodPost, "/api/auth/logout", rotated.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = call(t, e, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refreshToken": rotated.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCourseAccessControl(t *testing.T) {
	t.Parallel()
	e := newTestServer(t, ratelimit.Policy{Disabled: true})
	owner := signupAs(t, e, "Ivy", "ivy@x.com", "instructor")
	other := signupAs(t, e, "Oz", "oz@x.com", "instructor")
	student := signupAs(t, e, "Sam", "sam@x.com", "")

	rec, _ := call(t, e, http.MethodPost, "/api/courses", "", newCourse(1))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = call(t, e, http.MethodPost, "/api/courses", student.AccessToken, newCourse(1))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := call(t, e, http.MethodPost, "/api/courses", owner.AccessToken, newCourse(2))
	require.Equal(t, http.StatusCreated, rec.Code, env.Message)
	course := decode[courseData](t, env).Course
	assert.Equal(t, "intro-to-go", course.Slug)
	require.Len(t, course.Lessons, 2)

	rec, _ = call(t, e, http.MethodPut, "/api/courses/"+course.ID, other.AccessToken, map[string]any{"price": 10})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = call(t, e, http.MethodPut, "/api/courses/"+course.ID, owner.AccessToken, map[string]any{
		"title": "Advanced Go",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "advanced-go", decode[courseData](t, env).Course.Slug)

	rec, _ = call(t, e, http.MethodGet, "/api/courses/advanced-go", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = call(t, e, http.MethodGet, "/api/courses?category=programming&page=1&limit=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"total":1`)

	rec, _ = call(t, e, http.MethodGet, "/api/enrollments/course/"+course.ID, other.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = call(t, e, http.MethodGet, "/api/enrollments/all", owner.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = call(t, e, http.MethodDelete, "/api/courses/"+course.ID, owner.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = call(t, e, http.MethodGet, "/api/courses/"+course.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEnrollmentProgress(t *testing.T) {
	t.Parallel()
	e := newTestServer(t, ratelimit.Policy{Disabled: true})
	instructor := signupAs(t, e, "Ivy", "ivy@x.com", "instructor")
	student := signupAs(t, e, "Sam", "sam@x.com", "")

	_, env := call(t, e, http.MethodPost, "/api/courses", instructor.AccessToken, newCourse(4))
	course := decode[courseData](t, env).Course
	require.Len(t, course.Lessons, 4)

	rec, env := call(t, e, http.MethodPost, "/api/enrollments", student.AccessToken, map[string]string{
		"courseId": course.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, env.Message)
	enr := decode[enrollmentData](t, env).Enrollment

	rec, _ = call(t, e, http.MethodPost, "/api/enrollments", student.AccessToken, map[string]string{
		"courseId": course.ID,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	progress := "/api/enrollments/" + enr.ID + "/progress"
	for _, l := range course.Lessons[:2] {
		rec, env = call(t, e, http.MethodPut, progress, student.AccessToken, map[string]any{
			"lessonId": l.ID, "completed": true,
		})
		require.Equal(t, http.StatusOK, rec.Code, env.Message)
	}
	got := decode[enrollmentData](t, env).Enrollment
	assert.Equal(t, 50, got.ProgressPercentage)
	assert.Nil(t, got.CompletedAt)

	rec, env = call(t, e, http.MethodPut, progress, student.AccessToken, map[string]any{
		"lessonId": "not-a-lesson", "completed": true,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Lesson not found in this course", env.Message)

	rec, _ = call(t, e, http.MethodPut, progress, instructor.AccessToken, map[string]any{
		"lessonId": course.Lessons[2].ID, "completed": true,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	for _, l := range course.Lessons[2:] {
		_, env = call(t, e, http.MethodPut, progress, student.AccessToken, map[string]any{
			"lessonId": l.ID, "completed": true,
		})
	}
	got = decode[enrollmentData](t, env).Enrollment
	assert.Equal(t, 100, got.ProgressPercentage)
	assert.NotNil(t, got.CompletedAt)

	rec, env = call(t, e, http.MethodGet, "/api/enrollments/me", student.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"count":1`)

	rec, _ = call(t, e, http.MethodGet, "/api/enrollments/"+enr.ID, instructor.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = call(t, e, http.MethodGet, "/api/enrollments/course/"+course.ID, instructor.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"count":1`)
}

func TestAuthRateLimit(t *testing.T) {
	t.Parallel()
	e := newTestServer(t, ratelimit.Policy{
		Window:  900 * time.Second,
		Max:     5,
		Message: ratelimit.AuthPolicy.Message,
	})

	body := map[string]string{"email": "ann@x.com", "password": "secret1"}
	for i := 0; i < 5; i++ {
		rec, _ := call(t, e, http.MethodPost, "/api/auth/login", "", body)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec, env := call(t, e, http.MethodPost, "/api/auth/login", "", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.False(t, env.Success)
	assert.Greater(t, env.RetryAfter, 0)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// separate route keeps its own window
	rec, _ = call(t, e, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "ann@x.com"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	e := newTestServer(t, ratelimit.Policy{Disabled: true})

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		rec, env := call(t, e, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.True(t, env.Success, path)
	}

	rec, env := call(t, e, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
}
