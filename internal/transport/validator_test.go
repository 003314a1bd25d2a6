package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/learnhub/pkg/apperr"
)

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	ae, ok := apperr.As(err)
	require.True(t, ok, "expected *apperr.Error, got %v", err)
	require.Equal(t, apperr.KindValidation, ae.Kind)
	out := make(map[string]string, len(ae.Fields))
	for _, f := range ae.Fields {
		out[f.Field] = f.Message
	}
	return out
}

func TestValidateStruct_Signup(t *testing.T) {
	t.Parallel()

	long := make([]byte, 129)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		name       string
		req        SignupRequest
		wantFields []string
	}{
		{"ok", SignupRequest{Name: "Ann", Email: "ann@x.com", Password: "secret1"}, nil},
		{"ok with role", SignupRequest{Name: "Ann", Email: "ann@x.com", Password: "secret1", Role: "instructor"}, nil},
		{"blank name", SignupRequest{Name: "   ", Email: "ann@x.com", Password: "secret1"}, []string{"name"}},
		{"bad email", SignupRequest{Name: "Ann", Email: "ann", Password: "secret1"}, []string{"email"}},
		{"short password", SignupRequest{Name: "Ann", Email: "ann@x.com", Password: "12345"}, []string{"password"}},
		{"long password", SignupRequest{Name: "Ann", Email: "ann@x.com", Password: string(long)}, []string{"password"}},
		{"bad role", SignupRequest{Name: "Ann", Email: "ann@x.com", Password: "secret1", Role: "root"}, []string{"role"}},
		{"everything", SignupRequest{}, []string{"name", "email", "password"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateStruct(tt.req)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}
			fields := fieldsOf(t, err)
			assert.Len(t, fields, len(tt.wantFields))
			for _, f := range tt.wantFields {
				assert.NotEmpty(t, fields[f], "missing message for %s", f)
			}
		})
	}
}

func TestValidateStruct_NotBlankMessage(t *testing.T) {
	t.Parallel()

	fields := fieldsOf(t, ValidateStruct(SignupRequest{Name: " ", Email: "a@b.co", Password: "secret1"}))
	assert.Equal(t, "name cannot be blank", fields["name"])
}

func TestValidateStruct_CourseAndProgress(t *testing.T) {
	t.Parallel()

	price := 10.0
	neg := -1.0
	ok := CreateCourseRequest{
		Title: "Go", Description: "d", Price: &price, Category: "programming",
		Difficulty: "beginner", Instructor: "Jane",
		Lessons: []LessonRequest{{Title: "one"}},
	}
	assert.NoError(t, ValidateStruct(ok))

	bad := ok
	bad.Price = &neg
	bad.Category = "cooking"
	bad.Lessons = []LessonRequest{{Title: ""}}
	fields := fieldsOf(t, ValidateStruct(bad))
	assert.Contains(t, fields, "price")
	assert.Contains(t, fields, "category")
	assert.Contains(t, fields, "title")

	noPrice := ok
	noPrice.Price = nil
	assert.Contains(t, fieldsOf(t, ValidateStruct(noPrice)), "price")

	assert.NoError(t, ValidateStruct(UpdateCourseRequest{}))

	f := false
	assert.NoError(t, ValidateStruct(ProgressRequest{LessonID: "x", Completed: &f}))
	assert.Contains(t, fieldsOf(t, ValidateStruct(ProgressRequest{LessonID: "x"})), "completed")

	assert.Contains(t, fieldsOf(t, ValidateStruct(EnrollRequest{CourseID: "nope"})), "courseId")
}
