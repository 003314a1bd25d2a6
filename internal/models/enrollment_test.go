package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lessonIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = uuid.NewString()
	}
	return ids
}

func TestProgressPercentage(t *testing.T) {
	t.Parallel()

	ids := lessonIDs(3)
	tests := []struct {
		name string
		p    Progress
		ids  []string
		want int
	}{
		{"no lessons", Progress{"x": true}, nil, 0},
		{"none done", Progress{}, ids, 0},
		{"one of three", Progress{ids[0]: true}, ids, 33},
		{"two of three", Progress{ids[0]: true, ids[1]: true}, ids, 67},
		{"false entries ignored", Progress{ids[0]: true, ids[1]: false}, ids, 33},
		{"stale keys ignored", Progress{ids[0]: true, "gone": true, "gone2": true, "gone3": true}, ids, 33},
		{"all done", Progress{ids[0]: true, ids[1]: true, ids[2]: true}, ids, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ProgressPercentage(tt.p, tt.ids))
		})
	}
}

func TestEnrollment_MarkLesson_StampsAndClearsCompletion(t *testing.T) {
	t.Parallel()

	ids := lessonIDs(4)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e := NewEnrollment(uuid.New(), uuid.New(), now)

	for i, id := range ids[:3] {
		assert.Equal(t, CompletionUnchanged, e.MarkLesson(id, true, ids, now))
		assert.Equal(t, (i+1)*25, e.ProgressPercentage)
		assert.Nil(t, e.CompletedAt)
	}

	assert.Equal(t, CompletionReached, e.MarkLesson(ids[3], true, ids, now))
	assert.Equal(t, 100, e.ProgressPercentage)
	require.NotNil(t, e.CompletedAt)
	assert.Equal(t, now, *e.CompletedAt)

	// Re-marking a done lesson keeps the first stamp.
	later := now.Add(time.Hour)
	assert.Equal(t, CompletionUnchanged, e.MarkLesson(ids[3], true, ids, later))
	assert.Equal(t, now, *e.CompletedAt)

	assert.Equal(t, CompletionReopened, e.MarkLesson(ids[1], false, ids, later))
	assert.Equal(t, 75, e.ProgressPercentage)
	assert.Nil(t, e.CompletedAt)
	assert.False(t, e.ProgressMap()[ids[1]])
}

func TestEnrollment_ProgressMapIsACopy(t *testing.T) {
	t.Parallel()

	e := NewEnrollment(uuid.New(), uuid.New(), time.Now())
	p := e.ProgressMap()
	p["x"] = true
	assert.Empty(t, e.ProgressMap())
}

func TestEnrollment_ProgressJSONKeepsArbitraryKeys(t *testing.T) {
	t.Parallel()

	ids := lessonIDs(2)
	e := NewEnrollment(uuid.New(), uuid.New(), time.Now())
	e.MarkLesson(ids[0], true, ids, time.Now())
	e.MarkLesson(ids[1], false, ids, time.Now())

	raw, err := json.Marshal(e)
	require.NoError(t, err)

	var out struct {
		Progress map[string]bool `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, map[string]bool{ids[0]: true, ids[1]: false}, out.Progress)
}

func TestCourse_Lessons(t *testing.T) {
	t.Parallel()

	c := &Course{Lessons: []Lesson{{ID: uuid.New()}, {ID: uuid.New()}}}
	assert.Len(t, c.LessonIDs(), 2)
	assert.True(t, c.HasLesson(c.Lessons[1].ID.String()))
	assert.False(t, c.HasLesson(uuid.NewString()))
	assert.Equal(t, "", c.OwnerID())

	owner := uuid.New()
	c.InstructorID = &owner
	assert.Equal(t, owner.String(), c.OwnerID())

	assert.True(t, ValidRole(RoleInstructor))
	assert.False(t, ValidRole("root"))
	assert.True(t, ValidCategory("data-science"))
	assert.False(t, ValidDifficulty("expert"))
}
