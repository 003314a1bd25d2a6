package models

import (
	"maps"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Progress maps lesson id to completion. Keys are arbitrary lesson ids and
// survive a JSON round trip unchanged.
type Progress map[string]bool

func (p Progress) CompletedOf(lessonIDs []string) int {
	n := 0
	for _, id := range lessonIDs {
		if p[id] {
			n++
		}
	}
	return n
}

// ProgressPercentage is round(100 * completed / total); a course without
// lessons is at 0%.
func ProgressPercentage(p Progress, lessonIDs []string) int {
	if len(lessonIDs) == 0 {
		return 0
	}
	return int(math.Round(100 * float64(p.CompletedOf(lessonIDs)) / float64(len(lessonIDs))))
}

type Completion int

const (
	CompletionUnchanged Completion = iota
	CompletionReached
	CompletionReopened
)

type Enrollment struct {
	ID                 uuid.UUID                    `gorm:"type:uuid;primaryKey"                                 json:"id"`
	UserID             uuid.UUID                    `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_user_course" json:"userId"`
	CourseID           uuid.UUID                    `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_user_course;index" json:"courseId"`
	Progress           datatypes.JSONType[Progress] `gorm:"not null"                                             json:"progress"`
	ProgressPercentage int                          `gorm:"not null;default:0;check:progress_percentage BETWEEN 0 AND 100" json:"progressPercentage"`
	EnrolledAt         time.Time                    `gorm:"not null;index"                                       json:"enrolledAt"`
	CompletedAt        *time.Time                   `json:"completedAt"`

	Course *Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	User   *User   `gorm:"foreignKey:UserID"   json:"user,omitempty"`
}

func NewEnrollment(userID, courseID uuid.UUID, now time.Time) *Enrollment {
	return &Enrollment{
		ID:         uuid.New(),
		UserID:     userID,
		CourseID:   courseID,
		Progress:   datatypes.NewJSONType(Progress{}),
		EnrolledAt: now,
	}
}

func (e *Enrollment) ProgressMap() Progress {
	p := e.Progress.Data()
	if p == nil {
		return Progress{}
	}
	return maps.Clone(p)
}

// MarkLesson records completion for one lesson and recomputes the derived
// state against the course's current lessons.
func (e *Enrollment) MarkLesson(lessonID string, completed bool, lessonIDs []string, now time.Time) Completion {
	p := e.ProgressMap()
	p[lessonID] = completed
	e.Progress = datatypes.NewJSONType(p)
	return e.Recompute(lessonIDs, now)
}

// Recompute derives the percentage from the stored progress and the given
// lesson set. completedAt is stamped when the percentage reaches 100 and
// cleared when it falls below.
func (e *Enrollment) Recompute(lessonIDs []string, now time.Time) Completion {
	e.ProgressPercentage = ProgressPercentage(e.ProgressMap(), lessonIDs)

	switch {
	case e.ProgressPercentage == 100 && e.CompletedAt == nil:
		t := now
		e.CompletedAt = &t
		return CompletionReached
	case e.ProgressPercentage < 100 && e.CompletedAt != nil:
		e.CompletedAt = nil
		return CompletionReopened
	}
	return CompletionUnchanged
}
