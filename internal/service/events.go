package service

import (
	"context"
	"time"

	"github.com/Skotchmaster/learnhub/pkg/logging"
	"github.com/Skotchmaster/learnhub/pkg/mykafka"
)

const (
	EventUserSignedUp      = "user_signed_up"
	EventCourseCreated     = "course_created"
	EventCourseUpdated     = "course_updated"
	EventCourseDeleted     = "course_deleted"
	EventEnrollmentCreated = "enrollment_created"
	EventCourseCompleted   = "course_completed"
	EventCourseReopened    = "course_reopened"
)

type Event struct {
	Type         string    `json:"type"`
	At           time.Time `json:"at"`
	UserID       string    `json:"userId,omitempty"`
	Email        string    `json:"email,omitempty"`
	Role         string    `json:"role,omitempty"`
	CourseID     string    `json:"courseId,omitempty"`
	Slug         string    `json:"slug,omitempty"`
	EnrollmentID string    `json:"enrollmentId,omitempty"`
	Progress     *int      `json:"progressPercentage,omitempty"`
}

// publish never fails the caller; a lost event is only logged.
func publish(ctx context.Context, p mykafka.Publisher, topic, key string, ev Event) {
	if p == nil {
		return
	}
	if err := p.PublishEvent(ctx, topic, key, ev); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed", "topic", topic, "type", ev.Type, "error", err)
	}
}

func nowOr(now func() time.Time) time.Time {
	if now != nil {
		return now().UTC()
	}
	return time.Now().UTC()
}
