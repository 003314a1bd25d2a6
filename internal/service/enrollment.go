package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/learnhub/internal/models"
	"github.com/Skotchmaster/learnhub/internal/repo"
	"github.com/Skotchmaster/learnhub/pkg/apperr"
	"github.com/Skotchmaster/learnhub/pkg/logging"
	"github.com/Skotchmaster/learnhub/pkg/mykafka"
	"github.com/Skotchmaster/learnhub/pkg/tokens"
)

type EnrollmentStore interface {
	CreateEnrollment(ctx context.Context, e *models.Enrollment) error
	GetEnrollment(ctx context.Context, id uuid.UUID) (*models.Enrollment, error)
	FindEnrollment(ctx context.Context, userID, courseID uuid.UUID) (*models.Enrollment, error)
	MarkLesson(ctx context.Context, id uuid.UUID, lessonID string, completed bool, lessonIDs []string, now time.Time) (*models.Enrollment, models.Completion, error)
	ListEnrollments(ctx context.Context, f repo.EnrollmentFilter) ([]models.Enrollment, error)
}

type CourseReader interface {
	GetCourse(ctx context.Context, id uuid.UUID) (*models.Course, error)
}

type EnrollmentService struct {
	Enrollments EnrollmentStore
	Courses     CourseReader
	Events      mykafka.Publisher
	Now         func() time.Time
}

func alreadyEnrolled() *apperr.Error {
	return apperr.Conflict("Already enrolled in this course")
}

func parseID(raw, field, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Validation("Invalid "+what+" id",
			apperr.FieldError{Field: field, Message: "must be a valid id"}).Wrap(err)
	}
	return id, nil
}

func (s *EnrollmentService) course(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	c, err := s.Courses.GetCourse(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Course not found")
		}
		return nil, apperr.Internal("cannot get course", err)
	}
	return c, nil
}

func (s *EnrollmentService) enrollment(ctx context.Context, rawID string) (*models.Enrollment, error) {
	id, err := parseID(rawID, "id", "enrollment")
	if err != nil {
		return nil, err
	}
	e, err := s.Enrollments.GetEnrollment(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Enrollment not found")
		}
		return nil, apperr.Internal("cannot get enrollment", err)
	}
	return e, nil
}

// Enroll creates the (user, course) enrollment. The pre-check and the unique
// index both report a duplicate as the same conflict.
func (s *EnrollmentService) Enroll(ctx context.Context, actor tokens.Identity, courseID string) (*models.Enrollment, error) {
	l := logging.FromContext(ctx).With("svc", "enrollment.enroll", "user_id", actor.ID)

	userID, err := uuid.Parse(actor.ID)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid token").Wrap(err)
	}
	cid, err := parseID(courseID, "courseId", "course")
	if err != nil {
		return nil, err
	}

	c, err := s.course(ctx, cid)
	if err != nil {
		l.Warn("enroll_error", "reason", "course lookup", "error", err)
		return nil, err
	}

	if _, err := s.Enrollments.FindEnrollment(ctx, userID, cid); err == nil {
		l.Warn("enroll_error", "status", 409, "reason", "already enrolled")
		return nil, alreadyEnrolled()
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		l.Error("enroll_error", "status", 500, "error", err)
		return nil, apperr.Internal("cannot check enrollment", err)
	}

	e := models.NewEnrollment(userID, cid, nowOr(s.Now))
	if err := s.Enrollments.CreateEnrollment(ctx, e); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			l.Warn("enroll_error", "status", 409, "reason", "already enrolled (race)")
			return nil, alreadyEnrolled().Wrap(err)
		}
		l.Error("enroll_error", "status", 500, "error", err)
		return nil, apperr.Internal("cannot create enrollment", err)
	}
	e.Course = c

	publish(ctx, s.Events, mykafka.TopicEnrollmentEvents, e.ID.String(), Event{
		Type: EventEnrollmentCreated, At: e.EnrolledAt,
		UserID: actor.ID, CourseID: cid.String(), EnrollmentID: e.ID.String(),
	})
	l.Info("enroll_success", "enrollment_id", e.ID.String(), "course_id", cid.String())
	return e, nil
}

// UpdateProgress is owner-only; admins get no exception here.
func (s *EnrollmentService) UpdateProgress(ctx context.Context, actor tokens.Identity, enrollmentID, lessonID string, completed bool) (*models.Enrollment, error) {
	l := logging.FromContext(ctx).With("svc", "enrollment.progress", "user_id", actor.ID)

	e, err := s.enrollment(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if e.UserID.String() != actor.ID {
		l.Warn("progress_error", "status", 403, "reason", "not owner", "enrollment_id", enrollmentID)
		return nil, apperr.Forbidden("Not authorized to update this enrollment")
	}

	c, err := s.course(ctx, e.CourseID)
	if err != nil {
		return nil, err
	}
	if !c.HasLesson(lessonID) {
		l.Warn("progress_error", "status", 404, "reason", "lesson not in course", "lesson_id", lessonID)
		return nil, apperr.NotFound("Lesson not found in this course")
	}

	now := nowOr(s.Now)
	e, change, err := s.Enrollments.MarkLesson(ctx, e.ID, lessonID, completed, c.LessonIDs(), now)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Enrollment not found")
		}
		l.Error("progress_error", "status", 500, "error", err)
		return nil, apperr.Internal("cannot save progress", err)
	}
	e.Course = c

	var typ string
	switch change {
	case models.CompletionReached:
		typ = EventCourseCompleted
	case models.CompletionReopened:
		typ = EventCourseReopened
	}
	if typ != "" {
		pct := e.ProgressPercentage
		publish(ctx, s.Events, mykafka.TopicEnrollmentEvents, e.ID.String(), Event{
			Type: typ, At: now, UserID: actor.ID, CourseID: c.ID.String(),
			EnrollmentID: e.ID.String(), Progress: &pct,
		})
	}
	l.Info("progress_success", "enrollment_id", e.ID.String(), "progress", e.ProgressPercentage)
	return e, nil
}

// Get is open to the enrolled user, the course's instructor and admins.
func (s *EnrollmentService) Get(ctx context.Context, actor tokens.Identity, enrollmentID string) (*models.Enrollment, error) {
	e, err := s.enrollment(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	c, err := s.course(ctx, e.CourseID)
	if err != nil {
		return nil, err
	}
	e.Course = c

	if actor.Role == models.RoleAdmin || e.UserID.String() == actor.ID {
		return e, nil
	}
	if owner := c.OwnerID(); owner != "" && owner == actor.ID {
		return e, nil
	}
	return nil, apperr.Forbidden("Not authorized to view this enrollment")
}

func (s *EnrollmentService) ListMine(ctx context.Context, actor tokens.Identity) ([]models.Enrollment, error) {
	userID, err := uuid.Parse(actor.ID)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid token").Wrap(err)
	}
	items, err := s.Enrollments.ListEnrollments(ctx, repo.EnrollmentFilter{UserID: &userID})
	if err != nil {
		return nil, apperr.Internal("cannot list enrollments", err)
	}
	return items, nil
}

// ListAll is the admin projection; empty filters are ignored.
func (s *EnrollmentService) ListAll(ctx context.Context, userID, courseID string) ([]models.Enrollment, error) {
	f := repo.EnrollmentFilter{WithUser: true}
	if userID != "" {
		id, err := parseID(userID, "userId", "user")
		if err != nil {
			return nil, err
		}
		f.UserID = &id
	}
	if courseID != "" {
		id, err := parseID(courseID, "courseId", "course")
		if err != nil {
			return nil, err
		}
		f.CourseID = &id
	}
	items, err := s.Enrollments.ListEnrollments(ctx, f)
	if err != nil {
		return nil, apperr.Internal("cannot list enrollments", err)
	}
	return items, nil
}

// ListForCourse lists a course's enrollments; the route guards ownership.
func (s *EnrollmentService) ListForCourse(ctx context.Context, courseID string) ([]models.Enrollment, error) {
	cid, err := parseID(courseID, "courseId", "course")
	if err != nil {
		return nil, err
	}
	if _, err := s.course(ctx, cid); err != nil {
		return nil, err
	}
	items, err := s.Enrollments.ListEnrollments(ctx, repo.EnrollmentFilter{CourseID: &cid, WithUser: true})
	if err != nil {
		return nil, apperr.Internal("cannot list enrollments", err)
	}
	return items, nil
}
