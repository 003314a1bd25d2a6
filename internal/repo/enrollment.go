package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/learnhub/internal/models"
)

type EnrollmentFilter struct {
	UserID   *uuid.UUID
	CourseID *uuid.UUID
	WithUser bool
}

// CreateEnrollment relies on the (user_id, course_id) unique index; a racing
// duplicate comes back as ErrDuplicate.
func (r *GormRepo) CreateEnrollment(ctx context.Context, e *models.Enrollment) error {
	return translate(r.DB.WithContext(ctx).Omit(clause.Associations).Create(e).Error)
}

func (r *GormRepo) GetEnrollment(ctx context.Context, id uuid.UUID) (*models.Enrollment, error) {
	var e models.Enrollment
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *GormRepo) FindEnrollment(ctx context.Context, userID, courseID uuid.UUID) (*models.Enrollment, error) {
	var e models.Enrollment
	if err := r.DB.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// MarkLesson reloads the enrollment under a row lock, flips one lesson and
// writes the result back, so concurrent marks on different lessons of the
// same enrollment all survive.
func (r *GormRepo) MarkLesson(ctx context.Context, id uuid.UUID, lessonID string, completed bool, lessonIDs []string, now time.Time) (*models.Enrollment, models.Completion, error) {
	var (
		e      models.Enrollment
		change models.Completion
	)
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&e).Error; err != nil {
			return err
		}
		change = e.MarkLesson(lessonID, completed, lessonIDs, now)
		return saveProgress(tx, &e)
	})
	if err != nil {
		return nil, models.CompletionUnchanged, err
	}
	return &e, change, nil
}

// saveProgress writes only the derived progress columns.
func saveProgress(tx *gorm.DB, e *models.Enrollment) error {
	res := tx.Model(&models.Enrollment{}).
		Where("id = ?", e.ID).
		Updates(map[string]any{
			"progress":            e.Progress,
			"progress_percentage": e.ProgressPercentage,
			"completed_at":        e.CompletedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) ListEnrollments(ctx context.Context, f EnrollmentFilter) ([]models.Enrollment, error) {
	q := r.DB.WithContext(ctx).Model(&models.Enrollment{}).Preload("Course")
	if f.WithUser {
		q = q.Preload("User")
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.CourseID != nil {
		q = q.Where("course_id = ?", *f.CourseID)
	}

	items := make([]models.Enrollment, 0)
	if err := q.Order("enrolled_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
