package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/learnhub/internal/models"
)

type CourseFilter struct {
	Category   string
	Difficulty string
	Search     string
	// IDs restricts the result when non-nil; an empty slice matches nothing.
	IDs []uuid.UUID
}

func orderedLessons(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *GormRepo) CreateCourse(ctx context.Context, c *models.Course) error {
	return translate(r.DB.WithContext(ctx).Create(c).Error)
}

func (r *GormRepo) GetCourse(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	var course models.Course
	if err := r.DB.WithContext(ctx).
		Preload("Lessons", orderedLessons).
		Where("id = ?", id).
		First(&course).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *GormRepo) GetCourseBySlug(ctx context.Context, slug string) (*models.Course, error) {
	var course models.Course
	if err := r.DB.WithContext(ctx).
		Preload("Lessons", orderedLessons).
		Where("slug = ?", slug).
		First(&course).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func applyCourseFilter(q *gorm.DB, f CourseFilter) *gorm.DB {
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Difficulty != "" {
		q = q.Where("difficulty = ?", f.Difficulty)
	}
	if f.IDs != nil {
		q = q.Where("id IN ?", f.IDs)
	} else if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	return q
}

func (r *GormRepo) ListCourses(ctx context.Context, f CourseFilter, offset, limit int) (int64, []models.Course, error) {
	if f.IDs != nil && len(f.IDs) == 0 {
		return 0, []models.Course{}, nil
	}

	var total int64
	if err := applyCourseFilter(r.DB.WithContext(ctx).Model(&models.Course{}), f).
		Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Course, 0, limit)
	if err := applyCourseFilter(r.DB.WithContext(ctx).Model(&models.Course{}), f).
		Preload("Lessons", orderedLessons).
		Order("created_at DESC").
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

// UpdateCourse saves the course columns and, when replaceLessons is set,
// swaps the whole lesson list and re-derives the progress of every
// enrollment in the course, all inside one transaction.
func (r *GormRepo) UpdateCourse(ctx context.Context, c *models.Course, replaceLessons bool, now time.Time) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(c).Error; err != nil {
			return translate(err)
		}
		if !replaceLessons {
			return nil
		}
		if err := tx.Where("course_id = ?", c.ID).Delete(&models.Lesson{}).Error; err != nil {
			return err
		}
		if len(c.Lessons) > 0 {
			for i := range c.Lessons {
				c.Lessons[i].CourseID = c.ID
			}
			if err := tx.Create(&c.Lessons).Error; err != nil {
				return translate(err)
			}
		}
		return recomputeProgress(tx, c.ID, c.LessonIDs(), now)
	})
}

func recomputeProgress(tx *gorm.DB, courseID uuid.UUID, lessonIDs []string, now time.Time) error {
	var enrollments []models.Enrollment
	if err := tx.Where("course_id = ?", courseID).Find(&enrollments).Error; err != nil {
		return err
	}
	for i := range enrollments {
		e := &enrollments[i]
		before := e.ProgressPercentage
		if e.Recompute(lessonIDs, now) == models.CompletionUnchanged && before == e.ProgressPercentage {
			continue
		}
		if err := tx.Model(&models.Enrollment{}).Where("id = ?", e.ID).Updates(map[string]any{
			"progress_percentage": e.ProgressPercentage,
			"completed_at":        e.CompletedAt,
		}).Error; err != nil {
			return err
		}
	}
	return nil
}

// DeleteCourse removes the course with its lessons and enrollments.
func (r *GormRepo) DeleteCourse(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("course_id = ?", id).Delete(&models.Enrollment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&models.Lesson{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Course{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
