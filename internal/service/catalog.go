package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/learnhub/internal/models"
	"github.com/Skotchmaster/learnhub/internal/repo"
	"github.com/Skotchmaster/learnhub/internal/util"
	"github.com/Skotchmaster/learnhub/pkg/apperr"
	"github.com/Skotchmaster/learnhub/pkg/logging"
	"github.com/Skotchmaster/learnhub/pkg/mykafka"
	"github.com/Skotchmaster/learnhub/pkg/tokens"
)

type CourseStore interface {
	CreateCourse(ctx context.Context, c *models.Course) error
	GetCourse(ctx context.Context, id uuid.UUID) (*models.Course, error)
	GetCourseBySlug(ctx context.Context, slug string) (*models.Course, error)
	ListCourses(ctx context.Context, f repo.CourseFilter, offset, limit int) (int64, []models.Course, error)
	UpdateCourse(ctx context.Context, c *models.Course, replaceLessons bool, now time.Time) error
	DeleteCourse(ctx context.Context, id uuid.UUID) error
}

// CourseSearcher is the optional full-text index behind the search filter.
type CourseSearcher interface {
	IndexCourse(ctx context.Context, c *models.Course) error
	DeleteCourse(ctx context.Context, id uuid.UUID) error
	SearchIDs(ctx context.Context, query string) ([]uuid.UUID, error)
}

type CatalogService struct {
	Courses CourseStore
	Search  CourseSearcher
	Events  mykafka.Publisher
	Now     func() time.Time
}

type LessonInput struct {
	// ID keeps an existing lesson (and the progress recorded against it)
	// when it names one of the course's current lessons.
	ID          string
	Title       string
	ContentHTML string
	VideoURL    *string
	Order       int
}

type CourseInput struct {
	Title        string
	Description  string
	Price        float64
	Category     string
	Difficulty   string
	Instructor   string
	ThumbnailURL *string
	Lessons      []LessonInput
}

// CoursePatch carries only the fields to change. A non-nil Lessons
// replaces the whole list.
type CoursePatch struct {
	Title        *string
	Description  *string
	Price        *float64
	Category     *string
	Difficulty   *string
	Instructor   *string
	ThumbnailURL *string
	Lessons      []LessonInput
}

type CourseQuery struct {
	Category   string
	Difficulty string
	Search     string
	Page       int
	Limit      int
}

type CoursePage struct {
	Courses []models.Course
	Total   int64
	Page    int
	Limit   int
	Pages   int64
}

// buildLessons gives every lesson an id and defaults a missing order to its
// 1-based position. Ids naming a lesson in existing are reused, each once.
func buildLessons(in []LessonInput, existing []models.Lesson) []models.Lesson {
	known := make(map[uuid.UUID]bool, len(existing))
	for _, l := range existing {
		known[l.ID] = true
	}

	out := make([]models.Lesson, len(in))
	for i, l := range in {
		order := l.Order
		if order <= 0 {
			order = i + 1
		}
		id := uuid.New()
		if prev, err := uuid.Parse(l.ID); err == nil && known[prev] {
			id = prev
			delete(known, prev)
		}
		out[i] = models.Lesson{
			ID:          id,
			Title:       strings.TrimSpace(l.Title),
			ContentHTML: l.ContentHTML,
			VideoURL:    l.VideoURL,
			Order:       order,
		}
	}
	return out
}

func validateCourse(c *models.Course) error {
	var fields []apperr.FieldError
	if strings.TrimSpace(c.Title) == "" {
		fields = append(fields, apperr.FieldError{Field: "title", Message: "Title is required"})
	} else if c.Slug == "" {
		fields = append(fields, apperr.FieldError{Field: "title", Message: "Title must contain letters or digits"})
	}
	if strings.TrimSpace(c.Description) == "" {
		fields = append(fields, apperr.FieldError{Field: "description", Message: "Description is required"})
	}
	if c.Price < 0 {
		fields = append(fields, apperr.FieldError{Field: "price", Message: "Price cannot be negative"})
	}
	if !models.ValidCategory(c.Category) {
		fields = append(fields, apperr.FieldError{Field: "category", Message: "Invalid category"})
	}
	if !models.ValidDifficulty(c.Difficulty) {
		fields = append(fields, apperr.FieldError{Field: "difficulty", Message: "Invalid difficulty"})
	}
	if strings.TrimSpace(c.Instructor) == "" {
		fields = append(fields, apperr.FieldError{Field: "instructor", Message: "Instructor is required"})
	}
	for _, l := range c.Lessons {
		if l.Title == "" {
			fields = append(fields, apperr.FieldError{Field: "lessons", Message: "Every lesson needs a title"})
			break
		}
	}
	if len(fields) > 0 {
		return apperr.Validation("Validation failed", fields...)
	}
	return nil
}

func duplicateSlug(err error) error {
	return apperr.Conflict("A course with this title already exists").WithStatus(400).Wrap(err)
}

func courseNotFound() error {
	return apperr.NotFound("Course not found")
}

func (s *CatalogService) index(ctx context.Context, c *models.Course) {
	if s.Search == nil {
		return
	}
	if err := s.Search.IndexCourse(ctx, c); err != nil {
		logging.FromContext(ctx).Warn("course_index_failed", "course_id", c.ID.String(), "error", err)
	}
}

func (s *CatalogService) courseEvent(ctx context.Context, typ string, c *models.Course) {
	publish(ctx, s.Events, mykafka.TopicCourseEvents, c.ID.String(), Event{
		Type: typ, At: nowOr(s.Now), CourseID: c.ID.String(), Slug: c.Slug,
	})
}

// Create stores a new course. Instructors become its owner; courses created
// by an admin have no owner.
func (s *CatalogService) Create(ctx context.Context, actor tokens.Identity, in CourseInput) (*models.Course, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.create")

	c := &models.Course{
		ID:           uuid.New(),
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Price:        in.Price,
		Category:     in.Category,
		Difficulty:   in.Difficulty,
		Instructor:   strings.TrimSpace(in.Instructor),
		ThumbnailURL: in.ThumbnailURL,
		Lessons:      buildLessons(in.Lessons, nil),
		CreatedAt:    nowOr(s.Now),
	}
	c.Slug = util.Slugify(c.Title)
	if actor.Role == models.RoleInstructor {
		if id, err := uuid.Parse(actor.ID); err == nil {
			c.InstructorID = &id
		}
	}

	if err := validateCourse(c); err != nil {
		l.Warn("create_course_error", "status", 400, "reason", "validation failed")
		return nil, err
	}

	if err := s.Courses.CreateCourse(ctx, c); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			l.Warn("create_course_error", "status", 400, "reason", "duplicate slug", "slug", c.Slug)
			return nil, duplicateSlug(err)
		}
		l.Error("create_course_error", "status", 500, "error", err)
		return nil, apperr.Internal("cannot create course", err)
	}

	s.index(ctx, c)
	s.courseEvent(ctx, EventCourseCreated, c)
	l.Info("create_course_success", "course_id", c.ID.String())
	return c, nil
}

// Get accepts either the course id or its slug.
func (s *CatalogService) Get(ctx context.Context, idOrSlug string) (*models.Course, error) {
	if id, err := uuid.Parse(idOrSlug); err == nil {
		c, err := s.Courses.GetCourse(ctx, id)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Internal("cannot get course", err)
		}
	}

	c, err := s.Courses.GetCourseBySlug(ctx, idOrSlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, courseNotFound()
		}
		return nil, apperr.Internal("cannot get course", err)
	}
	return c, nil
}

func (s *CatalogService) List(ctx context.Context, q CourseQuery) (*CoursePage, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.list")

	f := repo.CourseFilter{
		Category:   q.Category,
		Difficulty: q.Difficulty,
		Search:     strings.TrimSpace(q.Search),
	}
	if f.Search != "" && s.Search != nil {
		ids, err := s.Search.SearchIDs(ctx, f.Search)
		if err != nil {
			l.Warn("course_search_fallback", "reason", "index unavailable", "error", err)
		} else {
			if ids == nil {
				ids = []uuid.UUID{}
			}
			f.IDs = ids
		}
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	offset, limit := util.Calculate(page, q.Limit)

	total, items, err := s.Courses.ListCourses(ctx, f, offset, limit)
	if err != nil {
		l.Error("list_courses_error", "status", 500, "error", err)
		return nil, apperr.Internal("cannot list courses", err)
	}
	return &CoursePage{
		Courses: items,
		Total:   total,
		Page:    page,
		Limit:   limit,
		Pages:   util.Pages(total, limit),
	}, nil
}

func (s *CatalogService) load(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	c, err := s.Courses.GetCourse(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, courseNotFound()
		}
		return nil, apperr.Internal("cannot get course", err)
	}
	return c, nil
}

func (s *CatalogService) Update(ctx context.Context, id uuid.UUID, p CoursePatch) (*models.Course, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.update", "course_id", id.String())

	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title != c.Title {
			c.Title = title
			c.Slug = util.Slugify(title)
		}
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Price != nil {
		c.Price = *p.Price
	}
	if p.Category != nil {
		c.Category = *p.Category
	}
	if p.Difficulty != nil {
		c.Difficulty = *p.Difficulty
	}
	if p.Instructor != nil {
		c.Instructor = strings.TrimSpace(*p.Instructor)
	}
	if p.ThumbnailURL != nil {
		c.ThumbnailURL = p.ThumbnailURL
	}
	replace := p.Lessons != nil
	if replace {
		c.Lessons = buildLessons(p.Lessons, c.Lessons)
	}

	if err := validateCourse(c); err != nil {
		l.Warn("update_course_error", "status", 400, "reason", "validation failed")
		return nil, err
	}

	if err := s.Courses.UpdateCourse(ctx, c, replace, nowOr(s.Now)); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			l.Warn("update_course_error", "status", 400, "reason", "duplicate slug", "slug", c.Slug)
			return nil, duplicateSlug(err)
		}
		l.Error("update_course_error", "status", 500, "error", err)
		return nil, apperr.Internal("cannot update course", err)
	}

	s.index(ctx, c)
	s.courseEvent(ctx, EventCourseUpdated, c)
	l.Info("update_course_success")
	return c, nil
}

func (s *CatalogService) Delete(ctx context.Context, id uuid.UUID) error {
	l := logging.FromContext(ctx).With("svc", "catalog.delete", "course_id", id.String())

	if err := s.Courses.DeleteCourse(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return courseNotFound()
		}
		l.Error("delete_course_error", "status", 500, "error", err)
		return apperr.Internal("cannot delete course", err)
	}

	if s.Search != nil {
		if err := s.Search.DeleteCourse(ctx, id); err != nil {
			l.Warn("course_unindex_failed", "error", err)
		}
	}
	s.courseEvent(ctx, EventCourseDeleted, &models.Course{ID: id})
	l.Info("delete_course_success")
	return nil
}

const reindexPageSize = 100

// Reindex pushes every stored course into the search index. Courses written
// while the index was disabled or unreachable are picked up this way. A
// course that fails to index is logged and skipped.
func (s *CatalogService) Reindex(ctx context.Context) (int, error) {
	if s.Search == nil {
		return 0, nil
	}
	l := logging.FromContext(ctx).With("svc", "catalog.reindex")

	indexed := 0
	for offset := 0; ; offset += reindexPageSize {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}
		_, items, err := s.Courses.ListCourses(ctx, repo.CourseFilter{}, offset, reindexPageSize)
		if err != nil {
			l.Error("reindex_error", "offset", offset, "error", err)
			return indexed, err
		}
		for i := range items {
			if err := s.Search.IndexCourse(ctx, &items[i]); err != nil {
				l.Warn("course_index_failed", "course_id", items[i].ID.String(), "error", err)
				continue
			}
			indexed++
		}
		if len(items) < reindexPageSize {
			break
		}
	}
	l.Info("reindex_success", "indexed", indexed)
	return indexed, nil
}

// CourseOwner resolves the owning instructor id of a course; "" when the
// course has no owner.
func (s *CatalogService) CourseOwner(ctx context.Context, courseID string) (string, error) {
	id, err := uuid.Parse(courseID)
	if err != nil {
		return "", apperr.Validation("Invalid course id").Wrap(err)
	}
	c, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	return c.OwnerID(), nil
}
