package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/learnhub/internal/service"
	"github.com/Skotchmaster/learnhub/internal/transport"
	"github.com/Skotchmaster/learnhub/internal/util"
	"github.com/Skotchmaster/learnhub/pkg/apperr"
	middleware "github.com/Skotchmaster/learnhub/pkg/middleware/auth"
)

type CatalogHTTP struct {
	Svc *service.CatalogService
}

func lessonInputs(in []transport.LessonRequest) []service.LessonInput {
	if in == nil {
		return nil
	}
	out := make([]service.LessonInput, len(in))
	for i, l := range in {
		out[i] = service.LessonInput{
			ID:          l.ID,
			Title:       l.Title,
			ContentHTML: l.ContentHTML,
			VideoURL:    l.VideoURL,
			Order:       l.Order,
		}
	}
	return out
}

func courseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.Validation("Invalid course id").Wrap(err)
	}
	return id, nil
}

// OwnerFromParam resolves the owner of the course named by a path parameter.
func (h *CatalogHTTP) OwnerFromParam(param string) middleware.OwnerResolver {
	return func(c echo.Context) (string, error) {
		return h.Svc.CourseOwner(c.Request().Context(), c.Param(param))
	}
}

func (h *CatalogHTTP) List(c echo.Context) error {
	l := handlerLogger(c, "course.list")

	page, err := h.Svc.List(c.Request().Context(), service.CourseQuery{
		Category:   c.QueryParam("category"),
		Difficulty: c.QueryParam("difficulty"),
		Search:     c.QueryParam("search"),
		Page:       util.ParseIntDefault(c.QueryParam("page"), 1),
		Limit:      util.ParseIntDefault(c.QueryParam("limit"), util.DefaultPageSize),
	})
	if err != nil {
		return failed(l, "list_courses_error", err)
	}

	return c.JSON(http.StatusOK, transport.OK("Courses retrieved successfully", transport.CoursesData{
		Count:   len(page.Courses),
		Total:   page.Total,
		Page:    page.Page,
		Limit:   page.Limit,
		Pages:   page.Pages,
		Courses: page.Courses,
	}))
}

func (h *CatalogHTTP) Get(c echo.Context) error {
	l := handlerLogger(c, "course.get")

	course, err := h.Svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return failed(l, "get_course_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK("Course retrieved successfully", transport.CourseData{Course: course}))
}

func (h *CatalogHTTP) Create(c echo.Context) error {
	l := handlerLogger(c, "course.create")

	who, err := caller(c)
	if err != nil {
		return failed(l, "create_course_error", err)
	}

	var req transport.CreateCourseRequest
	if err := bindAndValidate(c, &req); err != nil {
		return failed(l, "create_course_error", err)
	}

	course, err := h.Svc.Create(c.Request().Context(), who, service.CourseInput{
		Title:        req.Title,
		Description:  req.Description,
		Price:        *req.Price,
		Category:     req.Category,
		Difficulty:   req.Difficulty,
		Instructor:   req.Instructor,
		ThumbnailURL: req.ThumbnailURL,
		Lessons:      lessonInputs(req.Lessons),
	})
	if err != nil {
		return failed(l, "create_course_error", err)
	}
	return c.JSON(http.StatusCreated, transport.OK("Course created successfully", transport.CourseData{Course: course}))
}

func (h *CatalogHTTP) Update(c echo.Context) error {
	l := handlerLogger(c, "course.update")

	id, err := courseID(c)
	if err != nil {
		return failed(l, "update_course_error", err)
	}

	var req transport.UpdateCourseRequest
	if err := bindAndValidate(c, &req); err != nil {
		return failed(l, "update_course_error", err)
	}

	course, err := h.Svc.Update(c.Request().Context(), id, service.CoursePatch{
		Title:        req.Title,
		Description:  req.Description,
		Price:        req.Price,
		Category:     req.Category,
		Difficulty:   req.Difficulty,
		Instructor:   req.Instructor,
		ThumbnailURL: req.ThumbnailURL,
		Lessons:      lessonInputs(req.Lessons),
	})
	if err != nil {
		return failed(l, "update_course_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK("Course updated successfully", transport.CourseData{Course: course}))
}

func (h *CatalogHTTP) Delete(c echo.Context) error {
	l := handlerLogger(c, "course.delete")

	id, err := courseID(c)
	if err != nil {
		return failed(l, "delete_course_error", err)
	}
	if err := h.Svc.Delete(c.Request().Context(), id); err != nil {
		return failed(l, "delete_course_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK("Course deleted successfully", nil))
}
