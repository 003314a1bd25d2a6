package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/learnhub/internal/models"
	"github.com/Skotchmaster/learnhub/internal/service"
	"github.com/Skotchmaster/learnhub/internal/transport"
)

type EnrollmentHTTP struct {
	Svc *service.EnrollmentService
}

func enrollmentsData(items []models.Enrollment) transport.EnrollmentsData {
	return transport.EnrollmentsData{Count: len(items), Enrollments: items}
}

func (h *EnrollmentHTTP) Enroll(c echo.Context) error {
	l := handlerLogger(c, "enrollment.enroll")

	who, err := caller(c)
	if err != nil {
		return failed(l, "enroll_error", err)
	}
	var req transport.EnrollRequest
	if err := bindAndValidate(c, &req); err != nil {
		return failed(l, "enroll_error", err)
	}

	e, err := h.Svc.Enroll(c.Request().Context(), who, req.CourseID)
	if err != nil {
		return failed(l, "enroll_error", err)
	}
	return c.JSON(http.StatusCreated, transport.OK("Enrolled successfully", transport.EnrollmentData{Enrollment: e}))
}

func (h *EnrollmentHTTP) Mine(c echo.Context) error {
	l := handlerLogger(c, "enrollment.mine")

	who, err := caller(c)
	if err != nil {
		return failed(l, "list_enrollments_error", err)
	}
	items, err := h.Svc.ListMine(c.Request().Context(), who)
	if err != nil {
		return failed(l, "list_enrollments_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK("Enrollments retrieved successfully", enrollmentsData(items)))
}

func (h *EnrollmentHTTP) UpdateProgress(c echo.Context) error {
	l := handlerLogger(c, "enrollment.progress")

	who, err := caller(c)
	if err != nil {
		return failed(l, "progress_error", err)
	}
	var req transport.ProgressRequest
	if err := bindAndValidate(c, &req); err != nil {
		return failed(l, "progress_error", err)
	}

	e, err := h.Svc.UpdateProgress(c.Request().Context(), who, c.Param("id"), req.LessonID, *req.Completed)
	if err != nil {
		return failed(l, "progress_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK("Progress updated successfully", transport.EnrollmentData{Enrollment: e}))
}

func (h *EnrollmentHTTP) Get(c echo.Context) error {
	l := handlerLogger(c, "enrollment.get")

	who, err := caller(c)
	if err != nil {
		return failed(l, "get_enrollment_error", err)
	}
	e, err := h.Svc.Get(c.Request().Context(), who, c.Param("id"))
	if err != nil {
		return failed(l, "get_enrollment_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK("Enrollment retrieved successfully", transport.EnrollmentData{Enrollment: e}))
}

func (h *EnrollmentHTTP) All(c echo.Context) error {
	l := handlerLogger(c, "enrollment.all")

	items, err := h.Svc.ListAll(c.Request().Context(), c.QueryParam("userId"), c.QueryParam("courseId"))
	if err != nil {
		return failed(l, "list_enrollments_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK("Enrollments retrieved successfully", enrollmentsData(items)))
}

func (h *EnrollmentHTTP) ForCourse(c echo.Context) error {
	l := handlerLogger(c, "enrollment.for_course")

	items, err := h.Svc.ListForCourse(c.Request().Context(), c.Param("courseId"))
	if err != nil {
		return failed(l, "list_enrollments_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK("Enrollments retrieved successfully", enrollmentsData(items)))
}
