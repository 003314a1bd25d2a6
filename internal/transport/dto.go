package transport

import (
	"time"

	"github.com/Skotchmaster/learnhub/internal/models"
)

type SignupRequest struct {
	Name     string `json:"name"     validate:"required,notblank,max=100"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Role     string `json:"role"     validate:"omitempty,oneof=student instructor admin"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"    validate:"required"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

type LessonRequest struct {
	ID          string  `json:"id"          validate:"omitempty,uuid"`
	Title       string  `json:"title"       validate:"required,notblank,max=200"`
	ContentHTML string  `json:"contentHtml"`
	VideoURL    *string `json:"videoUrl"    validate:"omitempty,url"`
	Order       int     `json:"order"       validate:"min=0"`
}

type CreateCourseRequest struct {
	Title        string          `json:"title"        validate:"required,notblank,max=200"`
	Description  string          `json:"description"  validate:"required,notblank"`
	Price        *float64        `json:"price"        validate:"required,min=0"`
	Category     string          `json:"category"     validate:"required,oneof=programming design business marketing data-science other"`
	Difficulty   string          `json:"difficulty"   validate:"required,oneof=beginner intermediate advanced"`
	Instructor   string          `json:"instructor"   validate:"required,notblank,max=100"`
	ThumbnailURL *string         `json:"thumbnailUrl" validate:"omitempty,url"`
	Lessons      []LessonRequest `json:"lessons"      validate:"dive"`
}

// UpdateCourseRequest leaves absent fields untouched; a present lessons
// array replaces the whole list.
type UpdateCourseRequest struct {
	Title        *string         `json:"title"        validate:"omitempty,notblank,max=200"`
	Description  *string         `json:"description"  validate:"omitempty,notblank"`
	Price        *float64        `json:"price"        validate:"omitempty,min=0"`
	Category     *string         `json:"category"     validate:"omitempty,oneof=programming design business marketing data-science other"`
	Difficulty   *string         `json:"difficulty"   validate:"omitempty,oneof=beginner intermediate advanced"`
	Instructor   *string         `json:"instructor"   validate:"omitempty,notblank,max=100"`
	ThumbnailURL *string         `json:"thumbnailUrl" validate:"omitempty,url"`
	Lessons      []LessonRequest `json:"lessons"      validate:"dive"`
}

type EnrollRequest struct {
	CourseID string `json:"courseId" validate:"required,uuid"`
}

type ProgressRequest struct {
	LessonID  string `json:"lessonId"  validate:"required"`
	Completed *bool  `json:"completed" validate:"required"`
}

type UserView struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

func NewUserView(u *models.User, withCreated bool) *UserView {
	v := &UserView{ID: u.ID.String(), Name: u.Name, Email: u.Email, Role: u.Role}
	if withCreated {
		t := u.CreatedAt
		v.CreatedAt = &t
	}
	return v
}

type AuthData struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	User         *UserView `json:"user,omitempty"`
}

type UserData struct {
	User *UserView `json:"user"`
}

type CourseData struct {
	Course *models.Course `json:"course"`
}

type CoursesData struct {
	Count   int             `json:"count"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
	Pages   int64           `json:"pages"`
	Courses []models.Course `json:"courses"`
}

type EnrollmentData struct {
	Enrollment *models.Enrollment `json:"enrollment"`
}

type EnrollmentsData struct {
	Count       int                 `json:"count"`
	Enrollments []models.Enrollment `json:"enrollments"`
}
