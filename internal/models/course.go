package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

var Categories = []string{"programming", "design", "business", "marketing", "data-science", "other"}

var Difficulties = []string{"beginner", "intermediate", "advanced"}

func ValidCategory(c string) bool { return slices.Contains(Categories, c) }

func ValidDifficulty(d string) bool { return slices.Contains(Difficulties, d) }

type Course struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"           json:"id"`
	Title        string     `gorm:"size:200;not null"              json:"title"`
	Slug         string     `gorm:"size:220;uniqueIndex;not null"  json:"slug"`
	Description  string     `gorm:"type:text;not null"             json:"description"`
	Price        float64    `gorm:"not null;check:price >= 0"      json:"price"`
	Category     string     `gorm:"size:40;not null;index"         json:"category"`
	Difficulty   string     `gorm:"size:20;not null;index"         json:"difficulty"`
	Instructor   string     `gorm:"size:100;not null"              json:"instructor"`
	InstructorID *uuid.UUID `gorm:"type:uuid;index"                json:"instructorId,omitempty"`
	ThumbnailURL *string    `gorm:"type:text"                      json:"thumbnailUrl"`
	Lessons      []Lesson   `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"lessons"`
	CreatedAt    time.Time  `gorm:"not null"                       json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type Lesson struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"        json:"id"`
	CourseID    uuid.UUID `gorm:"type:uuid;index;not null"    json:"-"`
	Title       string    `gorm:"size:200;not null"           json:"title"`
	ContentHTML string    `gorm:"type:text"                   json:"contentHtml"`
	VideoURL    *string   `gorm:"type:text"                   json:"videoUrl"`
	Order       int       `gorm:"column:position;not null"    json:"order"`
}

// LessonIDs lists the course's lesson ids as progress-map keys.
func (c *Course) LessonIDs() []string {
	ids := make([]string, len(c.Lessons))
	for i, l := range c.Lessons {
		ids[i] = l.ID.String()
	}
	return ids
}

func (c *Course) HasLesson(lessonID string) bool {
	return slices.Contains(c.LessonIDs(), lessonID)
}

func (c *Course) OwnerID() string {
	if c.InstructorID == nil {
		return ""
	}
	return c.InstructorID.String()
}
