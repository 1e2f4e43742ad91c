package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Lesson is embedded in a Module
type Lesson struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	Title    string             `bson:"title" json:"title"`
	Content  string             `bson:"content" json:"content"`
	VideoURL string             `bson:"videoUrl,omitempty" json:"videoUrl,omitempty"`
	Duration int                `bson:"duration" json:"duration"` // minutes
	Order    int                `bson:"order" json:"order"`
}

// Module is embedded in a Course
type Module struct {
	ID      primitive.ObjectID `bson:"_id" json:"id"`
	Title   string             `bson:"title" json:"title"`
	Order   int                `bson:"order" json:"order"`
	Lessons []Lesson           `bson:"lessons" json:"lessons"`
}

// Course is stored in the courses collection
type Course struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Community     primitive.ObjectID   `bson:"community" json:"communityId"`
	Title         string               `bson:"title" json:"title"`
	Description   string               `bson:"description" json:"description"`
	CreatedBy     primitive.ObjectID   `bson:"createdBy" json:"createdBy"`
	IsPublished   bool                 `bson:"isPublished" json:"isPublished"`
	EnrolledUsers []primitive.ObjectID `bson:"enrolledUsers" json:"enrolledUsers"`
	Modules       []Module             `bson:"modules" json:"modules"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// TotalLessons counts lessons across all modules.
func (c *Course) TotalLessons() int {
	n := 0
	for _, m := range c.Modules {
		n += len(m.Lessons)
	}
	return n
}

// FindLesson returns the lesson with id and whether it exists.
func (c *Course) FindLesson(id primitive.ObjectID) (*Lesson, bool) {
	for i := range c.Modules {
		for j := range c.Modules[i].Lessons {
			if c.Modules[i].Lessons[j].ID == id {
				return &c.Modules[i].Lessons[j], true
			}
		}
	}
	return nil, false
}

// FindModule returns the index of the module with id or -1.
func (c *Course) FindModule(id primitive.ObjectID) int {
	for i := range c.Modules {
		if c.Modules[i].ID == id {
			return i
		}
	}
	return -1
}

// UserProgress is stored in the user_progress collection, one per (user, course)
type UserProgress struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	User             primitive.ObjectID   `bson:"user" json:"userId"`
	Course           primitive.ObjectID   `bson:"course" json:"courseId"`
	CompletedLessons []primitive.ObjectID `bson:"completedLessons" json:"completedLessons"`
	Progress         float64              `bson:"progress" json:"progress"`
	LastAccessedAt   time.Time            `bson:"lastAccessedAt" json:"lastAccessedAt"`
	CompletedAt      *time.Time           `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CreatedAt        time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// CalculateProgress returns completed/total as a percentage rounded to two decimals.
func CalculateProgress(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	if completed > total {
		completed = total
	}
	return math.Round(float64(completed)/float64(total)*10000) / 100
}
