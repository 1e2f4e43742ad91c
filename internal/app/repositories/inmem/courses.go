package inmem

import (
	"context"
	"time"

	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/app/repositories"
	"github.com/yigit/circlehub/internal/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type courseRepository struct {
	db *DB
}

func NewCourseRepository(db *DB) repositories.CourseRepository {
	return &courseRepository{db: db}
}

func cloneCourse(c *models.Course) *models.Course {
	out := *c
	out.EnrolledUsers = cloneIDs(c.EnrolledUsers)
	out.Modules = make([]models.Module, len(c.Modules))
	for i, m := range c.Modules {
		m.Lessons = append([]models.Lesson{}, m.Lessons...)
		out.Modules[i] = m
	}
	return &out
}

func (repo *courseRepository) Create(_ context.Context, c *models.Course) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	now := repo.db.Now()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	c.CreatedAt, c.UpdatedAt = now, now
	repo.db.courses[c.ID] = cloneCourse(c)
	return nil
}

func (repo *courseRepository) GetByID(_ context.Context, id ID) (*models.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if c, ok := repo.db.courses[id]; ok {
		return cloneCourse(c), nil
	}
	return nil, notFound("GetCourseByID")
}

func (repo *courseRepository) ListByCommunity(_ context.Context, communityID ID, publishedOnly bool) ([]models.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	items := make([]models.Course, 0)
	for _, c := range repo.db.courses {
		if c.Community != communityID || (publishedOnly && !c.IsPublished) {
			continue
		}
		items = append(items, *cloneCourse(c))
	}
	newest(items, func(c models.Course) time.Time { return c.CreatedAt })
	return items, nil
}

func (repo *courseRepository) mutate(op string, id ID, fn func(*models.Course) error) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	c, ok := repo.db.courses[id]
	if !ok {
		return notFound(op)
	}
	if err := fn(c); err != nil {
		return err
	}
	c.UpdatedAt = repo.db.Now()
	return nil
}

func (repo *courseRepository) Update(_ context.Context, id ID, title, description string) error {
	return repo.mutate("UpdateCourse", id, func(c *models.Course) error {
		c.Title, c.Description = title, description
		return nil
	})
}

func (repo *courseRepository) SetPublished(_ context.Context, id ID, published bool) error {
	return repo.mutate("PublishCourse", id, func(c *models.Course) error {
		c.IsPublished = published
		return nil
	})
}

func (repo *courseRepository) Delete(_ context.Context, id ID) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if _, ok := repo.db.courses[id]; !ok {
		return apperrors.ErrResourceNotFound
	}
	delete(repo.db.courses, id)
	return nil
}

func (repo *courseRepository) AddModule(_ context.Context, id ID, module models.Module) error {
	return repo.mutate("AddModule", id, func(c *models.Course) error {
		if module.Lessons == nil {
			module.Lessons = []models.Lesson{}
		}
		c.Modules = append(c.Modules, module)
		return nil
	})
}

func (repo *courseRepository) AddLesson(_ context.Context, id, moduleID ID, lesson models.Lesson) error {
	return repo.mutate("AddLesson", id, func(c *models.Course) error {
		idx := c.FindModule(moduleID)
		if idx < 0 {
			return notFound("AddLesson")
		}
		c.Modules[idx].Lessons = append(c.Modules[idx].Lessons, lesson)
		return nil
	})
}

func (repo *courseRepository) RemoveLesson(_ context.Context, id, lessonID ID) error {
	return repo.mutate("RemoveLesson", id, func(c *models.Course) error {
		for i := range c.Modules {
			kept := c.Modules[i].Lessons[:0]
			for _, l := range c.Modules[i].Lessons {
				if l.ID != lessonID {
					kept = append(kept, l)
				}
			}
			c.Modules[i].Lessons = kept
		}
		return nil
	})
}

func (repo *courseRepository) Enroll(_ context.Context, id, userID ID) error {
	return repo.mutate("EnrollCourse", id, func(c *models.Course) error {
		c.EnrolledUsers, _ = models.AddID(c.EnrolledUsers, userID)
		return nil
	})
}

func (repo *courseRepository) Unenroll(_ context.Context, id, userID ID) error {
	return repo.mutate("UnenrollCourse", id, func(c *models.Course) error {
		c.EnrolledUsers, _ = models.RemoveID(c.EnrolledUsers, userID)
		return nil
	})
}

type progressRepository struct {
	db *DB
}

func NewProgressRepository(db *DB) repositories.ProgressRepository {
	return &progressRepository{db: db}
}

func cloneProgress(p *models.UserProgress) *models.UserProgress {
	out := *p
	out.CompletedLessons = cloneIDs(p.CompletedLessons)
	return &out
}

func (repo *progressRepository) lookup(userID, courseID ID) *models.UserProgress {
	for _, p := range repo.db.progress {
		if p.User == userID && p.Course == courseID {
			return p
		}
	}
	return nil
}

func (repo *progressRepository) Create(_ context.Context, p *models.UserProgress) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if repo.lookup(p.User, p.Course) != nil {
		return apperrors.NewConflictError("progress already exists")
	}
	now := repo.db.Now()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.CreatedAt, p.UpdatedAt, p.LastAccessedAt = now, now, now
	if p.CompletedLessons == nil {
		p.CompletedLessons = []ID{}
	}
	repo.db.progress[p.ID] = cloneProgress(p)
	return nil
}

func (repo *progressRepository) Get(_ context.Context, userID, courseID ID) (*models.UserProgress, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if p := repo.lookup(userID, courseID); p != nil {
		return cloneProgress(p), nil
	}
	return nil, notFound("GetProgress")
}

func (repo *progressRepository) AddCompletedLesson(_ context.Context, userID, courseID, lessonID ID, at time.Time) (*models.UserProgress, bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	p := repo.lookup(userID, courseID)
	if p == nil {
		return nil, false, notFound("CompleteLesson")
	}
	var added bool
	p.CompletedLessons, added = models.AddID(p.CompletedLessons, lessonID)
	if added {
		p.LastAccessedAt, p.UpdatedAt = at, at
	}
	return cloneProgress(p), added, nil
}

func (repo *progressRepository) ListByCourse(_ context.Context, courseID ID) ([]models.UserProgress, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	out := []models.UserProgress{}
	for _, p := range repo.db.progress {
		if p.Course == courseID {
			out = append(out, *cloneProgress(p))
		}
	}
	return out, nil
}

func (repo *progressRepository) SetProgress(_ context.Context, id ID, progress float64, completedAt *time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	p, ok := repo.db.progress[id]
	if !ok {
		return notFound("SetProgress")
	}
	p.Progress = progress
	p.CompletedAt = nil
	if completedAt != nil {
		p.CompletedAt = timePtr(*completedAt)
	}
	p.UpdatedAt = repo.db.Now()
	return nil
}

func (repo *progressRepository) Delete(_ context.Context, userID, courseID ID) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if p := repo.lookup(userID, courseID); p != nil {
		delete(repo.db.progress, p.ID)
	}
	return nil
}

func (repo *progressRepository) DeleteByCourse(_ context.Context, courseID ID) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	var n int64
	for id, p := range repo.db.progress {
		if p.Course == courseID {
			delete(repo.db.progress, id)
			n++
		}
	}
	return n, nil
}
