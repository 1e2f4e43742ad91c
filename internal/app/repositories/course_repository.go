package repositories

import (
	"context"
	"time"

	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCourseRepository implements CourseRepository on the courses collection
type MongoCourseRepository struct {
	coll *mongo.Collection
}

func NewCourseRepository(db *mongo.Database) *MongoCourseRepository {
	return &MongoCourseRepository{coll: db.Collection(models.CollectionCourses)}
}

func (r *MongoCourseRepository) Create(ctx context.Context, c *models.Course) error {
	now := utcNow()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	c.CreatedAt, c.UpdatedAt = now, now
	if c.Modules == nil {
		c.Modules = []models.Module{}
	}
	if c.EnrolledUsers == nil {
		c.EnrolledUsers = []primitive.ObjectID{}
	}
	_, err := r.coll.InsertOne(ctx, c)
	return wrapError("CreateCourse", err)
}

func (r *MongoCourseRepository) GetByID(ctx context.Context, id ID) (*models.Course, error) {
	return findOne[models.Course](ctx, r.coll, "GetCourseByID", bson.M{"_id": id})
}

func (r *MongoCourseRepository) ListByCommunity(ctx context.Context, communityID ID, publishedOnly bool) ([]models.Course, error) {
	filter := bson.M{"community": communityID}
	if publishedOnly {
		filter["isPublished"] = true
	}
	return findAll[models.Course](ctx, r.coll, "ListCourses", filter, pageOptions(0, 0, bson.D{{Key: "createdAt", Value: -1}}))
}

func (r *MongoCourseRepository) set(ctx context.Context, op string, id ID, update bson.M, opts ...*options.UpdateOptions) error {
	if set, ok := update["$set"].(bson.M); ok {
		set["updatedAt"] = utcNow()
	} else {
		update["$set"] = bson.M{"updatedAt": utcNow()}
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update, opts...)
	return requireMatch(op, res, err)
}

func (r *MongoCourseRepository) Update(ctx context.Context, id ID, title, description string) error {
	return r.set(ctx, "UpdateCourse", id, bson.M{"$set": bson.M{"title": title, "description": description}})
}

func (r *MongoCourseRepository) SetPublished(ctx context.Context, id ID, published bool) error {
	return r.set(ctx, "PublishCourse", id, bson.M{"$set": bson.M{"isPublished": published}})
}

func (r *MongoCourseRepository) Delete(ctx context.Context, id ID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return wrapError("DeleteCourse", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.ErrResourceNotFound
	}
	return nil
}

func (r *MongoCourseRepository) AddModule(ctx context.Context, id ID, module models.Module) error {
	if module.Lessons == nil {
		module.Lessons = []models.Lesson{}
	}
	return r.set(ctx, "AddModule", id, bson.M{"$push": bson.M{"modules": module}})
}

func (r *MongoCourseRepository) AddLesson(ctx context.Context, id, moduleID ID, lesson models.Lesson) error {
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"m._id": moduleID}},
	})
	return r.set(ctx, "AddLesson", id, bson.M{"$push": bson.M{"modules.$[m].lessons": lesson}}, opts)
}

func (r *MongoCourseRepository) RemoveLesson(ctx context.Context, id, lessonID ID) error {
	return r.set(ctx, "RemoveLesson", id, bson.M{"$pull": bson.M{"modules.$[].lessons": bson.M{"_id": lessonID}}})
}

func (r *MongoCourseRepository) Enroll(ctx context.Context, id, userID ID) error {
	return r.set(ctx, "EnrollCourse", id, bson.M{"$addToSet": bson.M{"enrolledUsers": userID}})
}

func (r *MongoCourseRepository) Unenroll(ctx context.Context, id, userID ID) error {
	return r.set(ctx, "UnenrollCourse", id, bson.M{"$pull": bson.M{"enrolledUsers": userID}})
}

// MongoProgressRepository implements ProgressRepository on the user_progress collection
type MongoProgressRepository struct {
	coll *mongo.Collection
}

func NewProgressRepository(db *mongo.Database) *MongoProgressRepository {
	return &MongoProgressRepository{coll: db.Collection(models.CollectionProgress)}
}

func (r *MongoProgressRepository) Create(ctx context.Context, p *models.UserProgress) error {
	now := utcNow()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.CreatedAt, p.UpdatedAt, p.LastAccessedAt = now, now, now
	if p.CompletedLessons == nil {
		p.CompletedLessons = []primitive.ObjectID{}
	}
	_, err := r.coll.InsertOne(ctx, p)
	return wrapError("CreateProgress", err)
}

func (r *MongoProgressRepository) Get(ctx context.Context, userID, courseID ID) (*models.UserProgress, error) {
	return findOne[models.UserProgress](ctx, r.coll, "GetProgress", bson.M{"user": userID, "course": courseID})
}

func (r *MongoProgressRepository) AddCompletedLesson(ctx context.Context, userID, courseID, lessonID ID, at time.Time) (*models.UserProgress, bool, error) {
	filter := bson.M{"user": userID, "course": courseID, "completedLessons": bson.M{"$ne": lessonID}}
	update := bson.M{
		"$push": bson.M{"completedLessons": lessonID},
		"$set":  bson.M{"lastAccessedAt": at, "updatedAt": at},
	}
	p, err := findOneAndUpdate[models.UserProgress](ctx, r.coll, "CompleteLesson", filter, update)
	if err == nil {
		return p, true, nil
	}
	if !apperrors.Is(err, apperrors.ErrResourceNotFound) {
		return nil, false, err
	}
	// either the lesson is already there or there is no progress record at all
	p, err = r.Get(ctx, userID, courseID)
	if err != nil {
		return nil, false, err
	}
	return p, false, nil
}

func (r *MongoProgressRepository) ListByCourse(ctx context.Context, courseID ID) ([]models.UserProgress, error) {
	return findAll[models.UserProgress](ctx, r.coll, "ListProgressByCourse", bson.M{"course": courseID})
}

func (r *MongoProgressRepository) SetProgress(ctx context.Context, id ID, progress float64, completedAt *time.Time) error {
	fields := bson.M{"progress": progress, "updatedAt": utcNow()}
	update := bson.M{"$set": fields}
	if completedAt != nil {
		fields["completedAt"] = *completedAt
	} else {
		update["$unset"] = bson.M{"completedAt": ""}
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	return requireMatch("SetProgress", res, err)
}

func (r *MongoProgressRepository) Delete(ctx context.Context, userID, courseID ID) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"user": userID, "course": courseID})
	return wrapError("DeleteProgress", err)
}

func (r *MongoProgressRepository) DeleteByCourse(ctx context.Context, courseID ID) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"course": courseID})
	if err != nil {
		return 0, wrapError("DeleteProgressByCourse", err)
	}
	return res.DeletedCount, nil
}
