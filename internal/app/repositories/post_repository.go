package repositories

import (
	"context"

	"github.com/yigit/circlehub/internal/app/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoPostRepository implements PostRepository on the posts collection
type MongoPostRepository struct {
	coll *mongo.Collection
}

func NewPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{coll: db.Collection(models.CollectionPosts)}
}

func (r *MongoPostRepository) Create(ctx context.Context, p *models.Post) error {
	now := utcNow()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Likes == nil {
		p.Likes = []primitive.ObjectID{}
	}
	_, err := r.coll.InsertOne(ctx, p)
	return wrapError("CreatePost", err)
}

func (r *MongoPostRepository) GetByID(ctx context.Context, id ID) (*models.Post, error) {
	return findOne[models.Post](ctx, r.coll, "GetPostByID", bson.M{"_id": id})
}

func (r *MongoPostRepository) ListByCommunity(ctx context.Context, communityID ID, skip, limit int64) ([]models.Post, int64, error) {
	filter := bson.M{"community": communityID}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, wrapError("CountPosts", err)
	}
	sort := bson.D{{Key: "isPinned", Value: -1}, {Key: "createdAt", Value: -1}}
	posts, err := findAll[models.Post](ctx, r.coll, "ListPosts", filter, pageOptions(skip, limit, sort))
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *MongoPostRepository) Update(ctx context.Context, id ID, title, content string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"title": title, "content": content, "updatedAt": utcNow()}})
	return requireMatch("UpdatePost", res, err)
}

func (r *MongoPostRepository) Delete(ctx context.Context, id ID) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	return wrapError("DeletePost", err)
}

func (r *MongoPostRepository) DeleteByCommunity(ctx context.Context, communityID ID) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"community": communityID})
	if err != nil {
		return 0, wrapError("DeletePostsByCommunity", err)
	}
	return res.DeletedCount, nil
}

func (r *MongoPostRepository) AddLike(ctx context.Context, id, userID ID) (*models.Post, error) {
	return findOneAndUpdate[models.Post](ctx, r.coll, "LikePost", bson.M{"_id": id},
		bson.M{"$addToSet": bson.M{"likes": userID}})
}

func (r *MongoPostRepository) RemoveLike(ctx context.Context, id, userID ID) (*models.Post, error) {
	return findOneAndUpdate[models.Post](ctx, r.coll, "UnlikePost", bson.M{"_id": id},
		bson.M{"$pull": bson.M{"likes": userID}})
}

func (r *MongoPostRepository) SetPinned(ctx context.Context, id ID, pinned bool) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"isPinned": pinned, "updatedAt": utcNow()}})
	return requireMatch("PinPost", res, err)
}

func (r *MongoPostRepository) IncrementCommentCount(ctx context.Context, id ID, delta int) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"commentCount": delta}})
	return requireMatch("IncrementCommentCount", res, err)
}

// MongoCommentRepository implements CommentRepository on the comments collection
type MongoCommentRepository struct {
	coll *mongo.Collection
}

func NewCommentRepository(db *mongo.Database) *MongoCommentRepository {
	return &MongoCommentRepository{coll: db.Collection(models.CollectionComments)}
}

func (r *MongoCommentRepository) Create(ctx context.Context, c *models.Comment) error {
	now := utcNow()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	c.CreatedAt, c.UpdatedAt = now, now
	if c.Likes == nil {
		c.Likes = []primitive.ObjectID{}
	}
	_, err := r.coll.InsertOne(ctx, c)
	return wrapError("CreateComment", err)
}

func (r *MongoCommentRepository) GetByID(ctx context.Context, id ID) (*models.Comment, error) {
	return findOne[models.Comment](ctx, r.coll, "GetCommentByID", bson.M{"_id": id})
}

func (r *MongoCommentRepository) ListByPost(ctx context.Context, postID ID) ([]models.Comment, error) {
	return findAll[models.Comment](ctx, r.coll, "ListComments", bson.M{"post": postID},
		pageOptions(0, 0, bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
}

func (r *MongoCommentRepository) DeleteMany(ctx context.Context, ids []ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, wrapError("DeleteComments", err)
	}
	return res.DeletedCount, nil
}

func (r *MongoCommentRepository) DeleteByPost(ctx context.Context, postID ID) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"post": postID})
	if err != nil {
		return 0, wrapError("DeleteCommentsByPost", err)
	}
	return res.DeletedCount, nil
}

func (r *MongoCommentRepository) AddLike(ctx context.Context, id, userID ID) (*models.Comment, error) {
	return findOneAndUpdate[models.Comment](ctx, r.coll, "LikeComment", bson.M{"_id": id},
		bson.M{"$addToSet": bson.M{"likes": userID}})
}

func (r *MongoCommentRepository) RemoveLike(ctx context.Context, id, userID ID) (*models.Comment, error) {
	return findOneAndUpdate[models.Comment](ctx, r.coll, "UnlikeComment", bson.M{"_id": id},
		bson.M{"$pull": bson.M{"likes": userID}})
}
