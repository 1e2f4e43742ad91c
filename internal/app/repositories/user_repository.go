package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoUserRepository implements UserRepository on the users collection
type MongoUserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection(models.CollectionUsers)}
}

func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) error {
	now := utcNow()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt, user.UpdatedAt = now, now
	if user.Followers == nil {
		user.Followers = []primitive.ObjectID{}
	}
	if user.Following == nil {
		user.Following = []primitive.ObjectID{}
	}
	if user.SubscriptionStatus == "" {
		user.SubscriptionStatus = models.SubscriptionNone
	}

	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.NewConflictError("email or username already exists")
		}
		return fmt.Errorf("CreateUser: %w", err)
	}
	return nil
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id ID) (*models.User, error) {
	return findOne[models.User](ctx, r.coll, "GetUserByID", bson.M{"_id": id})
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return findOne[models.User](ctx, r.coll, "GetUserByEmail", bson.M{"email": email})
}

func (r *MongoUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return findOne[models.User](ctx, r.coll, "GetUserByUsername", bson.M{"username": username})
}

func (r *MongoUserRepository) GetByIDs(ctx context.Context, ids []ID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	return findAll[models.User](ctx, r.coll, "GetUsersByIDs", bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (r *MongoUserRepository) set(ctx context.Context, op string, id ID, fields bson.M) error {
	fields["updatedAt"] = utcNow()
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	return requireMatch(op, res, err)
}

func (r *MongoUserRepository) UpdateProfile(ctx context.Context, id ID, name, bio, avatarURL string) error {
	return r.set(ctx, "UpdateProfile", id, bson.M{"name": name, "bio": bio, "avatarUrl": avatarURL})
}

func (r *MongoUserRepository) UpdateUsername(ctx context.Context, id ID, username string) error {
	err := r.set(ctx, "UpdateUsername", id, bson.M{"username": username})
	if apperrors.Is(err, apperrors.ErrConflict) {
		return apperrors.ErrUsernameAlreadyExists
	}
	return err
}

func (r *MongoUserRepository) UpdatePassword(ctx context.Context, id ID, hash string) error {
	return r.set(ctx, "UpdatePassword", id, bson.M{"password": hash})
}

func (r *MongoUserRepository) AddPoints(ctx context.Context, id ID, delta int) (*models.User, error) {
	return findOneAndUpdate[models.User](ctx, r.coll, "AddPoints", bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"points": delta},
		"$set": bson.M{"updatedAt": utcNow()},
	})
}

func (r *MongoUserRepository) SetLevel(ctx context.Context, id ID, level int) error {
	return r.set(ctx, "SetLevel", id, bson.M{"level": level})
}

func (r *MongoUserRepository) Follow(ctx context.Context, followerID, targetID ID) error {
	now := utcNow()
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": targetID},
		bson.M{"$addToSet": bson.M{"followers": followerID}, "$set": bson.M{"updatedAt": now}})
	if err := requireMatch("Follow", res, err); err != nil {
		return err
	}
	res, err = r.coll.UpdateOne(ctx, bson.M{"_id": followerID},
		bson.M{"$addToSet": bson.M{"following": targetID}, "$set": bson.M{"updatedAt": now}})
	return requireMatch("Follow", res, err)
}

func (r *MongoUserRepository) Unfollow(ctx context.Context, followerID, targetID ID) error {
	now := utcNow()
	if _, err := r.coll.UpdateOne(ctx, bson.M{"_id": targetID},
		bson.M{"$pull": bson.M{"followers": followerID}, "$set": bson.M{"updatedAt": now}}); err != nil {
		return wrapError("Unfollow", err)
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": followerID},
		bson.M{"$pull": bson.M{"following": targetID}, "$set": bson.M{"updatedAt": now}})
	return requireMatch("Unfollow", res, err)
}

// StartTrial only matches users that never had a trial; a second call returns ErrConflict
func (r *MongoUserRepository) StartTrial(ctx context.Context, id ID, start, end time.Time) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "hasUsedTrial": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{
			"subscriptionStatus": models.SubscriptionTrial,
			"hasUsedTrial":       true,
			"trialStartDate":     start,
			"trialEndDate":       end,
			"updatedAt":          utcNow(),
		}})
	if err != nil {
		return wrapError("StartUserTrial", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("StartUserTrial: %w", apperrors.ErrConflict)
	}
	return nil
}

func (r *MongoUserRepository) SetTrialEndDate(ctx context.Context, id ID, end time.Time) error {
	return r.set(ctx, "SetUserTrialEndDate", id, bson.M{"trialEndDate": end})
}

func (r *MongoUserRepository) SetSubscription(ctx context.Context, id ID, status models.SubscriptionStatus, end *time.Time) error {
	fields := bson.M{"subscriptionStatus": status}
	if end != nil {
		fields["subscriptionEndDate"] = *end
	}
	return r.set(ctx, "SetUserSubscription", id, fields)
}

func (r *MongoUserRepository) SetGatewayCustomerID(ctx context.Context, id ID, customerID string) error {
	return r.set(ctx, "SetUserGatewayCustomerID", id, bson.M{"gatewayCustomerId": customerID})
}

func (r *MongoUserRepository) ExpireTrials(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"subscriptionStatus": models.SubscriptionTrial, "trialEndDate": bson.M{"$lt": now}},
		bson.M{"$set": bson.M{"subscriptionStatus": models.SubscriptionExpired, "updatedAt": now}})
	if err != nil {
		return 0, wrapError("ExpireUserTrials", err)
	}
	return res.ModifiedCount, nil
}

func (r *MongoUserRepository) ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{
			"subscriptionStatus":  bson.M{"$in": []models.SubscriptionStatus{models.SubscriptionActive, models.SubscriptionCancelled}},
			"subscriptionEndDate": bson.M{"$lt": now},
		},
		bson.M{"$set": bson.M{"subscriptionStatus": models.SubscriptionExpired, "updatedAt": now}})
	if err != nil {
		return 0, wrapError("ExpireUserSubscriptions", err)
	}
	return res.ModifiedCount, nil
}

func (r *MongoUserRepository) ListTrialsEndingBetween(ctx context.Context, from, to time.Time) ([]models.User, error) {
	return findAll[models.User](ctx, r.coll, "ListUserTrialsEnding", bson.M{
		"subscriptionStatus": models.SubscriptionTrial,
		"trialEndDate":       bson.M{"$gte": from, "$lt": to},
	})
}

func (r *MongoUserRepository) TopByPoints(ctx context.Context, ids []ID, limit int) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "points", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	return findAll[models.User](ctx, r.coll, "TopUsersByPoints", bson.M{"_id": bson.M{"$in": ids}}, opts)
}
