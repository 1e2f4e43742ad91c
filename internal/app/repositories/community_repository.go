package repositories

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoCommunityRepository implements CommunityRepository on the communities collection
type MongoCommunityRepository struct {
	coll *mongo.Collection
}

func NewCommunityRepository(db *mongo.Database) *MongoCommunityRepository {
	return &MongoCommunityRepository{coll: db.Collection(models.CollectionCommunities)}
}

func (r *MongoCommunityRepository) Create(ctx context.Context, c *models.Community) error {
	now := utcNow()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	c.CreatedAt, c.UpdatedAt = now, now
	if c.SubAdmins == nil {
		c.SubAdmins = []primitive.ObjectID{}
	}
	if c.Members == nil {
		c.Members = []primitive.ObjectID{}
	}
	if c.JoinRequests == nil {
		c.JoinRequests = []models.JoinRequest{}
	}
	if c.PaymentStatus == "" {
		c.PaymentStatus = models.PaymentStatusUnpaid
	}

	if _, err := r.coll.InsertOne(ctx, c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.NewConflictError("community slug already exists")
		}
		return fmt.Errorf("CreateCommunity: %w", err)
	}
	return nil
}

func (r *MongoCommunityRepository) GetByID(ctx context.Context, id ID) (*models.Community, error) {
	return findOne[models.Community](ctx, r.coll, "GetCommunityByID", bson.M{"_id": id})
}

func (r *MongoCommunityRepository) GetBySlug(ctx context.Context, slug string) (*models.Community, error) {
	return findOne[models.Community](ctx, r.coll, "GetCommunityBySlug", bson.M{"slug": slug})
}

func (r *MongoCommunityRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"slug": slug})
	if err != nil {
		return false, wrapError("SlugExists", err)
	}
	return n > 0, nil
}

func (r *MongoCommunityRepository) List(ctx context.Context, filter CommunityFilter, skip, limit int64) ([]models.Community, int64, error) {
	query := bson.M{}
	if filter.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
		query["$or"] = bson.A{bson.M{"name": pattern}, bson.M{"description": pattern}}
	}
	if filter.MemberID != nil {
		query["members"] = *filter.MemberID
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, wrapError("CountCommunities", err)
	}
	items, err := findAll[models.Community](ctx, r.coll, "ListCommunities", query,
		pageOptions(skip, limit, bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *MongoCommunityRepository) update(ctx context.Context, op string, id ID, update bson.M) error {
	if set, ok := update["$set"].(bson.M); ok {
		set["updatedAt"] = utcNow()
	} else {
		update["$set"] = bson.M{"updatedAt": utcNow()}
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	return requireMatch(op, res, err)
}

func (r *MongoCommunityRepository) UpdateDetails(ctx context.Context, id ID, d CommunityDetails) error {
	return r.update(ctx, "UpdateCommunity", id, bson.M{"$set": bson.M{
		"name":                 d.Name,
		"description":          d.Description,
		"category":             d.Category,
		"imageUrl":             d.ImageURL,
		"isPrivate":            d.IsPrivate,
		"paymentEnabled":       d.PaymentEnabled,
		"subscriptionRequired": d.SubscriptionRequired,
		"subscriptionPrice":    d.SubscriptionPrice,
	}})
}

func (r *MongoCommunityRepository) Delete(ctx context.Context, id ID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return wrapError("DeleteCommunity", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.ErrResourceNotFound
	}
	return nil
}

func (r *MongoCommunityRepository) AddMember(ctx context.Context, id, userID ID) error {
	return r.update(ctx, "AddMember", id, bson.M{
		"$addToSet": bson.M{"members": userID},
		"$pull":     bson.M{"joinRequests": bson.M{"user": userID}},
	})
}

func (r *MongoCommunityRepository) RemoveMember(ctx context.Context, id, userID ID) error {
	return r.update(ctx, "RemoveMember", id, bson.M{"$pull": bson.M{
		"members":      userID,
		"subAdmins":    userID,
		"joinRequests": bson.M{"user": userID},
	}})
}

func (r *MongoCommunityRepository) AddSubAdmin(ctx context.Context, id, userID ID) error {
	return r.update(ctx, "AddSubAdmin", id, bson.M{"$addToSet": bson.M{"subAdmins": userID}})
}

func (r *MongoCommunityRepository) RemoveSubAdmin(ctx context.Context, id, userID ID) error {
	return r.update(ctx, "RemoveSubAdmin", id, bson.M{"$pull": bson.M{"subAdmins": userID}})
}

func (r *MongoCommunityRepository) AddJoinRequest(ctx context.Context, id ID, req models.JoinRequest) error {
	// the filter keeps a user from queueing twice
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "joinRequests.user": bson.M{"$ne": req.UserID}},
		bson.M{"$push": bson.M{"joinRequests": req}, "$set": bson.M{"updatedAt": utcNow()}})
	if err != nil {
		return wrapError("AddJoinRequest", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NewConflictError("join request already pending")
	}
	return nil
}

func (r *MongoCommunityRepository) RemoveJoinRequest(ctx context.Context, id, userID ID) error {
	return r.update(ctx, "RemoveJoinRequest", id, bson.M{"$pull": bson.M{"joinRequests": bson.M{"user": userID}}})
}

// StartTrial only matches unpaid communities that never had a trial
func (r *MongoCommunityRepository) StartTrial(ctx context.Context, id ID, start, end time.Time) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "hasUsedTrial": bson.M{"$ne": true}, "paymentStatus": models.PaymentStatusUnpaid},
		bson.M{"$set": bson.M{
			"paymentStatus":       models.PaymentStatusTrial,
			"hasUsedTrial":        true,
			"trialStartDate":      start,
			"trialEndDate":        end,
			"subscriptionEndDate": end,
			"updatedAt":           utcNow(),
		}})
	if err != nil {
		return wrapError("StartCommunityTrial", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("StartCommunityTrial: %w", apperrors.ErrConflict)
	}
	return nil
}

func (r *MongoCommunityRepository) MarkPaid(ctx context.Context, id ID, until time.Time) error {
	return r.update(ctx, "MarkCommunityPaid", id, bson.M{
		"$set":   bson.M{"paymentStatus": models.PaymentStatusPaid, "subscriptionEndDate": until},
		"$unset": bson.M{"suspendedAt": "", "suspensionReason": ""},
	})
}

func (r *MongoCommunityRepository) Suspend(ctx context.Context, id ID, reason string, at time.Time) error {
	return r.update(ctx, "SuspendCommunity", id, bson.M{"$set": bson.M{
		"paymentStatus":    models.PaymentStatusSuspended,
		"suspendedAt":      at,
		"suspensionReason": reason,
	}})
}

func (r *MongoCommunityRepository) SuspendLapsed(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	reasons := []struct {
		status models.PaymentStatus
		reason string
	}{
		{models.PaymentStatusTrial, models.SuspensionTrialExpired},
		{models.PaymentStatusPaid, models.SuspensionSubscriptionExpired},
	}
	for _, rs := range reasons {
		res, err := r.coll.UpdateMany(ctx,
			bson.M{"paymentStatus": rs.status, "subscriptionEndDate": bson.M{"$lt": now}},
			bson.M{"$set": bson.M{
				"paymentStatus":    models.PaymentStatusSuspended,
				"suspendedAt":      now,
				"suspensionReason": rs.reason,
				"updatedAt":        now,
			}})
		if err != nil {
			return total, wrapError("SuspendLapsedCommunities", err)
		}
		total += res.ModifiedCount
	}
	return total, nil
}

func (r *MongoCommunityRepository) ListTrialsEndingBetween(ctx context.Context, from, to time.Time) ([]models.Community, error) {
	return findAll[models.Community](ctx, r.coll, "ListCommunityTrialsEnding", bson.M{
		"paymentStatus": models.PaymentStatusTrial,
		"trialEndDate":  bson.M{"$gte": from, "$lt": to},
	})
}

func (r *MongoCommunityRepository) SetGatewayCustomerID(ctx context.Context, id ID, customerID string) error {
	return r.update(ctx, "SetCommunityGatewayCustomerID", id, bson.M{"$set": bson.M{"gatewayCustomerId": customerID}})
}
