package repositories

import (
	"context"
	"time"

	"github.com/yigit/circlehub/internal/app/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoTransactionRepository implements TransactionRepository on the transactions collection
type MongoTransactionRepository struct {
	coll *mongo.Collection
}

func NewTransactionRepository(db *mongo.Database) *MongoTransactionRepository {
	return &MongoTransactionRepository{coll: db.Collection(models.CollectionTransactions)}
}

func (r *MongoTransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	now := utcNow()
	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	tx.CreatedAt, tx.UpdatedAt = now, now
	if tx.Status == "" {
		tx.Status = models.TransactionCreated
	}
	_, err := r.coll.InsertOne(ctx, tx)
	return wrapError("CreateTransaction", err)
}

func (r *MongoTransactionRepository) GetByID(ctx context.Context, id ID) (*models.Transaction, error) {
	return findOne[models.Transaction](ctx, r.coll, "GetTransactionByID", bson.M{"_id": id})
}

func (r *MongoTransactionRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.Transaction, error) {
	return findOne[models.Transaction](ctx, r.coll, "GetTransactionBySession", bson.M{"gatewaySessionId": sessionID})
}

func (r *MongoTransactionRepository) GetByPaymentID(ctx context.Context, paymentID string) (*models.Transaction, error) {
	return findOne[models.Transaction](ctx, r.coll, "GetTransactionByPayment", bson.M{"gatewayPaymentId": paymentID})
}

func (r *MongoTransactionRepository) SetSessionID(ctx context.Context, id ID, sessionID string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"gatewaySessionId": sessionID, "updatedAt": utcNow()}})
	return requireMatch("SetTransactionSession", res, err)
}

func (r *MongoTransactionRepository) Transition(ctx context.Context, id ID, status models.TransactionStatus, update TransactionUpdate) (bool, error) {
	fields := bson.M{"status": status, "updatedAt": utcNow()}
	if update.GatewayPaymentID != "" {
		fields["gatewayPaymentId"] = update.GatewayPaymentID
	}
	if update.FailureReason != "" {
		fields["failureReason"] = update.FailureReason
	}
	filter := bson.M{"_id": id, "status": bson.M{"$in": models.AllowedPredecessors(status)}}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": fields})
	if err != nil {
		return false, wrapError("TransitionTransaction", err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoTransactionRepository) ListByUser(ctx context.Context, userID ID, skip, limit int64) ([]models.Transaction, int64, error) {
	filter := bson.M{"user": userID}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, wrapError("CountTransactions", err)
	}
	items, err := findAll[models.Transaction](ctx, r.coll, "ListTransactions", filter,
		pageOptions(skip, limit, bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// MongoPlanRepository implements PlanRepository on the payment_plans collection
type MongoPlanRepository struct {
	coll *mongo.Collection
}

func NewPlanRepository(db *mongo.Database) *MongoPlanRepository {
	return &MongoPlanRepository{coll: db.Collection(models.CollectionPlans)}
}

func (r *MongoPlanRepository) Upsert(ctx context.Context, plan *models.PaymentPlan) error {
	now := utcNow()
	update := bson.M{
		"$set": bson.M{
			"name":           plan.Name,
			"purpose":        plan.Purpose,
			"amount":         plan.Amount,
			"currency":       plan.Currency,
			"interval":       plan.Interval,
			"gatewayPriceId": plan.GatewayPriceID,
			"isActive":       plan.IsActive,
			"updatedAt":      now,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"code": plan.Code}, update, options.Update().SetUpsert(true))
	return wrapError("UpsertPlan", err)
}

func (r *MongoPlanRepository) GetByCode(ctx context.Context, code string) (*models.PaymentPlan, error) {
	return findOne[models.PaymentPlan](ctx, r.coll, "GetPlanByCode", bson.M{"code": code})
}

func (r *MongoPlanRepository) ListActive(ctx context.Context) ([]models.PaymentPlan, error) {
	return findAll[models.PaymentPlan](ctx, r.coll, "ListPlans", bson.M{"isActive": true},
		options.Find().SetSort(bson.D{{Key: "amount", Value: 1}}))
}

// MongoSubscriptionRepository implements SubscriptionRepository on the subscriptions collection
type MongoSubscriptionRepository struct {
	coll *mongo.Collection
}

func NewSubscriptionRepository(db *mongo.Database) *MongoSubscriptionRepository {
	return &MongoSubscriptionRepository{coll: db.Collection(models.CollectionSubscriptions)}
}

func (r *MongoSubscriptionRepository) Upsert(ctx context.Context, sub *models.CommunitySubscription) error {
	now := utcNow()
	set := bson.M{
		"community": sub.Community,
		"user":      sub.User,
		"planCode":  sub.PlanCode,
		"purpose":   sub.Purpose,
		"status":    sub.Status,
		"updatedAt": now,
	}
	if sub.CurrentPeriodEnd != nil {
		set["currentPeriodEnd"] = *sub.CurrentPeriodEnd
	}
	update := bson.M{"$set": set, "$setOnInsert": bson.M{"createdAt": now}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var saved models.CommunitySubscription
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"gatewaySubscriptionId": sub.GatewaySubscriptionID}, update, opts).Decode(&saved)
	if err != nil {
		return wrapError("UpsertSubscription", err)
	}
	*sub = saved
	return nil
}

func (r *MongoSubscriptionRepository) GetByID(ctx context.Context, id ID) (*models.CommunitySubscription, error) {
	return findOne[models.CommunitySubscription](ctx, r.coll, "GetSubscriptionByID", bson.M{"_id": id})
}

func (r *MongoSubscriptionRepository) GetByGatewayID(ctx context.Context, gatewayID string) (*models.CommunitySubscription, error) {
	return findOne[models.CommunitySubscription](ctx, r.coll, "GetSubscriptionByGatewayID", bson.M{"gatewaySubscriptionId": gatewayID})
}

func (r *MongoSubscriptionRepository) FindLatest(ctx context.Context, userID, communityID ID, purpose models.PaymentPurpose) (*models.CommunitySubscription, error) {
	var sub models.CommunitySubscription
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	err := r.coll.FindOne(ctx, bson.M{"user": userID, "community": communityID, "purpose": purpose}, opts).Decode(&sub)
	if err != nil {
		return nil, wrapError("FindLatestSubscription", err)
	}
	return &sub, nil
}

func (r *MongoSubscriptionRepository) ListByUser(ctx context.Context, userID ID) ([]models.CommunitySubscription, error) {
	return findAll[models.CommunitySubscription](ctx, r.coll, "ListSubscriptions", bson.M{"user": userID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

func (r *MongoSubscriptionRepository) SetStatus(ctx context.Context, id ID, status models.CommunitySubscriptionStatus, cancelledAt *time.Time) error {
	fields := bson.M{"status": status, "updatedAt": utcNow()}
	if cancelledAt != nil {
		fields["cancelledAt"] = *cancelledAt
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	return requireMatch("SetSubscriptionStatus", res, err)
}

func (r *MongoSubscriptionRepository) ExtendPeriod(ctx context.Context, gatewayID string, periodEnd time.Time) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"gatewaySubscriptionId": gatewayID},
		bson.M{"$set": bson.M{"currentPeriodEnd": periodEnd, "updatedAt": utcNow()}})
	return requireMatch("ExtendSubscriptionPeriod", res, err)
}

func (r *MongoSubscriptionRepository) ExpireLapsed(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{
			"status": bson.M{"$in": []models.CommunitySubscriptionStatus{
				models.CommunitySubscriptionActive, models.CommunitySubscriptionCancelled,
			}},
			"currentPeriodEnd": bson.M{"$lt": now},
		},
		bson.M{"$set": bson.M{"status": models.CommunitySubscriptionExpired, "updatedAt": now}})
	if err != nil {
		return 0, wrapError("ExpireSubscriptions", err)
	}
	return res.ModifiedCount, nil
}
