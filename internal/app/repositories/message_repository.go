package repositories

import (
	"context"
	"time"

	"github.com/yigit/circlehub/internal/app/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoMessageRepository implements MessageRepository on the messages collection
type MongoMessageRepository struct {
	coll *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) *MongoMessageRepository {
	return &MongoMessageRepository{coll: db.Collection(models.CollectionMessages)}
}

func (r *MongoMessageRepository) Create(ctx context.Context, msg *models.Message) error {
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	msg.CreatedAt = utcNow()
	_, err := r.coll.InsertOne(ctx, msg)
	return wrapError("CreateMessage", err)
}

func conversationFilter(a, b ID) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"sender": a, "recipient": b},
		bson.M{"sender": b, "recipient": a},
	}}
}

func (r *MongoMessageRepository) ListConversation(ctx context.Context, userID, partnerID ID, skip, limit int64) ([]models.Message, int64, error) {
	filter := conversationFilter(userID, partnerID)
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, wrapError("CountMessages", err)
	}
	msgs, err := findAll[models.Message](ctx, r.coll, "ListMessages", filter,
		pageOptions(skip, limit, bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

// Conversations groups every message the user took part in by partner, keeping the newest one
func (r *MongoMessageRepository) Conversations(ctx context.Context, userID ID) ([]models.ConversationSummary, error) {
	unread := bson.M{"$cond": bson.A{
		bson.M{"$and": bson.A{
			bson.M{"$eq": bson.A{"$recipient", userID}},
			bson.M{"$eq": bson.A{"$read", false}},
		}},
		1, 0,
	}}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": bson.A{bson.M{"sender": userID}, bson.M{"recipient": userID}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		{{Key: "$group", Value: bson.M{
			"_id":         bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$sender", userID}}, "$recipient", "$sender"}},
			"lastMessage": bson.M{"$first": "$$ROOT"},
			"unreadCount": bson.M{"$sum": unread},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "lastMessage.createdAt", Value: -1}}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, wrapError("Conversations", err)
	}
	out := make([]models.ConversationSummary, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, wrapError("Conversations", err)
	}
	return out, nil
}

func (r *MongoMessageRepository) MarkRead(ctx context.Context, recipientID, senderID ID, at time.Time) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"recipient": recipientID, "sender": senderID, "read": false},
		bson.M{"$set": bson.M{"read": true, "readAt": at}})
	if err != nil {
		return 0, wrapError("MarkMessagesRead", err)
	}
	return res.ModifiedCount, nil
}

// MongoNotificationRepository implements NotificationRepository on the notifications collection
type MongoNotificationRepository struct {
	coll *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *MongoNotificationRepository {
	return &MongoNotificationRepository{coll: db.Collection(models.CollectionNotifications)}
}

func (r *MongoNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	n.CreatedAt = utcNow()
	_, err := r.coll.InsertOne(ctx, n)
	return wrapError("CreateNotification", err)
}

func (r *MongoNotificationRepository) List(ctx context.Context, recipientID ID, unreadOnly bool, skip, limit int64) ([]models.Notification, int64, error) {
	filter := bson.M{"recipient": recipientID}
	if unreadOnly {
		filter["read"] = false
	}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, wrapError("CountNotifications", err)
	}
	items, err := findAll[models.Notification](ctx, r.coll, "ListNotifications", filter,
		pageOptions(skip, limit, bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *MongoNotificationRepository) MarkRead(ctx context.Context, recipientID, id ID) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id, "recipient": recipientID}, bson.M{"$set": bson.M{"read": true}})
	return requireMatch("MarkNotificationRead", res, err)
}

func (r *MongoNotificationRepository) MarkAllRead(ctx context.Context, recipientID ID) (int64, error) {
	res, err := r.coll.UpdateMany(ctx, bson.M{"recipient": recipientID, "read": false}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, wrapError("MarkAllNotificationsRead", err)
	}
	return res.ModifiedCount, nil
}

func (r *MongoNotificationRepository) CountUnread(ctx context.Context, recipientID ID) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"recipient": recipientID, "read": false})
	if err != nil {
		return 0, wrapError("CountUnreadNotifications", err)
	}
	return n, nil
}
