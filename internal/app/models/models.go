package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Collection names
const (
	CollectionUsers         = "users"
	CollectionCommunities   = "communities"
	CollectionPosts         = "posts"
	CollectionComments      = "comments"
	CollectionCourses       = "courses"
	CollectionProgress      = "user_progress"
	CollectionMessages      = "messages"
	CollectionNotifications = "notifications"
	CollectionTransactions  = "transactions"
	CollectionPlans         = "payment_plans"
	CollectionSubscriptions = "subscriptions"
)

// ContainsID reports whether id is present in ids.
func ContainsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// AddID appends id unless already present; the bool reports whether ids changed.
func AddID(ids []primitive.ObjectID, id primitive.ObjectID) ([]primitive.ObjectID, bool) {
	if ContainsID(ids, id) {
		return ids, false
	}
	return append(ids, id), true
}

// RemoveID drops every occurrence of id; the bool reports whether ids changed.
func RemoveID(ids []primitive.ObjectID, id primitive.ObjectID) ([]primitive.ObjectID, bool) {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out, len(out) != len(ids)
}
