package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post is stored in the posts collection
type Post struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Community    primitive.ObjectID   `bson:"community" json:"communityId"`
	Author       primitive.ObjectID   `bson:"author" json:"authorId"`
	Title        string               `bson:"title" json:"title"`
	Content      string               `bson:"content" json:"content"`
	Likes        []primitive.ObjectID `bson:"likes" json:"likes"`
	CommentCount int                  `bson:"commentCount" json:"commentCount"`
	IsPinned     bool                 `bson:"isPinned" json:"isPinned"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// Comment is stored in the comments collection. Parent points at another comment of the same post.
type Comment struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Post      primitive.ObjectID   `bson:"post" json:"postId"`
	Community primitive.ObjectID   `bson:"community" json:"communityId"`
	Author    primitive.ObjectID   `bson:"author" json:"authorId"`
	Content   string               `bson:"content" json:"content"`
	Parent    *primitive.ObjectID  `bson:"parent,omitempty" json:"parentId,omitempty"`
	Likes     []primitive.ObjectID `bson:"likes" json:"likes"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt" json:"updatedAt"`
}
