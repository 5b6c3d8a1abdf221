package model

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	usermodel "chatwire/module/user/model"
)

const Collection = "statuses"

const (
	MediaImage = "image"
	MediaVideo = "video"
	MediaText  = "text"
)

// Status is a story post that expires 24 hours after creation.
type Status struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	MediaURL  string             `bson:"media_url,omitempty" json:"mediaUrl,omitempty"`
	MediaType string             `bson:"media_type" json:"mediaType"`
	Caption   string             `bson:"caption,omitempty" json:"caption,omitempty"`
	ExpiresAt time.Time          `bson:"expires_at" json:"expiresAt"`
	Views     []View             `bson:"views,omitempty" json:"views"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// View records one user seeing the status once.
type View struct {
	User     primitive.ObjectID `bson:"user" json:"user"`
	ViewedAt time.Time          `bson:"viewed_at" json:"viewedAt"`
}

// UserStatuses groups a poster's active statuses for the feed.
type UserStatuses struct {
	User     usermodel.User `json:"user"`
	Statuses []Status       `json:"statuses"`
}

// EnsureIndexes creates the TTL index so Mongo reaps expired statuses.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(Collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return err
}
