package model

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const Collection = "users"

const DefaultPic = "https://icon-library.com/images/anonymous-avatar-icon/anonymous-avatar-icon-25.jpg"

// User is the account document. Status is the short text line shown under
// the name, not presence (presence lives in the relay, never in Mongo).
type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name     string             `bson:"name" json:"name"`
	Email    string             `bson:"email" json:"email"`
	Password string             `bson:"password" json:"-"`
	Pic      string             `bson:"pic" json:"pic"`
	Status   string             `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// AuthUser is the login/register response: the public profile plus a token.
type AuthUser struct {
	ID     primitive.ObjectID `json:"_id"`
	Name   string             `json:"name"`
	Email  string             `json:"email"`
	Pic    string             `json:"pic"`
	Status string             `json:"status"`
	Token  string             `json:"token"`
}

func (u *User) Auth(token string) AuthUser {
	return AuthUser{
		ID:     u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Pic:    u.Pic,
		Status: u.Status,
		Token:  token,
	}
}

// EnsureIndexes creates the unique email index; call once at startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(Collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
