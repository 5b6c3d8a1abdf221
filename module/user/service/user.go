package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	usermodel "chatwire/module/user/model"
	"chatwire/service/mgo"
	"chatwire/tools/errs"
	"chatwire/tools/security"
)

func coll() *mongo.Collection { return mgo.GetDB().Collection(usermodel.Collection) }

// Register creates an account and returns the profile with a fresh token.
func Register(ctx context.Context, opts security.Options, name, email, password, pic string) (*usermodel.AuthUser, error) {
	if name == "" || email == "" || password == "" {
		return nil, errs.ErrArgs.WithDetail("name, email and password are required")
	}

	n, err := coll().CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		return nil, errors.Wrap(err, "count users by email")
	}
	if n > 0 {
		return nil, errs.ErrRecordExists.WithDetail("user already exists")
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	if pic == "" {
		pic = usermodel.DefaultPic
	}

	now := time.Now()
	u := usermodel.User{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Email:     email,
		Password:  hash,
		Pic:       pic,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := coll().InsertOne(ctx, u); err != nil {
		return nil, errors.Wrap(err, "insert user")
	}

	token, _, err := security.Generate(opts, u.ID.Hex())
	if err != nil {
		return nil, errors.Wrap(err, "issue token")
	}
	au := u.Auth(token)
	return &au, nil
}

// Authenticate checks credentials and returns the profile with a token.
func Authenticate(ctx context.Context, opts security.Options, email, password string) (*usermodel.AuthUser, error) {
	var u usermodel.User
	err := coll().FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrTokenInvalid.WithDetail("invalid email or password")
	}
	if err != nil {
		return nil, errors.Wrap(err, "find user by email")
	}
	if !security.CheckPassword(u.Password, password) {
		return nil, errs.ErrTokenInvalid.WithDetail("invalid email or password")
	}

	token, _, err := security.Generate(opts, u.ID.Hex())
	if err != nil {
		return nil, errors.Wrap(err, "issue token")
	}
	au := u.Auth(token)
	return &au, nil
}

// Search finds users whose name or email matches the keyword
// (case-insensitive), excluding the caller. Empty keyword lists everyone else.
func Search(ctx context.Context, selfID primitive.ObjectID, keyword string) ([]usermodel.User, error) {
	filter := bson.M{"_id": bson.M{"$ne": selfID}}
	if keyword != "" {
		filter["$or"] = bson.A{
			bson.M{"name": bson.M{"$regex": keyword, "$options": "i"}},
			bson.M{"email": bson.M{"$regex": keyword, "$options": "i"}},
		}
	}

	cur, err := coll().Find(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "search users")
	}
	var out []usermodel.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "decode users")
	}
	return out, nil
}

// GetByID loads one user; ErrNotFound when absent.
func GetByID(ctx context.Context, id primitive.ObjectID) (*usermodel.User, error) {
	var u usermodel.User
	err := coll().FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound.WithDetail("user not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "find user")
	}
	return &u, nil
}

// GetManyByIDs loads the given users keyed by id (password omitted by json).
func GetManyByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]usermodel.User, error) {
	out := make(map[primitive.ObjectID]usermodel.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := coll().Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, errors.Wrap(err, "find users by ids")
	}
	var docs []usermodel.User
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode users")
	}
	for _, d := range docs {
		out[d.ID] = d
	}
	return out, nil
}

// UpdateStatusLine sets the short text status (max 139 chars).
func UpdateStatusLine(ctx context.Context, opts security.Options, id primitive.ObjectID, status string) (*usermodel.AuthUser, error) {
	if len(status) > 139 {
		return nil, errs.ErrArgs.WithDetail("status must be 139 characters or less")
	}
	return findAndUpdate(ctx, opts, id, bson.M{"status": status})
}

// UpdateProfile updates name and/or pic, keeping existing values for blanks.
func UpdateProfile(ctx context.Context, opts security.Options, id primitive.ObjectID, name, pic string) (*usermodel.AuthUser, error) {
	set := bson.M{}
	if name != "" {
		set["name"] = name
	}
	if pic != "" {
		set["pic"] = pic
	}
	return findAndUpdate(ctx, opts, id, set)
}

func findAndUpdate(ctx context.Context, opts security.Options, id primitive.ObjectID, set bson.M) (*usermodel.AuthUser, error) {
	set["updated_at"] = time.Now()

	var u usermodel.User
	err := coll().FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound.WithDetail("user not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "update user")
	}

	token, _, err := security.Generate(opts, u.ID.Hex())
	if err != nil {
		return nil, errors.Wrap(err, "issue token")
	}
	au := u.Auth(token)
	return &au, nil
}
