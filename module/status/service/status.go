package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	statusmodel "chatwire/module/status/model"
	userservice "chatwire/module/user/service"
	"chatwire/service/mgo"
	"chatwire/tools/errs"
)

const (
	statusLifetime = 24 * time.Hour
	captionMax     = 200
)

func coll() *mongo.Collection { return mgo.GetDB().Collection(statusmodel.Collection) }

// Create posts a status. Text statuses need a caption, media statuses
// need a URL; every status expires a day after posting.
func Create(ctx context.Context, selfID primitive.ObjectID, mediaType, mediaURL, caption string) (*statusmodel.Status, error) {
	switch mediaType {
	case statusmodel.MediaText:
		if caption == "" {
			return nil, errs.ErrArgs.WithDetail("text status requires a caption")
		}
	case statusmodel.MediaImage, statusmodel.MediaVideo:
		if mediaURL == "" {
			return nil, errs.ErrArgs.WithDetail("media status requires mediaUrl")
		}
	default:
		return nil, errs.ErrArgs.WithDetail("mediaType must be image, video or text")
	}
	if len(caption) > captionMax {
		return nil, errs.ErrArgs.WithDetail("caption must be 200 characters or less")
	}

	now := time.Now()
	s := statusmodel.Status{
		ID:        primitive.NewObjectID(),
		User:      selfID,
		MediaURL:  mediaURL,
		MediaType: mediaType,
		Caption:   caption,
		ExpiresAt: now.Add(statusLifetime),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := coll().InsertOne(ctx, s); err != nil {
		return nil, errors.Wrap(err, "insert status")
	}
	return &s, nil
}

// Feed returns every active status grouped by poster, newest poster
// activity first within each group.
func Feed(ctx context.Context) ([]statusmodel.UserStatuses, error) {
	all, err := findActive(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	byUser := lo.GroupBy(all, func(s statusmodel.Status) primitive.ObjectID { return s.User })
	users, err := userservice.GetManyByIDs(ctx, lo.Keys(byUser))
	if err != nil {
		return nil, err
	}

	out := make([]statusmodel.UserStatuses, 0, len(byUser))
	for uid, statuses := range byUser {
		u, ok := users[uid]
		if !ok {
			continue
		}
		out = append(out, statusmodel.UserStatuses{User: u, Statuses: statuses})
	}
	return out, nil
}

// ForUser lists one poster's active statuses, oldest first.
func ForUser(ctx context.Context, userID primitive.ObjectID) ([]statusmodel.Status, error) {
	return findActive(ctx, bson.M{"user": userID})
}

// MarkViewed records the caller watching a status. Repeat views are
// ignored; posters do not view their own statuses.
func MarkViewed(ctx context.Context, selfID, statusID primitive.ObjectID) (*statusmodel.Status, error) {
	var s statusmodel.Status
	err := coll().FindOneAndUpdate(ctx,
		bson.M{"_id": statusID, "user": bson.M{"$ne": selfID}, "views.user": bson.M{"$ne": selfID}},
		bson.M{"$push": bson.M{"views": statusmodel.View{User: selfID, ViewedAt: time.Now()}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// already viewed, own status, or gone; return current state if it exists
		ferr := coll().FindOne(ctx, bson.M{"_id": statusID}).Decode(&s)
		if errors.Is(ferr, mongo.ErrNoDocuments) {
			return nil, errs.ErrNotFound.WithDetail("status not found")
		}
		if ferr != nil {
			return nil, errors.Wrap(ferr, "find status")
		}
		return &s, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "mark status viewed")
	}
	return &s, nil
}

// Delete removes a status; only its poster may delete it.
func Delete(ctx context.Context, selfID, statusID primitive.ObjectID) error {
	res, err := coll().DeleteOne(ctx, bson.M{"_id": statusID, "user": selfID})
	if err != nil {
		return errors.Wrap(err, "delete status")
	}
	if res.DeletedCount == 0 {
		var s statusmodel.Status
		ferr := coll().FindOne(ctx, bson.M{"_id": statusID}).Decode(&s)
		if errors.Is(ferr, mongo.ErrNoDocuments) {
			return errs.ErrNotFound.WithDetail("status not found")
		}
		return errs.ErrNoPermission.WithDetail("only the poster can delete a status")
	}
	return nil
}

// PurgeExpired removes statuses past their expiry. The TTL index
// usually handles this; the sweep covers deployments without it.
func PurgeExpired(ctx context.Context) (int64, error) {
	res, err := coll().DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now()}})
	if err != nil {
		return 0, errors.Wrap(err, "purge expired statuses")
	}
	return res.DeletedCount, nil
}

func findActive(ctx context.Context, filter bson.M) ([]statusmodel.Status, error) {
	filter["expires_at"] = bson.M{"$gt": time.Now()}
	cur, err := coll().Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "find statuses")
	}
	var out []statusmodel.Status
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "decode statuses")
	}
	return out, nil
}
