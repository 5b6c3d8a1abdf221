package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	chatservice "chatwire/module/chat/service"
	messagemodel "chatwire/module/message/model"
	userservice "chatwire/module/user/service"
	"chatwire/service/mgo"
	"chatwire/tools/errs"
)

func coll() *mongo.Collection { return mgo.GetDB().Collection(messagemodel.Collection) }

// Send stores a message and bumps the chat's latest-message pointer.
// The returned view carries the populated chat so the client can hand
// it straight to the relay.
func Send(ctx context.Context, selfID, chatID primitive.ObjectID, content string) (*messagemodel.MessageView, error) {
	if content == "" {
		return nil, errs.ErrArgs.WithDetail("content is required")
	}

	chat, err := chatservice.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasUser(selfID) {
		return nil, errs.ErrNoPermission.WithDetail("not a member of this chat")
	}

	now := time.Now()
	m := messagemodel.Message{
		ID:        primitive.NewObjectID(),
		Sender:    selfID,
		Content:   content,
		Chat:      chatID,
		ReadBy:    []primitive.ObjectID{selfID},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := coll().InsertOne(ctx, m); err != nil {
		return nil, errors.Wrap(err, "insert message")
	}
	if err := chatservice.TouchLatestMessage(ctx, chatID, m.ID); err != nil {
		return nil, err
	}

	chatView, err := chatservice.PopulateOne(ctx, chat)
	if err != nil {
		return nil, err
	}
	sender, err := userservice.GetByID(ctx, selfID)
	if err != nil {
		return nil, err
	}

	return &messagemodel.MessageView{
		ID:        m.ID,
		Sender:    *sender,
		Content:   m.Content,
		Chat:      *chatView,
		ReadBy:    m.ReadBy,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}, nil
}

// AllMessages returns the chat's history, oldest first, with senders
// populated. Callers must be members.
func AllMessages(ctx context.Context, selfID, chatID primitive.ObjectID) ([]messagemodel.MessageView, error) {
	chat, err := chatservice.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasUser(selfID) {
		return nil, errs.ErrNoPermission.WithDetail("not a member of this chat")
	}

	cur, err := coll().Find(ctx, bson.M{"chat": chatID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "find messages")
	}
	var msgs []messagemodel.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, errors.Wrap(err, "decode messages")
	}

	chatView, err := chatservice.PopulateOne(ctx, chat)
	if err != nil {
		return nil, err
	}
	senderIDs := make([]primitive.ObjectID, 0, len(msgs))
	for _, m := range msgs {
		senderIDs = append(senderIDs, m.Sender)
	}
	senders, err := userservice.GetManyByIDs(ctx, senderIDs)
	if err != nil {
		return nil, err
	}

	views := make([]messagemodel.MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, messagemodel.MessageView{
			ID:        m.ID,
			Sender:    senders[m.Sender],
			Content:   m.Content,
			Chat:      *chatView,
			ReadBy:    m.ReadBy,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		})
	}
	return views, nil
}

// MarkRead records the caller as having read every message in the chat.
func MarkRead(ctx context.Context, selfID, chatID primitive.ObjectID) error {
	chat, err := chatservice.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasUser(selfID) {
		return errs.ErrNoPermission.WithDetail("not a member of this chat")
	}
	_, err = coll().UpdateMany(ctx,
		bson.M{"chat": chatID, "read_by": bson.M{"$ne": selfID}},
		bson.M{"$addToSet": bson.M{"read_by": selfID}},
	)
	return errors.Wrap(err, "mark messages read")
}

// Delete removes one message; only the sender may delete it.
func Delete(ctx context.Context, selfID, messageID primitive.ObjectID) error {
	var m messagemodel.Message
	err := coll().FindOne(ctx, bson.M{"_id": messageID}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errs.ErrNotFound.WithDetail("message not found")
	}
	if err != nil {
		return errors.Wrap(err, "find message")
	}
	if m.Sender != selfID {
		return errs.ErrNoPermission.WithDetail("only the sender can delete a message")
	}
	_, err = coll().DeleteOne(ctx, bson.M{"_id": messageID})
	return errors.Wrap(err, "delete message")
}
