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

	chatmodel "chatwire/module/chat/model"
	messagemodel "chatwire/module/message/model"
	userservice "chatwire/module/user/service"
	"chatwire/service/mgo"
	"chatwire/tools/errs"
)

func coll() *mongo.Collection { return mgo.GetDB().Collection(chatmodel.Collection) }

func messageColl() *mongo.Collection { return mgo.GetDB().Collection(messagemodel.Collection) }

// AccessChat returns the one-to-one chat between the caller and other,
// creating it on first contact. Re-accessing a chat the caller deleted
// for themselves brings it back.
func AccessChat(ctx context.Context, selfID, otherID primitive.ObjectID) (*chatmodel.ChatView, error) {
	if otherID.IsZero() {
		return nil, errs.ErrArgs.WithDetail("userId is required")
	}

	var c chatmodel.Chat
	err := coll().FindOne(ctx, bson.M{
		"is_group_chat": false,
		"users":         bson.M{"$all": bson.A{selfID, otherID}},
	}).Decode(&c)
	switch {
	case err == nil:
		if _, uerr := coll().UpdateByID(ctx, c.ID,
			bson.M{"$pull": bson.M{"deleted_for": selfID}}); uerr != nil {
			return nil, errors.Wrap(uerr, "restore chat")
		}
		return populateOne(ctx, c)
	case errors.Is(err, mongo.ErrNoDocuments):
		// fall through to create
	default:
		return nil, errors.Wrap(err, "find one-to-one chat")
	}

	if _, err := userservice.GetByID(ctx, otherID); err != nil {
		return nil, err
	}

	now := time.Now()
	c = chatmodel.Chat{
		ID:        primitive.NewObjectID(),
		ChatName:  "sender",
		Users:     []primitive.ObjectID{selfID, otherID},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := coll().InsertOne(ctx, c); err != nil {
		return nil, errors.Wrap(err, "insert chat")
	}
	return populateOne(ctx, c)
}

// FetchChats lists the caller's chats, most recently active first,
// skipping the ones the caller deleted for themselves.
func FetchChats(ctx context.Context, selfID primitive.ObjectID) ([]chatmodel.ChatView, error) {
	cur, err := coll().Find(ctx,
		bson.M{"users": selfID, "deleted_for": bson.M{"$ne": selfID}},
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "find chats")
	}
	var chats []chatmodel.Chat
	if err := cur.All(ctx, &chats); err != nil {
		return nil, errors.Wrap(err, "decode chats")
	}
	return populateMany(ctx, chats)
}

// CreateGroupChat makes a group with the caller as admin. At least two
// other members are required.
func CreateGroupChat(ctx context.Context, selfID primitive.ObjectID, name string, userIDs []primitive.ObjectID) (*chatmodel.ChatView, error) {
	if name == "" {
		return nil, errs.ErrArgs.WithDetail("chat name is required")
	}
	if len(userIDs) < 2 {
		return nil, errs.ErrArgs.WithDetail("more than 2 users are required to form a group chat")
	}

	members := lo.Uniq(append(userIDs, selfID))
	now := time.Now()
	c := chatmodel.Chat{
		ID:          primitive.NewObjectID(),
		ChatName:    name,
		IsGroupChat: true,
		Users:       members,
		GroupAdmin:  selfID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := coll().InsertOne(ctx, c); err != nil {
		return nil, errors.Wrap(err, "insert group chat")
	}
	return populateOne(ctx, c)
}

// RenameGroup sets a new name; any member may rename.
func RenameGroup(ctx context.Context, selfID, chatID primitive.ObjectID, name string) (*chatmodel.ChatView, error) {
	if name == "" {
		return nil, errs.ErrArgs.WithDetail("chat name is required")
	}
	c, err := requireGroupMember(ctx, selfID, chatID)
	if err != nil {
		return nil, err
	}
	return updateAndPopulate(ctx, c.ID, bson.M{"$set": bson.M{"chat_name": name, "updated_at": time.Now()}})
}

// AddToGroup adds a member; admin only.
func AddToGroup(ctx context.Context, selfID, chatID, userID primitive.ObjectID) (*chatmodel.ChatView, error) {
	c, err := requireGroupMember(ctx, selfID, chatID)
	if err != nil {
		return nil, err
	}
	if c.GroupAdmin != selfID {
		return nil, errs.ErrNoPermission.WithDetail("only the group admin can add members")
	}
	if _, err := userservice.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return updateAndPopulate(ctx, c.ID, bson.M{
		"$addToSet": bson.M{"users": userID},
		"$pull":     bson.M{"deleted_for": userID},
		"$set":      bson.M{"updated_at": time.Now()},
	})
}

// RemoveFromGroup removes a member. The admin may remove anyone; other
// members may only remove themselves (leave).
func RemoveFromGroup(ctx context.Context, selfID, chatID, userID primitive.ObjectID) (*chatmodel.ChatView, error) {
	c, err := requireGroupMember(ctx, selfID, chatID)
	if err != nil {
		return nil, err
	}
	if c.GroupAdmin != selfID && userID != selfID {
		return nil, errs.ErrNoPermission.WithDetail("only the group admin can remove other members")
	}
	return updateAndPopulate(ctx, c.ID, bson.M{
		"$pull": bson.M{"users": userID},
		"$set":  bson.M{"updated_at": time.Now()},
	})
}

// UpdateWallpaper sets the chat background for everyone in the chat.
func UpdateWallpaper(ctx context.Context, selfID, chatID primitive.ObjectID, wallpaper string) (*chatmodel.ChatView, error) {
	c, err := requireMember(ctx, selfID, chatID)
	if err != nil {
		return nil, err
	}
	return updateAndPopulate(ctx, c.ID, bson.M{"$set": bson.M{"wallpaper": wallpaper, "updated_at": time.Now()}})
}

// DeleteChat removes a chat. Mode "me" only hides it for the caller;
// "everyone" deletes the chat and its messages for all members, which
// in a group only the admin may do.
func DeleteChat(ctx context.Context, selfID, chatID primitive.ObjectID, mode string) error {
	c, err := requireMember(ctx, selfID, chatID)
	if err != nil {
		return err
	}

	switch mode {
	case "me":
		_, err := coll().UpdateByID(ctx, c.ID, bson.M{"$addToSet": bson.M{"deleted_for": selfID}})
		return errors.Wrap(err, "hide chat")
	case "everyone":
		if c.IsGroupChat && c.GroupAdmin != selfID {
			return errs.ErrNoPermission.WithDetail("only the group admin can delete the chat for everyone")
		}
		if _, err := messageColl().DeleteMany(ctx, bson.M{"chat": c.ID}); err != nil {
			return errors.Wrap(err, "delete chat messages")
		}
		_, err := coll().DeleteOne(ctx, bson.M{"_id": c.ID})
		return errors.Wrap(err, "delete chat")
	default:
		return errs.ErrArgs.WithDetail("deleteFor must be me or everyone")
	}
}

// GetByID loads the raw chat doc; ErrNotFound when absent.
func GetByID(ctx context.Context, id primitive.ObjectID) (*chatmodel.Chat, error) {
	var c chatmodel.Chat
	err := coll().FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound.WithDetail("chat not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "find chat")
	}
	return &c, nil
}

// TouchLatestMessage records msgID as the chat's newest message.
func TouchLatestMessage(ctx context.Context, chatID, msgID primitive.ObjectID) error {
	_, err := coll().UpdateByID(ctx, chatID, bson.M{
		"$set": bson.M{"latest_message": msgID, "updated_at": time.Now()},
	})
	return errors.Wrap(err, "touch latest message")
}

// PopulateOne resolves one chat doc into its API view.
func PopulateOne(ctx context.Context, c *chatmodel.Chat) (*chatmodel.ChatView, error) {
	return populateOne(ctx, *c)
}

func requireMember(ctx context.Context, selfID, chatID primitive.ObjectID) (*chatmodel.Chat, error) {
	c, err := GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !c.HasUser(selfID) {
		return nil, errs.ErrNoPermission.WithDetail("not a member of this chat")
	}
	return c, nil
}

func requireGroupMember(ctx context.Context, selfID, chatID primitive.ObjectID) (*chatmodel.Chat, error) {
	c, err := requireMember(ctx, selfID, chatID)
	if err != nil {
		return nil, err
	}
	if !c.IsGroupChat {
		return nil, errs.ErrArgs.WithDetail("not a group chat")
	}
	return c, nil
}

func updateAndPopulate(ctx context.Context, id primitive.ObjectID, update bson.M) (*chatmodel.ChatView, error) {
	var c chatmodel.Chat
	err := coll().FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound.WithDetail("chat not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "update chat")
	}
	return populateOne(ctx, c)
}

func populateOne(ctx context.Context, c chatmodel.Chat) (*chatmodel.ChatView, error) {
	views, err := populateMany(ctx, []chatmodel.Chat{c})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// populateMany resolves member, admin and latest-message refs for a batch
// of chats with two queries total.
func populateMany(ctx context.Context, chats []chatmodel.Chat) ([]chatmodel.ChatView, error) {
	views := make([]chatmodel.ChatView, 0, len(chats))
	if len(chats) == 0 {
		return views, nil
	}

	msgIDs := make([]primitive.ObjectID, 0, len(chats))
	for _, c := range chats {
		if !c.LatestMessage.IsZero() {
			msgIDs = append(msgIDs, c.LatestMessage)
		}
	}
	msgByID := map[primitive.ObjectID]messagemodel.Message{}
	if len(msgIDs) > 0 {
		cur, err := messageColl().Find(ctx, bson.M{"_id": bson.M{"$in": lo.Uniq(msgIDs)}})
		if err != nil {
			return nil, errors.Wrap(err, "find latest messages")
		}
		var msgs []messagemodel.Message
		if err := cur.All(ctx, &msgs); err != nil {
			return nil, errors.Wrap(err, "decode latest messages")
		}
		msgByID = lo.KeyBy(msgs, func(m messagemodel.Message) primitive.ObjectID { return m.ID })
	}

	var userIDs []primitive.ObjectID
	for _, c := range chats {
		userIDs = append(userIDs, c.Users...)
		if !c.GroupAdmin.IsZero() {
			userIDs = append(userIDs, c.GroupAdmin)
		}
	}
	for _, m := range msgByID {
		userIDs = append(userIDs, m.Sender)
	}
	userByID, err := userservice.GetManyByIDs(ctx, lo.Uniq(userIDs))
	if err != nil {
		return nil, err
	}

	for _, c := range chats {
		v := chatmodel.ChatView{
			ID:          c.ID,
			ChatName:    c.ChatName,
			IsGroupChat: c.IsGroupChat,
			Wallpaper:   c.Wallpaper,
			CreatedAt:   c.CreatedAt,
			UpdatedAt:   c.UpdatedAt,
		}
		for _, uid := range c.Users {
			if u, ok := userByID[uid]; ok {
				v.Users = append(v.Users, u)
			}
		}
		if u, ok := userByID[c.GroupAdmin]; ok {
			admin := u
			v.GroupAdmin = &admin
		}
		if m, ok := msgByID[c.LatestMessage]; ok {
			v.LatestMessage = &chatmodel.LatestMessageView{
				ID:        m.ID,
				Sender:    userByID[m.Sender],
				Content:   m.Content,
				CreatedAt: m.CreatedAt,
			}
		}
		views = append(views, v)
	}
	return views, nil
}
