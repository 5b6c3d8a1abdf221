package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	usermodel "chatwire/module/user/model"
)

const Collection = "chats"

// Chat is the conversation document. Users holds member ids; one-to-one
// chats have exactly two and no admin. DeletedFor hides the chat per user
// without removing it for the others.
type Chat struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	ChatName      string               `bson:"chat_name" json:"chatName"`
	IsGroupChat   bool                 `bson:"is_group_chat" json:"isGroupChat"`
	Users         []primitive.ObjectID `bson:"users" json:"users"`
	LatestMessage primitive.ObjectID   `bson:"latest_message,omitempty" json:"latestMessage,omitempty"`
	GroupAdmin    primitive.ObjectID   `bson:"group_admin,omitempty" json:"groupAdmin,omitempty"`
	Wallpaper     string               `bson:"wallpaper,omitempty" json:"wallpaper,omitempty"`
	DeletedFor    []primitive.ObjectID `bson:"deleted_for,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// LatestMessageView is the populated preview shown in chat lists.
type LatestMessageView struct {
	ID        primitive.ObjectID `json:"_id"`
	Sender    usermodel.User     `json:"sender"`
	Content   string             `json:"content"`
	CreatedAt time.Time          `json:"createdAt"`
}

// ChatView is the API shape: member ids resolved to user docs.
type ChatView struct {
	ID            primitive.ObjectID `json:"_id"`
	ChatName      string             `json:"chatName"`
	IsGroupChat   bool               `json:"isGroupChat"`
	Users         []usermodel.User   `json:"users"`
	LatestMessage *LatestMessageView `json:"latestMessage,omitempty"`
	GroupAdmin    *usermodel.User    `json:"groupAdmin,omitempty"`
	Wallpaper     string             `json:"wallpaper,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasUser reports whether id is a member of the chat.
func (c *Chat) HasUser(id primitive.ObjectID) bool {
	for _, u := range c.Users {
		if u == id {
			return true
		}
	}
	return false
}
