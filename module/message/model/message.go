package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	chatmodel "chatwire/module/chat/model"
	usermodel "chatwire/module/user/model"
)

const Collection = "messages"

// Message is the stored chat message. ReadBy accumulates the ids of
// members who opened the chat after the message arrived.
type Message struct {
	ID      primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Sender  primitive.ObjectID   `bson:"sender" json:"sender"`
	Content string               `bson:"content" json:"content"`
	Chat    primitive.ObjectID   `bson:"chat" json:"chat"`
	ReadBy  []primitive.ObjectID `bson:"read_by,omitempty" json:"readBy"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// MessageView is the API shape: sender and chat resolved to full docs.
// Clients forward this payload as-is over the websocket, so Chat must
// carry the populated member list.
type MessageView struct {
	ID      primitive.ObjectID   `json:"_id"`
	Sender  usermodel.User       `json:"sender"`
	Content string               `json:"content"`
	Chat    chatmodel.ChatView   `json:"chat"`
	ReadBy  []primitive.ObjectID `json:"readBy"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
