package message

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"chatwire/middleware"
	midsec "chatwire/middleware/security"
	messageservice "chatwire/module/message/service"
	"chatwire/tools/errs"
	"chatwire/tools/web"
)

type sendReq struct {
	ChatID  string `json:"chatId"`
	Content string `json:"content"`
}

// RegisterRoutes mounts the message endpoints under /api/message.
func RegisterRoutes(r gin.IRoutes) {
	middleware.POST(r, "/api/message", send, middleware.RouteOpt{IsAuth: true})
	middleware.GET(r, "/api/message/:chatId", allMessages, middleware.RouteOpt{IsAuth: true})
	middleware.PUT(r, "/api/message/read/:chatId", markRead, middleware.RouteOpt{IsAuth: true})
	middleware.DELETE(r, "/api/message/:messageId", remove, middleware.RouteOpt{IsAuth: true})
}

func send(c *gin.Context) {
	var req sendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		web.Fail(c, errs.ErrArgs.WithDetail("invalid request body"))
		return
	}
	chatID, err := primitive.ObjectIDFromHex(req.ChatID)
	if err != nil {
		web.Fail(c, errs.ErrArgs.WithDetail("invalid chatId"))
		return
	}
	self := midsec.CurrentUser(c)
	view, err := messageservice.Send(c.Request.Context(), self.ID, chatID, req.Content)
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.OK(c, http.StatusCreated, view)
}

func allMessages(c *gin.Context) {
	chatID, err := primitive.ObjectIDFromHex(c.Param("chatId"))
	if err != nil {
		web.Fail(c, errs.ErrArgs.WithDetail("invalid chatId"))
		return
	}
	self := midsec.CurrentUser(c)
	views, err := messageservice.AllMessages(c.Request.Context(), self.ID, chatID)
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.OK(c, http.StatusOK, views)
}

func markRead(c *gin.Context) {
	chatID, err := primitive.ObjectIDFromHex(c.Param("chatId"))
	if err != nil {
		web.Fail(c, errs.ErrArgs.WithDetail("invalid chatId"))
		return
	}
	self := midsec.CurrentUser(c)
	if err := messageservice.MarkRead(c.Request.Context(), self.ID, chatID); err != nil {
		web.Fail(c, err)
		return
	}
	web.OK(c, http.StatusOK, gin.H{"read": true})
}

func remove(c *gin.Context) {
	messageID, err := primitive.ObjectIDFromHex(c.Param("messageId"))
	if err != nil {
		web.Fail(c, errs.ErrArgs.WithDetail("invalid messageId"))
		return
	}
	self := midsec.CurrentUser(c)
	if err := messageservice.Delete(c.Request.Context(), self.ID, messageID); err != nil {
		web.Fail(c, err)
		return
	}
	web.OK(c, http.StatusOK, gin.H{"deleted": true})
}
