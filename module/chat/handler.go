package chat

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"chatwire/middleware"
	midsec "chatwire/middleware/security"
	chatmodel "chatwire/module/chat/model"
	chatservice "chatwire/module/chat/service"
	"chatwire/tools/errs"
	"chatwire/tools/web"
)

type accessChatReq struct {
	UserID string `json:"userId"`
}

type groupChatReq struct {
	Name  string   `json:"name"`
	Users []string `json:"users"`
}

type renameGroupReq struct {
	ChatID   string `json:"chatId"`
	ChatName string `json:"chatName"`
}

type groupMemberReq struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

type wallpaperReq struct {
	ChatID    string `json:"chatId"`
	Wallpaper string `json:"wallpaper"`
}

type deleteChatReq struct {
	ChatID    string `json:"chatId"`
	DeleteFor string `json:"deleteFor"`
}

// RegisterRoutes mounts the chat endpoints under /api/chat.
func RegisterRoutes(r gin.IRoutes) {
	middleware.POST(r, "/api/chat", accessChat, middleware.RouteOpt{IsAuth: true})
	middleware.GET(r, "/api/chat", fetchChats, middleware.RouteOpt{IsAuth: true})
	middleware.POST(r, "/api/chat/group", createGroup, middleware.RouteOpt{IsAuth: true})
	middleware.PUT(r, "/api/chat/rename", renameGroup, middleware.RouteOpt{IsAuth: true})
	middleware.PUT(r, "/api/chat/groupadd", addToGroup, middleware.RouteOpt{IsAuth: true})
	middleware.PUT(r, "/api/chat/groupremove", removeFromGroup, middleware.RouteOpt{IsAuth: true})
	middleware.PUT(r, "/api/chat/wallpaper", updateWallpaper, middleware.RouteOpt{IsAuth: true})
	middleware.DELETE(r, "/api/chat", deleteChat, middleware.RouteOpt{IsAuth: true})
}

func accessChat(c *gin.Context) {
	var req accessChatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		web.Fail(c, errs.ErrArgs.WithDetail("invalid request body"))
		return
	}
	otherID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		web.Fail(c, errs.ErrArgs.WithDetail("invalid userId"))
		return
	}
	self := midsec.CurrentUser(c)
	view, err := chatservice.AccessChat(c.Request.Context(), self.ID, otherID)
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.OK(c, http.StatusOK, view)
}

func fetchChats(c *gin.Context) {
	self := midsec.CurrentUser(c)
	views, err := chatservice.FetchChats(c.Request.Context(), self.ID)
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.OK(c, http.StatusOK, views)
}

func createGroup(c *gin.Context) {
	var req groupChatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		web.Fail(c, errs.ErrArgs.WithDetail("invalid request body"))
		return
	}
	userIDs := make([]primitive.ObjectID, 0, len(req.Users))
	for _, s := range req.Users {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			web.Fail(c, errs.ErrArgs.WithDetail("invalid user id "+s))
			return
		}
		userIDs = append(userIDs, id)
	}
	self := midsec.CurrentUser(c)
	view, err := chatservice.CreateGroupChat(c.Request.Context(), self.ID, req.Name, userIDs)
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.OK(c, http.StatusCreated, view)
}

func renameGroup(c *gin.Context) {
	var req renameGroupReq
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
	view, err := chatservice.RenameGroup(c.Request.Context(), self.ID, chatID, req.ChatName)
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.OK(c, http.StatusOK, view)
}

func addToGroup(c *gin.Context) {
	memberOp(c, chatservice.AddToGroup)
}

func removeFromGroup(c *gin.Context) {
	memberOp(c, chatservice.RemoveFromGroup)
}

type memberOpFunc func(ctx context.Context, selfID, chatID, userID primitive.ObjectID) (*chatmodel.ChatView, error)

func memberOp(c *gin.Context, op memberOpFunc) {
	var req groupMemberReq
	if err := c.ShouldBindJSON(&req); err != nil {
		web.Fail(c, errs.ErrArgs.WithDetail("invalid request body"))
		return
	}
	chatID, err := primitive.ObjectIDFromHex(req.ChatID)
	if err != nil {
		web.Fail(c, errs.ErrArgs.WithDetail("invalid chatId"))
		return
	}
	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		web.Fail(c, errs.ErrArgs.WithDetail("invalid userId"))
		return
	}
	self := midsec.CurrentUser(c)
	view, err := op(c.Request.Context(), self.ID, chatID, userID)
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.OK(c, http.StatusOK, view)
}

func updateWallpaper(c *gin.Context) {
	var req wallpaperReq
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
	view, err := chatservice.UpdateWallpaper(c.Request.Context(), self.ID, chatID, req.Wallpaper)
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.OK(c, http.StatusOK, view)
}

func deleteChat(c *gin.Context) {
	var req deleteChatReq
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
	if err := chatservice.DeleteChat(c.Request.Context(), self.ID, chatID, req.DeleteFor); err != nil {
		web.Fail(c, err)
		return
	}
	web.OK(c, http.StatusOK, gin.H{"deleted": true})
}
