package status

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"chatwire/middleware"
	midsec "chatwire/middleware/security"
	statusservice "chatwire/module/status/service"
	"chatwire/tools/errs"
	"chatwire/tools/web"
)

type createReq struct {
	MediaType string `json:"mediaType"`
	MediaURL  string `json:"mediaUrl"`
	Caption   string `json:"caption"`
}

// RegisterRoutes mounts the status endpoints under /api/status.
func RegisterRoutes(r gin.IRoutes) {
	middleware.POST(r, "/api/status", create, middleware.RouteOpt{IsAuth: true})
	middleware.GET(r, "/api/status", feed, middleware.RouteOpt{IsAuth: true})
	middleware.GET(r, "/api/status/user/:userId", forUser, middleware.RouteOpt{IsAuth: true})
	middleware.PUT(r, "/api/status/view/:statusId", markViewed, middleware.RouteOpt{IsAuth: true})
	middleware.DELETE(r, "/api/status/:statusId", remove, middleware.RouteOpt{IsAuth: true})
}

func create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		web.Fail(c, errs.ErrArgs.WithDetail("invalid request body"))
		return
	}
	self := midsec.CurrentUser(c)
	s, err := statusservice.Create(c.Request.Context(), self.ID, req.MediaType, req.MediaURL, req.Caption)
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.OK(c, http.StatusCreated, s)
}

func feed(c *gin.Context) {
	out, err := statusservice.Feed(c.Request.Context())
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.OK(c, http.StatusOK, out)
}

func forUser(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("userId"))
	if err != nil {
		web.Fail(c, errs.ErrArgs.WithDetail("invalid userId"))
		return
	}
	out, err := statusservice.ForUser(c.Request.Context(), userID)
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.OK(c, http.StatusOK, out)
}

func markViewed(c *gin.Context) {
	statusID, err := primitive.ObjectIDFromHex(c.Param("statusId"))
	if err != nil {
		web.Fail(c, errs.ErrArgs.WithDetail("invalid statusId"))
		return
	}
	self := midsec.CurrentUser(c)
	s, err := statusservice.MarkViewed(c.Request.Context(), self.ID, statusID)
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.OK(c, http.StatusOK, s)
}

func remove(c *gin.Context) {
	statusID, err := primitive.ObjectIDFromHex(c.Param("statusId"))
	if err != nil {
		web.Fail(c, errs.ErrArgs.WithDetail("invalid statusId"))
		return
	}
	self := midsec.CurrentUser(c)
	if err := statusservice.Delete(c.Request.Context(), self.ID, statusID); err != nil {
		web.Fail(c, err)
		return
	}
	web.OK(c, http.StatusOK, gin.H{"deleted": true})
}
