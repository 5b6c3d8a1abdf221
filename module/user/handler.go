package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chatwire/middleware"
	midsec "chatwire/middleware/security"
	userservice "chatwire/module/user/service"
	"chatwire/tools/errs"
	"chatwire/tools/web"
)

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Pic      string `json:"pic"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type statusReq struct {
	Status string `json:"status"`
}

type profileReq struct {
	Name string `json:"name"`
	Pic  string `json:"pic"`
}

// RegisterRoutes mounts the user endpoints under /api/user.
func RegisterRoutes(r gin.IRoutes) {
	middleware.POST(r, "/api/user", register, middleware.RouteOpt{})
	middleware.POST(r, "/api/user/login", login, middleware.RouteOpt{})
	middleware.GET(r, "/api/user", search, middleware.RouteOpt{IsAuth: true})
	middleware.PUT(r, "/api/user/status", updateStatus, middleware.RouteOpt{IsAuth: true})
	middleware.PUT(r, "/api/user/profile", updateProfile, middleware.RouteOpt{IsAuth: true})
}

func register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		web.Fail(c, errs.ErrArgs.WithDetail("invalid request body"))
		return
	}
	au, err := userservice.Register(c.Request.Context(), midsec.Opts(), req.Name, req.Email, req.Password, req.Pic)
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.OK(c, http.StatusCreated, au)
}

func login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		web.Fail(c, errs.ErrArgs.WithDetail("invalid request body"))
		return
	}
	au, err := userservice.Authenticate(c.Request.Context(), midsec.Opts(), req.Email, req.Password)
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.OK(c, http.StatusOK, au)
}

func search(c *gin.Context) {
	self := midsec.CurrentUser(c)
	users, err := userservice.Search(c.Request.Context(), self.ID, c.Query("search"))
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.OK(c, http.StatusOK, users)
}

func updateStatus(c *gin.Context) {
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		web.Fail(c, errs.ErrArgs.WithDetail("invalid request body"))
		return
	}
	self := midsec.CurrentUser(c)
	au, err := userservice.UpdateStatusLine(c.Request.Context(), midsec.Opts(), self.ID, req.Status)
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.OK(c, http.StatusOK, au)
}

func updateProfile(c *gin.Context) {
	var req profileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		web.Fail(c, errs.ErrArgs.WithDetail("invalid request body"))
		return
	}
	self := midsec.CurrentUser(c)
	au, err := userservice.UpdateProfile(c.Request.Context(), midsec.Opts(), self.ID, req.Name, req.Pic)
	if err != nil {
		web.Fail(c, err)
		return
	}
	web.OK(c, http.StatusOK, au)
}
