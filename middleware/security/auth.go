package security

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	usermodel "chatwire/module/user/model"
	userservice "chatwire/module/user/service"
	"chatwire/tools/errs"
	jwtlib "chatwire/tools/security"
)

// CtxUserKey is where the middleware stores the authenticated user.
const CtxUserKey = "currentUser"

var jwtOpts jwtlib.Options

// Init must be called once at startup with the process JWT options.
func Init(opts jwtlib.Options) { jwtOpts = opts }

// Opts returns the configured JWT options (handlers issue tokens with them).
func Opts() jwtlib.Options { return jwtOpts }

// Middleware verifies the Bearer token and loads the caller's user doc
// into the gin context. Requests without a valid token are rejected.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := strings.TrimSpace(c.GetHeader("Authorization"))
		var token string
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			token = strings.TrimSpace(authz[len("bearer "):])
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenInvalid)
			return
		}

		sub, err := jwtlib.Verify(jwtOpts, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenInvalid)
			return
		}
		uid, err := primitive.ObjectIDFromHex(sub)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenInvalid)
			return
		}

		u, err := userservice.GetByID(c.Request.Context(), uid)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenInvalid)
			return
		}

		c.Set(CtxUserKey, u)
		c.Next()
	}
}

// CurrentUser returns the user loaded by Middleware; nil on open routes.
func CurrentUser(c *gin.Context) *usermodel.User {
	v, ok := c.Get(CtxUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*usermodel.User)
	return u
}
