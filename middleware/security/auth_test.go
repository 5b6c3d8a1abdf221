package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	jwtlib "chatwire/tools/security"
)

// These cover the rejection paths, which never reach the database.

func authRequest(t *testing.T, header string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	Init(jwtlib.DefaultOptions([]byte("test-secret")))

	r := gin.New()
	r.GET("/private", Middleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	w := authRequest(t, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewareRejectsNonBearer(t *testing.T) {
	w := authRequest(t, "Basic dXNlcjpwYXNz")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewareRejectsGarbageToken(t *testing.T) {
	w := authRequest(t, "Bearer not.a.token")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewareRejectsWrongSecret(t *testing.T) {
	tok, _, err := jwtlib.Generate(jwtlib.DefaultOptions([]byte("other-secret")), "64b5f0c8a1b2c3d4e5f60718")
	require.NoError(t, err)
	w := authRequest(t, "Bearer "+tok)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewareRejectsNonObjectIDSubject(t *testing.T) {
	tok, _, err := jwtlib.Generate(jwtlib.DefaultOptions([]byte("test-secret")), "not-an-object-id")
	require.NoError(t, err)
	w := authRequest(t, "Bearer "+tok)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCurrentUserNilOnOpenRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	require.Nil(t, CurrentUser(c))
}
