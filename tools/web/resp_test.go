package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"chatwire/tools/errs"
)

func failWith(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Fail(c, err)
	return w
}

func TestFailMapsCodeErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errs.ErrArgs, http.StatusBadRequest},
		{errs.ErrTokenInvalid, http.StatusUnauthorized},
		{errs.ErrNoPermission, http.StatusForbidden},
		{errs.ErrNotFound, http.StatusNotFound},
		{errs.ErrRecordExists, http.StatusConflict},
		{errs.ErrInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := failWith(t, tc.err)
		require.Equal(t, tc.want, w.Code)
	}
}

func TestFailKeepsDetail(t *testing.T) {
	w := failWith(t, errs.ErrArgs.WithDetail("name is required"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "name is required")
}

func TestFailHidesInternalErrors(t *testing.T) {
	w := failWith(t, errors.New("pq: connection refused"))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotContains(t, w.Body.String(), "connection refused")
}
