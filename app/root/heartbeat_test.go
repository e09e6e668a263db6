package root

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestHeartbeat(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.HEAD("/api/heartbeat", Heartbeat)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodHead, "/api/heartbeat", nil))

	require.Equal(t, http.StatusOK, w.Code)
}
