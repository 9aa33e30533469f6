package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakeConn struct {
	connected bool
}

func (f fakeConn) IsConnected() bool {
	return f.connected
}

func TestReadinessCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)

	serve := func(nats ConnChecker) *httptest.ResponseRecorder {
		h := NewHandlers(nil, nil, nats)
		router := gin.New()
		router.GET("/ready", h.ReadinessCheck)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
		return w
	}

	assert.Equal(t, http.StatusOK, serve(fakeConn{connected: true}).Code)

	// NATS断连时报告未就绪
	w := serve(fakeConn{connected: false})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not ready")

	// 不依赖NATS的部署场景
	assert.Equal(t, http.StatusOK, serve(nil).Code)
}
