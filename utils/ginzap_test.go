package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRecoveryWithZap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	l := zap.New(core)

	r := gin.New()
	r.Use(ginzap.Ginzap(l, time.RFC3339, true))
	r.Use(RecoveryWithZap(l, false)...)
	r.GET("/boom", func(*gin.Context) { panic("kaboom") })
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"msg":"Server Error"}`, w.Body.String())

	panics := logs.FilterMessage("[Recovery from panic]").All()
	require.Len(t, panics, 1)
	assert.NotContains(t, panics[0].ContextMap()["request"], "secret-token")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	access := logs.FilterMessage("/ok").All()
	require.Len(t, access, 1)
	assert.EqualValues(t, http.StatusNoContent, access[0].ContextMap()["status"])
}
