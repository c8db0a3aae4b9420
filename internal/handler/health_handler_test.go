package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubPinger struct{ err error }

func (s stubPinger) PingContext(context.Context) error { return s.err }

func TestHealth(t *testing.T) {
	r := gin.New()
	r.GET("/healthz", NewHealthHandler(stubPinger{}).Health)

	w := performRequest(r, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","database":"up"}`, w.Body.String())

	r = gin.New()
	r.GET("/healthz", NewHealthHandler(stubPinger{err: errors.New("down")}).Health)

	w = performRequest(r, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
