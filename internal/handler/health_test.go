package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(nil).Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadyz(t *testing.T) {
	healthy := NewHealthHandler(map[string]HealthChecker{
		"redis": pingFunc(func(context.Context) error { return nil }),
		"none":  nil,
	})
	rec := httptest.NewRecorder()
	healthy.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"redis":"healthy"}}`, rec.Body.String())

	broken := NewHealthHandler(map[string]HealthChecker{
		"redis": pingFunc(func(context.Context) error { return errors.New("down") }),
	})
	rec = httptest.NewRecorder()
	broken.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
