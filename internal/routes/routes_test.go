package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"clinic-app-server/internal/config"
	"clinic-app-server/internal/metrics"
	"clinic-app-server/internal/notify"
)

type discardStorage struct{}

func (discardStorage) Save(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	_, err := io.Copy(io.Discard, body)
	return "/uploads/" + key, err
}

func newRouter(t *testing.T) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		JWTSecret:        "secret",
		JWTRefreshSecret: "refresh",
		Booking:          config.BookingConfig{CacheTTL: 900 * time.Second},
		Storage:          config.StorageConfig{Backend: "local", UploadsRoot: t.TempDir(), UploadsURL: "/uploads"},
	}
	reg := prometheus.NewRegistry()

	router := gin.New()
	dispatcher := SetupRoutes(router, Deps{
		DB:       db,
		Config:   cfg,
		Redis:    rdb,
		Storage:  discardStorage{},
		Mailer:   notify.NewStubEmailSender(zerolog.Nop()),
		Metrics:  metrics.New(reg),
		Gatherer: reg,
		Logger:   zerolog.Nop(),
	})
	require.NotNil(t, dispatcher)
	return router, mr
}

func serve(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, mr := newRouter(t)

	w := serve(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"UP"`)

	mr.Close()
	w = serve(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"cache":"DOWN"`)
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newRouter(t)

	w := serve(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStaffRoutesRequireToken(t *testing.T) {
	r, _ := newRouter(t)

	for _, target := range []string{
		"/api/v1/appointments",
		"/api/v1/appointments/all",
		"/api/v1/appointments/upcoming",
		"/api/v1/appointments/some-id",
		"/api/v1/procedures",
		"/api/v1/doctors",
		"/api/v1/auth/profile",
	} {
		w := serve(r, http.MethodGet, target, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, target)
	}
}

func TestBookingIsPublic(t *testing.T) {
	r, _ := newRouter(t)

	w := serve(r, http.MethodPost, "/api/v1/appointments/book", `{"doctor":"d-1"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "PatientDataError")
}
