package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deppfellow/go-invoices/internal/server"
)

func TestWithUserReachesRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	e := echo.New()
	e.Use(NewContextEnhancer(&server.Server{Logger: &base}).EnhanceContext())

	authenticate := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			WithUser(c, "user_123", "org:admin")
			return next(c)
		}
	}
	dashboard := e.Group("/dashboard", authenticate)
	dashboard.GET("/invoices", func(c echo.Context) error {
		assert.Equal(t, "user_123", GetUserID(c))
		GetLogger(c).Info().Msg("from echo context")
		zerolog.Ctx(c.Request().Context()).Info().Msg("from request context")
		return c.NoContent(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/invoices", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		assert.Equal(t, "user_123", entry["user_id"])
		assert.Equal(t, "org:admin", entry["user_role"])
		assert.Equal(t, "/dashboard/invoices", entry["path"])
	}
}

func TestWithUserOmitsEmptyRole(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	setLogger(c, base)

	WithUser(c, "user_123", "")
	GetLogger(c).Info().Msg("done")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "user_123", entry["user_id"])
	assert.NotContains(t, entry, "user_role")
}
