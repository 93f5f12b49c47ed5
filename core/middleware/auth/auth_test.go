package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(cfg Config) *fiber.App {
	app := fiber.New()
	app.Use(New(cfg))
	app.Get("/*", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		path   string
		header map[string]string
		want   int
	}{
		{"disabled", Config{}, "/sync/runs", nil, fiber.StatusOK},
		{"missing key", Config{ApiKey: "k"}, "/sync/runs", nil, fiber.StatusUnauthorized},
		{"wrong key", Config{ApiKey: "k"}, "/sync/runs", map[string]string{Header: "x"}, fiber.StatusUnauthorized},
		{"header key", Config{ApiKey: "k"}, "/sync/runs", map[string]string{Header: "k"}, fiber.StatusOK},
		{"skipped path", Config{ApiKey: "k", Skip: []string{"/swagger"}}, "/swagger/index.html", nil, fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			resp, err := newApp(tt.cfg).Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
