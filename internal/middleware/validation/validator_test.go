package validation

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func newTestApp() *fiber.App {
	app := fiber.New()
	app.Use(Middleware(Config{Logger: zap.NewNop()}))
	app.Post("/api/v1/query", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Post("/api/v1/documents", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) int {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestQueryValidation(t *testing.T) {
	app := newTestApp()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid query", `{"query": "How many vacation days do I get?"}`, fiber.StatusOK},
		{"query with policy keyword", `{"query": "How do I update my home address?"}`, fiber.StatusOK},
		{"missing query", `{"employee_id": "emp-1"}`, fiber.StatusBadRequest},
		{"empty query", `{"query": "   "}`, fiber.StatusBadRequest},
		{"malformed json", `{"query": `, fiber.StatusBadRequest},
		{"sql injection", `{"query": "x'; DROP TABLE employees; --"}`, fiber.StatusBadRequest},
		{"xss attempt", `{"query": "<script>alert(1)</script>"}`, fiber.StatusBadRequest},
		{"oversized query", `{"query": "` + strings.Repeat("a", 6000) + `"}`, fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := postJSON(t, app, "/api/v1/query", tt.body); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDocumentValidation(t *testing.T) {
	app := newTestApp()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid document", `{"filename": "leave_policy.md", "content": "Employees accrue 20 days."}`, fiber.StatusOK},
		{"missing filename", `{"content": "text"}`, fiber.StatusBadRequest},
		{"missing content", `{"filename": "policy.md"}`, fiber.StatusBadRequest},
		{"path traversal", `{"filename": "../../etc/passwd", "content": "x"}`, fiber.StatusBadRequest},
		{"absolute path", `{"filename": "/etc/passwd", "content": "x"}`, fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := postJSON(t, app, "/api/v1/documents", tt.body); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestContentTypeRejected(t *testing.T) {
	app := newTestApp()

	req := httptest.NewRequest("POST", "/api/v1/query", strings.NewReader("query=hello"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusUnsupportedMediaType)
	}
}
