package basehdl

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shorts_farm/internal/common"
)

func decode(t *testing.T, body io.Reader) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestHandleResponse_Envelope(t *testing.T) {
	app := fiber.New()
	app.Get("/ok", func(c fiber.Ctx) error { return HandleResponse(c, fiber.Map{"x": 1}, nil) })
	app.Get("/credits", func(c fiber.Ctx) error { return HandleResponse(c, nil, common.ErrInsufficientCredits) })
	app.Get("/plain", func(c fiber.Ctx) error { return HandleResponse(c, nil, errors.New("boom")) })
	app.Get("/panic", func(c fiber.Ctx) error {
		return SafeHandler(c, func() error { panic("hỏng") })
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	body := decode(t, resp.Body)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, float64(1), body["data"].(map[string]interface{})["x"])

	resp, err = app.Test(httptest.NewRequest("GET", "/credits", nil))
	require.NoError(t, err)
	assert.Equal(t, 402, resp.StatusCode, "Hết lượt tạo video trả về 402")
	body = decode(t, resp.Body)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "You have no video generation tokens left.", body["message"])

	resp, err = app.Test(httptest.NewRequest("GET", "/plain", nil))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/panic", nil))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode, "Panic trong handler trả về 500")
}

func TestParseAndValidate(t *testing.T) {
	type input struct {
		Name string `json:"name" validate:"required"`
	}
	app := fiber.New()
	app.Post("/", func(c fiber.Ctx) error {
		var in input
		if err := ParseAndValidate(c, &in); err != nil {
			return HandleResponse(c, nil, err)
		}
		return HandleResponse(c, in.Name, nil)
	})

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"ok"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/", strings.NewReader(`{}`)))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode, "Thiếu field bắt buộc phải 400")

	resp, err = app.Test(httptest.NewRequest("POST", "/", strings.NewReader(`{bad`)))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode, "JSON hỏng phải 400")
}

func TestHealth_Degraded(t *testing.T) {
	app := fiber.New()
	h := NewSystemHandler(map[string]Pinger{
		"mongodb": func(context.Context) error { return nil },
		"redis":   func(context.Context) error { return errors.New("down") },
	})
	app.Get("/health", h.HandleHealth)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)
	body := decode(t, resp.Body)
	services := body["data"].(map[string]interface{})["services"].(map[string]interface{})
	assert.Equal(t, "ok", services["mongodb"])
	assert.Equal(t, "error", services["redis"])
}
