package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"shorts_farm/internal/common"
)

const secret = "bi-mat"

func TestParseToken(t *testing.T) {
	uid := primitive.NewObjectID()
	raw, err := IssueToken(secret, uid, "a@b.c", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(secret, raw)
	require.NoError(t, err)
	assert.Equal(t, uid.Hex(), claims.UserID)

	_, err = ParseToken("sai-bi-mat", raw)
	assert.ErrorIs(t, err, common.ErrTokenInvalid, "Sai secret phải bị từ chối")

	expired, err := IssueToken(secret, uid, "", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(secret, expired)
	assert.ErrorIs(t, err, common.ErrTokenExpired, "Token hết hạn")
}

func TestAuthMiddleware(t *testing.T) {
	uid := primitive.NewObjectID()
	app := fiber.New()
	app.Get("/me", func(c fiber.Ctx) error {
		return c.SendString(c.Locals("user_id").(string))
	}, AuthMiddleware(secret))

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode, "Thiếu token phải 401")

	raw, err := IssueToken(secret, uid, "", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
