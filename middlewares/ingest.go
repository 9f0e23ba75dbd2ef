package middlewares

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"partnerhub/helpers"

	"github.com/gofiber/fiber/v2"
)

// Sign returns the hex HMAC-SHA256 of masterCode followed by body.
func Sign(masterCode, masterSecret string, body []byte) string {
	h := hmac.New(sha256.New, []byte(masterSecret))
	h.Write([]byte(masterCode))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// IngestAuth verifies the X-Signature header of activity events pushed by the
// gaming platform.
func IngestAuth(masterCode, masterSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if masterSecret == "" {
			return helpers.JSONErrorStatus(c, fiber.StatusServiceUnavailable, "INGEST_DISABLED", nil)
		}

		got, err := hex.DecodeString(c.Get("X-Signature"))
		if err != nil || len(got) == 0 {
			return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_SIGNATURE", nil)
		}

		expected, _ := hex.DecodeString(Sign(masterCode, masterSecret, c.Body()))
		if !hmac.Equal(got, expected) {
			return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_SIGNATURE", nil)
		}

		return c.Next()
	}
}
