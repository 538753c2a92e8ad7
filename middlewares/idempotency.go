package middlewares

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"storefront-backend/models"
)

const HeaderIdempotencyKey = "Idempotency-Key"

// Idempotency replays the first completed response for a repeated Idempotency-Key
// on mutating methods. Records are written in their own short transactions, so
// they are not tied to the handler's RequestTx.
func Idempotency(db *gorm.DB, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		method := strings.ToUpper(c.Method())
		if method != fiber.MethodPost && method != fiber.MethodPut && method != fiber.MethodPatch && method != fiber.MethodDelete {
			return c.Next()
		}

		key := strings.TrimSpace(c.Get(HeaderIdempotencyKey))
		if key == "" {
			return c.Next()
		}
		if len(key) > 128 {
			return fiber.NewError(fiber.StatusBadRequest, "Idempotency-Key too long")
		}

		userID, _ := c.Locals("userID").(string)
		if userID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "auth context missing")
		}

		path := c.OriginalURL() // includes query string
		reqHash := requestHash(method, path, c.Body(), userID)

		// ---- Phase 1: read or create the pending record
		var existing models.IdempotencyKey
		replayed := false
		err := db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			err := tx.Where(&models.IdempotencyKey{Key: key}).First(&existing).Error
			if err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusInternalServerError, "idempotency lookup failed")
				}
				rec := models.IdempotencyKey{
					Key:         key,
					RequestHash: reqHash,
					Method:      method,
					Path:        path,
					UserID:      userID,
				}
				if e2 := tx.Create(&rec).Error; e2 != nil {
					// lost a race, read the winner
					if e3 := tx.Where(&models.IdempotencyKey{Key: key}).First(&existing).Error; e3 != nil {
						return fiber.NewError(fiber.StatusInternalServerError, "idempotency create failed")
					}
				} else {
					existing = rec
				}
			}

			if existing.RequestHash != reqHash {
				return fiber.NewError(fiber.StatusConflict, "Idempotency-Key reuse with different request")
			}
			if existing.ResponseStatus != 0 && existing.ResponseBody != nil {
				replayed = true
			}
			return nil
		})
		if err != nil {
			return err
		}
		if replayed {
			c.Set("Idempotent-Replayed", "true")
			c.Status(existing.ResponseStatus)
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
			return c.Send(existing.ResponseBody)
		}

		if err := c.Next(); err != nil {
			// failed requests may be retried with the same key
			_ = db.Where(&models.IdempotencyKey{Key: key}).Where("response_status = 0").Delete(&models.IdempotencyKey{}).Error
			return err
		}

		// ---- Phase 2: store the response (best effort)
		status := c.Response().StatusCode()
		if status >= fiber.StatusBadRequest {
			_ = db.Where(&models.IdempotencyKey{Key: key}).Where("response_status = 0").Delete(&models.IdempotencyKey{}).Error
			return nil
		}
		now := time.Now().UTC()
		resp := c.Response().Body()
		blob := make([]byte, len(resp))
		copy(blob, resp)

		if err := db.Model(&models.IdempotencyKey{}).
			Where(&models.IdempotencyKey{Key: key}).
			Updates(map[string]any{
				"response_status": status,
				"response_body":   blob,
				"completed_at":    &now,
			}).Error; err != nil {
			log.Warn().Err(err).Str("key", key).Msg("could not store idempotent response")
		}
		return nil
	}
}

// requestHash is sha256 of method|path|body|user.
func requestHash(method, path string, body []byte, userID string) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{'\n'})
	h.Write([]byte(path))
	h.Write([]byte{'\n'})
	h.Write(body)
	h.Write([]byte{'\n'})
	h.Write([]byte(userID))
	return hex.EncodeToString(h.Sum(nil))
}
