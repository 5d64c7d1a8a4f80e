package mudradesk

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
)

// FlashCookie carries one-shot messages across a redirect.
const FlashCookie = "mudra_flash"

// Flash message categories.
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashWarning = "warning"
	FlashError   = "error"
)

// FlashMessage is a category-tagged notice shown once on the next page render.
type FlashMessage struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

const flashLocalsKey = "mudra_flash_pending"

// Flash queues a message for the next rendered page. Messages queued
// earlier in the same request are preserved.
func Flash(c *fiber.Ctx, category, message string) {
	messages, ok := c.Locals(flashLocalsKey).([]FlashMessage)
	if !ok {
		messages = peekFlashes(c)
	}
	messages = append(messages, FlashMessage{Category: category, Message: message})
	c.Locals(flashLocalsKey, messages)

	raw, err := json.Marshal(messages)
	if err != nil {
		return
	}

	c.Cookie(&fiber.Cookie{
		Name:     FlashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		Expires:  time.Now().Add(5 * time.Minute),
		HTTPOnly: true,
		SameSite: "Lax",
	})
}

// ConsumeFlashes returns the queued messages and clears the cookie.
// Messages queued earlier in the same request are included.
func ConsumeFlashes(c *fiber.Ctx) []FlashMessage {
	messages, ok := c.Locals(flashLocalsKey).([]FlashMessage)
	if !ok {
		messages = peekFlashes(c)
	}
	if len(messages) == 0 {
		return nil
	}

	c.Locals(flashLocalsKey, []FlashMessage{})

	c.Cookie(&fiber.Cookie{
		Name:     FlashCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return messages
}

func peekFlashes(c *fiber.Ctx) []FlashMessage {
	raw := c.Cookies(FlashCookie)
	if raw == "" {
		return nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}

	var messages []FlashMessage
	if err := json.Unmarshal(decoded, &messages); err != nil {
		return nil
	}

	return messages
}
