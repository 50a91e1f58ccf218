package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"buidl-engine/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

// ListNotifications returns recent advisory events, optionally filtered by
// hackathon.
func (s *NotificationService) ListNotifications(c *fiber.Ctx) error {
	query := s.DB.Order("created_at DESC").Limit(100)
	if hid := c.Query("hackathon_id"); hid != "" {
		query = query.Where("hackathon_id = ?", hid)
	}

	var notifications []models.Notification
	if err := query.Find(&notifications).Error; err != nil {
		log.Printf("DB error listing notifications: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(notifications)
}

// StreamNotificationsSSE streams advisory events in real time. Observers are
// advisory only: a dropped stream never affects engine state.
func (s *NotificationService) StreamNotificationsSSE(c *fiber.Ctx) error {
	hackathonID := c.Query("hackathon_id")

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		var lastMaxCreatedAt time.Time

		// Initialize cursor
		var latest models.Notification
		cursorQuery := s.DB.Order("created_at DESC")
		if hackathonID != "" {
			cursorQuery = cursorQuery.Where("hackathon_id = ?", hackathonID)
		}
		if err := cursorQuery.First(&latest).Error; err == nil {
			lastMaxCreatedAt = latest.CreatedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("SSE init error: %v", err)
		}

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case <-ticker.C:
				var fresh []models.Notification

				query := s.DB.Where("created_at > ?", lastMaxCreatedAt).Order("created_at ASC")
				if hackathonID != "" {
					query = query.Where("hackathon_id = ?", hackathonID)
				}
				if err := query.Find(&fresh).Error; err != nil {
					log.Printf("SSE query error: %v", err)
					continue
				}

				if len(fresh) == 0 {
					continue
				}

				lastMaxCreatedAt = fresh[len(fresh)-1].CreatedAt

				for _, n := range fresh {
					payload, _ := json.Marshal(n)

					fmt.Fprintf(w,
						"event: %s\ndata: %s\n\n",
						n.Type, payload,
					)
				}

				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-c.Context().Done():
				// Client closed connection
				return
			}
		}
	})

	return nil
}
