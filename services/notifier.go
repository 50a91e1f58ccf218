package services

import (
	"encoding/json"
	"log"

	"buidl-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// notify records an advisory event inside the action's transaction. A
// notification that cannot be serialized is dropped with a log line rather
// than failing the action: observers are advisory, state is not.
func notify(tx *gorm.DB, typ, hackathonID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("dropping %s notification: %v", typ, err)
		return nil
	}
	return tx.Create(&models.Notification{
		ID:          uuid.NewString(),
		Type:        typ,
		HackathonID: hackathonID,
		Payload:     string(body),
	}).Error
}
