package entity

import (
	"time"

	"github.com/google/uuid"
)

type QRCode struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	DestinationURL string    `json:"destinationUrl"`
	ScanCount      int       `json:"scanCount"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
}

func NewQRCode(name, destination string, now time.Time) *QRCode {
	return &QRCode{
		ID:             uuid.New().String(),
		Name:           name,
		DestinationURL: destination,
		Status:         "active",
		CreatedAt:      now,
	}
}
