package db_models

import "gorm.io/datatypes"

// WebhookEvent stores every gateway webhook delivery with deduplication
// metadata. The gateway payload carries no event id, so the sha256 digest of
// the raw body is the dedup key. Keeping this in the durable store (not
// process memory) means duplicate deliveries are still detected after a
// restart or across instances.
type WebhookEvent struct {
	BaseModel
	Digest         string         `gorm:"uniqueIndex;not null"` // sha256 hex of the raw body
	EventType      string         `gorm:"index"`
	Payload        datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
	SignatureValid bool           `gorm:"default:false"`
	ProcessedAt    *int64
}
