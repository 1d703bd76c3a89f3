package model

import "time"

// WebhookEvent records processed provider event ids so redelivered
// events can be acknowledged without re-running their side effects.
type WebhookEvent struct {
	ID          uint   `gorm:"primaryKey"`
	Provider    string `gorm:"size:32;not null;uniqueIndex:ux_webhook_events_provider_event,priority:1"`
	EventID     string `gorm:"size:128;not null;uniqueIndex:ux_webhook_events_provider_event,priority:2"`
	EventType   string `gorm:"size:64;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}
