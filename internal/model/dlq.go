package model

import "time"

// DeadLetter snapshots a terminally failed delivery for inspection. Entries
// are never retried automatically; retention is swept by the worker.
type DeadLetter struct {
	BaseModel
	TenantID       string           `gorm:"type:varchar(64);not null;index:idx_dlq_tenant" json:"tenant_id"`
	NotificationID int64            `gorm:"not null;index" json:"notification_id"`
	RecipientID    int64            `gorm:"not null" json:"recipient_id"`
	Channel        Channel          `gorm:"type:varchar(16);not null" json:"channel"`
	ErrorKind      string           `gorm:"type:varchar(48);not null" json:"error_kind"`
	Payload        JSONB            `gorm:"type:jsonb" json:"payload"`  // full request snapshot
	Attempts       JSONB            `gorm:"type:jsonb" json:"attempts"` // attempt trail
	ParkedAt       time.Time        `gorm:"type:timestamptz;not null;default:now()" json:"parked_at"`
}

func (DeadLetter) TableName() string {
	return "dead_letters"
}

// DedupRecord pins a (tenant, dedup key hash) to the notification it
// produced. The unique index is what makes duplicate submission race-safe.
type DedupRecord struct {
	BaseModel
	TenantID       string    `gorm:"type:varchar(64);not null;uniqueIndex:uq_dedup,priority:1" json:"tenant_id"`
	DedupKeyHash   string    `gorm:"type:char(64);not null;uniqueIndex:uq_dedup,priority:2" json:"dedup_key_hash"`
	NotificationID int64     `gorm:"not null" json:"notification_id"`
	ExpiresAt      time.Time `gorm:"type:timestamptz;not null;index" json:"expires_at"`
}

func (DedupRecord) TableName() string {
	return "dedup_records"
}

// InboxMessage is the in-app channel store. Writing the row is the delivery;
// the unique key makes it idempotent.
type InboxMessage struct {
	BaseModel
	TenantID       string     `gorm:"type:varchar(64);not null;uniqueIndex:uq_inbox,priority:1" json:"tenant_id"`
	RecipientID    int64      `gorm:"not null;uniqueIndex:uq_inbox,priority:2" json:"recipient_id"`
	NotificationID int64      `gorm:"not null;uniqueIndex:uq_inbox,priority:3" json:"notification_id"`
	Subject        string     `gorm:"type:varchar(255)" json:"subject"`
	Body           string     `gorm:"type:text;not null" json:"body"`
	ReadAt         *time.Time `gorm:"type:timestamptz" json:"read_at,omitempty"`
}

func (InboxMessage) TableName() string {
	return "inbox_messages"
}
