package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// NotificationKind enumerates the event sources feeding the pipeline.
type NotificationKind string

const (
	KindWeatherAlert       NotificationKind = "weather_alert"
	KindPestAlert          NotificationKind = "pest_alert"
	KindIrrigationReminder NotificationKind = "irrigation_reminder"
	KindTaskAssignment     NotificationKind = "task_assignment"
	KindMarketplaceOrder   NotificationKind = "marketplace_order"
	KindSystem             NotificationKind = "system"
	KindCustom             NotificationKind = "custom"
)

var knownKinds = map[NotificationKind]bool{
	KindWeatherAlert:       true,
	KindPestAlert:          true,
	KindIrrigationReminder: true,
	KindTaskAssignment:     true,
	KindMarketplaceOrder:   true,
	KindSystem:             true,
	KindCustom:             true,
}

func (k NotificationKind) Valid() bool {
	return knownKinds[k]
}

// Priority affects the retry budget and queue preemption.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// PrioritiesDescending is the strict preference order for the worker pool.
var PrioritiesDescending = []Priority{PriorityCritical, PriorityHigh, PriorityNormal, PriorityLow}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// RetryBudget is the maximum number of delivery attempts per channel.
func (p Priority) RetryBudget() int {
	switch p {
	case PriorityCritical:
		return 8
	case PriorityHigh:
		return 5
	case PriorityNormal:
		return 3
	default:
		return 1
	}
}

// BypassesQuietHours: critical delivers inside quiet-hours windows. It never
// bypasses an explicit opt-out.
func (p Priority) BypassesQuietHours() bool {
	return p == PriorityCritical
}

// Channel is a delivery medium.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
	ChannelInApp Channel = "inapp"
)

var AllChannels = []Channel{ChannelSMS, ChannelEmail, ChannelPush, ChannelInApp}

func (c Channel) Valid() bool {
	switch c {
	case ChannelSMS, ChannelEmail, ChannelPush, ChannelInApp:
		return true
	}
	return false
}

// TargetType tags the target union.
type TargetType string

const (
	TargetRecipient    TargetType = "recipient"
	TargetRecipientIDs TargetType = "recipient_ids"
	TargetTopic        TargetType = "topic"
	TargetGeo          TargetType = "geo"
)

// GeoFilter selects recipients by tagged location and crop. Matching is
// best-effort against the eventually consistent directory.
type GeoFilter struct {
	Governorate string `json:"governorate,omitempty"`
	District    string `json:"district,omitempty"`
	Crop        string `json:"crop,omitempty"`
}

func (g GeoFilter) Empty() bool {
	return g.Governorate == "" && g.District == "" && g.Crop == ""
}

// Target is the tagged union a notification is addressed to.
type Target struct {
	Type         TargetType `json:"type"`
	RecipientID  int64      `json:"recipient_id,omitempty"`
	RecipientIDs []int64    `json:"recipient_ids,omitempty"`
	Topic        string     `json:"topic,omitempty"`
	Geo          *GeoFilter `json:"geo,omitempty"`
}

func (t Target) Valid() bool {
	switch t.Type {
	case TargetRecipient:
		return t.RecipientID > 0
	case TargetRecipientIDs:
		return len(t.RecipientIDs) > 0
	case TargetTopic:
		return t.Topic != ""
	case TargetGeo:
		return t.Geo != nil && !t.Geo.Empty()
	}
	return false
}

func (t Target) Value() (driver.Value, error) {
	return json.Marshal(t)
}

func (t *Target) Scan(value interface{}) error {
	if value == nil {
		*t = Target{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal target value")
	}
	return json.Unmarshal(bytes, t)
}

// NotificationState is the request lifecycle.
type NotificationState string

const (
	NotificationStateReceived  NotificationState = "received"
	NotificationStateResolving NotificationState = "resolving"
	NotificationStateEnqueued  NotificationState = "enqueued"
	NotificationStateCompleted NotificationState = "completed"
	NotificationStateCancelled NotificationState = "cancelled"
)

// Notification is the durable record for one accepted request.
type Notification struct {
	BaseModel
	PublicID      int64             `gorm:"uniqueIndex;not null" json:"public_id"`
	TenantID      string            `gorm:"type:varchar(64);not null;index:idx_notifications_tenant" json:"tenant_id"`
	Kind          NotificationKind  `gorm:"type:varchar(32);not null" json:"kind"`
	Priority      Priority          `gorm:"type:varchar(16);not null;default:'normal'" json:"priority"`
	Target        Target            `gorm:"type:jsonb;not null" json:"target"`
	Channels      ChannelList       `gorm:"type:jsonb" json:"channels"` // empty = all opted-in channels
	TemplateID    string            `gorm:"type:varchar(64);not null" json:"template_id"`
	Parameters    JSONB             `gorm:"type:jsonb" json:"parameters"`
	CorrelationID string            `gorm:"type:varchar(128);not null" json:"correlation_id"`
	DedupKey      *string           `gorm:"type:varchar(128)" json:"dedup_key,omitempty"`
	State         NotificationState `gorm:"type:varchar(16);not null;default:'received';index:idx_notifications_tenant" json:"state"`
	SubmittedAt   time.Time         `gorm:"type:timestamptz;not null" json:"submitted_at"`
	TTLSeconds    int               `gorm:"not null" json:"ttl_seconds"`
	CompletedAt   *time.Time        `gorm:"type:timestamptz" json:"completed_at,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}

// ExpiresAt is the hard deadline after which no further attempts start.
func (n *Notification) ExpiresAt() time.Time {
	return n.SubmittedAt.Add(time.Duration(n.TTLSeconds) * time.Second)
}

func (n *Notification) Expired(now time.Time) bool {
	return now.After(n.ExpiresAt())
}

// Terminal reports whether the lifecycle can no longer move.
func (s NotificationState) Terminal() bool {
	return s == NotificationStateCompleted || s == NotificationStateCancelled
}

// ChannelList maps a jsonb array of channel tags, preserving request order.
type ChannelList []Channel

func (l ChannelList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]Channel{})
	}
	return json.Marshal(l)
}

func (l *ChannelList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal channel list value")
	}
	return json.Unmarshal(bytes, l)
}
