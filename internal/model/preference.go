package model

// ChannelPreference is the per-recipient, per-channel opt-in row. Quiet hours
// are local wall-clock times in the recipient's timezone; a window may span
// midnight (start > end).
type ChannelPreference struct {
	BaseModel
	TenantID        string  `gorm:"type:varchar(64);not null;index" json:"tenant_id"`
	RecipientID     int64   `gorm:"not null;uniqueIndex:uq_preferences,priority:1" json:"recipient_id"`
	Channel         Channel `gorm:"type:varchar(16);not null;uniqueIndex:uq_preferences,priority:2" json:"channel"`
	Enabled         bool    `gorm:"not null;default:true" json:"enabled"`
	QuietHoursStart *string `gorm:"type:varchar(8)" json:"quiet_hours_start,omitempty"` // "22:00"
	QuietHoursEnd   *string `gorm:"type:varchar(8)" json:"quiet_hours_end,omitempty"`   // "06:00"
}

func (ChannelPreference) TableName() string {
	return "channel_preferences"
}

func (p *ChannelPreference) HasQuietHours() bool {
	return p.QuietHoursStart != nil && p.QuietHoursEnd != nil &&
		*p.QuietHoursStart != "" && *p.QuietHoursEnd != ""
}

// PreferenceDecision is the outcome of a delivery-time preference check.
type PreferenceDecision string

const (
	DecisionAllow          PreferenceDecision = "allow"
	DecisionDenyOptedOut   PreferenceDecision = "deny_opted_out"
	DecisionDenyQuietHours PreferenceDecision = "deny_quiet_hours"
)
