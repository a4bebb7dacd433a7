package model

// Locale is a bilingual tag; every recipient reads either Arabic or English.
type Locale string

const (
	LocaleAr Locale = "ar"
	LocaleEn Locale = "en"
)

func (l Locale) Valid() bool {
	return l == LocaleAr || l == LocaleEn
}

// BilingualString carries the {ar, en} pair for rendered text.
type BilingualString struct {
	Ar string `json:"ar"`
	En string `json:"en"`
}

// Pick returns the variant for the locale, falling back to Arabic.
func (b BilingualString) Pick(l Locale) string {
	if l == LocaleEn {
		return b.En
	}
	return b.Ar
}

// Recipient is a directory entry. A recipient belongs to exactly one tenant.
// The phone number is stored encrypted with its hash alongside for lookups
// and logging; the plaintext never reaches a log record.
type Recipient struct {
	BaseModel
	TenantID      string  `gorm:"type:varchar(64);not null;index:idx_recipients_tenant" json:"tenant_id"`
	Locale        Locale  `gorm:"type:varchar(8);not null;default:'ar'" json:"locale"`
	Timezone      string  `gorm:"type:varchar(64)" json:"timezone"` // IANA name, e.g. Africa/Cairo
	PhoneEnc      *string `gorm:"type:text" json:"-"`
	PhoneHash     *string `gorm:"type:char(64);index" json:"phone_hash,omitempty"`
	EmailAddress  *string `gorm:"type:varchar(255)" json:"email_address,omitempty"`
	PushToken     *string `gorm:"type:varchar(512)" json:"-"`
	Governorate   string  `gorm:"type:varchar(64);index:idx_recipients_geo,priority:1" json:"governorate"`
	District      string  `gorm:"type:varchar(64);index:idx_recipients_geo,priority:2" json:"district"`
	PrimaryCrop   string  `gorm:"type:varchar(64);index:idx_recipients_geo,priority:3" json:"primary_crop"`
}

func (Recipient) TableName() string {
	return "recipients"
}

// HasEndpoint reports whether the recipient can be reached on the channel at
// all. In-app needs no endpoint, the inbox is keyed by recipient id.
func (r *Recipient) HasEndpoint(ch Channel) bool {
	switch ch {
	case ChannelSMS:
		return r.PhoneEnc != nil && *r.PhoneEnc != ""
	case ChannelEmail:
		return r.EmailAddress != nil && *r.EmailAddress != ""
	case ChannelPush:
		return r.PushToken != nil && *r.PushToken != ""
	case ChannelInApp:
		return true
	}
	return false
}

// TopicSubscription subscribes a recipient to a named topic within a tenant.
type TopicSubscription struct {
	BaseModel
	TenantID    string `gorm:"type:varchar(64);not null;uniqueIndex:uq_topic_sub,priority:1" json:"tenant_id"`
	Topic       string `gorm:"type:varchar(128);not null;uniqueIndex:uq_topic_sub,priority:2" json:"topic"`
	RecipientID int64  `gorm:"not null;uniqueIndex:uq_topic_sub,priority:3" json:"recipient_id"`
}

func (TopicSubscription) TableName() string {
	return "topic_subscriptions"
}
