package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// Template is a parameter-substituted message with bilingual variants.
// Placeholders use {name} syntax in both subject and body.
type Template struct {
	BaseModel
	TemplateID     string           `gorm:"type:varchar(64);uniqueIndex;not null" json:"template_id"`
	Kind           NotificationKind `gorm:"type:varchar(32);not null" json:"kind"`
	SubjectAr      string           `gorm:"type:varchar(255)" json:"subject_ar"`
	SubjectEn      string           `gorm:"type:varchar(255)" json:"subject_en"`
	BodyAr         string           `gorm:"type:text;not null" json:"body_ar"`
	BodyEn         string           `gorm:"type:text;not null" json:"body_en"`
	RequiredParams StringList       `gorm:"type:jsonb" json:"required_params"`
	Channels       ChannelList      `gorm:"type:jsonb" json:"channels"` // allowed channels
}

func (Template) TableName() string {
	return "templates"
}

func (t *Template) Subject() BilingualString {
	return BilingualString{Ar: t.SubjectAr, En: t.SubjectEn}
}

func (t *Template) Body() BilingualString {
	return BilingualString{Ar: t.BodyAr, En: t.BodyEn}
}

// SupportsChannel reports whether the template declares the channel.
func (t *Template) SupportsChannel(ch Channel) bool {
	for _, c := range t.Channels {
		if c == ch {
			return true
		}
	}
	return false
}

// StringList maps a jsonb array of strings.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal string list value")
	}
	return json.Unmarshal(bytes, l)
}
