package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	SiteStatusPending = "pending"
	SiteStatusActive  = "active"
	SiteStatusExpired = "expired"
)

// SiteForm is the text content of a card.
type SiteForm struct {
	CoupleName string            `json:"couple_name"`
	StartDate  string            `json:"start_date"`
	Message    string            `json:"message"`
	Extras     map[string]string `json:"extras,omitempty"`
}

func (f SiteForm) Value() (driver.Value, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (f *SiteForm) Scan(value interface{}) error {
	return scanJSON(value, f)
}

// MediaRef is one durable object in storage.
type MediaRef struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type SiteMedia struct {
	Photos    []MediaRef `json:"photos"`
	Videos    []MediaRef `json:"videos"`
	Music     []MediaRef `json:"music"`
	MusicLink string     `json:"music_link,omitempty"`
}

func (m SiteMedia) Value() (driver.Value, error) {
	if m.Photos == nil {
		m.Photos = []MediaRef{}
	}
	if m.Videos == nil {
		m.Videos = []MediaRef{}
	}
	if m.Music == nil {
		m.Music = []MediaRef{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *SiteMedia) Scan(value interface{}) error {
	return scanJSON(value, m)
}

// Keys lists every storage key referenced by the card.
func (m SiteMedia) Keys() []string {
	keys := make([]string, 0, len(m.Photos)+len(m.Videos)+len(m.Music))
	for _, list := range [][]MediaRef{m.Photos, m.Videos, m.Music} {
		for _, r := range list {
			if r.Key != "" {
				keys = append(keys, r.Key)
			}
		}
	}
	return keys
}

func scanJSON(value interface{}, dst interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported json column type %T", value)
	}
}

type Site struct {
	ID           int64      `gorm:"primaryKey" json:"id"`
	CustomURL    string     `gorm:"column:custom_url;size:50;uniqueIndex;not null" json:"custom_url"`
	OwnerID      *int64     `gorm:"index" json:"owner_id,omitempty"`
	Plan         string     `gorm:"size:20;not null" json:"plan"`
	Template     string     `gorm:"size:50;not null" json:"template"`
	Form         SiteForm   `gorm:"type:json" json:"form"`
	Media        SiteMedia  `gorm:"type:json" json:"media"`
	PasswordHash *string    `gorm:"size:255" json:"-"`
	Email        string     `gorm:"size:100" json:"email"`
	Status       string     `gorm:"size:20;default:pending;index" json:"status"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
	ExpiresAt    time.Time  `gorm:"index" json:"expires_at"`
	ActivatedAt  *time.Time `json:"activated_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Site) TableName() string {
	return "sites"
}

func (s *Site) Protected() bool {
	return s.PasswordHash != nil && *s.PasswordHash != ""
}

// Visible reports whether the card may be shown to the public at now.
func (s *Site) Visible(now time.Time) bool {
	return s.Status == SiteStatusActive && now.Before(s.ExpiresAt)
}

func (s *Site) OwnedBy(userID int64) bool {
	return s.OwnerID != nil && userID != 0 && *s.OwnerID == userID
}
