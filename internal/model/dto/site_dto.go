package dto

import (
	"github.com/amorempixels/amor_server/internal/model"
	"github.com/amorempixels/amor_server/internal/together"
)

type AvailabilityRequest struct {
	CustomURL string `form:"custom_url" binding:"required,max=200"`
}

type AvailabilityResponse struct {
	CustomURL string `json:"custom_url"`
	Valid     bool   `json:"valid"`
	Available bool   `json:"available"`
}

// SiteURI binds the public card path; anything that is not a normalized
// custom URL can never match a card.
type SiteURI struct {
	CustomURL string `uri:"custom_url" binding:"required,customurl"`
}

// PublicSiteResponse is a published card.
type PublicSiteResponse struct {
	CustomURL  string            `json:"custom_url"`
	Template   string            `json:"template"`
	Plan       string            `json:"plan"`
	CoupleName string            `json:"couple_name"`
	StartDate  string            `json:"start_date"`
	Message    string            `json:"message"`
	Extras     map[string]string `json:"extras,omitempty"`
	MusicLink  string            `json:"music_link,omitempty"`
	Photos     []string          `json:"photos"`
	Videos     []string          `json:"videos"`
	Music      []string          `json:"music"`
	ExpiresAt  string            `json:"expires_at"`
	Together   together.Elapsed  `json:"together"`
}

type ListSitesRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Status   string `form:"status" binding:"omitempty,oneof=pending active expired"`
}

// SiteInfo is a card as its owner sees it on the dashboard.
type SiteInfo struct {
	ID          int64           `json:"id"`
	CustomURL   string          `json:"custom_url"`
	SiteURL     string          `json:"site_url"`
	Plan        string          `json:"plan"`
	Template    string          `json:"template"`
	Status      string          `json:"status"`
	Form        model.SiteForm  `json:"form"`
	Media       model.SiteMedia `json:"media"`
	Protected   bool            `json:"protected"`
	Email       string          `json:"email"`
	CreatedAt   string          `json:"created_at"`
	ExpiresAt   string          `json:"expires_at"`
	ActivatedAt string          `json:"activated_at,omitempty"`
}

// UpdateSiteRequest edits a published card. ClearPassword removes the
// protection; a non-empty Password replaces it.
type UpdateSiteRequest struct {
	Template      *string           `json:"template,omitempty"`
	CoupleName    *string           `json:"couple_name,omitempty"`
	StartDate     *string           `json:"start_date,omitempty"`
	Message       *string           `json:"message,omitempty"`
	Extras        map[string]string `json:"extras,omitempty"`
	MusicLink     *string           `json:"music_link,omitempty" binding:"omitempty,max=500"`
	Password      *string           `json:"password,omitempty"`
	ClearPassword bool              `json:"clear_password,omitempty"`
	Email         *string           `json:"email,omitempty"`
}

type MediaResponse struct {
	Media   model.SiteMedia `json:"media"`
	Count   int             `json:"count"`
	Ceiling int             `json:"ceiling"`
}
