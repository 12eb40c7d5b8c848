package dto

import (
	"time"

	"github.com/amorempixels/amor_server/internal/wizard"
)

// UpdateDraftRequest is a partial update of the wizard form. Omitted fields
// keep their value; length rules are enforced when leaving each step.
type UpdateDraftRequest struct {
	Plan       *string           `json:"plan,omitempty"`
	Template   *string           `json:"template,omitempty"`
	CoupleName *string           `json:"couple_name,omitempty" binding:"omitempty,max=200"`
	StartDate  *string           `json:"start_date,omitempty"`
	Message    *string           `json:"message,omitempty" binding:"omitempty,max=2000"`
	Extras     map[string]string `json:"extras,omitempty"`
	MusicLink  *string           `json:"music_link,omitempty" binding:"omitempty,max=500"`
	Password   *string           `json:"password,omitempty" binding:"omitempty,max=100"`
	CustomURL  *string           `json:"custom_url,omitempty" binding:"omitempty,max=200"`
	Email      *string           `json:"email,omitempty" binding:"omitempty,max=100"`
}

func (r *UpdateDraftRequest) Patch() wizard.Patch {
	return wizard.Patch{
		Plan:       r.Plan,
		Template:   r.Template,
		CoupleName: r.CoupleName,
		StartDate:  r.StartDate,
		Message:    r.Message,
		Extras:     r.Extras,
		MusicLink:  r.MusicLink,
		Password:   r.Password,
		CustomURL:  r.CustomURL,
		Email:      r.Email,
	}
}

// DraftResponse is the draft as the wizard front-end sees it. The password
// itself never leaves the server.
type DraftResponse struct {
	ID          string            `json:"id"`
	Step        wizard.Step       `json:"step"`
	StepIndex   int               `json:"step_index"`
	Plan        string            `json:"plan"`
	Template    string            `json:"template"`
	CoupleName  string            `json:"couple_name"`
	StartDate   string            `json:"start_date"`
	Message     string            `json:"message"`
	Extras      map[string]string `json:"extras,omitempty"`
	MusicLink   string            `json:"music_link"`
	HasPassword bool              `json:"has_password"`
	CustomURL   string            `json:"custom_url"`
	Email       string            `json:"email"`
	Media       wizard.Media      `json:"media"`
	SiteID      *int64            `json:"site_id,omitempty"`
	UpdatedAt   string            `json:"updated_at"`
}

func NewDraftResponse(d *wizard.Draft) *DraftResponse {
	return &DraftResponse{
		ID:          d.ID,
		Step:        d.Step,
		StepIndex:   int(d.Step),
		Plan:        d.Plan,
		Template:    d.Template,
		CoupleName:  d.CoupleName,
		StartDate:   d.StartDate,
		Message:     d.Message,
		Extras:      d.Extras,
		MusicLink:   d.MusicLink,
		HasPassword: d.Password != "",
		CustomURL:   d.CustomURL,
		Email:       d.Email,
		Media:       d.Media,
		SiteID:      d.SiteID,
		UpdatedAt:   d.UpdatedAt.Format(time.RFC3339),
	}
}

type StageResponse struct {
	File    wizard.StagedFile `json:"file"`
	Count   int               `json:"count"`
	Ceiling int               `json:"ceiling"`
}

type SubmitResponse struct {
	SiteID      int64  `json:"site_id"`
	CustomURL   string `json:"custom_url"`
	Status      string `json:"status"`
	SiteURL     string `json:"site_url"`
	CheckoutURL string `json:"checkout_url,omitempty"`
}
