// Package wizard drives the linear card wizard: step transitions, the
// validation gate of each step, and media staging against plan ceilings.
package wizard

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/amorempixels/amor_server/internal/catalog"
	"github.com/amorempixels/amor_server/internal/together"
)

var (
	ErrAtFirstStep   = errors.New("Você já está na primeira etapa")
	ErrAtLastStep    = errors.New("Você já está na última etapa")
	ErrNotAtSummary  = errors.New("Conclua todas as etapas antes de finalizar")
	ErrInvalidSteps  = errors.New("Etapa inválida")
	ErrDraftNotFound = errors.New("Rascunho não encontrado ou expirado")
)

type Machine struct {
	catalog     *catalog.Catalog
	defaultPlan string
	validate    *validator.Validate
	now         func() time.Time
}

func NewMachine(cat *catalog.Catalog, defaultPlan string) (*Machine, error) {
	v := validator.New()
	if err := RegisterValidators(v); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}
	return &Machine{
		catalog:     cat,
		defaultPlan: defaultPlan,
		validate:    v,
		now:         time.Now,
	}, nil
}

func (m *Machine) Catalog() *catalog.Catalog {
	return m.catalog
}

// NewDraft starts a session at the plan step with the default tier selected.
func (m *Machine) NewDraft(id string, ownerID *int64) *Draft {
	now := m.now()
	return &Draft{
		ID:        id,
		Step:      StepPlan,
		Plan:      m.defaultPlan,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Next advances one step if the current step's predicate passes. On failure
// the draft is left untouched.
func (m *Machine) Next(d *Draft) error {
	if !d.Step.Valid() {
		return ErrInvalidSteps
	}
	if d.Step == StepSummary {
		return ErrAtLastStep
	}
	if err := m.Check(d, d.Step); err != nil {
		return err
	}
	d.Step++
	d.UpdatedAt = m.now()
	return nil
}

// Back moves one step back without validating anything.
func (m *Machine) Back(d *Draft) error {
	if !d.Step.Valid() {
		return ErrInvalidSteps
	}
	if d.Step == StepPlan {
		return ErrAtFirstStep
	}
	d.Step--
	d.UpdatedAt = m.now()
	return nil
}

// ReadyToSubmit is the submission gate: the draft must sit on the summary
// step and every predicate must hold.
func (m *Machine) ReadyToSubmit(d *Draft) error {
	if d.Step != StepSummary {
		return ErrNotAtSummary
	}
	return m.ValidateAll(d)
}

// Apply writes the non-nil fields of p. Custom URLs are normalized on the way
// in; a plan change never drops staged media.
func (m *Machine) Apply(d *Draft, p Patch) error {
	if p.Plan != nil {
		if _, err := m.catalog.Plan(*p.Plan); err != nil {
			return err
		}
		d.Plan = *p.Plan
	}
	if p.Template != nil {
		d.Template = strings.TrimSpace(*p.Template)
	}
	if p.CoupleName != nil {
		d.CoupleName = *p.CoupleName
	}
	if p.StartDate != nil {
		d.StartDate = strings.TrimSpace(*p.StartDate)
	}
	if p.Message != nil {
		d.Message = *p.Message
	}
	if p.Extras != nil {
		d.Extras = p.Extras
	}
	if p.MusicLink != nil {
		d.MusicLink = strings.TrimSpace(*p.MusicLink)
	}
	if p.Password != nil {
		d.Password = *p.Password
	}
	if p.CustomURL != nil {
		d.CustomURL = NormalizeCustomURL(*p.CustomURL)
	}
	if p.Email != nil {
		d.Email = strings.TrimSpace(*p.Email)
	}
	d.UpdatedAt = m.now()
	return nil
}

// Preview is the card as it would be published from the draft.
type Preview struct {
	Plan       string            `json:"plan"`
	Template   string            `json:"template"`
	CoupleName string            `json:"couple_name"`
	StartDate  string            `json:"start_date"`
	Message    string            `json:"message"`
	Extras     map[string]string `json:"extras,omitempty"`
	MusicLink  string            `json:"music_link,omitempty"`
	CustomURL  string            `json:"custom_url"`
	Protected  bool              `json:"protected"`
	Photos     []string          `json:"photos"`
	Videos     []string          `json:"videos"`
	Audio      []string          `json:"audio"`
	Together   *together.Elapsed `json:"together,omitempty"`
}

func previewURLs(files []StagedFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.PreviewURL)
	}
	return out
}

func (m *Machine) Preview(d *Draft) Preview {
	p := Preview{
		Plan:       d.Plan,
		Template:   d.Template,
		CoupleName: strings.TrimSpace(d.CoupleName),
		StartDate:  d.StartDate,
		Message:    d.Message,
		Extras:     d.Extras,
		MusicLink:  d.MusicLink,
		CustomURL:  d.CustomURL,
		Protected:  d.Password != "",
		Photos:     previewURLs(d.Media.Photos),
		Videos:     previewURLs(d.Media.Videos),
		Audio:      previewURLs(d.Media.Audio),
	}
	if start, err := together.ParseStartDate(d.StartDate, nil); err == nil {
		e := together.Between(start, m.now())
		p.Together = &e
	}
	return p
}
