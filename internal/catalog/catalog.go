// Package catalog exposes the static plan and template configuration and the
// entitlement checks derived from it.
package catalog

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/amorempixels/amor_server/config"
)

var (
	ErrUnknownPlan     = errors.New("Plano inválido")
	ErrUnknownTemplate = errors.New("Modelo inválido")
	ErrTemplateDenied  = errors.New("O plano escolhido não permite este modelo")
	ErrUnknownKind     = errors.New("Tipo de mídia inválido")
)

// Kind is a media slot of a card.
type Kind string

const (
	KindPhoto Kind = "photo"
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

var Kinds = []Kind{KindPhoto, KindVideo, KindAudio}

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case KindPhoto, KindVideo, KindAudio:
		return k, nil
	}
	return "", ErrUnknownKind
}

// Family is the content-type prefix files of this kind must carry.
func (k Kind) Family() string {
	switch k {
	case KindPhoto:
		return "image/"
	case KindVideo:
		return "video/"
	case KindAudio:
		return "audio/"
	}
	return ""
}

// Label is the user-facing name of the slot.
func (k Kind) Label() string {
	switch k {
	case KindPhoto:
		return "fotos"
	case KindVideo:
		return "vídeos"
	case KindAudio:
		return "músicas"
	}
	return string(k)
}

type Plan struct {
	Tier         string `json:"tier"`
	DisplayName  string `json:"display_name"`
	MaxPhotos    int    `json:"max_photos"`
	MaxVideos    int    `json:"max_videos"`
	MaxMusic     int    `json:"max_music"`
	Price        int64  `json:"price"`
	Currency     string `json:"currency"`
	DurationDays int    `json:"duration_days"`
}

// Ceiling is the number of files of kind the plan allows.
func (p Plan) Ceiling(k Kind) int {
	switch k {
	case KindPhoto:
		return p.MaxPhotos
	case KindVideo:
		return p.MaxVideos
	case KindAudio:
		return p.MaxMusic
	}
	return 0
}

func (p Plan) Duration() time.Duration {
	return time.Duration(p.DurationDays) * 24 * time.Hour
}

func (p Plan) Free() bool {
	return p.Price == 0
}

type Template struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	MinPlan     string `json:"min_plan"`
	Description string `json:"description,omitempty"`
}

type Catalog struct {
	plans     map[string]Plan
	order     []string
	templates []Template
	limits    config.UploadConfig
}

func New(cfg *config.Config) *Catalog {
	c := &Catalog{
		plans:  make(map[string]Plan, len(cfg.Plans)),
		limits: cfg.Upload,
	}

	for tier, p := range cfg.Plans {
		c.plans[tier] = Plan{
			Tier:         tier,
			DisplayName:  p.DisplayName,
			MaxPhotos:    p.MaxPhotos,
			MaxVideos:    p.MaxVideos,
			MaxMusic:     p.MaxMusic,
			Price:        p.Price,
			Currency:     cfg.Payment.Currency,
			DurationDays: p.DurationDays,
		}
		c.order = append(c.order, tier)
	}
	sort.SliceStable(c.order, func(i, j int) bool {
		return c.Rank(c.order[i]) < c.Rank(c.order[j])
	})

	for _, t := range cfg.Templates {
		c.templates = append(c.templates, Template{
			ID:          t.ID,
			DisplayName: t.DisplayName,
			MinPlan:     t.MinPlan,
			Description: t.Description,
		})
	}
	return c
}

// Rank orders tiers free < basic < premium; unknown tiers sort last.
func (c *Catalog) Rank(tier string) int {
	for i, t := range config.PlanOrder {
		if t == tier {
			return i
		}
	}
	return len(config.PlanOrder)
}

func (c *Catalog) Plan(tier string) (Plan, error) {
	p, ok := c.plans[tier]
	if !ok {
		return Plan{}, ErrUnknownPlan
	}
	return p, nil
}

func (c *Catalog) Plans() []Plan {
	out := make([]Plan, 0, len(c.order))
	for _, tier := range c.order {
		out = append(out, c.plans[tier])
	}
	return out
}

func (c *Catalog) Template(id string) (Template, error) {
	for _, t := range c.templates {
		if t.ID == id {
			return t, nil
		}
	}
	return Template{}, ErrUnknownTemplate
}

func (c *Catalog) Templates() []Template {
	out := make([]Template, len(c.templates))
	copy(out, c.templates)
	return out
}

// CheckTemplate reports whether the plan tier may use the template.
func (c *Catalog) CheckTemplate(tier, templateID string) error {
	if _, err := c.Plan(tier); err != nil {
		return err
	}
	t, err := c.Template(templateID)
	if err != nil {
		return err
	}
	if c.Rank(tier) < c.Rank(t.MinPlan) {
		return ErrTemplateDenied
	}
	return nil
}

// MaxBytes is the largest accepted file of kind.
func (c *Catalog) MaxBytes(k Kind) int64 {
	switch k {
	case KindPhoto:
		return c.limits.MaxPhotoBytes
	case KindVideo:
		return c.limits.MaxVideoBytes
	case KindAudio:
		return c.limits.MaxAudioBytes
	}
	return 0
}
