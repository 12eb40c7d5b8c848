package wizard

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/amorempixels/amor_server/internal/catalog"
	"github.com/amorempixels/amor_server/internal/together"
)

const (
	MinCoupleNameLen = 3
	MaxCoupleNameLen = 50
	MinMessageLen    = 10
	MaxMessageLen    = 500
	MinPasswordLen   = 4
	MaxPasswordLen   = 20
	MinCustomURLLen  = 3
	MaxCustomURLLen  = 50
)

var customURLPattern = regexp.MustCompile(`^[a-z0-9]+$`)

// ValidationError lists the fields that kept a step from passing.
type ValidationError struct {
	Step   Step
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("wizard step %s: invalid %s", e.Step, strings.Join(keys, ", "))
}

// ValidCustomURL reports whether s is an already-normalized custom URL.
func ValidCustomURL(s string) bool {
	return len(s) >= MinCustomURLLen && len(s) <= MaxCustomURLLen && customURLPattern.MatchString(s)
}

// RegisterValidators adds the "customurl" tag to v.
func RegisterValidators(v *validator.Validate) error {
	return v.RegisterValidation("customurl", func(fl validator.FieldLevel) bool {
		return ValidCustomURL(fl.Field().String())
	})
}

func runeLenBetween(s string, lo, hi int) bool {
	n := utf8.RuneCountInString(s)
	return n >= lo && n <= hi
}

type fieldErrors map[string]string

func (m *Machine) checkPlan(d *Draft, errs fieldErrors) {
	if _, err := m.catalog.Plan(d.Plan); err != nil {
		errs["plan"] = "Escolha um plano"
	}
}

func (m *Machine) checkTemplate(d *Draft, errs fieldErrors) {
	if d.Template == "" {
		errs["template"] = "Escolha um modelo"
		return
	}
	if err := m.catalog.CheckTemplate(d.Plan, d.Template); err != nil {
		errs["template"] = err.Error()
	}
}

func (m *Machine) checkDetails(d *Draft, errs fieldErrors) {
	if !runeLenBetween(strings.TrimSpace(d.CoupleName), MinCoupleNameLen, MaxCoupleNameLen) {
		errs["couple_name"] = fmt.Sprintf("O nome do casal deve ter entre %d e %d caracteres", MinCoupleNameLen, MaxCoupleNameLen)
	}
	switch {
	case strings.TrimSpace(d.StartDate) == "":
		errs["start_date"] = "Informe a data de início do relacionamento"
	default:
		if _, err := together.ParseStartDate(d.StartDate, nil); err != nil {
			errs["start_date"] = "Data inválida"
		}
	}
}

func (m *Machine) checkMedia(d *Draft, errs fieldErrors) {
	if !runeLenBetween(d.Message, MinMessageLen, MaxMessageLen) {
		errs["message"] = fmt.Sprintf("A mensagem deve ter entre %d e %d caracteres", MinMessageLen, MaxMessageLen)
	}
	plan, err := m.catalog.Plan(d.Plan)
	if err != nil {
		errs["plan"] = "Escolha um plano"
		return
	}
	for _, k := range catalog.Kinds {
		if limit := plan.Ceiling(k); d.Media.Count(k) > limit {
			errs["media."+string(k)] = fmt.Sprintf("Seu plano permite no máximo %d %s", limit, k.Label())
		}
	}
}

func (m *Machine) checkSecurity(d *Draft, errs fieldErrors) {
	if !runeLenBetween(d.Password, MinPasswordLen, MaxPasswordLen) {
		errs["password"] = fmt.Sprintf("A senha deve ter entre %d e %d caracteres", MinPasswordLen, MaxPasswordLen)
	}
	if err := m.validate.Var(d.CustomURL, "customurl"); err != nil {
		errs["custom_url"] = fmt.Sprintf("A URL deve ter de %d a %d letras minúsculas ou números", MinCustomURLLen, MaxCustomURLLen)
	}
}

func (m *Machine) checkSummary(d *Draft, errs fieldErrors) {
	if err := m.validate.Var(d.Email, "required,email"); err != nil {
		errs["email"] = "Informe um e-mail válido"
	}
}

func (m *Machine) check(d *Draft, step Step, errs fieldErrors) {
	switch step {
	case StepPlan:
		m.checkPlan(d, errs)
	case StepTemplate:
		m.checkTemplate(d, errs)
	case StepDetails:
		m.checkDetails(d, errs)
	case StepMedia:
		m.checkMedia(d, errs)
	case StepSecurityAndURL:
		m.checkSecurity(d, errs)
	case StepSummary:
		m.checkSummary(d, errs)
	}
}

// Check runs the predicate of one step.
func (m *Machine) Check(d *Draft, step Step) error {
	errs := fieldErrors{}
	m.check(d, step, errs)
	if len(errs) > 0 {
		return &ValidationError{Step: step, Fields: errs}
	}
	return nil
}

// ValidateAll runs every step predicate. The returned error points at the
// first failing step and carries the fields of all of them.
func (m *Machine) ValidateAll(d *Draft) error {
	errs := fieldErrors{}
	first := Step(-1)
	for s := StepPlan; s <= StepSummary; s++ {
		before := len(errs)
		m.check(d, s, errs)
		if len(errs) > before && first < 0 {
			first = s
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Step: first, Fields: errs}
	}
	return nil
}
