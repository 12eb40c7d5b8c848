package wizard

import "fmt"

// Step is a position in the linear card wizard.
type Step int

const (
	StepPlan Step = iota
	StepTemplate
	StepDetails
	StepMedia
	StepSecurityAndURL
	StepSummary
)

var stepNames = [...]string{"plan", "template", "details", "media", "security_url", "summary"}

func (s Step) String() string {
	if !s.Valid() {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

func (s Step) Valid() bool {
	return s >= StepPlan && s <= StepSummary
}

func (s Step) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid wizard step %d", int(s))
	}
	return []byte(stepNames[s]), nil
}

func (s *Step) UnmarshalText(b []byte) error {
	for i, name := range stepNames {
		if name == string(b) {
			*s = Step(i)
			return nil
		}
	}
	return fmt.Errorf("unknown wizard step %q", string(b))
}
