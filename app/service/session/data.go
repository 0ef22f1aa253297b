package session

import (
	"fmt"
	"time"

	"github.com/samber/oops"
)

const DefaultID = "guest"

type Step string

const (
	StepInitial      Step = "initial"
	StepFAQ          Step = "faq_handling"
	StepAskDetails   Step = "ask_details"
	StepSuggestDates Step = "suggest_dates"
	StepConfirmDate  Step = "confirm_date"
)

var steps = map[Step]struct{}{
	StepInitial:      {},
	StepFAQ:          {},
	StepAskDetails:   {},
	StepSuggestDates: {},
	StepConfirmDate:  {},
}

func ParseStep(value string) (Step, error) {
	step := Step(value)
	if _, ok := steps[step]; !ok {
		return "", fmt.Errorf("unknown step %q", value)
	}

	return step, nil
}

// OfferedSlot is a calendar candidate shown to the applicant. ExternalID
// points at the tentative hold while the batch is on offer.
type OfferedSlot struct {
	ExternalID   string    `json:"external_id"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	DisplayIndex int       `json:"display_index"`
	// Settled is set once the tentative hold was replaced by a booking or
	// returned to the open pool.
	Settled bool `json:"settled,omitempty"`
}

type Session struct {
	ID              string        `json:"id"`
	Step            Step          `json:"step"`
	Name            string        `json:"name,omitempty"`
	University      string        `json:"university,omitempty"`
	RequestedPeriod string        `json:"requested_period,omitempty"`
	OfferedSlots    []OfferedSlot `json:"offered_slots,omitempty"`
	// PendingChoice is the 1-based selection pinned after a partially
	// applied resolution; 0 when nothing is pinned.
	PendingChoice int       `json:"pending_choice,omitempty"`
	HoldIntentID  string    `json:"hold_intent_id,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewSession(id string) *Session {
	if id == "" {
		id = DefaultID
	}

	return &Session{
		ID:   id,
		Step: StepInitial,
	}
}

// Reset returns the session to a fresh initial state, keeping its ID.
func (s *Session) Reset() {
	*s = Session{
		ID:   s.ID,
		Step: StepInitial,
	}
}

// MissingFields lists the applicant fields that are still empty.
func (s *Session) MissingFields() []string {
	var missing []string

	if s.Name == "" {
		missing = append(missing, "name")
	}
	if s.University == "" {
		missing = append(missing, "university")
	}
	if s.RequestedPeriod == "" {
		missing = append(missing, "date")
	}

	return missing
}

func (s *Session) ClearOffer() {
	s.OfferedSlots = nil
	s.PendingChoice = 0
	s.HoldIntentID = ""
}

func (s *Session) Clone() *Session {
	clone := *s
	if s.OfferedSlots != nil {
		clone.OfferedSlots = make([]OfferedSlot, len(s.OfferedSlots))
		copy(clone.OfferedSlots, s.OfferedSlots)
	}

	return &clone
}

// Validate checks the invariants every stored session must hold.
func (s *Session) Validate() error {
	if _, err := ParseStep(string(s.Step)); err != nil {
		return oops.In("session").With("id", s.ID).Wrap(err)
	}

	if len(s.OfferedSlots) > 0 && s.Step != StepConfirmDate {
		return oops.In("session").
			With("id", s.ID, "step", s.Step).
			Errorf("offered slots outside of %s", StepConfirmDate)
	}

	seen := make(map[string]struct{}, len(s.OfferedSlots))
	for _, slot := range s.OfferedSlots {
		if _, ok := seen[slot.ExternalID]; ok {
			return oops.In("session").
				With("id", s.ID, "external_id", slot.ExternalID).
				Errorf("duplicate offered slot")
		}
		seen[slot.ExternalID] = struct{}{}
	}

	if s.PendingChoice < 0 || s.PendingChoice > len(s.OfferedSlots) {
		return oops.In("session").
			With("id", s.ID, "pending_choice", s.PendingChoice).
			Errorf("pending choice out of range")
	}

	return nil
}
