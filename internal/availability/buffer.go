package availability

import "sort"

// Category identifies the provider's specialty. Buffer policy differs by
// category: some specialties need a longer cooldown between appointments.
type Category string

const (
	CategoryPhysician     Category = "physician"
	CategoryTherapist     Category = "therapist"
	CategoryDietitian     Category = "dietitian"
	CategoryCosmetologist Category = "cosmetologist"
)

// BufferRule describes the recovery window blocked immediately around a
// confirmed booking, in minutes before the start and after the end.
type BufferRule struct {
	BeforeMinutes int `json:"beforeMinutes"`
	AfterMinutes  int `json:"afterMinutes"`
}

// BufferPolicy resolves buffer rules per provider category. The zero value is
// usable and blocks nothing; deployments inject their own rules via config.
type BufferPolicy struct {
	// StepMinutes is the schedule's slot granularity. Buffer times are
	// emitted on this step. Defaults to 10 when unset.
	StepMinutes int                     `json:"stepMinutes"`
	Rules       map[Category]BufferRule `json:"rules"`
	Fallback    BufferRule              `json:"fallback"`
}

// DefaultBufferPolicy returns the stock per-category cooldowns.
func DefaultBufferPolicy() BufferPolicy {
	return BufferPolicy{
		StepMinutes: 10,
		Rules: map[Category]BufferRule{
			CategoryPhysician:     {AfterMinutes: 10},
			CategoryTherapist:     {BeforeMinutes: 10, AfterMinutes: 20},
			CategoryDietitian:     {AfterMinutes: 10},
			CategoryCosmetologist: {AfterMinutes: 10},
		},
	}
}

// Rule returns the buffer rule for a category, falling back to the policy
// default for unknown categories.
func (p BufferPolicy) Rule(category Category) BufferRule {
	if rule, ok := p.Rules[category]; ok {
		return rule
	}
	return p.Fallback
}

func (p BufferPolicy) step() int {
	if p.StepMinutes > 0 {
		return p.StepMinutes
	}
	return 10
}

// ComputeBufferSlots returns the sorted clock times that must be blocked
// around a booking starting at startTime with the committed duration, for the
// given provider category. Pure: same inputs always yield the same set.
//
// Windows that would cross midnight in either direction are truncated to the
// booking's calendar date; buffers do not leak across dates.
func (p BufferPolicy) ComputeBufferSlots(startTime string, durationMinutes int, category Category) ([]string, error) {
	start, err := ParseClock(startTime)
	if err != nil {
		return nil, err
	}
	if durationMinutes < 0 {
		durationMinutes = 0
	}

	rule := p.Rule(category)
	step := p.step()
	seen := make(map[int]struct{})

	for m := start - rule.BeforeMinutes; m < start; m += step {
		if m < 0 {
			continue
		}
		seen[m] = struct{}{}
	}
	end := start + durationMinutes
	for m := end; m < end+rule.AfterMinutes; m += step {
		if m >= minutesPerDay {
			break
		}
		seen[m] = struct{}{}
	}

	if len(seen) == 0 {
		return nil, nil
	}
	minutes := make([]int, 0, len(seen))
	for m := range seen {
		minutes = append(minutes, m)
	}
	sort.Ints(minutes)
	out := make([]string, len(minutes))
	for i, m := range minutes {
		out[i] = FormatClock(m)
	}
	return out, nil
}
