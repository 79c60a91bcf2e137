package scheduler

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// StrategyName selects an assignment strategy.
type StrategyName string

const (
	StrategyCapacity StrategyName = "capacity"
	StrategyScored   StrategyName = "scored"
	StrategyRollout  StrategyName = "rollout"
)

// Strategies lists every registered strategy.
var Strategies = []StrategyName{StrategyCapacity, StrategyScored, StrategyRollout}

// ParseStrategy validates a strategy name. Empty selects capacity.
func ParseStrategy(raw string) (StrategyName, error) {
	name := StrategyName(strings.ToLower(strings.TrimSpace(raw)))
	if name == "" {
		return StrategyCapacity, nil
	}
	for _, s := range Strategies {
		if s == name {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, raw)
}

// Options tunes a scheduling run.
type Options struct {
	// DailyCap limits assignments per lecturer per date. Zero disables it.
	DailyCap int
	// CapPolicy overrides the strategy's default total cap policy.
	CapPolicy CapPolicy
	// PanelSize is the number of roles used for the target workload.
	PanelSize int
	// Roles is the panel order filled by the panel strategies.
	Roles []Role
	// SlotConflicts makes panel strategies skip lecturers already booked in the slot.
	SlotConflicts bool

	Epsilon       float64
	MaxIterations int
	Workers       int
	// TimeBudget stops the rollout strategy from starting new trials once elapsed.
	TimeBudget time.Duration
	Seed       uint64
}

// DefaultOptions returns the standard tuning.
func DefaultOptions() Options {
	return Options{
		DailyCap:      2,
		PanelSize:     len(DefaultRoles),
		Roles:         append([]Role(nil), DefaultRoles...),
		SlotConflicts: true,
		Epsilon:       0.1,
		MaxIterations: 500,
		Seed:          1,
	}
}

// Validate rejects out-of-range settings.
func (o Options) Validate() error {
	if o.DailyCap < 0 {
		return fmt.Errorf("%w: daily cap must be >= 0", ErrMalformedInput)
	}
	if _, err := ParseCapPolicy(string(o.CapPolicy)); err != nil {
		return err
	}
	if o.Epsilon < 0 || o.Epsilon > 1 {
		return fmt.Errorf("%w: epsilon must be within [0,1]", ErrMalformedInput)
	}
	if o.MaxIterations < 0 {
		return fmt.Errorf("%w: max iterations must be >= 0", ErrMalformedInput)
	}
	if o.PanelSize < 0 {
		return fmt.Errorf("%w: panel size must be >= 0", ErrMalformedInput)
	}
	seen := make(map[Role]bool, len(o.Roles))
	for _, role := range o.Roles {
		if _, err := ParseRole(string(role)); err != nil {
			return err
		}
		if seen[role] {
			return fmt.Errorf("%w: duplicate role %q", ErrMalformedInput, role)
		}
		seen[role] = true
	}
	return nil
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.PanelSize == 0 {
		o.PanelSize = def.PanelSize
	}
	if len(o.Roles) == 0 {
		o.Roles = def.Roles
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = def.MaxIterations
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	return o
}

func (o Options) capPolicyFor(strategy StrategyName) CapPolicy {
	if o.CapPolicy != CapPolicyDefault {
		return o.CapPolicy
	}
	if strategy == StrategyScored {
		return CapPolicyScaled
	}
	return CapPolicyCeil
}

// ParseRoles parses a comma separated role order.
func ParseRoles(raw string) ([]Role, error) {
	var roles []Role
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		role, err := ParseRole(part)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}
