package scheduler

import (
	"fmt"
	"math"
	"strings"
)

const (
	expertiseWeight = 3.0
	balanceWeight   = 2.0
	conflictPenalty = -2.0
	scaledCapFloor  = 5
	scaledCapFactor = 1.5
)

// TargetWorkload is the fair share of role assignments per lecturer.
func TargetWorkload(sessions, lecturers, panelSize int) float64 {
	if lecturers <= 0 {
		return 0
	}
	return float64(sessions*panelSize) / float64(lecturers)
}

// ExpertiseTerm rewards specialists: 3/|expertise| when the field matches.
func ExpertiseTerm(lecturer Lecturer, field string) float64 {
	if len(lecturer.Expertise) == 0 || !lecturer.Has(field) {
		return 0
	}
	return expertiseWeight / float64(len(lecturer.Expertise))
}

// BalanceTerm prefers lecturers whose load is close to the target.
func BalanceTerm(current int, target float64) float64 {
	return balanceWeight / (math.Abs(float64(current)-target) + 1)
}

// Score is the desirability of giving the lecturer one more role for field.
func Score(lecturer Lecturer, field string, current int, target float64) float64 {
	return ExpertiseTerm(lecturer, field) + BalanceTerm(current, target)
}

// Reward is Score plus a penalty when the lecturer is already booked in the slot.
func Reward(lecturer Lecturer, session DefenseSession, current int, target float64, occupancy *SlotOccupancy) float64 {
	reward := Score(lecturer, session.Field, current, target)
	if HasSlotConflict(lecturer.ID, session.Date, session.Time, occupancy) {
		reward += conflictPenalty
	}
	return reward
}

// CapPolicy chooses how the total workload cap is derived from input size.
type CapPolicy string

const (
	// CapPolicyDefault lets each strategy use its own policy.
	CapPolicyDefault CapPolicy = ""
	// CapPolicyCeil caps at ceil(sessions*panelSize/lecturers).
	CapPolicyCeil CapPolicy = "ceil"
	// CapPolicyScaled admits lecturers whose load is below max(5, target*1.5).
	CapPolicyScaled CapPolicy = "scaled"
	// CapPolicyNone disables the total cap.
	CapPolicyNone CapPolicy = "none"
)

// ParseCapPolicy validates a policy name.
func ParseCapPolicy(raw string) (CapPolicy, error) {
	p := CapPolicy(strings.ToLower(strings.TrimSpace(raw)))
	switch p {
	case CapPolicyDefault, CapPolicyCeil, CapPolicyScaled, CapPolicyNone:
		return p, nil
	}
	return "", fmt.Errorf("%w: unknown cap policy %q", ErrMalformedInput, raw)
}

// TotalCap computes the cap for the run. Zero means unlimited.
func (p CapPolicy) TotalCap(sessions, lecturers, panelSize int) int {
	if lecturers <= 0 {
		return 0
	}
	switch p {
	case CapPolicyCeil:
		return int(math.Ceil(float64(sessions*panelSize) / float64(lecturers)))
	case CapPolicyScaled:
		target := TargetWorkload(sessions, lecturers, panelSize)
		return int(math.Ceil(math.Max(scaledCapFloor, target*scaledCapFactor)))
	default:
		return 0
	}
}
