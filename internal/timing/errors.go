package timing

import "fmt"

// InvalidInputError reports a malformed observation set: the wrong
// number of lanes for the configured junction, or a negative vehicle
// count. The mode controller recovers from it by serving the fallback
// plan; it is never surfaced to API callers as a failure.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid lane observations: " + e.Reason
}

// InfeasibleConfigError reports a configuration whose yellow phases
// consume the entire cycle budget, leaving no positive green time to
// allocate. It is worth surfacing once at configuration time; at
// runtime the mode controller degrades to fallback instead.
type InfeasibleConfigError struct {
	Budget float64
}

func (e *InfeasibleConfigError) Error() string {
	return fmt.Sprintf("infeasible config: green budget is %gs, must be positive", e.Budget)
}
