package simlog

import "strings"

// Outcome classifies the result string of a task.
type Outcome int

// Task outcomes.
const (
	OutcomeUnknown Outcome = iota
	OutcomeDone
	OutcomeFailed
	OutcomeRetriedDone
	OutcomeRetriedFailed
)

// Outcomes lists the known outcomes in reporting order.
var Outcomes = []Outcome{OutcomeDone, OutcomeFailed, OutcomeRetriedDone, OutcomeRetriedFailed, OutcomeUnknown}

func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "done"
	case OutcomeFailed:
		return "failed"
	case OutcomeRetriedDone:
		return "retried_done"
	case OutcomeRetriedFailed:
		return "retried_failed"
	default:
		return "unknown"
	}
}

// Result markers found in the task result field.
const (
	resultOK     = "OK"
	resultFailed = "FAILED"
	resultRetry  = "RETRY"
)

// Outcome returns the outcome of the task. Markers are matched as substrings
// so results such as OK_RETRY are recognised.
func (t Task) Outcome() Outcome {
	retry := strings.Contains(t.Result, resultRetry)

	switch {
	case strings.Contains(t.Result, resultOK) && retry:
		return OutcomeRetriedDone
	case strings.Contains(t.Result, resultOK):
		return OutcomeDone
	case strings.Contains(t.Result, resultFailed) && retry:
		return OutcomeRetriedFailed
	case strings.Contains(t.Result, resultFailed):
		return OutcomeFailed
	default:
		return OutcomeUnknown
	}
}
