package simlog

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/cws-dev/cwstools/pkg/dax"
)

// ViolationKind classifies a validation failure.
type ViolationKind string

// Violation kinds.
const (
	ViolationUnknownVM       ViolationKind = "unknown_vm"
	ViolationVMLifecycle     ViolationKind = "vm_lifecycle"
	ViolationTaskOverlap     ViolationKind = "task_overlap"
	ViolationTransferOverlap ViolationKind = "transfer_overlap"
	ViolationOrder           ViolationKind = "order"
	ViolationDeadline        ViolationKind = "deadline"
	ViolationBudget          ViolationKind = "budget"
)

// ViolationError is a rule the simulated run broke.
type ViolationError struct {
	Kind    ViolationKind
	Message string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func violation(kind ViolationKind, format string, args ...any) error {
	return &ViolationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Constraints are the experiment limits announced in the settings line as
// budget=<float> and deadline=<float> fields.
type Constraints struct {
	Budget      float64
	HasBudget   bool
	Deadline    float64
	HasDeadline bool
}

// ParseConstraints extracts the budget and deadline of a settings line.
// Other fields are ignored.
func ParseConstraints(settings string) (Constraints, error) {
	var c Constraints

	for _, field := range strings.Fields(settings) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}

		switch key {
		case "budget", "deadline":
			v, err := strconv.ParseFloat(value, 64)
			if err != nil || math.IsNaN(v) {
				return Constraints{}, fmt.Errorf("%w: %s=%q", ErrInvalidSettings, key, value)
			}

			if key == "budget" {
				c.Budget, c.HasBudget = v, true
			} else {
				c.Deadline, c.HasDeadline = v, true
			}
		}
	}

	return c, nil
}

// Validate checks that the simulated run is physically possible and, when the
// settings line carries them, that it met its budget and deadline:
//   - every task and transfer ran on a VM of the log
//   - every task and transfer lies within the lifetime of its VM
//   - no two tasks ran at the same time on one VM
//   - no transfer ran at the same time as a task on one VM
//
// Violations are returned in VM order. An unfinished VM (None finish) is
// treated as still running; unfinished tasks and transfers are not checked
// for overlaps.
func Validate(log *Log) []error {
	errs := validateVMs(log)

	if log.Settings == "" {
		return errs
	}

	c, err := ParseConstraints(log.Settings)
	if err != nil {
		return append(errs, err)
	}

	return append(errs, validateConstraints(log, c)...)
}

// vmEvents are the tasks and transfers that ran on one VM.
type vmEvents struct {
	tasks     []Task
	transfers []Transfer
}

func validateVMs(log *Log) []error {
	var (
		errs   []error
		order  []string
		events = make(map[string]*vmEvents)
	)

	eventsOf := func(vm string) *vmEvents {
		e, ok := events[vm]
		if !ok {
			e = &vmEvents{}
			events[vm] = e

			order = append(order, vm)
		}

		return e
	}

	for _, vm := range log.VMList() {
		eventsOf(vm.ID)
	}

	for _, t := range log.Tasks {
		e := eventsOf(t.VM)
		e.tasks = append(e.tasks, t)
	}

	for _, t := range log.Transfers {
		e := eventsOf(t.VM)
		e.transfers = append(e.transfers, t)
	}

	for _, id := range order {
		e := events[id]

		vm, ok := log.VMs[id]
		if !ok {
			for _, t := range e.tasks {
				errs = append(errs, violation(ViolationUnknownVM, "task %s ran on unknown VM %s", t.ID, id))
			}

			for _, t := range e.transfers {
				errs = append(errs, violation(ViolationUnknownVM, "transfer %s ran on unknown VM %s", t.ID, id))
			}

			continue
		}

		for _, t := range e.tasks {
			if !withinLifetime(vm, t.Started, t.Finished) {
				errs = append(errs, violation(
					ViolationVMLifecycle, "task %s (%v - %v) ran outside lifetime of VM %s (%v - %v)",
					t.ID, t.Started, t.Finished, id, vm.Started, vm.Finished,
				))
			}
		}

		for _, t := range e.transfers {
			if !withinLifetime(vm, t.Started, t.Finished) {
				errs = append(errs, violation(
					ViolationVMLifecycle, "transfer %s (%v - %v) ran outside lifetime of VM %s (%v - %v)",
					t.ID, t.Started, t.Finished, id, vm.Started, vm.Finished,
				))
			}
		}

		errs = append(errs, overlaps(id, e)...)
	}

	return errs
}

// withinLifetime reports whether [started, finished] lies in the lifetime of
// vm. Unknown task times only check the known end.
func withinLifetime(vm VM, started, finished float64) bool {
	vmFinished := vm.Finished
	if math.IsNaN(vmFinished) {
		vmFinished = math.Inf(1)
	}

	if !math.IsNaN(started) && (started < vm.Started || started > vmFinished) {
		return false
	}

	if !math.IsNaN(finished) && (finished < vm.Started || finished > vmFinished) {
		return false
	}

	return true
}

// Event types in the order they are handled at equal times: intervals that
// only touch do not overlap.
const (
	taskEnds = iota
	transferEnds
	transferStarts
	taskStarts
)

type event struct {
	time  float64
	typ   int
	index int
}

// overlaps sweeps the task and transfer intervals of one VM.
func overlaps(vm string, e *vmEvents) []error {
	var events []event

	for i, t := range e.tasks {
		if !math.IsNaN(t.Started) && !math.IsNaN(t.Finished) {
			events = append(events, event{t.Started, taskStarts, i}, event{t.Finished, taskEnds, i})
		}
	}

	for i, t := range e.transfers {
		if !math.IsNaN(t.Started) && !math.IsNaN(t.Finished) {
			events = append(events, event{t.Started, transferStarts, i}, event{t.Finished, transferEnds, i})
		}
	}

	slices.SortStableFunc(events, func(a, b event) int {
		return cmp.Or(cmp.Compare(a.time, b.time), cmp.Compare(a.typ, b.typ))
	})

	// Indexes of the tasks and transfers in progress
	var (
		errs            []error
		running, moving []int
	)

	transferOverlap := func(transfer, task int) error {
		return violation(
			ViolationTransferOverlap, "transfer %s ran at the same time as task %s on VM %s",
			e.transfers[transfer].ID, e.tasks[task].ID, vm,
		)
	}

	for _, ev := range events {
		switch ev.typ {
		case taskEnds:
			running = removeIndex(running, ev.index)
		case transferEnds:
			moving = removeIndex(moving, ev.index)
		case transferStarts:
			for _, i := range running {
				errs = append(errs, transferOverlap(ev.index, i))
			}

			moving = append(moving, ev.index)
		case taskStarts:
			for _, i := range running {
				errs = append(errs, violation(
					ViolationTaskOverlap, "task %s ran at the same time as task %s on VM %s",
					e.tasks[ev.index].ID, e.tasks[i].ID, vm,
				))
			}

			for _, i := range moving {
				errs = append(errs, transferOverlap(i, ev.index))
			}

			running = append(running, ev.index)
		}
	}

	return errs
}

func removeIndex(s []int, index int) []int {
	return slices.DeleteFunc(s, func(i int) bool { return i == index })
}

// validateConstraints checks that no VM outlived the deadline and that the
// VM cost stayed within the budget.
func validateConstraints(log *Log, c Constraints) []error {
	var errs []error

	if c.HasDeadline {
		for _, vm := range log.VMList() {
			if vm.Finished > c.Deadline {
				errs = append(errs, violation(
					ViolationDeadline, "VM %s (%v - %v) exceeded deadline %v",
					vm.ID, vm.Started, vm.Finished, c.Deadline,
				))
			}
		}
	}

	if c.HasBudget {
		if cost := log.Summary().VMCost; cost > c.Budget {
			errs = append(errs, violation(ViolationBudget, "VM cost %v exceeded budget %v", cost, c.Budget))
		}
	}

	return errs
}

// ValidateOrder checks that in every workflow of the log each task started
// after all its parents in g finished. Tasks are matched on TaskID; when a
// task ran several times its last execution counts. Tasks that never ran are
// skipped.
func ValidateOrder(log *Log, g *dax.Graph) []error {
	type key struct{ workflow, task string }

	last := make(map[key]Task, len(log.Tasks))
	for _, t := range log.Tasks {
		last[key{t.Workflow, t.TaskID}] = t
	}

	var errs []error

	for _, wf := range log.WorkflowList() {
		for _, edge := range g.Edges() {
			parent, ok := last[key{wf.ID, edge.Parent}]
			if !ok {
				continue
			}

			child, ok := last[key{wf.ID, edge.Child}]
			if !ok {
				continue
			}

			if math.IsNaN(parent.Finished) || math.IsNaN(child.Started) {
				continue
			}

			if parent.Finished > child.Started {
				errs = append(errs, violation(
					ViolationOrder, "task %s of workflow %s started at %v before parent %s finished at %v",
					edge.Child, wf.ID, child.Started, edge.Parent, parent.Finished,
				))
			}
		}
	}

	return errs
}
