package simlog

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cws-dev/cwstools/pkg/dax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildLog assembles a log without settings line from section records.
func buildLog(t *testing.T, vms, tasks, transfers []string) *Log {
	t.Helper()

	var b strings.Builder

	for _, section := range [][]string{vms, {"wf0 0", "wf1 1"}, tasks, transfers, nil} {
		fmt.Fprintf(&b, "%d\n", len(section))

		for _, line := range section {
			b.WriteString(line + "\n")
		}
	}

	log, err := Decode(b.String())
	require.NoError(t, err)

	return log
}

func violationKinds(t *testing.T, errs []error) []ViolationKind {
	t.Helper()

	var kinds []ViolationKind

	for _, err := range errs {
		var v *ViolationError
		require.ErrorAs(t, err, &v)

		kinds = append(kinds, v.Kind)
	}

	return kinds
}

func TestValidateEnsembleLog(t *testing.T) {
	log, err := DecodeFile("testdata/ensemble.log", WithSettingsLine())
	require.NoError(t, err)

	assert.Empty(t, Validate(log))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		vms       []string
		tasks     []string
		transfers []string
		expected  []ViolationKind
		message   string
	}{
		{
			name:  "valid",
			vms:   []string{"VM0 0 100 1 1"},
			tasks: []string{"0 wf0 t0 VM0 10 20 OK", "1 wf0 t1 VM0 30 40 OK"},
		},
		{
			name:     "task on unknown VM",
			vms:      []string{"VM0 0 100 1 1"},
			tasks:    []string{"0 wf0 t0 VM7 10 20 OK"},
			expected: []ViolationKind{ViolationUnknownVM},
			message:  "unknown_vm: task 0 ran on unknown VM VM7",
		},
		{
			name:      "transfer on unknown VM",
			vms:       []string{"VM0 0 100 1 1"},
			transfers: []string{"0 VM7 0 5 UPLOAD t0 f"},
			expected:  []ViolationKind{ViolationUnknownVM},
			message:   "unknown_vm: transfer 0 ran on unknown VM VM7",
		},
		{
			name:     "task before VM start",
			vms:      []string{"VM0 50 100 1 1"},
			tasks:    []string{"0 wf0 t0 VM0 10 60 OK"},
			expected: []ViolationKind{ViolationVMLifecycle},
			message:  "vm_lifecycle: task 0 (10 - 60) ran outside lifetime of VM VM0 (50 - 100)",
		},
		{
			name:     "task after VM finish",
			vms:      []string{"VM0 0 100 1 1"},
			tasks:    []string{"0 wf0 t0 VM0 90 110 OK"},
			expected: []ViolationKind{ViolationVMLifecycle},
		},
		{
			name:      "transfer after VM finish",
			vms:       []string{"VM0 0 100 1 1"},
			transfers: []string{"0 VM0 100 105 DOWNLOAD t0 f"},
			expected:  []ViolationKind{ViolationVMLifecycle},
		},
		{
			name:  "unfinished VM keeps running",
			vms:   []string{"VM0 0 None 1 1"},
			tasks: []string{"0 wf0 t0 VM0 500 900 OK"},
		},
		{
			name:     "overlapping tasks",
			vms:      []string{"VM0 0 100 1 1"},
			tasks:    []string{"0 wf0 t0 VM0 10 30 OK", "1 wf0 t1 VM0 20 40 OK"},
			expected: []ViolationKind{ViolationTaskOverlap},
			message:  "task_overlap: task 1 ran at the same time as task 0 on VM VM0",
		},
		{
			name:     "nested tasks",
			vms:      []string{"VM0 0 100 1 1"},
			tasks:    []string{"0 wf0 t0 VM0 10 50 OK", "1 wf1 t0 VM0 20 30 OK", "2 wf1 t1 VM0 35 40 OK"},
			expected: []ViolationKind{ViolationTaskOverlap, ViolationTaskOverlap},
		},
		{
			name:  "tasks on different VMs",
			vms:   []string{"VM0 0 100 1 1", "VM1 0 100 1 1"},
			tasks: []string{"0 wf0 t0 VM0 10 30 OK", "1 wf0 t1 VM1 20 40 OK"},
		},
		{
			name:      "transfer during task",
			vms:       []string{"VM0 0 100 1 1"},
			tasks:     []string{"0 wf0 t0 VM0 10 30 OK"},
			transfers: []string{"0 VM0 25 35 DOWNLOAD t0 f"},
			expected:  []ViolationKind{ViolationTransferOverlap},
			message:   "transfer_overlap: transfer 0 ran at the same time as task 0 on VM VM0",
		},
		{
			name:      "task during transfer",
			vms:       []string{"VM0 0 100 1 1"},
			tasks:     []string{"0 wf0 t0 VM0 5 30 OK"},
			transfers: []string{"0 VM0 0 10 UPLOAD t0 f"},
			expected:  []ViolationKind{ViolationTransferOverlap},
		},
		{
			name:      "concurrent transfers",
			vms:       []string{"VM0 0 100 1 1"},
			transfers: []string{"0 VM0 0 10 UPLOAD t0 f", "1 VM0 0 10 UPLOAD t0 g"},
		},
		{
			name:      "touching intervals",
			vms:       []string{"VM0 0 100 1 1"},
			tasks:     []string{"0 wf0 t0 VM0 10 20 OK", "1 wf0 t1 VM0 20 30 OK"},
			transfers: []string{"0 VM0 0 10 UPLOAD t0 f", "1 VM0 30 40 DOWNLOAD t1 f"},
		},
		{
			name:  "unfinished tasks skip overlaps",
			vms:   []string{"VM0 0 100 1 1"},
			tasks: []string{"0 wf0 t0 VM0 10 None OK", "1 wf0 t1 VM0 20 30 OK"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			errs := Validate(buildLog(t, test.vms, test.tasks, test.transfers))
			assert.Equal(t, test.expected, violationKinds(t, errs))

			if test.message != "" {
				require.NotEmpty(t, errs)
				assert.EqualError(t, errs[0], test.message)
			}
		})
	}
}

func TestValidateConstraints(t *testing.T) {
	tests := []struct {
		name     string
		settings string
		expected []ViolationKind
	}{
		{
			name:     "within limits",
			settings: "budget=10 deadline=7200",
		},
		{
			name:     "no limits",
			settings: "storage=global",
		},
		{
			name:     "deadline exceeded",
			settings: "deadline=5000",
			expected: []ViolationKind{ViolationDeadline},
		},
		{
			name:     "budget exceeded",
			settings: "budget=1.5",
			expected: []ViolationKind{ViolationBudget},
		},
		{
			name:     "both exceeded",
			settings: "budget=1 deadline=60",
			expected: []ViolationKind{ViolationDeadline, ViolationBudget},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// VM0 costs 2, unfinished VM1 is not charged nor checked
			content := test.settings + "\n2\nVM0 0 7200 1 1\nVM1 0 None 1 1\n0\n0\n0\n0\n"

			log, err := Decode(content, WithSettingsLine())
			require.NoError(t, err)

			assert.Equal(t, test.expected, violationKinds(t, Validate(log)))
		})
	}
}

func TestValidateInvalidSettings(t *testing.T) {
	log, err := Decode("budget=lots\n0\n0\n0\n0\n0\n", WithSettingsLine())
	require.NoError(t, err)

	errs := Validate(log)
	require.Len(t, errs, 1)
	require.ErrorIs(t, errs[0], ErrInvalidSettings)
}

func TestParseConstraints(t *testing.T) {
	c, err := ParseConstraints("budget=100.0 deadline=36000 storage=global algorithm=DPDS")
	require.NoError(t, err)
	assert.Equal(t, Constraints{Budget: 100, HasBudget: true, Deadline: 36000, HasDeadline: true}, c)

	c, err = ParseConstraints("DPDS 40 3600")
	require.NoError(t, err)
	assert.Equal(t, Constraints{}, c)

	for _, settings := range []string{"budget=", "deadline=soon", "budget=NaN"} {
		_, err := ParseConstraints(settings)
		require.ErrorIs(t, err, ErrInvalidSettings, settings)
	}
}

func TestValidateOrder(t *testing.T) {
	g := dax.NewGraph()
	g.AddTask("a", "T", "1")
	g.AddTask("b", "T", "1")
	g.AddTask("c", "T", "1")
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")

	tests := []struct {
		name     string
		tasks    []string
		expected []string
	}{
		{
			name:  "in order",
			tasks: []string{"0 wf0 a VM0 0 10 OK", "1 wf0 b VM0 10 20 OK", "2 wf0 c VM0 20 30 OK"},
		},
		{
			name:     "child before parent",
			tasks:    []string{"0 wf0 a VM0 0 10 OK", "1 wf0 b VM0 5 20 OK"},
			expected: []string{"order: task b of workflow wf0 started at 5 before parent a finished at 10"},
		},
		{
			name: "retried parent counts last execution",
			tasks: []string{
				"0 wf0 a VM0 0 10 FAILED", "1 wf0 a VM0 10 30 OK_RETRY", "2 wf0 b VM0 20 40 OK",
			},
			expected: []string{"order: task b of workflow wf0 started at 20 before parent a finished at 30"},
		},
		{
			name:  "retried child counts last execution",
			tasks: []string{"0 wf0 b VM0 0 5 FAILED", "1 wf0 a VM0 0 10 OK", "2 wf0 b VM0 10 20 OK_RETRY"},
		},
		{
			name:  "never ran",
			tasks: []string{"0 wf0 a VM0 0 10 OK", "1 wf0 c VM0 5 20 OK"},
		},
		{
			name:  "workflows are independent",
			tasks: []string{"0 wf0 a VM0 0 10 OK", "1 wf1 b VM0 5 20 OK"},
		},
		{
			name:  "each workflow is checked",
			tasks: []string{"0 wf0 b VM0 20 30 OK", "1 wf0 c VM0 25 40 OK", "2 wf1 a VM0 0 50 OK", "3 wf1 b VM0 40 60 OK"},
			expected: []string{
				"order: task c of workflow wf0 started at 25 before parent b finished at 30",
				"order: task b of workflow wf1 started at 40 before parent a finished at 50",
			},
		},
		{
			name:  "unfinished parent",
			tasks: []string{"0 wf0 a VM0 0 None OK", "1 wf0 b VM0 5 20 OK"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			log := buildLog(t, []string{"VM0 0 100 1 1"}, test.tasks, nil)

			var messages []string

			for _, err := range ValidateOrder(log, g) {
				var v *ViolationError
				require.True(t, errors.As(err, &v))
				assert.Equal(t, ViolationOrder, v.Kind)

				messages = append(messages, err.Error())
			}

			assert.Equal(t, test.expected, messages)
		})
	}
}

func TestValidateOrderEnsembleLog(t *testing.T) {
	log, err := DecodeFile("testdata/ensemble.log", WithSettingsLine())
	require.NoError(t, err)

	g := dax.NewGraph()
	g.AddEdge("ID00000", "ID00001")
	g.AddEdge("ID00001", "ID00002")

	assert.Len(t, ValidateOrder(log, g), 2)
}
