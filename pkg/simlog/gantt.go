package simlog

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// GanttMode selects how bars are grouped into series.
type GanttMode string

// Gantt modes.
const (
	GanttResults   GanttMode = "results"
	GanttWorkflows GanttMode = "workflows"
	GanttStorage   GanttMode = "storage"
)

// GanttModes lists the supported modes.
var GanttModes = []GanttMode{GanttResults, GanttWorkflows, GanttStorage}

// Bar is one horizontal interval on the VM row Row.
type Bar struct {
	Row    int
	Start  float64
	Finish float64
}

// Series is a titled group of bars drawn in one style.
type Series struct {
	Title  string
	Color  string
	Dotted bool
	Bars   []Bar
}

// Colors cycled through for per workflow series.
var workflowColors = []string{"red", "green", "orange", "grey10", "brown"}

// VMRow returns the numeric part of a VM id, VM12 giving 12. Ids without a
// leading number map to row 0.
func VMRow(id string) int {
	s := strings.Replace(id, "VM", "", 1)
	s = strings.TrimLeft(s, " \t")

	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || end == 0 && (s[end] == '-' || s[end] == '+')) {
		end++
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}

	return n
}

// GanttSeries groups the VMs, tasks and transfers of log into chart series
// for mode. Unfinished VMs, tasks and transfers (None finish) end at the
// latest known finish of the log; bars without a start are dropped. Series
// without bars are left out.
func GanttSeries(log *Log, mode GanttMode) ([]Series, error) {
	var series []Series

	horizon := ganttHorizon(log)

	add := func(title, color string, dotted bool, bars []Bar) {
		bars = clampBars(bars, horizon)
		if len(bars) == 0 {
			return
		}

		series = append(series, Series{Title: title, Color: color, Dotted: dotted, Bars: bars})
	}

	vms := log.VMList()
	idle := make([]Bar, len(vms))

	for i, vm := range vms {
		idle[i] = Bar{Row: VMRow(vm.ID), Start: vm.Started, Finish: vm.Finished}
	}

	switch mode {
	case GanttResults:
		add("VM idle", "grey90", false, idle)
		add("Done", "green", false, taskBars(log.Tasks, outcomeIs(OutcomeDone)))
		add("Failed", "red", false, taskBars(log.Tasks, outcomeIs(OutcomeFailed)))
		add("Retry", "green", true, taskBars(log.Tasks, outcomeIs(OutcomeRetriedDone)))
		add("Retry failed", "red", true, taskBars(log.Tasks, outcomeIs(OutcomeRetriedFailed)))
	case GanttWorkflows:
		add("VM idle", "grey90", false, idle)

		workflows := log.WorkflowList()
		slices.Reverse(workflows)

		for i, wf := range workflows {
			bars := taskBars(log.Tasks, func(t Task) bool { return t.Workflow == wf.ID })
			add(fmt.Sprintf("%s (%d)", wf.ID, wf.Priority), workflowColors[i%len(workflowColors)], false, bars)
		}
	case GanttStorage:
		add("VM idle", "grey90", false, idle)
		add("Computation", "grey10", false, taskBars(log.Tasks, func(Task) bool { return true }))
		add("Upload", "orange", false, transferBars(log.Transfers, DirectionUpload))
		add("Download", "green", false, transferBars(log.Transfers, DirectionDownload))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownGanttMode, mode)
	}

	return series, nil
}

// ganttHorizon returns the latest finite finish time of the log, NaN when
// nothing has finished.
func ganttHorizon(log *Log) float64 {
	horizon := math.NaN()

	extend := func(t float64) {
		if !math.IsNaN(t) && !math.IsInf(t, 0) && (math.IsNaN(horizon) || t > horizon) {
			horizon = t
		}
	}

	for _, vm := range log.VMs {
		extend(vm.Finished)
	}

	for _, t := range log.Tasks {
		extend(t.Finished)
	}

	for _, t := range log.Transfers {
		extend(t.Finished)
	}

	return horizon
}

// clampBars ends open bars at horizon and drops bars that cannot be drawn.
func clampBars(bars []Bar, horizon float64) []Bar {
	kept := bars[:0:0]

	for _, bar := range bars {
		if math.IsNaN(bar.Finish) {
			bar.Finish = horizon
		}

		if math.IsNaN(bar.Start) || math.IsNaN(bar.Finish) || bar.Finish < bar.Start {
			continue
		}

		kept = append(kept, bar)
	}

	return kept
}

func outcomeIs(o Outcome) func(Task) bool {
	return func(t Task) bool {
		return t.Outcome() == o
	}
}

func taskBars(tasks []Task, keep func(Task) bool) []Bar {
	var bars []Bar

	for _, t := range tasks {
		if keep(t) {
			bars = append(bars, Bar{Row: VMRow(t.VM), Start: t.Started, Finish: t.Finished})
		}
	}

	return bars
}

func transferBars(transfers []Transfer, direction string) []Bar {
	var bars []Bar

	for _, t := range transfers {
		if t.Direction == direction {
			bars = append(bars, Bar{Row: VMRow(t.VM), Start: t.Started, Finish: t.Finished})
		}
	}

	return bars
}
