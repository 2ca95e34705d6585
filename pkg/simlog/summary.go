package simlog

import "math"

// Summary aggregates a decoded log.
type Summary struct {
	Records   map[Section]int
	Outcomes  map[Outcome]int
	Uploads   int
	Downloads int

	// VMTime is the total VM lifetime in seconds.
	VMTime float64
	// VMCost charges every started hour of a VM at its price.
	VMCost float64
	// Makespan is the time from the first VM start to the last VM or task
	// finish.
	Makespan float64
}

// Summary computes record counts, the task outcome histogram, transfer
// counts per direction, VM time and cost and the makespan. Unfinished VMs
// and tasks (NaN times) are left out of the time based figures.
func (l *Log) Summary() Summary {
	s := Summary{
		Records: map[Section]int{
			SectionVMs:           len(l.VMs),
			SectionWorkflows:     len(l.Workflows),
			SectionTasks:         len(l.Tasks),
			SectionTransfers:     len(l.Transfers),
			SectionStorageStates: len(l.StorageStates),
		},
		Outcomes: make(map[Outcome]int),
	}

	for _, t := range l.Tasks {
		s.Outcomes[t.Outcome()]++
	}

	for _, t := range l.Transfers {
		switch t.Direction {
		case DirectionUpload:
			s.Uploads++
		case DirectionDownload:
			s.Downloads++
		}
	}

	first, last := math.Inf(1), math.Inf(-1)

	for _, vm := range l.VMList() {
		if !math.IsNaN(vm.Started) {
			first = math.Min(first, vm.Started)
		}

		if !math.IsNaN(vm.Finished) {
			last = math.Max(last, vm.Finished)
		}

		lifetime := vm.Finished - vm.Started
		if math.IsNaN(lifetime) || lifetime < 0 {
			continue
		}

		s.VMTime += lifetime

		if !math.IsNaN(vm.Price) {
			s.VMCost += math.Ceil(lifetime/3600) * vm.Price
		}
	}

	for _, t := range l.Tasks {
		if !math.IsNaN(t.Finished) {
			last = math.Max(last, t.Finished)
		}
	}

	if !math.IsInf(first, 0) && !math.IsInf(last, 0) && last > first {
		s.Makespan = last - first
	}

	return s
}
