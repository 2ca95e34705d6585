package dax

import (
	"fmt"
	"strconv"
)

// Stats summarises a workflow graph.
type Stats struct {
	Files          int
	Tasks          int
	Edges          int
	EntryTasks     int
	ExitTasks      int
	TotalBytes     int64
	TotalRuntime   float64
	CriticalPath   float64
	CriticalTaskID string
}

// children returns child lists keyed by parent and the number of incoming
// edges of every task.
func (g *Graph) children() (map[string][]string, map[string]int, error) {
	children := make(map[string][]string, len(g.tasks))
	indegree := make(map[string]int, len(g.tasks))

	for _, e := range g.Edges() {
		if _, ok := g.tasks[e.Parent]; !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnknownJob, e.Parent)
		}

		if _, ok := g.tasks[e.Child]; !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnknownJob, e.Child)
		}

		children[e.Parent] = append(children[e.Parent], e.Child)
		indegree[e.Child]++
	}

	return children, indegree, nil
}

// TopologicalOrder returns task ids such that every parent precedes its
// children. Ties are broken by insertion order.
func (g *Graph) TopologicalOrder() ([]string, error) {
	children, indegree, err := g.children()
	if err != nil {
		return nil, err
	}

	queue := make([]string, 0, len(g.taskIDs))

	for _, id := range g.taskIDs {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]string, 0, len(g.taskIDs))

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		for _, child := range children[id] {
			indegree[child]--
			if indegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if len(order) != len(g.taskIDs) {
		return nil, ErrCycle
	}

	return order, nil
}

// Stats computes graph statistics. The critical path is the longest runtime
// weighted path through the graph.
func (g *Graph) Stats() (Stats, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return Stats{}, err
	}

	children, indegree, err := g.children()
	if err != nil {
		return Stats{}, err
	}

	s := Stats{
		Files: len(g.fileNames),
		Tasks: len(g.taskIDs),
		Edges: len(g.Edges()),
	}

	for _, size := range g.fileSizes {
		s.TotalBytes += size
	}

	runtimes := make(map[string]float64, len(order))

	for _, id := range order {
		runtime, err := strconv.ParseFloat(g.tasks[id].Runtime, 64)
		if err != nil {
			return Stats{}, &MalformedInputError{Element: "task " + id, Attr: "runtime", Value: g.tasks[id].Runtime}
		}

		runtimes[id] = runtime
		s.TotalRuntime += runtime

		if indegree[id] == 0 {
			s.EntryTasks++
		}

		if len(children[id]) == 0 {
			s.ExitTasks++
		}
	}

	// Earliest finish times relaxed in topological order
	eft := make(map[string]float64, len(order))
	for _, id := range order {
		eft[id] = runtimes[id]
	}

	for _, id := range order {
		for _, child := range children[id] {
			eft[child] = max(eft[child], eft[id]+runtimes[child])
		}

		if eft[id] > s.CriticalPath || s.CriticalTaskID == "" {
			s.CriticalPath = eft[id]
			s.CriticalTaskID = id
		}
	}

	return s, nil
}
