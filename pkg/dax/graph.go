package dax

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// File is a workflow file with its size in bytes.
type File struct {
	Name string
	Size int64
}

// Task is a DAG task built from a DAX <job>.
type Task struct {
	ID      string
	Type    string
	Runtime string
	Inputs  []string
	Outputs []string
}

// Edge is a dependency from Parent to Child.
type Edge struct {
	Parent string
	Child  string
}

// Graph holds the files, tasks and edges of a workflow. Every collection
// iterates in first insertion order.
type Graph struct {
	fileNames []string
	fileSizes map[string]int64

	taskIDs []string
	tasks   map[string]*Task

	childIDs []string
	parents  map[string][]string
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		fileSizes: make(map[string]int64),
		tasks:     make(map[string]*Task),
		parents:   make(map[string][]string),
	}
}

// SetFile records a file. A later call for the same name replaces the size
// and keeps the original position.
func (g *Graph) SetFile(name string, size int64) {
	if _, ok := g.fileSizes[name]; !ok {
		g.fileNames = append(g.fileNames, name)
	}

	g.fileSizes[name] = size
}

// AddTask records a task with empty input and output lists and returns it. A
// task re-declared with the same id replaces the previous record.
func (g *Graph) AddTask(id, typ, runtime string) *Task {
	if _, ok := g.tasks[id]; !ok {
		g.taskIDs = append(g.taskIDs, id)
	}

	t := &Task{ID: id, Type: typ, Runtime: runtime}
	g.tasks[id] = t

	return t
}

// ResetParents starts an empty parent list for child.
func (g *Graph) ResetParents(child string) {
	if _, ok := g.parents[child]; !ok {
		g.childIDs = append(g.childIDs, child)
	}

	g.parents[child] = []string{}
}

// AddEdge appends parent to the parent list of child. Duplicates are kept.
func (g *Graph) AddEdge(parent, child string) {
	if _, ok := g.parents[child]; !ok {
		g.childIDs = append(g.childIDs, child)
	}

	g.parents[child] = append(g.parents[child], parent)
}

// File returns the size of the named file.
func (g *Graph) File(name string) (int64, bool) {
	size, ok := g.fileSizes[name]

	return size, ok
}

// Task returns the task with the given id.
func (g *Graph) Task(id string) (*Task, bool) {
	t, ok := g.tasks[id]

	return t, ok
}

// Parents returns the parent ids of child in declaration order.
func (g *Graph) Parents(child string) []string {
	return g.parents[child]
}

// Files returns all files in insertion order.
func (g *Graph) Files() []File {
	files := make([]File, len(g.fileNames))
	for i, name := range g.fileNames {
		files[i] = File{Name: name, Size: g.fileSizes[name]}
	}

	return files
}

// Tasks returns all tasks in insertion order.
func (g *Graph) Tasks() []*Task {
	tasks := make([]*Task, len(g.taskIDs))
	for i, id := range g.taskIDs {
		tasks[i] = g.tasks[id]
	}

	return tasks
}

// Edges returns all edges grouped by child in insertion order and by parent in
// declaration order.
func (g *Graph) Edges() []Edge {
	var edges []Edge

	for _, child := range g.childIDs {
		for _, parent := range g.parents[child] {
			edges = append(edges, Edge{Parent: parent, Child: child})
		}
	}

	return edges
}

// WriteTo serialises the graph in the DAG text format.
func (g *Graph) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: bufio.NewWriter(w)}

	for _, f := range g.Files() {
		cw.line("FILE", f.Name, strconv.FormatInt(f.Size, 10))
	}

	tasks := g.Tasks()
	for _, t := range tasks {
		cw.line("TASK", t.ID, t.Type, t.Runtime)
	}

	for _, t := range tasks {
		if len(t.Inputs) > 0 {
			cw.line(append([]string{"INPUTS", t.ID}, t.Inputs...)...)
		}

		if len(t.Outputs) > 0 {
			cw.line(append([]string{"OUTPUTS", t.ID}, t.Outputs...)...)
		}
	}

	for _, e := range g.Edges() {
		cw.line("EDGE", e.Parent, e.Child)
	}

	if cw.err != nil {
		return cw.n, cw.err
	}

	return cw.n, cw.w.Flush()
}

// countingWriter keeps the first write error and the number of bytes written.
type countingWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (c *countingWriter) line(fields ...string) {
	if c.err != nil {
		return
	}

	n, err := c.w.WriteString(strings.Join(fields, " ") + "\n")
	c.n += int64(n)
	c.err = err
}
