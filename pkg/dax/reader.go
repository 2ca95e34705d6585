package dax

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// ReadDAG parses the DAG text format written by Graph.WriteTo. Blank lines and
// lines starting with # are ignored and record keywords are case insensitive.
func ReadDAG(r io.Reader) (*Graph, error) {
	g := NewGraph()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if err := readRecord(g, strings.Fields(line), lineNo); err != nil {
			return nil, err
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return g, nil
}

// readRecord adds a single DAG record to g.
func readRecord(g *Graph, rec []string, lineNo int) error {
	kind := strings.ToUpper(rec[0])
	invalid := func(attr, value string) error {
		return &MalformedInputError{Element: kind + " record", Attr: attr, Value: value, Line: lineNo}
	}

	switch kind {
	case "FILE":
		if len(rec) != 3 {
			return invalid("field count", strconv.Itoa(len(rec)))
		}

		size, err := parseSize(rec[2])
		if err != nil {
			return invalid("size", rec[2])
		}

		g.SetFile(rec[1], size)

	case "TASK":
		if len(rec) != 4 {
			return invalid("field count", strconv.Itoa(len(rec)))
		}

		if _, err := strconv.ParseFloat(rec[3], 64); err != nil {
			return invalid("runtime", rec[3])
		}

		g.AddTask(rec[1], rec[2], rec[3])

	case "EDGE":
		if len(rec) != 3 {
			return invalid("field count", strconv.Itoa(len(rec)))
		}

		g.AddEdge(rec[1], rec[2])

	case "INPUTS", "OUTPUTS":
		if len(rec) < 3 {
			return invalid("field count", strconv.Itoa(len(rec)))
		}

		task, ok := g.Task(rec[1])
		if !ok {
			return invalid("task", rec[1])
		}

		files := append([]string(nil), rec[2:]...)
		if kind == "INPUTS" {
			task.Inputs = files
		} else {
			task.Outputs = files
		}

	default:
		return &MalformedInputError{Element: "record", Attr: "type", Value: rec[0], Line: lineNo}
	}

	return nil
}

// parseSize accepts integral sizes and, for DAGs produced by other tools,
// floating point sizes which are truncated.
func parseSize(s string) (int64, error) {
	if size, err := strconv.ParseInt(s, 10, 64); err == nil {
		return size, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}

	return int64(f), nil
}
