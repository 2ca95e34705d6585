// Package dax converts Pegasus DAX workflow descriptions into the simplified
// DAG text format and reads that format back.
//
// In some DAX files produced by the Pegasus WorkflowGenerator one file is
// declared several times with different sizes. The last declared size wins.
package dax

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

// Matches the extensions replaced by .dag in output file names.
var daxExtRegex = regexp.MustCompile(`\.(xml|dax)$`)

// Parse decodes a DAX document.
func Parse(r io.Reader) (*Adag, error) {
	adag := &Adag{}
	if err := xml.NewDecoder(r).Decode(adag); err != nil {
		return nil, fmt.Errorf("failed to decode DAX: %w", err)
	}

	return adag, nil
}

// Build populates a graph from a decoded DAX document.
func Build(adag *Adag) (*Graph, error) {
	g := NewGraph()

	for _, job := range adag.Jobs {
		if err := addJob(g, job); err != nil {
			return nil, err
		}
	}

	for _, child := range adag.Childs {
		if child.Ref == "" {
			return nil, &MalformedInputError{Element: "child", Attr: "ref"}
		}

		g.ResetParents(child.Ref)

		for _, parent := range child.Parents {
			if parent.Ref == "" {
				return nil, &MalformedInputError{Element: "parent", Attr: "ref"}
			}

			g.AddEdge(parent.Ref, child.Ref)
		}
	}

	return g, nil
}

// addJob adds a <job> and its <uses> declarations to the graph.
func addJob(g *Graph, job Job) error {
	if job.ID == "" {
		return &MalformedInputError{Element: "job", Attr: "id"}
	}

	if job.Runtime == "" {
		return &MalformedInputError{Element: "job " + job.ID, Attr: "runtime"}
	}

	task := g.AddTask(job.ID, fmt.Sprintf("%s::%s:%s", job.Namespace, job.Name, job.Version), job.Runtime)

	for _, uses := range job.Uses {
		if uses.File == "" {
			return &MalformedInputError{Element: "uses in job " + job.ID, Attr: "file"}
		}

		size, err := strconv.ParseInt(uses.Size, 10, 64)
		if err != nil {
			return &MalformedInputError{Element: "uses " + uses.File, Attr: "size", Value: uses.Size}
		}

		switch uses.Link {
		case LinkInput:
			task.Inputs = append(task.Inputs, uses.File)
		case LinkOutput:
			task.Outputs = append(task.Outputs, uses.File)
		default:
			return &MalformedInputError{Element: "uses " + uses.File, Attr: "link", Value: uses.Link}
		}

		g.SetFile(uses.File, size)
	}

	return nil
}

// OutputFileName returns the DAG file name for a DAX path: the base name with
// a trailing .dax or .xml replaced by .dag, or with .dag appended otherwise.
func OutputFileName(path string) string {
	return daxExtRegex.ReplaceAllString(filepath.Base(path), "") + ".dag"
}

// Convert reads the DAX file at inPath and writes its DAG into outDir. It
// returns the built graph and the path of the written file.
func Convert(inPath, outDir string) (*Graph, string, error) {
	f, err := os.Open(inPath)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	adag, err := Parse(f)
	if err != nil {
		return nil, "", err
	}

	g, err := Build(adag)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build graph from %s: %w", inPath, err)
	}

	outPath := filepath.Join(outDir, OutputFileName(inPath))

	if err := writeFile(outPath, g); err != nil {
		return nil, "", err
	}

	return g, outPath, nil
}

// writeFile writes src to path. A partly written file is removed.
func writeFile(path string, src io.WriterTo) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}

	if _, err := src.WriteTo(out); err != nil {
		out.Close()
		os.Remove(path)

		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := out.Close(); err != nil {
		os.Remove(path)

		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	return nil
}
