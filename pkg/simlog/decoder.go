// Package simlog decodes the five section text logs written by the cloud
// workflow simulator and derives result, storage and Gantt views from them.
package simlog

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Option configures a decode.
type Option func(*decodeOptions)

type decodeOptions struct {
	settingsLine bool
}

// WithSettingsLine makes the decoder treat the first line as the experiment
// settings line. It is stored in Log.Settings and not parsed.
func WithSettingsLine() Option {
	return func(o *decodeOptions) {
		o.settingsLine = true
	}
}

// Minimum number of whitespace separated fields per record.
var recordFields = [numSections]int{
	SectionVMs:           5,
	SectionWorkflows:     2,
	SectionTasks:         7,
	SectionTransfers:     7,
	SectionStorageStates: 5,
}

type decoderState int

const (
	expectCount decoderState = iota
	expectRecord
)

// decoder walks the log lines one section at a time.
type decoder struct {
	lines  []string
	offset int // number of lines preceding lines[0] in the input

	state     decoderState
	section   Section
	remaining int

	log *Log
}

// Decode decodes a simulation log held in memory.
func Decode(content string, opts ...Option) (*Log, error) {
	o := decodeOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	lines := splitLines(content)
	d := &decoder{log: newLog()}

	if o.settingsLine {
		if len(lines) == 0 {
			return nil, &TruncatedLogError{Section: SectionVMs, Declared: -1}
		}

		d.log.Settings = lines[0]
		lines = lines[1:]
		d.offset = 1
	}

	d.lines = lines

	if err := d.validate(); err != nil {
		return nil, err
	}

	if err := d.run(); err != nil {
		return nil, err
	}

	return d.log, nil
}

// DecodeReader reads r to the end and decodes it.
func DecodeReader(r io.Reader, opts ...Option) (*Log, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}

	return Decode(string(content), opts...)
}

// DecodeFile decodes the log stored at path.
func DecodeFile(path string, opts ...Option) (*Log, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read log file %s: %w", path, err)
	}

	log, err := Decode(string(content), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return log, nil
}

// splitLines splits content into lines dropping carriage returns and the
// empty lines a trailing newline leaves behind.
func splitLines(content string) []string {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}

	return lines
}

// countLine reports whether line holds a bare record count. Records always
// carry at least two fields so a single integer can only be a count.
func countLine(line string) (int, bool) {
	fields := strings.Fields(line)
	if len(fields) != 1 {
		return 0, false
	}

	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, false
	}

	return n, true
}

// validate checks that every section count matches the records that follow
// it before any record is decoded. When the counts are consistent, records
// that look like counts are left to run and reported as malformed.
func (d *decoder) validate() error {
	if len(d.lines) == 0 {
		return &TruncatedLogError{Section: SectionVMs, Declared: -1}
	}

	if _, ok := countLine(d.lines[0]); !ok {
		return &MalformedInputError{Line: d.offset + 1, Section: SectionVMs, Field: "count", Value: d.lines[0]}
	}

	if d.countsConsistent() {
		return nil
	}

	if err := d.locateMismatch(); err != nil {
		return err
	}

	return &TruncatedLogError{Section: SectionVMs, Declared: -1}
}

// countsConsistent walks the lines positionally, trusting every count, and
// reports whether the five sections cover the lines exactly.
func (d *decoder) countsConsistent() bool {
	cursor := 0

	for range Sections {
		if cursor >= len(d.lines) {
			return false
		}

		n, ok := countLine(d.lines[cursor])
		if !ok || n < 0 {
			return false
		}

		cursor += 1 + n
	}

	return cursor == len(d.lines)
}

// locateMismatch groups lines by the bare counts they follow and returns the
// first section whose declared count differs from its records.
func (d *decoder) locateMismatch() error {
	section := Section(-1)
	declared, available := 0, 0

	check := func() error {
		if section >= 0 && declared != available {
			return &TruncatedLogError{Section: section, Declared: declared, Available: available}
		}

		return nil
	}

	for _, line := range d.lines {
		n, ok := countLine(line)
		if !ok || section == SectionStorageStates {
			available++

			continue
		}

		if err := check(); err != nil {
			return err
		}

		section++
		declared, available = n, 0

		if n < 0 {
			return &TruncatedLogError{Section: section, Declared: n}
		}
	}

	if err := check(); err != nil {
		return err
	}

	if section < SectionStorageStates {
		return &TruncatedLogError{Section: section + 1, Declared: -1}
	}

	return nil
}

// run feeds every line through the state machine.
func (d *decoder) run() error {
	d.state = expectCount
	d.section = SectionVMs

	for i, line := range d.lines {
		lineNo := d.offset + i + 1

		switch d.state {
		case expectCount:
			n, ok := countLine(line)
			if !ok || n < 0 {
				return &MalformedInputError{Line: lineNo, Section: d.section, Field: "count", Value: line}
			}

			d.remaining = n
			if n > 0 {
				d.state = expectRecord
			} else {
				d.section++
			}
		case expectRecord:
			if err := d.record(lineNo, line); err != nil {
				return err
			}

			d.remaining--
			if d.remaining == 0 {
				d.state = expectCount
				d.section++
			}
		}
	}

	if d.section != numSections {
		return &TruncatedLogError{Section: d.section, Declared: -1}
	}

	return nil
}

func (d *decoder) record(lineNo int, line string) error {
	r := &recordReader{fields: strings.Fields(line), line: lineNo, section: d.section}
	if len(r.fields) < recordFields[d.section] {
		return &MalformedInputError{Line: lineNo, Section: d.section, Field: "field count", Value: line}
	}

	switch d.section {
	case SectionVMs:
		vm := VM{
			ID:       r.str(0),
			Started:  r.float(1, "start time"),
			Finished: r.float(2, "finish time"),
			Cores:    r.float(3, "cores"),
			Price:    r.float(4, "price"),
		}
		if r.err == nil {
			d.log.addVM(vm)
		}
	case SectionWorkflows:
		wf := Workflow{
			ID:       r.str(0),
			Priority: r.int(1, "priority"),
		}
		if r.err == nil {
			d.log.addWorkflow(wf)
		}
	case SectionTasks:
		task := Task{
			ID:       r.str(0),
			Workflow: r.str(1),
			TaskID:   r.str(2),
			VM:       r.str(3),
			Started:  r.float(4, "start time"),
			Finished: r.float(5, "finish time"),
			Result:   r.str(6),
		}
		if r.err == nil {
			d.log.Tasks = append(d.log.Tasks, task)
		}
	case SectionTransfers:
		transfer := Transfer{
			ID:        r.str(0),
			VM:        r.str(1),
			Started:   r.float(2, "start time"),
			Finished:  r.float(3, "finish time"),
			Direction: r.str(4),
			JobID:     r.str(5),
			FileID:    r.str(6),
		}
		if r.err == nil {
			d.log.Transfers = append(d.log.Transfers, transfer)
		}
	case SectionStorageStates:
		state := StorageState{
			Time:       r.float(0, "time"),
			Readers:    r.int(1, "readers"),
			Writers:    r.int(2, "writers"),
			ReadSpeed:  r.float(3, "read speed"),
			WriteSpeed: r.float(4, "write speed"),
		}
		if r.err == nil {
			d.log.StorageStates = append(d.log.StorageStates, state)
		}
	}

	return r.err
}

// recordReader converts record fields keeping the first conversion error.
type recordReader struct {
	fields  []string
	line    int
	section Section
	err     error
}

func (r *recordReader) str(i int) string {
	return r.fields[i]
}

func (r *recordReader) float(i int, name string) float64 {
	if r.err != nil {
		return 0
	}

	if r.fields[i] == "None" {
		return math.NaN()
	}

	v, err := strconv.ParseFloat(r.fields[i], 64)
	if err != nil {
		r.err = &MalformedInputError{Line: r.line, Section: r.section, Field: name, Value: r.fields[i]}
	}

	return v
}

func (r *recordReader) int(i int, name string) int {
	if r.err != nil {
		return 0
	}

	v, err := strconv.Atoi(r.fields[i])
	if err != nil {
		r.err = &MalformedInputError{Line: r.line, Section: r.section, Field: name, Value: r.fields[i]}
	}

	return v
}
