package simlog

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskOutcome(t *testing.T) {
	tests := []struct {
		result   string
		expected Outcome
	}{
		{"OK", OutcomeDone},
		{"FAILED", OutcomeFailed},
		{"OK_RETRY", OutcomeRetriedDone},
		{"RETRY_OK", OutcomeRetriedDone},
		{"FAILED_RETRY", OutcomeRetriedFailed},
		{"RETRY", OutcomeUnknown},
		{"", OutcomeUnknown},
	}

	seen := make(map[Outcome]bool)

	for _, test := range tests {
		got := Task{Result: test.result}.Outcome()
		assert.Equal(t, test.expected, got, test.result)

		seen[got] = true
	}

	// All four combinations are told apart
	for _, o := range []Outcome{OutcomeDone, OutcomeFailed, OutcomeRetriedDone, OutcomeRetriedFailed} {
		assert.True(t, seen[o], o.String())
	}
}

func TestRefineStorageStates(t *testing.T) {
	states := []StorageState{
		{Time: 0, Readers: 2, ReadSpeed: 10},
		{Time: 5, Readers: 1, ReadSpeed: 20},
		{Time: 9, Writers: 1, WriteSpeed: 40},
	}

	assert.Equal(t, []StorageState{
		{Time: 0, Readers: 2, ReadSpeed: 10},
		{Time: 5, Readers: 2, ReadSpeed: 10},
		{Time: 5, Readers: 1, ReadSpeed: 20},
		{Time: 9, Readers: 1, ReadSpeed: 20},
		{Time: 9, Writers: 1, WriteSpeed: 40},
	}, RefineStorageStates(states))

	assert.Empty(t, RefineStorageStates(nil))
	assert.Equal(t, states[:1], RefineStorageStates(states[:1]))
}

func TestVMRow(t *testing.T) {
	assert.Equal(t, 12, VMRow("VM12"))
	assert.Equal(t, 0, VMRow("VM0"))
	assert.Equal(t, 3, VMRow("VM3a"))
	assert.Equal(t, 0, VMRow("worker"))
}

func seriesTitles(series []Series) []string {
	titles := make([]string, len(series))
	for i, s := range series {
		titles[i] = s.Title
	}

	return titles
}

func TestGanttSeries(t *testing.T) {
	log, err := DecodeFile("testdata/ensemble.log", WithSettingsLine())
	require.NoError(t, err)

	results, err := GanttSeries(log, GanttResults)
	require.NoError(t, err)
	assert.Equal(t, []string{"VM idle", "Done", "Failed", "Retry", "Retry failed"}, seriesTitles(results))
	assert.Equal(t, []Bar{{0, 10, 110}, {12, 200, 400}}, results[1].Bars)
	assert.Equal(t, []Bar{{1, 60, 150}}, results[3].Bars)
	assert.True(t, results[3].Dotted)
	assert.Equal(t, 12, results[0].Bars[2].Row)

	workflows, err := GanttSeries(log, GanttWorkflows)
	require.NoError(t, err)
	assert.Equal(t, []string{"VM idle", "wf1 (1)", "wf0 (0)"}, seriesTitles(workflows))
	assert.Equal(t, "red", workflows[1].Color)
	assert.Len(t, workflows[2].Bars, 3)

	storage, err := GanttSeries(log, GanttStorage)
	require.NoError(t, err)
	assert.Equal(t, []string{"VM idle", "Computation", "Upload", "Download"}, seriesTitles(storage))
	assert.Len(t, storage[1].Bars, 5)
	assert.Equal(t, []Bar{{0, 0, 10}, {1, 0, 20}}, storage[2].Bars)
	assert.Equal(t, []Bar{{0, 110, 115}}, storage[3].Bars)
}

func TestGanttSeriesDropsEmpty(t *testing.T) {
	log, err := Decode(smallLog)
	require.NoError(t, err)

	results, err := GanttSeries(log, GanttResults)
	require.NoError(t, err)
	assert.Equal(t, []string{"VM idle", "Done", "Failed"}, seriesTitles(results))

	storage, err := GanttSeries(log, GanttStorage)
	require.NoError(t, err)
	assert.Equal(t, []string{"VM idle", "Computation"}, seriesTitles(storage))
}

func TestGanttSeriesUnfinished(t *testing.T) {
	tests := []struct {
		name     string
		log      string
		idle     []Bar
		computed []Bar
	}{
		{
			name:     "open VM ends at last finish",
			log:      "2\nVM0 0 None 1 1\nVM1 5 50 1 1\n0\n1\n0 wf0 t0 VM0 10 80 OK\n0\n0\n",
			idle:     []Bar{{0, 0, 80}, {1, 5, 50}},
			computed: []Bar{{0, 10, 80}},
		},
		{
			name:     "open task ends at last finish",
			log:      "1\nVM0 0 100 1 1\n0\n2\n0 wf0 t0 VM0 10 None OK\n1 wf0 t1 VM0 None 20 OK\n0\n0\n",
			idle:     []Bar{{0, 0, 100}},
			computed: []Bar{{0, 10, 100}},
		},
		{
			name: "nothing finished",
			log:  "1\nVM0 0 None 1 1\n0\n0\n0\n0\n",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			log, err := Decode(test.log)
			require.NoError(t, err)

			series, err := GanttSeries(log, GanttStorage)
			require.NoError(t, err)

			var idle, computed []Bar

			for _, s := range series {
				for _, bar := range s.Bars {
					assert.False(t, math.IsNaN(bar.Start) || math.IsNaN(bar.Finish), s.Title)
				}

				switch s.Title {
				case "VM idle":
					idle = s.Bars
				case "Computation":
					computed = s.Bars
				}
			}

			assert.Equal(t, test.idle, idle)
			assert.Equal(t, test.computed, computed)
		})
	}
}

func TestGanttSeriesUnknownMode(t *testing.T) {
	log, err := Decode(smallLog)
	require.NoError(t, err)

	_, err = GanttSeries(log, GanttMode("score"))
	require.ErrorIs(t, err, ErrUnknownGanttMode)
}

func TestSummary(t *testing.T) {
	log, err := DecodeFile("testdata/ensemble.log", WithSettingsLine())
	require.NoError(t, err)

	s := log.Summary()

	assert.Equal(t, map[Section]int{
		SectionVMs:           3,
		SectionWorkflows:     2,
		SectionTasks:         5,
		SectionTransfers:     3,
		SectionStorageStates: 3,
	}, s.Records)
	assert.Equal(t, map[Outcome]int{
		OutcomeDone:          2,
		OutcomeFailed:        1,
		OutcomeRetriedDone:   1,
		OutcomeRetriedFailed: 1,
	}, s.Outcomes)
	assert.Equal(t, 2, s.Uploads)
	assert.Equal(t, 1, s.Downloads)
	assert.InDelta(t, 10200.0, s.VMTime, 1e-9)
	assert.InDelta(t, 3.0, s.VMCost, 1e-9)
	assert.InDelta(t, 7200.0, s.Makespan, 1e-9)
	assert.False(t, math.IsNaN(s.VMCost))
}
