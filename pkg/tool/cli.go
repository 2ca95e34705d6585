// Package tool implements the `cws_tool` command line application that
// inspects DAG files and simulation logs.
package tool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cws-dev/cwstools/internal/common"
	"github.com/cws-dev/cwstools/internal/runtime"
	"github.com/cws-dev/cwstools/pkg/dax"
	"github.com/cws-dev/cwstools/pkg/simlog"
	"github.com/cws-dev/cwstools/pkg/simlog/store"
	"github.com/prometheus/common/promslog"
	"github.com/prometheus/common/promslog/flag"
	"github.com/prometheus/common/version"
)

// CWSToolAppName is kingpin app name.
const CWSToolAppName = "cws_tool"

// Output path meaning standard output.
const stdout = "-"

var errValidationFailed = errors.New("log validation failed")

// CWSTool represents the `cws_tool` cli.
type CWSTool struct {
	appName string
	App     *kingpin.Application
	out     io.Writer
	logger  *slog.Logger
}

// NewCWSTool returns a new CWSTool instance.
func NewCWSTool() (*CWSTool, error) {
	return &CWSTool{
		appName: CWSToolAppName,
		App:     kingpin.New(CWSToolAppName, "Tooling for cloud workflow simulator DAG files and logs."),
		out:     os.Stdout,
	}, nil
}

// Main is the entry point of the `cws_tool` command.
func (c *CWSTool) Main() error {
	var (
		configFile, dagFile, logFile             string
		format, metricsFile, dbPath, ganttMode   string
		ganttOutput, storageOutput, importName   string
		orderDAGFile                             string
		settingsLine, settingsLineSet, formatSet bool
		dbPathSet                                bool
	)

	c.App.Flag(
		"config.file", "Path to the cws_tool YAML config file.",
	).PlaceHolder("<filename>").StringVar(&configFile)
	c.App.Flag(
		"log.settings-line", "Simulation logs start with an experiment settings line (overrides config).",
	).IsSetByUser(&settingsLineSet).BoolVar(&settingsLine)

	dagCmd := c.App.Command("dag", "DAG file commands.")

	dagStatsCmd := dagCmd.Command("stats", "Print size, runtime and critical path statistics of a DAG file.")
	dagStatsCmd.Arg("DAG_FILE", "Path to the DAG file.").Required().ExistingFileVar(&dagFile)

	logCmd := c.App.Command("log", "Simulation log commands.")

	logSummaryCmd := logCmd.Command("summary", "Print a summary of a simulation log.")
	logSummaryCmd.Arg("LOG_FILE", "Path to the simulation log.").Required().ExistingFileVar(&logFile)
	logSummaryCmd.Flag(
		"format", "Summary output format. One of: "+strings.Join(summaryFormats, ", ")+" (overrides config).",
	).IsSetByUser(&formatSet).EnumVar(&format, summaryFormats...)
	logSummaryCmd.Flag(
		"metrics.textfile", "Also write summary gauges to this Prometheus textfile.",
	).PlaceHolder("<filename>").StringVar(&metricsFile)

	logImportCmd := logCmd.Command("import", "Import a simulation log into the run database.")
	logImportCmd.Arg("LOG_FILE", "Path to the simulation log.").Required().ExistingFileVar(&logFile)
	logImportCmd.Flag(
		"storage.db.path", "Path to the SQLite run database (overrides config).",
	).IsSetByUser(&dbPathSet).StringVar(&dbPath)
	logImportCmd.Flag(
		"name", "Run name. Defaults to the log file name.",
	).StringVar(&importName)

	logRunsCmd := logCmd.Command("runs", "List the runs of the run database.")
	logRunsCmd.Flag(
		"storage.db.path", "Path to the SQLite run database (overrides config).",
	).IsSetByUser(&dbPathSet).StringVar(&dbPath)

	logGanttCmd := logCmd.Command("gantt", "Write Gantt chart series of a simulation log as gnuplot data.")
	logGanttCmd.Arg("LOG_FILE", "Path to the simulation log.").Required().ExistingFileVar(&logFile)
	logGanttCmd.Flag(
		"mode", "Series grouping. One of: results, workflows, storage.",
	).Default(string(simlog.GanttResults)).EnumVar(&ganttMode, ganttModeNames()...)
	logGanttCmd.Flag(
		"output", "Output data file. - writes to stdout.",
	).Default(stdout).StringVar(&ganttOutput)

	logValidateCmd := logCmd.Command("validate", "Check a simulation log for impossible schedules and broken constraints.")
	logValidateCmd.Arg("LOG_FILE", "Path to the simulation log.").Required().ExistingFileVar(&logFile)
	logValidateCmd.Flag(
		"dag", "DAG file of the workflows. Enables the task order check.",
	).PlaceHolder("<filename>").ExistingFileVar(&orderDAGFile)

	logStorageCmd := logCmd.Command("storage", "Write refined global storage states as gnuplot data.")
	logStorageCmd.Arg("LOG_FILE", "Path to the simulation log.").Required().ExistingFileVar(&logFile)
	logStorageCmd.Flag(
		"output", "Output data file. - writes to stdout.",
	).Default(stdout).StringVar(&storageOutput)

	promslogConfig := &promslog.Config{}
	flag.AddFlags(c.App, promslogConfig)
	c.App.Version(version.Print(c.appName))
	c.App.UsageWriter(c.out)
	c.App.HelpFlag.Short('h')

	parsedCmd, err := c.App.Parse(os.Args[1:])
	if err != nil {
		return fmt.Errorf("failed to parse CLI flags: %w", err)
	}

	c.logger = promslog.New(promslogConfig)
	c.logger.Debug(
		"Operational information", "build_context", version.BuildContext(),
		"host_details", runtime.Uname(), "fd_limits", runtime.FdLimits(),
	)

	config := defaultConfig()

	if configFile != "" {
		loaded, err := common.MakeConfig[Config](configFile)
		if err != nil {
			return fmt.Errorf("failed to load config file %s: %w", configFile, err)
		}

		config = *loaded
	}

	// CLI flags take precedence over the config file
	if settingsLineSet {
		config.Log.SettingsLine = settingsLine
	}

	if formatSet {
		config.Summary.Format = format
	}

	if dbPathSet {
		config.Storage.DBPath = dbPath
	}

	switch parsedCmd {
	case dagStatsCmd.FullCommand():
		return c.dagStats(dagFile)
	case logSummaryCmd.FullCommand():
		return c.logSummary(logFile, config, metricsFile)
	case logImportCmd.FullCommand():
		return c.logImport(context.Background(), logFile, importName, config)
	case logRunsCmd.FullCommand():
		return c.logRuns(context.Background(), config)
	case logGanttCmd.FullCommand():
		return c.logGantt(logFile, simlog.GanttMode(ganttMode), ganttOutput, config)
	case logStorageCmd.FullCommand():
		return c.logStorage(logFile, storageOutput, config)
	case logValidateCmd.FullCommand():
		return c.logValidate(logFile, orderDAGFile, config)
	}

	return nil
}

func ganttModeNames() []string {
	names := make([]string, len(simlog.GanttModes))
	for i, mode := range simlog.GanttModes {
		names[i] = string(mode)
	}

	return names
}

func decodeOptions(config Config) []simlog.Option {
	if config.Log.SettingsLine {
		return []simlog.Option{simlog.WithSettingsLine()}
	}

	return nil
}

func (c *CWSTool) decodeLog(path string, config Config) (*simlog.Log, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read log file %s: %w", path, err)
	}

	log, err := simlog.Decode(string(raw), decodeOptions(config)...)
	if err != nil {
		var malformed *simlog.MalformedInputError
		if errors.As(err, &malformed) && malformed.Line == 1 && !config.Log.SettingsLine {
			c.logger.Warn("Log may start with a settings line, try --log.settings-line", "file", path)
		}

		return nil, nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	c.logger.Debug(
		"Log decoded", "file", path, "vms", len(log.VMs), "workflows", len(log.Workflows),
		"tasks", len(log.Tasks), "transfers", len(log.Transfers), "storage_states", len(log.StorageStates),
	)

	return log, raw, nil
}

// createOutput opens path for writing, - meaning the app output.
func (c *CWSTool) createOutput(path string) (io.Writer, func() error, error) {
	if path == stdout {
		return c.out, func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}

	return f, f.Close, nil
}

func readDAGFile(path string) (*dax.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	g, err := dax.ReadDAG(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read DAG file %s: %w", path, err)
	}

	return g, nil
}

func (c *CWSTool) dagStats(path string) error {
	g, err := readDAGFile(path)
	if err != nil {
		return err
	}

	stats, err := g.Stats()
	if err != nil {
		return fmt.Errorf("failed to compute stats of %s: %w", path, err)
	}

	t := newDAGStatsTable(stats)
	t.SetOutputMirror(c.out)
	t.Render()

	return nil
}

func (c *CWSTool) logSummary(path string, config Config, metricsFile string) error {
	log, _, err := c.decodeLog(path, config)
	if err != nil {
		return err
	}

	summary := log.Summary()

	t := newSummaryTable(filepath.Base(path), log.Settings, summary)
	t.SetOutputMirror(c.out)

	switch config.Summary.Format {
	case "html":
		t.RenderHTML()
	case "csv":
		t.RenderCSV()
	case "markdown":
		t.RenderMarkdown()
	default:
		t.Render()
	}

	if metricsFile != "" {
		if err := writeSummaryMetrics(metricsFile, summary); err != nil {
			return fmt.Errorf("failed to write metrics textfile %s: %w", metricsFile, err)
		}

		c.logger.Info("Metrics textfile written", "file", metricsFile)
	}

	return nil
}

func (c *CWSTool) logImport(ctx context.Context, path, name string, config Config) error {
	log, raw, err := c.decodeLog(path, config)
	if err != nil {
		return err
	}

	if name == "" {
		name = filepath.Base(path)
	}

	s, err := store.Open(config.Storage.DBPath, c.logger)
	if err != nil {
		return err
	}

	defer s.Close()

	run, created, err := s.Import(ctx, name, log, raw)
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", path, err)
	}

	if created {
		fmt.Fprintf(c.out, "imported run %s (%s)\n", run.ID, run.Name)
	} else {
		fmt.Fprintf(c.out, "run %s (%s) already imported\n", run.ID, run.Name)
	}

	return nil
}

func (c *CWSTool) logRuns(ctx context.Context, config Config) error {
	s, err := store.Open(config.Storage.DBPath, c.logger)
	if err != nil {
		return err
	}

	defer s.Close()

	runs, err := s.Runs(ctx)
	if err != nil {
		return err
	}

	busy := make(map[string]int, len(runs))

	for _, run := range runs {
		vms, err := s.BusyVMs(ctx, run.ID)
		if err != nil {
			return err
		}

		busy[run.ID] = len(vms)
	}

	t := newRunsTable(runs, busy)
	t.SetOutputMirror(c.out)
	t.Render()

	return nil
}

func (c *CWSTool) logGantt(path string, mode simlog.GanttMode, output string, config Config) error {
	log, _, err := c.decodeLog(path, config)
	if err != nil {
		return err
	}

	series, err := simlog.GanttSeries(log, mode)
	if err != nil {
		return err
	}

	w, closeFn, err := c.createOutput(output)
	if err != nil {
		return fmt.Errorf("failed to create output %s: %w", output, err)
	}

	if err := writeGanttData(w, series); err != nil {
		closeFn()

		return fmt.Errorf("failed to write gantt data: %w", err)
	}

	return closeFn()
}

func (c *CWSTool) logStorage(path, output string, config Config) error {
	log, _, err := c.decodeLog(path, config)
	if err != nil {
		return err
	}

	states := simlog.RefineStorageStates(log.StorageStates)
	if len(states) == 0 {
		c.logger.Warn("No storage states in log, schedules may have been rejected or storage was void", "file", path)
	}

	w, closeFn, err := c.createOutput(output)
	if err != nil {
		return fmt.Errorf("failed to create output %s: %w", output, err)
	}

	if err := writeStorageData(w, states); err != nil {
		closeFn()

		return fmt.Errorf("failed to write storage data: %w", err)
	}

	return closeFn()
}

func (c *CWSTool) logValidate(path, dagPath string, config Config) error {
	log, _, err := c.decodeLog(path, config)
	if err != nil {
		return err
	}

	violations := simlog.Validate(log)

	if dagPath != "" {
		g, err := readDAGFile(dagPath)
		if err != nil {
			return err
		}

		violations = append(violations, simlog.ValidateOrder(log, g)...)
	}

	for _, v := range violations {
		fmt.Fprintln(c.out, v)
	}

	if len(violations) > 0 {
		return fmt.Errorf("%w: %d violations in %s", errValidationFailed, len(violations), path)
	}

	fmt.Fprintf(c.out, "%s is valid\n", path)

	return nil
}
