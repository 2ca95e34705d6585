package dax

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/prometheus/common/promslog"
	"github.com/prometheus/common/promslog/flag"
	"github.com/prometheus/common/version"
)

// DAX2DAGAppName is kingpin app name.
const DAX2DAGAppName = "dax2dag"

const dax2dagHelp = `Converts DAX files from the Pegasus WorkflowGenerator into the simplified DAG format.

If DAX_FILE has .dax or .xml extension, it is replaced in output file by .dag.
Otherwise .dag extension is appended.`

// DAX2DAG represents the `dax2dag` cli.
type DAX2DAG struct {
	appName string
	App     *kingpin.Application
	out     io.Writer
}

// NewDAX2DAG returns a new DAX2DAG instance.
func NewDAX2DAG() (*DAX2DAG, error) {
	return &DAX2DAG{
		appName: DAX2DAGAppName,
		App:     kingpin.New(DAX2DAGAppName, dax2dagHelp),
		out:     os.Stdout,
	}, nil
}

// Main is the entry point of the `dax2dag` command.
func (b *DAX2DAG) Main() error {
	var (
		daxFiles []string
		outDir   string
	)

	b.App.Arg(
		"DAX_FILE",
		"Path to the DAX file to convert.",
	).StringsVar(&daxFiles)
	b.App.Flag(
		"output.dir",
		"Directory in which the DAG file is written.",
	).Default(".").StringVar(&outDir)

	promslogConfig := &promslog.Config{}
	flag.AddFlags(b.App, promslogConfig)
	b.App.Version(version.Print(b.appName))
	b.App.UsageWriter(b.out)
	b.App.HelpFlag.Short('h')

	if _, err := b.App.Parse(os.Args[1:]); err != nil {
		return fmt.Errorf("failed to parse CLI flags: %w", err)
	}

	// Exactly one input file. Anything else only prints usage and is not
	// an error.
	if len(daxFiles) != 1 {
		b.App.Usage(nil)

		return nil
	}

	logger := promslog.New(promslogConfig)

	g, outPath, err := Convert(daxFiles[0], outDir)
	if err != nil {
		logger.Error("Failed to convert DAX file", "file", daxFiles[0], "err", err)

		return err
	}

	logger.Info(
		"DAG file written", "file", outPath, "files", len(g.Files()),
		"tasks", len(g.Tasks()), "edges", len(g.Edges()),
	)

	return nil
}
