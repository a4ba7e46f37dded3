package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dusk-indust/convene/internal/config"
	"github.com/dusk-indust/convene/internal/coordinator"
	"github.com/dusk-indust/convene/internal/export"
	"github.com/dusk-indust/convene/internal/status"
)

// runExport prints an archived run as JSON or a mermaid sequence diagram.
// With -lineage it instead renders the cross-run lineage graph.
func runExport(projectRoot string, args []string) error {
	fs := flag.NewFlagSet("convene export", flag.ContinueOnError)
	format := fs.String("format", "json", "json or mermaid")
	lineageFlag := fs.Bool("lineage", false, "render the cross-run lineage graph instead of one run")
	limit := fs.Int("limit", 10, "number of recent runs in the lineage graph")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *lineageFlag {
		return exportLineage(projectRoot, *limit)
	}

	cfg, err := config.Load(projectRoot)
	if err != nil {
		return err
	}
	dir := historyDir(projectRoot, cfg)

	var rep *coordinator.AggregatedReport
	if runID := fs.Arg(0); runID != "" {
		rep, err = status.LoadRun(dir, runID)
	} else {
		rep, err = status.LatestRun(dir)
	}
	if err != nil {
		return err
	}

	switch *format {
	case "json":
		data, err := export.MarshalRun(rep)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	case "mermaid":
		fmt.Print(export.GenerateMermaid(rep))
		return nil
	default:
		return fmt.Errorf("unknown format %q (want json or mermaid)", *format)
	}
}

func exportLineage(projectRoot string, limit int) error {
	store, err := openLineage(projectRoot)
	if err != nil {
		return fmt.Errorf("open lineage graph: %w", err)
	}
	if store == nil {
		return fmt.Errorf("lineage graph requires a cgo build")
	}
	defer store.Close()

	mermaid, err := export.GenerateLineageMermaid(context.Background(), store, limit)
	if err != nil {
		return err
	}
	fmt.Print(mermaid)
	return nil
}
