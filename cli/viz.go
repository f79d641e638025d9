// ABOUTME: Visualization CLI commands
// ABOUTME: Handles the dashboard, the text board and GraphViz output

package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/harperreed/dealboard/viz"
)

// VizGraphPipelineCommand generates the pipeline graph.
func VizGraphPipelineCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("graph pipeline", flag.ExitOnError)
	output := fs.String("output", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	generator := viz.NewGraphGenerator(app.Deals)
	dot, err := generator.GeneratePipelineGraph(context.Background())
	if err != nil {
		return err
	}
	return writeGraph(app, *output, dot)
}

// VizGraphDealCommand generates a single deal's activity timeline.
func VizGraphDealCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("graph deal", flag.ExitOnError)
	output := fs.String("output", "", "Output file (default: stdout)")
	id, rest := leadingID(args)

	if err := fs.Parse(rest); err != nil {
		return err
	}
	if id == "" {
		id = fs.Arg(0)
	}
	if id == "" {
		return fmt.Errorf("deal ID required")
	}

	generator := viz.NewGraphGenerator(app.Deals)
	dot, err := generator.GenerateDealGraph(context.Background(), id)
	if err != nil {
		return err
	}
	return writeGraph(app, *output, dot)
}

func writeGraph(app *App, output, dot string) error {
	if output != "" {
		return os.WriteFile(output, []byte(dot), 0644)
	}
	fmt.Fprintln(app.Out, dot)
	return nil
}

func VizDashboardCommand(app *App, args []string) error {
	stats := viz.GenerateDashboardStats(app.Deals.Board(), app.Notifications.UnreadCount(), time.Now())
	fmt.Fprint(app.Out, viz.RenderDashboard(stats))
	return nil
}

// BoardCommand prints every pipeline and stage with its deals and totals.
func BoardCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("board", flag.ExitOnError)
	empty := fs.Bool("all", false, "Show empty stages")
	_ = fs.Parse(args)

	board := app.Deals.Board()
	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	for _, col := range board.Pipelines {
		_, _ = fmt.Fprintf(w, "%s\t\t$%.2f\n", col.Pipeline.Name, col.Total)
		for _, sc := range col.Stages {
			if len(sc.Deals) == 0 && !*empty {
				continue
			}
			_, _ = fmt.Fprintf(w, "  %s (%d)\t\t$%.2f\n", sc.Stage.Name, len(sc.Deals), sc.Total)
			for _, d := range sc.Deals {
				_, _ = fmt.Fprintf(w, "    %s\t%s\t$%.2f\n", d.Name, d.Company, d.Value)
			}
		}
	}
	_, _ = fmt.Fprintf(w, "TOTAL (%d deals)\t\t$%.2f\n", board.Count, board.Total)
	return w.Flush()
}
