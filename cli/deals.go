// ABOUTME: Deal CLI commands
// ABOUTME: Human-friendly commands for creating, moving and inspecting deals

package cli

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/harperreed/dealboard/catalog"
	"github.com/harperreed/dealboard/models"
	"github.com/harperreed/dealboard/store"
	"golang.org/x/term"
)

// AddDealCommand adds a new deal.
func AddDealCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("deal add", flag.ExitOnError)
	name := fs.String("name", "", "Deal name (required)")
	company := fs.String("company", "", "Company name (required)")
	value := fs.Float64("value", 0, "Deal value in dollars")
	stage := fs.String("stage", "", "Stage ("+strings.Join(catalog.StageIDs(), ", ")+")")
	pipeline := fs.String("pipeline", "", "Pipeline (must match the stage)")
	owner := fs.String("owner", "", "Owner")
	description := fs.String("description", "", "Description")
	priority := fs.String("priority", "", "Priority (low, medium, high)")
	_ = fs.Parse(args)

	if err := app.requireAuth(); err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("--name is required")
	}
	if *company == "" {
		return fmt.Errorf("--company is required")
	}
	if *owner == "" {
		*owner = app.Config.DefaultOwner
	}

	deal, err := app.Deals.CreateDeal(models.DealInput{
		Name:        *name,
		Company:     *company,
		Value:       *value,
		Stage:       models.StageID(*stage),
		Pipeline:    models.PipelineID(*pipeline),
		Owner:       *owner,
		Description: *description,
		Priority:    models.Priority(*priority),
	})
	if err != nil {
		return fmt.Errorf("failed to create deal: %w", err)
	}

	fmt.Fprintf(app.Out, "✓ Deal created: %s (ID: %s)\n", deal.Name, deal.ID)
	fmt.Fprintf(app.Out, "  Company: %s\n", deal.Company)
	fmt.Fprintf(app.Out, "  Value: $%.2f\n", deal.Value)
	fmt.Fprintf(app.Out, "  Stage: %s\n", stageLabel(deal.Stage))
	return nil
}

// UpdateDealCommand changes the fields given on the command line.
func UpdateDealCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("deal update", flag.ExitOnError)
	name := fs.String("name", "", "New name")
	company := fs.String("company", "", "New company")
	value := fs.Float64("value", 0, "New value")
	stage := fs.String("stage", "", "New stage")
	pipeline := fs.String("pipeline", "", "Pipeline (must match the stage)")
	owner := fs.String("owner", "", "New owner")
	description := fs.String("description", "", "New description")
	priority := fs.String("priority", "", "New priority")
	id, rest := leadingID(args)
	_ = fs.Parse(rest)

	if err := app.requireAuth(); err != nil {
		return err
	}
	if id == "" {
		id = fs.Arg(0)
	}
	if id == "" {
		return fmt.Errorf("deal ID required")
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var upd models.DealUpdate
	if set["name"] {
		upd.Name = name
	}
	if set["company"] {
		upd.Company = company
	}
	if set["value"] {
		upd.Value = value
	}
	if set["stage"] {
		s := models.StageID(*stage)
		upd.Stage = &s
	}
	if set["pipeline"] {
		p := models.PipelineID(*pipeline)
		upd.Pipeline = &p
	}
	if set["owner"] {
		upd.Owner = owner
	}
	if set["description"] {
		upd.Description = description
	}
	if set["priority"] {
		p := models.Priority(*priority)
		upd.Priority = &p
	}
	if upd.IsEmpty() {
		return fmt.Errorf("nothing to update")
	}

	deal, err := app.Deals.UpdateDeal(id, upd)
	if err != nil {
		return fmt.Errorf("failed to update deal: %w", err)
	}
	fmt.Fprintf(app.Out, "✓ Deal updated: %s\n", deal.Name)
	return nil
}

// MoveDealCommand moves a deal to another stage: deal move <id> <stage>.
func MoveDealCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("deal move", flag.ExitOnError)
	_ = fs.Parse(args)

	if err := app.requireAuth(); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("usage: deal move <id> <stage> (stages: %s)", strings.Join(catalog.StageIDs(), ", "))
	}

	deal, err := app.Deals.MoveDeal(fs.Arg(0), models.StageID(fs.Arg(1)))
	if err != nil {
		return fmt.Errorf("failed to move deal: %w", err)
	}
	fmt.Fprintf(app.Out, "✓ %s moved to %s\n", deal.Name, stageLabel(deal.Stage))
	return nil
}

// DeleteDealCommand removes a deal.
func DeleteDealCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("deal delete", flag.ExitOnError)
	_ = fs.Parse(args)

	if err := app.requireAuth(); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("deal ID required")
	}

	if err := app.Deals.DeleteDeal(fs.Arg(0)); err != nil {
		return fmt.Errorf("failed to delete deal: %w", err)
	}
	fmt.Fprintf(app.Out, "✓ Deal deleted: %s\n", fs.Arg(0))
	return nil
}

// ClearDealsCommand removes every deal. It asks first when run from a terminal.
func ClearDealsCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("deal clear", flag.ExitOnError)
	yes := fs.Bool("yes", false, "Skip confirmation")
	_ = fs.Parse(args)

	if err := app.requireAuth(); err != nil {
		return err
	}

	if !*yes {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("refusing to clear deals without --yes")
		}
		fmt.Fprintf(app.Out, "Delete all %d deals? [y/N] ", app.Deals.Len())
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			fmt.Fprintln(app.Out, "Aborted")
			return nil
		}
	}

	n := app.Deals.ClearDeals()
	fmt.Fprintf(app.Out, "✓ Cleared %d deals\n", n)
	return nil
}

// ListDealsCommand lists deals, optionally filtered.
func ListDealsCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("deal list", flag.ExitOnError)
	stage := fs.String("stage", "", "Filter by stage")
	pipeline := fs.String("pipeline", "", "Filter by pipeline")
	query := fs.String("query", "", "Match name or company")
	limit := fs.Int("limit", 50, "Maximum results")
	_ = fs.Parse(args)

	if *stage != "" && !catalog.IsStage(models.StageID(*stage)) {
		return fmt.Errorf("unknown stage: %s", *stage)
	}
	if *pipeline != "" && !catalog.IsPipeline(models.PipelineID(*pipeline)) {
		return fmt.Errorf("unknown pipeline: %s", *pipeline)
	}

	deals := app.Deals.Search(*query)
	if *stage != "" {
		deals = store.FilterByStage(deals, models.StageID(*stage))
	}
	if *pipeline != "" {
		deals = store.FilterByPipeline(deals, models.PipelineID(*pipeline))
	}

	printDeals(app, deals, *limit)
	return nil
}

// SearchDealsCommand is list with a positional search term.
func SearchDealsCommand(app *App, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("search term required")
	}
	return ListDealsCommand(app, append([]string{"--query", args[0]}, args[1:]...))
}

func printDeals(app *App, deals []models.Deal, limit int) {
	if len(deals) == 0 {
		fmt.Fprintln(app.Out, "No deals found")
		return
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tCOMPANY\tVALUE\tSTAGE\tPRIORITY\tUPDATED\tID")
	_, _ = fmt.Fprintln(w, "----\t-------\t-----\t-----\t--------\t-------\t--")

	var total float64
	for i, deal := range deals {
		total += deal.Value
		if i >= limit {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t$%.2f\t%s\t%s\t%s\t%s\n",
			deal.Name,
			deal.Company,
			deal.Value,
			stageLabel(deal.Stage),
			deal.Priority,
			deal.LastUpdated.Format("2006-01-02"),
			deal.ID,
		)
	}
	_ = w.Flush()

	fmt.Fprintf(app.Out, "\n%d deal(s), $%.2f total\n", len(deals), total)
}

// ShowDealCommand prints one deal with its activity timeline.
func ShowDealCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("deal show", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("deal ID required")
	}

	deal, err := app.Deals.Deal(fs.Arg(0))
	if err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "%s\n", deal.Name)
	fmt.Fprintf(app.Out, "  ID:        %s\n", deal.ID)
	fmt.Fprintf(app.Out, "  Company:   %s\n", deal.Company)
	fmt.Fprintf(app.Out, "  Value:     $%.2f\n", deal.Value)
	fmt.Fprintf(app.Out, "  Pipeline:  %s\n", pipelineLabel(deal.Pipeline))
	fmt.Fprintf(app.Out, "  Stage:     %s\n", stageLabel(deal.Stage))
	fmt.Fprintf(app.Out, "  Priority:  %s\n", deal.Priority)
	if deal.Owner != "" {
		fmt.Fprintf(app.Out, "  Owner:     %s\n", deal.Owner)
	}
	fmt.Fprintf(app.Out, "  Updated:   %s\n", deal.LastUpdated.Format(time.RFC1123))
	if deal.Description != "" {
		fmt.Fprintf(app.Out, "\n  %s\n", deal.Description)
	}

	if len(deal.Activities) == 0 {
		return nil
	}
	fmt.Fprintln(app.Out, "\nACTIVITY")
	for _, a := range deal.Activities {
		mark := ""
		if a.Type == models.ActivityTask {
			mark = "[ ] "
			if a.Completed {
				mark = "[x] "
			}
		}
		fmt.Fprintf(app.Out, "  %s  %-10s %s%s\n", a.Timestamp.Format("2006-01-02 15:04"), a.Type, mark, a.Title)
		if a.Description != "" {
			fmt.Fprintf(app.Out, "                    %s\n", a.Description)
		}
	}
	return nil
}

// AddActivityCommand appends an activity: deal activity <id> --type call --title "Intro call".
func AddActivityCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("deal activity", flag.ExitOnError)
	kind := fs.String("type", string(models.ActivityNote), "Activity type (comment, task, site-visit, schedule, note, call, email, meeting)")
	title := fs.String("title", "", "Title (required)")
	description := fs.String("description", "", "Details")
	when := fs.String("at", "", "Timestamp, RFC3339 or YYYY-MM-DD (default now)")
	done := fs.Bool("done", false, "Mark a task completed")
	id, rest := leadingID(args)
	_ = fs.Parse(rest)

	if err := app.requireAuth(); err != nil {
		return err
	}
	if id == "" {
		id = fs.Arg(0)
	}
	if id == "" {
		return fmt.Errorf("deal ID required")
	}
	if *title == "" {
		return fmt.Errorf("--title is required")
	}

	var ts time.Time
	if *when != "" {
		parsed, err := parseWhen(*when)
		if err != nil {
			return err
		}
		ts = parsed
	}

	activity, err := app.Deals.AddActivity(id, models.ActivityInput{
		Type:        models.ActivityType(*kind),
		Title:       *title,
		Description: *description,
		Timestamp:   ts,
		Completed:   *done,
	})
	if err != nil {
		return fmt.Errorf("failed to add activity: %w", err)
	}
	fmt.Fprintf(app.Out, "✓ %s added: %s\n", activity.Type, activity.Title)
	return nil
}

// leadingID lets the deal ID come before the flags as well as after them.
func leadingID(args []string) (string, []string) {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return args[0], args[1:]
	}
	return "", args
}

func parseWhen(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q (use RFC3339 or YYYY-MM-DD)", s)
	}
	return t, nil
}

func stageLabel(id models.StageID) string {
	if info, err := catalog.StageInfo(id); err == nil {
		return info.Name
	}
	return string(id)
}

func pipelineLabel(id models.PipelineID) string {
	if info, err := catalog.PipelineInfo(id); err == nil {
		return info.Name
	}
	return string(id)
}
