// ABOUTME: Entry point for the dealboard CLI, TUI and MCP server
// ABOUTME: Parses global flags, loads config and routes to the command handlers
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harperreed/dealboard/cli"
	"github.com/harperreed/dealboard/config"
	"github.com/harperreed/dealboard/logging"
	"github.com/harperreed/dealboard/tui"
)

const version = "0.2.0"

type handlerFunc func(app *cli.App, args []string) error

var dealCommands = map[string]handlerFunc{
	"add":      cli.AddDealCommand,
	"update":   cli.UpdateDealCommand,
	"move":     cli.MoveDealCommand,
	"delete":   cli.DeleteDealCommand,
	"clear":    cli.ClearDealsCommand,
	"list":     cli.ListDealsCommand,
	"show":     cli.ShowDealCommand,
	"search":   cli.SearchDealsCommand,
	"activity": cli.AddActivityCommand,
}

var notifyCommands = map[string]handlerFunc{
	"add":   cli.AddNotificationCommand,
	"list":  cli.ListNotificationsCommand,
	"read":  cli.MarkReadCommand,
	"clear": cli.ClearNotificationsCommand,
}

var graphCommands = map[string]handlerFunc{
	"pipeline": cli.VizGraphPipelineCommand,
	"deal":     cli.VizGraphDealCommand,
}

func main() {
	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	configPath := flag.String("config", "", "Config file (default: ~/.config/dealboard/config.json)")
	dataDir := flag.String("data-dir", "", "Data directory (overrides config)")
	backend := flag.String("backend", "", "Storage backend: sqlite, badger, charm or memory")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn or error")

	// Parse global flags but don't fail on unknown (for subcommands)
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("dealboard version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load config", "err", err)
	}
	// Only the device id is written back; env and flag overrides stay one-off.
	if cfg.DeviceID == "" {
		id, err := config.PersistDeviceID(*configPath)
		if err != nil {
			log.Warn("could not save device id", "err", err)
		}
		cfg.DeviceID = id
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", "err", err)
	}

	// Logs go to stderr so stdout stays clean for command output and the MCP stdio transport.
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		log.Fatal("invalid logging config", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, cfg, logger, args))
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger, args []string) int {
	command, commandArgs := args[0], args[1:]

	if command == "help" {
		printUsage()
		return 0
	}

	handler, rest, err := route(command, commandArgs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		printUsage()
		return 1
	}

	app, err := cli.OpenApp(cfg, logger)
	if err != nil {
		logger.Error("failed to open dealboard", "backend", cfg.Backend, "err", err)
		return 1
	}
	logger.Debug("dealboard opened", "backend", cfg.Backend, "data_dir", cfg.DataDir)

	code := 0
	switch command {
	case "mcp":
		if err := cli.MCPCommand(ctx, app, version); err != nil && ctx.Err() == nil {
			logger.Error("MCP server failed", "err", err)
			code = 1
		}
	case "web":
		if err := cli.WebCommand(ctx, app, rest); err != nil {
			logger.Error("web server failed", "err", err)
			code = 1
		}
	case "tui":
		if err := tui.Run(app.Deals, app.Notifications, app.Gate()); err != nil {
			logger.Error("TUI failed", "err", err)
			code = 1
		}
	default:
		if err := handler(app, rest); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			code = 1
		}
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Close(closeCtx); err != nil {
		logger.Error("failed to save changes", "err", err)
		code = 1
	}
	return code
}

// route resolves a command and its subcommand to a handler before the store is opened.
func route(command string, args []string) (handlerFunc, []string, error) {
	sub := func(table map[string]handlerFunc, name string) (handlerFunc, []string, error) {
		if len(args) == 0 {
			return nil, nil, fmt.Errorf("%s requires a subcommand", name)
		}
		h, ok := table[args[0]]
		if !ok {
			return nil, nil, fmt.Errorf("unknown %s command: %s", name, args[0])
		}
		return h, args[1:], nil
	}

	switch command {
	case "deal":
		return sub(dealCommands, "deal")
	case "notify":
		return sub(notifyCommands, "notify")
	case "graph":
		return sub(graphCommands, "graph")
	case "board":
		return cli.BoardCommand, args, nil
	case "dashboard":
		return cli.VizDashboardCommand, args, nil
	case "status":
		return cli.StatusCommand, args, nil
	case "sync":
		return cli.SyncCommand, args, nil
	case "mcp", "tui", "web":
		return nil, args, nil
	}
	return nil, nil, fmt.Errorf("unknown command: %s", command)
}

func printUsage() {
	fmt.Printf(`dealboard v%s - Sales pipeline board

USAGE:
  dealboard [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --config <path>        Config file (default: ~/.config/dealboard/config.json)
  --data-dir <dir>       Data directory (default: ~/.local/share/dealboard)
  --backend <name>       sqlite (default), badger, charm or memory
  --log-level <level>    debug, info, warn or error

COMMANDS:
  tui                    Interactive kanban board
  mcp                    Start MCP server for Claude Desktop
  web [--port <n>]       Browser board at localhost:8080
  deal                   Deal commands
  notify                 Notification feed commands
  board                  Print the board with stage and pipeline totals
  dashboard              Pipeline statistics
  graph                  Graphviz DOT output
  status                 Backend and document status
  sync                   Flush and sync with the charm cloud

DEAL COMMANDS:
  dealboard deal add        Add a new deal
    --name <name>             Deal name (required)
    --company <company>       Company (required)
    --value <amount>          Deal value in dollars
    --stage <stage>           Stage id (default: potential)
    --pipeline <pipeline>     Pipeline id (must match the stage)
    --priority <p>            low, medium or high (default: medium)
    --owner <owner>           Owner
    --description <text>      Description

  dealboard deal update [flags] <id>   Update fields (same flags as add)
  dealboard deal move <id> <stage>     Move a deal to another stage
  dealboard deal delete <id>           Delete a deal
  dealboard deal clear [--yes]         Delete every deal
  dealboard deal list                  List deals
    --stage <stage>           Filter by stage
    --pipeline <pipeline>     Filter by pipeline
    --query <text>            Match name or company
    --limit <n>               Max results (default: 50)
  dealboard deal search <text>         Search name and company
  dealboard deal show <id>             Show a deal and its activity
  dealboard deal activity [flags] <id> Add an activity
    --type <type>             comment, task, site-visit, schedule, note, call, email or meeting
    --title <title>           Title (required)
    --description <text>      Description
    --at <when>               RFC3339 or YYYY-MM-DD (default: now)
    --done                    Mark a task completed

NOTIFY COMMANDS:
  dealboard notify add --title <t> --message <m>
  dealboard notify list [--unread] [--limit <n>]
  dealboard notify read
  dealboard notify clear

GRAPH COMMANDS:
  dealboard graph pipeline [--output <file>]
  dealboard graph deal <id> [--output <file>]

STAGES:
  pre_approval: potential, quote_requested, work_requested, planning, assessment
  quoting:      quoting, waiting_approval
  active:       in_progress
  post_work:    completed

EXAMPLES:
  # Add a deal
  dealboard deal add --name "Rooftop unit" --company "Acme HVAC" --value 12500

  # Move it along
  dealboard deal move <id> quote_requested

  # Render the pipeline graph
  dealboard graph pipeline | dot -Tpng > pipeline.png

`, version)
}
