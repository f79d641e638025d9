// ABOUTME: MCP server subcommand
// ABOUTME: Starts the MCP server for Claude Desktop integration

package cli

import (
	"context"

	"github.com/harperreed/dealboard/handlers"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewMCPServer registers every tool, resource and prompt over the app's stores.
func NewMCPServer(app *App, version string) *mcp.Server {
	dealHandlers := handlers.NewDealHandlers(app.Deals, app.Gate(), app.Config.DefaultOwner)
	queryHandlers := handlers.NewQueryHandlers(app.Deals)
	notificationHandlers := handlers.NewNotificationHandlers(app.Notifications, app.Gate())
	vizHandlers := handlers.NewVizHandlers(app.Deals, app.Notifications)
	resourceHandlers := handlers.NewResourceHandlers(app.Deals, app.Notifications)
	promptHandlers := handlers.NewPromptHandlers(app.Deals)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "dealboard",
		Version: version,
	}, nil)

	// Deals
	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_deal",
		Description: "Create a deal. Stage defaults to potential and the pipeline follows the stage",
	}, dealHandlers.CreateDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_deal",
		Description: "Update fields of an existing deal; omitted fields are left unchanged",
	}, dealHandlers.UpdateDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "move_deal",
		Description: "Move a deal to another stage, possibly in another pipeline",
	}, dealHandlers.MoveDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_deal",
		Description: "Delete a deal by ID",
	}, dealHandlers.DeleteDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_deal_activity",
		Description: "Append a comment, task, site visit, schedule, note, call, email or meeting to a deal",
	}, dealHandlers.AddActivity)

	// Queries
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_deals",
		Description: "Search deals by name or company with optional stage and pipeline filters",
	}, queryHandlers.SearchDeals)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "pipeline_totals",
		Description: "Deal counts and value totals per pipeline and stage",
	}, queryHandlers.PipelineTotals)

	// Notifications
	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_notification",
		Description: "Add a notification to the top of the feed",
	}, notificationHandlers.AddNotification)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_notifications",
		Description: "List notifications newest first",
	}, notificationHandlers.ListNotifications)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "mark_notifications_read",
		Description: "Mark every notification read",
	}, notificationHandlers.MarkAsRead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "clear_notifications",
		Description: "Remove every notification",
	}, notificationHandlers.ClearNotifications)

	// Visualization
	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_graph",
		Description: "Render the pipeline board or one deal's timeline as GraphViz DOT",
	}, vizHandlers.GenerateGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "dashboard",
		Description: "Text dashboard with per-stage bars, recent activity and stale deals",
	}, vizHandlers.Dashboard)

	// Resources
	for _, r := range []*mcp.Resource{
		{URI: "dealboard://deals", Name: "deals", Description: "Every deal", MIMEType: "application/json"},
		{URI: "dealboard://board", Name: "board", Description: "Pipeline and stage totals", MIMEType: "application/json"},
		{URI: "dealboard://notifications", Name: "notifications", Description: "Notification feed, newest first", MIMEType: "application/json"},
	} {
		server.AddResource(r, resourceHandlers.ReadResource)
	}
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "dealboard://deals/{id}",
		Name:        "deal",
		Description: "One deal with its activities",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	// Prompts
	for _, p := range promptHandlers.Prompts() {
		server.AddPrompt(p, promptHandlers.GetPrompt)
	}

	return server
}

// MCPCommand starts the MCP server on stdio
func MCPCommand(ctx context.Context, app *App, version string) error {
	app.Logger.Info("starting MCP server", "backend", app.Config.Backend)
	return NewMCPServer(app, version).Run(ctx, &mcp.StdioTransport{})
}
