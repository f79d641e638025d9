// ABOUTME: CLI command for the browser board
// ABOUTME: Starts the web server over the app's stores until interrupted
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"

	"github.com/harperreed/dealboard/web"
)

// WebCommand serves the board over HTTP.
func WebCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("web", flag.ExitOnError)
	port := fs.Int("port", 8080, "Port to listen on")
	if err := fs.Parse(args); err != nil {
		return err
	}

	server, err := web.NewServer(app.Deals, app.Notifications, app.Gate(), app.Logger)
	if err != nil {
		return err
	}

	err = server.Start(ctx, fmt.Sprintf(":%d", *port))
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
