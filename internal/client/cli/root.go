package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/blogclient/internal/client/api"
)

// Root restores a saved session, then runs the REPL until the user exits.
func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to the blog CLI (type 'help' for commands)")

	done := a.session.Bootstrap(ctx)
	if u, ok := a.session.CurrentUser(); ok {
		printlnFn("Welcome back,", u.Username)
	}
	go func() {
		err := <-done
		if err != nil && !errors.Is(err, api.ErrUnauthorized) {
			a.log.Warn(ctx, "session validation failed", "error", err)
		}
	}()

	runREPL(ctx, a, a.getStatus, a.reader)
}
