package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/blogclient/internal/buildinfo"
	"github.com/dmitrijs2005/blogclient/internal/client/admin"
	"github.com/dmitrijs2005/blogclient/internal/client/api"
	"github.com/dmitrijs2005/blogclient/internal/client/cli"
	"github.com/dmitrijs2005/blogclient/internal/client/config"
	"github.com/dmitrijs2005/blogclient/internal/client/credentials"
	"github.com/dmitrijs2005/blogclient/internal/client/engagement"
	"github.com/dmitrijs2005/blogclient/internal/client/resources"
	"github.com/dmitrijs2005/blogclient/internal/client/session"
	"github.com/dmitrijs2005/blogclient/internal/client/storage"
	"github.com/dmitrijs2005/blogclient/internal/logging"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := logging.New(cfg.LogBackend, cfg.LogLevel, os.Stderr)
	if err != nil {
		return err
	}
	if z, ok := log.(*logging.ZapLogger); ok {
		defer func() { _ = z.Sync() }()
	}

	db, err := storage.InitDatabase(ctx, cfg.DBPath)
	if err != nil {
		log.Error(ctx, "error initializing database", "path", cfg.DBPath, "error", err)
		return err
	}
	defer db.Close()

	creds := credentials.NewStore(db, log)
	gw, err := api.NewHTTPGateway(cfg.APIBaseURL, cfg.RequestTimeout, creds, log)
	if err != nil {
		return err
	}

	sess := session.NewManager(gw, creds, log)
	res := resources.NewStore(gw, sess, log, cfg.PageLimit)
	eng := engagement.NewStore(gw, sess, log)
	adm := admin.NewStore(gw, sess, res, log, cfg.PageLimit)
	app := cli.NewApp(sess, res, eng, adm, os.Stdin, os.Stdout, log)

	gw.OnUnauthorized(sess.HandleUnauthorized)
	gw.OnUnauthorized(app.HandleUnauthorized)

	log.Debug(ctx, "starting", "api", cfg.APIBaseURL, "db", cfg.DBPath)
	app.Root(ctx)
	return nil
}
