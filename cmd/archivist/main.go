// cmd/archivist/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/semmidev/archivist/internal/app"
	"github.com/semmidev/archivist/internal/config"
)

var cli struct {
	Config string `name:"config" short:"c" help:"Path to config file" default:"/etc/archivist/config.yaml" type:"path"`

	Run    RunCmd    `cmd:"run"    help:"Dump, archive, verify and prune once"`
	Prune  PruneCmd  `cmd:"prune"  help:"Apply the retention policy without taking a new backup"`
	Upload UploadCmd `cmd:"upload" help:"Upload recent archives to the configured remote targets"`
	Daemon DaemonCmd `cmd:"daemon" help:"Run backups on the configured schedule"`
}

// runContext is bound into every command's Run method.
type runContext struct {
	ctx        context.Context
	configPath string
}

type RunCmd struct{}

func (c *RunCmd) Run(rc *runContext) error {
	return withApp(rc, app.Options{}, func(a *app.App) error {
		return a.Backup(rc.ctx)
	})
}

type PruneCmd struct {
	DryRun bool `name:"dry-run" help:"List expired archives without deleting them"`
}

func (c *PruneCmd) Run(rc *runContext) error {
	return withApp(rc, app.Options{DryRun: c.DryRun}, func(a *app.App) error {
		return a.Prune(rc.ctx)
	})
}

type UploadCmd struct {
	DryRun bool `name:"dry-run" help:"Show what would be uploaded without uploading"`
}

func (c *UploadCmd) Run(rc *runContext) error {
	return withApp(rc, app.Options{DryRun: c.DryRun}, func(a *app.App) error {
		return a.Upload(rc.ctx)
	})
}

type DaemonCmd struct{}

func (c *DaemonCmd) Run(rc *runContext) error {
	return withApp(rc, app.Options{}, func(a *app.App) error {
		return a.Serve(rc.ctx)
	})
}

func withApp(rc *runContext, opts app.Options, fn func(*app.App) error) error {
	cfg, err := config.Load(rc.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	application, err := app.New(cfg, opts)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer application.Shutdown()

	return fn(application)
}

func main() {
	os.Exit(run())
}

func run() int {
	kctx := kong.Parse(&cli,
		kong.Name("archivist"),
		kong.Description("Scheduled database dumps packed into encrypted 7z archives with retention pruning."),
		kong.UsageOnError(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := kctx.Run(&runContext{ctx: ctx, configPath: cli.Config}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
