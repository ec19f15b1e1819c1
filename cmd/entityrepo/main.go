/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/suparena/entityrepo"
	"github.com/suparena/entityrepo/config"
	"github.com/suparena/entityrepo/errors"
	"github.com/suparena/entityrepo/relational/bunrepo"
	"github.com/suparena/entityrepo/relational/pgxrepo"
	"github.com/suparena/entityrepo/tablestore"
)

const usage = `Usage: entityrepo <command> [flags]

Commands:
  version                      Show version information
  check-conn <string>          Validate a table store connection string
  ensure-table [-table name]   Create the table store table if missing
  ping [-gen bun|pgx]          Connect to the relational database

Flags shared by ensure-table and ping:
  -config path                 YAML configuration file
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "version", "-version", "--version", "-v":
		fmt.Fprintln(stdout, entityrepo.GetVersionInfo())
		return 0
	case "check-conn":
		err = checkConn(args[1:], stdout)
	case "ensure-table":
		err = ensureTable(ctx, args[1:], stdout)
	case "ping":
		err = ping(ctx, args[1:], stdout)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func checkConn(args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return errors.NewArgumentError("connection string", "exactly one is required")
	}
	settings, err := tablestore.ParseConnectionString(args[0])
	if err != nil {
		if reason, ok := errors.ConfigReason(err); ok {
			return fmt.Errorf("%w (reason: %s)", err, reason)
		}
		return err
	}
	fmt.Fprintf(stdout, "OK %s\n", settings)
	return nil
}

func loadConfig(fs *flag.FlagSet, args []string) (*config.Config, error) {
	path := fs.String("config", "", "YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	var opts []config.LoadOption
	if *path != "" {
		opts = append(opts, config.WithFile(*path))
	}
	return config.Load(opts...)
}

func ensureTable(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("ensure-table", flag.ContinueOnError)
	table := fs.String("table", "", "table name, overriding configuration")
	wait := fs.Duration("wait", tablestore.DefaultTableWait, "how long to wait for the table")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if *table == "" {
		*table = cfg.TableStore.Table
	}

	settings, err := tablestore.ParseConnectionString(cfg.TableStore.ConnectionString)
	if err != nil {
		return err
	}
	client, err := tablestore.NewClient(ctx, settings)
	if err != nil {
		return err
	}
	created, err := tablestore.EnsureTable(ctx, client, *table, *wait, cfg.Log.Logger())
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(stdout, "table %s created\n", *table)
	} else {
		fmt.Fprintf(stdout, "table %s exists\n", *table)
	}
	return nil
}

func ping(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("ping", flag.ContinueOnError)
	gen := fs.String("gen", "bun", "session generation: bun or pgx")
	timeout := fs.Duration("timeout", 10*time.Second, "connect timeout")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	log := cfg.Log.Logger()
	start := time.Now()
	switch *gen {
	case "bun":
		bc, err := cfg.Relational.Bun(log)
		if err != nil {
			return err
		}
		session, err := bunrepo.Open(ctx, bc)
		if err != nil {
			return err
		}
		defer func() { _ = session.Close() }()
	case "pgx":
		pc, err := cfg.Relational.Pgx()
		if err != nil {
			return err
		}
		session, err := pgxrepo.Connect(ctx, pc, pgxrepo.WithSessionLogger(log))
		if err != nil {
			return err
		}
		defer func() { _ = session.Close() }()
	default:
		return errors.NewArgumentError("gen", fmt.Sprintf("unknown generation %q", *gen))
	}
	fmt.Fprintf(stdout, "%s %s reachable in %s\n", cfg.Relational.Driver, *gen, time.Since(start).Round(time.Millisecond))
	return nil
}
