package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/virtops/tunnelctl/internal/admin"
	"github.com/virtops/tunnelctl/internal/config"
	"github.com/virtops/tunnelctl/internal/logging"
	"github.com/virtops/tunnelctl/internal/remote"
	"github.com/virtops/tunnelctl/internal/tunnel"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("tunnelctl", flag.ContinueOnError)
	configPath := fs.String("config", "", "runtime config file (toml)")
	inventoryPath := fs.String("inventory", "", "host inventory file (toml)")
	adminAddr := fs.String("admin", "", "serve the admin surface on this address")
	verbose := fs.Bool("verbose", false, "pass -vvv to the ssh client")
	timeout := fs.Duration("timeout", 0, "per-command timeout, 0 waits forever")
	batch := fs.Bool("batch", false, "read commands from stdin, one per line")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: tunnelctl [flags] <host> [command ...]\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logging.ConfigureRuntime()

	cfg := defaultRuntimeConfig()
	if *configPath != "" {
		loaded, err := loadRuntimeConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "tunnelctl: %v\n", err)
			return 1
		}
		cfg = loaded
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "verbose":
			cfg.Verbose = *verbose
		case "timeout":
			cfg.Timeout = *timeout
		case "admin":
			cfg.AdminAddr = *adminAddr
		case "inventory":
			cfg.Inventory = *inventoryPath
		}
	})

	if fs.NArg() < 1 {
		fs.Usage()
		return 2
	}
	target := fs.Arg(0)
	argv := fs.Args()[1:]
	if !*batch && len(argv) == 0 {
		fs.Usage()
		return 2
	}

	inv := config.Inventory{Client: config.ClientConfig{Path: "ssh"}}
	if cfg.Inventory != "" {
		loaded, err := config.LoadInventory(cfg.Inventory)
		if err != nil {
			fmt.Fprintf(os.Stderr, "tunnelctl: %v\n", err)
			return 1
		}
		inv = loaded
	}

	host, ok := inv.FindHost(target)
	if !ok {
		host = config.HostConfig{Name: target, Hostname: target}
	}

	pool := tunnel.NewPool(tunnel.Config{ClientPath: inv.Client.Path})
	defer pool.Shutdown()
	if cfg.Verbose || logging.TraceEnabled() {
		pool.EnableVerbose()
	}

	if cfg.AdminAddr != "" {
		srv := admin.New(admin.Config{Service: "tunnelctl", CorsOrigins: cfg.CorsOrigins}, pool)
		go func() {
			if err := srv.Run(cfg.AdminAddr); err != nil {
				logging.Errorf("main admin surface stopped err=%v", err)
			}
		}()
	}

	session, err := remote.NewSession(pool, remote.Config{
		Hostname: host.Hostname,
		Daemon:   host.Daemon,
		Match:    host.Match,
		Options:  append(append([]string{}, inv.Client.Options...), host.Options...),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "tunnelctl: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *batch {
		return runBatch(ctx, session, cfg.Timeout)
	}
	return runOnce(ctx, session, argv, cfg.Timeout)
}

func runOnce(ctx context.Context, session *remote.Session, argv []string, timeout time.Duration) int {
	out, err := session.Run(ctx, argv, timeout)
	if err != nil {
		var cmdErr *remote.CommandError
		if errors.As(err, &cmdErr) {
			fmt.Fprint(os.Stdout, cmdErr.Stdout)
			fmt.Fprint(os.Stderr, cmdErr.Stderr)
		}
		fmt.Fprintf(os.Stderr, "tunnelctl: %v\n", err)
		return 1
	}
	fmt.Fprint(os.Stdout, out)
	return 0
}

// runBatch runs one command per stdin line over the same pooled tunnel and
// stops at the first failure.
func runBatch(ctx context.Context, session *remote.Session, timeout time.Duration) int {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		argv := strings.Fields(scanner.Text())
		if len(argv) == 0 {
			continue
		}
		if code := runOnce(ctx, session, argv, timeout); code != 0 {
			return code
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "tunnelctl: read stdin: %v\n", err)
		return 1
	}
	return 0
}
