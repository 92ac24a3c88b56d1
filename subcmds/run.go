// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bvk/salesd/cli"
	"github.com/bvk/salesd/config"
	"github.com/bvk/salesd/ctxutil"
	"github.com/bvk/salesd/daemonize"
	"github.com/bvk/salesd/envfile"
	"github.com/bvk/salesd/httputil"
	"github.com/bvk/salesd/mercadopago"
	"github.com/bvk/salesd/server"
	"github.com/bvk/salesd/subcmds/cmdutil"
	"github.com/bvk/salesd/telegram"
	"github.com/bvkgo/kv/kvhttp"
	"github.com/bvkgo/kvbadger"
	"github.com/dgraph-io/badger/v4"
	"github.com/nightlyone/lockfile"
)

type Run struct {
	cmdutil.ServerFlags

	background bool

	restart         bool
	shutdownTimeout time.Duration

	noPprof  bool
	noReaper bool

	envFile     string
	secretsPath string
	dataDir     string
}

func (c *Run) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("run", flag.ContinueOnError)
	c.ServerFlags.SetFlags(fset)
	fset.BoolVar(&c.background, "background", false, "runs the daemon in background")
	fset.BoolVar(&c.restart, "restart", false, "when true, kills any old instance")
	fset.DurationVar(&c.shutdownTimeout, "shutdown-timeout", 30*time.Second, "max timeout for shutdown when restarting")
	fset.BoolVar(&c.noPprof, "no-pprof", false, "when true net/http/pprof handler is not registered")
	fset.BoolVar(&c.noReaper, "no-reaper", false, "when true expired stock reservations aren't swept automatically")
	fset.StringVar(&c.envFile, "env-file", "salesd.env", "name of the env file with configuration variables")
	fset.StringVar(&c.secretsPath, "secrets-file", "", "path to credentials file")
	fset.StringVar(&c.dataDir, "data-dir", "", "path to the data directory")
	return fset, cli.CmdFunc(c.run)
}

func (c *Run) Synopsis() string {
	return "Runs salesd in foreground or background"
}

func (c *Run) CommandHelp() string {
	return `

Command "run" starts the salesd service. The service serves the storefront
and back office JSON APIs on the listen address and keeps its data in a
badger database under the data directory.

CONFIGURATION

Most configuration comes from environment variables (SALESD_JWT_SECRET,
SALESD_ACCESS_TOKEN_EXPIRE_MINUTES, MERCADOPAGO_ACCESS_TOKEN,
MERCADOPAGO_WEBHOOK_SECRET, etc.). Variables can also be placed in an env
file in the user's home directory, one NAME=VALUE per line, which is loaded
before the configuration is read.

Optional Telegram notification credentials are read from the secrets file
in the data directory; see the "setup telegram" command.

`
}

func (c *Run) run(ctx context.Context, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := envfile.UpdateEnv(c.envFile); err != nil {
		return fmt.Errorf("could not load env file %q: %w", c.envFile, err)
	}
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	if len(c.dataDir) == 0 {
		c.dataDir = filepath.Join(os.Getenv("HOME"), ".salesd")
	}
	if _, err := os.Stat(c.dataDir); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("could not stat data directory %q: %w", c.dataDir, err)
		}
		if err := os.MkdirAll(c.dataDir, 0700); err != nil {
			return fmt.Errorf("could not create data directory %q: %w", c.dataDir, err)
		}
	}
	dataDir, err := filepath.Abs(c.dataDir)
	if err != nil {
		return fmt.Errorf("could not determine data-dir %q absolute path: %w", c.dataDir, err)
	}

	if len(c.secretsPath) == 0 {
		c.secretsPath = filepath.Join(dataDir, "secrets.json")
	}
	secrets, err := SecretsFromFile(c.secretsPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		secrets = new(Secrets)
	}

	if ip := net.ParseIP(c.IP); ip == nil {
		return fmt.Errorf("invalid ip address")
	}
	if c.Port <= 0 {
		return fmt.Errorf("invalid port number")
	}
	addr := &net.TCPAddr{
		IP:   net.ParseIP(c.IP),
		Port: c.Port,
	}

	// Readiness probe for the background process initialization.
	check := func(ctx context.Context) error {
		client := http.Client{Timeout: time.Second}
		resp, err := client.Get(fmt.Sprintf("http://%s/pid", addr.String()))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("http status: %d", resp.StatusCode)
		}
		return nil
	}

	if c.background {
		if err := daemonize.Daemonize(ctx, check); err != nil {
			return err
		}
	}

	log.SetFlags(log.Flags() | log.Lmicroseconds)
	log.Printf("using data directory %s and secrets file %s", dataDir, c.secretsPath)

	lockPath := filepath.Join(dataDir, "salesd.lock")
	flock, err := lockfile.New(lockPath)
	if err != nil {
		return fmt.Errorf("could not create lock file %q: %w", lockPath, err)
	}
	if err := flock.TryLock(); err != nil {
		if !c.restart {
			return fmt.Errorf("could not get lock on file %q: %w", lockPath, err)
		}
		owner, err := flock.GetOwner()
		if err != nil {
			return fmt.Errorf("could not get current owner of the lock file: %w", err)
		}
		if err := owner.Signal(os.Interrupt); err == nil {
			log.Printf("waiting for the previous instance to shutdown")
			if err := ctxutil.RetryTimeout(ctx, time.Second, c.shutdownTimeout, flock.TryLock); err != nil {
				if err := owner.Signal(os.Kill); err != nil {
					return fmt.Errorf("could not kill current owner of the lock file: %w", err)
				}
				ctxutil.Sleep(ctx, time.Millisecond)
			}
		}
		if err := flock.TryLock(); err != nil {
			return fmt.Errorf("could not get lock on file %q after killing previous instance: %w", lockPath, err)
		}
	}
	defer flock.Unlock()

	// Start HTTP server.
	s, err := httputil.New(nil /* opts */)
	if err != nil {
		return err
	}
	defer s.Close()

	tcpServer, err := s.StartTCP(ctx, addr)
	if err != nil {
		return fmt.Errorf("could not start http server on %s: %w", addr, err)
	}
	defer s.Stop(tcpServer)

	if !c.noPprof {
		s.AddHandler("/debug/pprof/heap", pprof.Handler("heap"))
		s.AddHandler("/debug/pprof/goroutine", pprof.Handler("goroutine"))
		s.AddHandler("/debug/pprof/allocs", pprof.Handler("allocs"))
		s.AddHandler("/debug/pprof/block", pprof.Handler("block"))
		s.AddHandler("/debug/pprof/mutex", pprof.Handler("mutex"))
	}

	// Open the database.
	bopts := badger.DefaultOptions(dataDir)
	bdb, err := badger.Open(bopts)
	if err != nil {
		return fmt.Errorf("could not open the database: %w", err)
	}
	defer bdb.Close()
	db := kvbadger.New(bdb, isGoodKey)

	s.AddHandler("/db/", http.StripPrefix("/db", kvhttp.Handler(db)))

	provider, err := mercadopago.New(cfg.MercadoPagoAccessToken, &mercadopago.Options{
		HttpClientTimeout: cfg.MercadoPagoTimeout,
	})
	if err != nil {
		return err
	}

	var tc *telegram.Client
	if secrets.Telegram != nil {
		v, err := telegram.New(ctx, db, secrets.Telegram)
		if err != nil {
			return fmt.Errorf("could not create telegram client: %w", err)
		}
		defer v.Close()
		tc = v
	}

	// Start the sales service.
	sopts := &server.Options{
		NoReaper: c.noReaper,
	}
	sales, err := server.New(db, cfg, provider, tc, sopts)
	if err != nil {
		return err
	}
	defer sales.Close()

	salesAPIs := sales.HandlerMap()
	for k, v := range salesAPIs {
		s.AddHandler(k, v)
	}
	defer func() {
		for k := range salesAPIs {
			s.RemoveHandler(k)
		}
	}()

	if err := sales.Start(ctx); err != nil {
		return err
	}

	// Wait for the signals

	log.Printf("started salesd server at %s", addr)
	s.AddHandler("/pid", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, fmt.Sprintf("%d", os.Getpid()))
	}))

	<-ctx.Done()
	log.Printf("salesd server is shutting down")
	return nil
}

func isGoodKey(k string) bool {
	return path.IsAbs(k) && k == path.Clean(k)
}
