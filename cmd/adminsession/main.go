// Command adminsession manages the admin back-office session from a terminal.
//
// Usage:
//
//	adminsession [-config path.toml] [-v] <command> [flags]
//
// Commands:
//
//	status    restore the stored session and print it as JSON
//	login     log in with -email and -password and store the session
//	logout    clear the stored session
//	devtoken  mint an HS256 token for local development
//	serve     run a local proxy that authorizes /api requests with the session
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/honjaopseoye/adminsession"
	"github.com/honjaopseoye/adminsession/client"
	"github.com/honjaopseoye/adminsession/token"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	os.Exit(code)
}

// run executes the command in args and returns the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) (code int) {
	fs := flag.NewFlagSet("adminsession", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		confPath = fs.String("config", "", "path to a TOML config file")
		verbose  = fs.Bool("v", false, "enable debug logging")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: adminsession [-config path] [-v] status|login|logout|devtoken|serve [flags]")
		return 2
	}

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	if cmd == "devtoken" {
		return exitCode(stderr, devToken(cmdArgs, stdout, stderr))
	}

	conf, err := loadConfig(*confPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if *verbose {
		conf.Log.Verbose = true
	}

	a, err := newApp(ctx, conf, stdout)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer a.close()

	switch cmd {
	case "status":
		err = a.status()
	case "login":
		err = a.login(ctx, cmdArgs, stderr)
	case "logout":
		err = a.logout(ctx)
	case "serve":
		err = a.serve(ctx)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		return 2
	}

	return exitCode(stderr, err)
}

func exitCode(stderr io.Writer, err error) (code int) {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	default:
		fmt.Fprintln(stderr, err)
		return 1
	}
}

// app holds the wired components of one command run.
type app struct {
	conf     *fileConfig
	logger   *slog.Logger
	manager  *adminsession.Manager
	out      io.Writer
	closeFns []func() error
}

func newApp(ctx context.Context, conf *fileConfig, out io.Writer) (a *app, err error) {
	a = &app{
		conf:   conf,
		logger: conf.Log.newLogger(),
		out:    out,
	}

	if err = a.init(ctx); err != nil {
		a.close()

		return nil, err
	}

	return a, nil
}

// init opens storage and builds and bootstraps the manager.
func (a *app) init(ctx context.Context) (err error) {
	cfg, err := a.conf.managerConfig()
	if err != nil {
		return err
	}

	s, closeStorage, err := openStorage(ctx, &a.conf.Storage)
	if err != nil {
		return fmt.Errorf("opening %s storage: %w", a.conf.Storage.Backend, err)
	}
	a.closeFns = append(a.closeFns, closeStorage)

	b := adminsession.New().
		WithConfig(cfg).
		WithStorage(s).
		WithLogger(a.logger.With(slogutil.KeyPrefix, "session"))

	if a.conf.Audit.Enabled && a.conf.Audit.Path != "" {
		var f *os.File
		f, err = os.OpenFile(a.conf.Audit.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("opening audit log: %w", err)
		}
		a.closeFns = append(a.closeFns, f.Close)
		b = b.WithAuditSink(adminsession.NewJSONWriterSink(f))
	}

	a.manager, err = b.Build()
	if err != nil {
		return fmt.Errorf("building session manager: %w", err)
	}

	a.manager.Bootstrap(ctx)

	return nil
}

// close releases everything in reverse order of acquisition.  The manager is
// closed first so that pending audit events reach the file.
func (a *app) close() {
	if a.manager != nil {
		a.manager.Close()
	}

	for i := len(a.closeFns) - 1; i >= 0; i-- {
		if err := a.closeFns[i](); err != nil {
			a.logger.Warn("closing", slogutil.KeyError, err)
		}
	}
}

func (a *app) newClient() (c *client.Client, err error) {
	return client.New(
		a.conf.API.BaseURL,
		a.manager,
		client.WithLogger(a.logger.With(slogutil.KeyPrefix, "client")),
		client.WithHTTPClient(&http.Client{Timeout: a.conf.API.Timeout.Duration}),
	)
}

func (a *app) status() (err error) {
	return a.printJSON(a.manager.State())
}

func (a *app) login(ctx context.Context, args []string, stderr io.Writer) (err error) {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		email    = fs.String("email", "", "admin email")
		password = fs.String("password", "", "admin password, defaults to $"+envPassword)
	)
	if err = fs.Parse(args); err != nil {
		return err
	}

	pass := *password
	if pass == "" {
		pass = os.Getenv(envPassword)
	}

	c, err := a.newClient()
	if err != nil {
		return err
	}

	id, err := c.AdminLogin(ctx, *email, pass)
	if err != nil {
		return err
	}

	return a.printJSON(id)
}

func (a *app) logout(ctx context.Context) (err error) {
	c, err := a.newClient()
	if err != nil {
		return err
	}

	return c.AdminLogout(ctx)
}

func (a *app) printJSON(v any) (err error) {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// devToken mints a fixture token.  The manager never signs tokens; this exists
// for pointing the shell at a local fake backend.
func devToken(args []string, stdout, stderr io.Writer) (err error) {
	fs := flag.NewFlagSet("devtoken", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		sub    = fs.String("sub", "admin@localhost", "subject claim")
		userID = fs.Int64("user-id", 1, "userId claim")
		role   = fs.String("role", string(token.RoleAdmin), "role claim")
		ttl    = fs.Duration("ttl", time.Hour, "token lifetime")
		key    = fs.String("key", "", "HS256 secret, defaults to $"+envDevTokenKey)
	)
	if err = fs.Parse(args); err != nil {
		return err
	}

	secret := *key
	if secret == "" {
		secret = os.Getenv(envDevTokenKey)
	}
	if secret == "" {
		return errors.New("devtoken: -key or $" + envDevTokenKey + " is required")
	}

	tm, err := token.NewManager(token.Config{
		SigningMethod: token.MethodHS256,
		PrivateKey:    []byte(secret),
	})
	if err != nil {
		return fmt.Errorf("devtoken: %w", err)
	}

	now := time.Now()
	tok, err := tm.Sign(token.Claims{
		Subject:   *sub,
		UserID:    *userID,
		Role:      token.Role(*role),
		ExpiresAt: now.Add(*ttl).Unix(),
		IssuedAt:  now.Unix(),
	})
	if err != nil {
		return fmt.Errorf("devtoken: %w", err)
	}

	_, err = fmt.Fprintln(stdout, tok)

	return err
}
