package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/mmcdole/estate/internal/config"
	"github.com/mmcdole/estate/internal/crmapi"
	"github.com/mmcdole/estate/internal/domain"
	"github.com/mmcdole/estate/internal/listings"
	"github.com/mmcdole/estate/internal/log"
	"github.com/mmcdole/estate/internal/resource"
	"github.com/mmcdole/estate/internal/store"
)

// Version is set at build time via -ldflags
var Version = "dev"

const usage = `usage: estate [flags] <command> [args]

commands:
  login                              authenticate and save the token
  listings [filter flags]            list, filter, sort or search listings
  locations [prefix]                 suggest locations
  show <listing>...                  show listings with photos and notes
  edit <listing> <field> <value>     change one field of a listing
  photos <listing> <dir>             save the photos of a listing
  note add <listing> <text>          add a note
  note edit <listing> <note> <text>  change the text of a note
  note rm <listing> <note>           delete a note
  export <listing> <email>           email a listing

flags:
`

func main() {
	var showVersion bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("estate %s\n", Version)
		return
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, renderError(err))
		if errors.Is(err, domain.ErrAuthFailed) {
			fmt.Fprintln(os.Stderr, "Run `estate login` to refresh your token.")
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting estate", "version", Version, "command", args[0])

	if args[0] == "login" {
		return runLogin(ctx, cfg, logger)
	}
	if !cfg.IsConfigured() {
		return fmt.Errorf("not logged in: run `estate login` or set ESTATE_SERVER_TOKEN")
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.dispatch(ctx, args)
}

// app holds the session-scoped components shared by every command
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	client *crmapi.Client
	store  *store.SessionStore
	res    *resource.Materializer
	state  *listings.State
	userID int
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	client, err := crmapi.NewFromConfig(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create crm client: %w", err)
	}

	st, err := store.NewSessionStore(cfg.Cache.Dir)
	if err != nil {
		logger.Warn("session cache unavailable, using memory", "error", err, "dir", cfg.Cache.Dir)
		if st, err = store.NewSessionStore(""); err != nil {
			return nil, err
		}
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		client: client,
		store:  st,
		res:    resource.NewMaterializer(st, logger),
		state:  listings.NewState(client, st, logger),
		userID: resolveUserID(cfg, logger),
	}, nil
}

// resolveUserID reads the agent id from the token claims and falls back to
// server.user_id when the token does not carry one
func resolveUserID(cfg *config.Config, logger *slog.Logger) int {
	info, err := crmapi.ParseToken(cfg.Server.Token)
	if err != nil {
		logger.Warn("could not read token claims", "error", err)
		return cfg.Server.UserID
	}
	if info.Expired(time.Now()) {
		logger.Warn("token has expired", "subject", info.Subject, "expiresAt", info.ExpiresAt)
		fmt.Fprintln(os.Stderr, renderDim("Token expired, run `estate login` if requests fail."))
	}
	if info.UserID != 0 {
		return info.UserID
	}
	return cfg.Server.UserID
}

// Close releases every handle and removes the session cache
func (a *app) Close() {
	a.res.ReleaseAll()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close session store", "error", err)
	}
	a.logger.Info("shutting down")
}

func runLogin(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	username, password, err := crmapi.PromptCredentials()
	if err != nil {
		return err
	}

	stopSpinner := startSpinner("Authenticating...")
	token, err := crmapi.Login(ctx, cfg.Server.URL, username, password, logger)
	stopSpinner()
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	if err := config.SaveToken(cfg, token); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println(renderSuccess("✓ Logged in as " + username))
	if info, err := crmapi.ParseToken(token); err == nil && !info.ExpiresAt.IsZero() {
		fmt.Println(renderDim("Token expires " + info.ExpiresAt.Local().Format("2006-01-02 15:04")))
	}
	return nil
}
