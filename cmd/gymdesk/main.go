package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/google/uuid"

	"gymdesk/internal/adapters/api"
	"gymdesk/internal/adapters/email"
	"gymdesk/internal/adapters/storage"
	"gymdesk/internal/adapters/storage/kv"
	outboxStore "gymdesk/internal/adapters/storage/outbox"
	"gymdesk/internal/application/orchestrators"
	"gymdesk/internal/application/state"
	"gymdesk/internal/config"
	domainOutbox "gymdesk/internal/domain/outbox"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

var errNotLoggedIn = errors.New("not logged in, run gymdesk login")

// command runs one subcommand against the wired application.
type command struct {
	summary string
	public  bool // runs without a session
	run     func(ctx context.Context, d *desk, args []string) error
}

var commands = map[string]command{
	"login":     {summary: "sign in", public: true, run: runLogin},
	"logout":    {summary: "clear the local session", public: true, run: runLogout},
	"register":  {summary: "create an account and sign in", public: true, run: runRegister},
	"whoami":    {summary: "show the signed-in user", run: runWhoami},
	"members":   {summary: "list|add|edit|rm|export members", run: runMembers},
	"trainers":  {summary: "list|add|edit|rm|program trainers", run: runTrainers},
	"payments":  {summary: "list|add|status|rm payments", run: runPayments},
	"packages":  {summary: "list|add|edit|clone|status|rm packages", run: runPackages},
	"activity":  {summary: "list|restore|clear the activity feed", run: runActivity},
	"dashboard": {summary: "show gym totals", run: runDashboard},
	"refresh":   {summary: "reload members, trainers and payments from the server", run: runRefresh},
	"gym":       {summary: "show|edit the gym profile", run: runGym},
	"sync":      {summary: "push queued changes; pending|failed|retry|abandon", run: runSync},
	"version":   {summary: "print the version", public: true, run: runVersion},
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "gymdesk: %s\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(out)
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		usage(os.Stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(cfg.NewLogger())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := openDesk(ctx, cfg, out)
	if err != nil {
		return err
	}
	defer d.Close(context.WithoutCancel(ctx))

	if !cmd.public && !d.app.Session.IsAuthenticated() {
		return errNotLoggedIn
	}
	return cmd.run(ctx, d, args[1:])
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: gymdesk <command> [flags]")
	fmt.Fprintln(w)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-10s %s\n", name, commands[name].summary)
	}
}

// desk is the wired application handed to every command.
type desk struct {
	cfg       config.Config
	out       io.Writer
	app       *state.App
	client    *api.Client
	outbox    *outboxStore.SQLiteStore
	processor *orchestrators.SyncProcessor
	db        *sql.DB
	redis     *kv.RedisBackend
}

// openDesk builds the composition root: database, durable store, session,
// REST client, outbox and sync processor.
func openDesk(ctx context.Context, cfg config.Config, out io.Writer) (*desk, error) {
	dbPath := cfg.DBPath
	if cfg.Store == config.StoreMemory {
		dbPath = ":memory:"
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := storage.MigrateDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	timedDB := storage.NewTimedDB(db, cfg.SlowQuery)

	d := &desk{cfg: cfg, out: out, db: db}

	var backend kv.Backend
	switch cfg.Store {
	case config.StoreRedis:
		rb, err := kv.NewRedisBackend(ctx, kv.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			db.Close()
			return nil, err
		}
		d.redis = rb
		backend = rb
	case config.StoreMemory:
		backend = kv.NewMemoryBackend()
	default:
		backend = kv.NewSQLiteBackend(timedDB)
	}

	d.app = state.NewApp(kv.NewStore(backend), state.WithSessionOptions(
		state.WithOfflineLogin(cfg.OfflineLogin),
		state.WithExpiredHook(func() {
			fmt.Fprintln(os.Stderr, "gymdesk: session expired, run gymdesk login")
		}),
	))
	d.app.Load(ctx)

	d.client = api.New(cfg.APIURL, cfg.APITimeout,
		api.WithToken(d.app.Session.Token),
		api.WithUnauthorizedHook(d.app.Session.ForceLogout),
	)
	d.app.Session.SetClient(d.client)

	d.outbox = outboxStore.NewSQLiteStore(timedDB)

	var sender email.Sender = email.NewNoopSender()
	if cfg.ResendKey != "" {
		sender = email.NewResendSender(cfg.ResendKey, cfg.ResendFrom, cfg.ReplyTo)
	} else {
		slog.Debug("email_event", "event", "sender_noop", "hint", "set GYMDESK_RESEND_KEY for real delivery")
	}

	d.processor = orchestrators.NewSyncProcessor(d.outbox, map[string]orchestrators.ActionExecutor{
		domainOutbox.ActionTypeAPISync: &orchestrators.APISyncExecutor{
			Client:   d.client,
			Members:  d.app.Members,
			Trainers: d.app.Trainers,
			Payments: d.app.Payments,
			Outbox:   d.outbox,
		},
		domainOutbox.ActionTypePaymentReceipt: &orchestrators.ReceiptExecutor{Sender: sender},
	}, orchestrators.WithRetention(cfg.OutboxKeep))
	return d, nil
}

// Close flushes state and releases connections.
func (d *desk) Close(ctx context.Context) {
	d.app.Save(ctx)
	if d.redis != nil {
		d.redis.Close()
	}
	d.db.Close()
}

// flush pushes queued changes after a mutating command. Failures stay queued.
func (d *desk) flush(ctx context.Context) {
	if !d.app.Session.IsAuthenticated() {
		return
	}
	res, err := d.processor.ProcessPending(ctx)
	if err != nil {
		slog.Warn("sync_event", "event", "flush_failed", "error", err)
		return
	}
	if n := res.Retrying + res.Deferred; n > 0 {
		fmt.Fprintf(d.out, "(%d change(s) queued for sync)\n", n)
	}
	if res.Failed > 0 {
		fmt.Fprintf(d.out, "(%d change(s) failed to sync, see gymdesk sync failed)\n", res.Failed)
	}
}

func (d *desk) gymName(ctx context.Context) string {
	if info, ok := d.app.GymInfo(ctx); ok {
		return info.Name
	}
	return ""
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func runVersion(_ context.Context, d *desk, _ []string) error {
	fmt.Fprintf(d.out, "gymdesk %s (schema %d)\n", version, storage.LatestSchemaVersion())
	return nil
}
