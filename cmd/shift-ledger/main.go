package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/shift-ledger/internal/archive"
	"github.com/zombor/shift-ledger/internal/backup"
	"github.com/zombor/shift-ledger/internal/catalog"
	"github.com/zombor/shift-ledger/internal/shift"
	"github.com/zombor/shift-ledger/internal/telegram"
	"github.com/zombor/shift-ledger/internal/web"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("shift-ledger")
	var (
		token       = fs.StringLong("telegram-token", "", "Telegram bot token")
		backupDir   = fs.StringLong("backup-dir", "/tmp/backups", "Directory of the crash-recovery snapshot")
		archiveDir  = fs.StringLong("archive-dir", "/tmp/closed_sessions", "Directory of closed shift reports")
		indexPath   = fs.StringLong("index-db", "", "Archive index database (default <archive-dir>/index.db)")
		venue       = fs.StringLong("venue", "Cosmos hall", "Venue name printed on archived reports")
		autosave    = fs.DurationLong("autosave", shift.DefaultAutosaveInterval, "Background snapshot interval")
		refunds     = fs.BoolDefault(0, "enable-refunds", true, "Show the refund menu")
		port        = fs.IntLong("http-port", 0, "HTTP server port (0 disables the HTTP API)")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		logLevel    = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		_           = fs.StringLong("config", "", "Config file (optional)")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("SHIFT_LEDGER"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithConfigAllowMissingFile(),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid log level %q\n", *logLevel)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *token == "" && *port == 0 {
		slog.Error("Nothing to run. Set --telegram-token and/or --http-port")
		os.Exit(1)
	}

	// Initialize storage
	slog.Info("Initializing storage...", "backups", *backupDir, "archives", *archiveDir)
	backups, err := backup.NewFileStore(*backupDir)
	if err != nil {
		slog.Error("Failed to initialize backup store", "error", err)
		os.Exit(1)
	}
	storage, err := archive.NewLocalStorage(*archiveDir)
	if err != nil {
		slog.Error("Failed to initialize archive storage", "error", err)
		os.Exit(1)
	}
	if *indexPath == "" {
		*indexPath = filepath.Join(*archiveDir, "index.db")
	}
	index, err := archive.NewBoltIndex(*indexPath)
	if err != nil {
		slog.Error("Failed to initialize archive index", "error", err)
		os.Exit(1)
	}
	defer index.Close()

	// Initialize service
	service := shift.NewService(catalog.Default(), backups, archive.NewStore(storage, index), shift.Options{
		Venue: *venue,
		Tags:  catalog.DefaultTags(),
	})
	if service.Restore() {
		slog.Info("Open shift restored")
	}
	service.StartAutosave(*autosave)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var server *web.Server
	if *port > 0 {
		server = web.NewServer(service, web.BasicAuth{
			Username: *authUser,
			Password: *authPass,
		})
		addr := fmt.Sprintf(":%d", *port)
		go func() {
			if err := server.Start(addr); err != nil {
				slog.Error("Server error", "error", err)
				stop()
			}
		}()
		if *authUser != "" || *authPass != "" {
			slog.Info("Basic auth enabled", "user", *authUser)
		}
	}

	var api *tgbotapi.BotAPI
	if *token != "" {
		api, err = tgbotapi.NewBotAPI(*token)
		if err != nil {
			slog.Error("Failed to connect to Telegram", "error", err)
			service.Shutdown()
			os.Exit(1)
		}
		slog.Info("Authorized on Telegram", "bot", api.Self.UserName)

		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		bot := telegram.New(api, service, *refunds)
		go bot.Run(ctx, api.GetUpdatesChan(u))
	}

	<-ctx.Done()
	slog.Info("Shutting down...")

	if api != nil {
		api.StopReceivingUpdates()
	}
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("HTTP shutdown failed", "error", err)
		}
		cancel()
	}
	service.Shutdown()
}
