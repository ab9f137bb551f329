package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"cyclecoach/internal/advice"
	"cyclecoach/internal/bot"
	"cyclecoach/internal/envstruct"
	"cyclecoach/internal/errors"
	"cyclecoach/internal/flightrecorder"
	"cyclecoach/internal/logging"
	"cyclecoach/internal/plan"
	"cyclecoach/internal/planner"
	"cyclecoach/internal/progress"
	"cyclecoach/internal/report"
	"cyclecoach/internal/sheets"
	"cyclecoach/internal/sqlite"
)

type config struct {
	// TelegramToken authenticates the bot with the Telegram API.
	TelegramToken string `env:"CYCLECOACH_TELEGRAM_TOKEN"`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"CYCLECOACH_SQLITE_URL" envDefault:"./cyclecoach.sqlite3"`
	// PlanPath is the path to the workout plan YAML file.
	PlanPath string `env:"CYCLECOACH_PLAN_PATH" envDefault:"./plan.yaml"`
	// ReportDir is the directory HTML reports are written to.
	ReportDir string `env:"CYCLECOACH_REPORT_DIR" envDefault:"./reports"`
	// OpenAIAPIKey enables the AI advice command when set.
	OpenAIAPIKey string `env:"CYCLECOACH_OPENAI_API_KEY" envDefault:""`
	// SheetID enables the sheet import command when set.
	SheetID string `env:"CYCLECOACH_SHEET_ID" envDefault:""`
	// SheetGIDPlan is the gid of the exercise rows tab.
	SheetGIDPlan string `env:"CYCLECOACH_SHEET_GID_PLAN" envDefault:"0"`
	// SheetGIDMacros is the gid of the macro targets tab.
	SheetGIDMacros string `env:"CYCLECOACH_SHEET_GID_MACROS" envDefault:"1"`
	// SheetGIDCycle is the gid of the cycle order tab.
	SheetGIDCycle string `env:"CYCLECOACH_SHEET_GID_CYCLE" envDefault:"2"`
	// TracesDir enables runtime trace capture for slow updates when set.
	TracesDir string `env:"CYCLECOACH_TRACES_DIR" envDefault:""`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cancel context.CancelFunc
		err    error
	)

	ctx, cancel = signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	var cfg config
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to db")

	plans := plan.NewFileRepository(cfg.PlanPath)

	var adviceService *advice.Service
	if cfg.OpenAIAPIKey != "" {
		adviceService = advice.NewService(cfg.OpenAIAPIKey, logger)
	}

	var sheetService *sheets.Service
	if cfg.SheetID != "" {
		sheetService = sheets.NewService(sheets.Config{
			SheetID:   cfg.SheetID,
			GIDPlan:   cfg.SheetGIDPlan,
			GIDMacros: cfg.SheetGIDMacros,
			GIDCycle:  cfg.SheetGIDCycle,
		}, plans, logger)
	}

	var recorder *flightrecorder.Service
	if cfg.TracesDir != "" {
		if recorder, err = flightrecorder.New(flightrecorder.Config{
			Logger:          logger,
			TracesDirectory: cfg.TracesDir,
		}); err != nil {
			return errors.Wrap(err, "create flight recorder")
		}
		if err = recorder.Start(ctx); err != nil {
			return errors.Wrap(err, "start flight recorder")
		}
		defer recorder.Stop(ctx)
	}

	coachBot, err := bot.New(cfg.TelegramToken, db, bot.Options{
		Planner:  planner.NewService(db, plans, logger),
		Progress: progress.NewService(db, logger),
		Advice:   adviceService,
		Sheets:   sheetService,
		Reports:  report.NewService(cfg.ReportDir, logger),
		Recorder: recorder,
		Logger:   logger,
	})
	if err != nil {
		return errors.Wrap(err, "create bot")
	}

	if err = coachBot.Run(ctx); err != nil {
		return errors.Wrap(err, "run bot")
	}
	return nil
}

func main() {
	ctx := context.Background()
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
