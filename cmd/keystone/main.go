package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/keystonehq/keystone/internal/cli"
	"github.com/keystonehq/keystone/internal/constants"
	"github.com/keystonehq/keystone/internal/convo"
	apperrors "github.com/keystonehq/keystone/internal/errors"
	"github.com/keystonehq/keystone/internal/habit"
	"github.com/keystonehq/keystone/internal/keyring"
	"github.com/keystonehq/keystone/internal/logger"
	"github.com/keystonehq/keystone/internal/storage"
	"github.com/keystonehq/keystone/internal/sync"
	"github.com/keystonehq/keystone/internal/utils"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Local store path. A .db suffix selects the SQLite backend; anything else stores JSON slot files next to the path." type:"string" default:"~/.config/keystone/keystone.json"`
	Debug   bool   `help:"Verbose logging to stderr."`
	NoSync  bool   `help:"Skip remote sync for this run even if configured."`

	Init         cli.InitCmd         `cmd:"" help:"Initialize keystone storage."`
	Design       cli.DesignCmd       `cmd:"" help:"Design your habit system."`
	Tune         cli.TuneCmd         `cmd:"" help:"Adjust the designed system."`
	Activate     cli.ActivateCmd     `cmd:"" help:"Start daily tracking."`
	Checkin      cli.CheckinCmd      `cmd:"" help:"Record today's check-in."`
	SkipRecovery cli.SkipRecoveryCmd `cmd:"" name:"skip-recovery" help:"Decline a pending recovery offer."`
	Status       cli.StatusCmd       `cmd:"" help:"Show habit state and what to do next." default:"1"`
	Patterns     cli.PatternsCmd     `cmd:"" help:"Show check-in patterns."`
	Pause        cli.PauseCmd        `cmd:"" help:"Pause tracking without losing history."`
	Resume       cli.ResumeCmd       `cmd:"" help:"Resume a paused habit."`
	Graduate     cli.GraduateCmd     `cmd:"" help:"Mark the habit self-sustaining."`
	Export       cli.ExportCmd       `cmd:"" help:"Export habit data."`
	Import       cli.ImportCmd       `cmd:"" help:"Import previously exported habit data."`
	Reset        cli.ResetCmd        `cmd:"" help:"Delete all habit data, local and remote."`
	Restore      cli.RestoreCmd      `cmd:"" help:"Confirm or decline a backup restore offer."`
	Connect      cli.ConnectCmd      `cmd:"" help:"Manage the remote sync connection."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Tiny-habit companion: design one keystone habit, check in daily, recover from misses"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	configPath := expandHome(CLI.Config)
	if err := logger.Init(logger.Config{Debug: CLI.Debug, ConfigDir: filepath.Dir(configPath)}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	slots, err := storage.New(configPath)
	if err != nil {
		apperrors.Fatal(err)
	}
	defer slots.Close()

	habitStore := habit.NewStore(storage.NewPair(slots,
		constants.SlotHabitPrimary, constants.SlotHabitBackup, constants.SlotHabitBackupTime))
	convoStore := convo.NewStore(storage.NewPair(slots,
		constants.SlotConvoPrimary, constants.SlotConvoBackup, constants.SlotConvoBackupTime))

	appCtx := &cli.Context{
		Habit:  habitStore,
		Convo:  convoStore,
		UserID: cli.EnsureUserID(slots),
		Today:  utils.Today(),
	}

	if !CLI.NoSync {
		if engine, remote := startSync(appCtx); engine != nil {
			defer func() {
				engine.Flush()
				engine.Stop()
				remote.Close()
			}()
		}
	}

	if err := ctx.Run(appCtx); err != nil {
		fmt.Fprintln(os.Stderr, apperrors.Format(err))
		os.Exit(1)
	}
}

// startSync wires the debounced sync engine when a connection string is
// configured. Sync is strictly best-effort: any failure here degrades to
// local-only operation without touching the command's outcome.
func startSync(appCtx *cli.Context) (*sync.Engine, sync.RemoteStore) {
	connStr := resolveConnString()
	if connStr == "" {
		return nil, nil
	}
	if err := sync.ValidateConnString(connStr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintf(os.Stderr, "       Remove the password from the connection string and use ~/.pgpass or %s instead.\n", constants.EnvConnection)
		os.Exit(1)
	}

	remote, err := sync.OpenPostgres(context.Background(), connStr)
	if err != nil {
		logger.Warn("Remote unavailable, running local-only", "error", err)
		return nil, nil
	}

	engine := sync.New(appCtx.Habit, remote, appCtx.UserID,
		sync.WithConversationStore(appCtx.Convo))
	engine.Start(context.Background())
	return engine, remote
}

// resolveConnString checks the OS keyring first, then the environment
// (including a .env file in the working directory).
func resolveConnString() string {
	if connStr, err := keyring.GetConnectionString(); err == nil {
		return connStr
	} else if !errors.Is(err, keyring.ErrNotFound) {
		logger.Warn("Keyring lookup failed", "error", err)
	}

	_ = godotenv.Load()
	return os.Getenv(constants.EnvConnection)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/"))
}
