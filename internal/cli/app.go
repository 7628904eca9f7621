package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tOgg1/streampanel/internal/config"
	"github.com/tOgg1/streampanel/internal/db"
	"github.com/tOgg1/streampanel/internal/logging"
	"github.com/tOgg1/streampanel/internal/models"
)

// app bundles what every subcommand needs: the effective config, the
// migrated database and a logger.
type app struct {
	cfg     *config.Config
	db      *db.DB
	logger  zerolog.Logger
	logFile *os.File
}

// loadConfig applies flag overrides on top of file and environment values.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	loader := config.NewLoader()
	if path, _ := cmd.Flags().GetString("config"); strings.TrimSpace(path) != "" {
		loader.SetConfigFile(path)
	}
	overrides := map[string]string{
		"user":      "panel.user",
		"log-level": "logging.level",
		"theme":     "tui.theme",
	}
	for flag, key := range overrides {
		if cmd.Flags().Lookup(flag) == nil || !cmd.Flags().Changed(flag) {
			continue
		}
		value, _ := cmd.Flags().GetString(flag)
		loader.Set(key, value)
	}
	return loader.Load()
}

// openApp loads config, initializes logging and opens the database. With
// logToFile set, logs go to the configured log file because the panel owns
// the terminal.
func openApp(cmd *cobra.Command, logToFile bool) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}
	var output io.Writer = cmd.ErrOrStderr()
	if logToFile {
		file, err := logging.OpenFile(cfg.LogPath())
		if err != nil {
			return nil, err
		}
		a.logFile = file
		output = file
	}
	logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       output,
		EnableCaller: cfg.Logging.EnableCaller,
	})
	a.logger = logging.Component("cli")
	cmd.SetContext(logging.WithContext(cmd.Context(), a.logger))

	database, err := db.Open(db.Config{
		Path:          cfg.DatabasePath(),
		BusyTimeoutMs: cfg.Database.BusyTimeoutMs,
		Logger:        &logging.Logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.db = database
	if applied, err := database.MigrateUp(cmd.Context()); err != nil {
		a.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	} else if applied > 0 {
		a.logger.Debug().Int("applied", applied).Str("path", database.Path()).Msg("database migrated")
	}
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

// currentUser resolves panel.user (a username or an email) to a roster entry.
func (a *app) currentUser(ctx context.Context) (*models.User, error) {
	name := strings.TrimSpace(a.cfg.Panel.User)
	if name == "" {
		return nil, fmt.Errorf("no user configured; pass --user or set %s", config.EnvVar("panel.user"))
	}
	users := db.NewUserRepository(a.db)
	user, err := users.GetByUsername(ctx, name)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, db.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	all, err := users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if found, ok := models.FindUserByEmail(all, name); ok {
		return &found, nil
	}
	return nil, fmt.Errorf("user '%s' not found (add it with 'streampanel users add')", name)
}
