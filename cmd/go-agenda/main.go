package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/tartampluch/go-agenda/internal/config"
	"github.com/tartampluch/go-agenda/internal/engine"
	"github.com/tartampluch/go-agenda/internal/locale"
	"github.com/tartampluch/go-agenda/internal/server"
)

// main is the application entry point.
// It delegates execution to runMain so that deferred calls (like closing the
// log file) run before the process terminates.
func main() {
	os.Exit(runMain())
}

// runMain manages the application lifecycle, argument parsing, and exit codes.
func runMain() int {
	// -------------------------------------------------------------------------
	// 1. CLI Argument Parsing
	// -------------------------------------------------------------------------
	showVersion := flag.Bool(config.FlagVersion, false, config.FlagDescVersion)
	debugMode := flag.Bool(config.FlagDebug, false, config.FlagDescDebug)
	settingsPath := flag.String(config.FlagConfig, "", config.FlagDescConfig)
	storePass := flag.Bool(config.FlagStorePass, false, config.FlagDescStore)
	flag.Parse()

	if *showVersion {
		printVersion()
		return config.ExitCodeSuccess
	}

	// -------------------------------------------------------------------------
	// 2. Logging Initialization
	// -------------------------------------------------------------------------
	logCloser := setupLogging(*debugMode)
	if logCloser != nil {
		defer func() {
			_ = logCloser.Close() // Best effort close
		}()
	}

	// -------------------------------------------------------------------------
	// 3. Context & Signal Handling
	// -------------------------------------------------------------------------
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logStartupInfo()

	// -------------------------------------------------------------------------
	// 4. Application Logic
	// -------------------------------------------------------------------------
	if *storePass {
		err := storeSeedPassword(*settingsPath, os.Stdin)
		if err != nil {
			slog.Error(config.ErrAppFailed,
				config.LogKeyComponent, config.CompMain,
				config.LogKeyError, err,
			)
			return config.ExitCodeError
		}
		slog.Info(config.MsgPasswordSaved, config.LogKeyComponent, config.CompMain)
		return config.ExitCodeSuccess
	}

	if err := run(ctx, *settingsPath); err != nil {
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		return config.ExitCodeError
	}

	slog.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
	return config.ExitCodeSuccess
}

// run loads settings, wires the engine to the HTTP host and serves until ctx
// is cancelled.
func run(ctx context.Context, settingsPath string) error {
	settings, err := loadSettings(settingsPath)
	if err != nil {
		return err
	}
	if err := config.ValidatePort(settings.Port); err != nil {
		return err
	}

	tr := locale.New(settings.Language)

	// Dependency Injection.
	srv := server.NewCalendarServer(settings.Port, nil, tr)
	eng := engine.New(engine.RealClock{},
		engine.WithWeekStart(tr.ResolveWeekStart(settings.WeekStart)),
		engine.WithDisplayCap(settings.DisplayCap),
		engine.WithPlaceholder(tr.PlaceholderTitle()),
		engine.WithStrictStatus(settings.StrictStatus),
		engine.WithViewMode(engine.ViewMode(settings.DefaultView)),
		engine.WithChangeListener(func() {
			if err := srv.Refresh(ctx); err != nil {
				slog.Error(config.ErrICalEncode,
					config.LogKeyComponent, config.CompMain,
					config.LogKeyError, err,
				)
			}
		}),
	)
	srv.Engine = eng

	if settings.SeedFile != "" {
		pass, err := config.SeedPassword(settings.SeedUser)
		if err != nil {
			return err
		}
		if _, err := engine.LoadSeed(ctx, eng.Events(), settings.SeedFile, settings.SeedUser, pass, engine.NewHTTPFetcher()); err != nil {
			return err
		}
	}

	if err := srv.Refresh(ctx); err != nil {
		return err
	}
	return srv.Start(ctx)
}

// loadSettings resolves the settings path and reads the file. Defaults that
// could not be persisted are still returned.
func loadSettings(settingsPath string) (*config.Settings, error) {
	if settingsPath == "" {
		p, err := defaultSettingsPath()
		if err != nil {
			return nil, err
		}
		settingsPath = p
	}

	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		if settings == nil {
			return nil, err
		}
		slog.Warn(config.ErrConfigWrite,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyPath, settingsPath,
			config.LogKeyError, err,
		)
	}
	return settings, nil
}

// storeSeedPassword reads one line from r and saves it in the OS keyring for
// the configured seed user.
func storeSeedPassword(settingsPath string, r io.Reader) error {
	settings, err := loadSettings(settingsPath)
	if err != nil {
		return err
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return config.StoreSeedPassword(settings.SeedUser, strings.TrimRight(line, "\r\n"))
}

// printVersion outputs the build information to stdout.
func printVersion() {
	fmt.Printf(config.MsgVersionOutput,
		config.AppName,
		config.Version,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo() {
	slog.Info(config.MsgAppStarting,
		config.LogKeyComponent, config.CompMain,
		slog.Group(config.LogKeyBuild,
			slog.String(config.LogKeyApp, config.AppName),
			slog.String(config.LogKeyVersion, config.Version),
			slog.String(config.LogKeyCommit, config.Commit),
			slog.String(config.LogKeyBuilt, config.Date),
			slog.String(config.LogKeyGoVer, runtime.Version()),
		),
		slog.Group(config.LogKeyEnv,
			slog.String(config.LogKeyOS, runtime.GOOS),
			slog.String(config.LogKeyArch, runtime.GOARCH),
			slog.Int(config.LogKeyPID, os.Getpid()),
		),
	)
}

// setupLogging configures the default slog logger.
func setupLogging(debugMode bool) io.Closer {
	var writers []io.Writer
	var logFile *os.File

	writers = append(writers, os.Stdout)

	if logPath, err := getLogFilePath(); err == nil {
		// O_TRUNC resets logs on restart to prevent indefinite growth.
		f, err := os.OpenFile(logPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, config.FilePermUserRW)
		if err == nil {
			writers = append(writers, f)
			logFile = f
		} else {
			fmt.Fprintf(os.Stderr, config.MsgLogWarning, config.ErrLogFile, logPath, err)
		}
	}

	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: debugMode,
	}

	logger := slog.New(slog.NewJSONHandler(io.MultiWriter(writers...), opts))
	slog.SetDefault(logger)

	if logFile == nil {
		return nil
	}
	return logFile
}

// getLogFilePath determines the platform-specific cache directory for logs.
func getLogFilePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCacheDir, err)
	}

	appDir := filepath.Join(cacheDir, config.AppID)
	if err := os.MkdirAll(appDir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}

	return filepath.Join(appDir, config.LogFileName), nil
}

// defaultSettingsPath returns <user config dir>/<app id>/settings.yaml.
func defaultSettingsPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrConfigDir, err)
	}
	return filepath.Join(configDir, config.AppID, config.SettingsFileName), nil
}
