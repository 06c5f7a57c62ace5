// Package app wires all components of the dodgeball server together and runs
// them.
package app

import (
	"context"
	"os"
	"time"

	"github.com/lefinal/dodgeball-server/errors"
	"github.com/lefinal/dodgeball-server/game"
	"github.com/lefinal/dodgeball-server/gateway"
	"github.com/lefinal/dodgeball-server/logging"
	"github.com/lefinal/dodgeball-server/portal"
	"github.com/lefinal/dodgeball-server/scheduling"
	"github.com/lefinal/dodgeball-server/scoreboard"
	"github.com/lefinal/dodgeball-server/setup"
	"github.com/lefinal/dodgeball-server/stores"
	"github.com/lefinal/dodgeball-server/web_server"
	"github.com/lefinal/dodgeball-server/worlds"
	"github.com/lefinal/dodgeball-server/ws"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"
)

// schedulerTick is the base tick of the scheduling.Manager. It bounds how
// precise runnable intervals and delayed calls fire.
const schedulerTick = 100 * time.Millisecond

// scoreboardRefreshInterval is how often scoreboards are pushed to
// participants.
const scoreboardRefreshInterval = 500 * time.Millisecond

// profileFlushInterval is how often pending profile stats are persisted.
const profileFlushInterval = 30 * time.Second

// flushTimeout bounds the final profile flush during shutdown.
const flushTimeout = 10 * time.Second

// App is a complete dodgeball server instance.
type App struct {
	// config is the main config used for the App.
	config Config
	// mall provides persistence.
	mall *stores.Mall
	// profiles caches player stats in front of the mall.
	profiles *stores.ProfileCache
	// registry holds all live sessions.
	registry *game.Registry
	// provisioner creates and destroys arena worlds.
	provisioner *worlds.DirProvisioner
	// gateway routes host messages to sessions and delivers notifications.
	gateway *gateway.Gateway
	// wsHub is the hub for websocket connections.
	wsHub *ws.Hub
	// webServer is used for http requests and websocket connections.
	webServer *web_server.WebServer
	// scheduler drives countdowns, scoreboards and delayed transitions.
	scheduler *scheduling.Manager
	// setupManager hands out session setup contexts.
	setupManager *setup.Manager
	// announcer publishes session lifecycle events and server errors via MQTT.
	// Nil when no MQTT address is configured.
	announcer *portal.SessionAnnouncer
}

func NewApp(config Config) *App {
	return &App{
		config: config,
	}
}

// SetupManager returns the setup manager for external command surfaces. Only
// valid while the App runs.
func (app *App) SetupManager() *setup.Manager {
	return app.setupManager
}

// Boot sets everything up based on the set config and runs until the given
// context is done.
func (app *App) Boot(ctx context.Context) error {
	// Validate config.
	err := ValidateConfig(app.config)
	if err != nil {
		return errors.Error{
			Code:    errors.ErrFatal,
			Err:     err,
			Message: "invalid config",
		}
	}
	// Setup logger.
	logger := setupLogging(app.config.Log)
	logging.ApplyToGlobalLoggers(logger)
	defer func() {
		_ = logger.Sync()
	}()
	// Boot.
	err = app.boot(ctx)
	if err != nil {
		err = errors.Wrap(err, "boot", nil)
		errors.Log(logging.AppLogger, err)
		return err
	}
	return nil
}

func (app *App) boot(ctx context.Context) error {
	appCtx, shutdown := context.WithCancel(ctx)
	defer shutdown()
	logging.AppLogger.Info("booting up")
	// Connect database.
	logging.AppLogger.Debug("connecting to database")
	db, err := connectDB(app.config.DBConn, defaultMaxDBConnections)
	if err != nil {
		return errors.Wrap(err, "connect database", nil)
	}
	app.mall = stores.NewMall(db)
	logging.AppLogger.Debug("database ready")
	// Create world provisioner.
	app.provisioner = worlds.NewDirProvisioner(app.config.WorldTemplateDir, app.config.WorldsDir)
	// Create session registry and profile cache.
	app.profiles = stores.NewProfileCache(app.mall)
	app.registry = game.NewRegistry(app.mall)
	// Create gateway and scheduler.
	app.gateway = gateway.NewGateway(app.registry, app.profiles)
	app.scheduler = scheduling.NewManager(schedulerTick)
	// Create MQTT portal if an address is provided.
	var portalBase portal.Base
	sessionDeps := game.Dependencies{
		Notifier: app.gateway,
		Profiles: app.profiles,
		Delayer:  app.scheduler,
	}
	if app.config.MQTTAddr.Valid {
		portalBase, err = portal.NewBase(logging.PortalLogger, portal.Config{MQTTAddr: app.config.MQTTAddr.String})
		if err != nil {
			return errors.Wrap(err, "create portal base", nil)
		}
		app.announcer = portal.NewSessionAnnouncer(portalBase.NewPortal("session-announcer"))
		sessionDeps.Listeners = append(sessionDeps.Listeners, app.announcer.Listener())
		sessionDeps.Observer = app.announcer
	}
	// Create setup manager.
	app.setupManager = setup.NewManager(app.registry, app.mall, app.provisioner,
		app.config.Game, sessionDeps)
	// Load persisted sessions.
	err = app.loadSessions(appCtx, sessionDeps)
	if err != nil {
		return errors.Wrap(err, "load sessions", nil)
	}
	// Register scheduler runnables.
	app.scheduler.Register(scheduling.NewCountdown(app.registry))
	app.scheduler.Register(scoreboard.NewRefresher(app.registry, app.gateway,
		scoreboard.DefaultRenderer(), app.gateway, scoreboardRefreshInterval))
	app.scheduler.Register(&profileFlusher{profiles: app.profiles})
	// Create websocket hub and web server.
	app.wsHub = ws.NewHub(app.gateway)
	app.webServer, err = web_server.NewWebServer(web_server.Config{
		ServeAddr:    app.config.ServeAddr,
		WriteTimeout: web_server.DefaultWriteTimeout,
		ReadTimeout:  web_server.DefaultReadTimeout,
	})
	if err != nil {
		return errors.Wrap(err, "create web server", nil)
	}
	app.webServer.PopulateRoutes(app.wsHub, appCtx, app.registry, app.mall, app.provisioner)
	logging.AppLogger.Debug("setup completed. booting...")
	// Boot everything.
	eg, egCtx := errgroup.WithContext(appCtx)
	go app.wsHub.Run(egCtx)
	eg.Go(func() error {
		return app.scheduler.Run(egCtx)
	})
	eg.Go(func() error {
		err := app.webServer.Run(egCtx)
		if err != nil {
			return errors.Wrap(err, "run web server", nil)
		}
		return nil
	})
	if portalBase != nil {
		eg.Go(func() error {
			err := portalBase.Open(egCtx)
			if err != nil {
				return errors.Wrap(err, "open portal base", nil)
			}
			return nil
		})
	}
	logging.AppLogger.Info("boot completed")
	// Wait for exit.
	err = eg.Wait()
	logging.AppLogger.Info("shutting down")
	// Persist what is still pending and wait for world removals.
	flushCtx, cancelFlush := context.WithTimeout(context.Background(), flushTimeout)
	defer cancelFlush()
	if flushErr := app.profiles.Flush(flushCtx); flushErr != nil {
		errors.Log(logging.AppLogger, errors.Wrap(flushErr, "final profile flush", nil))
	}
	app.provisioner.Wait()
	if err != nil {
		return errors.Wrap(err, "run components", nil)
	}
	return nil
}

// loadSessions rebuilds all persisted sessions. A session that fails to load
// is skipped so one bad record never takes down the others.
func (app *App) loadSessions(ctx context.Context, sessionDeps game.Dependencies) error {
	records, err := app.mall.SessionRecords(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieve session records", nil)
	}
	for _, record := range records {
		session, err := stores.SessionFromRecord(record, app.config.Game, sessionDeps)
		if err != nil {
			app.reportSessionLoadFailure(ctx, errors.Wrap(err, "rebuild session from record",
				errors.Details{"session_id": record.ID}))
			continue
		}
		err = session.CompleteSetup()
		if err != nil {
			app.reportSessionLoadFailure(ctx, errors.Wrap(err, "complete setup of loaded session",
				errors.Details{"session_id": record.ID}))
			continue
		}
		session.SetEnabled(record.Enabled)
		if !app.registry.Add(session) {
			logging.AppLogger.Warn("skipping duplicate persisted session",
				zap.String("session_id", record.ID))
			continue
		}
		logging.AppLogger.Info("session loaded",
			zap.String("session_id", record.ID),
			zap.Bool("enabled", record.Enabled))
	}
	return nil
}

func (app *App) reportSessionLoadFailure(ctx context.Context, err error) {
	errors.Log(logging.AppLogger, err)
	if app.announcer != nil {
		app.announcer.AnnounceError(ctx, err)
	}
}

// profileFlusher periodically persists pending profile stats.
type profileFlusher struct {
	profiles *stores.ProfileCache
}

func (f *profileFlusher) ID() string {
	return "profile-flush"
}

func (f *profileFlusher) Interval() time.Duration {
	return profileFlushInterval
}

func (f *profileFlusher) Run(ctx context.Context) {
	err := f.profiles.Flush(ctx)
	if err != nil {
		errors.Log(logging.AppLogger, errors.Wrap(err, "flush profiles", nil))
	}
}

func setupLogging(config LogConfig) *zap.Logger {
	encConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	cores := make([]zapcore.Core, 0)
	// Setup stdout logger with colorful level output.
	stdOutEncConfig := encConfig
	stdOutEncConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cores = append(cores, zapcore.NewCore(
		zapcore.NewConsoleEncoder(stdOutEncConfig),
		zapcore.Lock(os.Stdout),
		zap.LevelEnablerFunc(func(level zapcore.Level) bool {
			return level >= config.StdoutLogLevel
		})))
	// Setup error logger.
	cores = append(cores, zapcore.NewCore(
		zapcore.NewConsoleEncoder(encConfig),
		zapcore.Lock(os.Stderr),
		zap.LevelEnablerFunc(func(level zapcore.Level) bool {
			return level >= zap.ErrorLevel
		})))
	// Setup high priority logger.
	if config.HighPriorityOutput.Valid {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encConfig),
			zapcore.AddSync(&lumberjack.Logger{
				Filename: config.HighPriorityOutput.String,
				MaxSize:  config.MaxSize,
				MaxAge:   config.KeepDays,
			}),
			zap.LevelEnablerFunc(func(level zapcore.Level) bool {
				return level >= zap.WarnLevel
			})))
	}
	// Setup debug logger.
	if config.DebugOutput.Valid {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encConfig),
			zapcore.AddSync(&lumberjack.Logger{
				Filename: config.DebugOutput.String,
				MaxSize:  config.MaxSize,
				MaxAge:   config.KeepDays,
			}),
			zap.LevelEnablerFunc(func(level zapcore.Level) bool {
				return level >= zap.DebugLevel
			})))
	}
	return zap.New(zapcore.NewTee(cores...))
}
