package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type AppProvider interface {
	Run() error
	Serve() func() error
	Stop(context.Context, context.Context) func() error
}

type App struct {
	logger         *zap.Logger
	config         *Config
	server         *http.Server
	cleanups       []func() error
	queueConsumers []func(context.Context) error
	warmups        []func(context.Context)
}

// NewApp provides an instance of App.
func NewApp() (AppProvider, error) {
	config, err := LoadAndInitConfigs(GitCommit, GitTag, BuildTime)
	if err != nil {
		return nil, fmt.Errorf("failed to setup app configuration: %s", err)
	}

	// ensure the logs folder exists and Setup the logging module.
	if err = os.MkdirAll(config.LogFolder, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create logging folder: %s", err)
	}
	clock := NewClock(config.IsProduction)
	logWriter := NewRSyncWriter(config, clock)
	logger, flusher := SetupLogging(config, logWriter, NewTickClock(clock))

	app := &App{
		logger:   logger,
		config:   config,
		cleanups: []func() error{flusher, logWriter.Close},
	}

	// Setup the relational catalog storage.
	db, err := GetSQLClient(config)
	if err != nil {
		app.Clean()
		return nil, fmt.Errorf("failed to connect to %s database: %s", config.Database.Driver, err)
	}
	storage := NewSQLCatalogStorage(logger, config.Database.Driver, db)
	app.cleanups = append([]func() error{storage.Close}, app.cleanups...)
	if config.Database.Migrate {
		mCtx, cancel := context.WithTimeout(context.Background(), config.Database.PingTimeout)
		err = storage.Migrate(mCtx)
		cancel()
		if err != nil {
			app.Clean()
			return nil, fmt.Errorf("failed to migrate database schema: %s", err)
		}
	}

	// Setup the catalog mirror: redis queue and boltDB snapshot.
	queue := NewNoopQueue()
	var mirror MirrorStorage
	if config.Mirror.Enabled {
		rCtx, cancel := context.WithTimeout(context.Background(), config.Database.PingTimeout)
		redisClient, rerr := GetRedisClient(rCtx, config)
		cancel()
		if rerr != nil {
			app.Clean()
			return nil, fmt.Errorf("failed to connect to redis server: %s", rerr)
		}
		app.cleanups = append([]func() error{redisClient.Close}, app.cleanups...)

		boltDBClient, berr := GetBoltDBClient(config)
		if berr != nil {
			app.Clean()
			return nil, fmt.Errorf("failed to connect to boltDB server: %s", berr)
		}
		mirror = NewBoltMirrorStorage(logger, &config.BoltDB, boltDBClient)
		app.cleanups = append([]func() error{mirror.Close}, app.cleanups...)

		queue = NewRedisQueue(redisClient)
		boltDBConsumer := NewBoltDBConsumer(logger, queue, storage, mirror)
		app.queueConsumers = append(app.queueConsumers, func(ctx context.Context) error {
			return boltDBConsumer.Consume(ctx, UpsertQueue, DeleteQueue)
		})
	}

	// Setup the ml components.
	recommender := NewRandomForest(logger, config.Recommender.Trees, config.Recommender.Seed)
	summarizer := NewHTTPSummarizer(logger, config.Summarizer, nil)
	if config.Summarizer.Warmup {
		app.warmups = append(app.warmups, summarizer.Warmup)
	}

	catalogService := NewCatalogService(logger, clock, storage, queue)
	apiService := NewAPIHandler(
		logger,
		config,
		&Statistics{
			version:   config.GitTag,
			container: IsAppRunningInDocker(),
			started:   clock.Now(),
			runtime:   runtime.Version(),
			platform:  runtime.GOOS + "/" + runtime.GOARCH,
		},
		clock,
		NewIDsHandler(),
		catalogService,
		recommender,
		summarizer,
		mirror,
	)

	// Use git commit in case the tag is not set.
	if config.GitTag == "" {
		apiService.stats.version = config.GitCommit
	}

	// Build the map of middlewares stacks.
	middlewaresPublic, middlewaresOps := apiService.MiddlewaresStacks()

	// Configure the endpoints with their handlers and middlewares.
	router := apiService.SetupRoutes(httprouter.New(),
		&MiddlewareMap{
			public: middlewaresPublic.Chain,
			ops:    middlewaresOps.Chain,
		},
	)
	// Wrap the router with the default http timeout handler.
	routerWithTimeout := http.TimeoutHandler(
		router,
		config.Server.RequestTimeout,
		"Timeout. Processing taking too long. Please reach out to support.")

	// Build the api server definition.
	app.server = &http.Server{
		Addr:           fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port),
		Handler:        routerWithTimeout,
		ReadTimeout:    config.Server.ReadTimeout,
		WriteTimeout:   config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // Max headers size : 1MB
		ConnContext:    SaveConnInContext,
	}

	return app, nil
}

// Run starts the api web server and a goroutine which is responsible to stop it.
func (app *App) Run() error {
	defer app.Clean()
	nCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(nCtx)

	g.Go(app.ConsumeQueues(gCtx, g))
	g.Go(app.Warmup(gCtx))
	g.Go(app.Serve())
	g.Go(app.Stop(nCtx, gCtx))

	err := g.Wait()
	app.logger.Info("api server stopped",
		zap.String("app.host", app.config.Server.Host),
		zap.String("app.port", app.config.Server.Port),
		zap.Error(err),
	)
	return err
}

// Clean calls all registered cleanups functions. The
// logger flusher and the log file closer run last.
func (app *App) Clean() {
	for _, f := range app.cleanups {
		if err := f(); err != nil {
			fmt.Fprintln(os.Stderr, "error during app cleanup: ", err)
		}
	}
}

// Serve starts the api web server. It returned error
// will be caught by the errorgroup.
func (app *App) Serve() func() error {
	return func() error {
		app.logger.Info("api server starting",
			zap.String("app.host", app.config.Server.Host),
			zap.String("app.port", app.config.Server.Port),
			zap.String("db.driver", app.config.Database.Driver),
			zap.Bool("mirror.enabled", app.config.Mirror.Enabled),
		)
		err := app.server.ListenAndServe()
		if err == http.ErrServerClosed {
			err = nil
		}
		return err
	}
}

// Stop listens for the group context and triggers the server graceful shutdown.
// It states the reason of its call. We proceed with a brutal shutdown if the
// the graceful did not complete successfully. We explicitly return `nil` to
// allow the errorgroup catches only the `Serve` method result.
func (app *App) Stop(nCtx, gCtx context.Context) func() error {
	return func() error {
		<-gCtx.Done()

		if nCtx.Err() != nil {
			app.logger.Info("api server stopping. reason: requested to stop")
		} else {
			app.logger.Info("api server stopping. reason: errored at running")
		}

		sCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()
		err := app.server.Shutdown(sCtx)
		switch err {
		case nil, http.ErrServerClosed:
			app.logger.Info("api server graceful shutdown succeeded")
		case context.DeadlineExceeded:
			app.logger.Info("api server graceful shutdown timed out")
		default:
			app.logger.Info("api server graceful shutdown failed", zap.Error(err))
		}

		if err != nil && err != http.ErrServerClosed {
			app.logger.Info("api server going to force shutdown", zap.Error(app.server.Close()))
		}
		return nil
	}
}

// ConsumeQueues runs all queue consumers into separate controlled goroutines.
func (app *App) ConsumeQueues(gCtx context.Context, g *errgroup.Group) func() error {
	return func() error {
		for _, consume := range app.queueConsumers {
			f := func() error {
				return consume(gCtx)
			}
			g.Go(f)
		}
		return nil
	}
}

// Warmup runs the registered warmup tasks one after the other
// while the server is already accepting requests.
func (app *App) Warmup(gCtx context.Context) func() error {
	return func() error {
		for _, warmup := range app.warmups {
			warmup(gCtx)
		}
		return nil
	}
}
