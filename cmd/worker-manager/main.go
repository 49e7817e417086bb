// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"lending-workers/internal/api"
	"lending-workers/internal/common/aws"
	"lending-workers/internal/common/camunda"
	"lending-workers/internal/common/config"
	"lending-workers/internal/common/database"
	"lending-workers/internal/common/logger"
	"lending-workers/internal/common/observability"
	"lending-workers/internal/lending/audit"
	"lending-workers/internal/lending/inflight"
	"lending-workers/internal/lending/notify"
	"lending-workers/internal/lending/orchestrator"
	"lending-workers/internal/lending/registry"
	"lending-workers/internal/lending/simulator"
	"lending-workers/internal/lending/store"

	ala "lending-workers/internal/workers/lending/apply-lender-update"
	cla "lending-workers/internal/workers/lending/compute-lender-analytics"
	gas "lending-workers/internal/workers/lending/get-application-status"
	rls "lending-workers/internal/workers/lending/retry-lender-submission"
	son "lending-workers/internal/workers/lending/send-offer-notification"
	sla "lending-workers/internal/workers/lending/submit-lender-application"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zapLog := logger.New("info", "console")
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting lending worker manager...",
		zap.String("environment", cfg.App.Environment),
		zap.String("store", cfg.Lending.Store.Backend),
		zap.String("inflight", cfg.Lending.Inflight.Backend),
	)

	obs := observability.New(cfg.App.Name)
	ctx := context.Background()

	// --- Backends ---
	clients, err := database.Connect(ctx, cfg)
	if err != nil {
		zapLog.Fatal("backend connection failed", zap.Error(err))
	}
	defer clients.Close()

	lenders := registry.Default()
	if path := cfg.Lending.CataloguePath; path != "" {
		lenders, err = registry.LoadFile(path)
		if err != nil {
			zapLog.Fatal("lender catalogue load failed", zap.String("path", path), zap.Error(err))
		}
	}
	zapLog.Info("Lender catalogue loaded", zap.Int("lenders", lenders.Len()))

	st, err := newStore(ctx, cfg, clients)
	if err != nil {
		zapLog.Fatal("store init failed", zap.Error(err))
	}
	guard := newGuard(cfg, clients, log)

	// --- AWS ---
	var (
		sesClient notify.SESService
		snsClient notify.SNSService
	)
	notifications := cfg.Notifications
	if cfg.Lending.Events.Enabled || notifications.Email.Enabled || notifications.SMS.Enabled {
		awsCfg, err := aws.LoadConfig(ctx, notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("aws config load failed", zap.Error(err))
		}
		awsClients := aws.NewClients(awsCfg)
		sesClient, snsClient = awsClients.SES, awsClients.SNS
	}

	// --- Orchestrator ---
	deps := orchestrator.Deps{
		Lenders: lenders,
		Decider: simulator.New(&simulator.Config{
			LatencyUnit: config.GetDuration(cfg.Lending.LatencyUnit),
			FailureRate: cfg.Lending.FailureRate,
		}, lenders, nil, rand.New(rand.NewSource(time.Now().UnixNano())), log),
		Store:     st,
		Guard:     guard,
		Telemetry: obs,
	}

	var history api.History
	if cfg.Lending.Audit.Enabled {
		sink := audit.NewElasticsearchSink(clients.Elasticsearch, cfg.Lending.Audit.Index)
		if err := sink.EnsureIndex(ctx); err != nil {
			zapLog.Fatal("audit index init failed", zap.Error(err))
		}
		deps.Audit = sink
		history = sink
		zapLog.Info("Audit index ready", zap.String("index", sink.Index()))
	}
	if cfg.Lending.Events.Enabled {
		deps.Publisher = notify.NewSNSPublisher(snsClient, cfg.Lending.Events.TopicARN)
	}

	orch := orchestrator.New(orchestrator.Config{
		MaxSelectedLenders: cfg.Lending.MaxSelectedLenders,
		MaxParallel:        cfg.Lending.MaxParallel,
		LenderTimeout:      config.GetDuration(cfg.Lending.LenderTimeout),
		StrictTransitions:  cfg.Lending.StrictTransitions,
	}, deps, log)

	notifier := notify.NewOfferNotifier(notify.NotifierConfig{
		EmailEnabled: notifications.Email.Enabled,
		SMSEnabled:   notifications.SMS.Enabled,
		FromEmail:    notifications.Email.FromEmail,
	}, sesClient, snsClient, log)

	// --- Workers ---
	var zeebe *camunda.Client
	if cfg.Camunda.Enabled {
		zeebe, err = camunda.NewClient(ctx, camunda.ConfigFrom(cfg.Camunda), log)
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		zapLog.Info("Zeebe client connected successfully")
		started := registerWorkers(zeebe, cfg, orch, notifier, log, zapLog)
		zapLog.Info("Lending workers registered", zap.Int("started", started))
	}

	// --- HTTP API ---
	checks := map[string]api.Check{"backends": clients.Ping}
	if zeebe != nil {
		checks["zeebe"] = zeebe.HealthCheck
	}
	server, err := api.NewServer(api.Options{
		Service: orch,
		Lenders: lenders,
		History: history,
		Checks:  checks,
		Origins: cfg.HTTP.AllowedOrigins,
		AppName: cfg.App.Name,
		Version: cfg.App.Version,
		Logger:  log,
	})
	if err != nil {
		zapLog.Fatal("http api init failed", zap.Error(err))
	}

	var httpServer *http.Server
	if cfg.HTTP.Enabled {
		httpServer = &http.Server{
			Addr:         cfg.HTTP.Address,
			Handler:      server.Routes(),
			ReadTimeout:  config.GetDuration(cfg.HTTP.ReadTimeout),
			WriteTimeout: config.GetDuration(cfg.HTTP.WriteTimeout),
		}
		go func() {
			zapLog.Info("HTTP API listening", zap.String("address", cfg.HTTP.Address))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zapLog.Error("HTTP API failed", zap.Error(err))
			}
		}()
	}

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.HTTP.ShutdownTimeout))
	defer cancel()

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			zapLog.Error("Error stopping HTTP API", zap.Error(err))
		}
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping telemetry", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func newStore(ctx context.Context, cfg *config.Config, clients *database.Clients) (store.Store, error) {
	sc := cfg.Lending.Store
	switch sc.Backend {
	case config.BackendRedis:
		return store.NewRedisStore(clients.Redis, sc.KeyPrefix, time.Duration(sc.TTLHours)*time.Hour), nil
	case config.BackendPostgres:
		pg := store.NewPostgresStore(clients.Postgres)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return store.NewMemoryStore(), nil
	}
}

func newGuard(cfg *config.Config, clients *database.Clients, log logger.Logger) inflight.Guard {
	ic := cfg.Lending.Inflight
	if ic.Backend == config.BackendRedis {
		return inflight.NewRedisGuard(clients.Redis, ic.KeyPrefix, config.GetDuration(ic.LockTTL), log)
	}
	return inflight.NewMemoryGuard()
}

func registerWorkers(zeebe *camunda.Client, cfg *config.Config, orch *orchestrator.Orchestrator, notifier *notify.OfferNotifier, log logger.Logger, zapLog *zap.Logger) int {
	started := 0
	start := func(taskType string, handle func() (bool, error)) {
		ok, err := handle()
		if err != nil {
			zapLog.Fatal("failed to create handler", zap.String("taskType", taskType), zap.Error(err))
		}
		if ok {
			started++
		}
	}

	start(sla.TaskType, func() (bool, error) {
		wcfg := config.GetWorkerConfig(cfg, sla.TaskType)
		h, err := sla.NewHandler(sla.FromWorkerConfig(wcfg), orch, log)
		if err != nil {
			return false, err
		}
		return zeebe.StartWorker(sla.TaskType, wcfg, h.Handle), nil
	})

	start(rls.TaskType, func() (bool, error) {
		wcfg := config.GetWorkerConfig(cfg, rls.TaskType)
		h, err := rls.NewHandler(rls.FromWorkerConfig(wcfg), orch, log)
		if err != nil {
			return false, err
		}
		return zeebe.StartWorker(rls.TaskType, wcfg, h.Handle), nil
	})

	start(ala.TaskType, func() (bool, error) {
		wcfg := config.GetWorkerConfig(cfg, ala.TaskType)
		h, err := ala.NewHandler(ala.FromWorkerConfig(wcfg), orch, log)
		if err != nil {
			return false, err
		}
		return zeebe.StartWorker(ala.TaskType, wcfg, h.Handle), nil
	})

	start(gas.TaskType, func() (bool, error) {
		wcfg := config.GetWorkerConfig(cfg, gas.TaskType)
		h, err := gas.NewHandler(gas.FromWorkerConfig(wcfg), orch, log)
		if err != nil {
			return false, err
		}
		return zeebe.StartWorker(gas.TaskType, wcfg, h.Handle), nil
	})

	start(cla.TaskType, func() (bool, error) {
		wcfg := config.GetWorkerConfig(cfg, cla.TaskType)
		h, err := cla.NewHandler(cla.FromWorkerConfig(wcfg), orch, log)
		if err != nil {
			return false, err
		}
		return zeebe.StartWorker(cla.TaskType, wcfg, h.Handle), nil
	})

	start(son.TaskType, func() (bool, error) {
		wcfg := config.GetWorkerConfig(cfg, son.TaskType)
		h, err := son.NewHandler(son.FromWorkerConfig(wcfg), orch, notifier, log)
		if err != nil {
			return false, err
		}
		return zeebe.StartWorker(son.TaskType, wcfg, h.Handle), nil
	})

	return started
}
