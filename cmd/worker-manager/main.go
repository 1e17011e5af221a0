// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"travel-workers/internal/airports"
	awsclients "travel-workers/internal/common/aws"
	"travel-workers/internal/common/camunda"
	"travel-workers/internal/common/config"
	"travel-workers/internal/common/database"
	"travel-workers/internal/common/logger"
	"travel-workers/internal/common/observability"
	"travel-workers/internal/groupflow"
	"travel-workers/internal/needs"
	"travel-workers/internal/notify"
	"travel-workers/internal/planner"
	"travel-workers/internal/ranking"
	"travel-workers/internal/search"
	"travel-workers/internal/store"
	"travel-workers/pkg/registry"

	dg "travel-workers/internal/workers/travel/detect-groups"
	gfm "travel-workers/internal/workers/travel/group-flow-message"
	pgt "travel-workers/internal/workers/travel/plan-group-travel"
	rf "travel-workers/internal/workers/travel/rank-flights"
	sbc "travel-workers/internal/workers/travel/send-booking-confirmation"
)

type engine struct {
	ranker    *ranking.Ranker
	prefs     store.PreferenceStore
	directory store.Directory
	planner   *planner.Service
	flow      *groupflow.Machine
	notifier  notify.Notifier
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format).
		WithFields(map[string]interface{}{"service": cfg.App.Name, "version": cfg.App.Version})
	log.Info("starting worker manager", map[string]interface{}{"environment": cfg.App.Environment})

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		log.Warn("observability init failed, continuing without otel", map[string]interface{}{"error": err})
	}
	defer func() { _ = obs.Shutdown(context.Background()) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Zeebe ---
	zeebeClient, err := camunda.Connect(ctx, cfg.Camunda, camunda.DefaultRetryConfig, log)
	if err != nil {
		fatal(log, "zeebe client failed after retries", err)
	}
	log.Info("Zeebe client connected", map[string]interface{}{"broker": cfg.Camunda.BrokerAddress})

	// --- PostgreSQL ---
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		fatal(log, "postgres init failed", err)
	}
	defer pg.Close()
	if err := camunda.Retry(ctx, camunda.DefaultRetryConfig, "postgres ping", log, pg.Ping); err != nil {
		fatal(log, "postgres failed after retries", err)
	}
	if err := database.EnsureSchema(ctx, pg.DB); err != nil {
		fatal(log, "postgres schema failed", err)
	}
	log.Info("PostgreSQL connected", nil)

	// --- Redis ---
	rdb := database.NewRedis(cfg.Database.Redis)
	defer rdb.Close()
	if err := camunda.Retry(ctx, camunda.DefaultRetryConfig, "redis ping", log, rdb.Ping); err != nil {
		fatal(log, "redis failed after retries", err)
	}
	log.Info("Redis connected", nil)

	eng := buildEngine(ctx, cfg, pg, rdb, obs, log)

	// --- Workers ---
	checkRegistry(cfg, log)

	workers := camunda.NewWorkerSet(zeebeClient, log)
	topN := cfg.Engine.TopOffers

	workers.Open(rf.TaskType, config.GetWorkerConfig(cfg, rf.TaskType),
		rf.NewHandler(rf.LoadConfig(config.GetWorkerConfig(cfg, rf.TaskType), topN), eng.ranker, eng.prefs, obs, log))
	workers.Open(dg.TaskType, config.GetWorkerConfig(cfg, dg.TaskType),
		dg.NewHandler(dg.LoadConfig(config.GetWorkerConfig(cfg, dg.TaskType)), eng.planner, obs, log))
	workers.Open(pgt.TaskType, config.GetWorkerConfig(cfg, pgt.TaskType),
		pgt.NewHandler(pgt.LoadConfig(config.GetWorkerConfig(cfg, pgt.TaskType)), eng.planner, obs, log))
	workers.Open(gfm.TaskType, config.GetWorkerConfig(cfg, gfm.TaskType),
		gfm.NewHandler(gfm.LoadConfig(config.GetWorkerConfig(cfg, gfm.TaskType)), eng.flow, obs, log))
	workers.Open(sbc.TaskType, config.GetWorkerConfig(cfg, sbc.TaskType),
		sbc.NewHandler(sbc.LoadConfig(config.GetWorkerConfig(cfg, sbc.TaskType)), eng.notifier, eng.directory, obs, log))

	log.Info("workers registered", map[string]interface{}{"taskTypes": workers.TaskTypes()})

	// --- Health & Metrics Server ---
	server := newHealthServer(cfg.App.HealthPort, pg, rdb)
	go func() {
		log.Info("health/metrics server listening", map[string]interface{}{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("health/metrics server failed", map[string]interface{}{"error": err})
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	log.Info("shutdown signal received, stopping workers", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	workers.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("error stopping health server", map[string]interface{}{"error": err})
	}
	if err := zeebeClient.Close(); err != nil {
		log.Error("error closing Zeebe client", map[string]interface{}{"error": err})
	}
	log.Info("worker manager stopped", nil)
}

func buildEngine(ctx context.Context, cfg *config.Config, pg *database.PostgresClient, rdb *database.RedisClient, obs *observability.Observability, log logger.Logger) *engine {
	prefs := store.NewPostgresPreferenceStore(pg.DB, log)
	directory := store.NewPostgresDirectory(pg.DB, log)
	ranker := ranking.NewRanker(log)

	searcher := search.NewCachedSearcher(
		search.NewHTTPSearcher(cfg.APIs.FlightSearch, cfg.Engine.SearchRatePerSecond, log),
		rdb.Client, cfg.Engine.SearchCacheTTLDuration(), log,
	)
	aggregator := search.NewAggregator(searcher, search.AggregatorConfig{
		SearchTimeout: cfg.Engine.SearchTimeoutDuration(),
		MaxConcurrent: cfg.Engine.MaxConcurrentSearches,
	}, log, obs)

	svc := planner.NewService(planner.Deps{
		Directory:   directory,
		Preferences: prefs,
		Needs:       needs.NewHTTPSource(cfg.APIs.TravelNeeds, log),
		Calendar:    needs.NewHTTPCalendar(cfg.APIs.Calendar),
		Resolver:    airportResolver(ctx, cfg.Database.Elasticsearch, log),
		Aggregator:  aggregator,
		Builder:     planner.NewBuilder(ranker, prefs, log),
		Obs:         obs,
	}, log)

	notifier := confirmationNotifier(ctx, cfg.Integrations.AWS, log)

	flow := groupflow.NewMachine(groupflow.Deps{
		Store:     groupflow.NewRedisFlowStore(rdb.Client, cfg.Engine.FlowStateTTLDuration()),
		Planner:   svc,
		Directory: directory,
		Notifier:  notifier,
	}, groupflow.Config{ConferenceKeywords: cfg.Engine.ConferenceKeywords}, log)

	return &engine{
		ranker:    ranker,
		prefs:     prefs,
		directory: directory,
		planner:   svc,
		flow:      flow,
		notifier:  notifier,
	}
}

// airportResolver prefers the Elasticsearch airport index and falls back to
// the built-in table when no cluster is configured or reachable.
func airportResolver(ctx context.Context, cfg config.ElasticsearchConfig, log logger.Logger) airports.Resolver {
	if len(cfg.Addresses) == 0 {
		log.Info("no elasticsearch configured, using built-in airport table", nil)
		return airports.StaticResolver{}
	}
	es, err := database.NewElasticsearch(cfg)
	if err == nil {
		err = camunda.Retry(ctx, camunda.DefaultRetryConfig, "elasticsearch ping", log, es.Ping)
	}
	if err != nil {
		log.Warn("elasticsearch unavailable, using built-in airport table", map[string]interface{}{"error": err})
		return airports.StaticResolver{}
	}
	log.Info("Elasticsearch connected", map[string]interface{}{"index": cfg.AirportIndex})
	return airports.NewElasticsearchResolver(es.Client, cfg.AirportIndex, log)
}

func confirmationNotifier(ctx context.Context, cfg config.AWSConfig, log logger.Logger) notify.Notifier {
	if !cfg.SES.Enabled && !cfg.SNS.Enabled {
		return notify.NewLogNotifier(log)
	}
	awsCfg, err := awsclients.LoadConfig(ctx, cfg.Region)
	if err != nil {
		log.Warn("aws config failed, confirmations will only be logged", map[string]interface{}{"error": err})
		return notify.NewLogNotifier(log)
	}
	return notify.NewAWSNotifier(awsclients.NewSESClient(awsCfg), awsclients.NewSNSClient(awsCfg), notify.Config{
		EmailEnabled: cfg.SES.Enabled,
		FromEmail:    cfg.SES.FromEmail,
		SMSEnabled:   cfg.SNS.Enabled,
		SMSSenderID:  cfg.SNS.DefaultSMSSenderID,
	}, log)
}

// checkRegistry warns about enabled workers the activity registry does not describe.
func checkRegistry(cfg *config.Config, log logger.Logger) {
	reg, err := registry.LoadRegistry(cfg.Registry.Path)
	if err != nil {
		log.Warn("activity registry not readable, using embedded copy", map[string]interface{}{
			"path":  cfg.Registry.Path,
			"error": err,
		})
		if reg, err = registry.Default(); err != nil {
			fatal(log, "embedded activity registry is invalid", err)
		}
	}
	for _, taskType := range []string{rf.TaskType, dg.TaskType, pgt.TaskType, gfm.TaskType, sbc.TaskType} {
		if _, ok := reg.Find(taskType); !ok && config.IsWorkerEnabled(cfg, taskType) {
			log.Warn("worker missing from activity registry", map[string]interface{}{"taskType": taskType})
		}
	}
}

func newHealthServer(port int, pg *database.PostgresClient, rdb *database.RedisClient) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pg.Ping(ctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "postgres unavailable")
			return
		}
		if err := rdb.Ping(ctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "redis unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	mux.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func fatal(log logger.Logger, msg string, err error) {
	log.Error(msg, map[string]interface{}{"error": err})
	os.Exit(1)
}
