package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/licitaware/procura/internal/database"
	"github.com/licitaware/procura/internal/server"
	"github.com/licitaware/procura/pkg/geo"
	"github.com/licitaware/procura/pkg/logger"
	"github.com/licitaware/procura/pkg/match"
	"github.com/licitaware/procura/pkg/registry"
)

const serverVersion = "1.0.0"

func main() {
	var (
		configFile = flag.String("config", "", "Path to configuration file")
		host       = flag.String("host", "", "Server host (overrides config)")
		port       = flag.Int("port", 0, "Server port (overrides config)")
		dbHost     = flag.String("db-host", "", "Database host (overrides config)")
		dbPort     = flag.Int("db-port", 0, "Database port (overrides config)")
		dbPassword = flag.String("db-password", "", "Database password (overrides config)")
		logLevel   = flag.String("log-level", "", "Log level (overrides config)")
		version    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *version {
		fmt.Printf("procura server v%s\n", serverVersion)
		os.Exit(0)
	}

	appConfig, err := server.LoadAppConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Command line flags take highest priority
	if *host != "" {
		appConfig.Server.Host = *host
	}
	if *port != 0 {
		appConfig.Server.Port = *port
	}
	if *dbHost != "" {
		appConfig.Database.Host = *dbHost
	}
	if *dbPort != 0 {
		appConfig.Database.Port = *dbPort
	}
	if *dbPassword != "" {
		appConfig.Database.Password = *dbPassword
	}
	if *logLevel != "" {
		appConfig.Logging.Level = *logLevel
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:   logger.ParseLogLevel(appConfig.Logging.Level),
		Format:  logger.ParseLogFormat(appConfig.Logging.Format),
		Output:  os.Stdout,
		Service: "procura",
		Version: serverVersion,
	})
	logger.SetDefault(appLogger)

	appLogger.WithFields(map[string]interface{}{
		"host":     appConfig.Database.Host,
		"port":     appConfig.Database.Port,
		"database": appConfig.Database.Database,
	}).Info("Connecting to database")

	db, err := database.NewConnection(appConfig.Database)
	if err != nil {
		appLogger.Fatal("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Ping(ctx); err != nil {
		cancel()
		appLogger.Fatal("Database is unreachable: %v", err)
	}

	// Load the municipality coordinate cache before serving traffic.
	resolver := geo.NewResolver(database.NewMunicipalityStore(db))
	if err := resolver.Reload(ctx); err != nil {
		cancel()
		appLogger.Fatal("Failed to load municipality coordinates: %v", err)
	}
	cancel()
	appLogger.Info("Loaded %d municipality coordinates", resolver.Size())

	// Periodic cache refresh keeps newly ingested municipalities resolvable
	// without a restart.
	if schedule := appConfig.GeoReloadSchedule; schedule != "" {
		scheduler := cron.New()
		_, err := scheduler.AddFunc(schedule, func() {
			reloadCtx, reloadCancel := context.WithTimeout(context.Background(), time.Minute)
			defer reloadCancel()
			if err := resolver.Reload(reloadCtx); err != nil {
				appLogger.Error("Municipality cache refresh failed: %v", err)
				return
			}
			appLogger.Info("Municipality cache refreshed: %d entries", resolver.Size())
		})
		if err != nil {
			appLogger.Fatal("Invalid geo reload schedule %q: %v", schedule, err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	var supplierRegistry match.SupplierRegistry
	if appConfig.Registry != nil && appConfig.Registry.BaseURL != "" {
		client, err := registry.NewClient(appConfig.Registry)
		if err != nil {
			appLogger.Fatal("Failed to initialize registry client: %v", err)
		}
		supplierRegistry = client
		appLogger.Info("Company registry enabled at %s", appConfig.Registry.BaseURL)
	} else {
		appLogger.Warn("Company registry not configured; supplier metadata will be omitted")
	}

	searcher := database.NewOpportunitySearcher(db)
	retriever := match.NewTwoPhaseRetriever(searcher, appLogger)
	engine := match.NewEngine(
		database.NewContractStore(db),
		retriever,
		resolver,
		&match.EngineOptions{Registry: supplierRegistry, Logger: appLogger},
	)

	srv, err := server.New(appConfig.Server, db, resolver, &configuredEngine{engine: engine, defaults: appConfig.Search}, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize server: %v", err)
	}

	appLogger.WithFields(map[string]interface{}{
		"address":      appConfig.Server.GetAddress(),
		"api_prefix":   appConfig.Server.APIPrefix,
		"health_check": appConfig.Server.HealthCheckPath,
	}).Info("Starting procura server")

	if err := srv.Start(context.Background()); err != nil {
		appLogger.Fatal("Server failed: %v", err)
	}
}

// configuredEngine layers the deployment-level search defaults under each
// request's configuration.
type configuredEngine struct {
	engine   *match.Engine
	defaults match.Config
}

func (c *configuredEngine) Search(ctx context.Context, supplierID string, cfg match.Config) (*match.Outcome, error) {
	return c.engine.Search(ctx, supplierID, mergeConfig(c.defaults, cfg))
}

// mergeConfig fills unset request fields from the deployment defaults.
// Fields unset in both fall through to the built-in defaults.
func mergeConfig(base, req match.Config) match.Config {
	if req.ResultCount == 0 {
		req.ResultCount = base.ResultCount
	}
	if req.CandidatePoolSize == 0 {
		req.CandidatePoolSize = base.CandidatePoolSize
	}
	if req.TimeBudgetMS == 0 {
		req.TimeBudgetMS = base.TimeBudgetMS
	}
	if req.FallbackSamplePct == 0 {
		req.FallbackSamplePct = base.FallbackSamplePct
	}
	if req.ProfilingSampleSize == 0 {
		req.ProfilingSampleSize = base.ProfilingSampleSize
	}
	if req.GeoEnabled == nil {
		req.GeoEnabled = base.GeoEnabled
	}
	if req.GeoWeightBase == nil {
		req.GeoWeightBase = base.GeoWeightBase
	}
	if req.GeoTauKm == 0 {
		req.GeoTauKm = base.GeoTauKm
	}
	if req.AdaptiveEnabled == nil {
		req.AdaptiveEnabled = base.AdaptiveEnabled
	}
	if req.TauHQKm == 0 {
		req.TauHQKm = base.TauHQKm
	}
	if req.TauDispKm == 0 {
		req.TauDispKm = base.TauDispKm
	}
	if req.FilterExpired == nil {
		req.FilterExpired = base.FilterExpired
	}
	return req
}
