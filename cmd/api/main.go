package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fixedyet/fixedyet/internal/application"
	appanalysis "github.com/fixedyet/fixedyet/internal/application/analysis"
	appprogress "github.com/fixedyet/fixedyet/internal/application/progress"
	"github.com/fixedyet/fixedyet/internal/config"
	domain "github.com/fixedyet/fixedyet/internal/domain/analysis"
	domainprogress "github.com/fixedyet/fixedyet/internal/domain/progress"
	openaiclient "github.com/fixedyet/fixedyet/internal/infra/ai/openai"
	"github.com/fixedyet/fixedyet/internal/infra/cache"
	mysqlp "github.com/fixedyet/fixedyet/internal/infra/db/mysql"
	postgresp "github.com/fixedyet/fixedyet/internal/infra/db/postgres"
	githubclient "github.com/fixedyet/fixedyet/internal/infra/github"
	"github.com/fixedyet/fixedyet/internal/infra/httpserver"
	minioStore "github.com/fixedyet/fixedyet/internal/infra/storage"
	"github.com/fixedyet/fixedyet/internal/middleware"
)

// sweeper is implemented by both cache repositories.
type sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()

	// connect database and build the driver-specific repositories
	var (
		db           *sql.DB
		cacheStore   cache.Store
		cacheSweeper sweeper
		progressRepo domainprogress.Repository
		requestRepo  domain.RequestRepository
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		repo := postgresp.NewCacheRepository(db)
		cacheStore, cacheSweeper = repo, repo
		progressRepo = postgresp.NewProgressRepository(db)
		requestRepo = postgresp.NewRequestRepository(db)
	default:
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		repo := mysqlp.NewCacheRepository(db)
		cacheStore, cacheSweeper = repo, repo
		progressRepo = mysqlp.NewProgressRepository(db)
		requestRepo = mysqlp.NewRequestRepository(db)
	}
	defer db.Close()

	// cache service with per-namespace TTLs
	cacheSvc := cache.NewService(cacheStore, cache.TTLConfig{
		Tags:     time.Duration(cfg.Cache.TagsTTLMinutes) * time.Minute,
		Commits:  time.Duration(cfg.Cache.CommitsTTLMinutes) * time.Minute,
		PRs:      time.Duration(cfg.Cache.PRsTTLMinutes) * time.Minute,
		Analysis: time.Duration(cfg.Cache.AnalysisTTLMinutes) * time.Minute,
		Default:  time.Duration(cfg.Cache.AnalysisTTLMinutes) * time.Minute,
	})

	// init minio (optional)
	var artifacts domain.ArtifactStore
	if cfg.Minio.Endpoint != "" {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			log.Fatalf("minio init error: %v", err)
		}
		artifacts = store
	}

	// init service
	svc := &appanalysis.Service{
		Git:       githubclient.NewClient(cfg.GitHub.Token),
		AI:        openaiclient.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model),
		Cache:     cacheSvc,
		Requests:  requestRepo,
		Progress:  progressRepo,
		Artifacts: artifacts,
		Clock:     application.SystemClock{},
		SDKs:      domain.DefaultSDKRegistry(),
		Shards: appanalysis.ShardConfig{
			CommitBatchSize: cfg.Analysis.CommitShardSize,
			PRBatchSize:     cfg.Analysis.PRShardSize,
		},
		Weights: appanalysis.CombineConfig{CommitWeightPercent: cfg.Analysis.CommitWeight},
		Steps:   appprogress.DefaultSteps(),
	}

	limiter := middleware.NewLimiter(cfg.RateLimit.MaxRequests, cfg.RateWindow(), cfg.SweepInterval())
	defer limiter.Stop()

	// periodic cache sweep, lazy expiry covers the gaps
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepCache(sweepCtx, cacheSweeper, cfg.SweepInterval())

	checkers := map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	}
	handler := httpserver.NewRouter(svc, limiter, checkers)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute, // analyses block the response while they run
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func sweepCache(ctx context.Context, s sweeper, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				log.Printf("cache sweep error: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("cache sweep removed %d expired entries", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
