package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/clanstats/internal/bungie"
	"example.com/clanstats/internal/config"
	"example.com/clanstats/internal/events"
	"example.com/clanstats/internal/fetch"
	persistence "example.com/clanstats/internal/persistence/postgres"
	"example.com/clanstats/internal/pipeline"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.json", "path to the loader config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		log.Println("shutdown requested, cancelling run")
		cancel()
	}()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL())
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	if cfg.MetricsAddress != "" {
		metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler()}
		go func() {
			log.Printf("metrics listening on %s", cfg.MetricsAddress)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("metrics server error: %v", err)
			}
		}()
		defer metricsSrv.Close()
	}

	client := bungie.NewClient(cfg.API.URL, cfg.API.XAPIKey, cfg.RequestTimeout)
	fetcher := fetch.NewFetcher(client, cfg.FetchConcurrency)
	repo := persistence.NewRepository(pool, cfg.SQL)

	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.RunSummaryTopic)
	defer publisher.Close()

	run := pipeline.New(repo, fetcher, cfg.SQL, cfg.LoadChunkSize,
		pipeline.WithPublisher(publisher))

	summary, err := run.Run(ctx)
	if err != nil {
		log.Fatalf("run failed: %v", err)
	}
	log.Printf("inserts: %d", summary.Rows)
}
