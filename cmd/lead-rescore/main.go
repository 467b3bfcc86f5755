package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"consultancy_backend/internal/adapters"
	appsrepo "consultancy_backend/internal/applications/repository"
	"consultancy_backend/internal/scoring/engine"
	scoringrepo "consultancy_backend/internal/scoring/repository"
	scoringservice "consultancy_backend/internal/scoring/service"
	studentsrepo "consultancy_backend/internal/students/repository"
	"consultancy_backend/platform/config"
	"consultancy_backend/platform/db"
	"consultancy_backend/platform/logger"

	"golang.org/x/time/rate"
)

func main() {
	perSecond := flag.Float64("rate", 5, "students rescored per second (0 = unpaced)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting lead rescore", "rate", *perSecond)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	signals := adapters.NewScoringSignalLoader(studentsrepo.New(pool), appsrepo.New(pool))
	svc := scoringservice.New(scoringrepo.New(pool), signals, engine.Options{CapTotal: cfg.GetScoringCapTotal()}, log)
	if *perSecond > 0 {
		svc.WithPacing(rate.NewLimiter(rate.Limit(*perSecond), 1))
	}

	result, err := svc.RecalculateAll(ctx)
	if err != nil {
		log.Error("lead rescore interrupted", "error", err, "scored", result.Scored, "failed", result.Failed)
		os.Exit(1)
	}

	for _, e := range result.Errors {
		log.Warn("student not rescored", "studentId", e.StudentID, "reason", e.Reason)
	}
	log.Info("lead rescore complete", "scored", result.Scored, "failed", result.Failed, "tiers", result.Tiers)
}
