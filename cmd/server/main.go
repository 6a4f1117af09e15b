package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/GooferByte/Backend_022Portfolio/internal/config"
	"github.com/GooferByte/Backend_022Portfolio/internal/http"
	"github.com/GooferByte/Backend_022Portfolio/internal/logger"
	"github.com/GooferByte/Backend_022Portfolio/internal/pricing"
	"github.com/GooferByte/Backend_022Portfolio/internal/repository"
	"github.com/GooferByte/Backend_022Portfolio/internal/repository/memory"
	"github.com/GooferByte/Backend_022Portfolio/internal/repository/postgres"
	"github.com/GooferByte/Backend_022Portfolio/internal/service"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Environment)
	priceSvc := pricing.NewAlphaVantageService(cfg.QuoteAPIKey, cfg.PriceTTL, cfg.PriceTimeout)

	var repoImpl repository.PortfolioRepository
	if cfg.UseInMemoryStore {
		log.Warn("DATABASE_URL not set, using in-memory store. Data will reset on restart.")
		repoImpl = memory.New()
	} else {
		db, err := sql.Open("postgres", cfg.DBURL)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to postgres")
		}
		if err := db.Ping(); err != nil {
			log.WithError(err).Fatal("postgres ping failed")
		}
		defer db.Close()

		pgRepo := postgres.New(db)
		if err := pgRepo.EnsureSchema(context.Background()); err != nil {
			log.WithError(err).Fatal("failed to ensure schema")
		}
		repoImpl = pgRepo
		log.Info("connected to postgres")
	}

	portfolioSvc := service.NewPortfolioService(repoImpl, priceSvc, log)
	router := http.Router(portfolioSvc, log)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Infof("portfolio service listening on %s", addr)
	if err := router.Run(addr); err != nil {
		log.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}
