package main

import (
	"database/sql"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luxfi/kms/internal/api"
	"github.com/luxfi/kms/internal/config"
	"github.com/luxfi/kms/internal/custody"
	"github.com/luxfi/kms/internal/secretstore"
	"github.com/luxfi/kms/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the custody HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	secrets, err := secretstore.New(cfg.VaultStorage, cfg.VaultToken)
	if err != nil {
		return err
	}

	svc := custody.New(store.New(db), secrets, logger)
	router := api.NewRouter(svc, logger, cfg.CORSOriginURL)

	addr := ":" + cfg.Port
	logger.Info("listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, router)
}
