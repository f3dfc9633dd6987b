package main

import (
	"flag"
	"fmt"

	"github.com/sirupsen/logrus"

	"loja-backend/internal/config"
	"loja-backend/internal/env"
	"loja-backend/internal/infrastructure/docstore"
	"loja-backend/internal/infrastructure/whatsapp"
	"loja-backend/internal/server"
)

func main() {
	env.Load(".env", ".env.local")
	envDefaults := config.EnvDefaults()

	environment := flag.String("env", envDefaults.Env, "")
	port := flag.Int("port", envDefaults.Port, "")
	dsn := flag.String("postgres-dsn", envDefaults.PostgresDSN, "")
	jwtSecret := flag.String("jwt-secret", envDefaults.JWTSecret, "")
	adminEmail := flag.String("admin-email", envDefaults.AdminEmail, "")
	storePhone := flag.String("store-phone", envDefaults.StorePhone, "")
	logJSON := flag.Bool("log-json", envDefaults.LogJSON, "")

	flag.Parse()

	cfg := config.Config{
		Env:         *environment,
		Port:        *port,
		PostgresDSN: *dsn,
		JWTSecret:   *jwtSecret,
		AdminEmail:  *adminEmail,
		StorePhone:  *storePhone,
		LogJSON:     *logJSON,
	}

	log := logrus.New()
	if cfg.LogJSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	var store docstore.Store
	if cfg.PostgresDSN != "" {
		pg, err := docstore.NewPostgres(cfg.PostgresDSN)
		if err != nil {
			log.WithError(err).Fatal("open document store")
		}
		store = pg
	} else {
		log.Warn("no postgres DSN configured, using in-memory store")
		store = docstore.NewMemory()
	}

	srv := server.New(cfg, log, store, &whatsapp.Client{})
	addr := fmt.Sprintf(":%d", cfg.Port)
	log.WithFields(logrus.Fields{"env": cfg.Env, "addr": addr}).Info("listening")
	if err := srv.Router().Run(addr); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
