/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tomoncle/snipurl/analytics"
	"github.com/tomoncle/snipurl/config"
	"github.com/tomoncle/snipurl/database"
	"github.com/tomoncle/snipurl/logger"
	"github.com/tomoncle/snipurl/server"
	"github.com/tomoncle/snipurl/shorturl"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("SNIPURL_CONFIG")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	manager := database.NewDatabaseManager(&cfg.Database)
	manager.SetLogger(database.NewSlogLogger(log))

	ctx := context.Background()
	if err := manager.Connect(ctx); err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = manager.Disconnect() }()

	if cfg.MigrateOnStartup {
		if err := manager.RunMigrations(ctx); err != nil {
			log.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	var publisher *analytics.Publisher
	if cfg.Analytics.AMQPURL != "" {
		publisher, err = analytics.NewPublisher(cfg.Analytics.AMQPURL, cfg.Analytics.Queue, log)
		if err != nil {
			log.Warn("Analytics publisher disabled", "error", err)
			publisher = nil
		} else {
			defer publisher.Close()
		}
	}

	service := shorturl.NewService(manager.GetDB(), cfg.Shortener, publisher, log)
	handler := shorturl.NewHandler(service)

	srv := server.New(cfg, manager, log)
	handler.Register(srv.App)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("Shutting down")
		if err := srv.Shutdown(); err != nil {
			log.Error("Shutdown failed", "error", err)
		}
	}()

	if err := srv.Listen(); err != nil {
		log.Error("HTTP server stopped", "error", err)
		os.Exit(1)
	}
}
