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

// Package server assembles the fiber application: middleware, the health
// endpoint, and the mapping of application errors onto the response envelope.
package server

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/tomoncle/snipurl/config"
	"github.com/tomoncle/snipurl/database"
	"github.com/tomoncle/snipurl/errx"
	"github.com/tomoncle/snipurl/types"
)

// Server owns the fiber application. Route groups register themselves on App.
type Server struct {
	App *fiber.App
	cfg *config.Config
	log *slog.Logger
}

// New builds the fiber app with panic recovery, request ids, optional request
// logging, and the health endpoint backed by the database manager.
func New(cfg *config.Config, db database.AbstractDatabaseManager, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}

	app := fiber.New(fiber.Config{
		AppName:      "snipurl",
		ErrorHandler: errorHandler(log),
	})

	app.Use(recover.New())
	app.Use(RequestID())
	if cfg.Server.LogRequests {
		app.Use(fiberlogger.New())
	}

	app.Get("/healthz", healthz(db))

	return &Server{App: app, cfg: cfg, log: log}
}

// Listen blocks serving HTTP on the configured address.
func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.log.Info("HTTP server listening", "addr", addr)
	return s.App.Listen(addr)
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown() error {
	return s.App.Shutdown()
}

// Respond writes a success envelope with the given status and payload.
func Respond[T any](c *fiber.Ctx, status int, message string, data T) error {
	return c.Status(status).JSON(types.NewAppResponse(status, message, data))
}

// errorHandler maps application errors onto envelope responses: NotFound 404,
// Invalid 400, Conflict 409, Unavailable 503, everything else 500. Server
// faults are logged and reported with method and path.
func errorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := statusOf(err)
		message := err.Error()
		if status >= fiber.StatusInternalServerError {
			log.Error("Request failed", "method", c.Method(), "path", c.Path(), "error", err)
			message = fmt.Sprintf("%s %s: %v", c.Method(), c.Path(), err)
		}
		return c.Status(status).JSON(types.NewAppResponse[any](status, message, nil))
	}
}

func statusOf(err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	switch errx.KindOf(err) {
	case errx.NotFound:
		return fiber.StatusNotFound
	case errx.Invalid:
		return fiber.StatusBadRequest
	case errx.Conflict:
		return fiber.StatusConflict
	case errx.Unavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func healthz(db database.AbstractDatabaseManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := db.HealthCheck(c.UserContext())
		code := fiber.StatusOK
		message := "database is healthy"
		if !status.Healthy {
			code = fiber.StatusServiceUnavailable
			message = "database is unhealthy"
		}
		return Respond(c, code, message, status)
	}
}
