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

package shorturl

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tomoncle/snipurl/errx"
	"github.com/tomoncle/snipurl/query"
	"github.com/tomoncle/snipurl/server"
	"github.com/tomoncle/snipurl/types"
)

// Handler exposes the short-url service over HTTP.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the short-url routes on the router.
func (h *Handler) Register(app fiber.Router) {
	app.Post("/shorten", h.create)
	app.Post("/shorten/bulk-upsert", h.bulkUpsert)
	app.Post("/shorten/bulk-delete", h.bulkDelete)
	app.Post("/shorten/bulk-update", h.bulkUpdate)
	app.Get("/shorten", h.list)
	app.Get("/shorten/:code/stats", h.stats)
	app.Get("/shorten/:code", h.resolve)
	app.Put("/shorten/:code", h.rename)
	app.Delete("/shorten/:code", h.remove)
}

func (h *Handler) create(c *fiber.Ctx) error {
	const op = "shorturl.handler.create"
	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.E(op, errx.Invalid, err)
	}

	resp, err := h.service.Create(c.UserContext(), req.URL)
	if err != nil {
		return err
	}
	return server.Respond(c, fiber.StatusCreated, "short url created", resp)
}

func (h *Handler) list(c *fiber.Ctx) error {
	const op = "shorturl.handler.list"
	sortBy := c.Query("sortBy")
	filterBy := c.Query("filterBy")

	// Reject bad expressions before any query work happens.
	if err := query.ValidateSort(sortBy, Fields); err != nil {
		return errx.E(op, errx.Invalid, err)
	}
	if err := query.ValidateFilter(filterBy, Fields); err != nil {
		return errx.E(op, errx.Invalid, err)
	}

	page := types.NewPageRequest(c.QueryInt("page", 1), c.QueryInt("size", 10), sortBy, filterBy)
	resp, err := h.service.List(c.UserContext(), page)
	if err != nil {
		return err
	}
	return server.Respond(c, fiber.StatusOK, "short urls listed", resp)
}

func (h *Handler) resolve(c *fiber.Ctx) error {
	resp, err := h.service.Resolve(c.UserContext(), c.Params("code"), true)
	if err != nil {
		return err
	}
	return server.Respond(c, fiber.StatusOK, "short url resolved", resp)
}

func (h *Handler) stats(c *fiber.Ctx) error {
	resp, err := h.service.Resolve(c.UserContext(), c.Params("code"), false)
	if err != nil {
		return err
	}
	return server.Respond(c, fiber.StatusOK, "short url stats", resp)
}

func (h *Handler) rename(c *fiber.Ctx) error {
	const op = "shorturl.handler.rename"
	var req UpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.E(op, errx.Invalid, err)
	}

	resp, err := h.service.Rename(c.UserContext(), c.Params("code"), req.URL)
	if err != nil {
		return err
	}
	return server.Respond(c, fiber.StatusOK, "short url updated", resp)
}

func (h *Handler) remove(c *fiber.Ctx) error {
	resp, err := h.service.Remove(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	return server.Respond(c, fiber.StatusOK, "short url deleted", resp)
}

func (h *Handler) bulkUpsert(c *fiber.Ctx) error {
	const op = "shorturl.handler.bulkUpsert"
	var req BulkUpsertRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.E(op, errx.Invalid, err)
	}

	resp, err := h.service.BulkUpsert(c.UserContext(), req.URLs)
	if err != nil {
		return err
	}
	return server.Respond(c, fiber.StatusOK, "short urls upserted", resp)
}

func (h *Handler) bulkDelete(c *fiber.Ctx) error {
	const op = "shorturl.handler.bulkDelete"
	var req BulkDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.E(op, errx.Invalid, err)
	}

	resp, err := h.service.BulkDelete(c.UserContext(), req.IDs)
	if err != nil {
		return err
	}
	return server.Respond(c, fiber.StatusOK, "short urls deleted", resp)
}

func (h *Handler) bulkUpdate(c *fiber.Ctx) error {
	const op = "shorturl.handler.bulkUpdate"
	var req BulkUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.E(op, errx.Invalid, err)
	}

	updated, err := h.service.BulkUpdate(c.UserContext(), req.Records)
	if err != nil {
		return err
	}
	resp := BulkUpdateResponse{UpdatedRecords: len(updated), Data: updated}
	return server.Respond(c, fiber.StatusOK, "short urls updated", resp)
}
