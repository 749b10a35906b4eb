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
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"slices"
	"strings"

	"github.com/uptrace/bun"

	"github.com/tomoncle/snipurl/analytics"
	"github.com/tomoncle/snipurl/config"
	"github.com/tomoncle/snipurl/errx"
	"github.com/tomoncle/snipurl/query"
	"github.com/tomoncle/snipurl/repository"
	"github.com/tomoncle/snipurl/types"
)

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Service implements the short-url use cases over the generic repository.
type Service struct {
	repo      repository.Repository[ShortURL, Response]
	publisher *analytics.Publisher
	cfg       config.ShortenerConfig
	log       *slog.Logger
}

// NewService wires the domain service. publisher may be nil to disable
// access-event publishing.
func NewService(db *bun.DB, cfg config.ShortenerConfig, publisher *analytics.Publisher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:      repository.NewRepository[ShortURL, Response](db, Fields, NewResponse),
		publisher: publisher,
		cfg:       cfg,
		log:       log,
	}
}

// GenerateUniqueCode samples random codes until one is free, bounded by the
// configured attempt cap. Uniqueness is ultimately enforced by the store's
// unique constraint; the check loop is collision avoidance, not a guarantee.
func (s *Service) GenerateUniqueCode(ctx context.Context) (string, error) {
	const op = "shorturl.GenerateUniqueCode"
	for attempt := 0; attempt < s.cfg.MaxCodeAttempts; attempt++ {
		code := randomCode(s.cfg.CodeLength)
		exists, err := s.repo.Exists(ctx, query.Eq("short_code", code))
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", errx.E(op, errx.Unavailable,
		fmt.Errorf("could not mint a unique code in %d attempts", s.cfg.MaxCodeAttempts))
}

// Create shortens a url. With dedupe enabled an existing mapping for the
// same url is returned as-is; otherwise a duplicate url is a conflict.
func (s *Service) Create(ctx context.Context, rawURL string) (Response, error) {
	const op = "shorturl.Create"
	var zero Response

	rawURL = strings.TrimSpace(rawURL)
	if err := validateURL(rawURL); err != nil {
		return zero, errx.E(op, errx.Invalid, err)
	}

	if s.cfg.DedupeExistingURL {
		existing, err := s.repo.GetOne(ctx, query.Eq("url", rawURL))
		if err == nil {
			return existing, nil
		}
		if errx.KindOf(err) != errx.NotFound {
			return zero, err
		}
	}

	code, err := s.GenerateUniqueCode(ctx)
	if err != nil {
		return zero, err
	}
	return s.repo.Create(ctx, &ShortURL{URL: rawURL, ShortCode: code})
}

// Resolve looks up a mapping by its code. With updateStats the access count
// is incremented atomically in place and an access event is published.
func (s *Service) Resolve(ctx context.Context, code string, updateStats bool) (Response, error) {
	if !updateStats {
		return s.repo.GetOne(ctx, query.Eq("short_code", code))
	}

	resp, err := s.repo.IncrementOne(ctx, "access_count", 1, query.Eq("short_code", code))
	if err != nil {
		return Response{}, err
	}
	s.publisher.Publish(ctx, code)
	return resp, nil
}

// Rename points an existing code at a new url.
func (s *Service) Rename(ctx context.Context, code, newURL string) (Response, error) {
	const op = "shorturl.Rename"
	var zero Response

	newURL = strings.TrimSpace(newURL)
	if err := validateURL(newURL); err != nil {
		return zero, errx.E(op, errx.Invalid, err)
	}
	return s.repo.UpdateOne(ctx, &ShortURL{URL: newURL}, []string{"url"},
		query.Eq("short_code", code))
}

// Remove deletes a mapping by its code and returns the deleted row.
func (s *Service) Remove(ctx context.Context, code string) (Response, error) {
	return s.repo.DeleteOne(ctx, query.Eq("short_code", code))
}

// List returns one page of mappings; SortBy/FilterBy are parsed against the
// entity's field registry.
func (s *Service) List(ctx context.Context, page *types.PageRequest) (*types.Pagination[Response], error) {
	return s.repo.GetMany(ctx, page)
}

// BulkUpsert shortens many urls in one operation keyed on the url: unknown
// urls get fresh codes, already-known urls are re-coded in place.
func (s *Service) BulkUpsert(ctx context.Context, urls []string) ([]Response, error) {
	const op = "shorturl.BulkUpsert"
	if len(urls) == 0 {
		return nil, errx.E(op, errx.Invalid, fmt.Errorf("urls are required"))
	}

	seen := make(map[string]struct{}, len(urls))
	rows := make([]*ShortURL, 0, len(urls))
	for _, raw := range urls {
		raw = strings.TrimSpace(raw)
		if err := validateURL(raw); err != nil {
			return nil, errx.E(op, errx.Invalid, err)
		}
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}

		code, err := s.GenerateUniqueCode(ctx)
		if err != nil {
			return nil, err
		}
		rows = append(rows, &ShortURL{URL: raw, ShortCode: code})
	}

	return s.repo.UpsertMany(ctx, rows, []string{"url"}, []string{"url", "short_code"})
}

// BulkDelete removes mappings by id and returns the deleted rows; unknown
// ids simply do not appear in the result.
func (s *Service) BulkDelete(ctx context.Context, ids []int64) ([]Response, error) {
	const op = "shorturl.BulkDelete"
	if len(ids) == 0 {
		return nil, errx.E(op, errx.Invalid, fmt.Errorf("ids are required"))
	}
	return s.repo.DeleteMany(ctx, query.In("id", ids))
}

// BulkUpdate applies many records by id. All records must provide the same
// set of fields so the update batches into one statement shape.
func (s *Service) BulkUpdate(ctx context.Context, records []BulkUpdateRecord) ([]Response, error) {
	const op = "shorturl.BulkUpdate"
	if len(records) == 0 {
		return nil, errx.E(op, errx.Invalid, fmt.Errorf("records are required"))
	}

	shape := recordColumns(records[0])
	if len(shape) == 0 {
		return nil, errx.E(op, errx.Invalid, fmt.Errorf("records carry no fields to update"))
	}

	rows := make([]*ShortURL, 0, len(records))
	for _, rec := range records {
		if rec.ID == 0 {
			return nil, errx.E(op, errx.Invalid, fmt.Errorf("every record must carry its id"))
		}
		if !slices.Equal(recordColumns(rec), shape) {
			return nil, errx.E(op, errx.Invalid,
				fmt.Errorf("all records must update the same fields, expected %v", shape))
		}

		row := &ShortURL{ID: rec.ID}
		if rec.URL != nil {
			if err := validateURL(strings.TrimSpace(*rec.URL)); err != nil {
				return nil, errx.E(op, errx.Invalid, err)
			}
			row.URL = strings.TrimSpace(*rec.URL)
		}
		if rec.ShortCode != nil {
			row.ShortCode = *rec.ShortCode
		}
		if rec.AccessCount != nil {
			row.AccessCount = *rec.AccessCount
		}
		rows = append(rows, row)
	}

	return s.repo.UpdateMany(ctx, rows, shape)
}

// recordColumns returns the storage columns a record provides, in a fixed
// order so shapes compare with slices.Equal.
func recordColumns(rec BulkUpdateRecord) []string {
	var cols []string
	if rec.URL != nil {
		cols = append(cols, "url")
	}
	if rec.ShortCode != nil {
		cols = append(cols, "short_code")
	}
	if rec.AccessCount != nil {
		cols = append(cols, "access_count")
	}
	return cols
}

func randomCode(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = codeCharset[rand.IntN(len(codeCharset))]
	}
	return string(b)
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}
