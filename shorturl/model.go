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

// Package shorturl implements the URL-shortening domain: the ShortURL entity,
// its external representations, the service, and the HTTP handlers.
package shorturl

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/tomoncle/snipurl/database"
	"github.com/tomoncle/snipurl/query"
)

// ShortURL is a stored mapping from a short code to a target url.
type ShortURL struct {
	bun.BaseModel `bun:"table:short_urls,alias:su"`

	ID          int64      `bun:"id,pk,autoincrement"`
	URL         string     `bun:"url,notnull,unique"`
	ShortCode   string     `bun:"short_code,notnull,unique"`
	AccessCount int64      `bun:"access_count,notnull,default:0"`
	CreatedAt   time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   *time.Time `bun:"updated_at"`
}

// Fields is the sort/filter allow-list for short urls, keyed by the external
// camelCase field names clients use in sortBy/filterBy expressions.
var Fields = query.Schema{
	"id":          {Column: "id", Type: query.Int},
	"url":         {Column: "url", Type: query.Text},
	"shortCode":   {Column: "short_code", Type: query.Text},
	"accessCount": {Column: "access_count", Type: query.Int},
	"createdAt":   {Column: "created_at", Type: query.Time},
	"updatedAt":   {Column: "updated_at", Type: query.Time},
}

func init() {
	database.RegisterModel(database.NewModelAdapter((*ShortURL)(nil), 10))
}
