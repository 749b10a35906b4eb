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

import "time"

// CreateRequest is the body of POST /shorten.
type CreateRequest struct {
	URL string `json:"url"`
}

// UpdateRequest is the body of PUT /shorten/:code.
type UpdateRequest struct {
	URL string `json:"url"`
}

// BulkUpsertRequest is the body of POST /shorten/bulk-upsert.
type BulkUpsertRequest struct {
	URLs []string `json:"urls"`
}

// BulkDeleteRequest is the body of POST /shorten/bulk-delete.
type BulkDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

// BulkUpdateRecord is one record of a bulk update. Nil pointers mark fields
// the record does not touch; all records of a request must touch the same
// set of fields.
type BulkUpdateRecord struct {
	ID          int64   `json:"id"`
	URL         *string `json:"url"`
	ShortCode   *string `json:"shortCode"`
	AccessCount *int64  `json:"accessCount"`
}

// BulkUpdateRequest is the body of POST /shorten/bulk-update.
type BulkUpdateRequest struct {
	Records []BulkUpdateRecord `json:"records"`
}

// BulkUpdateResponse pairs the number of updated records with their stored shape.
type BulkUpdateResponse struct {
	UpdatedRecords int        `json:"updatedRecords"`
	Data           []Response `json:"data"`
}

// Response is the external camelCase projection of a ShortURL row.
type Response struct {
	ID          int64      `json:"id"`
	URL         string     `json:"url"`
	ShortCode   string     `json:"shortCode"`
	AccessCount int64      `json:"accessCount"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt"`
}

// NewResponse projects a stored row into its external representation.
func NewResponse(m *ShortURL) Response {
	return Response{
		ID:          m.ID,
		URL:         m.URL,
		ShortCode:   m.ShortCode,
		AccessCount: m.AccessCount,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
