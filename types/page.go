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

package types

const (
	defaultPage = 1
	defaultSize = 10
)

// PageRequest describes one page of a listing: page number, page size and
// the raw sort/filter expressions as received from the client, e.g.
// SortBy "-createdAt,shortCode" and FilterBy "accessCount>=5,shortCode=abc123".
// The expressions are parsed against the entity's field registry by the
// repository; PageRequest itself carries them opaquely.
type PageRequest struct {
	Page     int
	Size     int
	SortBy   string
	FilterBy string
}

// NewPageRequest constructs a PageRequest with sort and filter expressions.
func NewPageRequest(page, size int, sortBy, filterBy string) *PageRequest {
	return &PageRequest{Page: page, Size: size, SortBy: sortBy, FilterBy: filterBy}
}

// NewDefaultPageRequest constructs a PageRequest with no sorting or filtering.
func NewDefaultPageRequest(page, size int) *PageRequest {
	return NewPageRequest(page, size, "", "")
}

func (p *PageRequest) GetPage() int {
	if p.Page < 1 {
		p.Page = defaultPage
	}
	return p.Page
}

func (p *PageRequest) GetSize() int {
	if p.Size < 1 {
		p.Size = defaultSize
	}
	return p.Size
}

func (p *PageRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetSize()
}

// Pagination holds one page of projections along with the total number of
// rows matching the filter predicate, pagination excluded.
type Pagination[P any] struct {
	Page       int `json:"page"`
	Size       int `json:"size"`
	TotalCount int `json:"totalCount"`
	Data       []P `json:"data"`
}

// NewDefaultPagination constructs an empty pagination container.
func NewDefaultPagination[P any](page, size int) *Pagination[P] {
	return &Pagination[P]{Page: page, Size: size, TotalCount: 0, Data: make([]P, 0)}
}
