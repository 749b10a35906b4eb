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

package repository

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"

	"github.com/tomoncle/snipurl/query"
	"github.com/tomoncle/snipurl/types"
)

// CrudRepository defines single-row operations for a generic entity type T,
// each returning the external projection P of the affected row.
type CrudRepository[T, P any] interface {
	// Create inserts the entity and returns the stored row. Duplicate-key
	// violations surface as errx.Conflict.
	Create(ctx context.Context, entity *T) (P, error)

	// Exists reports whether any row matches the predicates.
	Exists(ctx context.Context, preds ...query.Predicate) (bool, error)

	// GetOne fetches the first row matching the predicates; errx.NotFound
	// when there is none.
	GetOne(ctx context.Context, preds ...query.Predicate) (P, error)

	// UpdateOne applies the listed columns of patch (or its non-zero fields
	// when columns is nil) to the row matching the predicates. At least one
	// predicate is required. errx.NotFound when no row matches.
	UpdateOne(ctx context.Context, patch *T, columns []string, preds ...query.Predicate) (P, error)

	// DeleteOne removes the row matching the predicates and returns it;
	// errx.NotFound when there is none.
	DeleteOne(ctx context.Context, preds ...query.Predicate) (P, error)

	// IncrementOne atomically adds delta to a numeric column in place and
	// returns the post-increment row; errx.NotFound when no row matches.
	IncrementOne(ctx context.Context, column string, delta int64, preds ...query.Predicate) (P, error)
}

// BulkRepository defines multi-row operations. Each call is one logical store
// operation; multi-statement plans run inside a transaction.
type BulkRepository[T, P any] interface {
	// UpdateMany applies the listed columns of every record by its identity,
	// batched into a single statement when the dialect supports it. Records
	// with identities unknown to the store are silently skipped.
	UpdateMany(ctx context.Context, rows []*T, columns []string) ([]P, error)

	// UpsertMany inserts the rows, updating valueColumns minus
	// conflictColumns on a conflict. Every conflict column must appear in
	// valueColumns and at least one value column must remain outside the
	// conflict target.
	UpsertMany(ctx context.Context, rows []*T, conflictColumns, valueColumns []string) ([]P, error)

	// DeleteMany removes all rows matching the predicates and returns them.
	// At least one predicate is required; zero matches is a success.
	DeleteMany(ctx context.Context, preds ...query.Predicate) ([]P, error)
}

// PageQueryRepository defines paginated listing driven by raw sort/filter
// expressions carried in the PageRequest.
type PageQueryRepository[T, P any] interface {
	GetMany(ctx context.Context, page *types.PageRequest) (*types.Pagination[P], error)
}

// Repository combines single-row, bulk, and paginated operations over entity
// type T with projection P, and exposes Bun query builders for advanced use.
type Repository[T, P any] interface {
	CrudRepository[T, P]
	BulkRepository[T, P]
	PageQueryRepository[T, P]
	Dialect() schema.Dialect
	NewSelect() *bun.SelectQuery
	NewInsert() *bun.InsertQuery
	NewUpdate() *bun.UpdateQuery
	NewDelete() *bun.DeleteQuery
}
