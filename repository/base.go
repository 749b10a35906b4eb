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
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"

	"github.com/tomoncle/snipurl/database"
	"github.com/tomoncle/snipurl/errx"
	"github.com/tomoncle/snipurl/query"
	"github.com/tomoncle/snipurl/types"
)

const updatedAtColumn = "updated_at"

type baseRepositoryImpl[T, P any] struct {
	db      *bun.DB
	fields  query.Schema
	project func(*T) P
	table   *schema.Table
}

// NewRepository returns a generic repository backed by the provided Bun DB.
// fields is the entity's sort/filter allow-list and project renders the
// external representation of a stored row.
func NewRepository[T, P any](db *bun.DB, fields query.Schema, project func(*T) P) Repository[T, P] {
	var model T
	return &baseRepositoryImpl[T, P]{
		db:      db,
		fields:  fields,
		project: project,
		table:   db.Table(reflect.TypeOf(model)),
	}
}

func (r *baseRepositoryImpl[T, P]) Dialect() schema.Dialect { return r.db.Dialect() }

func (r *baseRepositoryImpl[T, P]) NewSelect() *bun.SelectQuery { return r.db.NewSelect() }

func (r *baseRepositoryImpl[T, P]) NewInsert() *bun.InsertQuery { return r.db.NewInsert() }

func (r *baseRepositoryImpl[T, P]) NewUpdate() *bun.UpdateQuery { return r.db.NewUpdate() }

func (r *baseRepositoryImpl[T, P]) NewDelete() *bun.DeleteQuery { return r.db.NewDelete() }

func (r *baseRepositoryImpl[T, P]) Create(ctx context.Context, entity *T) (P, error) {
	const op = "repository.Create"
	var zero P
	if entity == nil {
		return zero, invalid(op, "entity is required")
	}

	q := r.db.NewInsert().Model(entity)
	if r.db.HasFeature(feature.InsertReturning) || r.db.HasFeature(feature.Returning) {
		if _, err := q.Returning("*").Exec(ctx); err != nil {
			return zero, classify(op, err)
		}
		return r.project(entity), nil
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return zero, classify(op, err)
	}

	pk, err := r.pkField()
	if err != nil {
		return zero, errx.E(op, errx.Internal, err)
	}
	strct := reflect.ValueOf(entity).Elem()
	if fv := pk.Value(strct); fv.CanInt() && fv.Int() == 0 {
		if id, err := res.LastInsertId(); err == nil {
			fv.SetInt(id)
		}
	}

	var row T
	err = r.db.NewSelect().Model(&row).
		Where("? = ?", bun.Ident(pk.Name), pk.Value(strct).Interface()).
		Scan(ctx)
	if err != nil {
		return zero, classify(op, err)
	}
	*entity = row
	return r.project(entity), nil
}

func (r *baseRepositoryImpl[T, P]) Exists(ctx context.Context, preds ...query.Predicate) (bool, error) {
	const op = "repository.Exists"
	q := r.db.NewSelect().Model((*T)(nil))
	for _, p := range preds {
		q = q.Where(p.Expr(), p.Args()...)
	}
	ok, err := q.Exists(ctx)
	if err != nil {
		return false, classify(op, err)
	}
	return ok, nil
}

func (r *baseRepositoryImpl[T, P]) GetOne(ctx context.Context, preds ...query.Predicate) (P, error) {
	const op = "repository.GetOne"
	var zero P

	var row T
	q := r.db.NewSelect().Model(&row)
	for _, p := range preds {
		q = q.Where(p.Expr(), p.Args()...)
	}
	if err := q.Limit(1).Scan(ctx); err != nil {
		return zero, classify(op, err)
	}
	return r.project(&row), nil
}

func (r *baseRepositoryImpl[T, P]) GetMany(ctx context.Context, page *types.PageRequest) (*types.Pagination[P], error) {
	const op = "repository.GetMany"
	if page == nil {
		page = types.NewDefaultPageRequest(0, 0)
	}

	// Re-parse defensively: handlers validate eagerly, but the repository is
	// also callable directly.
	orders, err := query.ParseSort(page.SortBy, r.fields)
	if err != nil {
		return nil, errx.E(op, errx.Invalid, err)
	}
	preds, err := query.ParseFilter(page.FilterBy, r.fields)
	if err != nil {
		return nil, errx.E(op, errx.Invalid, err)
	}

	var rows []T
	q := r.db.NewSelect().Model(&rows)
	for _, p := range preds {
		q = q.Where(p.Expr(), p.Args()...)
	}

	pagination := types.NewDefaultPagination[P](page.GetPage(), page.GetSize())
	total, err := q.Count(ctx)
	if err != nil {
		return nil, classify(op, err)
	}
	pagination.TotalCount = total
	if total == 0 {
		return pagination, nil
	}

	for _, o := range orders {
		q = q.Order(o.Expr())
	}
	err = q.Offset(page.GetOffset()).Limit(page.GetSize()).Scan(ctx)
	if err != nil {
		return nil, classify(op, err)
	}
	pagination.Data = r.projectAll(rows)
	return pagination, nil
}

func (r *baseRepositoryImpl[T, P]) UpdateOne(ctx context.Context, patch *T, columns []string, preds ...query.Predicate) (P, error) {
	const op = "repository.UpdateOne"
	var zero P
	if patch == nil {
		return zero, invalid(op, "patch is required")
	}
	if len(preds) == 0 {
		return zero, invalid(op, "at least one predicate is required")
	}

	cols, err := r.resolveColumns(patch, columns)
	if err != nil {
		return zero, errx.E(op, errx.Invalid, err)
	}
	if r.touchUpdatedAt(patch, time.Now()) && !slices.Contains(cols, updatedAtColumn) {
		cols = append(cols, updatedAtColumn)
	}

	if r.db.HasFeature(feature.Returning) {
		q := r.db.NewUpdate().Model(patch).Column(cols...)
		for _, p := range preds {
			q = q.Where(p.Expr(), p.Args()...)
		}
		if _, err := q.Returning("*").Exec(ctx, patch); err != nil {
			return zero, classify(op, err)
		}
		return r.project(patch), nil
	}

	pk, err := r.pkField()
	if err != nil {
		return zero, errx.E(op, errx.Internal, err)
	}
	err = r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var current T
		sel := tx.NewSelect().Model(&current)
		for _, p := range preds {
			sel = sel.Where(p.Expr(), p.Args()...)
		}
		if err := sel.Limit(1).Scan(ctx); err != nil {
			return err
		}
		pkVal := pk.Value(reflect.ValueOf(&current).Elem()).Interface()

		upd := tx.NewUpdate().Model(patch).Column(cols...).
			Where("? = ?", bun.Ident(pk.Name), pkVal)
		if _, err := upd.Exec(ctx); err != nil {
			return err
		}

		var row T
		if err := tx.NewSelect().Model(&row).
			Where("? = ?", bun.Ident(pk.Name), pkVal).
			Scan(ctx); err != nil {
			return err
		}
		*patch = row
		return nil
	})
	if err != nil {
		return zero, classify(op, err)
	}
	return r.project(patch), nil
}

func (r *baseRepositoryImpl[T, P]) UpdateMany(ctx context.Context, rows []*T, columns []string) ([]P, error) {
	const op = "repository.UpdateMany"
	if len(rows) == 0 {
		return []P{}, nil
	}
	if len(columns) == 0 {
		return nil, invalid(op, "columns are required")
	}
	if err := r.checkColumns(columns); err != nil {
		return nil, errx.E(op, errx.Invalid, err)
	}

	pk, err := r.pkField()
	if err != nil {
		return nil, errx.E(op, errx.Internal, err)
	}

	now := time.Now()
	cols := slices.Clone(columns)
	touched := false
	ids := make([]any, 0, len(rows))
	for _, row := range rows {
		strct := reflect.ValueOf(row).Elem()
		if pk.HasZeroValue(strct) {
			return nil, invalid(op, "every record must carry its %s", pk.Name)
		}
		ids = append(ids, pk.Value(strct).Interface())
		if r.touchUpdatedAt(row, now) {
			touched = true
		}
	}
	if touched && !slices.Contains(cols, updatedAtColumn) {
		cols = append(cols, updatedAtColumn)
	}

	err = r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if r.db.HasFeature(feature.CTE) {
			_, err := tx.NewUpdate().Model(&rows).Column(cols...).Bulk().Exec(ctx)
			return err
		}
		for _, row := range rows {
			if _, err := tx.NewUpdate().Model(row).Column(cols...).WherePK().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, classify(op, err)
	}

	// Re-read the touched identities; ids unknown to the store drop out here.
	var stored []T
	err = r.db.NewSelect().Model(&stored).
		Where("? IN (?)", bun.Ident(pk.Name), bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, classify(op, err)
	}
	return r.projectInInputOrder(pk, ids, stored), nil
}

func (r *baseRepositoryImpl[T, P]) UpsertMany(ctx context.Context, rows []*T, conflictColumns, valueColumns []string) ([]P, error) {
	const op = "repository.UpsertMany"
	if len(rows) == 0 {
		return []P{}, nil
	}
	if len(conflictColumns) == 0 {
		return nil, invalid(op, "conflict columns are required")
	}
	if err := r.checkColumns(conflictColumns); err != nil {
		return nil, errx.E(op, errx.Invalid, err)
	}
	if err := r.checkColumns(valueColumns); err != nil {
		return nil, errx.E(op, errx.Invalid, err)
	}

	updateCols := make([]string, 0, len(valueColumns))
	for _, c := range conflictColumns {
		if !slices.Contains(valueColumns, c) {
			return nil, invalid(op, "conflict column %q must be listed in value columns", c)
		}
	}
	for _, c := range valueColumns {
		if !slices.Contains(conflictColumns, c) {
			updateCols = append(updateCols, c)
		}
	}
	if len(updateCols) == 0 {
		return nil, invalid(op, "no updatable columns outside the conflict target %v", conflictColumns)
	}

	now := time.Now()
	insertCols := slices.Clone(valueColumns)
	touched := false
	for _, row := range rows {
		if r.touchUpdatedAt(row, now) {
			touched = true
		}
	}
	if touched && !slices.Contains(insertCols, updatedAtColumn) {
		insertCols = append(insertCols, updatedAtColumn)
		updateCols = append(updateCols, updatedAtColumn)
	}

	switch {
	case r.db.HasFeature(feature.InsertOnConflict):
		sets := make([]string, len(updateCols))
		for i, c := range updateCols {
			sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", bun.Ident(c), bun.Ident(c))
		}
		q := r.db.NewInsert().Model(&rows).Column(insertCols...).
			On("CONFLICT (" + strings.Join(conflictColumns, ", ") + ") DO UPDATE").
			Set(strings.Join(sets, ", "))

		if r.db.HasFeature(feature.InsertReturning) || r.db.HasFeature(feature.Returning) {
			if _, err := q.Returning("*").Exec(ctx); err != nil {
				return nil, classifyUpsert(op, err, conflictColumns)
			}
			out := make([]P, len(rows))
			for i, row := range rows {
				out[i] = r.project(row)
			}
			return out, nil
		}
		if _, err := q.Exec(ctx); err != nil {
			return nil, classifyUpsert(op, err, conflictColumns)
		}

	case r.db.HasFeature(feature.InsertOnDuplicateKey):
		sets := make([]string, len(updateCols))
		for i, c := range updateCols {
			sets[i] = fmt.Sprintf("%s = VALUES(%s)", bun.Ident(c), bun.Ident(c))
		}
		q := r.db.NewInsert().Model(&rows).Column(insertCols...).
			On("DUPLICATE KEY UPDATE " + strings.Join(sets, ", "))
		if _, err := q.Exec(ctx); err != nil {
			return nil, classifyUpsert(op, err, conflictColumns)
		}

	default:
		err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			for _, row := range rows {
				if _, err := tx.NewInsert().Model(row).Column(insertCols...).Exec(ctx); err == nil {
					continue
				} else if !database.IsDuplicateKeyError(err) {
					return err
				}
				upd := tx.NewUpdate().Model(row).Column(updateCols...)
				for _, c := range conflictColumns {
					upd = upd.Where("? = ?", bun.Ident(c), r.columnValue(row, c))
				}
				if _, err := upd.Exec(ctx); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, classifyUpsert(op, err, conflictColumns)
		}
	}

	stored, err := r.selectByColumns(ctx, conflictColumns, rows)
	if err != nil {
		return nil, classify(op, err)
	}
	return stored, nil
}

func (r *baseRepositoryImpl[T, P]) DeleteOne(ctx context.Context, preds ...query.Predicate) (P, error) {
	const op = "repository.DeleteOne"
	var zero P
	if len(preds) == 0 {
		return zero, invalid(op, "at least one predicate is required")
	}

	var row T
	if r.db.HasFeature(feature.Returning) {
		q := r.db.NewDelete().Model((*T)(nil))
		for _, p := range preds {
			q = q.Where(p.Expr(), p.Args()...)
		}
		if _, err := q.Returning("*").Exec(ctx, &row); err != nil {
			return zero, classify(op, err)
		}
		return r.project(&row), nil
	}

	pk, err := r.pkField()
	if err != nil {
		return zero, errx.E(op, errx.Internal, err)
	}
	err = r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		sel := tx.NewSelect().Model(&row)
		for _, p := range preds {
			sel = sel.Where(p.Expr(), p.Args()...)
		}
		if err := sel.Limit(1).Scan(ctx); err != nil {
			return err
		}
		pkVal := pk.Value(reflect.ValueOf(&row).Elem()).Interface()
		_, err := tx.NewDelete().Model((*T)(nil)).
			Where("? = ?", bun.Ident(pk.Name), pkVal).
			Exec(ctx)
		return err
	})
	if err != nil {
		return zero, classify(op, err)
	}
	return r.project(&row), nil
}

func (r *baseRepositoryImpl[T, P]) DeleteMany(ctx context.Context, preds ...query.Predicate) ([]P, error) {
	const op = "repository.DeleteMany"
	if len(preds) == 0 {
		return nil, invalid(op, "at least one predicate is required")
	}

	var rows []T
	if r.db.HasFeature(feature.Returning) {
		q := r.db.NewDelete().Model((*T)(nil))
		for _, p := range preds {
			q = q.Where(p.Expr(), p.Args()...)
		}
		if _, err := q.Returning("*").Exec(ctx, &rows); err != nil {
			return nil, classify(op, err)
		}
		return r.projectAll(rows), nil
	}

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		sel := tx.NewSelect().Model(&rows)
		for _, p := range preds {
			sel = sel.Where(p.Expr(), p.Args()...)
		}
		if err := sel.Scan(ctx); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		del := tx.NewDelete().Model((*T)(nil))
		for _, p := range preds {
			del = del.Where(p.Expr(), p.Args()...)
		}
		_, err := del.Exec(ctx)
		return err
	})
	if err != nil {
		return nil, classify(op, err)
	}
	return r.projectAll(rows), nil
}

func (r *baseRepositoryImpl[T, P]) IncrementOne(ctx context.Context, column string, delta int64, preds ...query.Predicate) (P, error) {
	const op = "repository.IncrementOne"
	var zero P
	if _, ok := r.table.FieldMap[column]; !ok {
		return zero, invalid(op, "unknown column %q", column)
	}
	if len(preds) == 0 {
		return zero, invalid(op, "at least one predicate is required")
	}

	var row T
	if r.db.HasFeature(feature.Returning) {
		q := r.db.NewUpdate().Model(&row).
			Set("? = ? + ?", bun.Ident(column), bun.Ident(column), delta)
		for _, p := range preds {
			q = q.Where(p.Expr(), p.Args()...)
		}
		if _, err := q.Returning("*").Exec(ctx, &row); err != nil {
			return zero, classify(op, err)
		}
		return r.project(&row), nil
	}

	pk, err := r.pkField()
	if err != nil {
		return zero, errx.E(op, errx.Internal, err)
	}
	err = r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var current T
		sel := tx.NewSelect().Model(&current)
		for _, p := range preds {
			sel = sel.Where(p.Expr(), p.Args()...)
		}
		if err := sel.Limit(1).Scan(ctx); err != nil {
			return err
		}
		pkVal := pk.Value(reflect.ValueOf(&current).Elem()).Interface()

		upd := tx.NewUpdate().Model((*T)(nil)).
			Set("? = ? + ?", bun.Ident(column), bun.Ident(column), delta).
			Where("? = ?", bun.Ident(pk.Name), pkVal)
		if _, err := upd.Exec(ctx); err != nil {
			return err
		}

		return tx.NewSelect().Model(&row).
			Where("? = ?", bun.Ident(pk.Name), pkVal).
			Scan(ctx)
	})
	if err != nil {
		return zero, classify(op, err)
	}
	return r.project(&row), nil
}

func (r *baseRepositoryImpl[T, P]) projectAll(rows []T) []P {
	out := make([]P, len(rows))
	for i := range rows {
		out[i] = r.project(&rows[i])
	}
	return out
}

// projectInInputOrder renders stored rows in the order their identities were
// given, dropping identities the store did not return.
func (r *baseRepositoryImpl[T, P]) projectInInputOrder(pk *schema.Field, ids []any, stored []T) []P {
	byID := make(map[string]*T, len(stored))
	for i := range stored {
		key := fmt.Sprint(pk.Value(reflect.ValueOf(&stored[i]).Elem()).Interface())
		byID[key] = &stored[i]
	}
	out := make([]P, 0, len(ids))
	for _, id := range ids {
		if row, ok := byID[fmt.Sprint(id)]; ok {
			out = append(out, r.project(row))
		}
	}
	return out
}

// selectByColumns re-reads the stored shape of upserted rows by their
// conflict-target values, preserving input order.
func (r *baseRepositoryImpl[T, P]) selectByColumns(ctx context.Context, cols []string, rows []*T) ([]P, error) {
	if len(cols) == 1 {
		col := cols[0]
		vals := make([]any, len(rows))
		for i, row := range rows {
			vals[i] = r.columnValue(row, col)
		}
		var stored []T
		err := r.db.NewSelect().Model(&stored).
			Where("? IN (?)", bun.Ident(col), bun.In(vals)).
			Scan(ctx)
		if err != nil {
			return nil, err
		}
		byVal := make(map[string]*T, len(stored))
		for i := range stored {
			key := fmt.Sprint(r.columnValue(&stored[i], col))
			byVal[key] = &stored[i]
		}
		out := make([]P, 0, len(rows))
		for _, v := range vals {
			if row, ok := byVal[fmt.Sprint(v)]; ok {
				out = append(out, r.project(row))
			}
		}
		return out, nil
	}

	out := make([]P, 0, len(rows))
	for _, row := range rows {
		var stored T
		q := r.db.NewSelect().Model(&stored)
		for _, c := range cols {
			q = q.Where("? = ?", bun.Ident(c), r.columnValue(row, c))
		}
		if err := q.Limit(1).Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, err
		}
		out = append(out, r.project(&stored))
	}
	return out, nil
}

func (r *baseRepositoryImpl[T, P]) columnValue(entity *T, column string) any {
	f, ok := r.table.FieldMap[column]
	if !ok {
		return nil
	}
	return f.Value(reflect.ValueOf(entity).Elem()).Interface()
}

func (r *baseRepositoryImpl[T, P]) pkField() (*schema.Field, error) {
	if len(r.table.PKs) != 1 {
		return nil, fmt.Errorf("entity %s must have exactly one primary key column", r.table.Name)
	}
	return r.table.PKs[0], nil
}

// resolveColumns validates an explicit column list, or derives one from the
// patch's non-zero non-pk fields when columns is nil.
func (r *baseRepositoryImpl[T, P]) resolveColumns(patch *T, columns []string) ([]string, error) {
	if columns != nil {
		if len(columns) == 0 {
			return nil, errors.New("columns cannot be empty")
		}
		if err := r.checkColumns(columns); err != nil {
			return nil, err
		}
		return slices.Clone(columns), nil
	}

	strct := reflect.ValueOf(patch).Elem()
	var cols []string
	for _, f := range r.table.Fields {
		if f.IsPK || f.HasZeroValue(strct) {
			continue
		}
		cols = append(cols, f.Name)
	}
	if len(cols) == 0 {
		return nil, errors.New("patch has no non-zero fields to apply")
	}
	return cols, nil
}

func (r *baseRepositoryImpl[T, P]) checkColumns(columns []string) error {
	for _, c := range columns {
		if _, ok := r.table.FieldMap[c]; !ok {
			return fmt.Errorf("unknown column %q for table %s", c, r.table.Name)
		}
	}
	return nil
}

// touchUpdatedAt stamps the entity's updated_at field when the table has one,
// supporting time.Time and *time.Time representations.
func (r *baseRepositoryImpl[T, P]) touchUpdatedAt(entity *T, now time.Time) bool {
	f, ok := r.table.FieldMap[updatedAtColumn]
	if !ok {
		return false
	}
	fv := f.Value(reflect.ValueOf(entity).Elem())
	switch {
	case fv.Type() == reflect.TypeOf(time.Time{}):
		fv.Set(reflect.ValueOf(now))
	case fv.Kind() == reflect.Pointer && fv.Type().Elem() == reflect.TypeOf(time.Time{}):
		fv.Set(reflect.ValueOf(&now))
	default:
		return false
	}
	return true
}

func invalid(op string, format string, args ...any) error {
	return errx.E(op, errx.Invalid, fmt.Errorf(format, args...))
}

// classify maps driver and sql errors onto application error kinds. Errors
// that already carry a kind pass through unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *errx.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errx.E(op, errx.NotFound, err)
	}
	if is, kind := database.IsSqlError(err); is {
		switch kind {
		case database.DuplicateKeyErr:
			return errx.E(op, errx.Conflict, err)
		case database.NotNullViolationErr,
			database.CheckConstraintViolationErr,
			database.DataTruncatedErr:
			return errx.E(op, errx.Invalid, err)
		}
	}
	return errx.E(op, errx.Internal, err)
}

// classifyUpsert additionally surfaces a missing uniqueness constraint for
// the conflict target as a client-correctable error naming the columns.
func classifyUpsert(op string, err error, conflictColumns []string) error {
	if err == nil {
		return nil
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "on conflict") {
		return errx.E(op, errx.Invalid,
			fmt.Errorf("no unique constraint matches conflict columns %v: %w", conflictColumns, err))
	}
	return classify(op, err)
}
