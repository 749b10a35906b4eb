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

package repository_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/tomoncle/snipurl/errx"
	"github.com/tomoncle/snipurl/query"
	"github.com/tomoncle/snipurl/repository"
	"github.com/tomoncle/snipurl/types"
)

type link struct {
	bun.BaseModel `bun:"table:links,alias:l"`

	ID          int64      `bun:"id,pk,autoincrement"`
	URL         string     `bun:"url,notnull,unique"`
	ShortCode   string     `bun:"short_code,notnull,unique"`
	AccessCount int64      `bun:"access_count,notnull,default:0"`
	CreatedAt   time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   *time.Time `bun:"updated_at"`
}

type linkView struct {
	ID          int64      `json:"id"`
	URL         string     `json:"url"`
	ShortCode   string     `json:"shortCode"`
	AccessCount int64      `json:"accessCount"`
	UpdatedAt   *time.Time `json:"updatedAt"`
}

func projectLink(l *link) linkView {
	return linkView{
		ID:          l.ID,
		URL:         l.URL,
		ShortCode:   l.ShortCode,
		AccessCount: l.AccessCount,
		UpdatedAt:   l.UpdatedAt,
	}
}

var linkFields = query.Schema{
	"url":         {Column: "url", Type: query.Text},
	"shortCode":   {Column: "short_code", Type: query.Text},
	"accessCount": {Column: "access_count", Type: query.Int},
	"createdAt":   {Column: "created_at", Type: query.Time},
}

var testDBSeq int

func newTestRepository(t *testing.T) repository.Repository[link, linkView] {
	t.Helper()

	testDBSeq++
	dsn := fmt.Sprintf("file:repotest%d?mode=memory&cache=shared", testDBSeq)
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.NewCreateTable().Model((*link)(nil)).IfNotExists().Exec(context.Background())
	require.NoError(t, err)

	return repository.NewRepository[link, linkView](db, linkFields, projectLink)
}

func seedLinks(t *testing.T, repo repository.Repository[link, linkView], n int) []linkView {
	t.Helper()
	out := make([]linkView, 0, n)
	for i := 1; i <= n; i++ {
		view, err := repo.Create(context.Background(), &link{
			URL:         fmt.Sprintf("https://example.com/page-%d", i),
			ShortCode:   fmt.Sprintf("code%02d", i),
			AccessCount: int64(i),
		})
		require.NoError(t, err)
		out = append(out, view)
	}
	return out
}

func TestCreateAndGetOne(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, &link{URL: "https://example.com", ShortCode: "abc123"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "abc123", created.ShortCode)

	got, err := repo.GetOne(ctx, query.Eq("short_code", "abc123"))
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestCreateDuplicateIsConflict(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, &link{URL: "https://example.com", ShortCode: "abc123"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &link{URL: "https://example.com", ShortCode: "other9"})
	require.Error(t, err)
	assert.Equal(t, errx.Conflict, errx.KindOf(err))
}

func TestGetOneNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetOne(context.Background(), query.Eq("short_code", "nope"))
	require.Error(t, err)
	assert.Equal(t, errx.NotFound, errx.KindOf(err))
}

func TestExists(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedLinks(t, repo, 1)

	ok, err := repo.Exists(ctx, query.Eq("short_code", "code01"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(ctx, query.Eq("short_code", "nope"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetManyPagination(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedLinks(t, repo, 5)

	page, err := repo.GetMany(ctx, types.NewPageRequest(1, 2, "-accessCount", ""))
	require.NoError(t, err)
	assert.Equal(t, 5, page.TotalCount)
	require.Len(t, page.Data, 2)
	assert.Equal(t, int64(5), page.Data[0].AccessCount)
	assert.Equal(t, int64(4), page.Data[1].AccessCount)

	page, err = repo.GetMany(ctx, types.NewPageRequest(3, 2, "-accessCount", ""))
	require.NoError(t, err)
	assert.Equal(t, 5, page.TotalCount)
	assert.Len(t, page.Data, 1)
}

func TestGetManyFiltered(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedLinks(t, repo, 5)

	page, err := repo.GetMany(ctx, types.NewPageRequest(1, 10, "accessCount", "accessCount>=4"))
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalCount)
	require.Len(t, page.Data, 2)
	assert.Equal(t, int64(4), page.Data[0].AccessCount)
	assert.Equal(t, int64(5), page.Data[1].AccessCount)
}

func TestGetManyEmptyMatchIsSuccess(t *testing.T) {
	repo := newTestRepository(t)

	page, err := repo.GetMany(context.Background(), types.NewPageRequest(1, 10, "", "accessCount>999"))
	require.NoError(t, err)
	assert.Equal(t, 0, page.TotalCount)
	assert.Empty(t, page.Data)
}

func TestGetManyRejectsUnknownField(t *testing.T) {
	repo := newTestRepository(t)
	seedLinks(t, repo, 1)

	_, err := repo.GetMany(context.Background(), types.NewPageRequest(1, 10, "-password", ""))
	require.Error(t, err)
	assert.Equal(t, errx.Invalid, errx.KindOf(err))

	_, err = repo.GetMany(context.Background(), types.NewPageRequest(1, 10, "", "password=x"))
	require.Error(t, err)
	assert.Equal(t, errx.Invalid, errx.KindOf(err))
}

func TestUpdateOne(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedLinks(t, repo, 1)

	patch := &link{URL: "https://example.org/moved"}
	updated, err := repo.UpdateOne(ctx, patch, []string{"url"}, query.Eq("short_code", "code01"))
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/moved", updated.URL)
	assert.Equal(t, "code01", updated.ShortCode)
	require.NotNil(t, updated.UpdatedAt)

	got, err := repo.GetOne(ctx, query.Eq("short_code", "code01"))
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/moved", got.URL)
}

func TestUpdateOneRequiresPredicate(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.UpdateOne(context.Background(), &link{URL: "x"}, []string{"url"})
	require.Error(t, err)
	assert.Equal(t, errx.Invalid, errx.KindOf(err))
}

func TestUpdateOneNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.UpdateOne(context.Background(), &link{URL: "x"}, []string{"url"},
		query.Eq("short_code", "nope"))
	require.Error(t, err)
	assert.Equal(t, errx.NotFound, errx.KindOf(err))
}

func TestUpdateMany(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	created := seedLinks(t, repo, 2)

	rows := []*link{
		{ID: created[0].ID, URL: "https://example.com/a2"},
		{ID: created[1].ID, URL: "https://example.com/b2"},
		{ID: 99999, URL: "https://example.com/ghost"},
	}
	updated, err := repo.UpdateMany(ctx, rows, []string{"url"})
	require.NoError(t, err)
	// the unknown identity drops out
	require.Len(t, updated, 2)
	assert.Equal(t, "https://example.com/a2", updated[0].URL)
	assert.Equal(t, "https://example.com/b2", updated[1].URL)
	assert.NotNil(t, updated[0].UpdatedAt)
}

func TestUpdateManyRequiresColumns(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.UpdateMany(context.Background(), []*link{{ID: 1}}, nil)
	require.Error(t, err)
	assert.Equal(t, errx.Invalid, errx.KindOf(err))
}

func TestUpsertManyInsertsAndUpdates(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	rows := []*link{
		{URL: "https://example.com/a", ShortCode: "aaaaaa"},
		{URL: "https://example.com/b", ShortCode: "bbbbbb"},
	}
	first, err := repo.UpsertMany(ctx, rows, []string{"url"}, []string{"url", "short_code"})
	require.NoError(t, err)
	require.Len(t, first, 2)

	// same urls again with new codes: last write wins on the non-index field
	again := []*link{
		{URL: "https://example.com/a", ShortCode: "cccccc"},
		{URL: "https://example.com/b", ShortCode: "dddddd"},
	}
	second, err := repo.UpsertMany(ctx, again, []string{"url"}, []string{"url", "short_code"})
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, "cccccc", second[0].ShortCode)
	assert.Equal(t, "dddddd", second[1].ShortCode)

	count, err := repo.NewSelect().Model((*link)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestUpsertManyValidation(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	rows := []*link{{URL: "https://example.com", ShortCode: "abc123"}}

	// conflict column not listed among value columns
	_, err := repo.UpsertMany(ctx, rows, []string{"url"}, []string{"short_code"})
	require.Error(t, err)
	assert.Equal(t, errx.Invalid, errx.KindOf(err))

	// nothing updatable outside the conflict target
	_, err = repo.UpsertMany(ctx, rows, []string{"url"}, []string{"url"})
	require.Error(t, err)
	assert.Equal(t, errx.Invalid, errx.KindOf(err))

	// no uniqueness constraint on access_count
	_, err = repo.UpsertMany(ctx, rows, []string{"access_count"}, []string{"access_count", "url", "short_code"})
	require.Error(t, err)
	assert.Equal(t, errx.Invalid, errx.KindOf(err))
}

func TestDeleteOne(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedLinks(t, repo, 1)

	deleted, err := repo.DeleteOne(ctx, query.Eq("short_code", "code01"))
	require.NoError(t, err)
	assert.Equal(t, "code01", deleted.ShortCode)

	_, err = repo.GetOne(ctx, query.Eq("short_code", "code01"))
	assert.Equal(t, errx.NotFound, errx.KindOf(err))
}

func TestDeleteOneNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.DeleteOne(context.Background(), query.Eq("short_code", "nope"))
	require.Error(t, err)
	assert.Equal(t, errx.NotFound, errx.KindOf(err))
}

func TestDeleteMany(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedLinks(t, repo, 5)

	deleted, err := repo.DeleteMany(ctx, query.In("access_count", []int64{1, 2, 3}))
	require.NoError(t, err)
	assert.Len(t, deleted, 3)

	page, err := repo.GetMany(ctx, types.NewDefaultPageRequest(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalCount)
}

func TestDeleteManyEmptyMatch(t *testing.T) {
	repo := newTestRepository(t)

	deleted, err := repo.DeleteMany(context.Background(), query.Eq("short_code", "nope"))
	require.NoError(t, err)
	assert.Empty(t, deleted)
}

func TestDeleteManyRequiresPredicate(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.DeleteMany(context.Background())
	require.Error(t, err)
	assert.Equal(t, errx.Invalid, errx.KindOf(err))
}

func TestIncrementOne(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	seedLinks(t, repo, 1)

	for i := 1; i <= 3; i++ {
		view, err := repo.IncrementOne(ctx, "access_count", 1, query.Eq("short_code", "code01"))
		require.NoError(t, err)
		assert.Equal(t, int64(1+i), view.AccessCount)
	}

	got, err := repo.GetOne(ctx, query.Eq("short_code", "code01"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.AccessCount)
}

func TestIncrementOneNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.IncrementOne(context.Background(), "access_count", 1, query.Eq("short_code", "nope"))
	require.Error(t, err)
	assert.Equal(t, errx.NotFound, errx.KindOf(err))
}

func TestIncrementOneUnknownColumn(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.IncrementOne(context.Background(), "bogus", 1, query.Eq("short_code", "x"))
	require.Error(t, err)
	assert.Equal(t, errx.Invalid, errx.KindOf(err))
}
