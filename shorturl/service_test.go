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

package shorturl_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomoncle/snipurl/config"
	"github.com/tomoncle/snipurl/database"
	"github.com/tomoncle/snipurl/errx"
	"github.com/tomoncle/snipurl/shorturl"
	"github.com/tomoncle/snipurl/types"
)

var testDBSeq int

func newTestManager(t *testing.T) database.AbstractDatabaseManager {
	t.Helper()

	testDBSeq++
	dbCfg := database.DefaultConnectionConfig()
	dbCfg.Type = "sqlite"
	dbCfg.DBName = fmt.Sprintf("file:shorturltest%d?mode=memory&cache=shared", testDBSeq)
	dbCfg.MaxOpenConns = 1
	dbCfg.MaxIdleConns = 1
	dbCfg.HealthCheckInterval = 0
	dbCfg.SlowQueryTime = 0

	manager := database.NewDatabaseManager(dbCfg)
	ctx := context.Background()
	require.NoError(t, manager.Connect(ctx))
	t.Cleanup(func() { _ = manager.Disconnect() })
	require.NoError(t, manager.RunMigrations(ctx))
	return manager
}

func shortenerConfig() config.ShortenerConfig {
	return config.ShortenerConfig{
		CodeLength:        6,
		MaxCodeAttempts:   10,
		DedupeExistingURL: true,
	}
}

func newTestService(t *testing.T, cfg config.ShortenerConfig) *shorturl.Service {
	t.Helper()
	manager := newTestManager(t)
	return shorturl.NewService(manager.GetDB(), cfg, nil, nil)
}

func TestCreateRoundTrip(t *testing.T) {
	svc := newTestService(t, shortenerConfig())
	ctx := context.Background()

	created, err := svc.Create(ctx, "https://example.com/docs")
	require.NoError(t, err)
	assert.Len(t, created.ShortCode, 6)
	assert.NotZero(t, created.ID)
	assert.Equal(t, int64(0), created.AccessCount)

	got, err := svc.Resolve(ctx, created.ShortCode, false)
	require.NoError(t, err)
	assert.Equal(t, created.URL, got.URL)
	assert.Equal(t, created.ShortCode, got.ShortCode)
}

func TestCreateDedupeReturnsExistingMapping(t *testing.T) {
	svc := newTestService(t, shortenerConfig())
	ctx := context.Background()

	first, err := svc.Create(ctx, "https://example.com")
	require.NoError(t, err)
	second, err := svc.Create(ctx, "https://example.com")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ShortCode, second.ShortCode)
}

func TestCreateDuplicateURLConflictsWithoutDedupe(t *testing.T) {
	cfg := shortenerConfig()
	cfg.DedupeExistingURL = false
	svc := newTestService(t, cfg)
	ctx := context.Background()

	_, err := svc.Create(ctx, "https://example.com")
	require.NoError(t, err)

	_, err = svc.Create(ctx, "https://example.com")
	require.Error(t, err)
	assert.Equal(t, errx.Conflict, errx.KindOf(err))
}

func TestCreateRejectsBadURLs(t *testing.T) {
	svc := newTestService(t, shortenerConfig())
	ctx := context.Background()

	for _, raw := range []string{"", "not-a-url", "ftp://example.com/file", "https://"} {
		_, err := svc.Create(ctx, raw)
		require.Error(t, err, raw)
		assert.Equal(t, errx.Invalid, errx.KindOf(err), raw)
	}
}

func TestGenerateUniqueCode(t *testing.T) {
	svc := newTestService(t, shortenerConfig())

	code, err := svc.GenerateUniqueCode(context.Background())
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.Regexp(t, "^[A-Za-z0-9]+$", code)
}

func TestResolveIncrementsAccessCount(t *testing.T) {
	svc := newTestService(t, shortenerConfig())
	ctx := context.Background()

	created, err := svc.Create(ctx, "https://example.com")
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		got, err := svc.Resolve(ctx, created.ShortCode, true)
		require.NoError(t, err)
		assert.Equal(t, int64(i), got.AccessCount)
	}

	// the stats path never bumps the counter
	got, err := svc.Resolve(ctx, created.ShortCode, false)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.AccessCount)
}

func TestResolveUnknownCode(t *testing.T) {
	svc := newTestService(t, shortenerConfig())

	_, err := svc.Resolve(context.Background(), "nosuch", true)
	require.Error(t, err)
	assert.Equal(t, errx.NotFound, errx.KindOf(err))
}

func TestRenameAndRemove(t *testing.T) {
	svc := newTestService(t, shortenerConfig())
	ctx := context.Background()

	created, err := svc.Create(ctx, "https://example.com/old")
	require.NoError(t, err)

	renamed, err := svc.Rename(ctx, created.ShortCode, "https://example.com/new")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/new", renamed.URL)
	assert.NotNil(t, renamed.UpdatedAt)

	removed, err := svc.Remove(ctx, created.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, created.ShortCode, removed.ShortCode)

	_, err = svc.Resolve(ctx, created.ShortCode, false)
	assert.Equal(t, errx.NotFound, errx.KindOf(err))
}

func TestListPagination(t *testing.T) {
	svc := newTestService(t, shortenerConfig())
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := svc.Create(ctx, fmt.Sprintf("https://example.com/page-%d", i))
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, types.NewPageRequest(1, 2, "-id", ""))
	require.NoError(t, err)
	assert.Equal(t, 5, page.TotalCount)
	assert.Len(t, page.Data, 2)
}

func TestBulkUpsertRecodesKnownURLs(t *testing.T) {
	svc := newTestService(t, shortenerConfig())
	ctx := context.Background()

	first, err := svc.BulkUpsert(ctx, []string{"https://example.com/a", "https://example.com/b"})
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := svc.BulkUpsert(ctx, []string{"https://example.com/a", "https://example.com/c"})
	require.NoError(t, err)
	require.Len(t, second, 2)

	// the known url keeps its identity but gets a fresh code
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.NotEqual(t, first[0].ShortCode, second[0].ShortCode)

	page, err := svc.List(ctx, types.NewDefaultPageRequest(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalCount)
}

func TestBulkDelete(t *testing.T) {
	svc := newTestService(t, shortenerConfig())
	ctx := context.Background()

	a, err := svc.Create(ctx, "https://example.com/a")
	require.NoError(t, err)
	b, err := svc.Create(ctx, "https://example.com/b")
	require.NoError(t, err)

	deleted, err := svc.BulkDelete(ctx, []int64{a.ID, b.ID, 99999})
	require.NoError(t, err)
	assert.Len(t, deleted, 2)

	_, err = svc.BulkDelete(ctx, nil)
	assert.Equal(t, errx.Invalid, errx.KindOf(err))
}

func TestBulkUpdate(t *testing.T) {
	svc := newTestService(t, shortenerConfig())
	ctx := context.Background()

	a, err := svc.Create(ctx, "https://example.com/a")
	require.NoError(t, err)
	b, err := svc.Create(ctx, "https://example.com/b")
	require.NoError(t, err)

	urlA := "https://example.com/a2"
	urlB := "https://example.com/b2"
	updated, err := svc.BulkUpdate(ctx, []shorturl.BulkUpdateRecord{
		{ID: a.ID, URL: &urlA},
		{ID: b.ID, URL: &urlB},
	})
	require.NoError(t, err)
	require.Len(t, updated, 2)
	assert.Equal(t, urlA, updated[0].URL)
	assert.Equal(t, urlB, updated[1].URL)
}

func TestBulkUpdateRejectsMixedShapes(t *testing.T) {
	svc := newTestService(t, shortenerConfig())
	ctx := context.Background()

	a, err := svc.Create(ctx, "https://example.com/a")
	require.NoError(t, err)

	newURL := "https://example.com/a2"
	count := int64(7)
	_, err = svc.BulkUpdate(ctx, []shorturl.BulkUpdateRecord{
		{ID: a.ID, URL: &newURL},
		{ID: a.ID, AccessCount: &count},
	})
	require.Error(t, err)
	assert.Equal(t, errx.Invalid, errx.KindOf(err))
}
