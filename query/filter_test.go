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

package query

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilterOperatorPrecedence(t *testing.T) {
	// ">=" must win over ">" when both match the same pair.
	preds, err := ParseFilter("accessCount>=5", testSchema)
	require.NoError(t, err)
	require.Len(t, preds, 1)

	assert.Equal(t, "access_count >= ?", preds[0].Expr())
	assert.Equal(t, []any{int64(5)}, preds[0].Args())
}

func TestParseFilterOperators(t *testing.T) {
	cases := []struct {
		raw  string
		expr string
		args []any
	}{
		{"accessCount>=5", "access_count >= ?", []any{int64(5)}},
		{"accessCount<=5", "access_count <= ?", []any{int64(5)}},
		{"accessCount!=5", "access_count != ?", []any{int64(5)}},
		{"accessCount>5", "access_count > ?", []any{int64(5)}},
		{"accessCount<5", "access_count < ?", []any{int64(5)}},
		{"shortCode=abc123", "short_code = ?", []any{"abc123"}},
	}
	for _, tc := range cases {
		preds, err := ParseFilter(tc.raw, testSchema)
		require.NoError(t, err, tc.raw)
		require.Len(t, preds, 1, tc.raw)
		assert.Equal(t, tc.expr, preds[0].Expr(), tc.raw)
		assert.Equal(t, tc.args, preds[0].Args(), tc.raw)
	}
}

func TestParseFilterMultiplePairs(t *testing.T) {
	preds, err := ParseFilter("accessCount>0, shortCode=abc123", testSchema)
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, "access_count > ?", preds[0].Expr())
	assert.Equal(t, "short_code = ?", preds[1].Expr())
}

func TestParseFilterTimeCoercion(t *testing.T) {
	preds, err := ParseFilter("createdAt>=2025-01-02T15:04:05Z", testSchema)
	require.NoError(t, err)
	require.Len(t, preds, 1)

	want := time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, []any{want}, preds[0].Args())
}

func TestParseFilterUnknownField(t *testing.T) {
	_, err := ParseFilter("password=hunter2", testSchema)
	require.Error(t, err)

	var fieldErr *FieldError
	require.True(t, errors.As(err, &fieldErr))
	assert.Equal(t, "password", fieldErr.Field)
}

func TestParseFilterMissingOperator(t *testing.T) {
	_, err := ParseFilter("accessCount", testSchema)
	require.Error(t, err)

	var opErr *OperatorError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "accessCount", opErr.Pair)
}

func TestParseFilterBadValue(t *testing.T) {
	_, err := ParseFilter("accessCount>many", testSchema)
	require.Error(t, err)

	var valErr *ValueError
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, "accessCount", valErr.Field)
	assert.Equal(t, "many", valErr.Value)
	assert.Equal(t, Int, valErr.Type)
}

func TestParseFilterEmpty(t *testing.T) {
	preds, err := ParseFilter("", testSchema)
	require.NoError(t, err)
	assert.Empty(t, preds)
}

func TestConvertValue(t *testing.T) {
	v, err := convertValue("3.14", Float, "ratio")
	require.NoError(t, err)
	assert.Equal(t, 3.14, v)

	v, err = convertValue("true", Bool, "active")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = convertValue("plain", Text, "name")
	require.NoError(t, err)
	assert.Equal(t, "plain", v)

	_, err = convertValue("not-a-date", Time, "createdAt")
	assert.Error(t, err)
}
