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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = Schema{
	"shortCode":   {Column: "short_code", Type: Text},
	"url":         {Column: "url", Type: Text},
	"accessCount": {Column: "access_count", Type: Int},
	"createdAt":   {Column: "created_at", Type: Time},
}

func TestParseSort(t *testing.T) {
	orders, err := ParseSort("-createdAt,shortCode", testSchema)
	require.NoError(t, err)
	require.Len(t, orders, 2)

	assert.Equal(t, "created_at DESC", orders[0].Expr())
	assert.Equal(t, "short_code ASC", orders[1].Expr())
}

func TestParseSortEmpty(t *testing.T) {
	orders, err := ParseSort("", testSchema)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestParseSortSkipsBlankTokens(t *testing.T) {
	orders, err := ParseSort(" -accessCount, ,url ", testSchema)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "access_count DESC", orders[0].Expr())
	assert.Equal(t, "url ASC", orders[1].Expr())
}

func TestParseSortUnknownField(t *testing.T) {
	_, err := ParseSort("-password", testSchema)
	require.Error(t, err)

	var fieldErr *FieldError
	require.True(t, errors.As(err, &fieldErr))
	assert.Equal(t, "password", fieldErr.Field)
	assert.Equal(t, []string{"accessCount", "createdAt", "shortCode", "url"}, fieldErr.Allowed)
}

func TestValidateSort(t *testing.T) {
	assert.NoError(t, ValidateSort("-createdAt", testSchema))
	assert.Error(t, ValidateSort("nope", testSchema))
}
