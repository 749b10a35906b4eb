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

import "strings"

// Order is a single (column, direction) pair of a parsed sort specification.
type Order struct {
	Column     string
	Descending bool
}

// Expr renders the order as a Bun ORDER BY fragment, e.g. "created_at DESC".
// Columns come from the allow-listed schema, never from raw client input.
func (o Order) Expr() string {
	if o.Descending {
		return o.Column + " DESC"
	}
	return o.Column + " ASC"
}

// ParseSort parses a comma-separated sort expression such as
// "-createdAt,shortCode" into ordered (column, direction) pairs. A leading
// '-' marks descending; direction is ascending otherwise. Every field must
// be a member of the schema or parsing fails with a *FieldError naming the
// offending field and the allowed set.
func ParseSort(raw string, schema Schema) ([]Order, error) {
	if raw == "" {
		return nil, nil
	}

	var orders []Order
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		descending := strings.HasPrefix(token, "-")
		name := strings.TrimPrefix(token, "-")

		field, ok := schema[name]
		if !ok {
			return nil, &FieldError{Field: name, Allowed: schema.AllowedFields()}
		}
		orders = append(orders, Order{Column: field.Column, Descending: descending})
	}
	return orders, nil
}

// ValidateSort eagerly checks a raw sort expression against the schema so a
// bad request is rejected before any query work begins. It produces the same
// error shape as ParseSort.
func ValidateSort(raw string, schema Schema) error {
	_, err := ParseSort(raw, schema)
	return err
}
