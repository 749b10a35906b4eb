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
	"fmt"

	"github.com/uptrace/bun"
)

// Predicate is a single (column, operator, value) condition. Predicates are
// produced by ParseFilter from allow-listed input, or constructed directly
// by callers with Eq/In against known storage columns; a predicate list is
// applied as a conjunction.
type Predicate struct {
	column string
	op     Operator
	value  any
}

// Eq builds an equality predicate on a storage column.
func Eq(column string, value any) Predicate {
	return Predicate{column: column, op: OpEQ, value: value}
}

// In builds a set-membership predicate on a storage column.
func In[V any](column string, values []V) Predicate {
	return Predicate{column: column, op: OpIN, value: bun.In(values)}
}

// Column returns the storage column the predicate applies to.
func (p Predicate) Column() string { return p.column }

// Expr renders the predicate as a Bun WHERE fragment with a placeholder,
// e.g. "access_count >= ?". Column names originate from field registries,
// never from raw client input.
func (p Predicate) Expr() string {
	if p.op == OpIN {
		return fmt.Sprintf("%s IN (?)", p.column)
	}
	return fmt.Sprintf("%s %s ?", p.column, p.op)
}

// Args returns the placeholder arguments for Expr.
func (p Predicate) Args() []any {
	return []any{p.value}
}
