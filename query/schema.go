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

// Package query parses client-supplied sort and filter expressions into
// validated, typed operations against a declared per-entity field registry,
// and turns them into WHERE/ORDER BY fragments for the repository layer.
package query

import (
	"sort"

	"github.com/tomoncle/snipurl/types"
)

// FieldType tags the declared type of a filterable field so raw literal
// values can be coerced before they reach a query predicate.
type FieldType int

const (
	Text FieldType = iota
	Int
	Float
	Bool
	Time
)

var _ types.BaseEnum = Text

func (t FieldType) IsValid() bool { return t >= Text && t <= Time }

func (t FieldType) Number() int {
	if !t.IsValid() {
		return types.IllegalValue
	}
	return int(t)
}

func (t FieldType) Name() string { return t.String() }

func (t FieldType) String() string {
	switch t {
	case Text:
		return "text"
	case Int:
		return "integer"
	case Float:
		return "float"
	case Bool:
		return "boolean"
	case Time:
		return "timestamp"
	default:
		return types.IllegalName
	}
}

// Field maps an external field name to its storage column and declared type.
type Field struct {
	Column string
	Type   FieldType
}

// Schema is the allow-list of fields a client may sort or filter by, keyed
// by the external (camelCase) field name.
type Schema map[string]Field

// AllowedFields returns the external field names in deterministic order,
// used in error messages naming the allowed set.
func (s Schema) AllowedFields() []string {
	fields := make([]string, 0, len(s))
	for name := range s {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return fields
}
