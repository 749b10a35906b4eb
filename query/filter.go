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
	"strconv"
	"strings"
	"time"
)

// Operator is a comparison operator of a filter predicate.
type Operator string

const (
	OpGTE Operator = ">="
	OpLTE Operator = "<="
	OpNE  Operator = "!="
	OpGT  Operator = ">"
	OpLT  Operator = "<"
	OpEQ  Operator = "="
	OpIN  Operator = "IN"
)

// operators lists the parseable symbols in scan priority order. Two-character
// symbols must be tried before their one-character prefixes so that ">=" is
// never mis-parsed as ">" followed by a stray "=".
var operators = []Operator{OpGTE, OpLTE, OpNE, OpGT, OpLT, OpEQ}

func operatorSymbols() []string {
	symbols := make([]string, len(operators))
	for i, op := range operators {
		symbols[i] = string(op)
	}
	return symbols
}

// ParseFilter parses a comma-separated filter expression such as
// "accessCount>=5,shortCode=abc123" into typed predicates. Each pair is
// split on the highest-priority operator symbol it contains; the field must
// be in the schema and the literal value is coerced to the field's declared
// type before it is used in a predicate.
func ParseFilter(raw string, schema Schema) ([]Predicate, error) {
	if raw == "" {
		return nil, nil
	}

	var preds []Predicate
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		pred, err := parseFilterPair(pair, schema)
		if err != nil {
			return nil, err
		}
		preds = append(preds, pred)
	}
	return preds, nil
}

func parseFilterPair(pair string, schema Schema) (Predicate, error) {
	for _, op := range operators {
		idx := strings.Index(pair, string(op))
		if idx < 0 {
			continue
		}

		name := strings.TrimSpace(pair[:idx])
		rawValue := strings.TrimSpace(pair[idx+len(op):])

		field, ok := schema[name]
		if !ok {
			return Predicate{}, &FieldError{Field: name, Allowed: schema.AllowedFields()}
		}

		value, err := convertValue(rawValue, field.Type, name)
		if err != nil {
			return Predicate{}, err
		}
		return Predicate{column: field.Column, op: op, value: value}, nil
	}
	return Predicate{}, &OperatorError{Pair: pair}
}

// ValidateFilter eagerly checks a raw filter expression against the schema
// so a bad request is rejected before any query work begins. It produces the
// same error shapes as ParseFilter.
func ValidateFilter(raw string, schema Schema) error {
	_, err := ParseFilter(raw, schema)
	return err
}

// convertValue coerces a raw literal to the field's declared type. Integer,
// float and timestamp coercions fail with a *ValueError; boolean and text
// coercions are best-effort casts that cannot fail.
func convertValue(raw string, fieldType FieldType, fieldName string) (any, error) {
	switch fieldType {
	case Int:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &ValueError{Field: fieldName, Type: fieldType, Value: raw}
		}
		return v, nil
	case Float:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, &ValueError{Field: fieldName, Type: fieldType, Value: raw}
		}
		return v, nil
	case Bool:
		if v, err := strconv.ParseBool(raw); err == nil {
			return v, nil
		}
		return raw != "", nil
	case Time:
		v, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, &ValueError{Field: fieldName, Type: fieldType, Value: raw}
		}
		return v, nil
	default:
		return raw, nil
	}
}
