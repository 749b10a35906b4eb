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

import "fmt"

// FieldError reports a sort or filter field that is not in the allow-list.
// The same error shape is produced at the HTTP boundary and when a parsed
// spec is re-checked against a concrete entity schema.
type FieldError struct {
	Field   string
	Allowed []string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q is not allowed, allowed fields are %v", e.Field, e.Allowed)
}

// OperatorError reports a filter pair containing no recognized operator.
type OperatorError struct {
	Pair string
}

func (e *OperatorError) Error() string {
	return fmt.Sprintf("no operator found in filter %q, use one of %v", e.Pair, operatorSymbols())
}

// ValueError reports a filter literal that cannot be coerced to the field's
// declared type. It is a client-correctable input error, not a server fault.
type ValueError struct {
	Field string
	Type  FieldType
	Value string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("invalid value %q for field %q, expected %s", e.Value, e.Field, e.Type)
}
