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

package types

// AppResponse is the envelope every HTTP response is wrapped in, success and
// error alike. Data is null on error responses.
type AppResponse[T any] struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       T      `json:"data"`
}

// NewAppResponse builds an envelope; Success is derived from the status code.
func NewAppResponse[T any](statusCode int, message string, data T) AppResponse[T] {
	return AppResponse[T]{
		Success:    statusCode < 400,
		StatusCode: statusCode,
		Message:    message,
		Data:       data,
	}
}
