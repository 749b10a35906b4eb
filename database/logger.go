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

package database

import "log/slog"

// Logger is the pluggable logging surface of this package. Fields are
// alternating key/value pairs, slog style.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

type slogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger adapts a *slog.Logger to the package Logger interface.
// Passing nil uses slog's default logger.
func NewSlogLogger(logger *slog.Logger) Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &slogLogger{logger: logger}
}

func (l *slogLogger) Debug(msg string, fields ...interface{}) { l.logger.Debug(msg, fields...) }
func (l *slogLogger) Info(msg string, fields ...interface{})  { l.logger.Info(msg, fields...) }
func (l *slogLogger) Warn(msg string, fields ...interface{})  { l.logger.Warn(msg, fields...) }
func (l *slogLogger) Error(msg string, fields ...interface{}) { l.logger.Error(msg, fields...) }
