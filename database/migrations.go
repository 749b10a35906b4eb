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

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// MigrationManager creates the tables of registered models on startup.
type MigrationManager struct {
	db     *bun.DB
	logger Logger
}

// NewMigrationManager constructs a MigrationManager using the provided Bun
// database and logger.
func NewMigrationManager(db *bun.DB, logger Logger) *MigrationManager {
	return &MigrationManager{db: db, logger: logger}
}

// RunMigrations issues CREATE TABLE IF NOT EXISTS for every registered model
// in ascending priority order. Existing tables are left untouched.
func (mm *MigrationManager) RunMigrations(ctx context.Context) error {
	if mm.db == nil {
		return fmt.Errorf("database not initialized")
	}

	for _, model := range GetRegisteredModels() {
		instance := model.Instance()
		if _, err := mm.db.NewCreateTable().
			Model(instance).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", instance, err)
		}

		if mm.logger != nil {
			mm.logger.Debug("Ensured table exists", "model", fmt.Sprintf("%T", instance))
		}
	}

	if mm.logger != nil {
		mm.logger.Info("Database migrations completed", "models", len(GetRegisteredModels()))
	}
	return nil
}
