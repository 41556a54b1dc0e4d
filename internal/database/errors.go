/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
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
	"errors"
	"fmt"
)

// ErrDatabaseConnection represents errors that occur during database connection attempts
type ErrDatabaseConnection struct {
	Msg string
	Err error
}

// ErrQueryExecution represents errors that occur during query execution.
// SQLState is set when the driver reports one.
type ErrQueryExecution struct {
	Msg      string
	SQLState string
	Err      error
}

// ErrTimeout represents timeout errors during operations
type ErrTimeout struct {
	Msg string
	Err error
}

// ErrCancelled represents errors when an operation is cancelled
type ErrCancelled struct {
	Msg string
	Err error
}

// ErrUnsupportedDialect is returned when no handler is registered for a dialect.
type ErrUnsupportedDialect struct {
	Dialect string
}

func (e *ErrDatabaseConnection) Error() string {
	return fmt.Sprintf("database connection error: %s: %v", e.Msg, e.Err)
}

func (e *ErrDatabaseConnection) Unwrap() error { return e.Err }

func (e *ErrQueryExecution) Error() string {
	if e.SQLState != "" {
		return fmt.Sprintf("query execution error: %s (SQLSTATE %s): %v", e.Msg, e.SQLState, e.Err)
	}
	return fmt.Sprintf("query execution error: %s: %v", e.Msg, e.Err)
}

func (e *ErrQueryExecution) Unwrap() error { return e.Err }

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("timeout error: %s: %v", e.Msg, e.Err)
}

func (e *ErrTimeout) Unwrap() error { return e.Err }

func (e *ErrCancelled) Error() string {
	return fmt.Sprintf("operation cancelled: %s: %v", e.Msg, e.Err)
}

func (e *ErrCancelled) Unwrap() error { return e.Err }

func (e *ErrUnsupportedDialect) Error() string {
	return fmt.Sprintf("unsupported database dialect: %s", e.Dialect)
}

// SQLStateProvider is implemented by handlers whose driver reports SQLSTATE
// codes or native error numbers.
type SQLStateProvider interface {
	SQLState(err error) string
}

// classify converts a driver error into one of the typed errors above.
func (db *DB) classify(msg string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &ErrTimeout{Msg: msg, Err: err}
	case errors.Is(err, context.Canceled):
		return &ErrCancelled{Msg: msg, Err: err}
	}
	var typed *ErrQueryExecution
	if errors.As(err, &typed) {
		return err
	}
	qe := &ErrQueryExecution{Msg: msg, Err: err}
	if p, ok := db.Handler.(SQLStateProvider); ok {
		qe.SQLState = p.SQLState(err)
	}
	return qe
}
