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
package enricher

import (
	"errors"
	"fmt"
)

// ErrInvalidTableName is returned for an empty table name.
var ErrInvalidTableName = errors.New("invalid input error: table name must not be empty")

// CatalogAccessError reports a failed catalog query. It is fatal for the
// table being classified.
type CatalogAccessError struct {
	Table string
	Op    string
	Err   error
}

func (e *CatalogAccessError) Error() string {
	return fmt.Sprintf("catalog access error: %s for table %s: %v", e.Op, e.Table, e.Err)
}

func (e *CatalogAccessError) Unwrap() error {
	return e.Err
}
