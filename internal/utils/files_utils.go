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
package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadContextFiles reads the content of the specified context files and combines them into a single string.
func ReadContextFiles(filePaths string) (string, error) {
	if filePaths == "" {
		return "", nil // No context files provided
	}

	paths := strings.Split(filePaths, ",")
	var combinedContext strings.Builder
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read context file '%s': %w", path, err)
		}
		combinedContext.WriteString("\n-- Context from file: " + path + " --\n")
		combinedContext.Write(content)
	}
	return combinedContext.String(), nil
}

// GetDefaultOutputFilePath names the file inspect writes when --output is
// not given.
func GetDefaultOutputFilePath(dbName string, format Format) string {
	if dbName == "" {
		dbName = "schema"
	}
	return fmt.Sprintf("%s_schema.%s", dbName, format.Extension())
}

// ConfirmOverwrite asks on out whether path may be replaced and reads the
// answer from in. A missing file needs no confirmation.
func ConfirmOverwrite(path string, in io.Reader, out io.Writer) bool {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return true
	}
	fmt.Fprintf(out, "Output file %s already exists. Overwrite it? (yes/no): ", path)
	text, _ := bufio.NewReader(in).ReadString('\n')
	action := strings.TrimSpace(strings.ToLower(text))
	return action == "yes" || action == "y"
}

// ParseTablesFlag parses "users,orders[id,status]" into a table -> columns
// map. A table listed without brackets maps to nil, meaning every column.
func ParseTablesFlag(tablesFlag string) (map[string][]string, error) {
	tableColumns := make(map[string][]string)
	if tablesFlag == "" {
		return tableColumns, nil
	}

	// strip any whitespace
	tablesFlag = strings.ReplaceAll(tablesFlag, " ", "")

	for _, part := range SplitOutsideBrackets(tablesFlag) {
		if part == "" {
			continue
		}

		bracketStart := strings.Index(part, "[")
		if bracketStart == -1 {
			tableColumns[part] = nil
			continue
		}
		bracketEnd := strings.Index(part, "]")
		if bracketEnd == -1 {
			return nil, fmt.Errorf("missing closing bracket in: %s", part)
		}
		if bracketEnd < bracketStart {
			return nil, fmt.Errorf("unbalanced brackets in: %s", part)
		}

		tableName := part[:bracketStart]
		if tableName == "" {
			return nil, fmt.Errorf("missing table name before columns in: %s", part)
		}
		var columns []string
		for _, col := range strings.Split(part[bracketStart+1:bracketEnd], ",") {
			if col != "" {
				columns = append(columns, col)
			}
		}
		tableColumns[tableName] = columns
	}

	return tableColumns, nil
}

// SplitOutsideBrackets splits s on commas that are not within brackets.
func SplitOutsideBrackets(s string) []string {
	var result []string
	var current strings.Builder
	inBrackets := false

	for _, char := range s {
		switch char {
		case '[':
			inBrackets = true
			current.WriteRune(char)
		case ']':
			inBrackets = false
			current.WriteRune(char)
		case ',':
			if inBrackets {
				current.WriteRune(char)
			} else {
				result = append(result, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(char)
		}
	}

	if current.Len() > 0 {
		result = append(result, current.String())
	}

	return result
}
