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

// Package report renders enhanced schemas as terminal tables.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/schema"
)

// Options configures rendering.
type Options struct {
	NoColor bool
}

var headers = []string{"Column", "Data Type", "Kind", "Null", "Filter", "Notes"}

// Printer writes table summaries to one writer.
type Printer struct {
	w       io.Writer
	heading *color.Color
	border  *color.Color
	warn    *color.Color
	ok      *color.Color
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer, opts Options) *Printer {
	p := &Printer{
		w:       w,
		heading: color.New(color.Bold, color.FgCyan),
		border:  color.New(color.FgHiBlack),
		warn:    color.New(color.FgYellow),
		ok:      color.New(color.FgGreen),
	}
	if opts.NoColor {
		for _, c := range []*color.Color{p.heading, p.border, p.warn, p.ok} {
			c.DisableColor()
		}
	}
	return p
}

// PrintTable writes the per-column table of ts followed by its capability
// summary.
func (p *Printer) PrintTable(ts *schema.TableSchema) {
	p.heading.Fprintf(p.w, "Table %s\n", ts.TableName)

	rows := make([][]string, 0, len(ts.Columns))
	review := make([]bool, 0, len(ts.Columns))
	for _, col := range ts.Columns {
		null := "no"
		if col.IsNullable {
			null = "yes"
		}
		rows = append(rows, []string{
			col.Name,
			col.DataType,
			col.FieldType.String(),
			null,
			col.FilteringStrategy.Category,
			notes(col),
		})
		review = append(review, col.NeedsReview)
	}
	p.render(rows, review)

	caps := ts.Capabilities
	fmt.Fprintln(p.w)
	p.kv("Primary key", strings.Join(ts.PrimaryKeys, ", "))
	p.kv("Foreign keys", fmt.Sprintf("%d", caps.ForeignKeyCount))
	p.kv("Referenced by", referencedBy(ts))
	p.kv("Business rules", fmt.Sprintf("%d", caps.BusinessRuleCount))
	p.kv("Filterable / searchable", fmt.Sprintf("%d / %d", caps.FilterableFieldCount, caps.SearchableFieldCount))
	if caps.MissingLookupEndpoints > 0 {
		p.warn.Fprintf(p.w, "%d foreign key(s) without a lookup endpoint\n", caps.MissingLookupEndpoints)
	}
	if caps.FieldsNeedingReview > 0 {
		p.warn.Fprintf(p.w, "%d of %d field(s) need manual review\n", caps.FieldsNeedingReview, caps.TotalFields)
	} else {
		p.ok.Fprintf(p.w, "all %d field(s) classified\n", caps.TotalFields)
	}
}

func (p *Printer) render(rows [][]string, review []bool) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], len(cell))
		}
	}

	for i, h := range headers {
		p.heading.Fprint(p.w, padRight(h, widths[i]))
		if i < len(headers)-1 {
			fmt.Fprint(p.w, "  ")
		}
	}
	fmt.Fprintln(p.w)
	for i, width := range widths {
		p.border.Fprint(p.w, strings.Repeat("─", width))
		if i < len(widths)-1 {
			p.border.Fprint(p.w, "  ")
		}
	}
	fmt.Fprintln(p.w)

	for r, row := range rows {
		line := make([]string, len(row))
		for i, cell := range row {
			line[i] = padRight(cell, widths[i])
		}
		text := strings.TrimRight(strings.Join(line, "  "), " ")
		if review[r] {
			p.warn.Fprintln(p.w, text)
		} else {
			fmt.Fprintln(p.w, text)
		}
	}
}

func (p *Printer) kv(key, value string) {
	if value == "" {
		value = "-"
	}
	p.heading.Fprintf(p.w, "%-24s", key+":")
	fmt.Fprintln(p.w, value)
}

// notes summarizes what the kind alone does not say.
func notes(col schema.EnrichedColumn) string {
	var parts []string
	if info := col.DropdownInfo; info != nil && col.ForeignKey != nil {
		parts = append(parts, fmt.Sprintf("-> %s(%s)", col.ForeignKey.ReferencedTable, strings.Join(info.DisplayFields, ",")))
		if !info.HasEndpoint {
			parts = append(parts, "no endpoint")
		}
	}
	if col.Constraint.HasDomain() {
		parts = append(parts, "["+strings.Join(col.Constraint.Values, "|")+"]")
	}
	if col.NeedsReview {
		parts = append(parts, "review")
	}
	return strings.Join(parts, " ")
}

func referencedBy(ts *schema.TableSchema) string {
	refs := make([]string, 0, len(ts.ForeignKeyReferences))
	for _, ref := range ts.ForeignKeyReferences {
		refs = append(refs, ref.Table+"."+ref.Field)
	}
	return strings.Join(refs, ", ")
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
