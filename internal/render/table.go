// Package render formats query results and ingest summaries as terminal
// tables.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/table"

	"HealthMetricsETL/internal/domain"
)

// ResultSet prints an ordered query result. Large integers get thousands
// separators so the counts stay readable.
func ResultSet(w io.Writer, rs *domain.ResultSet) {
	if rs == nil || len(rs.Rows) == 0 {
		fmt.Fprintln(w, "no rows")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)

	header := make(table.Row, 0, len(rs.Columns))
	for _, col := range rs.Columns {
		header = append(header, headerLabel(col))
	}
	t.AppendHeader(header)

	for _, row := range rs.Rows {
		out := make(table.Row, 0, len(row))
		for _, cell := range row {
			out = append(out, formatCell(cell))
		}
		t.AppendRow(out)
	}

	t.Render()
}

// IngestSummaries prints one row per ingested country.
func IngestSummaries(w io.Writer, summaries []domain.IngestSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Country", "Seen", "Inserted", "Updated", "Skipped", "Errors"})
	for _, s := range summaries {
		t.AppendRow(table.Row{
			s.Country,
			withThousands(int64(s.RecordsSeen)),
			withThousands(int64(s.Inserted)),
			withThousands(int64(s.Updated)),
			withThousands(int64(s.Skipped)),
			strings.Join(s.Errors, "; "),
		})
	}
	t.Render()
}

func headerLabel(col string) string {
	words := strings.Split(col, "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func formatCell(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case int64:
		return withThousands(value)
	case float64:
		return strconv.FormatFloat(value, 'f', 2, 64)
	case time.Time:
		return value.Format("2006-01-02")
	case string:
		return value
	default:
		return fmt.Sprintf("%v", value)
	}
}

func withThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}

	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}

	if negative {
		return "-" + b.String()
	}
	return b.String()
}
