package formstore

import (
	"context"
	"strings"
	"time"

	"swedana-forms/internal/models"
)

// EmptyExportPlaceholder is returned by ExportCSV instead of a header-only file.
const EmptyExportPlaceholder = "No submissions found"

// ExportCSV renders the collection as comma-separated text: a header of
// ID,Type,Date,Status followed by every data key in first-seen order, then
// one line per submission in stored order. Values are written as-is, so a
// comma or newline inside a value shifts the columns of that line.
func (s *Store) ExportCSV(ctx context.Context) string {
	subs := s.ReadAll(ctx)
	if len(subs) == 0 {
		return EmptyExportPlaceholder
	}

	keys := dataKeys(subs)

	lines := make([]string, 0, len(subs)+1)
	header := append([]string{"ID", "Type", "Date", "Status"}, keys...)
	lines = append(lines, strings.Join(header, ","))

	for _, sub := range subs {
		row := make([]string, 0, len(header))
		row = append(row,
			sub.ID,
			string(sub.Type),
			s.formatDate(sub.Timestamp),
			string(sub.Status),
		)
		for _, k := range keys {
			row = append(row, sub.Data[k])
		}
		lines = append(lines, strings.Join(row, ","))
	}

	return strings.Join(lines, "\n")
}

func (s *Store) formatDate(ms int64) string {
	return time.UnixMilli(ms).In(s.location).Format(s.dateLayout)
}

// dataKeys returns the union of data keys across subs in first-seen order,
// reading each record's fields in form order.
func dataKeys(subs []models.Submission) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, sub := range subs {
		for _, k := range sub.FieldOrder() {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// ExportFilename names a CSV download after the day it was taken.
func ExportFilename(now time.Time) string {
	return "swedana-submissions-" + now.Format("2006-01-02") + ".csv"
}
