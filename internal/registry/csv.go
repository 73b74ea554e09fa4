package registry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const untitledName = "Untitled"

var knownColumns = map[string]struct{}{
	"id":          {},
	"name":        {},
	"date":        {},
	"description": {},
	"photos":      {},
}

// ParseCSV reads registry entries from a spreadsheet export.
//
// The first row is a header. When it names the known columns (id, name, date,
// description, photos) they are read by name; otherwise rows are positional
// name,date,description,photos and rows with fewer than four fields are
// skipped. Photos may be separated by commas or semicolons. Rows without an id
// get "artifact-<n>", where n is the row's line distance from the header, so
// blank lines in the sheet still advance the numbering.
func ParseCSV(r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse registry csv header: %w", err)
	}
	columns, named := headerColumns(header)
	headerLine, _ := reader.FieldPos(0)

	var entries []Entry
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse registry csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		row := line - headerLine
		if blankRecord(record) {
			continue
		}
		if !named && len(record) < 4 {
			continue
		}
		entry := Entry{
			ID:          field(record, columns, "id"),
			Name:        field(record, columns, "name"),
			Date:        field(record, columns, "date"),
			Description: field(record, columns, "description"),
			Photos:      SplitPhotos(field(record, columns, "photos")),
		}
		entry.normalize()
		if entry.ID == "" {
			entry.ID = "artifact-" + strconv.Itoa(row)
		}
		if entry.Name == "" {
			entry.Name = untitledName
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// SplitPhotos splits a photo cell into URLs on commas or semicolons.
func SplitPhotos(value string) []string {
	parts := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ';'
	})
	return cleanPhotos(parts)
}

func headerColumns(header []string) (map[string]int, bool) {
	columns := make(map[string]int, len(header))
	for idx, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, ok := knownColumns[key]; !ok {
			continue
		}
		if _, dup := columns[key]; !dup {
			columns[key] = idx
		}
	}
	if _, ok := columns["name"]; ok {
		return columns, true
	}
	return map[string]int{"name": 0, "date": 1, "description": 2, "photos": 3}, false
}

func field(record []string, columns map[string]int, key string) string {
	idx, ok := columns[key]
	if !ok || idx >= len(record) {
		return ""
	}
	return record[idx]
}

func blankRecord(record []string) bool {
	for _, value := range record {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}
