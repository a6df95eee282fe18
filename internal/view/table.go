package view

import (
	"net/url"
	"strings"
	"time"
)

// Placeholder rendered for absent cell values.
const MissingCell = "—"

// Sort directions.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// SortSpec is the active sort of a data table.
type SortSpec struct {
	Key string
	Dir string
}

// DefaultReportSort orders the penalty report by newest incident first.
var DefaultReportSort = SortSpec{Key: "IncidentLog_PRK", Dir: SortDesc}

// Toggle returns the sort that results from clicking the header of key:
// same key inverts the direction, a new key starts ascending.
func (s SortSpec) Toggle(key string) SortSpec {
	if s.Key == key {
		dir := SortAsc
		if s.Dir == SortAsc {
			dir = SortDesc
		}
		return SortSpec{Key: key, Dir: dir}
	}
	return SortSpec{Key: key, Dir: SortAsc}
}

// ParseSort reads a sort spec off query values, falling back to def.
func ParseSort(values url.Values, def SortSpec) SortSpec {
	key := values.Get("sort_key")
	if key == "" {
		return def
	}
	dir := values.Get("sort_dir")
	if dir != SortAsc && dir != SortDesc {
		dir = SortAsc
	}
	return SortSpec{Key: key, Dir: dir}
}

// Query encodes the sort as query parameters for a header link.
func (s SortSpec) Query(values url.Values) url.Values {
	out := url.Values{}
	for k, v := range values {
		out[k] = v
	}
	out.Set("sort_key", s.Key)
	out.Set("sort_dir", s.Dir)
	return out
}

// Column describes one table column.
type Column struct {
	Key    string
	Header string
	Width  string
	// Custom marks columns rendered by a dedicated widget (the waiver
	// sub-category selector) instead of plain text.
	Custom bool
}

// Cell is one rendered table cell.
type Cell struct {
	Key    string
	Text   string
	Custom bool
}

// FormatCell applies the per-column display rules: currency columns get a
// fixed two-decimal amount with the currency glyph, date/time suffixed keys
// render as local timestamps with the raw value as fallback, and absent
// values render the placeholder.
func FormatCell(key string, value any) string {
	if value == nil {
		return MissingCell
	}
	switch v := value.(type) {
	case string:
		if v == "" {
			return MissingCell
		}
		if isTimeKey(key) {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				return t.Local().Format("02 Jan 2006 15:04:05")
			}
			return v
		}
		return v
	case *string:
		if v == nil {
			return MissingCell
		}
		return FormatCell(key, *v)
	case time.Time:
		if v.IsZero() {
			return MissingCell
		}
		return v.Local().Format("02 Jan 2006 15:04:05")
	case *time.Time:
		if v == nil {
			return MissingCell
		}
		return FormatCell(key, *v)
	case float64:
		if isCurrencyKey(key) {
			return Currency(v)
		}
		return currencyPrinter.Sprintf("%v", v)
	case int:
		return currencyPrinter.Sprintf("%d", v)
	case int64:
		return currencyPrinter.Sprintf("%d", v)
	case *int64:
		if v == nil {
			return MissingCell
		}
		return currencyPrinter.Sprintf("%d", *v)
	default:
		return currencyPrinter.Sprintf("%v", v)
	}
}

func isCurrencyKey(key string) bool {
	return strings.Contains(key, "Penalty") || strings.Contains(key, "Amount")
}

func isTimeKey(key string) bool {
	return strings.HasSuffix(key, "Time") || strings.HasSuffix(key, "_DTM")
}
