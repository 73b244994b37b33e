// Package paging turns the lazy state of a data table into the query string understood by the
// listing endpoints of the onboarding API.
package paging

import (
	"fmt"
	"maps"
	"net/url"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the format of date-valued filters on the wire.
const TimestampLayout = "2006-01-02T15:04:05Z"

// SortOrder is the direction of the sorted column.
type SortOrder int

const (
	SortNone SortOrder = iota
	SortAscending
	SortDescending
)

func (o SortOrder) String() string {
	switch o {
	case SortAscending:
		return "ascending"
	case SortDescending:
		return "descending"
	default:
		return "none"
	}
}

// ParseSortOrder accepts asc, ascending, desc and descending in any case. Anything else is SortNone.
func ParseSortOrder(s string) SortOrder {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return SortAscending
	case "desc", "descending":
		return SortDescending
	default:
		return SortNone
	}
}

// SortOrderFromInt maps the numeric table convention (1 ascending, -1 descending, 0 unsorted).
func SortOrderFromInt(i int) SortOrder {
	switch {
	case i > 0:
		return SortAscending
	case i < 0:
		return SortDescending
	default:
		return SortNone
	}
}

// dateFields are filtered by timestamp rather than by raw value.
var dateFields = []string{"createdDate", "lastModifiedDate"}

// dateLayouts are tried in order when a date field carries a string value.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
	"02.01.2006",
}

// TableState is the transient pagination, sort and filter state of a table view.
type TableState struct {
	PageOffset int
	PageSize   int
	PageNumber int
	SortField  string
	SortOrder  SortOrder
	Filters    map[string]any
}

// Next returns the state for the following page.
func (t TableState) Next() TableState {
	t.PageNumber++
	t.PageOffset = t.PageNumber * t.PageSize
	return t
}

// WithFilter returns a copy of the state with the filter for field set to value.
func (t TableState) WithFilter(field string, value any) TableState {
	filters := make(map[string]any, len(t.Filters)+1)
	maps.Copy(filters, t.Filters)
	filters[field] = value
	t.Filters = filters
	return t
}

// Encode builds the listing query string: size, page, sort and then the filters ordered by field
// name. It returns an empty string when nothing applies and never fails; values it cannot interpret
// are emitted as their string form.
func Encode(t TableState) string {
	var segments []string

	if t.PageSize > 0 {
		segments = append(segments, "size="+strconv.Itoa(t.PageSize))
	}

	// The first page (0) carries no page parameter; the server defaults to it.
	if t.PageNumber != 0 {
		segments = append(segments, "page="+strconv.Itoa(t.PageNumber))
	}

	if t.SortField != "" {
		sort := "sort=" + url.QueryEscape(t.SortField)
		if t.SortOrder == SortDescending {
			sort += ",desc"
		}
		segments = append(segments, sort)
	}

	for _, field := range slices.Sorted(maps.Keys(t.Filters)) {
		if segment, ok := filterSegment(field, t.Filters[field]); ok {
			segments = append(segments, segment)
		}
	}

	return strings.Join(segments, "&")
}

func filterSegment(field string, value any) (string, bool) {
	if isEmpty(value) {
		return "", false
	}

	key := url.QueryEscape(field)

	if slices.Contains(dateFields, field) {
		if ts, ok := asTime(value); ok {
			return key + "=" + ts.UTC().Format(TimestampLayout), true
		}
	}

	return key + "=" + url.QueryEscape(stringify(value)), true
}

// isEmpty reports whether a filter value is falsy: nil (including typed nil pointers), the zero
// value of any string, bool or numeric kind, a zero time, or a Stringer rendering "".
func isEmpty(value any) bool {
	if value == nil {
		return true
	}

	switch v := value.(type) {
	case time.Time:
		return v.IsZero()
	case *time.Time:
		return v == nil || v.IsZero()
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return true
		}
	case reflect.String:
		return rv.String() == ""
	case reflect.Bool:
		return !rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0
	}

	if v, ok := value.(fmt.Stringer); ok {
		return v.String() == ""
	}

	return false
}

func asTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case *time.Time:
		return *v, true
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case time.Time:
		return v.Format(time.RFC3339)
	case *time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// PageState is the page metadata returned alongside a listing.
type PageState struct {
	Size          int `json:"size"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
	Number        int `json:"number"`
}

// HasNext reports whether a page follows the current one.
func (p PageState) HasNext() bool {
	return p.Number+1 < p.TotalPages
}
