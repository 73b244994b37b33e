package paging

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type status string

func TestEncode(t *testing.T) {
	tests := []struct {
		name  string
		state TableState
		want  string
	}{
		{
			name: "empty state",
			want: "",
		},
		{
			name:  "size only",
			state: TableState{PageSize: 25},
			want:  "size=25",
		},
		{
			name:  "first page omits page",
			state: TableState{PageSize: 10, PageNumber: 0},
			want:  "size=10",
		},
		{
			name:  "later page",
			state: TableState{PageSize: 10, PageNumber: 2},
			want:  "size=10&page=2",
		},
		{
			name:  "sort descending",
			state: TableState{SortField: "name", SortOrder: SortDescending},
			want:  "sort=name,desc",
		},
		{
			name:  "sort ascending has no suffix",
			state: TableState{SortField: "name", SortOrder: SortAscending},
			want:  "sort=name",
		},
		{
			name:  "sort without order",
			state: TableState{SortField: "person.lastName"},
			want:  "sort=person.lastName",
		},
		{
			name: "all segments in fixed order",
			state: TableState{
				PageSize:   20,
				PageNumber: 3,
				SortField:  "createdDate",
				SortOrder:  SortDescending,
				Filters: map[string]any{
					"onboardingStatus": "OPEN",
					"createdBy":        "jane",
				},
			},
			want: "size=20&page=3&sort=createdDate,desc&createdBy=jane&onboardingStatus=OPEN",
		},
		{
			name: "empty filter values are dropped",
			state: TableState{
				PageSize: 5,
				Filters: map[string]any{
					"a": "",
					"b": nil,
					"c": 0,
					"d": false,
					"e": time.Time{},
				},
			},
			want: "size=5",
		},
		{
			name: "typed nil values are dropped",
			state: TableState{
				PageSize: 1,
				Filters: map[string]any{
					"link":        (*url.URL)(nil),
					"createdDate": (*time.Time)(nil),
					"tags":        []string(nil),
				},
			},
			want: "size=1",
		},
		{
			name: "zero values of every integer kind are dropped",
			state: TableState{
				Filters: map[string]any{
					"a": int8(0),
					"b": int16(0),
					"c": int32(0),
					"d": int64(0),
					"e": uint(0),
					"f": uint8(0),
					"g": uint16(0),
					"h": uint32(0),
					"i": uint64(0),
					"j": float32(0),
					"k": uint16(7),
				},
			},
			want: "k=7",
		},
		{
			name: "named string and non-nil stringer",
			state: TableState{
				Filters: map[string]any{
					"onboardingStatus": status("OPEN"),
					"empty":            status(""),
					"link":             &url.URL{Scheme: "https", Host: "example.com"},
				},
			},
			want: "link=https%3A%2F%2Fexample.com&onboardingStatus=OPEN",
		},
		{
			name: "numeric filter",
			state: TableState{
				Filters: map[string]any{"contract.personnelNumber": 4711, "ratio": 0.5},
			},
			want: "contract.personnelNumber=4711&ratio=0.5",
		},
		{
			name: "raw values are escaped",
			state: TableState{
				Filters: map[string]any{"person.lastName": "Müller & Sons"},
			},
			want: "person.lastName=M%C3%BCller+%26+Sons",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Encode(tt.state))
		})
	}
}

func TestEncode_DateFilters(t *testing.T) {
	t.Run("time value on date field", func(t *testing.T) {
		ts := time.Date(2024, 3, 1, 9, 30, 15, 0, time.UTC)
		got := Encode(TableState{Filters: map[string]any{"createdDate": ts}})
		assert.Equal(t, "createdDate=2024-03-01T09:30:15Z", got)
	})

	t.Run("time value is rendered in UTC", func(t *testing.T) {
		loc := time.FixedZone("CET", 3600)
		ts := time.Date(2024, 3, 1, 10, 0, 0, 0, loc)
		got := Encode(TableState{Filters: map[string]any{"lastModifiedDate": ts}})
		assert.Equal(t, "lastModifiedDate=2024-03-01T09:00:00Z", got)
	})

	t.Run("parseable string on date field", func(t *testing.T) {
		for _, in := range []string{"2024-03-01", "01.03.2024", "2024-03-01T00:00:00Z", "2024-03-01T00:00:00"} {
			got := Encode(TableState{Filters: map[string]any{"createdDate": in}})
			assert.Equal(t, "createdDate=2024-03-01T00:00:00Z", got, in)
		}
	})

	t.Run("unparseable string falls back to raw value", func(t *testing.T) {
		assert.NotPanics(t, func() {
			got := Encode(TableState{Filters: map[string]any{"createdDate": "yesterday"}})
			assert.Equal(t, "createdDate=yesterday", got)
		})
	})

	t.Run("date string on other field stays raw", func(t *testing.T) {
		got := Encode(TableState{Filters: map[string]any{"birthDate": "2024-03-01"}})
		assert.Equal(t, "birthDate=2024-03-01", got)
	})

	t.Run("nil time pointer is dropped", func(t *testing.T) {
		var ts *time.Time
		got := Encode(TableState{PageSize: 1, Filters: map[string]any{"createdDate": ts}})
		assert.Equal(t, "size=1", got)
	})
}

func TestEncode_DeterministicFilterOrder(t *testing.T) {
	state := TableState{Filters: map[string]any{
		"zeta": "1", "alpha": "2", "mid": "3", "beta": "4",
	}}

	first := Encode(state)
	for range 50 {
		assert.Equal(t, first, Encode(state))
	}
	assert.Equal(t, "alpha=2&beta=4&mid=3&zeta=1", first)
}

func TestParseSortOrder(t *testing.T) {
	assert.Equal(t, SortAscending, ParseSortOrder("asc"))
	assert.Equal(t, SortAscending, ParseSortOrder("Ascending"))
	assert.Equal(t, SortDescending, ParseSortOrder("DESC"))
	assert.Equal(t, SortDescending, ParseSortOrder("descending"))
	assert.Equal(t, SortNone, ParseSortOrder(""))
	assert.Equal(t, SortNone, ParseSortOrder("sideways"))
}

func TestSortOrderFromInt(t *testing.T) {
	assert.Equal(t, SortAscending, SortOrderFromInt(1))
	assert.Equal(t, SortDescending, SortOrderFromInt(-1))
	assert.Equal(t, SortNone, SortOrderFromInt(0))
}

func TestTableState_Next(t *testing.T) {
	next := TableState{PageSize: 10}.Next()
	assert.Equal(t, 1, next.PageNumber)
	assert.Equal(t, 10, next.PageOffset)
	assert.Equal(t, "size=10&page=1", Encode(next))
}

func TestTableState_WithFilter(t *testing.T) {
	base := TableState{Filters: map[string]any{"a": "1"}}
	withB := base.WithFilter("b", "2")

	assert.Len(t, base.Filters, 1, "original filters must not be modified")
	assert.Equal(t, "a=1&b=2", Encode(withB))
}

func TestPageState_HasNext(t *testing.T) {
	assert.True(t, PageState{Number: 0, TotalPages: 2}.HasNext())
	assert.False(t, PageState{Number: 1, TotalPages: 2}.HasNext())
	assert.False(t, PageState{}.HasNext())
}
