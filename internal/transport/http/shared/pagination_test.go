package shared

import (
	"net/http/httptest"
	"testing"
)

func TestParsePagination(t *testing.T) {
	cases := []struct {
		query  string
		limit  int
		offset int
	}{
		{"", 100, 0},
		{"?limit=20&offset=40", 20, 40},
		{"?limit=9999", 500, 0},
		{"?limit=-1&offset=abc", 100, 0},
	}
	for _, tc := range cases {
		page := ParsePagination(httptest.NewRequest("GET", "/audit/events"+tc.query, nil), 100, 500)
		if page.Limit != tc.limit || page.Offset != tc.offset {
			t.Fatalf("%q: expected %d/%d, got %d/%d", tc.query, tc.limit, tc.offset, page.Limit, page.Offset)
		}
	}
}
