package api

import (
	"net/http/httptest"
	"testing"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
		wantErr    bool
	}{
		{"defaults", "", 50, 0, false},
		{"explicit", "?limit=10&offset=20", 10, 20, false},
		{"zero_limit_rejected", "?limit=0", 0, 0, true},
		{"negative_offset_rejected", "?offset=-1", 0, 0, true},
		{"non_numeric_rejected", "?limit=abc", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/notes"+tt.query, nil)
			p, err := ParsePagination(r)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Limit != tt.wantLimit || p.Offset != tt.wantOffset {
				t.Errorf("got limit=%d offset=%d, want %d/%d", p.Limit, p.Offset, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestParseSort(t *testing.T) {
	allowed := map[string]string{"created_at": "created_at", "status": "status"}

	tests := []struct {
		name        string
		query       string
		wantOrderBy string
	}{
		{"default_desc", "", "created_at DESC"},
		{"explicit_field", "?sort=status", "status ASC"},
		{"desc_prefix", "?sort=-status", "status DESC"},
		{"unknown_field_falls_back", "?sort=transcript", "created_at DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/notes"+tt.query, nil)
			s := ParseSort(r, "-created_at", allowed)
			if got := s.SQLOrderBy(allowed); got != tt.wantOrderBy {
				t.Errorf("SQLOrderBy = %q, want %q", got, tt.wantOrderBy)
			}
		})
	}
}

func TestQueryInt64List(t *testing.T) {
	r := httptest.NewRequest("GET", "/events/stream?note_ids=1,%202,abc,3", nil)
	got := QueryInt64List(r, "note_ids")
	want := []int64{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
			break
		}
	}
}
