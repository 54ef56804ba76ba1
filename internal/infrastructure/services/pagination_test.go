package services_test

import (
	"net/url"
	"testing"

	"github.com/sophialabs/apicover/internal/infrastructure/services"
)

func TestParsePageRequest(t *testing.T) {
	tests := []struct {
		query      string
		wantOffset int
		wantLimit  int
	}{
		{"", 0, 20},
		{"page=3&size=10", 20, 10},
		{"page=0&size=-1", 0, 20},
		{"page=2&size=500", 100, 100},
		{"offset=5&limit=7", 5, 7},
		{"offset=5", 5, 20},
		{"offset=-1&limit=1000", 0, 100},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got := services.ParsePageRequest(q, 20, 100)
			if got.Offset != tt.wantOffset || got.Limit != tt.wantLimit {
				t.Errorf("ParsePageRequest(%q) = %+v, want offset=%d limit=%d", tt.query, got, tt.wantOffset, tt.wantLimit)
			}
		})
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	p := services.Paginate(items, services.PageRequest{Offset: 3, Limit: 3})
	if len(p.Data) != 3 || p.Data[0] != 4 {
		t.Errorf("Data = %v", p.Data)
	}
	if p.Page != 2 || p.TotalPages != 3 || p.TotalItems != 7 || !p.HasNext || !p.HasPrevious {
		t.Errorf("Page = %+v", p)
	}

	last := services.Paginate(items, services.PageRequest{Offset: 6, Limit: 3})
	if len(last.Data) != 1 || last.HasNext {
		t.Errorf("last page = %+v", last)
	}

	beyond := services.Paginate(items, services.PageRequest{Offset: 50, Limit: 3})
	if len(beyond.Data) != 0 || beyond.Data == nil {
		t.Errorf("out of range page should be empty, not nil: %+v", beyond)
	}

	empty := services.Paginate([]int(nil), services.PageRequest{Limit: 10})
	if empty.TotalPages != 1 || empty.HasNext || empty.HasPrevious {
		t.Errorf("empty page = %+v", empty)
	}
}
