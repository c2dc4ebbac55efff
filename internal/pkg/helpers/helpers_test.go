package helpers

import "testing"

func TestCalculateOffsetLimit(t *testing.T) {
	cases := []struct {
		page, size int
		offset     uint64
		limit      int
	}{
		{1, 10, 0, 10},
		{3, 10, 20, 10},
		{0, 10, 0, 10},
		{2, 0, DefaultPageSize, DefaultPageSize},
		{1, MaxPageSize + 1, 0, DefaultPageSize},
	}
	for _, tc := range cases {
		offset, limit := CalculateOffsetLimit(tc.page, tc.size)
		if offset != tc.offset || limit != tc.limit {
			t.Errorf("CalculateOffsetLimit(%d, %d) = %d, %d; want %d, %d",
				tc.page, tc.size, offset, limit, tc.offset, tc.limit)
		}
	}
}

func TestNewPaginationInfo(t *testing.T) {
	p := NewPaginationInfo(45, 2, 20)
	if p.TotalPages != 3 || p.CurrentPage != 2 || p.TotalItems != 45 {
		t.Errorf("unexpected pagination: %+v", p)
	}

	empty := NewPaginationInfo(0, 4, 20)
	if empty.TotalPages != 1 || empty.CurrentPage != 1 {
		t.Errorf("empty listing: %+v", empty)
	}
}
