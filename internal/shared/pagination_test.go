package shared

import "testing"

func TestNewPaginationClampsPastEnd(t *testing.T) {
	p := NewPagination(3, 100, 137)
	if p.Page != 2 {
		t.Fatalf("expected clamp to page 2, got %d", p.Page)
	}
	if p.TotalPages != 2 {
		t.Fatalf("expected 2 pages, got %d", p.TotalPages)
	}
}

func TestNewPaginationLastPageBounds(t *testing.T) {
	p := NewPagination(2, 100, 137)
	if p.Skip() != 100 {
		t.Fatalf("expected skip 100, got %d", p.Skip())
	}
	if p.FirstRow() != 101 || p.LastRow() != 137 {
		t.Fatalf("expected rows 101-137, got %d-%d", p.FirstRow(), p.LastRow())
	}
	if p.HasNext() {
		t.Fatal("last page must not have a next page")
	}
	if !p.HasPrev() {
		t.Fatal("page 2 must have a previous page")
	}
}

func TestNewPaginationEmpty(t *testing.T) {
	p := NewPagination(1, 100, 0)
	if p.TotalPages != 1 || p.Page != 1 {
		t.Fatalf("empty result should pin to a single page, got %+v", p)
	}
	if p.FirstRow() != 0 {
		t.Fatalf("empty result should report row 0, got %d", p.FirstRow())
	}
}

func TestNewPaginationDefaults(t *testing.T) {
	p := NewPagination(0, 0, 250)
	if p.Page != 1 || p.PerPage != 100 {
		t.Fatalf("expected defaults page=1 perPage=100, got %+v", p)
	}
	if p.TotalPages != 3 {
		t.Fatalf("expected 3 pages, got %d", p.TotalPages)
	}
}
