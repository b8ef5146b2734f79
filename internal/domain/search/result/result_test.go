package result

import "testing"

func TestPage_LastPage(t *testing.T) {
	tests := []struct {
		total, perPage, want int
	}{
		{50, 15, 4},
		{45, 15, 3},
		{0, 15, 1},
		{2, 1, 2},
		{7, 0, 1},
	}
	for _, tt := range tests {
		p := Page{Total: tt.total, PerPage: tt.perPage}
		if got := p.LastPage(); got != tt.want {
			t.Errorf("LastPage(total=%d, perPage=%d) = %d, want %d", tt.total, tt.perPage, got, tt.want)
		}
	}
}

func TestPage_HasMore(t *testing.T) {
	p := Page{Total: 2, PerPage: 1, CurrentPage: 1}
	if !p.HasMore() {
		t.Error("page 1 of 2 should have more")
	}
	p.CurrentPage = 2
	if p.HasMore() {
		t.Error("page 2 of 2 should not have more")
	}
}

func TestOffset(t *testing.T) {
	if got := Offset(15, 3); got != 30 {
		t.Errorf("Offset(15, 3) = %d, want 30", got)
	}
	if got := Offset(15, 0); got != 0 {
		t.Errorf("Offset(15, 0) = %d, want 0", got)
	}
}
