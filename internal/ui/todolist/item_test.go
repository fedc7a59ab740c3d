package todolist

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestFitRowStaysWithinWidth(t *testing.T) {
	tests := []struct {
		name, title, meta string
		avail             int
		wantMeta          bool
	}{
		{"ascii fits", "Buy milk", "due 2026-04-01", 40, true},
		{"wide runes", "牛乳を買う牛乳を買う", "due 2026-04-01", 40, true},
		{"wide runes leave no room", "牛乳を買う牛乳を買う牛乳を買う", "due 2026-04-01", 36, false},
		{"long title truncated", "an extremely long title that will not fit on one row", "notes", 20, false},
		{"no meta", "Walk dog", "", 40, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, meta := fitRow(tt.title, tt.meta, tt.avail)
			used := lipgloss.Width(title)
			if meta != "" {
				used += 2 + lipgloss.Width(meta)
			}
			if used > tt.avail {
				t.Fatalf("row uses %d cells, only %d available (title %q, meta %q)", used, tt.avail, title, meta)
			}
			if (meta != "") != tt.wantMeta {
				t.Fatalf("meta = %q, wantMeta %v", meta, tt.wantMeta)
			}
		})
	}
}
