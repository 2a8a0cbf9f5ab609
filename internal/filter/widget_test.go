package filter

import (
	"strings"
	"testing"
)

func testOptions() []Option {
	return []Option{
		{Label: "Marcus Aurelius", Value: "1"},
		{Label: "Seneca", Value: "2"},
		{Label: "Epictetus", Value: "3"},
		{Label: "Maya Angelou", Value: "4"},
	}
}

func newTestWidget(t *testing.T, group string) *Widget {
	t.Helper()
	w, err := NewWidget(WidgetConfig{Group: group, Options: testOptions()})
	if err != nil {
		t.Fatalf("NewWidget: %v", err)
	}
	return w
}

func TestNewWidgetStartsClosedAndUnselected(t *testing.T) {
	w := newTestWidget(t, "authors")
	if w.State() != Closed {
		t.Fatalf("state = %v, want closed", w.State())
	}
	if w.Len() != 4 {
		t.Fatalf("len = %d, want 4", w.Len())
	}
	for i, e := range w.Entries() {
		if e.Selected || !e.Visible {
			t.Fatalf("entry %d = %+v, want unselected and visible", i, e)
		}
	}
}

func TestNewWidgetRejectsBadConfig(t *testing.T) {
	if _, err := NewWidget(WidgetConfig{Group: "  "}); err == nil {
		t.Fatal("expected error for empty group")
	}
	_, err := NewWidget(WidgetConfig{Group: "tags", Options: []Option{
		{Label: "Hope", Value: "7"},
		{Label: "Hope again", Value: "7"},
	}})
	if err == nil || !strings.Contains(err.Error(), `"7"`) {
		t.Fatalf("err = %v, want duplicate value error", err)
	}
}

func TestToggleRequiresOpen(t *testing.T) {
	w := newTestWidget(t, "authors")
	if w.Toggle(0) {
		t.Fatal("toggle on closed widget should be a no-op")
	}
	w.Focus()
	if !w.Toggle(0) {
		t.Fatal("toggle on open widget should succeed")
	}
	if w.State() != Open {
		t.Fatalf("toggle changed state to %v", w.State())
	}
	if w.Toggle(-1) || w.Toggle(99) {
		t.Fatal("out of range toggle should be a no-op")
	}
}

func TestSelectedDisplayTracksNetSelection(t *testing.T) {
	tests := []struct {
		name    string
		toggles []int
		want    []string
	}{
		{name: "none", toggles: nil, want: nil},
		{name: "single", toggles: []int{1}, want: []string{"Seneca"}},
		{name: "double toggle is a no-op", toggles: []int{1, 1}, want: nil},
		{name: "option order not click order", toggles: []int{3, 0, 2}, want: []string{"Marcus Aurelius", "Epictetus", "Maya Angelou"}},
		{name: "mixed", toggles: []int{0, 1, 0, 2, 3, 3}, want: []string{"Seneca", "Epictetus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWidget(t, "authors")
			w.Focus()
			for _, i := range tt.toggles {
				w.Toggle(i)
			}
			got := strings.Join(w.SelectedLabels(), ",")
			if got != strings.Join(tt.want, ",") {
				t.Fatalf("selected labels = %q, want %q", got, strings.Join(tt.want, ","))
			}
			var fromSet []string
			for _, o := range w.Selected() {
				fromSet = append(fromSet, o.Label)
			}
			if strings.Join(fromSet, ",") != got {
				t.Fatalf("display %q diverged from selection set %q", got, strings.Join(fromSet, ","))
			}
		})
	}
}

func TestSetQueryHidesNonMatchingCaseInsensitive(t *testing.T) {
	w := newTestWidget(t, "authors")
	w.Focus()
	w.Toggle(1)

	w.SetQuery("MA")
	var visible []string
	for _, e := range w.Entries() {
		if e.Visible {
			visible = append(visible, e.Label)
		}
	}
	if got := strings.Join(visible, ","); got != "Marcus Aurelius,Maya Angelou" {
		t.Fatalf("visible = %q", got)
	}
	if got := strings.Join(w.SelectedValues(), ","); got != "2" {
		t.Fatalf("query changed selection: %q", got)
	}

	w.SetQuery("")
	if len(w.VisibleIndexes()) != 4 {
		t.Fatalf("empty query should show every entry, got %v", w.VisibleIndexes())
	}
}

func TestToggleIgnoresHiddenEntries(t *testing.T) {
	w := newTestWidget(t, "authors")
	w.Focus()
	w.SetQuery("seneca")
	if w.Toggle(0) {
		t.Fatal("hidden entry should not toggle")
	}
	if !w.Toggle(1) {
		t.Fatal("visible entry should toggle")
	}
}

func TestClearUnselectsEverything(t *testing.T) {
	w := newTestWidget(t, "authors")
	w.Focus()
	w.Toggle(0)
	w.Toggle(2)
	w.Clear()
	if len(w.Selected()) != 0 {
		t.Fatalf("selected after clear = %v", w.Selected())
	}
}

func TestSuggestionOnlyWhenEverythingHidden(t *testing.T) {
	w := newTestWidget(t, "authors")

	w.SetQuery("sen")
	if _, ok := w.Suggestion(); ok {
		t.Fatal("no suggestion expected while entries are visible")
	}

	w.SetQuery("Senaca")
	got, ok := w.Suggestion()
	if !ok || got != "Seneca" {
		t.Fatalf("suggestion = (%q,%v), want (Seneca,true)", got, ok)
	}

	w.SetQuery("zzzzzzzzzzzzzzzzzz")
	if _, ok := w.Suggestion(); ok {
		t.Fatal("no suggestion expected for an unrelated query")
	}
}
