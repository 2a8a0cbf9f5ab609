package tui

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/quotefilter/internal/filter"
)

type call struct {
	payload filter.Payload
	token   string
}

type fakeSubmitter struct {
	calls []call
	body  string
	err   error
}

func (f *fakeSubmitter) FilterQuotes(_ context.Context, payload filter.Payload, token string) (string, error) {
	f.calls = append(f.calls, call{payload: payload, token: token})
	return f.body, f.err
}

func newTestApp(t *testing.T, sub *fakeSubmitter, cfgs ...filter.WidgetConfig) *App {
	t.Helper()
	widgets := make([]*filter.Widget, 0, len(cfgs))
	for _, cfg := range cfgs {
		w, err := filter.NewWidget(cfg)
		if err != nil {
			t.Fatalf("NewWidget: %v", err)
		}
		widgets = append(widgets, w)
	}
	ctrl, err := filter.NewController(widgets, "<tr><td>initial</td></tr>", nil)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	a := New(context.Background(), ctrl, sub, Options{Token: "tok-123", Source: "http://quotes.test/"})
	a.Update(tea.WindowSizeMsg{Width: 100, Height: 60})
	return a
}

func authorsConfig() filter.WidgetConfig {
	return filter.WidgetConfig{Group: "authors", Options: []filter.Option{
		{Label: "Alice", Value: "a1"},
		{Label: "Bob", Value: "b2"},
	}}
}

func booksConfig() filter.WidgetConfig {
	return filter.WidgetConfig{Group: "books", Options: []filter.Option{
		{Label: "Meditations", Value: "7"},
		{Label: "Letters", Value: "8"},
	}}
}

func keyMsg(t tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: t} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func send(a *App, msg tea.Msg) tea.Cmd {
	_, cmd := a.Update(msg)
	return cmd
}

func typeText(a *App, s string) {
	for _, r := range s {
		send(a, runes(string(r)))
	}
}

// runApply executes an apply command and feeds its result back.
func runApply(t *testing.T, a *App, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected an apply command")
	}
	msg := cmd()
	if _, ok := msg.(applyDoneMsg); !ok {
		t.Fatalf("apply command returned %T, want applyDoneMsg", msg)
	}
	send(a, msg)
}

func click(a *App, x, y int) tea.Cmd {
	return send(a, tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
}

// rowOf finds the first rendered row hitting kind in widget w (entry e when
// kind is targetEntry).
func rowOf(t *testing.T, a *App, kind targetKind, w, e int) int {
	t.Helper()
	_, targets := a.layout()
	for y, tg := range targets {
		if tg.kind != kind {
			continue
		}
		if kind == targetApply || (tg.widget == w && (kind != targetEntry || tg.entry == e)) {
			return y
		}
	}
	t.Fatalf("no row for kind=%d widget=%d entry=%d", kind, w, e)
	return -1
}

func TestSelectBobThenApplyReplacesResults(t *testing.T) {
	sub := &fakeSubmitter{body: "<tr><td>Bob's quote</td></tr>"}
	a := newTestApp(t, sub, authorsConfig())

	send(a, keyMsg(tea.KeyTab))
	authors, _ := a.ctrl.Widget("authors")
	if !authors.IsOpen() {
		t.Fatal("focusing the search field should open the widget")
	}
	send(a, keyMsg(tea.KeyDown))
	send(a, keyMsg(tea.KeyEnter))

	runApply(t, a, send(a, keyMsg(tea.KeyCtrlA)))

	if len(sub.calls) != 1 {
		t.Fatalf("submit calls = %d, want 1", len(sub.calls))
	}
	want := filter.Payload{"authors": {"b2"}}
	if !reflect.DeepEqual(sub.calls[0].payload, want) {
		t.Fatalf("payload = %v, want %v", sub.calls[0].payload, want)
	}
	if sub.calls[0].token != "tok-123" {
		t.Fatalf("token = %q", sub.calls[0].token)
	}
	if got := a.ctrl.Results(); got != "<tr><td>Bob's quote</td></tr>" {
		t.Fatalf("results = %q", got)
	}
	if !strings.Contains(a.View(), "Bob's quote") {
		t.Fatalf("view should show new results:\n%s", a.View())
	}
}

func TestApplyWithNothingSelectedStillSubmits(t *testing.T) {
	sub := &fakeSubmitter{body: "<tr><td>all</td></tr>"}
	a := newTestApp(t, sub, authorsConfig(), booksConfig())

	runApply(t, a, send(a, keyMsg(tea.KeyCtrlA)))

	if len(sub.calls) != 1 {
		t.Fatalf("submit calls = %d, want 1", len(sub.calls))
	}
	if len(sub.calls[0].payload) != 0 {
		t.Fatalf("payload = %v, want empty", sub.calls[0].payload)
	}
}

func TestTypingFiltersEntriesWithoutChangingSelection(t *testing.T) {
	a := newTestApp(t, &fakeSubmitter{}, authorsConfig())
	authors, _ := a.ctrl.Widget("authors")

	send(a, keyMsg(tea.KeyTab))
	send(a, keyMsg(tea.KeyEnter)) // select Alice
	typeText(a, "BO")

	if authors.Query() != "BO" {
		t.Fatalf("query = %q, want BO", authors.Query())
	}
	if got := authors.VisibleIndexes(); !reflect.DeepEqual(got, []int{1}) {
		t.Fatalf("visible = %v, want [1]", got)
	}
	if got := authors.SelectedValues(); !reflect.DeepEqual(got, []string{"a1"}) {
		t.Fatalf("selection changed by filtering: %v", got)
	}

	// cursor clamps onto the only visible entry
	send(a, keyMsg(tea.KeyEnter))
	if got := authors.SelectedValues(); !reflect.DeepEqual(got, []string{"a1", "b2"}) {
		t.Fatalf("selected = %v, want [a1 b2]", got)
	}
}

func TestNoMatchShowsSuggestion(t *testing.T) {
	a := newTestApp(t, &fakeSubmitter{}, authorsConfig())
	send(a, keyMsg(tea.KeyTab))
	typeText(a, "Alcie")

	view := a.View()
	if !strings.Contains(view, `did you mean "Alice"?`) {
		t.Fatalf("expected suggestion in view:\n%s", view)
	}
}

func TestMouseOutsideClickClosesInsideClickKeepsOpen(t *testing.T) {
	a := newTestApp(t, &fakeSubmitter{}, authorsConfig(), booksConfig())
	authors, _ := a.ctrl.Widget("authors")
	books, _ := a.ctrl.Widget("books")

	click(a, 3, rowOf(t, a, targetSearch, 1, -1))
	if !books.IsOpen() || a.focus != 1 {
		t.Fatalf("clicking the books search field should open and focus it (open=%v focus=%d)", books.IsOpen(), a.focus)
	}

	click(a, 3, rowOf(t, a, targetSearch, 0, -1))
	if !authors.IsOpen() {
		t.Fatal("authors should open")
	}
	if books.IsOpen() {
		t.Fatal("clicking authors is outside books and should close it")
	}

	click(a, 6, rowOf(t, a, targetEntry, 0, 1))
	if !authors.IsOpen() {
		t.Fatal("clicking an entry must not close its widget")
	}
	if got := authors.SelectedLabels(); !reflect.DeepEqual(got, []string{"Bob"}) {
		t.Fatalf("selected = %v, want [Bob]", got)
	}

	click(a, 1, rowOf(t, a, targetInside, 0, -1))
	if !authors.IsOpen() {
		t.Fatal("clicking the widget header must not close it")
	}

	_, targets := a.layout()
	click(a, 1, len(targets)-1) // a results row
	if authors.IsOpen() || books.IsOpen() {
		t.Fatal("clicking outside every widget should close them all")
	}
	if a.focus != -1 {
		t.Fatalf("focus = %d, want -1 after outside click", a.focus)
	}
}

func TestApplyControlHitTest(t *testing.T) {
	sub := &fakeSubmitter{body: "<tr><td>x</td></tr>"}
	a := newTestApp(t, sub, authorsConfig())
	y := rowOf(t, a, targetApply, -1, -1)

	if cmd := click(a, 60, y); cmd != nil {
		t.Fatal("a press right of the apply control should not apply")
	}
	runApply(t, a, click(a, 2, y))
	if len(sub.calls) != 1 {
		t.Fatalf("submit calls = %d, want 1", len(sub.calls))
	}
}

func TestStaleResponseIsDropped(t *testing.T) {
	sub := &fakeSubmitter{}
	a := newTestApp(t, sub, authorsConfig())

	sub.body = "<tr><td>first</td></tr>"
	first := send(a, keyMsg(tea.KeyCtrlA))
	firstMsg := first()
	sub.body = "<tr><td>second</td></tr>"
	second := send(a, keyMsg(tea.KeyCtrlA))
	secondMsg := second()

	send(a, secondMsg)
	send(a, firstMsg)

	if got := a.ctrl.Results(); got != "<tr><td>second</td></tr>" {
		t.Fatalf("results = %q, want the latest request's response", got)
	}
	if a.inFlight != 0 {
		t.Fatalf("inFlight = %d, want 0", a.inFlight)
	}
}

func TestApplyFailureKeepsResults(t *testing.T) {
	sub := &fakeSubmitter{err: errors.New("connection refused")}
	a := newTestApp(t, sub, authorsConfig())

	runApply(t, a, send(a, keyMsg(tea.KeyCtrlA)))

	if got := a.ctrl.Results(); got != "<tr><td>initial</td></tr>" {
		t.Fatalf("results = %q, want initial content", got)
	}
}

func TestSelectedBadgesFollowSelection(t *testing.T) {
	a := newTestApp(t, &fakeSubmitter{}, authorsConfig())
	send(a, keyMsg(tea.KeyTab))
	send(a, keyMsg(tea.KeyEnter))
	send(a, keyMsg(tea.KeyDown))
	send(a, keyMsg(tea.KeyEnter))

	lines, _ := a.layout()
	header := lines[rowOf(t, a, targetInside, 0, -1)]
	if !strings.Contains(header, "Alice") || !strings.Contains(header, "Bob") {
		t.Fatalf("header should carry both badges: %q", header)
	}

	send(a, keyMsg(tea.KeyEnter)) // unselect Bob
	lines, _ = a.layout()
	header = lines[rowOf(t, a, targetInside, 0, -1)]
	if strings.Contains(header, "Bob") {
		t.Fatalf("Bob badge should be gone: %q", header)
	}

	send(a, keyMsg(tea.KeyCtrlX))
	lines, _ = a.layout()
	header = lines[rowOf(t, a, targetInside, 0, -1)]
	if !strings.Contains(header, "none selected") {
		t.Fatalf("clear should empty the display: %q", header)
	}
}

func TestEscClosesEverything(t *testing.T) {
	a := newTestApp(t, &fakeSubmitter{}, authorsConfig(), booksConfig())
	send(a, keyMsg(tea.KeyTab))
	send(a, keyMsg(tea.KeyTab))
	send(a, keyMsg(tea.KeyEsc))
	for _, w := range a.ctrl.Widgets() {
		if w.IsOpen() {
			t.Fatalf("%s still open after esc", w.Group())
		}
	}
	if a.focus != -1 {
		t.Fatalf("focus = %d, want -1", a.focus)
	}
}

func TestRawAndTextResultViews(t *testing.T) {
	a := newTestApp(t, &fakeSubmitter{}, authorsConfig())

	if view := a.View(); !strings.Contains(view, "initial") || strings.Contains(view, "<td>") {
		t.Fatalf("text view should strip markup:\n%s", view)
	}
	send(a, keyMsg(tea.KeyCtrlR))
	if view := a.View(); !strings.Contains(view, "<tr><td>initial</td></tr>") {
		t.Fatalf("raw view should show markup verbatim:\n%s", view)
	}
}

func TestListWindowKeepsCursorVisible(t *testing.T) {
	tests := []struct {
		n, cursor, size int
		start, end      int
	}{
		{n: 3, cursor: 2, size: 8, start: 0, end: 3},
		{n: 20, cursor: 0, size: 8, start: 0, end: 8},
		{n: 20, cursor: 10, size: 8, start: 3, end: 11},
		{n: 20, cursor: 19, size: 8, start: 12, end: 20},
	}
	for _, tt := range tests {
		start, end := listWindow(tt.n, tt.cursor, tt.size)
		if start != tt.start || end != tt.end {
			t.Fatalf("listWindow(%d,%d,%d) = (%d,%d), want (%d,%d)", tt.n, tt.cursor, tt.size, start, end, tt.start, tt.end)
		}
	}
}

func manyConfigs(groups, options int) []filter.WidgetConfig {
	cfgs := make([]filter.WidgetConfig, groups)
	for g := range cfgs {
		cfgs[g].Group = fmt.Sprintf("g%d", g)
		for o := 0; o < options; o++ {
			cfgs[g].Options = append(cfgs[g].Options, filter.Option{
				Label: fmt.Sprintf("g%d-opt%d", g, o),
				Value: fmt.Sprint(o),
			})
		}
	}
	return cfgs
}

func TestShortTerminalKeepsClicksOnTheirRows(t *testing.T) {
	a := newTestApp(t, &fakeSubmitter{}, manyConfigs(4, 10)...)
	a.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	for i := 0; i < 4; i++ {
		send(a, keyMsg(tea.KeyTab))
	}
	for _, w := range a.ctrl.Widgets() {
		w.Focus()
	}
	for i := 0; i < 5; i++ {
		send(a, keyMsg(tea.KeyDown))
	}

	if n := strings.Count(a.View(), "\n") + 1; n > 30 {
		t.Fatalf("view has %d rows, terminal has 30", n)
	}
	lines, targets := a.layout()
	if len(lines) != len(targets) {
		t.Fatalf("lines=%d targets=%d", len(lines), len(targets))
	}

	y := rowOf(t, a, targetEntry, 3, 5)
	if !strings.Contains(lines[y], "g3-opt5") {
		t.Fatalf("row %d shows %q, want the cursor entry g3-opt5", y, lines[y])
	}
	click(a, 6, y)
	g3, _ := a.ctrl.Widget("g3")
	if got := g3.SelectedLabels(); !reflect.DeepEqual(got, []string{"g3-opt5"}) {
		t.Fatalf("selected = %v, want [g3-opt5]", got)
	}
	if !g3.IsOpen() {
		t.Fatal("clicking an entry must not close its widget")
	}
	for _, name := range []string{"g0", "g1", "g2"} {
		w, _ := a.ctrl.Widget(name)
		if len(w.Selected()) != 0 {
			t.Fatalf("%s picked up a selection from a click on g3", name)
		}
	}
	rowOf(t, a, targetApply, -1, -1)
}

func TestScrollTop(t *testing.T) {
	tests := []struct {
		n, size, start, end int
		want                int
	}{
		{n: 10, size: 20, start: 5, end: 7, want: 0},
		{n: 40, size: 10, start: -1, end: -1, want: 0},
		{n: 40, size: 10, start: 12, end: 15, want: 12},
		{n: 40, size: 10, start: 36, end: 38, want: 30},
		{n: 40, size: 4, start: 10, end: 20, want: 17},
		{n: 40, size: 0, start: 10, end: 12, want: 0},
	}
	for _, tt := range tests {
		if got := scrollTop(tt.n, tt.size, tt.start, tt.end); got != tt.want {
			t.Fatalf("scrollTop(%d,%d,%d,%d) = %d, want %d", tt.n, tt.size, tt.start, tt.end, got, tt.want)
		}
	}
}

func TestPageDownStopsAtLastResultRow(t *testing.T) {
	a := newTestApp(t, &fakeSubmitter{}, authorsConfig())
	a.ctrl.Resolve(a.ctrl.Apply().Seq, "<tr><td>1</td></tr><tr><td>2</td></tr><tr><td>3</td></tr>", nil)

	for i := 0; i < 5; i++ {
		send(a, keyMsg(tea.KeyPgDown))
	}
	if a.resultsOffset != 2 {
		t.Fatalf("offset = %d, want 2", a.resultsOffset)
	}
	send(a, keyMsg(tea.KeyPgUp))
	if a.resultsOffset != 0 {
		t.Fatalf("one page up should return to the top, offset = %d", a.resultsOffset)
	}
}
