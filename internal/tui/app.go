package tui

import (
	"context"
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/quotefilter/internal/filter"
)

// Submitter sends one filter request and returns the markup fragment.
type Submitter interface {
	FilterQuotes(ctx context.Context, payload filter.Payload, token string) (string, error)
}

// Options carries what the UI learned at startup besides the widgets.
type Options struct {
	Token   string
	Source  string
	Skipped []error
	Logger  *slog.Logger
}

// App is the bubbletea model for one filter page.
type App struct {
	ctx     context.Context
	ctrl    *filter.Controller
	submit  Submitter
	token   string
	source  string
	skipped []error
	logger  *slog.Logger
	keys    keyMap

	inputs []textinput.Model
	cursor []int // per widget, index into its visible entries
	focus  int   // widget whose search field has focus, -1 for none

	inFlight      int
	rawResults    bool
	resultsOffset int
	width         int
	height        int
}

type applyDoneMsg struct {
	seq  uint64
	body string
	err  error
}

func New(ctx context.Context, ctrl *filter.Controller, submit Submitter, opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	widgets := ctrl.Widgets()
	inputs := make([]textinput.Model, len(widgets))
	for i := range widgets {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = "Search..."
		ti.CharLimit = 64
		inputs[i] = ti
	}
	return &App{
		ctx:     ctx,
		ctrl:    ctrl,
		submit:  submit,
		token:   opts.Token,
		source:  opts.Source,
		skipped: opts.Skipped,
		logger:  logger,
		keys:    newKeyMap(),
		inputs:  inputs,
		cursor:  make([]int, len(widgets)),
		focus:   -1,
	}
}

func (a *App) Init() tea.Cmd { return nil }

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = m.Width, m.Height
		return a, nil
	case applyDoneMsg:
		a.inFlight--
		if a.ctrl.Resolve(m.seq, m.body, m.err) {
			a.resultsOffset = 0
		}
		return a, nil
	case tea.MouseMsg:
		if m.Action != tea.MouseActionPress || m.Button != tea.MouseButtonLeft {
			return a, nil
		}
		return a, a.handleClick(m.X, m.Y)
	case tea.KeyMsg:
		return a, a.handleKey(m)
	}
	return a, nil
}

func (a *App) handleKey(m tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(m, a.keys.Quit):
		return tea.Quit
	case key.Matches(m, a.keys.Apply):
		return a.apply()
	case key.Matches(m, a.keys.Clear):
		a.ctrl.ClearAll()
		return nil
	case key.Matches(m, a.keys.Raw):
		a.rawResults = !a.rawResults
		a.resultsOffset = 0
		return nil
	case key.Matches(m, a.keys.PageDown):
		last := max(len(a.resultLines())-1, 0)
		a.resultsOffset = min(a.resultsOffset+a.resultsPage(), last)
		return nil
	case key.Matches(m, a.keys.PageUp):
		a.resultsOffset = max(0, a.resultsOffset-a.resultsPage())
		return nil
	case key.Matches(m, a.keys.Close):
		a.ctrl.CloseAll()
		a.blur()
		return nil
	case key.Matches(m, a.keys.Next):
		return a.cycleFocus(1)
	case key.Matches(m, a.keys.Prev):
		return a.cycleFocus(-1)
	}

	if a.focus < 0 {
		return nil
	}
	w := a.ctrl.Widgets()[a.focus]
	switch {
	case key.Matches(m, a.keys.Up):
		a.moveCursor(-1)
		return nil
	case key.Matches(m, a.keys.Down):
		a.moveCursor(1)
		return nil
	case key.Matches(m, a.keys.Toggle):
		if idx, ok := a.cursorEntry(a.focus); ok {
			w.Toggle(idx)
		}
		return nil
	}

	var cmd tea.Cmd
	a.inputs[a.focus], cmd = a.inputs[a.focus].Update(m)
	if q := a.inputs[a.focus].Value(); q != w.Query() {
		w.SetQuery(q)
		a.clampCursor(a.focus)
	}
	return cmd
}

// handleClick is the single page-level pointer listener: it resolves the
// owning widget by containment and lets the controller close the rest.
func (a *App) handleClick(x, y int) tea.Cmd {
	_, targets := a.layout()
	t := targetAt(targets, x, y)

	if t.kind == targetApply {
		a.ctrl.CloseAll()
		a.blur()
		return a.apply()
	}

	var owner *filter.Widget
	entry := -1
	if t.widget >= 0 {
		owner = a.ctrl.Widgets()[t.widget]
		if t.kind == targetEntry {
			entry = t.entry
		}
	}
	a.ctrl.Click(owner, entry)

	if t.kind == targetSearch {
		return a.focusWidget(t.widget)
	}
	if t.kind == targetEntry {
		if pos := indexOf(owner.VisibleIndexes(), t.entry); pos >= 0 {
			a.cursor[t.widget] = pos
		}
	}
	if owner == nil || t.widget != a.focus {
		a.blur()
	}
	return nil
}

func (a *App) apply() tea.Cmd {
	req := a.ctrl.Apply()
	a.inFlight++
	ctx, submit, token := a.ctx, a.submit, a.token
	return func() tea.Msg {
		body, err := submit.FilterQuotes(ctx, req.Payload, token)
		return applyDoneMsg{seq: req.Seq, body: body, err: err}
	}
}

func (a *App) cycleFocus(step int) tea.Cmd {
	n := len(a.inputs)
	if n == 0 {
		return nil
	}
	next := 0
	if a.focus >= 0 {
		next = ((a.focus+step)%n + n) % n
	} else if step < 0 {
		next = n - 1
	}
	return a.focusWidget(next)
}

// focusWidget moves keyboard focus to a widget's search field, which opens
// its option list.
func (a *App) focusWidget(i int) tea.Cmd {
	if a.focus >= 0 && a.focus != i {
		a.inputs[a.focus].Blur()
	}
	a.focus = i
	a.ctrl.Widgets()[i].Focus()
	return a.inputs[i].Focus()
}

func (a *App) blur() {
	if a.focus >= 0 {
		a.inputs[a.focus].Blur()
	}
	a.focus = -1
}

func (a *App) moveCursor(step int) {
	visible := a.ctrl.Widgets()[a.focus].VisibleIndexes()
	if len(visible) == 0 {
		a.cursor[a.focus] = 0
		return
	}
	a.cursor[a.focus] = min(max(a.cursor[a.focus]+step, 0), len(visible)-1)
}

func (a *App) clampCursor(i int) {
	n := len(a.ctrl.Widgets()[i].VisibleIndexes())
	if a.cursor[i] >= n {
		a.cursor[i] = max(n-1, 0)
	}
}

// cursorEntry maps widget i's cursor to an entry index.
func (a *App) cursorEntry(i int) (int, bool) {
	visible := a.ctrl.Widgets()[i].VisibleIndexes()
	if len(visible) == 0 {
		return 0, false
	}
	pos := min(max(a.cursor[i], 0), len(visible)-1)
	return visible[pos], true
}

func (a *App) resultsPage() int {
	if a.height <= 0 {
		return 10
	}
	return max(a.height/2, 1)
}

func indexOf(xs []int, v int) int {
	for i, x := range xs {
		if x == v {
			return i
		}
	}
	return -1
}
