package viewer

import (
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/redmargin/internal/reconcile"
)

type cell struct {
	r     rune
	style tcell.Style
}

// fakeScreen is an in-memory Screen.
type fakeScreen struct {
	mu     sync.Mutex
	width  int
	height int
	cells  map[[2]int]cell

	events    chan tcell.Event
	closed    chan struct{}
	closeOnce sync.Once
	initErr   error
	syncs     int
}

func newFakeScreen(width, height int) *fakeScreen {
	return &fakeScreen{
		width:  width,
		height: height,
		cells:  make(map[[2]int]cell),
		events: make(chan tcell.Event, 16),
		closed: make(chan struct{}),
	}
}

func (s *fakeScreen) Init() error { return s.initErr }
func (s *fakeScreen) Fini()       { s.closeOnce.Do(func() { close(s.closed) }) }
func (s *fakeScreen) Show()       {}
func (s *fakeScreen) HideCursor() {}

func (s *fakeScreen) Sync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncs++
}

func (s *fakeScreen) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func (s *fakeScreen) SetContent(x, y int, primary rune, _ []rune, style tcell.Style) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if x < 0 || y < 0 || x >= s.width || y >= s.height {
		return
	}
	s.cells[[2]int{x, y}] = cell{r: primary, style: style}
}

func (s *fakeScreen) PollEvent() tcell.Event {
	select {
	case ev := <-s.events:
		return ev
	case <-s.closed:
		return nil
	}
}

func (s *fakeScreen) resize(width, height int) {
	s.mu.Lock()
	s.width, s.height = width, height
	s.cells = make(map[[2]int]cell)
	s.mu.Unlock()
	s.events <- tcell.NewEventResize(width, height)
}

func (s *fakeScreen) key(r rune) {
	s.events <- tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

// row returns screen row y with trailing spaces removed.
func (s *fakeScreen) row(y int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	for x := range s.width {
		c, ok := s.cells[[2]int{x, y}]
		if !ok || c.r == 0 {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(c.r)
	}
	return strings.TrimRight(b.String(), " ")
}

func (s *fakeScreen) styleAt(x, y int) tcell.Style {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cells[[2]int{x, y}].style
}

type fakeSession struct {
	path      string
	updates   chan reconcile.Update
	errs      chan error
	reloads   chan struct{}
	mu        sync.Mutex
	refreshes int
}

func newFakeSession(path string) *fakeSession {
	return &fakeSession{
		path:    path,
		updates: make(chan reconcile.Update, 1),
		errs:    make(chan error, 1),
		reloads: make(chan struct{}, 1),
	}
}

func (s *fakeSession) Path() string                     { return s.path }
func (s *fakeSession) Updates() <-chan reconcile.Update { return s.updates }
func (s *fakeSession) Errors() <-chan error             { return s.errs }
func (s *fakeSession) Reloads() <-chan struct{}         { return s.reloads }

func (s *fakeSession) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes++
}

func (s *fakeSession) refreshCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshes
}
