package tray

import (
	"errors"
	"testing"

	"github.com/tevino/abool"
)

type fakeEntry struct {
	id        uint32
	separator bool
	item      *MenuItem
	submenu   handle
}

type fakeMenu struct {
	entries []fakeEntry
}

// fakeNative implements the native interface in memory and records every
// call, so the platform-neutral runtime logic is testable anywhere.
type fakeNative struct {
	r *Runtime

	setupErr    error
	registerErr error

	log []string

	menus     map[handle]*fakeMenu
	next      handle
	installed handle

	loads    map[string]int
	fail     map[string]bool
	partial  map[string]bool
	icons    map[handle]string
	released map[handle]bool

	checked map[uint32]bool
	states  []*iconState
	queue   []func()
}

func newFakeNative() *fakeNative {
	return &fakeNative{
		menus:    make(map[handle]*fakeMenu),
		loads:    make(map[string]int),
		fail:     make(map[string]bool),
		partial:  make(map[string]bool),
		icons:    make(map[handle]string),
		released: make(map[handle]bool),
		checked:  make(map[uint32]bool),
	}
}

func (f *fakeNative) alloc() handle {
	f.next++
	return f.next
}

func (f *fakeNative) setup() error {
	f.log = append(f.log, "setup")
	return f.setupErr
}

func (f *fakeNative) teardown() {
	f.log = append(f.log, "teardown")
}

func (f *fakeNative) registerIcon() error {
	f.log = append(f.log, "registerIcon")
	return f.registerErr
}

func (f *fakeNative) removeIcon() {
	f.log = append(f.log, "removeIcon")
}

func (f *fakeNative) applyState(s *iconState) {
	f.log = append(f.log, "applyState")
	f.states = append(f.states, s)
}

func (f *fakeNative) newMenu() (handle, error) {
	h := f.alloc()
	f.menus[h] = &fakeMenu{}
	return h, nil
}

func (f *fakeNative) insertSeparator(menu handle, id uint32) {
	m := f.menus[menu]
	m.entries = append(m.entries, fakeEntry{id: id, separator: true})
}

func (f *fakeNative) insertItem(menu handle, id uint32, item *MenuItem, submenu handle) {
	m := f.menus[menu]
	m.entries = append(m.entries, fakeEntry{id: id, item: item, submenu: submenu})
}

func (f *fakeNative) installMenu(menu handle) {
	f.installed = menu
	f.log = append(f.log, "installMenu")
}

func (f *fakeNative) destroyMenu(menu handle) {
	delete(f.menus, menu)
	f.log = append(f.log, "destroyMenu")
}

func (f *fakeNative) setItemChecked(id uint32, checked bool) {
	f.checked[id] = checked
}

func (f *fakeNative) loadIcon(path string) (handle, handle, handle) {
	f.loads[path]++
	if f.fail[path] {
		return 0, 0, 0
	}
	regular := f.alloc()
	f.icons[regular] = path
	if f.partial[path] {
		return regular, 0, 0
	}
	large := f.alloc()
	f.icons[large] = path
	notification := f.alloc()
	f.icons[notification] = path
	return regular, large, notification
}

func (f *fakeNative) releaseIcon(h handle) {
	f.released[h] = true
}

func (f *fakeNative) pump(block bool) bool {
	for len(f.queue) > 0 {
		fn := f.queue[0]
		f.queue = f.queue[1:]
		fn()
	}
	return !f.r.terminated.IsSet()
}

func (f *fakeNative) quit() {
	f.log = append(f.log, "quit")
	f.queue = append(f.queue, func() { f.r.terminated.Set() })
}

func (f *fakeNative) calls(name string) int {
	count := 0
	for _, entry := range f.log {
		if entry == name {
			count++
		}
	}
	return count
}

func (f *fakeNative) indexOf(name string) int {
	for i, entry := range f.log {
		if entry == name {
			return i
		}
	}
	return -1
}

func (f *fakeNative) lastState() *iconState {
	if len(f.states) == 0 {
		return nil
	}
	return f.states[len(f.states)-1]
}

func newTestRuntime(t *testing.T) (*Runtime, *fakeNative) {
	t.Helper()
	f := newFakeNative()
	r := &Runtime{native: f, terminated: abool.New()}
	f.r = r
	t.Cleanup(func() { activeRuntime = nil })
	return r, f
}

func TestInit(t *testing.T) {
	r, f := newTestRuntime(t)

	tray := &Tray{
		Icon:    "app.ico",
		Tooltip: "hello",
		Menu: []*MenuItem{
			{Text: "Open"},
			Separator(),
			{Text: "Quit"},
		},
		IconPaths: []string{"app.ico"},
	}

	if err := r.Init(tray); err != nil {
		t.Fatalf("Init() = %v, want nil", err)
	}

	if got := f.calls("setup"); got != 1 {
		t.Errorf("setup called %d times, want 1", got)
	}
	if got := f.calls("registerIcon"); got != 1 {
		t.Errorf("registerIcon called %d times, want 1", got)
	}
	if f.installed == 0 {
		t.Error("no menu installed")
	}

	s := f.lastState()
	if s == nil {
		t.Fatal("no state applied")
	}
	if !s.hasIcon {
		t.Error("state has no icon")
	}
	if got, want := s.tooltip, "hello"; got != want {
		t.Errorf("tooltip = %q, want %q", got, want)
	}
	if s.hasInfo {
		t.Error("state has notification, want none")
	}

	if got := f.loads["app.ico"]; got != 1 {
		t.Errorf("icon decoded %d times, want 1", got)
	}
}

func TestInitNilTray(t *testing.T) {
	r, _ := newTestRuntime(t)

	if err := r.Init(nil); err == nil {
		t.Error("Init(nil) = nil, want error")
	}
}

func TestInitSetupFailure(t *testing.T) {
	r, f := newTestRuntime(t)
	f.setupErr = errors.New("no session bus")

	if err := r.Init(&Tray{}); err == nil {
		t.Fatal("Init() = nil, want error")
	}
	if got := f.calls("registerIcon"); got != 0 {
		t.Errorf("registerIcon called %d times after setup failure, want 0", got)
	}
	if activeRuntime != nil {
		t.Error("failed Init left the runtime active")
	}
}

func TestInitRegisterFailure(t *testing.T) {
	r, f := newTestRuntime(t)
	f.registerErr = errors.New("watcher unavailable")

	err := r.Init(&Tray{Icon: "app.ico", IconPaths: []string{"app.ico"}})
	if err == nil {
		t.Fatal("Init() = nil, want error")
	}

	if got := f.calls("teardown"); got != 1 {
		t.Errorf("teardown called %d times, want 1", got)
	}
	for h, path := range f.icons {
		if !f.released[h] {
			t.Errorf("icon handle %d (%s) not released after failed Init", h, path)
		}
	}
	if activeRuntime != nil {
		t.Error("failed Init left the runtime active")
	}
}

func TestInitTwice(t *testing.T) {
	r, _ := newTestRuntime(t)

	if err := r.Init(&Tray{}); err != nil {
		t.Fatalf("first Init() = %v, want nil", err)
	}
	if err := r.Init(&Tray{}); err == nil {
		t.Error("second Init() = nil, want error")
	}
}

func TestSecondTrayRejected(t *testing.T) {
	first, _ := newTestRuntime(t)
	if err := first.Init(&Tray{}); err != nil {
		t.Fatalf("first Init() = %v, want nil", err)
	}

	second := &Runtime{native: newFakeNative(), terminated: abool.New()}
	second.native.(*fakeNative).r = second
	if err := second.Init(&Tray{}); err == nil {
		t.Error("Init() of a second tray = nil, want error")
	}
}

func TestUpdateReplacesMenu(t *testing.T) {
	r, f := newTestRuntime(t)

	if err := r.Init(&Tray{Menu: []*MenuItem{{Text: "A"}}}); err != nil {
		t.Fatalf("Init() = %v, want nil", err)
	}

	prev := f.installed
	f.log = nil

	r.Update(&Tray{Menu: []*MenuItem{{Text: "B"}, {Text: "C"}}})

	if f.installed == prev {
		t.Error("menu handle unchanged after Update")
	}
	install := f.indexOf("installMenu")
	destroy := f.indexOf("destroyMenu")
	if install == -1 || destroy == -1 {
		t.Fatalf("log = %v, want both installMenu and destroyMenu", f.log)
	}
	if install > destroy {
		t.Error("previous menu destroyed before replacement was installed")
	}
	if _, ok := f.menus[prev]; ok {
		t.Error("previous menu still alive after Update")
	}
}

func TestUpdateBeforeInit(t *testing.T) {
	r, f := newTestRuntime(t)

	r.Update(&Tray{Icon: "app.ico"})

	if got := len(f.states); got != 0 {
		t.Errorf("%d states applied before Init, want 0", got)
	}
}

func TestExit(t *testing.T) {
	r, f := newTestRuntime(t)

	if err := r.Init(&Tray{Icon: "app.ico", Menu: []*MenuItem{{Text: "Quit"}}}); err != nil {
		t.Fatalf("Init() = %v, want nil", err)
	}

	r.Exit()

	if got := f.calls("removeIcon"); got != 1 {
		t.Errorf("removeIcon called %d times, want 1", got)
	}
	if got := f.calls("quit"); got != 1 {
		t.Errorf("quit called %d times, want 1", got)
	}
	for h := range f.icons {
		if !f.released[h] {
			t.Errorf("icon handle %d not released on Exit", h)
		}
	}
	if activeRuntime != nil {
		t.Error("Exit left the runtime active")
	}

	// Termination is observed through the loop, not synchronously.
	if got := r.Loop(false); got {
		t.Error("Loop() = true after Exit, want false")
	}
	if got := r.Loop(false); got {
		t.Error("Loop() = true on second call after Exit, want false")
	}
}

func TestExitTwice(t *testing.T) {
	r, f := newTestRuntime(t)

	if err := r.Init(&Tray{}); err != nil {
		t.Fatalf("Init() = %v, want nil", err)
	}

	r.Exit()
	r.Exit()

	if got := f.calls("removeIcon"); got != 1 {
		t.Errorf("removeIcon called %d times after double Exit, want 1", got)
	}
}

func TestExitFromCallback(t *testing.T) {
	r, f := newTestRuntime(t)

	tray := &Tray{Menu: []*MenuItem{
		{Text: "Quit", Callback: func(*MenuItem) { r.Exit() }},
	}}
	if err := r.Init(tray); err != nil {
		t.Fatalf("Init() = %v, want nil", err)
	}

	r.dispatchCommand(commandIDBase)

	if got := f.calls("quit"); got != 1 {
		t.Errorf("quit called %d times, want 1", got)
	}
	if got := r.Loop(false); got {
		t.Error("Loop() = true after Exit from callback, want false")
	}
}

func TestUpdateAfterExitIgnored(t *testing.T) {
	r, f := newTestRuntime(t)

	if err := r.Init(&Tray{}); err != nil {
		t.Fatalf("Init() = %v, want nil", err)
	}
	r.Exit()

	states := len(f.states)
	r.Update(&Tray{Icon: "app.ico"})

	if got := len(f.states); got != states {
		t.Error("Update after Exit applied state")
	}
}

func TestLogCallback(t *testing.T) {
	r, _ := newTestRuntime(t)

	var lines []string
	r.SetLogCallback(func(level LogLevel, message string) {
		lines = append(lines, level.String()+": "+message)
	})

	r.Update(nil)

	if len(lines) == 0 {
		t.Error("no diagnostics delivered to the log callback")
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  string
	}{
		{LogDebug, "debug"},
		{LogInfo, "info"},
		{LogWarning, "warning"},
		{LogError, "error"},
		{LogLevel(42), "level(42)"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", int(tt.level), got, tt.want)
		}
	}
}
