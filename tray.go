package tray

import (
	"errors"
	"fmt"

	"github.com/tevino/abool"
)

// LogLevel is the severity of an internal diagnostic message.
type LogLevel int

// Log severities, in increasing order.
const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarning
	LogError
)

// String returns the lowercase name of the level.
func (l LogLevel) String() string {
	switch l {
	case LogDebug:
		return "debug"
	case LogInfo:
		return "info"
	case LogWarning:
		return "warning"
	case LogError:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// LogFunc receives internal diagnostic messages. When no LogFunc is
// registered, diagnostics are silently dropped.
type LogFunc func(level LogLevel, message string)

// MenuItem is one entry of the context menu.
//
// An item whose Text is exactly "-" renders as a non-selectable separator;
// all its other fields are ignored. See [Separator].
type MenuItem struct {
	// Text to display.
	Text string

	// Whether the item is disabled (shown grayed, not selectable).
	Disabled bool

	// Whether the item is checked. Meaningful only when Checkbox is set.
	Checked bool

	// Whether the item behaves as a checkbox. Activating a checkbox item
	// flips Checked before Callback runs.
	Checkbox bool

	// Callback runs when the item is activated. It receives the item
	// itself, so a checkbox callback observes the already-toggled state.
	// Callbacks run synchronously on the loop goroutine.
	Callback func(*MenuItem)

	// Context is an opaque caller-supplied value, untouched by the
	// package.
	Context any

	// Submenu holds the item's child entries, if any.
	Submenu []*MenuItem
}

// Separator returns a menu item that renders as a separator.
func Separator() *MenuItem {
	return &MenuItem{Text: "-"}
}

func (m *MenuItem) isSeparator() bool {
	return m.Text == "-"
}

// Tray describes the desired state of the notification-area icon.
//
// The value stays owned by the caller and is never copied: the runtime keeps
// a reference to the last description it was given and replays it after the
// shell process restarts. It must therefore remain valid until the next
// [Runtime.Update], [Runtime.Exit], or process termination.
type Tray struct {
	// Icon is the path of the icon file to display.
	Icon string

	// Tooltip to display. Empty means no tooltip.
	Tooltip string

	// NotificationIcon is the path of the icon shown in the notification.
	// When empty, the tray icon is used instead.
	NotificationIcon string

	// NotificationTitle and NotificationText fill the notification
	// popup. The notification is shown whenever either is non-empty.
	NotificationTitle string
	NotificationText  string

	// NotificationCallback runs when the user clicks the notification.
	NotificationCallback func()

	// Menu is the root of the context-menu tree.
	Menu []*MenuItem

	// IconPaths lists every icon path referenced anywhere in the
	// description. It is used to pre-warm the icon cache during
	// [Runtime.Init].
	IconPaths []string
}

// handle is an opaque reference to a native resource: an HICON or HMENU on
// Windows, an arena index on Linux. Zero means absent.
type handle = uintptr

// runtimeState tracks the Runtime lifecycle. There is no way back to
// stateActive once terminated; re-initialization requires a fresh process.
type runtimeState int

const (
	stateUninitialized runtimeState = iota
	stateActive
	stateTerminated
)

// native is the platform backend. Exactly one implementation is compiled per
// platform; tests substitute their own.
type native interface {
	menuConstructor

	// setup creates the OS-side identity: the hidden window on Windows,
	// the bus names and exported objects on Linux.
	setup() error
	// teardown releases whatever setup created. Safe after partial setup.
	teardown()

	// registerIcon binds the notify-icon identity with the shell and opts
	// into the modern event protocol. Called by Init and again by
	// host-restart recovery.
	registerIcon() error
	// removeIcon deletes the shell registration.
	removeIcon()
	// applyState pushes a freshly computed icon state to the shell.
	applyState(s *iconState)

	// installMenu makes a built menu the active one; destroyMenu releases
	// a menu handle. The previous menu is destroyed only after its
	// replacement is installed.
	installMenu(menu handle)
	destroyMenu(menu handle)
	// setItemChecked re-applies the check visual of a live menu item.
	setItemChecked(id uint32, checked bool)

	// loadIcon decodes the three representations of an icon file. Each
	// may independently come back zero on decode failure.
	loadIcon(path string) (regular, large, notification handle)
	releaseIcon(h handle)

	// pump runs one blocking wait or one full non-blocking drain of the
	// event queue and reports whether the loop should continue.
	pump(block bool) bool
	// quit signals loop termination through the message path, so that a
	// dispatching callback frame finishes on valid state.
	quit()
}

// activeRuntime is the single tray allowed per process. The shell tracks the
// icon under one fixed identity, so a second concurrent registration would
// fight over it.
var activeRuntime *Runtime

// Runtime owns all tray state: the shell registration, the icon cache, the
// live menu with its command table, and the registered callbacks. Create one
// with [New], drive it from a single goroutine.
type Runtime struct {
	native     native
	state      runtimeState
	logCB      LogFunc
	cache      iconCache
	menu       handle
	commands   map[uint32]*MenuItem
	last       *Tray
	notifyCB   func()
	terminated *abool.AtomicBool
}

// New returns a new, uninitialized Runtime.
func New() *Runtime {
	r := &Runtime{terminated: abool.New()}
	r.native = newNative(r)
	return r
}

// SetLogCallback registers a sink for internal diagnostic messages. A nil
// callback restores the default of dropping them.
func (r *Runtime) SetLogCallback(fn LogFunc) {
	r.logCB = fn
}

// Init registers the tray icon with the shell and applies the description.
//
// On failure no tray is shown and every resource created during the attempt
// is released; the caller decides whether to retry or abort. Only one tray
// may be active per process.
func (r *Runtime) Init(t *Tray) error {
	if t == nil {
		return errors.New("init: nil tray description")
	}
	if r.state != stateUninitialized {
		return errors.New("init: runtime already used")
	}
	if activeRuntime != nil {
		return errors.New("init: another tray is active in this process")
	}

	if err := r.native.setup(); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	// Pre-warm the cache so later updates never pay for decoding.
	for _, path := range t.IconPaths {
		r.cache.resolve(r.native, path, iconRegular)
	}

	if err := r.native.registerIcon(); err != nil {
		r.cache.release(r.native)
		r.native.teardown()
		return fmt.Errorf("init: %w", err)
	}

	activeRuntime = r
	r.state = stateActive
	r.Update(t)

	return nil
}

// Update re-applies the description from scratch: the menu is rebuilt, and
// the complete notify-icon field set is recomputed so that nothing from an
// earlier update survives implicitly. Failures are logged, not returned.
//
// The runtime retains t (without copying) to replay it after a shell
// restart.
func (r *Runtime) Update(t *Tray) {
	if t == nil {
		r.logf(LogWarning, "update: nil tray description ignored")
		return
	}
	if r.state != stateActive {
		r.logf(LogWarning, "update: tray is not active")
		return
	}

	r.last = t

	menu, commands, err := r.buildMenu(t.Menu)
	if err != nil {
		r.logf(LogError, "update: build menu: %v", err)
	} else {
		prev := r.menu
		r.menu = menu
		r.commands = commands
		r.native.installMenu(menu)
		// Destroyed only now, so there is no window with a dangling
		// menu handle in between.
		if prev != 0 {
			r.native.destroyMenu(prev)
		}
	}

	r.notifyCB = t.NotificationCallback
	r.native.applyState(r.computeState(t))
}

// Loop pumps the native event loop. In blocking mode it suspends until at
// least one message arrives; in non-blocking mode it drains everything
// queued and returns immediately. It reports false once loop termination has
// been observed.
func (r *Runtime) Loop(block bool) bool {
	if r.terminated.IsSet() {
		return false
	}
	return r.native.pump(block)
}

// Exit removes the tray icon, releases the icon cache and menu, and signals
// loop termination. It is safe to call from within a menu or notification
// callback: teardown of the dispatch path itself is deferred through the
// message loop rather than performed underneath the executing frame.
func (r *Runtime) Exit() {
	if r.state != stateActive {
		return
	}
	r.state = stateTerminated
	activeRuntime = nil

	r.native.removeIcon()
	r.cache.release(r.native)
	if r.menu != 0 {
		r.native.destroyMenu(r.menu)
		r.menu = 0
	}
	r.commands = nil
	r.last = nil
	r.notifyCB = nil
	r.native.quit()
}

func (r *Runtime) logf(level LogLevel, format string, args ...any) {
	if r.logCB == nil {
		return
	}
	r.logCB(level, fmt.Sprintf(format, args...))
}
