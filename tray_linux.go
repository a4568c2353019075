//go:build linux

package tray

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/godbus/dbus/v5"
)

// linuxNative backs the tray with a [StatusNotifierItem] exported on the
// session bus, plus com.canonical.dbusmenu for the context menu.
//
// D-Bus delivers method calls and signals on its own goroutines; to keep the
// single-threaded dispatch model, every reaction is posted as a closure to
// the events channel and runs only when the caller pumps [Runtime.Loop].
//
// [StatusNotifierItem]: https://www.freedesktop.org/wiki/Specifications/StatusNotifierItem/
type linuxNative struct {
	r *Runtime

	conn     *dbus.Conn
	itemName string
	appID    string

	events  chan func()
	signals chan *dbus.Signal
	done    chan struct{}

	// mu guards the arenas, the installed menu and the exported state
	// against D-Bus method handlers, which run on bus goroutines.
	mu sync.Mutex

	// Arenas backing opaque handles; a handle is index+1 so zero keeps
	// meaning "absent".
	icons []*iconPixmaps
	menus []*menuNode

	rootMenu handle
	revision uint32

	notifier           notifier
	lastNotificationID uint32

	state *iconState
}

func newNative(r *Runtime) native {
	return &linuxNative{
		r:        r,
		itemName: fmt.Sprintf("org.kde.StatusNotifierItem-%d-1", os.Getpid()),
		appID:    filepath.Base(os.Args[0]),
	}
}

func (n *linuxNative) setup() error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to D-Bus session bus: %w", err)
	}
	n.conn = conn

	reply, err := conn.RequestName(n.itemName, dbus.NameFlagDoNotQueue)
	if err != nil {
		n.teardown()
		return fmt.Errorf("failed to request name %s: %w", n.itemName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		n.teardown()
		return fmt.Errorf("name %s already taken", n.itemName)
	}

	n.events = make(chan func(), 64)
	n.signals = make(chan *dbus.Signal, 64)
	n.done = make(chan struct{})

	if err := n.exportItem(); err != nil {
		n.teardown()
		return err
	}
	if err := n.exportMenu(); err != nil {
		n.teardown()
		return err
	}
	if err := n.setupNotifier(); err != nil {
		// Notifications degrade; the icon and menu still work.
		n.r.logf(LogWarning, "desktop notifications unavailable: %v", err)
	}

	if err := n.watchWatcher(); err != nil {
		n.r.logf(LogWarning, "watcher restarts will not be recovered: %v", err)
	}

	return nil
}

func (n *linuxNative) teardown() {
	if n.done != nil {
		close(n.done)
		n.done = nil
	}
	if n.notifier != nil {
		n.notifier.Close()
		n.notifier = nil
	}
	if n.conn != nil {
		n.conn.ReleaseName(n.itemName)
		n.conn.Close()
		n.conn = nil
	}
}

// registerIcon announces the item to the StatusNotifierWatcher. The watcher
// may come up after us (or be restarting right now), so registration is
// retried with backoff before giving up.
func (n *linuxNative) registerIcon() error {
	watcher := n.conn.Object(statusNotifierWatcherInterface, statusNotifierWatcherPath)

	err := retry.Do(
		func() error {
			return watcher.Call(
				statusNotifierWatcherInterface+".RegisterStatusNotifierItem",
				0,
				n.itemName,
			).Err
		},
		retry.Attempts(5),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("failed to register with StatusNotifierWatcher: %w", err)
	}

	return nil
}

// removeIcon releases the item's bus name; the watcher observes the
// NameOwnerChanged and unregisters the item.
func (n *linuxNative) removeIcon() {
	if n.conn != nil {
		n.conn.ReleaseName(n.itemName)
	}
}

func (n *linuxNative) applyState(s *iconState) {
	n.mu.Lock()
	n.state = s
	n.mu.Unlock()

	if err := n.exportItemProperties(); err != nil {
		n.r.logf(LogWarning, "failed to update item properties: %v", err)
	}

	n.conn.Emit(statusNotifierItemPath, statusNotifierItemInterface+".NewIcon")
	n.conn.Emit(statusNotifierItemPath, statusNotifierItemInterface+".NewToolTip")
	n.conn.Emit(statusNotifierItemPath, statusNotifierItemInterface+".NewTitle")

	if s.hasInfo {
		n.sendNotification(s)
	}
}

// watchWatcher subscribes to NameOwnerChanged for the watcher service. A
// non-empty new owner means the watcher (re)started and silently dropped all
// registered items; that is the Linux analog of Explorer's TaskbarCreated
// broadcast.
func (n *linuxNative) watchWatcher() error {
	if err := n.conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchSender("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, statusNotifierWatcherInterface),
	); err != nil {
		return err
	}

	n.conn.Signal(n.signals)

	go func() {
		for {
			select {
			case <-n.done:
				return
			case sig, ok := <-n.signals:
				if !ok {
					return
				}
				n.handleBusSignal(sig)
			}
		}
	}()

	return nil
}

func (n *linuxNative) handleBusSignal(sig *dbus.Signal) {
	if sig.Name != "org.freedesktop.DBus.NameOwnerChanged" || len(sig.Body) < 3 {
		return
	}

	name, ok := sig.Body[0].(string)
	if !ok || name != statusNotifierWatcherInterface {
		return
	}

	newOwner, ok := sig.Body[2].(string)
	if !ok || newOwner == "" {
		return
	}

	n.post(func() { n.r.handleHostRestart() })
}

// post hands f to the loop goroutine. Drops (with a log line) rather than
// blocks when the caller stopped pumping: a D-Bus handler must never wedge
// the bus connection.
func (n *linuxNative) post(f func()) {
	select {
	case n.events <- f:
	default:
		n.r.logf(LogWarning, "event queue full, dropping event")
	}
}

func (n *linuxNative) pump(block bool) bool {
	if n.events == nil {
		n.r.terminated.Set()
		return false
	}

	if block {
		f := <-n.events
		f()
		return !n.r.terminated.IsSet()
	}

	for {
		select {
		case f := <-n.events:
			f()
			if n.r.terminated.IsSet() {
				return false
			}
		default:
			return true
		}
	}
}

func (n *linuxNative) quit() {
	n.post(func() { n.r.terminated.Set() })
	n.teardown()
}

// menuNode is one entry of the exported dbusmenu tree. Nodes created by
// newMenu (the root and every submenu container) live in the arena and carry
// their slot; plain entries exist only through their parent's children.
type menuNode struct {
	slot      handle
	id        uint32
	item      *MenuItem
	separator bool
	sub       *menuNode
	children  []*menuNode
}

func (n *linuxNative) node(h handle) *menuNode {
	if h == 0 || int(h) > len(n.menus) {
		return nil
	}
	return n.menus[h-1]
}

func (n *linuxNative) newMenu() (handle, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	nd := &menuNode{}
	n.menus = append(n.menus, nd)
	nd.slot = handle(len(n.menus))
	return nd.slot, nil
}

func (n *linuxNative) insertSeparator(menu handle, id uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()

	parent := n.node(menu)
	if parent == nil {
		return
	}
	parent.children = append(parent.children, &menuNode{id: id, separator: true})
}

func (n *linuxNative) insertItem(menu handle, id uint32, item *MenuItem, submenu handle) {
	n.mu.Lock()
	defer n.mu.Unlock()

	parent := n.node(menu)
	if parent == nil {
		return
	}
	child := &menuNode{id: id, item: item}
	if submenu != 0 {
		child.sub = n.node(submenu)
	}
	parent.children = append(parent.children, child)
}

func (n *linuxNative) installMenu(menu handle) {
	n.mu.Lock()
	n.rootMenu = menu
	n.revision++
	revision := n.revision
	n.mu.Unlock()

	n.emitLayoutUpdated(revision, 0)
}

func (n *linuxNative) destroyMenu(menu handle) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if menu == n.rootMenu {
		n.rootMenu = 0
	}

	nd := n.node(menu)
	if nd == nil {
		return
	}

	stack := []*menuNode{nd}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.slot != 0 {
			n.menus[cur.slot-1] = nil
		}
		for _, c := range cur.children {
			if c.sub != nil {
				stack = append(stack, c.sub)
			}
		}
	}

	for _, nd := range n.menus {
		if nd != nil {
			return
		}
	}
	n.menus = n.menus[:0]
}

func (n *linuxNative) setItemChecked(id uint32, checked bool) {
	n.emitItemPropertiesUpdated(int32(id), map[string]dbus.Variant{
		"toggle-state": dbus.MakeVariant(toggleState(checked)),
	})
}

func toggleState(checked bool) int32 {
	if checked {
		return 1
	}
	return 0
}
