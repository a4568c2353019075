//go:build linux

package tray

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"
)

const dbusmenuInterface = "com.canonical.dbusmenu"

// layoutNode is the recursive (ia{sv}av) layout structure of the
// com.canonical.dbusmenu specification. The root carries id 0; every other
// node carries the command identifier of its menu entry.
type layoutNode struct {
	ID         int32
	Properties map[string]dbus.Variant
	Children   []dbus.Variant
}

type idProperties struct {
	ID         int32
	Properties map[string]dbus.Variant
}

type idPropertyNames struct {
	ID    int32
	Names []string
}

type menuEvent struct {
	ID        int32
	EventID   string
	Data      dbus.Variant
	Timestamp uint32
}

// dbusMenu receives com.canonical.dbusmenu method calls for the exported
// menu tree. Calls arrive on bus goroutines; reads take the native lock and
// activations are posted back to the loop goroutine.
type dbusMenu struct {
	n *linuxNative
}

func (n *linuxNative) exportMenu() error {
	if err := n.conn.Export(&dbusMenu{n: n}, menuPath, dbusmenuInterface); err != nil {
		return fmt.Errorf("failed to export menu: %w", err)
	}

	props := prop.Map{
		dbusmenuInterface: {
			"Version":       {Value: uint32(3), Emit: prop.EmitTrue},
			"Status":        {Value: "normal", Emit: prop.EmitTrue},
			"TextDirection": {Value: "ltr", Emit: prop.EmitTrue},
			"IconThemePath": {Value: []string{}, Emit: prop.EmitTrue},
		},
	}
	if _, err := prop.Export(n.conn, menuPath, props); err != nil {
		return fmt.Errorf("failed to export menu properties: %w", err)
	}

	return nil
}

func (m *dbusMenu) GetLayout(parentID, recursionDepth int32, propertyNames []string) (uint32, layoutNode, *dbus.Error) {
	n := m.n
	n.mu.Lock()
	defer n.mu.Unlock()

	root := layoutNode{
		ID: parentID,
		Properties: map[string]dbus.Variant{
			"children-display": dbus.MakeVariant("submenu"),
		},
	}

	container := n.container(parentID)
	if container != nil && recursionDepth != 0 {
		for _, e := range container.children {
			root.Children = append(root.Children, dbus.MakeVariant(entryLayout(e, decDepth(recursionDepth))))
		}
	}

	return n.revision, root, nil
}

func (m *dbusMenu) GetGroupProperties(ids []int32, propertyNames []string) ([]idProperties, *dbus.Error) {
	n := m.n
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]idProperties, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			out = append(out, idProperties{
				ID: 0,
				Properties: map[string]dbus.Variant{
					"children-display": dbus.MakeVariant("submenu"),
				},
			})
			continue
		}
		if e := findEntry(n.node(n.rootMenu), id); e != nil {
			out = append(out, idProperties{ID: id, Properties: entryProperties(e)})
		}
	}
	return out, nil
}

func (m *dbusMenu) GetProperty(id int32, name string) (dbus.Variant, *dbus.Error) {
	n := m.n
	n.mu.Lock()
	defer n.mu.Unlock()

	e := findEntry(n.node(n.rootMenu), id)
	if e == nil {
		return dbus.Variant{}, dbus.NewError("com.canonical.dbusmenu.Error.UnknownItem", nil)
	}
	v, ok := entryProperties(e)[name]
	if !ok {
		return dbus.Variant{}, dbus.NewError("com.canonical.dbusmenu.Error.UnknownProperty", nil)
	}
	return v, nil
}

func (m *dbusMenu) Event(id int32, eventID string, data dbus.Variant, timestamp uint32) *dbus.Error {
	if eventID == "clicked" && id > 0 {
		n := m.n
		n.post(func() { n.r.dispatchCommand(uint32(id)) })
	}
	return nil
}

func (m *dbusMenu) EventGroup(events []menuEvent) ([]int32, *dbus.Error) {
	for _, ev := range events {
		m.Event(ev.ID, ev.EventID, ev.Data, ev.Timestamp)
	}
	return []int32{}, nil
}

func (m *dbusMenu) AboutToShow(id int32) (bool, *dbus.Error) {
	return false, nil
}

func (m *dbusMenu) AboutToShowGroup(ids []int32) ([]int32, []int32, *dbus.Error) {
	return []int32{}, []int32{}, nil
}

// container resolves the node whose children GetLayout should report: the
// installed root for id 0, otherwise the submenu container of the entry with
// that id.
func (n *linuxNative) container(id int32) *menuNode {
	root := n.node(n.rootMenu)
	if id == 0 {
		return root
	}
	e := findEntry(root, id)
	if e == nil {
		return nil
	}
	return e.sub
}

func findEntry(container *menuNode, id int32) *menuNode {
	if container == nil {
		return nil
	}
	for _, e := range container.children {
		if int32(e.id) == id {
			return e
		}
		if e.sub != nil {
			if f := findEntry(e.sub, id); f != nil {
				return f
			}
		}
	}
	return nil
}

func entryLayout(e *menuNode, depth int32) layoutNode {
	ln := layoutNode{
		ID:         int32(e.id),
		Properties: entryProperties(e),
	}
	if e.sub != nil && depth != 0 {
		for _, c := range e.sub.children {
			ln.Children = append(ln.Children, dbus.MakeVariant(entryLayout(c, decDepth(depth))))
		}
	}
	return ln
}

func entryProperties(e *menuNode) map[string]dbus.Variant {
	if e.separator {
		return map[string]dbus.Variant{
			"type": dbus.MakeVariant("separator"),
		}
	}

	p := map[string]dbus.Variant{
		"label":   dbus.MakeVariant(e.item.Text),
		"enabled": dbus.MakeVariant(!e.item.Disabled),
	}
	if e.item.Checkbox {
		p["toggle-type"] = dbus.MakeVariant("checkmark")
		p["toggle-state"] = dbus.MakeVariant(toggleState(e.item.Checked))
	}
	if e.sub != nil {
		p["children-display"] = dbus.MakeVariant("submenu")
	}
	return p
}

// decDepth steps a recursion depth for descending one level; -1 means
// unlimited and stays -1.
func decDepth(d int32) int32 {
	if d > 0 {
		return d - 1
	}
	return d
}

func (n *linuxNative) emitLayoutUpdated(revision uint32, parent int32) {
	if n.conn == nil {
		return
	}
	n.conn.Emit(menuPath, dbusmenuInterface+".LayoutUpdated", revision, parent)
}

func (n *linuxNative) emitItemPropertiesUpdated(id int32, props map[string]dbus.Variant) {
	if n.conn == nil {
		return
	}
	updated := []idProperties{{ID: id, Properties: props}}
	removed := []idPropertyNames{}
	n.conn.Emit(menuPath, dbusmenuInterface+".ItemsPropertiesUpdated", updated, removed)
}
