package tray

// commandIDBase is the first command identifier handed out during a menu
// build. Identifiers are dense and unique within one build; they are
// reassigned from this base on every rebuild.
const commandIDBase = 1000

// menuConstructor materializes menu entries for one platform. Handles
// returned by newMenu are opaque to the builder.
type menuConstructor interface {
	newMenu() (handle, error)
	insertSeparator(menu handle, id uint32)
	insertItem(menu handle, id uint32, item *MenuItem, submenu handle)
}

// buildMenu converts the caller's menu tree into a native menu, assigning
// command identifiers depth-first in pre-order: an item is numbered when it
// is first encountered, its submenu entries directly after it, its next
// sibling after the whole subtree. Separators consume an identifier slot but
// are never recorded in the command table.
//
// The walk uses an explicit worklist instead of call-stack recursion, so
// identifier assignment does not depend on available stack for deep menus.
// The returned table maps each identifier back to the caller-owned
// [MenuItem]; the builder never takes ownership of the tree.
func (r *Runtime) buildMenu(items []*MenuItem) (handle, map[uint32]*MenuItem, error) {
	root, err := r.native.newMenu()
	if err != nil {
		return 0, nil, err
	}

	commands := make(map[uint32]*MenuItem)
	next := uint32(commandIDBase)

	type frame struct {
		menu  handle
		items []*MenuItem
		index int
	}

	stack := []frame{{menu: root, items: items}}

	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		if f.index >= len(f.items) {
			stack = stack[:len(stack)-1]
			continue
		}

		item := f.items[f.index]
		f.index++
		if item == nil {
			continue
		}

		id := next
		next++

		if item.isSeparator() {
			r.native.insertSeparator(f.menu, id)
			continue
		}

		var submenu handle
		if len(item.Submenu) > 0 {
			submenu, err = r.native.newMenu()
			if err != nil {
				r.logf(LogWarning, "build menu: submenu for %q: %v", item.Text, err)
				submenu = 0
			}
		}

		r.native.insertItem(f.menu, id, item, submenu)
		commands[id] = item

		if submenu != 0 {
			stack = append(stack, frame{menu: submenu, items: item.Submenu})
		}
	}

	return root, commands, nil
}
