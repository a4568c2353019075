package tray

// iconKind selects one of the three representations an icon file is decoded
// into.
type iconKind int

const (
	iconRegular iconKind = iota
	iconLarge
	iconNotification
)

// iconCacheEntry holds the decoded representations of one icon file. Any
// handle may be zero when its decode failed; the icon is then simply absent
// in that role.
type iconCacheEntry struct {
	path         string
	regular      handle
	large        handle
	notification handle
}

func (e *iconCacheEntry) pick(kind iconKind) handle {
	switch kind {
	case iconLarge:
		return e.large
	case iconNotification:
		return e.notification
	default:
		return e.regular
	}
}

// iconCache maps icon file paths to decoded handles so that repeated updates
// never re-decode. Entry counts stay small (one per distinct path in the
// description), so a linear scan is fine.
type iconCache struct {
	entries []iconCacheEntry
}

// resolve returns the requested representation of path, decoding all three
// on first reference. Paths match by exact, case-sensitive comparison.
func (c *iconCache) resolve(n native, path string, kind iconKind) handle {
	if path == "" {
		return 0
	}

	for i := range c.entries {
		if c.entries[i].path == path {
			return c.entries[i].pick(kind)
		}
	}

	regular, large, notification := n.loadIcon(path)
	c.entries = append(c.entries, iconCacheEntry{
		path:         path,
		regular:      regular,
		large:        large,
		notification: notification,
	})

	return c.entries[len(c.entries)-1].pick(kind)
}

// release frees every held handle and empties the cache.
func (c *iconCache) release(n native) {
	for i := range c.entries {
		e := &c.entries[i]
		for _, h := range []handle{e.regular, e.large, e.notification} {
			if h != 0 {
				n.releaseIcon(h)
			}
		}
	}
	c.entries = nil
}
