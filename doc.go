// Package tray places a persistent icon with a hierarchical context menu in
// the desktop notification area and keeps it alive across restarts of the
// shell process that hosts it.
//
// # Usage
//
// The caller describes the icon with a [Tray] value: an icon path, a tooltip,
// optional notification fields, and a tree of [MenuItem] entries. A [Runtime]
// owns all native state and exposes the lifecycle:
//   - [Runtime.Init] registers the icon with the shell and shows it.
//   - [Runtime.Loop] pumps the native event loop; menu and notification
//     callbacks run synchronously inside it.
//   - [Runtime.Update] re-applies a (possibly mutated) description.
//   - [Runtime.Exit] removes the icon and terminates the loop.
//
// The description stays owned by the caller and must remain valid until the
// next [Runtime.Update] or [Runtime.Exit]: the runtime replays it verbatim
// when the shell process restarts, so the icon, tooltip, and menu reappear
// without caller involvement.
//
// All operations and callbacks are confined to the goroutine that pumps
// [Runtime.Loop]; the [Runtime] itself is not safe for concurrent use.
//
// On Windows the icon is backed by Shell_NotifyIcon; on Linux by the
// [StatusNotifierItem] specification together with com.canonical.dbusmenu.
//
// [StatusNotifierItem]: https://www.freedesktop.org/wiki/Specifications/StatusNotifierItem/
package tray
