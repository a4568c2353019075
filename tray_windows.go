//go:build windows

package tray

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

const trayWindowClass = "TrayNotifyWindow"

// trayGUID is the fixed identity of the notify icon, so repeated runs and
// shell restarts are recognized as the same logical icon instead of
// accumulating duplicates.
var trayGUID = windows.GUID{
	Data1: 0xC1A1C4E1,
	Data2: 0x7C42,
	Data3: 0x4DB4,
	Data4: [8]byte{0x93, 0xB4, 0x2E, 0x9E, 0x0D, 0x7A, 0x8E, 0x31},
}

// winNative backs the tray with Shell_NotifyIcon and a hidden top-level
// window. A message-only window would not receive the TaskbarCreated
// broadcast, so the window is created hidden instead.
type winNative struct {
	r *Runtime

	hinstance       windows.Handle
	hwnd            handle
	classRegistered bool
	className       *uint16
	taskbarCreated  uint32

	nid   notifyIconDataW
	hmenu handle
}

// activeWin lets the window procedure find its backend. Valid because only
// one tray may be active per process.
var activeWin *winNative

// wndProcPtr is created once: NewCallback allocations are never released.
var wndProcPtr = windows.NewCallback(wndProc)

func newNative(r *Runtime) native {
	return &winNative{r: r}
}

func (n *winNative) setup() error {
	className, err := windows.UTF16PtrFromString(trayWindowClass)
	if err != nil {
		return fmt.Errorf("window class name: %w", err)
	}
	n.className = className

	hinstance, _, err := procGetModuleHandleW.Call(0)
	if hinstance == 0 {
		return fmt.Errorf("GetModuleHandleW: %w", err)
	}
	n.hinstance = windows.Handle(hinstance)

	ret, _, _ := procRegisterWindowMessageW.Call(
		uintptr(unsafe.Pointer(mustUTF16Ptr("TaskbarCreated"))),
	)
	n.taskbarCreated = uint32(ret)

	wc := wndClassExW{
		cbSize:        uint32(unsafe.Sizeof(wndClassExW{})),
		lpfnWndProc:   wndProcPtr,
		hInstance:     n.hinstance,
		lpszClassName: n.className,
	}
	atom, _, err := procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc)))
	if atom == 0 {
		return fmt.Errorf("RegisterClassExW: %w", err)
	}
	n.classRegistered = true

	activeWin = n

	hwnd, _, err := procCreateWindowExW.Call(
		0,
		uintptr(unsafe.Pointer(n.className)),
		0, 0, 0, 0, 0, 0, 0, 0,
		uintptr(n.hinstance),
		0,
	)
	if hwnd == 0 {
		n.teardown()
		return fmt.Errorf("CreateWindowExW: %w", err)
	}
	n.hwnd = hwnd
	procUpdateWindow.Call(n.hwnd)

	n.nid = notifyIconDataW{
		cbSize:   uint32(unsafe.Sizeof(notifyIconDataW{})),
		hWnd:     n.hwnd,
		uID:      1,
		guidItem: trayGUID,
	}

	return nil
}

func (n *winNative) teardown() {
	if n.hwnd != 0 {
		procDestroyWindow.Call(n.hwnd)
		n.hwnd = 0
	}
	if n.classRegistered {
		procUnregisterClassW.Call(
			uintptr(unsafe.Pointer(n.className)),
			uintptr(n.hinstance),
		)
		n.classRegistered = false
	}
	if activeWin == n {
		activeWin = nil
	}
}

// registerIcon adds the icon with just the callback message and GUID; the
// icon image, tooltip, and the rest arrive with the first applyState.
func (n *winNative) registerIcon() error {
	n.nid.uFlags = nifMessage | nifGUID
	n.nid.uCallbackMessage = wmTrayCallback

	ret, _, err := procShellNotifyIconW.Call(nimAdd, uintptr(unsafe.Pointer(&n.nid)))
	if ret == 0 {
		return fmt.Errorf("Shell_NotifyIcon(NIM_ADD): %w", err)
	}

	// Opt into the modern protocol for reliable notification-click
	// events. Failure here degrades, never aborts.
	n.nid.uVersion = notifyIconVersion4
	ret, _, err = procShellNotifyIconW.Call(nimSetVersion, uintptr(unsafe.Pointer(&n.nid)))
	if ret == 0 {
		n.r.logf(LogWarning, "Shell_NotifyIcon(NIM_SETVERSION): %v", err)
	}

	return nil
}

func (n *winNative) removeIcon() {
	procShellNotifyIconW.Call(nimDelete, uintptr(unsafe.Pointer(&n.nid)))
}

func (n *winNative) applyState(s *iconState) {
	n.nid.hIcon = s.icon

	setUTF16(n.nid.szTip[:], s.tooltip)

	if s.hasInfo {
		setUTF16(n.nid.szInfoTitle[:], s.infoTitle)
		setUTF16(n.nid.szInfo[:], s.infoText)
		n.nid.dwInfoFlags = niifNone
		n.nid.hBalloonIcon = 0
		if s.hasBalloonIcon {
			n.nid.hBalloonIcon = s.balloonIcon
			n.nid.dwInfoFlags = niifUser | niifLargeIcon
		}
	} else {
		// Clear the previous text so the shell cannot re-show an old
		// notification.
		setUTF16(n.nid.szInfoTitle[:], "")
		setUTF16(n.nid.szInfo[:], "")
		n.nid.dwInfoFlags = niifNone
		n.nid.hBalloonIcon = 0
	}

	n.nid.uFlags = notifyFlags(s)
	ret, _, err := procShellNotifyIconW.Call(nimModify, uintptr(unsafe.Pointer(&n.nid)))
	if ret == 0 {
		n.r.logf(LogWarning, "Shell_NotifyIcon(NIM_MODIFY): %v", err)
	}
}

func (n *winNative) newMenu() (handle, error) {
	hmenu, _, err := procCreatePopupMenu.Call()
	if hmenu == 0 {
		return 0, fmt.Errorf("CreatePopupMenu: %w", err)
	}
	return hmenu, nil
}

func (n *winNative) insertSeparator(menu handle, id uint32) {
	ret, _, err := procInsertMenuW.Call(
		menu,
		^uintptr(0), // append
		mfByPosition|mfSeparator,
		uintptr(id),
		0,
	)
	if ret == 0 {
		n.r.logf(LogWarning, "InsertMenu(separator): %v", err)
	}
}

func (n *winNative) insertItem(menu handle, id uint32, item *MenuItem, submenu handle) {
	text, err := windows.UTF16PtrFromString(item.Text)
	if err != nil {
		n.r.logf(LogWarning, "menu item text %q: %v", item.Text, err)
		return
	}

	mii := menuItemInfoW{
		cbSize:     uint32(unsafe.Sizeof(menuItemInfoW{})),
		fMask:      miimID | miimString | miimState,
		wID:        id,
		dwTypeData: text,
	}
	if submenu != 0 {
		mii.fMask |= miimSubmenu
		mii.hSubMenu = submenu
	}
	if item.Disabled {
		mii.fState |= mfsDisabled
	}
	if item.Checked {
		mii.fState |= mfsChecked
	}

	ret, _, err := procInsertMenuItemW.Call(
		menu,
		^uintptr(0), // append
		1,           // by position
		uintptr(unsafe.Pointer(&mii)),
	)
	if ret == 0 {
		n.r.logf(LogWarning, "InsertMenuItem %q: %v", item.Text, err)
	}
}

func (n *winNative) installMenu(menu handle) {
	n.hmenu = menu
	procSendMessageW.Call(n.hwnd, wmInitMenuPopup, menu, 0)
}

func (n *winNative) destroyMenu(menu handle) {
	if menu == n.hmenu {
		n.hmenu = 0
	}
	procDestroyMenu.Call(menu)
}

// setItemChecked re-applies the check visual. Lookup is by command
// identifier; the API searches submenus, so nested checkboxes work off the
// root handle.
func (n *winNative) setItemChecked(id uint32, checked bool) {
	if n.hmenu == 0 {
		return
	}
	mii := menuItemInfoW{
		cbSize: uint32(unsafe.Sizeof(menuItemInfoW{})),
		fMask:  miimState,
	}
	if checked {
		mii.fState = mfsChecked
	}
	procSetMenuItemInfoW.Call(n.hmenu, uintptr(id), 0, uintptr(unsafe.Pointer(&mii)))
}

// loadIcon decodes the three representations in three separate calls.
// Requesting the small and large icon from ExtractIconEx together makes some
// Windows builds return only one of them, so the calls stay split.
func (n *winNative) loadIcon(path string) (regular, large, notification handle) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		n.r.logf(LogWarning, "icon path %q: %v", path, err)
		return 0, 0, 0
	}

	procExtractIconExW.Call(
		uintptr(unsafe.Pointer(p)), 0,
		uintptr(unsafe.Pointer(&large)), 0, 1,
	)
	procExtractIconExW.Call(
		uintptr(unsafe.Pointer(p)), 0,
		0, uintptr(unsafe.Pointer(&regular)), 1,
	)

	cx, _, _ := procGetSystemMetrics.Call(smCxIcon)
	cy, _, _ := procGetSystemMetrics.Call(smCyIcon)
	notification, _, _ = procLoadImageW.Call(
		0,
		uintptr(unsafe.Pointer(p)),
		imageIcon,
		cx*2, cy*2,
		lrLoadFromFile,
	)

	if regular == 0 && large == 0 && notification == 0 {
		n.r.logf(LogWarning, "no icon decoded from %q", path)
	}

	return regular, large, notification
}

func (n *winNative) releaseIcon(h handle) {
	procDestroyIcon.Call(h)
}

func (n *winNative) pump(block bool) bool {
	var m msg

	if block {
		ret, _, err := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if ret == 0 || int32(ret) == -1 {
			if int32(ret) == -1 {
				n.r.logf(LogError, "GetMessage: %v", err)
			}
			n.r.terminated.Set()
			return false
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
		return true
	}

	for {
		ret, _, _ := procPeekMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0, pmRemove)
		if ret == 0 {
			return true
		}
		if m.message == wmQuit {
			n.r.terminated.Set()
			return false
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
	}
}

// quit routes termination through the window so the close happens on the
// dispatch path, not underneath a running callback frame.
func (n *winNative) quit() {
	if n.hwnd != 0 {
		procPostMessageW.Call(n.hwnd, wmClose, 0, 0)
		return
	}
	procPostQuitMessage.Call(0)
}

// trackMenu shows the popup at the cursor and feeds the chosen command back
// through the normal command path.
func (n *winNative) trackMenu() {
	if n.hmenu == 0 {
		return
	}

	var pt point
	procGetCursorPos.Call(uintptr(unsafe.Pointer(&pt)))

	// Required for the popup to dismiss when the user clicks elsewhere.
	procSetForegroundWindow.Call(n.hwnd)

	cmd, _, _ := procTrackPopupMenu.Call(
		n.hmenu,
		tpmLeftAlign|tpmRightButton|tpmReturnCmd|tpmNoNotify,
		uintptr(pt.x), uintptr(pt.y),
		0, n.hwnd, 0,
	)
	if cmd != 0 {
		procSendMessageW.Call(n.hwnd, wmCommand, cmd, 0)
	}

	// Without this the menu loop can stay visually stuck in rare cases
	// (documented TrackPopupMenu quirk).
	procPostMessageW.Call(n.hwnd, wmNull, 0, 0)
}

func wndProc(hwnd uintptr, message uint32, wparam, lparam uintptr) uintptr {
	n := activeWin
	if n == nil {
		ret, _, _ := procDefWindowProcW.Call(hwnd, uintptr(message), wparam, lparam)
		return ret
	}

	switch message {
	case wmClose:
		procDestroyWindow.Call(hwnd)
		return 0

	case wmDestroy:
		if n.classRegistered {
			procUnregisterClassW.Call(
				uintptr(unsafe.Pointer(n.className)),
				uintptr(n.hinstance),
			)
			n.classRegistered = false
		}
		n.hwnd = 0
		activeWin = nil
		procPostQuitMessage.Call(0)
		return 0

	case wmCommand:
		if hiword(wparam) == 0 {
			n.r.dispatchCommand(loword(wparam))
		}
		return 0

	case wmTrayCallback:
		switch loword(lparam) {
		case wmLButtonUp, wmRButtonUp, wmContextMenu:
			n.trackMenu()
		case ninBalloonUserClick:
			n.r.dispatchNotificationClick()
		}
		return 0
	}

	if n.taskbarCreated != 0 && message == n.taskbarCreated {
		n.r.handleHostRestart()
		return 0
	}

	ret, _, _ := procDefWindowProcW.Call(hwnd, uintptr(message), wparam, lparam)
	return ret
}

// setUTF16 copies s into a fixed NUL-terminated buffer, truncating if
// needed and zeroing the remainder so stale characters never leak through.
func setUTF16(dst []uint16, s string) {
	clear(dst)
	src, err := windows.UTF16FromString(s)
	if err != nil {
		return
	}
	if len(src) > len(dst) {
		src = src[:len(dst)]
		src[len(dst)-1] = 0
	}
	copy(dst, src)
}

func mustUTF16Ptr(s string) *uint16 {
	p, err := windows.UTF16PtrFromString(s)
	if err != nil {
		panic(err)
	}
	return p
}
