//go:build windows

package tray

import (
	"golang.org/x/sys/windows"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	shell32  = windows.NewLazySystemDLL("shell32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procGetModuleHandleW = kernel32.NewProc("GetModuleHandleW")

	procRegisterClassExW       = user32.NewProc("RegisterClassExW")
	procUnregisterClassW       = user32.NewProc("UnregisterClassW")
	procCreateWindowExW        = user32.NewProc("CreateWindowExW")
	procDestroyWindow          = user32.NewProc("DestroyWindow")
	procUpdateWindow           = user32.NewProc("UpdateWindow")
	procDefWindowProcW         = user32.NewProc("DefWindowProcW")
	procRegisterWindowMessageW = user32.NewProc("RegisterWindowMessageW")
	procGetMessageW            = user32.NewProc("GetMessageW")
	procPeekMessageW           = user32.NewProc("PeekMessageW")
	procTranslateMessage       = user32.NewProc("TranslateMessage")
	procDispatchMessageW       = user32.NewProc("DispatchMessageW")
	procPostMessageW           = user32.NewProc("PostMessageW")
	procSendMessageW           = user32.NewProc("SendMessageW")
	procPostQuitMessage        = user32.NewProc("PostQuitMessage")
	procGetCursorPos           = user32.NewProc("GetCursorPos")
	procSetForegroundWindow    = user32.NewProc("SetForegroundWindow")
	procCreatePopupMenu        = user32.NewProc("CreatePopupMenu")
	procDestroyMenu            = user32.NewProc("DestroyMenu")
	procTrackPopupMenu         = user32.NewProc("TrackPopupMenu")
	procInsertMenuW            = user32.NewProc("InsertMenuW")
	procInsertMenuItemW        = user32.NewProc("InsertMenuItemW")
	procSetMenuItemInfoW       = user32.NewProc("SetMenuItemInfoW")
	procGetSystemMetrics       = user32.NewProc("GetSystemMetrics")
	procLoadImageW             = user32.NewProc("LoadImageW")
	procDestroyIcon            = user32.NewProc("DestroyIcon")

	procShellNotifyIconW = shell32.NewProc("Shell_NotifyIconW")
	procExtractIconExW   = shell32.NewProc("ExtractIconExW")
)

const (
	wmDestroy       = 0x0002
	wmClose         = 0x0010
	wmQuit          = 0x0012
	wmCommand       = 0x0111
	wmInitMenuPopup = 0x0117
	wmLButtonUp     = 0x0202
	wmRButtonUp     = 0x0205
	wmContextMenu   = 0x007B
	wmNull          = 0x0000
	wmUser          = 0x0400

	// wmTrayCallback is the private message Shell_NotifyIcon delivers
	// tray-icon interactions through.
	wmTrayCallback = wmUser + 1

	// ninBalloonUserClick reports a click on the notification popup
	// (NOTIFYICON_VERSION_4 event, carried in the low word of lparam).
	ninBalloonUserClick = wmUser + 5

	nimAdd        = 0x00
	nimModify     = 0x01
	nimDelete     = 0x02
	nimSetVersion = 0x04

	notifyIconVersion4 = 4

	niifNone      = 0x00
	niifUser      = 0x04
	niifLargeIcon = 0x20

	pmRemove = 0x0001

	tpmLeftAlign   = 0x0000
	tpmRightButton = 0x0002
	tpmNoNotify    = 0x0080
	tpmReturnCmd   = 0x0100

	mfByPosition = 0x0400
	mfSeparator  = 0x0800

	miimState   = 0x0001
	miimID      = 0x0002
	miimSubmenu = 0x0004
	miimString  = 0x0040

	mfsDisabled = 0x0003
	mfsChecked  = 0x0008

	imageIcon      = 1
	lrLoadFromFile = 0x0010

	smCxIcon = 11
	smCyIcon = 12
)

type wndClassExW struct {
	cbSize        uint32
	style         uint32
	lpfnWndProc   uintptr
	cbClsExtra    int32
	cbWndExtra    int32
	hInstance     windows.Handle
	hIcon         handle
	hCursor       handle
	hbrBackground handle
	lpszMenuName  *uint16
	lpszClassName *uint16
	hIconSm       handle
}

type notifyIconDataW struct {
	cbSize           uint32
	hWnd             handle
	uID              uint32
	uFlags           uint32
	uCallbackMessage uint32
	hIcon            handle
	szTip            [128]uint16
	dwState          uint32
	dwStateMask      uint32
	szInfo           [256]uint16
	uVersion         uint32
	szInfoTitle      [64]uint16
	dwInfoFlags      uint32
	guidItem         windows.GUID
	hBalloonIcon     handle
}

type menuItemInfoW struct {
	cbSize        uint32
	fMask         uint32
	fType         uint32
	fState        uint32
	wID           uint32
	hSubMenu      handle
	hbmpChecked   handle
	hbmpUnchecked handle
	dwItemData    uintptr
	dwTypeData    *uint16
	cch           uint32
	hbmpItem      handle
}

type point struct {
	x int32
	y int32
}

type msg struct {
	hWnd    handle
	message uint32
	wParam  uintptr
	lParam  uintptr
	time    uint32
	pt      point
}

func loword(v uintptr) uint32 { return uint32(v) & 0xFFFF }
func hiword(v uintptr) uint32 { return uint32(v>>16) & 0xFFFF }
