//go:build !windows && !linux

package tray

import (
	"fmt"
	"runtime"
)

type stubNative struct{}

func newNative(r *Runtime) native {
	return &stubNative{}
}

func (*stubNative) setup() error {
	return fmt.Errorf("system tray is not supported on %s", runtime.GOOS)
}

func (*stubNative) teardown() {}

func (*stubNative) registerIcon() error { return nil }

func (*stubNative) removeIcon() {}

func (*stubNative) applyState(s *iconState) {}

func (*stubNative) newMenu() (handle, error) { return 0, nil }

func (*stubNative) insertSeparator(menu handle, id uint32) {}

func (*stubNative) insertItem(menu handle, id uint32, item *MenuItem, submenu handle) {}

func (*stubNative) installMenu(menu handle) {}

func (*stubNative) destroyMenu(menu handle) {}

func (*stubNative) setItemChecked(id uint32, checked bool) {}

func (*stubNative) loadIcon(path string) (handle, handle, handle) { return 0, 0, 0 }

func (*stubNative) releaseIcon(h handle) {}

func (*stubNative) pump(block bool) bool { return false }

func (*stubNative) quit() {}
