//go:build linux

package tray

import (
	"fmt"
	"image"
	"os"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"
	"github.com/sergeymakinen/go-ico"
	"golang.org/x/image/draw"
)

const (
	statusNotifierItemInterface = "org.kde.StatusNotifierItem"
	statusNotifierItemPath      = "/StatusNotifierItem"

	statusNotifierWatcherInterface = "org.kde.StatusNotifierWatcher"
	statusNotifierWatcherPath      = "/StatusNotifierWatcher"

	menuPath = "/MenuBar"
)

// Pixel sizes for the three icon representations. 22 is the usual panel
// slot, 48 suits large-icon hosts, and the notification representation is
// rendered at double that, matching the doubled metric used for
// notification popups elsewhere.
const (
	iconSizeRegular      = 22
	iconSizeLarge        = 48
	iconSizeNotification = 96
)

// pixmap is an icon image in the wire format of the StatusNotifierItem
// specification: width, height and ARGB32 pixel data in network byte order.
type pixmap struct {
	Width  int32
	Height int32
	Bytes  []byte
}

// toolTip mirrors the (sa(iiay)ss) tooltip structure of the specification.
type toolTip struct {
	IconName string
	Pixmaps  []pixmap
	Title    string
	Text     string
}

type iconPixmaps struct {
	path    string
	pixmaps []pixmap
}

// sniItem receives org.kde.StatusNotifierItem method calls. With ItemIsMenu
// set the host drives the menu itself, so activations need no reaction here.
type sniItem struct {
	n *linuxNative
}

func (s *sniItem) Activate(x, y int32) *dbus.Error          { return nil }
func (s *sniItem) SecondaryActivate(x, y int32) *dbus.Error { return nil }
func (s *sniItem) ContextMenu(x, y int32) *dbus.Error       { return nil }

func (s *sniItem) Scroll(delta int32, orientation string) *dbus.Error { return nil }

func (n *linuxNative) exportItem() error {
	if err := n.conn.Export(&sniItem{n: n}, statusNotifierItemPath, statusNotifierItemInterface); err != nil {
		return fmt.Errorf("failed to export StatusNotifierItem: %w", err)
	}

	return n.exportItemProperties()
}

// exportItemProperties publishes the property set derived from the current
// icon state. It is re-run on every state change; hosts are nudged to
// re-read through the New* signals.
func (n *linuxNative) exportItemProperties() error {
	n.mu.Lock()

	var icon []pixmap
	var tip toolTip
	title := n.appID

	if s := n.state; s != nil {
		if s.hasIcon {
			if e := n.iconAt(s.icon); e != nil {
				icon = e.pixmaps
			}
		}
		tip = toolTip{Title: s.tooltip}
		if s.tooltip != "" {
			title = s.tooltip
		}
	}

	n.mu.Unlock()

	props := prop.Map{
		statusNotifierItemInterface: {
			"Category":   {Value: "ApplicationStatus", Emit: prop.EmitTrue},
			"Id":         {Value: n.appID, Emit: prop.EmitTrue},
			"Title":      {Value: title, Emit: prop.EmitTrue},
			"Status":     {Value: "Active", Emit: prop.EmitTrue},
			"WindowId":   {Value: uint32(0), Emit: prop.EmitTrue},
			"IconName":   {Value: "", Emit: prop.EmitTrue},
			"IconPixmap": {Value: icon, Emit: prop.EmitTrue},
			"ToolTip":    {Value: tip, Emit: prop.EmitTrue},
			"ItemIsMenu": {Value: true, Emit: prop.EmitTrue},
			"Menu":       {Value: dbus.ObjectPath(menuPath), Emit: prop.EmitTrue},
		},
	}

	if _, err := prop.Export(n.conn, statusNotifierItemPath, props); err != nil {
		return fmt.Errorf("failed to export StatusNotifierItem properties: %w", err)
	}

	return nil
}

// loadIcon decodes an .ico file and renders the three representations from
// it. A failure yields zero handles and a log line; the icon simply stays
// absent.
func (n *linuxNative) loadIcon(path string) (regular, large, notification handle) {
	f, err := os.Open(path)
	if err != nil {
		n.r.logf(LogWarning, "failed to open icon %s: %v", path, err)
		return 0, 0, 0
	}
	defer f.Close()

	img, err := ico.Decode(f)
	if err != nil {
		n.r.logf(LogWarning, "failed to decode icon %s: %v", path, err)
		return 0, 0, 0
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	regular = n.addIcon(path, img, iconSizeRegular)
	large = n.addIcon(path, img, iconSizeLarge)
	notification = n.addIcon(path, img, iconSizeNotification)
	return regular, large, notification
}

func (n *linuxNative) addIcon(path string, img image.Image, size int) handle {
	n.icons = append(n.icons, &iconPixmaps{
		path:    path,
		pixmaps: []pixmap{renderPixmap(img, size)},
	})
	return handle(len(n.icons))
}

func (n *linuxNative) iconAt(h handle) *iconPixmaps {
	if h == 0 || int(h) > len(n.icons) {
		return nil
	}
	return n.icons[h-1]
}

func (n *linuxNative) releaseIcon(h handle) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if h == 0 || int(h) > len(n.icons) {
		return
	}
	n.icons[h-1] = nil

	for _, e := range n.icons {
		if e != nil {
			return
		}
	}
	n.icons = n.icons[:0]
}

func renderPixmap(src image.Image, size int) pixmap {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	buf := make([]byte, 0, size*size*4)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := dst.RGBAAt(x, y)
			buf = append(buf, c.A, c.R, c.G, c.B)
		}
	}

	return pixmap{
		Width:  int32(size),
		Height: int32(size),
		Bytes:  buf,
	}
}
