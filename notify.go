package tray

// iconState is the complete notify-icon field set for one update. It is
// recomputed from scratch every time: a field that is not re-asserted here is
// treated as "clear this field" by the backend, so stale tooltips or
// notification text cannot survive an earlier update.
type iconState struct {
	icon    handle
	hasIcon bool

	tooltip string

	infoTitle       string
	infoText        string
	hasInfo         bool
	balloonIcon     handle
	hasBalloonIcon  bool
	balloonIconPath string
}

// Shell_NotifyIcon flag bits. Kept out of the Windows-only files so the flag
// recomputation stays testable on every platform.
const (
	nifMessage = 0x01
	nifIcon    = 0x02
	nifTip     = 0x04
	nifInfo    = 0x10
	nifGUID    = 0x20
	nifShowTip = 0x80
)

// notifyFlags derives the Shell_NotifyIcon flag set for s. The message
// callback and GUID identity are always asserted; everything else appears
// only when the state carries it.
func notifyFlags(s *iconState) uint32 {
	flags := uint32(nifMessage | nifGUID)
	if s.hasIcon {
		flags |= nifIcon
	}
	if s.tooltip != "" {
		// With NOTIFYICON_VERSION_4 the standard tooltip is suppressed
		// unless NIF_SHOWTIP accompanies NIF_TIP.
		flags |= nifTip | nifShowTip
	}
	if s.hasInfo {
		flags |= nifInfo
	}
	return flags
}

// computeState assembles the icon state for t, resolving icons through the
// cache. The notification prefers an explicit notification icon (decoded at
// double the platform icon metric) and falls back to the tray icon.
func (r *Runtime) computeState(t *Tray) *iconState {
	s := &iconState{tooltip: t.Tooltip}

	if t.Icon != "" {
		if h := r.cache.resolve(r.native, t.Icon, iconRegular); h != 0 {
			s.icon = h
			s.hasIcon = true
		}
	}

	if t.NotificationTitle == "" && t.NotificationText == "" {
		return s
	}

	s.hasInfo = true
	s.infoTitle = t.NotificationTitle
	s.infoText = t.NotificationText

	if t.NotificationIcon != "" {
		if h := r.cache.resolve(r.native, t.NotificationIcon, iconNotification); h != 0 {
			s.balloonIcon = h
			s.hasBalloonIcon = true
			s.balloonIconPath = t.NotificationIcon
		}
	}
	if !s.hasBalloonIcon && s.hasIcon {
		s.balloonIcon = s.icon
		s.hasBalloonIcon = true
		s.balloonIconPath = t.Icon
	}

	return s
}
