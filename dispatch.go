package tray

// dispatchCommand routes an activated command identifier back to its menu
// item. Identifiers that resolve to nothing are ignored: they can legally
// arrive from a menu that was replaced while its popup was still tracking.
//
// For a checkbox item the checked state flips, and the check visual is
// re-applied, before the callback runs; dispatch is single-threaded, so the
// read-modify-write cannot interleave with another dispatch.
func (r *Runtime) dispatchCommand(id uint32) {
	item, ok := r.commands[id]
	if !ok {
		r.logf(LogDebug, "no menu item bound to command %d", id)
		return
	}

	if item.Checkbox {
		item.Checked = !item.Checked
		r.native.setItemChecked(id, item.Checked)
	}

	if item.Callback != nil {
		item.Callback(item)
	}
}

// dispatchNotificationClick runs the stored notification-click callback, if
// any.
func (r *Runtime) dispatchNotificationClick() {
	if r.notifyCB != nil {
		r.notifyCB()
	}
}

// handleHostRestart recovers from a restart of the shell process hosting the
// notification area (Explorer on Windows, the StatusNotifierWatcher on
// Linux). The restarted shell has silently dropped the icon, so it is
// re-registered, the version opt-in is re-asserted, and the last description
// on record is replayed in full. No caller callback runs on this path.
func (r *Runtime) handleHostRestart() {
	if r.state != stateActive {
		return
	}

	if err := r.native.registerIcon(); err != nil {
		r.logf(LogError, "re-register after shell restart: %v", err)
		return
	}

	if r.last != nil {
		r.Update(r.last)
	}
}
