//go:build linux

package tray

import (
	"github.com/esiqveland/notify"
)

type notifier = notify.Notifier

// notificationDefaultAction is the reserved action key desktop environments
// trigger when the notification body itself is clicked.
const notificationDefaultAction = "default"

func (n *linuxNative) setupNotifier() error {
	notifier, err := notify.New(
		n.conn,
		notify.WithOnAction(func(action *notify.ActionInvokedSignal) {
			if action.ActionKey != notificationDefaultAction {
				return
			}
			n.post(func() {
				if action.ID == n.lastNotificationID {
					n.r.dispatchNotificationClick()
				}
			})
		}),
	)
	if err != nil {
		return err
	}

	n.notifier = notifier
	return nil
}

// sendNotification maps the notification fields of an update onto
// org.freedesktop.Notifications. Re-using the previous server id makes a
// rapid sequence of updates replace the popup instead of stacking copies.
func (n *linuxNative) sendNotification(s *iconState) {
	if n.notifier == nil {
		return
	}

	id, err := n.notifier.SendNotification(notify.Notification{
		AppName:    n.appID,
		ReplacesID: n.lastNotificationID,
		AppIcon:    s.balloonIconPath,
		Summary:    s.infoTitle,
		Body:       s.infoText,
		Actions: []notify.Action{
			{Key: notificationDefaultAction, Label: "Open"},
		},
		ExpireTimeout: notify.ExpireTimeoutSetByNotificationServer,
	})
	if err != nil {
		n.r.logf(LogWarning, "failed to send notification: %v", err)
		return
	}

	n.lastNotificationID = id
}
