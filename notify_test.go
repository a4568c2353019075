package tray

import (
	"testing"
)

func TestNotifyFlags(t *testing.T) {
	tests := []struct {
		name  string
		state iconState
		want  uint32
	}{
		{
			name:  "empty",
			state: iconState{},
			want:  nifMessage | nifGUID,
		},
		{
			name:  "icon only",
			state: iconState{icon: 1, hasIcon: true},
			want:  nifMessage | nifGUID | nifIcon,
		},
		{
			name:  "tooltip only",
			state: iconState{tooltip: "hi"},
			want:  nifMessage | nifGUID | nifTip | nifShowTip,
		},
		{
			name:  "notification only",
			state: iconState{hasInfo: true},
			want:  nifMessage | nifGUID | nifInfo,
		},
		{
			name: "everything",
			state: iconState{
				icon:    1,
				hasIcon: true,
				tooltip: "hi",
				hasInfo: true,
			},
			want: nifMessage | nifGUID | nifIcon | nifTip | nifShowTip | nifInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := notifyFlags(&tt.state); got != tt.want {
				t.Errorf("notifyFlags() = %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestComputeState(t *testing.T) {
	r, _ := newTestRuntime(t)

	s := r.computeState(&Tray{Icon: "app.ico", Tooltip: "hi"})

	if !s.hasIcon || s.icon == 0 {
		t.Error("icon not resolved")
	}
	if got, want := s.tooltip, "hi"; got != want {
		t.Errorf("tooltip = %q, want %q", got, want)
	}
	if s.hasInfo || s.hasBalloonIcon {
		t.Error("notification fields set without notification")
	}
}

func TestComputeStateNotification(t *testing.T) {
	r, _ := newTestRuntime(t)

	t.Run("title alone triggers", func(t *testing.T) {
		s := r.computeState(&Tray{NotificationTitle: "t"})
		if !s.hasInfo {
			t.Error("hasInfo = false, want true")
		}
	})

	t.Run("text alone triggers", func(t *testing.T) {
		s := r.computeState(&Tray{NotificationText: "x"})
		if !s.hasInfo {
			t.Error("hasInfo = false, want true")
		}
	})

	t.Run("explicit notification icon", func(t *testing.T) {
		s := r.computeState(&Tray{
			Icon:              "app.ico",
			NotificationIcon:  "alert.ico",
			NotificationTitle: "t",
		})
		if !s.hasBalloonIcon {
			t.Fatal("hasBalloonIcon = false, want true")
		}
		if s.balloonIcon == s.icon {
			t.Error("notification icon resolved to the tray icon")
		}
		if got, want := s.balloonIconPath, "alert.ico"; got != want {
			t.Errorf("balloonIconPath = %q, want %q", got, want)
		}
	})

	t.Run("falls back to tray icon", func(t *testing.T) {
		s := r.computeState(&Tray{
			Icon:              "app.ico",
			NotificationTitle: "t",
		})
		if !s.hasBalloonIcon {
			t.Fatal("hasBalloonIcon = false, want true")
		}
		if s.balloonIcon != s.icon {
			t.Error("notification icon did not fall back to the tray icon")
		}
	})

	t.Run("no icon at all", func(t *testing.T) {
		s := r.computeState(&Tray{NotificationTitle: "t"})
		if s.hasBalloonIcon {
			t.Error("hasBalloonIcon = true with no icon anywhere")
		}
	})
}

// A field absent from an update must not survive from the previous one.
func TestUpdateClearsStaleFields(t *testing.T) {
	r, f := newTestRuntime(t)

	if err := r.Init(&Tray{
		Icon:              "app.ico",
		Tooltip:           "old tip",
		NotificationTitle: "old title",
		NotificationText:  "old text",
	}); err != nil {
		t.Fatalf("Init() = %v, want nil", err)
	}

	r.Update(&Tray{Icon: "app.ico"})

	s := f.lastState()
	if s.tooltip != "" {
		t.Errorf("tooltip = %q after update without one, want empty", s.tooltip)
	}
	if s.hasInfo {
		t.Error("notification survived an update without one")
	}
	if s.infoTitle != "" || s.infoText != "" {
		t.Errorf("notification text = %q/%q, want empty", s.infoTitle, s.infoText)
	}
}

func TestUpdateRepeatsNotification(t *testing.T) {
	r, f := newTestRuntime(t)

	tray := &Tray{NotificationTitle: "hello"}
	if err := r.Init(tray); err != nil {
		t.Fatalf("Init() = %v, want nil", err)
	}

	// Re-applying the same description re-asserts the notification; the
	// backend shows it again on every update that carries one.
	r.Update(tray)

	if got := len(f.states); got != 2 {
		t.Fatalf("%d states applied, want 2", got)
	}
	for i, s := range f.states {
		if !s.hasInfo {
			t.Errorf("state %d lost the notification", i)
		}
	}
}
