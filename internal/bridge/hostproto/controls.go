package hostproto

import (
	"sync"

	"telegram_miniapp/internal/bridge"
)

type backButton struct {
	c      *Client
	clicks bridge.Registry[struct{}]
}

func (b *backButton) Show() { b.c.post(MethodSetupBackButton, backButtonSetup{IsVisible: true}) }
func (b *backButton) Hide() { b.c.post(MethodSetupBackButton, backButtonSetup{IsVisible: false}) }

func (b *backButton) OnClick(fn func()) func() {
	return b.clicks.Add(func(struct{}) { fn() })
}

// mainButton keeps the full button state, since every setup call replaces
// the host's copy wholesale.
type mainButton struct {
	c      *Client
	clicks bridge.Registry[struct{}]

	mu    sync.Mutex
	state mainButtonSetup
}

func (b *mainButton) update(fn func(*mainButtonSetup)) {
	b.mu.Lock()
	fn(&b.state)
	state := b.state
	b.mu.Unlock()
	b.c.post(MethodSetupMainButton, state)
}

func (b *mainButton) Show()               { b.update(func(s *mainButtonSetup) { s.IsVisible = true }) }
func (b *mainButton) Hide()               { b.update(func(s *mainButtonSetup) { s.IsVisible = false }) }
func (b *mainButton) SetText(text string) { b.update(func(s *mainButtonSetup) { s.Text = text }) }
func (b *mainButton) Enable()             { b.update(func(s *mainButtonSetup) { s.IsActive = true }) }
func (b *mainButton) Disable()            { b.update(func(s *mainButtonSetup) { s.IsActive = false }) }
func (b *mainButton) HideProgress()       { b.update(func(s *mainButtonSetup) { s.IsProgressVisible = false }) }

func (b *mainButton) ShowProgress(leaveActive bool) {
	b.update(func(s *mainButtonSetup) {
		s.IsProgressVisible = true
		if !leaveActive {
			s.IsActive = false
		}
	})
}

func (b *mainButton) OnClick(fn func()) func() {
	return b.clicks.Add(func(struct{}) { fn() })
}

type haptics struct{ c *Client }

func (h haptics) ImpactOccurred(style bridge.ImpactStyle) {
	h.c.post(MethodTriggerHapticFeedback, hapticFeedback{Type: "impact", ImpactStyle: string(style)})
}

func (h haptics) NotificationOccurred(kind bridge.NotificationType) {
	h.c.post(MethodTriggerHapticFeedback, hapticFeedback{Type: "notification", NotificationType: string(kind)})
}

func (h haptics) SelectionChanged() {
	h.c.post(MethodTriggerHapticFeedback, hapticFeedback{Type: "selection_change"})
}
