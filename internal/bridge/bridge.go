// Package bridge wraps the mini-app host's native API in a uniform,
// subscription-based capability object. Every method is safe to call on a
// nil receiver, so code holding a bridge from a failed init needs no checks.
package bridge

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"telegram_miniapp/internal/telegram"
	"telegram_miniapp/internal/theme"
)

var (
	// ErrNotInHost means no host object was supplied; the page runs standalone.
	ErrNotInHost = errors.New("bridge: not running inside the host")
	// ErrInitPanic wraps a panic raised by the host during initialization.
	ErrInitPanic = errors.New("bridge: host failed during initialization")
)

type State int

const (
	StateUninitialized State = iota
	StateNotAvailable
	StateReady
)

func (s State) String() string {
	switch s {
	case StateNotAvailable:
		return "not_available"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// InitResult is produced once per page load.
type InitResult struct {
	Bridge            *Bridge
	InHostEnvironment bool
	Err               error
}

func (r InitResult) State() State {
	switch {
	case r.Bridge != nil:
		return StateReady
	case r.Err != nil:
		return StateNotAvailable
	default:
		return StateUninitialized
	}
}

// Init performs the one-shot transition out of Uninitialized. On success the
// host is told the app is ready, asked to expand, and asked to confirm before
// closing; calling Init again sends these signals again.
func Init(native Native) (res InitResult) {
	defer func() {
		if r := recover(); r != nil {
			res = InitResult{Err: fmt.Errorf("%w: %v", ErrInitPanic, r)}
		}
	}()

	if !IsHostEnvironment(native) {
		return InitResult{Err: ErrNotInHost}
	}

	native.Ready()
	native.Expand()
	native.EnableClosingConfirmation()

	return InitResult{Bridge: newBridge(native), InHostEnvironment: true}
}

// Bridge is the normalized capability object.
type Bridge struct {
	native Native

	viewport   *ViewportCapability
	backButton *BackButton
	mainButton *MainButton
	haptics    *Haptics
	miniApp    *MiniApp

	mu   sync.Mutex
	seq  uint64
	offs map[uint64]func()
}

func newBridge(native Native) *Bridge {
	b := &Bridge{native: native, offs: make(map[uint64]func())}
	b.viewport = &ViewportCapability{b: b}
	b.miniApp = &MiniApp{native: native}
	if h, ok := native.(BackButtonHost); ok {
		if btn := h.BackButton(); btn != nil {
			b.backButton = &BackButton{b: b, native: btn}
		}
	}
	if h, ok := native.(MainButtonHost); ok {
		if btn := h.MainButton(); btn != nil {
			b.mainButton = &MainButton{BackButton: BackButton{b: b, native: btn}, native: btn}
		}
	}
	if h, ok := native.(HapticsHost); ok {
		if hf := h.HapticFeedback(); hf != nil {
			b.haptics = &Haptics{native: hf}
		}
	}
	return b
}

// track wraps a native registration so that the returned unsubscribe is
// idempotent, stops delivery immediately, and is also run by Close.
func (b *Bridge) track(register func(fn func()) (off func()), fn func()) func() {
	var active atomic.Bool
	active.Store(true)
	off := register(func() {
		if active.Load() {
			fn()
		}
	})

	b.mu.Lock()
	b.seq++
	id := b.seq
	b.offs[id] = off
	b.mu.Unlock()

	return func() {
		if !active.CompareAndSwap(true, false) {
			return
		}
		b.mu.Lock()
		delete(b.offs, id)
		b.mu.Unlock()
		if off != nil {
			off()
		}
	}
}

// Close removes every listener this bridge registered with the host.
func (b *Bridge) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	offs := b.offs
	b.offs = make(map[uint64]func())
	b.mu.Unlock()
	for _, off := range offs {
		if off != nil {
			off()
		}
	}
}

// Subscriptions reports how many listeners are registered with the host.
func (b *Bridge) Subscriptions() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.offs)
}

func noop() {}

// Theme returns the host palette with required tokens defaulted.
func (b *Bridge) Theme() theme.Params {
	if b == nil {
		return theme.Defaults
	}
	return b.native.ThemeParams().WithDefaults()
}

// OnThemeChange calls fn with the new palette whenever the host changes theme.
func (b *Bridge) OnThemeChange(fn func(theme.Params)) func() {
	if b == nil || fn == nil {
		return noop
	}
	return b.track(func(h func()) func() {
		return b.native.OnEvent(EventThemeChanged, h)
	}, func() { fn(b.Theme()) })
}

// RawInitData is the signed launch payload to forward to the server.
func (b *Bridge) RawInitData() string {
	if b == nil {
		return ""
	}
	return b.native.RawInitData()
}

// InitData decodes the launch payload without verifying it. Use it for
// display only; the server is the authority on identity.
func (b *Bridge) InitData() (*telegram.InitData, error) {
	if b == nil {
		return nil, ErrNotInHost
	}
	return telegram.Parse(b.native.RawInitData())
}

func (b *Bridge) Viewport() *ViewportCapability {
	if b == nil {
		return nil
	}
	return b.viewport
}

func (b *Bridge) BackButton() *BackButton {
	if b == nil {
		return nil
	}
	return b.backButton
}

func (b *Bridge) MainButton() *MainButton {
	if b == nil {
		return nil
	}
	return b.mainButton
}

func (b *Bridge) HapticFeedback() *Haptics {
	if b == nil {
		return nil
	}
	return b.haptics
}

func (b *Bridge) MiniApp() *MiniApp {
	if b == nil {
		return nil
	}
	return b.miniApp
}

type ViewportCapability struct {
	b *Bridge
}

// Current reads the viewport from the host.
func (v *ViewportCapability) Current() Viewport {
	if v == nil {
		return Viewport{}
	}
	return v.b.native.Viewport()
}

func (v *ViewportCapability) Expand() {
	if v == nil {
		return
	}
	v.b.native.Expand()
}

// OnChange calls fn with the viewport after every host resize. Each call
// registers its own host listener; the returned function removes only it.
func (v *ViewportCapability) OnChange(fn func(Viewport)) func() {
	if v == nil || fn == nil {
		return noop
	}
	return v.b.track(func(h func()) func() {
		return v.b.native.OnEvent(EventViewportChanged, h)
	}, func() { fn(v.b.native.Viewport()) })
}

type BackButton struct {
	b      *Bridge
	native NativeButton
}

func (btn *BackButton) Show() {
	if btn == nil {
		return
	}
	btn.native.Show()
}

func (btn *BackButton) Hide() {
	if btn == nil {
		return
	}
	btn.native.Hide()
}

func (btn *BackButton) OnClick(fn func()) func() {
	if btn == nil || fn == nil {
		return noop
	}
	return btn.b.track(btn.native.OnClick, fn)
}

// MainButton embeds the shared show/hide/click behavior of BackButton.
type MainButton struct {
	BackButton
	native NativeMainButton
}

func (btn *MainButton) Show() {
	if btn == nil {
		return
	}
	btn.BackButton.Show()
}

func (btn *MainButton) Hide() {
	if btn == nil {
		return
	}
	btn.BackButton.Hide()
}

func (btn *MainButton) OnClick(fn func()) func() {
	if btn == nil {
		return noop
	}
	return btn.BackButton.OnClick(fn)
}

func (btn *MainButton) SetText(text string) {
	if btn == nil {
		return
	}
	btn.native.SetText(text)
}

func (btn *MainButton) ShowProgress(leaveActive bool) {
	if btn == nil {
		return
	}
	btn.native.ShowProgress(leaveActive)
}

func (btn *MainButton) HideProgress() {
	if btn == nil {
		return
	}
	btn.native.HideProgress()
}

func (btn *MainButton) Enable() {
	if btn == nil {
		return
	}
	btn.native.Enable()
}

func (btn *MainButton) Disable() {
	if btn == nil {
		return
	}
	btn.native.Disable()
}

// Haptics calls are fire-and-forget.
type Haptics struct {
	native NativeHaptics
}

func (h *Haptics) ImpactOccurred(style ImpactStyle) {
	if h == nil {
		return
	}
	h.native.ImpactOccurred(style)
}

func (h *Haptics) NotificationOccurred(kind NotificationType) {
	if h == nil {
		return
	}
	h.native.NotificationOccurred(kind)
}

func (h *Haptics) SelectionChanged() {
	if h == nil {
		return
	}
	h.native.SelectionChanged()
}

// MiniApp controls the app's lifecycle inside the host.
type MiniApp struct {
	native Native
}

func (m *MiniApp) Expand() {
	if m == nil {
		return
	}
	m.native.Expand()
}

func (m *MiniApp) Close() {
	if m == nil {
		return
	}
	m.native.Close()
}

func (m *MiniApp) EnableClosingConfirmation() {
	if m == nil {
		return
	}
	m.native.EnableClosingConfirmation()
}

func (m *MiniApp) DisableClosingConfirmation() {
	if m == nil {
		return
	}
	m.native.DisableClosingConfirmation()
}
