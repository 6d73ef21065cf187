package bridge

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram_miniapp/internal/theme"
)

type fakeButton struct {
	shown  bool
	clicks Registry[struct{}]
}

func (b *fakeButton) Show() { b.shown = true }
func (b *fakeButton) Hide() { b.shown = false }
func (b *fakeButton) OnClick(fn func()) func() {
	return b.clicks.Add(func(struct{}) { fn() })
}
func (b *fakeButton) click() { b.clicks.Emit(struct{}{}) }

type fakeMainButton struct {
	fakeButton
	text     string
	progress bool
	enabled  bool
}

func (b *fakeMainButton) SetText(text string) { b.text = text }
func (b *fakeMainButton) ShowProgress(bool)   { b.progress = true }
func (b *fakeMainButton) HideProgress()       { b.progress = false }
func (b *fakeMainButton) Enable()             { b.enabled = true }
func (b *fakeMainButton) Disable()            { b.enabled = false }

type fakeHaptics struct {
	mu    sync.Mutex
	calls []string
}

func (h *fakeHaptics) record(s string) {
	h.mu.Lock()
	h.calls = append(h.calls, s)
	h.mu.Unlock()
}
func (h *fakeHaptics) ImpactOccurred(s ImpactStyle)            { h.record("impact:" + string(s)) }
func (h *fakeHaptics) NotificationOccurred(n NotificationType) { h.record("notify:" + string(n)) }
func (h *fakeHaptics) SelectionChanged()                       { h.record("selection") }

type fakeNative struct {
	mu       sync.Mutex
	calls    []string
	viewport Viewport
	params   theme.Params
	initData string
	events   map[string]*Registry[struct{}]

	back    *fakeButton
	main    *fakeMainButton
	haptics *fakeHaptics

	panicOnReady bool
}

func newFakeNative() *fakeNative {
	return &fakeNative{
		events:  map[string]*Registry[struct{}]{},
		back:    &fakeButton{},
		main:    &fakeMainButton{},
		haptics: &fakeHaptics{},
	}
}

func (f *fakeNative) record(s string) {
	f.mu.Lock()
	f.calls = append(f.calls, s)
	f.mu.Unlock()
}

func (f *fakeNative) Ready() {
	if f.panicOnReady {
		panic("host exploded")
	}
	f.record("ready")
}
func (f *fakeNative) Expand()                     { f.record("expand") }
func (f *fakeNative) Close()                      { f.record("close") }
func (f *fakeNative) EnableClosingConfirmation()  { f.record("confirm_on") }
func (f *fakeNative) DisableClosingConfirmation() { f.record("confirm_off") }
func (f *fakeNative) Viewport() Viewport          { return f.viewport }
func (f *fakeNative) ThemeParams() theme.Params   { return f.params }
func (f *fakeNative) RawInitData() string         { return f.initData }

func (f *fakeNative) OnEvent(event string, fn func()) func() {
	f.mu.Lock()
	r, ok := f.events[event]
	if !ok {
		r = &Registry[struct{}]{}
		f.events[event] = r
	}
	f.mu.Unlock()
	return r.Add(func(struct{}) { fn() })
}

func (f *fakeNative) listeners(event string) int {
	f.mu.Lock()
	r := f.events[event]
	f.mu.Unlock()
	if r == nil {
		return 0
	}
	return r.Len()
}

func (f *fakeNative) fire(event string) {
	f.mu.Lock()
	r := f.events[event]
	f.mu.Unlock()
	if r != nil {
		r.Emit(struct{}{})
	}
}

func (f *fakeNative) BackButton() NativeButton      { return f.back }
func (f *fakeNative) MainButton() NativeMainButton  { return f.main }
func (f *fakeNative) HapticFeedback() NativeHaptics { return f.haptics }

// bareNative exposes only the core Native methods.
type bareNative struct{ Native }

type absentNative struct{ *fakeNative }

func (absentNative) Available() bool { return false }

func TestInit_SendsLifecycleSignals(t *testing.T) {
	n := newFakeNative()
	res := Init(n)

	require.NoError(t, res.Err)
	require.NotNil(t, res.Bridge)
	assert.True(t, res.InHostEnvironment)
	assert.Equal(t, StateReady, res.State())
	assert.Equal(t, []string{"ready", "expand", "confirm_on"}, n.calls)
}

func TestInit_NotInHost(t *testing.T) {
	res := Init(nil)
	assert.ErrorIs(t, res.Err, ErrNotInHost)
	assert.Nil(t, res.Bridge)
	assert.False(t, res.InHostEnvironment)
	assert.Equal(t, StateNotAvailable, res.State())

	n := newFakeNative()
	res = Init(absentNative{n})
	assert.ErrorIs(t, res.Err, ErrNotInHost)
	assert.Empty(t, n.calls)
}

func TestInit_RecoversHostPanic(t *testing.T) {
	n := newFakeNative()
	n.panicOnReady = true

	var res InitResult
	require.NotPanics(t, func() { res = Init(n) })
	assert.ErrorIs(t, res.Err, ErrInitPanic)
	assert.Contains(t, res.Err.Error(), "host exploded")
	assert.Nil(t, res.Bridge)
	assert.Equal(t, StateNotAvailable, res.State())
}

func TestInit_Twice(t *testing.T) {
	n := newFakeNative()
	Init(n)
	Init(n)
	assert.Equal(t, []string{"ready", "expand", "confirm_on", "ready", "expand", "confirm_on"}, n.calls)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "uninitialized", InitResult{}.State().String())
	assert.Equal(t, "not_available", StateNotAvailable.String())
	assert.Equal(t, "ready", StateReady.String())
}

func TestViewport_OnChangeDeliversOnceThenStops(t *testing.T) {
	n := newFakeNative()
	b := Init(n).Bridge
	require.NotNil(t, b)

	var got []float64
	off := b.Viewport().OnChange(func(v Viewport) { got = append(got, v.Height) })

	n.viewport = Viewport{Height: 640, StableHeight: 640, IsExpanded: true}
	n.fire(EventViewportChanged)
	assert.Equal(t, []float64{640}, got)

	off()
	n.viewport.Height = 700
	n.fire(EventViewportChanged)
	assert.Equal(t, []float64{640}, got)
	assert.Equal(t, 0, n.listeners(EventViewportChanged))

	assert.NotPanics(t, off)
}

func TestViewport_UnsubscribesAreIndependent(t *testing.T) {
	n := newFakeNative()
	b := Init(n).Bridge

	var a, c int
	offA := b.Viewport().OnChange(func(Viewport) { a++ })
	offC := b.Viewport().OnChange(func(Viewport) { c++ })
	assert.Equal(t, 2, n.listeners(EventViewportChanged))

	n.fire(EventViewportChanged)
	offA()
	n.fire(EventViewportChanged)

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, c)
	assert.Equal(t, 1, b.Subscriptions())

	offC()
	assert.Equal(t, 0, b.Subscriptions())
}

func TestViewport_Current(t *testing.T) {
	n := newFakeNative()
	n.viewport = Viewport{Height: 500, StableHeight: 480}
	b := Init(n).Bridge

	assert.Equal(t, n.viewport, b.Viewport().Current())
	b.Viewport().Expand()
	assert.Equal(t, "expand", n.calls[len(n.calls)-1])
}

func TestButtons(t *testing.T) {
	n := newFakeNative()
	b := Init(n).Bridge

	clicks := 0
	off := b.BackButton().OnClick(func() { clicks++ })
	b.BackButton().Show()
	assert.True(t, n.back.shown)
	n.back.click()
	off()
	n.back.click()
	assert.Equal(t, 1, clicks)
	b.BackButton().Hide()
	assert.False(t, n.back.shown)

	mb := b.MainButton()
	mb.SetText("Send")
	mb.Enable()
	mb.ShowProgress(true)
	mb.Show()
	assert.Equal(t, "Send", n.main.text)
	assert.True(t, n.main.enabled)
	assert.True(t, n.main.progress)
	assert.True(t, n.main.shown)

	mainClicks := 0
	offMain := mb.OnClick(func() { mainClicks++ })
	n.main.click()
	offMain()
	n.main.click()
	assert.Equal(t, 1, mainClicks)

	mb.HideProgress()
	mb.Disable()
	mb.Hide()
	assert.False(t, n.main.progress)
	assert.False(t, n.main.enabled)
	assert.False(t, n.main.shown)
}

func TestHapticsAndMiniApp(t *testing.T) {
	n := newFakeNative()
	b := Init(n).Bridge

	b.HapticFeedback().ImpactOccurred(ImpactLight)
	b.HapticFeedback().NotificationOccurred(NotificationSuccess)
	b.HapticFeedback().SelectionChanged()
	assert.Equal(t, []string{"impact:light", "notify:success", "selection"}, n.haptics.calls)

	b.MiniApp().DisableClosingConfirmation()
	b.MiniApp().EnableClosingConfirmation()
	b.MiniApp().Expand()
	b.MiniApp().Close()
	assert.Equal(t, []string{"confirm_off", "confirm_on", "expand", "close"}, n.calls[3:])
}

func TestMissingCapabilitiesAreNoops(t *testing.T) {
	b := Init(bareNative{Native: newFakeNative()}).Bridge
	require.NotNil(t, b)

	assert.Nil(t, b.BackButton())
	assert.NotPanics(t, func() {
		b.BackButton().Show()
		b.BackButton().OnClick(func() {})()
		b.MainButton().SetText("x")
		b.MainButton().OnClick(func() {})()
		b.HapticFeedback().ImpactOccurred(ImpactHeavy)
	})
}

func TestNilBridgeIsSafe(t *testing.T) {
	var b *Bridge
	assert.NotPanics(t, func() {
		b.Viewport().Current()
		b.Viewport().Expand()
		b.Viewport().OnChange(func(Viewport) {})()
		b.OnThemeChange(func(theme.Params) {})()
		b.MiniApp().Close()
		b.Close()
	})
	assert.Equal(t, theme.Defaults, b.Theme())
	assert.Empty(t, b.RawInitData())
	_, err := b.InitData()
	assert.True(t, errors.Is(err, ErrNotInHost))
}

func TestTheme(t *testing.T) {
	n := newFakeNative()
	n.params = theme.Params{BgColor: "#17212b"}
	b := Init(n).Bridge

	p := b.Theme()
	assert.Equal(t, "#17212b", p.BgColor)
	assert.Equal(t, theme.Defaults.TextColor, p.TextColor)

	var seen []string
	off := b.OnThemeChange(func(p theme.Params) { seen = append(seen, p.BgColor) })
	n.params.BgColor = "#ffffff"
	n.fire(EventThemeChanged)
	off()
	n.fire(EventThemeChanged)
	assert.Equal(t, []string{"#ffffff"}, seen)
}

func TestInitData(t *testing.T) {
	n := newFakeNative()
	n.initData = "user=%7B%22id%22%3A42%2C%22first_name%22%3A%22Ann%22%7D&auth_date=1700000000&hash=00"
	b := Init(n).Bridge

	assert.Equal(t, n.initData, b.RawInitData())
	d, err := b.InitData()
	require.NoError(t, err)
	require.NotNil(t, d.User)
	assert.Equal(t, int64(42), d.User.ID)
	assert.Equal(t, "Ann", d.User.FirstName)
}

func TestClose_RemovesAllListeners(t *testing.T) {
	n := newFakeNative()
	b := Init(n).Bridge

	calls := 0
	off := b.Viewport().OnChange(func(Viewport) { calls++ })
	b.OnThemeChange(func(theme.Params) { calls++ })
	b.BackButton().OnClick(func() { calls++ })

	b.Close()
	n.fire(EventViewportChanged)
	n.fire(EventThemeChanged)
	n.back.click()

	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, n.listeners(EventViewportChanged))
	assert.Equal(t, 0, b.Subscriptions())
	assert.NotPanics(t, off)
}

func TestRegistry_UnsubscribeDuringEmit(t *testing.T) {
	var r Registry[int]
	var got []int
	var offA func()
	offA = r.Add(func(v int) { got = append(got, v); offA() })
	r.Add(func(v int) { got = append(got, v*10) })

	r.Emit(1)
	r.Emit(2)
	assert.Equal(t, []int{1, 10, 20}, got)
	assert.Equal(t, 1, r.Len())

	r.Clear()
	assert.Equal(t, 0, r.Len())
}
