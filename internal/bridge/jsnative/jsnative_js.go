//go:build js && wasm

// Package jsnative adapts the host's window.Telegram.WebApp object to
// bridge.Native when the client is compiled to WebAssembly.
package jsnative

import (
	"syscall/js"

	"telegram_miniapp/internal/bridge"
	"telegram_miniapp/internal/theme"
)

// Lookup returns the host object if the page was opened inside the host.
func Lookup() (bridge.Native, bool) {
	tg := js.Global().Get("Telegram")
	if !present(tg) {
		return nil, false
	}
	app := tg.Get("WebApp")
	if !present(app) {
		return nil, false
	}
	return &native{app: app}, true
}

// ApplyCSSVariables sets each property on the document root element.
func ApplyCSSVariables(vars map[string]string) {
	root := js.Global().Get("document").Get("documentElement")
	if !present(root) {
		return
	}
	style := root.Get("style")
	for k, v := range vars {
		style.Call("setProperty", k, v)
	}
}

// Origin is the page's window.location.origin.
func Origin() string {
	loc := js.Global().Get("location")
	if !present(loc) {
		return ""
	}
	return loc.Get("origin").String()
}

func present(v js.Value) bool {
	return !v.IsUndefined() && !v.IsNull()
}

// call invokes a method only if the host defines it; older clients lack some.
func call(obj js.Value, method string, args ...any) {
	if !present(obj) {
		return
	}
	if fn := obj.Get(method); fn.Type() == js.TypeFunction {
		obj.Call(method, args...)
	}
}

func str(obj js.Value, key string) string {
	v := obj.Get(key)
	if v.Type() != js.TypeString {
		return ""
	}
	return v.String()
}

func num(obj js.Value, key string) float64 {
	v := obj.Get(key)
	if v.Type() != js.TypeNumber {
		return 0
	}
	return v.Float()
}

// listen registers fn through the object's subscribe method and returns a
// function that unregisters it and releases the JS callback.
func listen(obj js.Value, on, off string, args []any, fn func()) func() {
	cb := js.FuncOf(func(js.Value, []js.Value) any {
		fn()
		return nil
	})
	call(obj, on, append(args, cb)...)
	return func() {
		call(obj, off, append(args, cb)...)
		cb.Release()
	}
}

type native struct {
	app js.Value
}

func (n *native) Ready()                      { call(n.app, "ready") }
func (n *native) Expand()                     { call(n.app, "expand") }
func (n *native) Close()                      { call(n.app, "close") }
func (n *native) EnableClosingConfirmation()  { call(n.app, "enableClosingConfirmation") }
func (n *native) DisableClosingConfirmation() { call(n.app, "disableClosingConfirmation") }
func (n *native) RawInitData() string         { return str(n.app, "initData") }

func (n *native) Viewport() bridge.Viewport {
	return bridge.Viewport{
		Height:       num(n.app, "viewportHeight"),
		StableHeight: num(n.app, "viewportStableHeight"),
		IsExpanded:   n.app.Get("isExpanded").Truthy(),
	}
}

func (n *native) ThemeParams() theme.Params {
	tp := n.app.Get("themeParams")
	if !present(tp) {
		return theme.Params{}
	}
	return theme.Params{
		BgColor:                str(tp, "bg_color"),
		TextColor:              str(tp, "text_color"),
		HintColor:              str(tp, "hint_color"),
		LinkColor:              str(tp, "link_color"),
		ButtonColor:            str(tp, "button_color"),
		ButtonTextColor:        str(tp, "button_text_color"),
		SecondaryBgColor:       str(tp, "secondary_bg_color"),
		HeaderBgColor:          str(tp, "header_bg_color"),
		AccentTextColor:        str(tp, "accent_text_color"),
		SectionBgColor:         str(tp, "section_bg_color"),
		SectionHeaderTextColor: str(tp, "section_header_text_color"),
		SubtitleTextColor:      str(tp, "subtitle_text_color"),
		DestructiveTextColor:   str(tp, "destructive_text_color"),
	}
}

func (n *native) OnEvent(event string, fn func()) func() {
	return listen(n.app, "onEvent", "offEvent", []any{event}, fn)
}

func (n *native) BackButton() bridge.NativeButton {
	b := n.app.Get("BackButton")
	if !present(b) {
		return nil
	}
	return button{obj: b}
}

func (n *native) MainButton() bridge.NativeMainButton {
	b := n.app.Get("MainButton")
	if !present(b) {
		return nil
	}
	return mainButton{button{obj: b}}
}

func (n *native) HapticFeedback() bridge.NativeHaptics {
	h := n.app.Get("HapticFeedback")
	if !present(h) {
		return nil
	}
	return haptics{obj: h}
}

type button struct{ obj js.Value }

func (b button) Show() { call(b.obj, "show") }
func (b button) Hide() { call(b.obj, "hide") }

func (b button) OnClick(fn func()) func() {
	return listen(b.obj, "onClick", "offClick", nil, fn)
}

type mainButton struct{ button }

func (b mainButton) SetText(text string)           { call(b.obj, "setText", text) }
func (b mainButton) ShowProgress(leaveActive bool) { call(b.obj, "showProgress", leaveActive) }
func (b mainButton) HideProgress()                 { call(b.obj, "hideProgress") }
func (b mainButton) Enable()                       { call(b.obj, "enable") }
func (b mainButton) Disable()                      { call(b.obj, "disable") }

type haptics struct{ obj js.Value }

func (h haptics) ImpactOccurred(style bridge.ImpactStyle) {
	call(h.obj, "impactOccurred", string(style))
}

func (h haptics) NotificationOccurred(kind bridge.NotificationType) {
	call(h.obj, "notificationOccurred", string(kind))
}

func (h haptics) SelectionChanged() { call(h.obj, "selectionChanged") }
