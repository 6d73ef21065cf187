//go:build !(js && wasm)

// Package jsnative adapts the host's window.Telegram.WebApp object to
// bridge.Native when the client is compiled to WebAssembly.
package jsnative

import "telegram_miniapp/internal/bridge"

// Lookup always reports absence outside the browser.
func Lookup() (bridge.Native, bool) { return nil, false }

// ApplyCSSVariables is a no-op outside the browser.
func ApplyCSSVariables(map[string]string) {}

// Origin is empty outside the browser.
func Origin() string { return "" }
