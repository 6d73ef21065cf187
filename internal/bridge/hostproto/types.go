// Package hostproto speaks the Mini Apps host event protocol over a
// websocket. A Client implements bridge.Native, so a bridge can be driven by
// a desktop or test host instead of the in-page JS object.
package hostproto

import (
	"encoding/json"

	"telegram_miniapp/internal/theme"
)

// Message is one protocol frame in either direction.
type Message struct {
	EventType string          `json:"eventType"`
	EventData json.RawMessage `json:"eventData,omitempty"`
}

// Outbound methods.
const (
	MethodReady                 = "web_app_ready"
	MethodExpand                = "web_app_expand"
	MethodClose                 = "web_app_close"
	MethodSetupClosingBehavior  = "web_app_setup_closing_behavior"
	MethodSetupBackButton       = "web_app_setup_back_button"
	MethodSetupMainButton       = "web_app_setup_main_button"
	MethodTriggerHapticFeedback = "web_app_trigger_haptic_feedback"
	MethodRequestViewport       = "web_app_request_viewport"
	MethodRequestTheme          = "web_app_request_theme"
)

// Inbound events.
const (
	EventViewportChanged   = "viewport_changed"
	EventThemeChanged      = "theme_changed"
	EventBackButtonPressed = "back_button_pressed"
	EventMainButtonPressed = "main_button_pressed"
)

type closingBehavior struct {
	NeedConfirmation bool `json:"need_confirmation"`
}

type backButtonSetup struct {
	IsVisible bool `json:"is_visible"`
}

type mainButtonSetup struct {
	IsVisible         bool   `json:"is_visible"`
	IsActive          bool   `json:"is_active"`
	IsProgressVisible bool   `json:"is_progress_visible"`
	Text              string `json:"text"`
}

type hapticFeedback struct {
	Type             string `json:"type"`
	ImpactStyle      string `json:"impact_style,omitempty"`
	NotificationType string `json:"notification_type,omitempty"`
}

type viewportChanged struct {
	Height        float64 `json:"height"`
	IsExpanded    bool    `json:"is_expanded"`
	IsStateStable bool    `json:"is_state_stable"`
}

type themeChanged struct {
	ThemeParams theme.Params `json:"theme_params"`
}

func encode(eventType string, data any) ([]byte, error) {
	msg := Message{EventType: eventType}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		msg.EventData = raw
	}
	return json.Marshal(msg)
}
