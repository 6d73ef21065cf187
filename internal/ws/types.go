// Package ws is a development stand-in for the Telegram client. Pages connect
// over the host protocol, receive theme and viewport events, and have their
// web_app_* calls recorded, so the app can be exercised without a phone.
package ws

import (
	"encoding/json"

	"telegram_miniapp/internal/bridge/hostproto"
	"telegram_miniapp/internal/theme"
)

// Button names accepted by Hub.Press.
const (
	ButtonBack = "back"
	ButtonMain = "main"
)

// Viewport is the host window state pushed to pages.
type Viewport struct {
	Height     float64 `json:"height"`
	IsExpanded bool    `json:"is_expanded"`
}

// Call is one web_app_* method a page sent to the host.
type Call struct {
	PageID int64
	Method string
	Data   json.RawMessage
}

type viewportEvent struct {
	Height        float64 `json:"height"`
	IsExpanded    bool    `json:"is_expanded"`
	IsStateStable bool    `json:"is_state_stable"`
}

type themeEvent struct {
	ThemeParams theme.Params `json:"theme_params"`
}

func frame(eventType string, data any) ([]byte, error) {
	msg := hostproto.Message{EventType: eventType}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		msg.EventData = raw
	}
	return json.Marshal(msg)
}
