package bridge

import "telegram_miniapp/internal/theme"

// Host event names, as used by the host's onEvent/offEvent API.
const (
	EventViewportChanged = "viewportChanged"
	EventThemeChanged    = "themeChanged"
)

// Native is the host's API surface injected into the page. Implementations
// wrap whatever the host exposes (a JS object, a websocket relay, a fake in
// tests). OnEvent must return a function that removes exactly that listener.
type Native interface {
	Ready()
	Expand()
	Close()
	EnableClosingConfirmation()
	DisableClosingConfirmation()

	Viewport() Viewport
	ThemeParams() theme.Params
	RawInitData() string

	OnEvent(event string, fn func()) (off func())
}

// NativeButton is a host button. OnClick follows the same contract as
// Native.OnEvent.
type NativeButton interface {
	Show()
	Hide()
	OnClick(fn func()) (off func())
}

// NativeMainButton is the host's primary action button.
type NativeMainButton interface {
	NativeButton
	SetText(text string)
	ShowProgress(leaveActive bool)
	HideProgress()
	Enable()
	Disable()
}

// NativeHaptics triggers device feedback.
type NativeHaptics interface {
	ImpactOccurred(style ImpactStyle)
	NotificationOccurred(kind NotificationType)
	SelectionChanged()
}

// Optional capabilities are discovered by interface assertion on the Native
// value; hosts that lack them get no-op wrappers.
type (
	BackButtonHost interface{ BackButton() NativeButton }
	MainButtonHost interface{ MainButton() NativeMainButton }
	HapticsHost    interface{ HapticFeedback() NativeHaptics }
)

// Availability lets a Native report that it is a placeholder for an absent host.
type Availability interface {
	Available() bool
}

type ImpactStyle string

const (
	ImpactLight  ImpactStyle = "light"
	ImpactMedium ImpactStyle = "medium"
	ImpactHeavy  ImpactStyle = "heavy"
	ImpactRigid  ImpactStyle = "rigid"
	ImpactSoft   ImpactStyle = "soft"
)

type NotificationType string

const (
	NotificationError   NotificationType = "error"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
)

// Viewport is the visible area the host gives the page, in CSS pixels.
type Viewport struct {
	Height       float64 `json:"height"`
	StableHeight float64 `json:"stableHeight"`
	IsExpanded   bool    `json:"isExpanded"`
}
