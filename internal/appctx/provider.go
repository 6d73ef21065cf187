// Package appctx holds the page's single bridge instance and hands it to
// consumers through context.Context.
package appctx

import (
	"context"
	"errors"
	"sync"

	"telegram_miniapp/internal/bridge"
	"telegram_miniapp/internal/telegram"
	"telegram_miniapp/internal/theme"
)

// ErrNotReady is returned by accessors before Mount has run.
var ErrNotReady = errors.New("appctx: provider not mounted")

type Event int

const (
	// EventMounted fires once, after Mount, whatever the outcome.
	EventMounted Event = iota
	EventViewportChanged
	EventThemeChanged
)

func (e Event) String() string {
	switch e {
	case EventMounted:
		return "mounted"
	case EventViewportChanged:
		return "viewport_changed"
	case EventThemeChanged:
		return "theme_changed"
	default:
		return "unknown"
	}
}

// Provider initializes the bridge at most once and relays host changes to
// subscribers.
type Provider struct {
	native bridge.Native

	once    sync.Once
	mu      sync.RWMutex
	mounted bool
	result  bridge.InitResult
	offs    []func()

	subs bridge.Registry[Event]
}

func NewProvider(native bridge.Native) *Provider {
	return &Provider{native: native}
}

// Mount runs bridge.Init on the first call and returns its result on every
// call.
func (p *Provider) Mount() bridge.InitResult {
	p.once.Do(func() {
		res := bridge.Init(p.native)

		var offs []func()
		if b := res.Bridge; b != nil {
			offs = append(offs,
				b.Viewport().OnChange(func(bridge.Viewport) { p.subs.Emit(EventViewportChanged) }),
				b.OnThemeChange(func(theme.Params) { p.subs.Emit(EventThemeChanged) }),
			)
		}

		p.mu.Lock()
		p.result = res
		p.mounted = true
		p.offs = offs
		p.mu.Unlock()

		p.subs.Emit(EventMounted)
	})
	return p.Result()
}

// Unmount drops host listeners and subscribers. The provider cannot be
// mounted again.
func (p *Provider) Unmount() {
	p.once.Do(func() {})

	p.mu.Lock()
	offs := p.offs
	p.offs = nil
	p.mu.Unlock()

	for _, off := range offs {
		off()
	}
	p.subs.Clear()
}

// Result is the stored init outcome; the zero value before Mount.
func (p *Provider) Result() bridge.InitResult {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.result
}

// Subscribe calls fn on mount and on every viewport or theme change.
func (p *Provider) Subscribe(fn func(Event)) func() {
	return p.subs.Add(fn)
}

// Bridge returns the ready bridge, ErrNotReady before Mount, or the init
// error when the host is absent.
func (p *Provider) Bridge() (*bridge.Bridge, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	switch {
	case !p.mounted:
		return nil, ErrNotReady
	case p.result.Bridge == nil:
		if p.result.Err != nil {
			return nil, p.result.Err
		}
		return nil, bridge.ErrNotInHost
	default:
		return p.result.Bridge, nil
	}
}

// User is the unverified launch user, for display. It is nil when the host
// launched the app without one.
func (p *Provider) User() (*telegram.User, error) {
	b, err := p.Bridge()
	if err != nil {
		return nil, err
	}
	d, err := b.InitData()
	if err != nil {
		return nil, err
	}
	return d.User, nil
}

func (p *Provider) Theme() (theme.Params, error) {
	b, err := p.Bridge()
	if err != nil {
		return theme.Params{}, err
	}
	return b.Theme(), nil
}

func (p *Provider) Viewport() (bridge.Viewport, error) {
	b, err := p.Bridge()
	if err != nil {
		return bridge.Viewport{}, err
	}
	return b.Viewport().Current(), nil
}

// CSSVariables renders the current theme and viewport as CSS properties.
func (p *Provider) CSSVariables() (map[string]string, error) {
	b, err := p.Bridge()
	if err != nil {
		return nil, err
	}
	vp := b.Viewport().Current()
	return theme.ToCSSVariables(b.Theme(), &theme.Viewport{Height: vp.Height, StableHeight: vp.StableHeight}), nil
}

type ctxKey struct{}

func WithProvider(ctx context.Context, p *Provider) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// From returns the provider stored in ctx and panics if there is none.
func From(ctx context.Context) *Provider {
	if ctx != nil {
		if p, ok := ctx.Value(ctxKey{}).(*Provider); ok && p != nil {
			return p
		}
	}
	panic("appctx: must be used within Provider")
}
