//go:build js && wasm

// webapp is the in-page side of the mini app, compiled to WebAssembly. It
// mounts the bridge against window.Telegram.WebApp and keeps the document's
// CSS variables in sync with the host theme and viewport.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"telegram_miniapp/internal/appctx"
	"telegram_miniapp/internal/bridge/jsnative"
	"telegram_miniapp/internal/logger"
)

func main() {
	logger.Init("info", false)

	native, ok := jsnative.Lookup()
	if !ok {
		logger.Warn("Telegram WebApp object not found; running standalone")
	}

	provider := appctx.NewProvider(native)
	ctx := appctx.WithProvider(context.Background(), provider)

	applyTheme := func() {
		vars, err := appctx.From(ctx).CSSVariables()
		if err != nil {
			return
		}
		jsnative.ApplyCSSVariables(vars)
	}
	provider.Subscribe(func(appctx.Event) { applyTheme() })

	res := provider.Mount()
	logger.Info("bridge mounted", "state", res.State().String())
	if res.Err != nil {
		select {}
	}

	if token, err := exchangeSession(ctx, res.Bridge.RawInitData()); err != nil {
		logger.Warn("session exchange failed", "error", err)
	} else {
		logger.Info("session established", "token_length", len(token))
	}

	select {}
}

// exchangeSession posts init data to the backend that served the page.
func exchangeSession(ctx context.Context, initData string) (string, error) {
	body, err := json.Marshal(map[string]string{"initData": initData})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, jsnative.Origin()+"/api/telegram-auth", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		SessionToken string `json:"sessionToken"`
		Error        string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &authError{status: resp.StatusCode, msg: out.Error}
	}
	return out.SessionToken, nil
}

type authError struct {
	status int
	msg    string
}

func (e *authError) Error() string {
	return http.StatusText(e.status) + ": " + e.msg
}
