package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"telegram_miniapp/internal/appctx"
	"telegram_miniapp/internal/bridge"
	"telegram_miniapp/internal/bridge/hostproto"
	"telegram_miniapp/internal/logger"
)

// bridge_smoke connects to a host protocol endpoint, mounts the app context
// and logs everything the host sends until interrupted.
func main() {
	url := flag.String("url", "ws://127.0.0.1:8080/devhost/ws", "host websocket endpoint")
	initData := flag.String("init-data", os.Getenv("INIT_DATA"), "launch payload handed to the page")
	flag.Parse()

	logger.Init("debug", false)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := hostproto.Dial(ctx, *url, nil, *initData)
	if err != nil {
		logger.Fatal("dial host", "url", *url, "error", err)
	}
	go func() {
		if err := client.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("host connection ended", "error", err)
			stop()
		}
	}()

	provider := appctx.NewProvider(client)
	ctx = appctx.WithProvider(ctx, provider)
	res := provider.Mount()
	defer provider.Unmount()

	logger.Info("bridge mounted", "state", res.State().String(), "in_host", res.InHostEnvironment)
	if res.Err != nil {
		logger.Fatal("bridge init failed", "error", res.Err)
	}

	if user, err := appctx.From(ctx).User(); err != nil {
		logger.Warn("no user in init data", "error", err)
	} else if user != nil {
		logger.Info("launched by", "tg_id", user.ID, "username", user.Username)
	}

	b := res.Bridge
	unsubscribe := provider.Subscribe(func(ev appctx.Event) {
		switch ev {
		case appctx.EventViewportChanged:
			vp, _ := provider.Viewport()
			logger.Info("viewport changed", "height", vp.Height, "stable_height", vp.StableHeight, "expanded", vp.IsExpanded)
		case appctx.EventThemeChanged:
			vars, _ := provider.CSSVariables()
			logger.Info("theme changed", "background", vars["--background"], "foreground", vars["--foreground"])
		}
	})
	defer unsubscribe()

	mainBtn := b.MainButton()
	mainBtn.SetText("Send")
	mainBtn.Enable()
	mainBtn.Show()
	defer mainBtn.OnClick(func() {
		logger.Info("main button pressed")
		b.HapticFeedback().ImpactOccurred(bridge.ImpactLight)
	})()

	back := b.BackButton()
	back.Show()
	defer back.OnClick(func() {
		logger.Info("back button pressed")
		b.MiniApp().Close()
	})()

	client.RequestViewport()
	client.RequestTheme()

	select {
	case <-ctx.Done():
	case <-client.Done():
	}
	client.Shutdown()
	logger.Info("bridge smoke finished")
}
