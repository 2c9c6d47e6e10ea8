package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/sealdrop/sealdrop/internal/blob"
	"github.com/sealdrop/sealdrop/internal/config"
	"github.com/sealdrop/sealdrop/internal/engine"
	"github.com/sealdrop/sealdrop/internal/handlers"
	"github.com/sealdrop/sealdrop/internal/quota"
	"github.com/sealdrop/sealdrop/internal/store"
)

func main() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	cfg, err := config.Load()
	if err != nil {
		e.Logger.Fatal(err)
	}
	e.Logger.SetLevel(logLevel(cfg.LogLevel))

	st, err := store.Open(context.Background(), cfg)
	if err != nil {
		e.Logger.Fatal(err)
	}

	repo := blob.NewRepository(st, cfg.MaxPayloadBytes(), cfg.MaxTTL)
	eng := engine.New(repo, quota.NewEnforcer(cfg.MaxPayloadBytes()), cfg.StoreTimeout)
	handlers.New(eng).Register(e)

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Twice the logical ceiling: payloads arrive base64-encoded inside a
	// JSON body, so the transport limit needs headroom over the quota.
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", cfg.MaxPayloadMB*2)))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: 30 * time.Second,
	}))

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()
	e.Logger.Infof("listening on :%s", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	e.Logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Error(err)
	}
	if err := st.Close(); err != nil {
		e.Logger.Error(err)
	}
}

func logLevel(level string) log.Lvl {
	switch level {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	default:
		return log.INFO
	}
}
