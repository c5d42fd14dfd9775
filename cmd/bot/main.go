package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"

	"senseibot/internal/bot"
	"senseibot/internal/config"
	logx "senseibot/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config yaml")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	defer logSvc.Close()

	cfgm.SetLogger(log.With(logx.String("comp", "config")))
	cfgm.SetValidator(config.Validate)

	app, err := bot.NewApp(cfgm, log)
	if err != nil {
		log.Error("startup failed", logx.Err(err))
		os.Exit(1)
	}

	go func() {
		if werr := cfgm.Watch(ctx); werr != nil {
			log.Warn("config watch stopped", logx.Err(werr))
		}
	}()

	// No-op outside a systemd unit with NOTIFY_SOCKET.
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	log.Info("senseibot started", logx.String("config", cfgPath))

	if err := app.Run(ctx); err != nil {
		log.Error("run failed", logx.Err(err))
		_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
		os.Exit(1)
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	log.Info("senseibot stopped")
}
