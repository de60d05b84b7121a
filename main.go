package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"CSProject/config"
	"CSProject/logger"
	"CSProject/module/conversation/core"
	"CSProject/service/chat"
	"CSProject/service/natsx"
	"CSProject/service/storage"
	redissrv "CSProject/service/storage/redis"
	"CSProject/tools/ids"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Errorf("[main] load config: %v", err)
		os.Exit(1)
	}
	ids.SetNodeID(cfg.Server.NodeID)

	// presence is best-effort infrastructure: the gateway runs without
	// redis, it just cannot answer "who is online"
	var presence *storage.Presence
	if cfg.Redis.Addr != "" {
		rdb, err := redissrv.Connect(redissrv.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			logger.Warnf("[main] redis unavailable, presence disabled: %v", err)
		} else {
			presence = storage.NewPresence(rdb, cfg.PresenceTTL())
		}
	}

	var nm *natsx.NatsManager
	if len(cfg.Nats.Servers) > 0 {
		nm, err = natsx.NewNatsManager(natsx.NatsxConfig{
			Servers: cfg.Nats.Servers,
			Name:    cfg.Nats.Name,
		})
		if err != nil {
			logger.Warnf("[main] nats unavailable, local event delivery only: %v", err)
			nm = nil
		}
	}

	reg := core.NewRegister()
	server := chat.NewServer(cfg, reg, nm, presence)
	if err := server.StartEventLoop(); err != nil {
		logger.Errorf("[main] start event loop: %v", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.Router(),
	}
	go func() {
		logger.Infof("[main] gateway %s listening on %s", cfg.Server.GatewayID, cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("[main] listen: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("[main] shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	if nm != nil {
		_ = nm.Close()
	}
}
