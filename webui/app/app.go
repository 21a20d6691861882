package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookops/bookshelf-service/pkg/httpretry"
	"github.com/bookops/bookshelf-service/pkg/logger"
	"github.com/bookops/bookshelf-service/webui/config"
	"github.com/bookops/bookshelf-service/webui/internal/controller"
	"github.com/bookops/bookshelf-service/webui/internal/handler"
	"github.com/bookops/bookshelf-service/webui/internal/render"
	"github.com/bookops/bookshelf-service/webui/internal/server"
	"github.com/bookops/bookshelf-service/webui/internal/service/catalog"
	"go.uber.org/zap"
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "webui")

	renderer, err := render.New()
	if err != nil {
		log.Fatal("render", zap.Error(err))
	}

	client := httpretry.New(log, httpretry.WithPendingFunc(func(pending bool) {
		if pending {
			log.Debug("waiting on backend")
		}
	}))
	api := catalog.New(client, cfg.Catalog.BaseURL, log)
	ctrl := controller.New(api, log)

	h := handler.New(ctrl, log)
	srv := server.NewServer(cfg.Server, h.NewRouter(renderer))
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	log.Info("Graceful shutdown finished")
}
