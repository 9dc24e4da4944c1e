package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vpsvoucher/voucher-service/internal/config"
	"github.com/vpsvoucher/voucher-service/internal/db"
	"github.com/vpsvoucher/voucher-service/internal/extract"
	internalhttp "github.com/vpsvoucher/voucher-service/internal/http"
	"github.com/vpsvoucher/voucher-service/internal/http/api/admin"
	"github.com/vpsvoucher/voucher-service/internal/http/api/front"
	"github.com/vpsvoucher/voucher-service/internal/logging"
	"github.com/vpsvoucher/voucher-service/internal/paystack"
	"github.com/vpsvoucher/voucher-service/internal/voucher"
)

// shutdownTimeout bounds graceful drain of in-flight requests.
const shutdownTimeout = 10 * time.Second

// Run boots the voucher service and blocks until ctx is cancelled.
func Run(ctx context.Context, configPath string) error {
	cfg, errLoad := config.Load(configPath)
	if errLoad != nil {
		return errLoad
	}
	logging.Setup(cfg.Log)

	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	gateway := paystack.NewClient(cfg.Paystack)
	allocator := voucher.NewAllocator(conn)
	dispatcher := voucher.NewDispatcher(conn, allocator)
	svc := voucher.NewService(conn, gateway, allocator, dispatcher, cfg.Vouchers)
	uploader := voucher.NewUploader(conn, extract.NewBatchTextExtractor(), cfg.Vouchers.Classes)
	inventory := voucher.NewInventory(conn, cfg.Vouchers.Classes)

	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), internalhttp.RequestIDMiddleware(), internalhttp.RequestLogMiddleware())
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	front.RegisterFrontRoutes(engine, conn, cfg.JWT, svc)
	admin.RegisterAdminRoutes(engine, conn, cfg.JWT, uploader, inventory)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("voucher service listening")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case errServe := <-serveErr:
		if errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			return errServe
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		return errShutdown
	}
	return nil
}
