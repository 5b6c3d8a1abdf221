package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"chatwire/global"
	"chatwire/logger"
	midsec "chatwire/middleware/security"
	"chatwire/module/chat"
	"chatwire/module/message"
	"chatwire/module/status"
	statusmodel "chatwire/module/status/model"
	statusservice "chatwire/module/status/service"
	"chatwire/module/user"
	usermodel "chatwire/module/user/model"
	"chatwire/service/mgo"
	"chatwire/service/relay"
	"chatwire/service/storage"
	"chatwire/tools/ids"
	"chatwire/tools/safe"
	"chatwire/tools/security"
)

const statusSweepInterval = time.Hour

func main() {
	cfg, err := global.Load()
	if err != nil {
		logger.Errorf("load config: %v", err)
		os.Exit(1)
	}
	ids.SetNodeID(cfg.NodeID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := mgo.Init(ctx, cfg.MongoURI, cfg.MongoDB); err != nil {
		logger.Errorf("connect mongo: %v", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mgo.Close(closeCtx); err != nil {
			logger.Errorf("mongo disconnect: %v", err)
		}
	}()
	if err := usermodel.EnsureIndexes(ctx, mgo.GetDB()); err != nil {
		logger.Errorf("ensure user indexes: %v", err)
		os.Exit(1)
	}
	if err := statusmodel.EnsureIndexes(ctx, mgo.GetDB()); err != nil {
		logger.Errorf("ensure status indexes: %v", err)
		os.Exit(1)
	}

	var bridge relay.Bridge
	if cfg.RedisAddr != "" {
		if err := storage.InitRedis(ctx, storage.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}); err != nil {
			logger.Errorf("connect redis: %v", err)
			os.Exit(1)
		}
		bridge = storage.NewRedisBridge()
		logger.Infof("redis enabled, gateway=%s bridged", cfg.GatewayID)
	}

	jwtOpts := security.DefaultOptions([]byte(cfg.JWTSecret))
	jwtOpts.TTL = cfg.JWTTTL
	midsec.Init(jwtOpts)

	relaySrv := relay.NewServer(relay.Options{
		GatewayID:     cfg.GatewayID,
		Bridge:        bridge,
		FanoutWorkers: 4,
	})
	safe.Go(func() { relaySrv.Run(ctx) })
	safe.Go(func() { sweepStatuses(ctx) })

	r := gin.New()
	r.Use(gin.Recovery(), cors(cfg.ClientURL))
	user.RegisterRoutes(r)
	chat.RegisterRoutes(r)
	message.RegisterRoutes(r)
	status.RegisterRoutes(r)
	r.GET("/ws", relaySrv.HandleWS)
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	safe.Go(func() {
		logger.Infof("listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("http server: %v", err)
			stop()
		}
	})

	<-ctx.Done()
	logger.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Errorf("http shutdown: %v", err)
	}
}

// cors allows the configured web client origin and answers preflights.
func cors(clientURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", clientURL)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// sweepStatuses periodically clears expired statuses for deployments
// whose Mongo has TTL monitoring disabled.
func sweepStatuses(ctx context.Context) {
	t := time.NewTicker(statusSweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			n, err := statusservice.PurgeExpired(sweepCtx)
			cancel()
			if err != nil {
				logger.Errorf("status sweep: %v", err)
			} else if n > 0 {
				logger.Infof("status sweep removed %d expired", n)
			}
		}
	}
}
