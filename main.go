package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "virtual_queue/docs"
	"virtual_queue/internal/auth"
	"virtual_queue/internal/config"
	"virtual_queue/internal/events"
	"virtual_queue/internal/handlers"
	"virtual_queue/internal/logger"
	"virtual_queue/internal/models"
	"virtual_queue/internal/notify"
	"virtual_queue/internal/queue"
	"virtual_queue/internal/storage"
	"virtual_queue/internal/storage/memory"
	"virtual_queue/internal/tasks"
	"virtual_queue/internal/ws"
)

// @Title						Виртуальная очередь
// @Description				Приём участников в очередь, вызов с ограниченным темпом и отслеживание неявок
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	if err := config.LoadDotEnv(); err != nil {
		logger.Logger.Info("файл .env не найден, используются переменные окружения")
	}
	cfg, err := config.Load(config.New(), os.Getenv("VQ_CONFIG"))
	if err != nil {
		logger.Logger.WithError(err).Fatal("ошибка конфигурации")
	}
	logger.Init(cfg.LogLevel)
	log := logger.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queues, sessions := openStorage(cfg)

	hub := ws.NewHub()
	go hub.Run(ctx)
	sinks := events.Multi{hub}
	var closers []func()

	if cfg.Redis.Addr != "" {
		client, err := storage.InitRedis(ctx, cfg.Redis)
		if err != nil {
			log.WithError(err).Fatal("ошибка подключения к redis")
		}
		sinks = append(sinks, notify.NewRedisSink(client, cfg.Redis.ChannelPrefix))
		closers = append(closers, func() { client.Close() })
	}
	if cfg.AMQP.URL != "" {
		sink, err := notify.NewAMQPSink(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			log.WithError(err).Fatal("ошибка подключения к RabbitMQ")
		}
		sinks = append(sinks, sink)
		closers = append(closers, sink.Close)
	}

	engine, err := queue.New(queues, sessions,
		queue.WithConfig(cfg.Engine),
		queue.WithSink(sinks),
		queue.WithLogger(log),
	)
	if err != nil {
		log.WithError(err).Fatal("ошибка создания движка очередей")
	}
	restored, err := engine.Restore(ctx)
	if err != nil {
		log.WithError(err).Fatal("ошибка восстановления очередей")
	}
	log.WithField("sessions", restored).Info("активные сессии восстановлены")

	planner, err := tasks.InitScheduler(engine, tasks.Intervals{
		Release: cfg.Engine.TickInterval,
		Sweep:   cfg.SweepInterval,
		Archive: cfg.ArchiveInterval,
	})
	if err != nil {
		log.WithError(err).Fatal("ошибка запуска планировщика")
	}
	planner.Start()

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: !containsWildcard(cfg.CORSOrigins),
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	handlers.New(engine, queues).Register(r, auth.StaffMiddleware([]byte(cfg.JWTSecret)), hub.QueueWebSocketHandler)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("сервер запущен")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("ошибка запуска сервера")
		}
	}()

	<-ctx.Done()
	log.Info("остановка сервера")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("ошибка остановки HTTP-сервера")
	}
	if err := planner.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("фоновые задачи не завершились вовремя")
	}
	if err := engine.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("не все события доставлены")
	}
	for _, c := range closers {
		c()
	}
}

type queueStore interface {
	queue.QueueRepository
	handlers.QueueStore
}

func openStorage(cfg *config.Config) (queueStore, queue.SessionRepository) {
	if cfg.StorageDriver == "memory" {
		logger.Logger.Warn("используется хранилище в памяти, данные не сохраняются между запусками")
		store := memory.New()
		return store, store
	}
	db, err := storage.ConnectDatabase(cfg.DB)
	if err != nil {
		logger.Logger.WithError(err).Fatal("ошибка подключения к базе данных")
	}
	if err := storage.Migrate(db); err != nil {
		logger.Logger.WithError(err).Fatal("ошибка при миграции")
	}
	logger.Logger.WithField("tables", len(models.All())).Info("подключение к базе данных успешно")
	return storage.NewQueueRepo(db), storage.NewSessionRepo(db)
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("запрос")
	}
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
