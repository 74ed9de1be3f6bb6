package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "giveaway-draw-backend/docs"
	"giveaway-draw-backend/internal/common/cache"
	"giveaway-draw-backend/internal/common/config"
	"giveaway-draw-backend/internal/common/logger"
	"giveaway-draw-backend/internal/common/metrics"
	"giveaway-draw-backend/internal/common/middleware"
	giveawayhttp "giveaway-draw-backend/internal/features/giveaway/delivery/http"
	pgrepo "giveaway-draw-backend/internal/features/giveaway/repository/postgres"
	redisrepo "giveaway-draw-backend/internal/features/giveaway/repository/redis"
	giveawayservice "giveaway-draw-backend/internal/features/giveaway/service"
	"giveaway-draw-backend/internal/platform/postgres"
	"giveaway-draw-backend/internal/platform/redis"
	"giveaway-draw-backend/internal/platform/telegram"
)

// @title           Giveaway Draw API
// @version         1.0
// @description     Participation, bonus tickets and winner drawing for Telegram giveaways. All endpoints require init_data authentication.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey TelegramInitData
// @in header
// @name init_data
// @description Telegram Mini App init_data for authentication

// @tag.name participation
// @tag.description Joining a giveaway, subscription and captcha checks

// @tag.name bonuses
// @tag.description Extra tickets granted by the creator

// @tag.name draw
// @tag.description Winner selection and results

// @tag.name referrals
// @tag.description Personal referral links

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	appLogger := logger.Init("giveaway-draw-backend", cfg.Debug)
	appLogger.Info().Bool("debug", cfg.Debug).Msg("Starting Giveaway Draw Backend")

	// Инициализируем базу данных
	postgresClient, err := postgres.NewClient(cfg)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer postgresClient.Close()

	if cfg.Postgres.AutoMigrate {
		if err := postgresClient.Migrate(); err != nil {
			appLogger.Fatal().Err(err).Msg("Failed to apply migrations")
		}
	}

	// Инициализируем Redis
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	redisClient, err := redis.CreateRedisClient(ctx, cfg)
	cancel()
	if err != nil {
		appLogger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	cacheService := cache.NewCacheService(redisClient)

	// Репозитории
	db := postgresClient.GetDB()
	giveawayRepository := pgrepo.NewGiveawayRepository(db)
	participantRepository := pgrepo.NewParticipantRepository(db)
	referralRepository := pgrepo.NewReferralRepository(db)
	bonusRepository := pgrepo.NewBonusRepository(db)
	winnerRepository := pgrepo.NewWinnerRepository(db)

	lockRepository := redisrepo.NewLockRepository(redisClient)
	captchaRepository := redisrepo.NewCaptchaRepository(redisClient)
	linkRepository := redisrepo.NewReferralLinkRepository(cacheService)

	telegramClient := telegram.NewClient(cfg.Telegram.BotToken, appLogger)

	// Сервисы
	participationSettings := giveawayservice.ParticipationSettings{
		LockWait:        cfg.Participation.LockWait,
		LockTTL:         cfg.Participation.LockTTL,
		CaptchaTTL:      cfg.Participation.CaptchaTTL,
		ReferralLinkTTL: cfg.Participation.ReferralLinkTTL,
	}

	referralLedger := giveawayservice.NewReferralLedger(referralRepository, participantRepository, linkRepository, cfg.Participation.ReferralLinkTTL, appLogger)
	ticketCodes := giveawayservice.NewTicketCodeGenerator(participantRepository)
	joinService := giveawayservice.NewJoinService(
		giveawayRepository,
		participantRepository,
		captchaRepository,
		lockRepository,
		referralLedger,
		ticketCodes,
		telegramClient,
		telegramClient,
		participationSettings,
		appLogger,
	)
	bonusLedger := giveawayservice.NewBonusLedger(giveawayRepository, participantRepository, bonusRepository, lockRepository, participationSettings, appLogger)
	completionService := giveawayservice.NewCompletionService(
		giveawayRepository,
		participantRepository,
		winnerRepository,
		referralRepository,
		lockRepository,
		giveawayservice.NewWinnerSelector(),
		telegramClient,
		giveawayservice.DrawSettings{
			Schedule:        cfg.Draw.Schedule,
			CleanupSchedule: cfg.Draw.CleanupSchedule,
		},
		appLogger,
	)

	if err := completionService.Start(); err != nil {
		appLogger.Fatal().Err(err).Msg("Failed to start completion service")
	}

	// Настраиваем Gin
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.ErrorHandler(appLogger))
	router.Use(middleware.Logger(appLogger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Accept", middleware.InitDataHeader, "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	handler := giveawayhttp.NewGiveawayHandler(joinService, bonusLedger, referralLedger, completionService, appLogger)
	setupRoutes(router, cfg, handler, postgresClient, redisClient, appLogger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Ждем сигнала для graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("Server forced to shutdown")
	}

	completionService.Stop()
	joinService.Wait()

	appLogger.Info().Msg("Server exited")
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	handler *giveawayhttp.GiveawayHandler,
	postgresClient *postgres.Client,
	redisClient redis.RedisClient,
	appLogger zerolog.Logger,
) {
	v1 := router.Group("/api/v1")
	v1.Use(middleware.TelegramInitDataMiddleware(cfg.Telegram.BotToken, cfg.Telegram.InitDataTTL, appLogger))
	handler.RegisterRoutes(v1)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "giveaway-draw-backend",
		})
	})

	router.GET("/live", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := postgresClient.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unready",
				"error":   "postgres unavailable",
				"details": err.Error(),
			})
			return
		}

		if err := redisClient.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unready",
				"error":   "redis unavailable",
				"details": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
			"service":   "giveaway-draw-backend",
		})
	})
}
