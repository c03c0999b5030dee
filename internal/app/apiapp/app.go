package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/itsmeHabibs/poundrr-backend/internal/config"
	s3infra "github.com/itsmeHabibs/poundrr-backend/internal/infra/s3"
	tginfra "github.com/itsmeHabibs/poundrr-backend/internal/infra/telegram"
	pgrepo "github.com/itsmeHabibs/poundrr-backend/internal/repo/postgres"
	redrepo "github.com/itsmeHabibs/poundrr-backend/internal/repo/redis"
	authsvc "github.com/itsmeHabibs/poundrr-backend/internal/services/auth"
	chatsvc "github.com/itsmeHabibs/poundrr-backend/internal/services/chat"
	decksvc "github.com/itsmeHabibs/poundrr-backend/internal/services/deck"
	matchessvc "github.com/itsmeHabibs/poundrr-backend/internal/services/matches"
	notifysvc "github.com/itsmeHabibs/poundrr-backend/internal/services/notify"
	poolsvc "github.com/itsmeHabibs/poundrr-backend/internal/services/pool"
	ratesvc "github.com/itsmeHabibs/poundrr-backend/internal/services/rate"
	swipesvc "github.com/itsmeHabibs/poundrr-backend/internal/services/swipes"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	swipes     *swipesvc.Service
	httpRouter http.Handler

	retryCancel context.CancelFunc
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	rateRepo := redrepo.NewRateRepo(redisClient)
	streamRepo := redrepo.NewStreamRepo(redisClient)
	swipeRepo := pgrepo.NewSwipeRepo(pool)
	channelRepo := pgrepo.NewChannelRepo(pool)
	messageRepo := pgrepo.NewMessageRepo(pool)
	profileRepo := pgrepo.NewProfileRepo(pool)

	var mediaStorage *s3infra.Storage
	if client, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		mediaStorage = s3infra.NewStorage(client, cfg.S3.Bucket, cfg.S3.PresignTTL)
	}

	var notifier swipesvc.Notifier
	if bot, err := tginfra.NewBot(cfg.Bot.Token); err != nil {
		log.Warn("telegram bot init failed, match notifications disabled", zap.Error(err))
	} else {
		notifier = notifysvc.NewTelegramNotifier(bot, profileRepo, cfg.Bot.MatchLinkBase, log)
	}

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	rateLimiter := ratesvc.NewLimiter(rateRepo, cfg.Limits.SwipesPerMinute, cfg.Limits.SwipesPer10Sec)
	poolService := poolsvc.NewService(profileRepo, swipeRepo, mediaStorage, poolsvc.Config{
		PageSize:   cfg.Deck.PageSize,
		WindowDays: cfg.Deck.PoolWindowDays,
	}, log)
	swipeService := swipesvc.NewService(swipesvc.Dependencies{
		Ledger:   swipeRepo,
		Channels: channelRepo,
		Notifier: notifier,
		Limiter:  rateLimiter,
		Logger:   log,
	}, swipesvc.Config{})
	deckService := decksvc.NewService(poolService, swipeService, decksvc.Config{
		ThresholdRatio:    cfg.Deck.ThresholdRatio,
		VelocityThreshold: cfg.Deck.VelocityThreshold,
		PageSize:          cfg.Deck.PageSize,
	}, log)
	matchesService := matchessvc.NewService(swipeRepo, channelRepo, matchessvc.Config{}, log)
	chatService := chatsvc.NewService(pool, chatsvc.Dependencies{
		Messages: messageRepo,
		Channels: channelRepo,
		Stream:   streamRepo,
		Logger:   log,
	}, chatsvc.Config{
		PageSize:      cfg.Chat.PageSize,
		SummaryMaxLen: cfg.Chat.SummaryMaxLen,
	})

	RegisterRoutes(r, Dependencies{
		JWTManager:   jwtManager,
		DeckService:  deckService,
		SwipeService: swipeService,
		MatchService: matchesService,
		ChatService:  chatService,
		Logger:       log,
		Config:       cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		swipes:     swipeService,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	retryCtx, cancel := context.WithCancel(context.Background())
	a.retryCancel = cancel
	go a.swipes.Run(retryCtx)

	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if a.retryCancel != nil {
		a.retryCancel()
	}
	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
