package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/itsmeHabibs/poundrr-backend/internal/config"
	authsvc "github.com/itsmeHabibs/poundrr-backend/internal/services/auth"
	chatsvc "github.com/itsmeHabibs/poundrr-backend/internal/services/chat"
	decksvc "github.com/itsmeHabibs/poundrr-backend/internal/services/deck"
	matchessvc "github.com/itsmeHabibs/poundrr-backend/internal/services/matches"
	swipesvc "github.com/itsmeHabibs/poundrr-backend/internal/services/swipes"
	"github.com/itsmeHabibs/poundrr-backend/internal/transport/http/handlers"
)

type Dependencies struct {
	JWTManager   *authsvc.JWTManager
	DeckService  *decksvc.Service
	SwipeService *swipesvc.Service
	MatchService *matchessvc.Service
	ChatService  *chatsvc.Service
	Logger       *zap.Logger
	Config       config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	deckHandler := handlers.NewDeckHandler(deps.DeckService)
	swipeHandler := handlers.NewSwipeHandler(deps.SwipeService)
	matchesHandler := handlers.NewMatchesHandler(deps.MatchService)
	chatHandler := handlers.NewChatHandler(deps.ChatService)
	chatStreamHandler := handlers.NewChatStreamHandler(deps.ChatService, deps.Logger)
	authMW := AuthMiddleware(deps.JWTManager, deps.Logger)

	r.Get("/healthz", handlers.Health)

	r.Route("/v1", func(r chi.Router) {
		r.With(authMW).Get("/deck", deckHandler.Get)
		r.With(authMW).Post("/deck/refresh", deckHandler.Refresh)
		r.With(authMW).Post("/deck/release", deckHandler.Release)
		r.With(authMW).Post("/deck/animation-done", deckHandler.AnimationDone)
		r.With(authMW).Post("/swipes", swipeHandler.Handle)
		r.With(authMW).Get("/matches", matchesHandler.Handle)
		r.With(authMW).Post("/unmatch", matchesHandler.Unmatch)
		r.Route("/chat/{channelID}", func(r chi.Router) {
			r.With(authMW).Get("/messages", chatHandler.History)
			r.With(authMW).Post("/messages", chatHandler.Send)
			r.With(authMW).Get("/subscribe", chatStreamHandler.Handle)
		})
	})
}
