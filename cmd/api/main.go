package main

import (
	"context"
	stderrors "errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"google.golang.org/api/iterator"

	"carmarket/internal/adapter/api"
	"carmarket/internal/adapter/api/handler"
	apimiddleware "carmarket/internal/adapter/api/middleware"
	"carmarket/internal/adapter/api/router"
	"carmarket/internal/adapter/repository"
	"carmarket/internal/adapter/repository/memory"
	domainrepo "carmarket/internal/domain/repository"
	"carmarket/internal/infrastructure/firebase"
	"carmarket/internal/infrastructure/jwtauth"
	"carmarket/internal/infrastructure/messaging"
	"carmarket/internal/infrastructure/metrics"
	"carmarket/internal/infrastructure/mongodb"
	"carmarket/internal/infrastructure/ratelimit"
	"carmarket/internal/infrastructure/tracing"
	"carmarket/internal/infrastructure/websocket"
	"carmarket/internal/usecase"
	"carmarket/pkg/config"
	"carmarket/pkg/logger"
	"carmarket/pkg/response"
)

type repositories struct {
	users    domainrepo.UserRepository
	cars     domainrepo.CarRepository
	requests domainrepo.BuyerRequestRepository
	offers   domainrepo.SellerOfferRepository
	chats    domainrepo.ChatRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	checks := map[string]handler.DependencyCheck{}
	var repos repositories

	switch cfg.DBDriver {
	case config.DriverFirestore:
		firestoreClient, err := firebase.NewFirestoreClient(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to create Firestore client: %v", err)
		}
		defer firestoreClient.Close()

		repos = repositories{
			users:    repository.NewFirestoreUserRepository(firestoreClient),
			cars:     repository.NewFirestoreCarRepository(firestoreClient),
			requests: repository.NewFirestoreBuyerRequestRepository(firestoreClient),
			offers:   repository.NewFirestoreSellerOfferRepository(firestoreClient),
			chats:    repository.NewFirestoreChatRepository(firestoreClient),
		}
		checks["firestore"] = firestoreCheck(firestoreClient)

	case config.DriverMongo:
		mongoClient, err := mongodb.Connect(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer mongoClient.Disconnect(context.Background())

		db := mongoClient.Database(cfg.DatabaseName)
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			log.Fatalf("Failed to create MongoDB indexes: %v", err)
		}

		repos = repositories{
			users:    repository.NewMongoUserRepository(db),
			cars:     repository.NewMongoCarRepository(db),
			requests: repository.NewMongoBuyerRequestRepository(db),
			offers:   repository.NewMongoSellerOfferRepository(db),
			chats:    repository.NewMongoChatRepository(db),
		}
		checks["mongodb"] = func(ctx context.Context) error {
			return mongoClient.Ping(ctx, readpref.Primary())
		}

	default:
		logger.Warn("Using in-memory store; data is lost on restart")
		store := memory.NewStore()
		repos = repositories{
			users:    memory.NewUserRepository(store),
			cars:     memory.NewCarRepository(store),
			requests: memory.NewBuyerRequestRepository(store),
			offers:   memory.NewSellerOfferRepository(store),
			chats:    memory.NewChatRepository(store),
		}
	}

	var verifier usecase.TokenVerifier
	switch cfg.AuthMode {
	case config.AuthModeFirebase:
		authClient, err := firebase.NewAuthClient(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase Auth: %v", err)
		}
		verifier = firebase.NewFirebaseAuthClient(authClient)

	case config.AuthModeJWT:
		jwtVerifier := jwtauth.NewVerifier(cfg.JWTSecret, time.Duration(cfg.JWTExpiry)*time.Second)
		verifier = jwtVerifier
		if !cfg.IsProduction() {
			handler.SetupDevTokenHandler(jwtVerifier)
		}

	case config.AuthModeHeader:
		log.Printf("Auth mode header: trusting %s", apimiddleware.UserIDHeader)
	}

	publisher := messaging.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)

	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine(ctx)

	events := usecase.NewDispatcher(wsManager, publisher, cfg.ServiceName)

	chatUseCase := usecase.NewChatUseCase(repos.chats, repos.users, repos.cars, events, rateLimiter)
	wsManager.SetChatService(chatUseCase)

	negotiationUseCase := usecase.NewNegotiationUseCase(
		repos.requests,
		repos.offers,
		repos.users,
		repos.cars,
		chatUseCase,
		events,
		rateLimiter,
		usecase.NegotiationConfig{
			RequestExpiry: time.Duration(cfg.RequestExpiryDays) * 24 * time.Hour,
			OfferExpiry:   time.Duration(cfg.OfferExpiryDays) * 24 * time.Hour,
		},
	)
	userUseCase := usecase.NewUserUseCase(repos.users)
	carUseCase := usecase.NewCarUseCase(repos.cars, repos.users, events)

	expiryUseCase := usecase.NewExpiryUseCase(repos.requests, repos.offers, events)
	expiryUseCase.StartSweepJob(ctx, cfg.ExpirySweepInterval)

	handler.Setup(negotiationUseCase, chatUseCase, userUseCase, carUseCase)
	handler.SetupHealthHandler(cfg.DBDriver, messaging.PublisherMode(publisher), checks)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		_ = response.Error(c, err)
	}

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			apimiddleware.UserIDHeader,
		},
	}))
	e.Use(metrics.HTTPMiddleware())
	e.Use(tracing.Middleware(cfg.ServiceName))
	e.Use(apimiddleware.RateLimit(rateLimiter, ratelimit.ActionHTTPRequest))

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(verifier, repos.users, cfg.AuthMode == config.AuthModeHeader)
	adminMiddleware := apimiddleware.NewAdminMiddleware()

	wsHandler := handler.NewWebSocketHandler(wsManager, cfg.AllowedOrigins)

	router.Setup(e, authMiddleware, adminMiddleware)
	router.SetupWebSocketRouter(e, wsHandler, authMiddleware)
	router.SetupDevRouter(e)

	go func() {
		logger.Info("Starting server on port %s (db=%s, auth=%s)...", cfg.ServerPort, cfg.DBDriver, cfg.AuthMode)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Printf("Tracing shutdown error: %v", err)
	}
}

func firestoreCheck(client *firestore.Client) handler.DependencyCheck {
	return func(ctx context.Context) error {
		_, err := client.Collection("users").Limit(1).Documents(ctx).Next()
		if err == iterator.Done {
			return nil
		}
		return err
	}
}
