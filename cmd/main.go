package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"goban/internal/adapters"
	"goban/internal/bootstrap"
	gameDelivery "goban/internal/delivery/game"
	domain "goban/internal/domain/game"
	"goban/internal/events"
	"goban/internal/gtp"
	ownMiddleware "goban/internal/middleware"
	repo "goban/internal/repository"
	gameUsecase "goban/internal/usecase/game"
	"goban/internal/usecase/load"
	"goban/internal/usecase/setup"
)

type mainDeliveryHandler struct {
	game *gameDelivery.GameHandler
}

type dataBaseAdapters struct {
	redisAdapter *adapters.AdapterRedis
	mongoAdapter *adapters.AdapterMongo
}

func main() {
	logger := NewLogger()
	cfg, err := bootstrap.Setup(".env")
	if err != nil {
		logger.Error("Failed to setup configuration", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go handleShutdown(cancel, logger)

	databaseAdapters := initDatabaseAdapters(ctx, logger, cfg)
	defer databaseAdapters.mongoAdapter.Close(ctx)
	defer databaseAdapters.redisAdapter.Close(ctx)

	engine, err := gtp.NewClient(cfg, logger)
	if err != nil {
		logger.Fatal("Не удалось запустить GTP-движок", zap.Error(err))
	}
	defer engine.Close()

	bus := events.NewBus()
	handle := domain.NewHandle()

	setupUC := setup.NewOrchestrator(cfg, logger, engine, bus, handle)
	loadUC := load.NewOrchestrator(cfg, logger, engine, setupUC, bus)
	store := repo.NewGameRepository(*cfg, logger, databaseAdapters.redisAdapter.GetClient(), databaseAdapters.mongoAdapter.Database)
	gameUC := gameUsecase.NewGameUseCase(logger, engine, setupUC, handle, store)

	// стартовая партия по умолчанию, чтобы система сразу была играбельна
	if _, err := setupUC.NewGame(setupUC.DefaultConfig(), setup.Options{
		SetupEngine:  true,
		SetupStones:  true,
		ApplyProfile: true,
	}); err != nil {
		logger.Fatal("Не удалось настроить стартовую партию", zap.Error(err))
	}

	r := chi.NewRouter()
	handlers := &mainDeliveryHandler{
		game: gameDelivery.NewGameHandler(*cfg, logger, handle, gameUC, setupUC, loadUC, bus),
	}
	handlers.Router(r, cfg.IsLocalCors)

	logger.Infof("Server is running on port %s", cfg.ServerPort)
	if err := http.ListenAndServe(cfg.ServerPort, r); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

func NewLogger() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	return logger.Sugar()
}

func (h *mainDeliveryHandler) Router(r *chi.Mux, isLocalCors bool) {
	if isLocalCors {
		r.Use(ownMiddleware.CORS)
	}
	r.Use(middleware.Logger)

	r.Post("/NewGame", h.game.HandleNewGame)
	r.Post("/LoadGame", h.game.HandleLoadGame)
	r.Post("/SaveGame", h.game.HandleSaveGame)
	r.Get("/GameState", h.game.HandleGameState)
	r.Get("/Archive", h.game.HandleArchive)
	r.Get("/PlayGame", h.game.HandlePlayGame)
}

func initDatabaseAdapters(ctx context.Context, log *zap.SugaredLogger, cfg *bootstrap.Config) *dataBaseAdapters {
	mongoAdapter := adapters.NewAdapterMongo(cfg, log)
	if err := mongoAdapter.Init(ctx); err != nil {
		log.Fatal("Не удалось инициализировать MongoDB", zap.Error(err))
	}

	redisAdapter := adapters.NewAdapterRedis(cfg, log)
	if err := redisAdapter.Init(ctx); err != nil {
		log.Fatal("Не удалось инициализировать Redis", zap.Error(err))
	}

	log.Info("Адаптеры баз данных инициализированы")
	return &dataBaseAdapters{
		redisAdapter: redisAdapter,
		mongoAdapter: mongoAdapter,
	}
}

func handleShutdown(cancelFunc context.CancelFunc, log *zap.SugaredLogger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("Received shutdown signal")
	cancelFunc()
	time.Sleep(1 * time.Second) // дать время закрыть соединения
}
