package repo

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"goban/internal/bootstrap"
	"goban/internal/domain/game"
	apperrors "goban/internal/errors"
)

// GameRepository: redis держит SGF живой партии, mongo — архив.
type GameRepository struct {
	cfg   bootstrap.Config
	log   *zap.SugaredLogger
	redis *redis.Client
	mongo *mongo.Database
}

func NewGameRepository(cfg bootstrap.Config, log *zap.SugaredLogger, redis *redis.Client, mongo *mongo.Database) *GameRepository {
	return &GameRepository{
		cfg:   cfg,
		log:   log,
		redis: redis,
		mongo: mongo,
	}
}

func (g *GameRepository) SaveSGF(ctx context.Context, key string, sgfText string) error {
	return g.redis.Set(ctx, key, sgfText, 0).Err()
}

func (g *GameRepository) LoadSGF(ctx context.Context, key string) (string, error) {
	val, err := g.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

func (g *GameRepository) SaveToArchive(ctx context.Context, entry game.ArchiveEntry) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collection := g.mongo.Collection("archive")

	_, err := collection.InsertOne(ctx, entry)
	if err != nil {
		g.log.Errorf("failed to insert archive entry: %v", err)
		return err
	}

	g.log.Infof("партия %s сохранена в архив", entry.GameID)
	return nil
}

func (g *GameRepository) GetArchiveSGF(ctx context.Context, gameID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collection := g.mongo.Collection("archive")
	filter := bson.M{"game_id": gameID}

	var entry game.ArchiveEntry
	err := collection.FindOne(ctx, filter).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", apperrors.ErrGameNotFound
	} else if err != nil {
		g.log.Error(err)
		return "", err
	}

	return entry.SGF, nil
}

func (g *GameRepository) ListArchive(ctx context.Context, pageNum int) ([]game.ArchiveEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	limit := int64(g.cfg.PageLimitGames)
	if limit <= 0 {
		limit = 20
	}

	collection := g.mongo.Collection("archive")
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(pageNum) * limit).
		SetLimit(limit).
		SetProjection(bson.M{"sgf": 0})

	cursor, err := collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		g.log.Error(err)
		return nil, err
	}
	defer cursor.Close(ctx)

	var result []game.ArchiveEntry
	for cursor.Next(ctx) {
		var entry game.ArchiveEntry
		if err = cursor.Decode(&entry); err != nil {
			g.log.Error(err)
			return result, err
		}
		result = append(result, entry)
	}

	return result, nil
}
