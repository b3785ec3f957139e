package database

import (
	"context"
	"errors"

	"storefront/internal/config"
	"storefront/internal/models"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store is the process-wide handle on the configured database. Exactly one
// of SQL and Mongo is set.
type Store struct {
	Driver string
	SQL    *gorm.DB
	Mongo  *mongo.Database

	client *mongo.Client
}

// Open connects to the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DB, log *zap.Logger) (*Store, error) {
	if cfg.Driver == "mongo" {
		client, err := NewMongo(ctx, cfg.DSN, uint64(max(cfg.MaxOpenConns, 0)))
		if err != nil {
			return nil, err
		}
		return &Store{Driver: cfg.Driver, Mongo: client.Database(cfg.Database), client: client}, nil
	}

	db, err := NewGorm(GormOpts{
		Driver:             cfg.Driver,
		DSN:                cfg.DSN,
		MaxOpenConns:       cfg.MaxOpenConns,
		MaxIdleConns:       cfg.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.ConnMaxLifetimeMin,
		LogLevel:           cfg.LogLevel,
	}, log)
	if err != nil {
		return nil, err
	}
	return &Store{Driver: cfg.Driver, SQL: db}, nil
}

// NewSQLStore wraps an already opened GORM handle.
func NewSQLStore(db *gorm.DB) *Store {
	return &Store{Driver: db.Dialector.Name(), SQL: db}
}

// Migrate creates tables for the SQL drivers or indexes for MongoDB.
func (s *Store) Migrate(ctx context.Context) error {
	if s.Mongo != nil {
		return ensureMongoIndexes(ctx, s.Mongo)
	}
	return s.SQL.WithContext(ctx).AutoMigrate(&models.User{}, &models.Product{}, &models.Order{})
}

func (s *Store) Ping(ctx context.Context) error {
	if s.Mongo != nil {
		return s.client.Ping(ctx, nil)
	}
	sqlDB, err := s.SQL.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	if s.client != nil {
		return s.client.Disconnect(ctx)
	}
	if s.SQL == nil {
		return errors.New("store not opened")
	}
	sqlDB, err := s.SQL.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
