package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collections groups the handles of every collection the API touches.
type Collections struct {
	Users      *mongo.Collection
	Properties *mongo.Collection
	Bookmarks  *mongo.Collection
	Inquiries  *mongo.Collection
	Reviews    *mongo.Collection
	Counters   *mongo.Collection
}

func ConnectDB(ctx context.Context, cfg MongoSettings, log *zap.Logger) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("MongoDB ping failed: %w", err)
	}

	log.Info("connected to MongoDB", zap.String("database", cfg.Database))
	return client, nil
}

func InitCollections(client *mongo.Client, dbName string) *Collections {
	db := client.Database(dbName)
	return &Collections{
		Users:      db.Collection("users"),
		Properties: db.Collection("properties"),
		Bookmarks:  db.Collection("bookmarks"),
		Inquiries:  db.Collection("contact"),
		Reviews:    db.Collection("reviews"),
		Counters:   db.Collection("counters"),
	}
}

func CloseDBConnection(client *mongo.Client, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		log.Error("error closing MongoDB connection", zap.Error(err))
		return
	}
	log.Info("MongoDB connection closed")
}
