package repository

import (
	"context"
	"fmt"

	"github.com/Team-Roomin/Roomin/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func keys(pairs ...interface{}) bson.D {
	d := bson.D{}
	for i := 0; i+1 < len(pairs); i += 2 {
		d = append(d, bson.E{Key: pairs[i].(string), Value: pairs[i+1]})
	}
	return d
}

func unique(k bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: k, Options: options.Index().SetUnique(true)}
}

func plain(k bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: k}
}

// EnsureIndexes declares every index the stores rely on. It is safe to run on each start.
func EnsureIndexes(ctx context.Context, cols *config.Collections, log *zap.Logger) error {
	declared := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{cols.Users, []mongo.IndexModel{
			unique(keys("username", 1)),
			unique(keys("email", 1)),
			plain(keys("kycStatus", 1)),
		}},
		{cols.Properties, []mongo.IndexModel{
			unique(keys("adId", 1)),
			plain(keys("ownerId", 1)),
			plain(keys("purpose", 1, "type", 1, "status", 1)),
			plain(keys("price.amount", 1)),
			plain(keys("location.coordinates", "2dsphere")),
			plain(keys("location.address.city", 1, "location.address.area", 1)),
			plain(keys("isActive", 1, "moderationStatus", 1)),
			plain(keys("postedDate", -1)),
			plain(keys("views.total", -1)),
			plain(keys("isFeatured", 1, "postedDate", -1)),
			{
				Keys: keys(
					"title", "text",
					"description", "text",
					"location.address.area", "text",
					"location.address.city", "text",
				),
				Options: options.Index().SetName("listing_text"),
			},
		}},
		{cols.Bookmarks, []mongo.IndexModel{
			unique(keys("userId", 1, "propertyId", 1)),
			plain(keys("userId", 1, "createdAt", -1)),
		}},
		{cols.Inquiries, []mongo.IndexModel{
			plain(keys("propertyId", 1, "createdAt", -1)),
			plain(keys("ownerUserId", 1, "status", 1)),
			plain(keys("inquirerUserId", 1)),
		}},
		{cols.Reviews, []mongo.IndexModel{
			plain(keys("propertyId", 1, "createdAt", -1)),
			plain(keys("reviewerId", 1)),
			unique(keys("propertyId", 1, "reviewerId", 1)),
		}},
	}

	for _, d := range declared {
		names, err := d.coll.Indexes().CreateMany(ctx, d.models)
		if err != nil {
			return fmt.Errorf("create indexes on %s: %w", d.coll.Name(), err)
		}
		log.Debug("indexes ensured", zap.String("collection", d.coll.Name()), zap.Strings("indexes", names))
	}
	return nil
}
