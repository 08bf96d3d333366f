package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Team-Roomin/Roomin/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoPropertyStore struct {
	coll     *mongo.Collection
	counters *mongo.Collection
}

func NewPropertyStore(coll, counters *mongo.Collection) *MongoPropertyStore {
	return &MongoPropertyStore{coll: coll, counters: counters}
}

// NextAdID allocates the next listing number for the year of now, e.g. RR2024000042.
func (s *MongoPropertyStore) NextAdID(ctx context.Context, now time.Time) (string, error) {
	year := now.Year()
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": fmt.Sprintf("adId:%d", year)},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return "", fmt.Errorf("allocate adId: %w", err)
	}
	return fmt.Sprintf("RR%d%06d", year, counter.Seq), nil
}

func (s *MongoPropertyStore) Create(ctx context.Context, p *models.Property) error {
	_, err := s.coll.InsertOne(ctx, p)
	return translate(err)
}

func (s *MongoPropertyStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Property, error) {
	var p models.Property
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// FindDetail loads a listing with its owner summary.
func (s *MongoPropertyStore) FindDetail(ctx context.Context, id primitive.ObjectID) (*models.Property, error) {
	props, err := s.aggregate(ctx, pipeline(
		stage("$match", bson.M{"_id": id}),
		lookupUser("ownerId", "owner"),
	))
	if err != nil {
		return nil, err
	}
	if len(props) == 0 {
		return nil, ErrNotFound
	}
	return &props[0], nil
}

func (s *MongoPropertyStore) List(ctx context.Context, q ListingQuery) ([]models.Property, int64, error) {
	filter := q.Filter
	if filter == nil {
		filter = bson.M{}
	}
	if q.Text != "" {
		filter["$text"] = bson.M{"$search": q.Text}
	}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	sortDoc := q.Sort
	var scoreStage []bson.M
	if q.Text != "" {
		scoreStage = stage("$addFields", bson.M{"textScore": bson.M{"$meta": "textScore"}})
		sortDoc = bson.D{{Key: "textScore", Value: -1}, {Key: "postedDate", Value: -1}}
	}
	if len(sortDoc) == 0 {
		sortDoc = ListingSort("")
	}

	props, err := s.aggregate(ctx, pipeline(
		stage("$match", filter),
		scoreStage,
		stage("$sort", sortDoc),
		pagination(q.skip(), q.Limit),
		stage("$project", bson.M{"interestedUsers": 0, "views.daily": 0}),
		lookupUser("ownerId", "owner"),
	))
	return props, total, err
}

// Nearby returns public listings within radius meters of (lng, lat), closest first.
func (s *MongoPropertyStore) Nearby(ctx context.Context, lng, lat, radius float64, limit int64) ([]models.Property, error) {
	return s.aggregate(ctx, pipeline(
		stage("$geoNear", bson.M{
			"near":          models.NewGeoPoint(lng, lat),
			"distanceField": "distance",
			"maxDistance":   radius,
			"query":         PublicListingGate(),
			"spherical":     true,
			"key":           "location.coordinates",
		}),
		stage("$limit", limit),
		stage("$project", bson.M{"interestedUsers": 0, "views.daily": 0}),
		lookupUser("ownerId", "owner"),
	))
}

// Related returns public listings in the same area or of the same type as p.
func (s *MongoPropertyStore) Related(ctx context.Context, p *models.Property, limit int64) ([]models.Property, error) {
	filter := PublicListingGate()
	filter["_id"] = bson.M{"$ne": p.ID}
	or := []bson.M{{"type": p.Type}}
	if p.Location.Address.Area != "" {
		or = append(or, bson.M{"location.address.area": p.Location.Address.Area})
	}
	filter["$or"] = or

	opts := options.Find().
		SetSort(bson.D{{Key: "postedDate", Value: -1}}).
		SetLimit(limit).
		SetProjection(bson.M{"interestedUsers": 0, "views.daily": 0})
	return s.find(ctx, filter, opts)
}

func (s *MongoPropertyStore) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Property, error) {
	if set == nil {
		set = bson.M{}
	}
	set["updatedAt"] = time.Now()

	var p models.Property
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&p); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *MongoPropertyStore) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"isActive":  false,
		"updatedAt": time.Now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddPhoto appends photo; the first photo of a listing becomes primary. The
// primary flag is decided inside the update so concurrent uploads agree on it.
func (s *MongoPropertyStore) AddPhoto(ctx context.Context, id primitive.ObjectID, photo models.Photo) (*models.Property, error) {
	var p models.Property
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, addPhotoUpdate(photo, time.Now()), opts).Decode(&p); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func addPhotoUpdate(photo models.Photo, now time.Time) []bson.M {
	photos := bson.M{"$ifNull": bson.A{"$media.photos", bson.A{}}}
	photo.IsPrimary = false
	entry := bson.M{"$mergeObjects": bson.A{
		bson.M{"$literal": photo},
		bson.M{"isPrimary": bson.M{"$eq": bson.A{bson.M{"$size": photos}, 0}}},
	}}
	return stage("$set", bson.M{
		"media.photos": bson.M{"$concatArrays": bson.A{photos, bson.A{entry}}},
		"updatedAt":    now,
	})
}

// RecordView bumps the view counters and keeps only the newest MaxDailyViews entries.
func (s *MongoPropertyStore) RecordView(ctx context.Context, id primitive.ObjectID, ip string, unique bool, at time.Time) error {
	inc := bson.M{"views.total": 1}
	if unique {
		inc["views.unique"] = 1
	}
	update := bson.M{
		"$inc": inc,
		"$push": bson.M{"views.daily": bson.M{
			"$each":  []models.DailyView{{Date: at, UserIP: ip}},
			"$slice": -models.MaxDailyViews,
		}},
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id, "isActive": true}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoPropertyStore) AddInterestedUser(ctx context.Context, id, userID primitive.ObjectID, at time.Time) error {
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$push": bson.M{
		"interestedUsers": models.InterestedUser{UserID: userID, ContactedAt: at, Status: models.InquiryNew},
	}})
	return err
}

func (s *MongoPropertyStore) ByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Property, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "postedDate", Value: -1}}).
		SetProjection(bson.M{"interestedUsers": 0, "views.daily": 0})
	return s.find(ctx, bson.M{"ownerId": ownerID}, opts)
}

func (s *MongoPropertyStore) Count(ctx context.Context, filter bson.M) (int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	return s.coll.CountDocuments(ctx, filter)
}

func (s *MongoPropertyStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Property, error) {
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	props := []models.Property{}
	if err := cursor.All(ctx, &props); err != nil {
		return nil, err
	}
	return props, nil
}

func (s *MongoPropertyStore) aggregate(ctx context.Context, pipe []bson.M) ([]models.Property, error) {
	cursor, err := s.coll.Aggregate(ctx, pipe)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	props := []models.Property{}
	if err := cursor.All(ctx, &props); err != nil {
		return nil, err
	}
	return props, nil
}
