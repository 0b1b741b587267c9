package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"prstocks-api/internal/model"
)

// MongoPreferenceRepository implements PreferenceRepository on a MongoDB
// collection, one document per username.
type MongoPreferenceRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
	location   string
	log        *zap.Logger
}

// preferenceDocument keeps the blob as the caller's JSON text so key order
// and number formatting survive the round trip.
type preferenceDocument struct {
	Username    string    `bson:"_id"`
	Preferences string    `bson:"preferences"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

// NewMongoPreferenceRepository connects to uri and returns a repository over
// database.collection.
func NewMongoPreferenceRepository(ctx context.Context, uri, database, collection string, log *zap.Logger) (*MongoPreferenceRepository, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(20).
		SetMinPoolSize(1).
		SetMaxConnIdleTime(5 * time.Minute).
		SetRetryWrites(true)

	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	location := database + "/" + collection
	log.Info("preference store initialized",
		zap.String("driver", "mongodb"), zap.String("location", location))

	return &MongoPreferenceRepository{
		client:     client,
		collection: client.Database(database).Collection(collection),
		location:   location,
		log:        log,
	}, nil
}

func (d preferenceDocument) toModel() *model.Preference {
	updatedAt := d.UpdatedAt
	return &model.Preference{
		Username:    d.Username,
		Preferences: []byte(d.Preferences),
		UpdatedAt:   &updatedAt,
	}
}

// Get returns the stored blob, or (nil, nil) when there is none.
func (r *MongoPreferenceRepository) Get(ctx context.Context, username string) (*model.Preference, error) {
	var doc preferenceDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": username}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}
	return doc.toModel(), nil
}

// Upsert replaces the blob stored under username.
func (r *MongoPreferenceRepository) Upsert(ctx context.Context, username string, blob []byte, now time.Time) error {
	update := bson.M{
		"$set": bson.M{
			"preferences": string(blob),
			"updated_at":  now,
		},
	}

	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": username}, update, opts); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// Delete drops the blob stored under username.
func (r *MongoPreferenceRepository) Delete(ctx context.Context, username string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": username})
	if err != nil {
		return fmt.Errorf("failed to delete preferences: %w", err)
	}
	if res.DeletedCount == 0 {
		return model.ErrPreferencesNotFound
	}
	return nil
}

// List returns every stored blob ordered by username.
func (r *MongoPreferenceRepository) List(ctx context.Context) ([]model.Preference, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list preferences: %w", err)
	}
	defer cursor.Close(ctx)

	prefs := []model.Preference{}
	for cursor.Next(ctx) {
		var doc preferenceDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode preferences: %w", err)
		}
		prefs = append(prefs, *doc.toModel())
	}
	return prefs, cursor.Err()
}

// Count returns the number of stored blobs.
func (r *MongoPreferenceRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count preferences: %w", err)
	}
	return n, nil
}

// Clear removes every blob.
func (r *MongoPreferenceRepository) Clear(ctx context.Context) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to clear preferences: %w", err)
	}
	r.log.Warn("preference store cleared", zap.Int64("rows", res.DeletedCount))
	return res.DeletedCount, nil
}

// Ping checks the primary is reachable.
func (r *MongoPreferenceRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

// Describe reports where the store lives.
func (r *MongoPreferenceRepository) Describe() model.StoreInfo {
	return model.StoreInfo{Name: "preferences", Driver: "mongodb", Location: r.location}
}

// Close disconnects the client.
func (r *MongoPreferenceRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

var _ PreferenceRepository = (*MongoPreferenceRepository)(nil)
