package models

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	SessionDbName        = "evently"
	SessionEventsColName = "session_events"

	sessionEventRetention = 30 * 24 * time.Hour
)

type SessionEventKind string

const (
	SessionSignedIn       SessionEventKind = "signed_in"
	SessionSignedOut      SessionEventKind = "signed_out"
	SessionTokenRefreshed SessionEventKind = "token_refreshed"
)

// SessionEvent is one authentication state change of a user.
type SessionEvent struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     string             `bson:"user_id" json:"user_id" validate:"required"`
	Kind       SessionEventKind   `bson:"kind" json:"kind" validate:"required"`
	RequestID  string             `bson:"request_id,omitempty" json:"request_id,omitempty"`
	IPAddress  string             `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
	UserAgent  string             `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	OccurredAt time.Time          `bson:"occurred_at" json:"occurred_at"`
	ExpiresAt  time.Time          `bson:"expires_at" json:"-"`
}

type SessionEventRepo interface {
	EnsureSessionIndexes(ctx context.Context) error
	RecordSessionEvent(ctx context.Context, event *SessionEvent) error
	ListSessionEvents(ctx context.Context, userID string, limit int) ([]*SessionEvent, error)
}

func (mdb *MongodbRepo) GetCollection(ctx context.Context, dbName, colName string) (*mongo.Collection, error) {
	if mdb.mongodbClient == nil {
		return nil, fmt.Errorf("mongodb client is not initialized")
	}
	return mdb.mongodbClient.Database(dbName).Collection(colName), nil
}

// EnsureSessionIndexes creates the TTL and lookup indexes.
func (mdb *MongodbRepo) EnsureSessionIndexes(ctx context.Context) error {
	col, err := mdb.GetCollection(ctx, SessionDbName, SessionEventsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %v", err)
	}

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().
				SetExpireAfterSeconds(0).
				SetName("expires_at_ttl"),
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "occurred_at", Value: -1},
			},
			Options: options.Index().SetName("user_occurred_at_idx"),
		},
	}

	if _, err := col.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("error creating indexes: %v", err)
	}
	return nil
}

func (mdb *MongodbRepo) RecordSessionEvent(ctx context.Context, event *SessionEvent) error {
	if err := Validate.Struct(event); err != nil {
		return fmt.Errorf("invalid session event: %w", err)
	}
	col, err := mdb.GetCollection(ctx, SessionDbName, SessionEventsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %v", err)
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	event.ExpiresAt = event.OccurredAt.Add(sessionEventRetention)
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}

	if _, err := col.InsertOne(ctx, event); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("error inserting session event: %v", err)
	}
	return nil
}

// ListSessionEvents returns the user's most recent events, newest first.
func (mdb *MongodbRepo) ListSessionEvents(ctx context.Context, userID string, limit int) ([]*SessionEvent, error) {
	col, err := mdb.GetCollection(ctx, SessionDbName, SessionEventsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %v", err)
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "occurred_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding session events: %v", err)
	}
	defer cursor.Close(ctx)

	events := []*SessionEvent{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("error decoding session events: %v", err)
	}
	return events, nil
}
