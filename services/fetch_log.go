package services

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB database and collection names for the fetch audit log
const (
	FetchLogDBName     = "ticker_calendar"
	FetchLogCollection = "provider_fetches"
)

// FetchLog is an optional MongoDB-backed audit trail of provider calls.
// When MONGODB_URI is unset the log is disabled and every call is a no-op;
// a write failure never propagates to the fetch path.
type FetchLog struct {
	client      *mongo.Client
	collection  *mongo.Collection
	mu          sync.RWMutex
	isConnected bool
}

// fetchLogEntry is one recorded provider call
type fetchLogEntry struct {
	Provider  string    `bson:"provider"`
	Subject   string    `bson:"subject"`
	Operation string    `bson:"operation"`
	Success   bool      `bson:"success"`
	Error     string    `bson:"error,omitempty"`
	At        time.Time `bson:"at"`
}

// Global fetch log instance
var GlobalFetchLog *FetchLog

// InitFetchLog initializes the global provider fetch log
func InitFetchLog() error {
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		log.Println("MONGODB_URI not set, provider fetch log disabled")
		GlobalFetchLog = &FetchLog{}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(mongoURI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetMaxPoolSize(10).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		log.Printf("Failed to connect to MongoDB: %v", err)
		GlobalFetchLog = &FetchLog{}
		return err
	}

	if err := client.Ping(ctx, nil); err != nil {
		log.Printf("Failed to ping MongoDB: %v", err)
		client.Disconnect(ctx)
		GlobalFetchLog = &FetchLog{}
		return err
	}

	collection := client.Database(FetchLogDBName).Collection(FetchLogCollection)
	collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "at", Value: -1}},
	})

	GlobalFetchLog = &FetchLog{
		client:      client,
		collection:  collection,
		isConnected: true,
	}
	log.Println("Provider fetch log connected to MongoDB")
	return nil
}

// IsConfigured returns whether the fetch log is connected
func (f *FetchLog) IsConfigured() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.isConnected
}

// LogFetch records the outcome of one provider call. Implements
// providers.FetchLogger.
func (f *FetchLog) LogFetch(provider, subject, operation string, callErr error) {
	if !f.IsConfigured() {
		return
	}

	entry := fetchLogEntry{
		Provider:  provider,
		Subject:   subject,
		Operation: operation,
		Success:   callErr == nil,
		At:        time.Now().UTC(),
	}
	if callErr != nil {
		entry.Error = callErr.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := f.collection.InsertOne(ctx, entry); err != nil {
		log.Printf("Failed to write provider fetch log entry: %v", err)
	}
}

// RecentFetches returns the most recent provider calls, newest first
func (f *FetchLog) RecentFetches(limit int64) ([]bson.M, error) {
	if !f.IsConfigured() {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := f.collection.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "at", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []bson.M
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Close closes the MongoDB connection
func (f *FetchLog) Close() error {
	if f.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return f.client.Disconnect(ctx)
	}
	return nil
}
