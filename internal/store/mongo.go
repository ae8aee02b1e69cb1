package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/crawlgrid/crawlgrid/internal/types"
)

const (
	pagesCollection     = "indexed_pages"
	keywordsCollection  = "keyword_index"
	heartbeatCollection = "heartbeat"
	countersCollection  = "counters"
)

// MongoStore implements PageStore on MongoDB. Page inserts draw a
// monotonic sequence number from a counters document so the change
// signature matches the auto-increment semantics of a SQL id column:
// content updates keep their sequence, only fresh URLs advance it.
type MongoStore struct {
	mu     sync.Mutex
	client *mongo.Client
	db     *mongo.Database
	uri    string
	dbName string
	logger *slog.Logger
}

type pageDoc struct {
	URL          string `bson:"_id"`
	Content      string `bson:"content"`
	IndexedObjID string `bson:"indexed_obj_id"`
	Seq          int64  `bson:"seq"`
}

// NewMongoStore connects to the page store database.
func NewMongoStore(uri, database string, logger *slog.Logger) (*MongoStore, error) {
	s := &MongoStore{
		uri:    uri,
		dbName: database,
		logger: logger.With("component", "mongo_store"),
	}
	if err := s.connect(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(s.uri))
	if err != nil {
		return fmt.Errorf("store connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("store ping: %w", err)
	}

	s.mu.Lock()
	s.client = client
	s.db = client.Database(s.dbName)
	s.mu.Unlock()
	return nil
}

func (s *MongoStore) collection(name string) *mongo.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Collection(name)
}

// nextSeq allocates the next page-insert sequence number.
func (s *MongoStore) nextSeq(ctx context.Context) (int64, error) {
	res := s.collection(countersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": "page_seq"},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)
	var doc struct {
		Value int64 `bson:"value"`
	}
	if err := res.Decode(&doc); err != nil {
		return 0, err
	}
	return doc.Value, nil
}

// UpsertPage inserts a page or replaces its content. A sequence number
// is reserved up front and applied only on insert, so replaying the
// same payload leaves the signature untouched.
func (s *MongoStore) UpsertPage(ctx context.Context, page types.IndexedPage) (bool, error) {
	seq, err := s.nextSeq(ctx)
	if err != nil {
		return false, &types.StoreError{Op: "upsert_page", Err: err, Transient: true}
	}

	res, err := s.collection(pagesCollection).UpdateOne(ctx,
		bson.M{"_id": page.URL},
		bson.M{
			"$set":         bson.M{"content": page.Content, "indexed_obj_id": page.IndexedObjID},
			"$setOnInsert": bson.M{"seq": seq},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, &types.StoreError{Op: "upsert_page", Err: err, Transient: true}
	}
	return res.UpsertedCount > 0, nil
}

// LoadPages returns every indexed page.
func (s *MongoStore) LoadPages(ctx context.Context) ([]types.IndexedPage, error) {
	cur, err := s.collection(pagesCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, &types.StoreError{Op: "load_pages", Err: err, Transient: true}
	}
	defer cur.Close(ctx)

	var pages []types.IndexedPage
	for cur.Next(ctx) {
		var doc pageDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, &types.StoreError{Op: "load_pages", Err: err}
		}
		pages = append(pages, types.IndexedPage{
			URL:          doc.URL,
			Content:      doc.Content,
			IndexedObjID: doc.IndexedObjID,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, &types.StoreError{Op: "load_pages", Err: err, Transient: true}
	}
	return pages, nil
}

// Signature computes (count, max seq) over the pages collection.
func (s *MongoStore) Signature(ctx context.Context) (Signature, error) {
	coll := s.collection(pagesCollection)

	count, err := coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return Signature{}, &types.StoreError{Op: "signature", Err: err, Transient: true}
	}

	sig := Signature{Count: count}
	res := coll.FindOne(ctx, bson.M{},
		options.FindOne().SetSort(bson.D{{Key: "seq", Value: -1}}).SetProjection(bson.M{"seq": 1}))
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	switch err := res.Decode(&doc); err {
	case nil:
		sig.MaxSeq = doc.Seq
	case mongo.ErrNoDocuments:
		// Empty store: (0, 0).
	default:
		return Signature{}, &types.StoreError{Op: "signature", Err: err, Transient: true}
	}
	return sig, nil
}

// ReplaceKeywordIndex swaps the keyword table inside one transaction.
func (s *MongoStore) ReplaceKeywordIndex(ctx context.Context, index map[string][]string) error {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()

	session, err := client.StartSession()
	if err != nil {
		return &types.StoreError{Op: "replace_keywords", Err: err, Transient: true}
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		coll := s.collection(keywordsCollection)
		if _, err := coll.DeleteMany(sc, bson.M{}); err != nil {
			return nil, err
		}
		if len(index) == 0 {
			return nil, nil
		}
		docs := make([]any, 0, len(index))
		for keyword, urls := range index {
			docs = append(docs, types.KeywordEntry{Keyword: keyword, URLs: urls})
		}
		if _, err := coll.InsertMany(sc, docs); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return &types.StoreError{Op: "replace_keywords", Err: err, Transient: true}
	}
	return nil
}

// LookupKeyword returns the URLs recorded for one keyword.
func (s *MongoStore) LookupKeyword(ctx context.Context, keyword string) ([]string, error) {
	res := s.collection(keywordsCollection).FindOne(ctx, bson.M{"_id": keyword})

	var entry types.KeywordEntry
	switch err := res.Decode(&entry); err {
	case nil:
		return entry.URLs, nil
	case mongo.ErrNoDocuments:
		return []string{}, nil
	default:
		return nil, &types.StoreError{Op: "lookup_keyword", Err: err, Transient: true}
	}
}

// UpsertHeartbeat records a worker heartbeat row keyed by node id.
func (s *MongoStore) UpsertHeartbeat(ctx context.Context, rec types.HeartbeatRecord) error {
	_, err := s.collection(heartbeatCollection).UpdateOne(ctx,
		bson.M{"_id": rec.NodeID},
		bson.M{"$set": bson.M{
			"role":      rec.Role,
			"ip":        rec.IP,
			"last_seen": rec.LastSeen,
			"url_count": rec.URLCount,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return &types.StoreError{Op: "upsert_heartbeat", Err: err, Transient: true}
	}
	return nil
}

// ListHeartbeats returns every heartbeat row.
func (s *MongoStore) ListHeartbeats(ctx context.Context) ([]types.HeartbeatRecord, error) {
	cur, err := s.collection(heartbeatCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, &types.StoreError{Op: "list_heartbeats", Err: err, Transient: true}
	}
	defer cur.Close(ctx)

	var recs []types.HeartbeatRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, &types.StoreError{Op: "list_heartbeats", Err: err, Transient: true}
	}
	return recs, nil
}

// Reconnect closes and reopens the client after a transient failure.
func (s *MongoStore) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()

	if client != nil {
		disconnectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := client.Disconnect(disconnectCtx); err != nil {
			s.logger.Warn("disconnect before reconnect failed", "error", err)
		}
		cancel()
	}
	if err := s.connect(ctx); err != nil {
		return err
	}
	s.logger.Info("store reconnected")
	return nil
}

// Close disconnects from the database.
func (s *MongoStore) Close(ctx context.Context) error {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return client.Disconnect(ctx)
}
