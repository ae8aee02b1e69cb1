package queue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/crawlgrid/crawlgrid/internal/types"
)

const receivePollInterval = 250 * time.Millisecond

// MongoQueue is a visibility-timeout work queue over a MongoDB
// collection. Each receive atomically claims one document by pushing its
// visible_after lease forward; deleting the claim acks the message, and
// an expired lease makes the message receivable again.
type MongoQueue struct {
	client            *mongo.Client
	db                *mongo.Database
	visibilityTimeout time.Duration
	dedupWindow       time.Duration
	logger            *slog.Logger
}

type queueDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Queue        string             `bson:"queue"`
	Body         []byte             `bson:"body"`
	EnqueuedAt   time.Time          `bson:"enqueued_at"`
	VisibleAfter time.Time          `bson:"visible_after"`
	Claim        string             `bson:"claim,omitempty"`
	Receives     int                `bson:"receives"`
}

// NewMongoQueue connects to the queue database and ensures its indexes.
func NewMongoQueue(uri, database string, visibilityTimeout, dedupWindow time.Duration, logger *slog.Logger) (*MongoQueue, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("queue connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("queue ping: %w", err)
	}

	q := &MongoQueue{
		client:            client,
		db:                client.Database(database),
		visibilityTimeout: visibilityTimeout,
		dedupWindow:       dedupWindow,
		logger:            logger.With("component", "mongo_queue"),
	}
	if err := q.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *MongoQueue) ensureIndexes(ctx context.Context) error {
	_, err := q.messages().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "queue", Value: 1}, {Key: "visible_after", Value: 1}, {Key: "enqueued_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("queue index: %w", err)
	}

	// Dedup entries expire on their own once the window passes.
	ttl := int32(q.dedupWindow / time.Second)
	if ttl < 1 {
		ttl = 1
	}
	_, err = q.dedup().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(ttl),
	})
	if err != nil {
		return fmt.Errorf("dedup ttl index: %w", err)
	}
	_, err = q.dedup().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "queue", Value: 1}, {Key: "dedup_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("dedup unique index: %w", err)
	}
	return nil
}

func (q *MongoQueue) messages() *mongo.Collection { return q.db.Collection("queue_messages") }
func (q *MongoQueue) dedup() *mongo.Collection    { return q.db.Collection("queue_dedup") }

// Send enqueues one message, dropping it silently when the dedup key was
// seen inside the dedup window.
func (q *MongoQueue) Send(ctx context.Context, queue string, body []byte, dedupKey string) error {
	if dedupKey != "" && q.dedupWindow > 0 {
		id := DedupID(dedupKey)
		_, err := q.dedup().InsertOne(ctx, bson.M{
			"queue":      queue,
			"dedup_id":   id,
			"created_at": time.Now().UTC(),
		})
		if mongo.IsDuplicateKeyError(err) {
			q.logger.Debug("message deduplicated", "queue", queue, "dedup_id", id)
			return nil
		}
		if err != nil {
			// Dedup is best-effort; enqueue anyway.
			q.logger.Warn("dedup insert failed", "queue", queue, "error", err)
		}
	}

	now := time.Now().UTC()
	_, err := q.messages().InsertOne(ctx, queueDoc{
		Queue:        queue,
		Body:         body,
		EnqueuedAt:   now,
		VisibleAfter: now,
	})
	if err != nil {
		return &types.QueueError{Queue: queue, Op: "send", Err: err}
	}
	return nil
}

// Receive long-polls for up to wait, claiming at most max messages.
func (q *MongoQueue) Receive(ctx context.Context, queue string, max int, wait time.Duration) ([]Message, error) {
	if max < 1 {
		max = 1
	}
	deadline := time.Now().Add(wait)

	var msgs []Message
	for {
		for len(msgs) < max {
			msg, err := q.claimOne(ctx, queue)
			if err != nil {
				return msgs, err
			}
			if msg == nil {
				break
			}
			msgs = append(msgs, *msg)
		}
		if len(msgs) > 0 || time.Now().After(deadline) {
			return msgs, nil
		}

		select {
		case <-ctx.Done():
			return msgs, ctx.Err()
		case <-time.After(receivePollInterval):
		}
	}
}

// claimOne atomically claims the oldest visible message, or returns nil
// when the queue is drained.
func (q *MongoQueue) claimOne(ctx context.Context, queue string) (*Message, error) {
	now := time.Now().UTC()
	claim := uuid.NewString()

	res := q.messages().FindOneAndUpdate(ctx,
		bson.M{"queue": queue, "visible_after": bson.M{"$lte": now}},
		bson.M{
			"$set": bson.M{"visible_after": now.Add(q.visibilityTimeout), "claim": claim},
			"$inc": bson.M{"receives": 1},
		},
		options.FindOneAndUpdate().
			SetSort(bson.D{{Key: "enqueued_at", Value: 1}}).
			SetReturnDocument(options.After),
	)

	var doc queueDoc
	if err := res.Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, &types.QueueError{Queue: queue, Op: "receive", Err: err}
	}

	return &Message{Body: doc.Body, Handle: doc.ID.Hex() + ":" + claim}, nil
}

// Delete acks a claimed message. The delete matches both the document id
// and the claim token, so a lease that expired and was re-claimed by
// another consumer is left alone.
func (q *MongoQueue) Delete(ctx context.Context, queue string, handle string) error {
	idHex, claim, ok := strings.Cut(handle, ":")
	if !ok {
		return &types.QueueError{Queue: queue, Op: "delete", Err: fmt.Errorf("malformed handle %q", handle)}
	}
	id, err := primitive.ObjectIDFromHex(idHex)
	if err != nil {
		return &types.QueueError{Queue: queue, Op: "delete", Err: err}
	}

	_, err = q.messages().DeleteOne(ctx, bson.M{"_id": id, "claim": claim})
	if err != nil {
		return &types.QueueError{Queue: queue, Op: "delete", Err: err}
	}
	return nil
}

// Close disconnects from the queue database.
func (q *MongoQueue) Close(ctx context.Context) error {
	return q.client.Disconnect(ctx)
}
