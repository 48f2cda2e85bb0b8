// Package mongostore implements the store interfaces on MongoDB.
//
// Blocks are stored one document per block with the fields name, start and
// end. Replacing a collection runs inside a transaction when the server is a
// replica set member or a mongos router; on a standalone server the clear
// and the insert are applied one after the other.
package mongostore

import (
	"context"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/matzehuels/trackview/pkg/errors"
	"github.com/matzehuels/trackview/pkg/interval"
	"github.com/matzehuels/trackview/pkg/store"
)

// DefaultURI is a local mongod on the default port.
const DefaultURI = "mongodb://localhost:27017"

// insertBatch caps the documents sent per InsertMany call.
const insertBatch = 10_000

// MaxTransactionBlocks is the largest replacement attempted in one
// transaction. The server aborts transactions older than
// transactionLifetimeLimitSeconds (60s by default), which larger inserts
// routinely exceed.
const MaxTransactionBlocks = 1_000_000

// Options configure Connect.
type Options struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	Logger         *log.Logger
}

// Store is a mongo-backed store.Store, store.Transactor and block source
// factory. It holds one client for its whole lifetime.
type Store struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
	logger       *log.Logger
}

// Connect dials the server, pings it and probes transaction support.
func Connect(ctx context.Context, opts Options) (*Store, error) {
	if opts.URI == "" {
		opts.URI = DefaultURI
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if err := errors.ValidateCollectionName(opts.Database); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(opts.URI).
		SetConnectTimeout(opts.ConnectTimeout).
		SetServerSelectionTimeout(opts.ConnectTimeout))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreConnection, err, "connect to %s", Redact(opts.URI))
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeStoreConnection, err, "ping %s", Redact(opts.URI))
	}

	s := &Store{
		client: client,
		db:     client.Database(opts.Database),
		logger: opts.Logger,
	}
	s.transactions = probeTransactions(ctx, client, opts.Logger)
	opts.Logger.Debug("connected to mongo", "database", opts.Database, "transactions", s.transactions)
	return s, nil
}

// probeTransactions reports whether the server is a replica set member or
// mongos, the deployments that support multi-document transactions.
func probeTransactions(ctx context.Context, client *mongo.Client, logger *log.Logger) bool {
	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello)
	if err != nil {
		logger.Debug("hello command failed, assuming no transactions", "err", err)
		return false
	}
	return hello.SetName != "" || hello.Msg == "isdbgrid"
}

// SupportsTransactions reports whether WithTransaction is atomic.
func (s *Store) SupportsTransactions() bool { return s.transactions }

// CheckReplaceSize reports whether n blocks can be replaced by this store.
// Only transactional replacements are limited, see MaxTransactionBlocks.
func (s *Store) CheckReplaceSize(n int) error {
	return checkReplaceSize(s.transactions, n)
}

func checkReplaceSize(transactions bool, n int) error {
	if transactions && n > MaxTransactionBlocks {
		return errors.New(errors.ErrCodeInvalidInput,
			"%d blocks exceed the %d that fit in one transaction; seed a smaller dataset or use a standalone server",
			n, MaxTransactionBlocks)
	}
	return nil
}

// ClearCollection deletes every document of the collection. DeleteMany is
// used instead of drop so indexes survive and the call is transaction safe.
func (s *Store) ClearCollection(ctx context.Context, name string) error {
	if _, err := s.db.Collection(name).DeleteMany(ctx, bson.D{}); err != nil {
		return errors.Wrap(errors.ErrCodeStoreWrite, err, "clear %s", name)
	}
	return nil
}

// BulkInsert inserts blocks in unordered batches.
func (s *Store) BulkInsert(ctx context.Context, name string, blocks []interval.Block) error {
	coll := s.db.Collection(name)
	opts := options.InsertMany().SetOrdered(false)

	for lo := 0; lo < len(blocks); lo += insertBatch {
		hi := min(lo+insertBatch, len(blocks))
		docs := make([]interface{}, 0, hi-lo)
		for _, b := range blocks[lo:hi] {
			docs = append(docs, b)
		}
		if _, err := coll.InsertMany(ctx, docs, opts); err != nil {
			return errors.Wrap(errors.ErrCodeStoreWrite, err, "insert %d blocks into %s", len(docs), name)
		}
		s.logger.Debug("inserted batch", "collection", name, "from", lo, "to", hi)
	}
	return nil
}

// WithTransaction runs fn inside a session transaction when supported and
// directly otherwise. Transactions are bounded by the server's lifetime
// limit; callers replacing large collections should check CheckReplaceSize
// first.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions {
		s.logger.Warn("server does not support transactions, writes are not atomic")
		return fn(ctx)
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreWrite, err, "start session")
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// EnsureIndexes creates the {name, start} index used by block queries.
func (s *Store) EnsureIndexes(ctx context.Context, collection string) error {
	_, err := s.db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "name", Value: 1}, {Key: "start", Value: 1}},
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreWrite, err, "create index on %s", collection)
	}
	return nil
}

// Count returns the number of documents in collection.
func (s *Store) Count(ctx context.Context, collection string) (int64, error) {
	n, err := s.db.Collection(collection).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeFetch, err, "count %s", collection)
	}
	return n, nil
}

// TrackNames returns the sorted distinct track names stored in collection.
func (s *Store) TrackNames(ctx context.Context, collection string) ([]string, error) {
	vals, err := s.db.Collection(collection).Distinct(ctx, "name", bson.D{})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFetch, err, "list tracks of %s", collection)
	}
	names := make([]string, 0, len(vals))
	for _, v := range vals {
		if name, ok := v.(string); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Source returns a BlockSource reading collection. A non-zero region keeps
// only blocks whose start or end falls inside it.
func (s *Store) Source(collection string, region interval.Region) store.BlockSource {
	coll := s.db.Collection(collection)
	return store.SourceFunc(func(ctx context.Context, track string) ([]interval.Block, error) {
		filter := blockFilter(track, region)
		opts := options.Find().
			SetSort(bson.D{{Key: "start", Value: 1}}).
			SetProjection(bson.D{{Key: "_id", Value: 0}})

		cur, err := coll.Find(ctx, filter, opts)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeFetch, err, "find blocks of %s", track)
		}
		var blocks []interval.Block
		if err := cur.All(ctx, &blocks); err != nil {
			return nil, errors.Wrap(errors.ErrCodeFetch, err, "decode blocks of %s", track)
		}
		return blocks, nil
	})
}

// blockFilter builds {name: track, $or: [{start in window}, {end in window}]}.
func blockFilter(track string, region interval.Region) bson.D {
	filter := bson.D{{Key: "name", Value: track}}
	if region.IsZero() {
		return filter
	}
	window := bson.D{{Key: "$gte", Value: region.From}, {Key: "$lte", Value: region.To}}
	return append(filter, bson.E{Key: "$or", Value: bson.A{
		bson.D{{Key: "start", Value: window}},
		bson.D{{Key: "end", Value: window}},
	}})
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping checks that the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return errors.Wrap(errors.ErrCodeStoreConnection, err, "ping")
	}
	return nil
}

var (
	_ store.Store      = (*Store)(nil)
	_ store.Transactor = (*Store)(nil)
)
