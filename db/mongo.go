package db

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mdobak/go-xerrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"trackid/models"
	"trackid/utils"
)

// fingerprintDoc is the persisted shape of one (hash, songid, anchor-time)
// row. Hash and SongID are stored as int64 since the BSON wire format has
// no native uint64, which is safe here since they are opaque bit patterns,
// not magnitudes.
type fingerprintDoc struct {
	Hash         int64  `bson:"hash"`
	SongID       int64  `bson:"songid"`
	AnchorTimeMs uint32 `bson:"anchorTimeMs"`
}

// MongoFingerprintStore implements FingerprintStore over a "fingerprints"
// collection indexed on hash, batching both insert and lookup to respect a
// configurable transport payload limit (default 64 KiB per statement).
type MongoFingerprintStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	batchBytes int
}

// approxDocBytes is a conservative estimate of one fingerprint document's
// encoded size, used only to size insert/lookup batches; it does not need
// to be exact, just a safe upper bound (the encoded document, including the
// driver-added _id, is about 74 bytes).
const approxDocBytes = 80

// NewMongoFingerprintStore connects using MONGO_URI (default
// "mongodb://localhost:27017") and MONGO_DB (default "trackid"), and
// ensures the fingerprints collection has a hash index so lookups run in
// time proportional to result size rather than collection size.
func NewMongoFingerprintStore() (*MongoFingerprintStore, error) {
	uri := utils.GetEnv("MONGO_URI", "mongodb://localhost:27017")
	dbName := utils.GetEnv("MONGO_DB", "trackid")
	batchBytes, err := strconv.Atoi(utils.GetEnv("STORE_BATCH_BYTES", "65536"))
	if err != nil || batchBytes <= 0 {
		batchBytes = 65536
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", xerrors.New(err))
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("pinging mongo: %w", xerrors.New(err))
	}

	collection := client.Database(dbName).Collection("fingerprints")

	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "hash", Value: 1}},
	}
	if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return nil, fmt.Errorf("creating hash index: %w", xerrors.New(err))
	}

	return &MongoFingerprintStore{
		client:     client,
		collection: collection,
		batchBytes: batchBytes,
	}, nil
}

func (m *MongoFingerprintStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// StoreFingerprints appends one document per (hash, Couple) entry,
// partitioned into batches that respect the configured payload limit. A
// batch boundary never splits a logical row; a batch insert failure
// surfaces to the caller, but batches already committed remain persisted.
func (m *MongoFingerprintStore) StoreFingerprints(fingerprints map[uint64]models.Couple) error {
	if len(fingerprints) == 0 {
		return nil
	}

	rowsPerBatch := m.batchBytes / approxDocBytes
	if rowsPerBatch < 1 {
		rowsPerBatch = 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	batch := make([]interface{}, 0, rowsPerBatch)
	for hash, couple := range fingerprints {
		batch = append(batch, fingerprintDoc{
			Hash:         int64(hash),
			SongID:       int64(couple.SongID),
			AnchorTimeMs: couple.AnchorTimeMs,
		})

		if len(batch) == rowsPerBatch {
			if _, err := m.collection.InsertMany(ctx, batch); err != nil {
				return fmt.Errorf("inserting fingerprint batch: %w", xerrors.New(err))
			}
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if _, err := m.collection.InsertMany(ctx, batch); err != nil {
			return fmt.Errorf("inserting final fingerprint batch: %w", xerrors.New(err))
		}
	}

	return nil
}

// GetCouples resolves a deduplicated hash set to every stored Couple
// sharing each hash, querying in batches so a single `$in` filter never
// exceeds the configured payload limit. This is a relational semi-join of
// the query hash set against the stored rows.
func (m *MongoFingerprintStore) GetCouples(hashes []uint64) (map[uint64][]models.Couple, error) {
	result := make(map[uint64][]models.Couple)
	if len(hashes) == 0 {
		return result, nil
	}

	deduped := dedupeHashes(hashes)

	// one BSON array element per hash in the $in list: type byte, index key
	// and 8-byte int64, at most 16 bytes each
	hashesPerBatch := m.batchBytes / 16
	if hashesPerBatch < 1 {
		hashesPerBatch = 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	for start := 0; start < len(deduped); start += hashesPerBatch {
		end := start + hashesPerBatch
		if end > len(deduped) {
			end = len(deduped)
		}

		batchHashes := make([]int64, end-start)
		for i, h := range deduped[start:end] {
			batchHashes[i] = int64(h)
		}

		cursor, err := m.collection.Find(ctx, bson.M{"hash": bson.M{"$in": batchHashes}})
		if err != nil {
			return nil, fmt.Errorf("querying fingerprint batch: %w", xerrors.New(err))
		}

		var docs []fingerprintDoc
		if err := cursor.All(ctx, &docs); err != nil {
			return nil, fmt.Errorf("decoding fingerprint batch: %w", xerrors.New(err))
		}

		for _, d := range docs {
			h := uint64(d.Hash)
			result[h] = append(result[h], models.Couple{
				AnchorTimeMs: d.AnchorTimeMs,
				SongID:       uint32(d.SongID),
			})
		}
	}

	return result, nil
}

func dedupeHashes(hashes []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(hashes))
	out := make([]uint64, 0, len(hashes))
	for _, h := range hashes {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

func (m *MongoFingerprintStore) TotalFingerprints() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	count, err := m.collection.CountDocuments(ctx, bson.M{})
	return int(count), err
}

func (m *MongoFingerprintStore) DeleteFingerprints() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return m.collection.Drop(ctx)
}
