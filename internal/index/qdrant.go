package index

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// Payload keys written with every Qdrant point.
const (
	payloadID         = "chunk_id"
	payloadText       = "text"
	payloadSource     = "source"
	payloadChunkIndex = "chunk_index"
	payloadLength     = "length"
)

// pointNamespace seeds the UUIDv5 point ids derived from chunk ids.
var pointNamespace = uuid.MustParse("6f0c2f8e-5c7a-4d2b-9d1e-3b8f6a1e2c40")

// QdrantConfig holds connection parameters for a Qdrant collection.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the collection name.
	Collection string

	// VectorSize is the dimensionality of the stored embeddings.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantIndex implements Index over a Qdrant collection using cosine
// distance. Chunk ids are mapped to deterministic UUIDv5 point ids and kept
// in the payload.
type QdrantIndex struct {
	client *qdrant.Client
	cfg    *QdrantConfig
}

var _ Index = (*QdrantIndex)(nil)

// NewQdrant connects to Qdrant and ensures the collection exists, creating
// it with cosine distance if necessary.
func NewQdrant(ctx context.Context, cfg *QdrantConfig) (*QdrantIndex, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("index: qdrant collection name must not be empty")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: qdrant client: %w", ErrUnavailable, err)
	}

	q := &QdrantIndex{client: client, cfg: cfg}
	if err := q.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return q, nil
}

func (q *QdrantIndex) ensureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.cfg.Collection)
	if err != nil {
		return fmt.Errorf("%w: qdrant: check collection %q: %w", ErrUnavailable, q.cfg.Collection, err)
	}
	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("index: qdrant: create collection %q: %w", q.cfg.Collection, err)
	}
	return nil
}

// PointID returns the Qdrant point id used for a chunk id.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

// Name returns the collection name.
func (q *QdrantIndex) Name() string { return q.cfg.Collection }

// Add rejects the batch if any id is already stored, then upserts all points
// and waits for the write to be applied.
func (q *QdrantIndex) Add(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := validateBatch(entries, int(q.cfg.VectorSize)); err != nil {
		return err
	}

	ids := make([]*qdrant.PointId, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, qdrant.NewIDUUID(PointID(e.ID)))
	}

	existing, err := q.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: q.cfg.Collection,
		Ids:            ids,
		WithPayload:    qdrant.NewWithPayloadInclude(payloadID),
	})
	if err != nil {
		return fmt.Errorf("%w: qdrant: lookup: %w", ErrUnavailable, err)
	}
	if len(existing) > 0 {
		return fmt.Errorf("%w: %q already in collection %q",
			ErrDuplicateKey, existing[0].GetPayload()[payloadID].GetStringValue(), q.cfg.Collection)
	}

	points := make([]*qdrant.PointStruct, 0, len(entries))
	for i, e := range entries {
		points = append(points, &qdrant.PointStruct{
			Id:      ids[i],
			Vectors: qdrant.NewVectors(e.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadID:         e.ID,
				payloadText:       e.Text,
				payloadSource:     e.Metadata.Source,
				payloadChunkIndex: int64(e.Metadata.ChunkIndex),
				payloadLength:     int64(e.Metadata.Length),
			}),
		})
	}

	_, err = q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.cfg.Collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("index: qdrant: upsert: %w", err)
	}
	return nil
}

// Query returns the k nearest points. Qdrant reports cosine similarity as the
// score; it is converted to the shared distance scale.
func (q *QdrantIndex) Query(ctx context.Context, vector []float32, k int) ([]Result, error) {
	if err := validateQuery(vector, k); err != nil {
		return nil, err
	}

	limit := uint64(k)
	hits, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.cfg.Collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: qdrant: query: %w", ErrUnavailable, err)
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		p := h.GetPayload()
		results = append(results, Result{
			ID:   p[payloadID].GetStringValue(),
			Text: p[payloadText].GetStringValue(),
			Metadata: Metadata{
				Source:     p[payloadSource].GetStringValue(),
				ChunkIndex: int(p[payloadChunkIndex].GetIntegerValue()),
				Length:     int(p[payloadLength].GetIntegerValue()),
			},
			Distance: distanceFromCosine(float64(h.GetScore())),
		})
	}
	return results, nil
}

// Count returns the exact number of points in the collection.
func (q *QdrantIndex) Count(ctx context.Context) (int, error) {
	n, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.cfg.Collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: qdrant: count: %w", ErrUnavailable, err)
	}
	return int(n), nil
}

// Ping checks that the Qdrant server answers health checks.
func (q *QdrantIndex) Ping(ctx context.Context) error {
	if _, err := q.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%w: qdrant: health check: %w", ErrUnavailable, err)
	}
	return nil
}

// Close closes the underlying gRPC connection.
func (q *QdrantIndex) Close() error {
	return q.client.Close()
}
