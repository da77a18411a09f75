// Package qdrant provides a vector driver backed by a Qdrant server.
//
// Collections are created with cosine distance so scores are directly
// comparable to the in-process drivers.
package qdrant

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/webtechie/docschat/pkg/vector"
)

const defaultCollection = "docschat_passages"

// Driver implements vector.Driver against a Qdrant gRPC endpoint.
type Driver struct {
	client     *qdrant.Client
	collection string
	logger     *zap.Logger
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Host is the Qdrant host (e.g. "localhost").
	Host string

	// Port is the Qdrant gRPC port (typically 6334).
	Port int

	// Collection is the collection name. Defaults to defaultCollection.
	Collection string

	// Dimensions is the embedding vector size used when the collection has
	// to be created.
	Dimensions uint64
}

// NewDriver connects to Qdrant and ensures the passage collection exists.
func NewDriver(ctx context.Context, c Config, logger *zap.Logger) (*Driver, error) {
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("qdrant embedding dimensions cannot be 0, must be configured")
	}

	collection := c.Collection
	if collection == "" {
		collection = defaultCollection
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: c.Host,
		Port: c.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to qdrant: %v", vector.ErrConnection, err)
	}

	exists, err := client.CollectionExists(ctx, collection)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: checking collection: %v", vector.ErrConnection, err)
	}

	if !exists {
		err = client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     c.Dimensions,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("%w: creating collection: %v", vector.ErrConnection, err)
		}
	}

	logger.Info("qdrant vector driver initialized",
		zap.String("host", c.Host),
		zap.Int("port", c.Port),
		zap.String("collection", collection),
		zap.Uint64("dimensions", c.Dimensions),
	)

	return &Driver{
		client:     client,
		collection: collection,
		logger:     logger,
	}, nil
}

// Add upserts passages as points keyed by passage ID, with text, link and
// group carried in the payload.
func (d *Driver) Add(ctx context.Context, passages []vector.Passage) error {
	if len(passages) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(passages))
	for _, p := range passages {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectors(p.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"text":     p.Text,
				"link":     p.Link,
				"group_id": p.GroupID,
			}),
		})
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	d.logger.Debug("added passages to qdrant",
		zap.Int("count", len(points)),
	)

	return nil
}

// Query runs a similarity search with Qdrant's native score threshold.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int, minScore float32) ([]vector.Match, error) {
	if topK <= 0 {
		topK = 10
	}
	limit := uint64(topK)

	points, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: d.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          &limit,
		ScoreThreshold: &minScore,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}

	matches := make([]vector.Match, 0, len(points))
	for _, point := range points {
		m := vector.Match{Score: point.GetScore()}
		m.ID = point.GetId().GetUuid()

		payload := point.GetPayload()
		if v, ok := payload["text"]; ok {
			m.Text = v.GetStringValue()
		}
		if v, ok := payload["link"]; ok {
			m.Link = v.GetStringValue()
		}
		if v, ok := payload["group_id"]; ok {
			m.GroupID = v.GetStringValue()
		}

		matches = append(matches, m)
	}

	d.logger.Debug("queried qdrant",
		zap.Int("results", len(matches)),
	)

	return matches, nil
}

// Count returns the exact number of stored points.
func (d *Driver) Count(ctx context.Context) (int, error) {
	count, err := d.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: d.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("counting points: %w", err)
	}
	return int(count), nil
}

// Close closes the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}
