// Package semantic provides a Qdrant-backed vector searcher as an alternative
// to the file-persisted flat index. Fact fields travel as point payloads, so
// a search result carries the full fact without a side lookup. Point IDs are
// the fact's build position, mirroring the flat index's positional layout.
package semantic

import (
	"context"
	"fmt"

	"github.com/MacroScout/macroscout/engine/domain"
	"github.com/MacroScout/macroscout/engine/index"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// VectorStore is the sole owner of all Qdrant operations.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	embedder    index.Embedder
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
func New(addr, collection string, embedder index.Embedder) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		embedder:    embedder,
	}, nil
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	return v.conn.Close()
}

// Available reports whether the store can serve searches.
func (v *VectorStore) Available() bool {
	return v != nil && v.conn != nil
}

// EnsureCollection creates the collection if it doesn't exist.
func (v *VectorStore) EnsureCollection(ctx context.Context) error {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			return nil
		}
	}

	d := uint64(v.embedder.Dimension())
	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     d,
					Distance: pb.Distance_Dot,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", v.collection, err)
	}
	return nil
}

// Upsert stores facts with their unit vectors. Vector i must correspond to
// facts[i]; the point ID is the slice position.
func (v *VectorStore) Upsert(ctx context.Context, all []domain.NutritionFact, vectors [][]float32) error {
	if len(all) != len(vectors) {
		return fmt.Errorf("semantic: %d facts but %d vectors", len(all), len(vectors))
	}
	if len(all) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(all))
	for i, f := range all {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Num{Num: uint64(i)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: vectors[i]},
				},
			},
			Payload: factPayload(f),
		}
	}

	wait := true
	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert %d points: %w", len(points), err)
	}
	return nil
}

// Search embeds the query and performs k-NN similarity search.
func (v *VectorStore) Search(ctx context.Context, query string, k int) ([]index.Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	vec, err := v.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("semantic: embed query: %w", err)
	}
	vec = index.Normalize(vec)

	resp, err := v.points.Search(ctx, &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         vec,
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}

	hits := make([]index.Hit, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		hits[i] = index.Hit{
			Score: r.GetScore(),
			Index: int(r.GetId().GetNum()),
			Fact:  factFromPayload(r.GetPayload()),
		}
	}
	return hits, nil
}

func factPayload(f domain.NutritionFact) map[string]*pb.Value {
	return map[string]*pb.Value{
		"name":          {Kind: &pb.Value_StringValue{StringValue: f.Name}},
		"barcode":       {Kind: &pb.Value_StringValue{StringValue: f.Barcode}},
		"url":           {Kind: &pb.Value_StringValue{StringValue: f.URL}},
		"fact_text":     {Kind: &pb.Value_StringValue{StringValue: f.FactText}},
		"calories_100g": {Kind: &pb.Value_DoubleValue{DoubleValue: f.Calories100g}},
		"protein_100g":  {Kind: &pb.Value_DoubleValue{DoubleValue: f.Protein100g}},
		"carbs_100g":    {Kind: &pb.Value_DoubleValue{DoubleValue: f.Carbs100g}},
		"fat_100g":      {Kind: &pb.Value_DoubleValue{DoubleValue: f.Fat100g}},
	}
}

func factFromPayload(p map[string]*pb.Value) domain.NutritionFact {
	return domain.NutritionFact{
		Name:         p["name"].GetStringValue(),
		Barcode:      p["barcode"].GetStringValue(),
		URL:          p["url"].GetStringValue(),
		FactText:     p["fact_text"].GetStringValue(),
		Calories100g: p["calories_100g"].GetDoubleValue(),
		Protein100g:  p["protein_100g"].GetDoubleValue(),
		Carbs100g:    p["carbs_100g"].GetDoubleValue(),
		Fat100g:      p["fat_100g"].GetDoubleValue(),
	}
}
