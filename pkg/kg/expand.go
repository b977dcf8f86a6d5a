package kg

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/lattice-kb/lattice/pkg/ai"
	"github.com/lattice-kb/lattice/pkg/common"
	"github.com/lattice-kb/lattice/pkg/logger"
	"github.com/lattice-kb/lattice/pkg/store"
)

// Retrieval sources for RetrievedNode.Source.
const (
	SourceVector         = "vector"
	SourceGraphExpansion = "graph_expansion"
)

// RetrieveConfig tunes one retrieval pass: seed count from vector search,
// then bounded one-hop expansion along well-weighted edges.
type RetrieveConfig struct {
	TopK          int     `json:"top_k"`
	HopLimit      int     `json:"hop_limit"`
	MaxNeighbours int     `json:"max_neighbours"`
	MinEdgeWeight float64 `json:"min_edge_weight"`
}

// DefaultRetrieveConfig returns the standard retrieval bounds.
func DefaultRetrieveConfig() RetrieveConfig {
	return RetrieveConfig{
		TopK:          5,
		HopLimit:      1,
		MaxNeighbours: 3,
		MinEdgeWeight: 0.75,
	}
}

func (c RetrieveConfig) withDefaults() RetrieveConfig {
	d := DefaultRetrieveConfig()
	if c.TopK <= 0 {
		c.TopK = d.TopK
	}
	if c.MaxNeighbours <= 0 {
		c.MaxNeighbours = d.MaxNeighbours
	}
	if c.MinEdgeWeight <= 0 {
		c.MinEdgeWeight = d.MinEdgeWeight
	}
	return c
}

// RetrievedNode is one retrieval hit. Content carries the full chunk text
// when the node points at a chunk (the node description is only a preview),
// falling back to the description or name. Similarity is set on vector seeds
// only; expanded neighbours carry none.
type RetrievedNode struct {
	Node       common.Node `json:"node"`
	Content    string      `json:"content"`
	Source     string      `json:"source"`
	Similarity *float64    `json:"similarity,omitempty"`
}

// Retriever answers queries from the graph: embed, vector-search seeds,
// expand one hop along strong edges, dedupe, resolve chunk content.
type Retriever struct {
	store store.Storage
	embed ai.EmbeddingClient
}

func NewRetriever(st store.Storage, embed ai.EmbeddingClient) *Retriever {
	return &Retriever{store: st, embed: embed}
}

// Retrieve embeds the query and delegates to RetrieveByEmbedding.
func (r *Retriever) Retrieve(ctx context.Context, scope common.Scope, query string, cfg RetrieveConfig) ([]RetrievedNode, error) {
	if r.embed == nil {
		return nil, fmt.Errorf("%w: no embedding client configured", store.ErrDependency)
	}
	embedding, err := r.embed.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return r.RetrieveByEmbedding(ctx, scope, embedding, cfg)
}

// RetrieveByEmbedding runs the retrieval strategy over a ready-made query
// vector. Seeds come back in similarity order, each directly followed by its
// expanded neighbours; a node retrieved once is never re-added.
func (r *Retriever) RetrieveByEmbedding(ctx context.Context, scope common.Scope, embedding []float32, cfg RetrieveConfig) ([]RetrievedNode, error) {
	cfg = cfg.withDefaults()

	seeds, err := r.store.SearchNodes(ctx, scope, embedding, cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	logger.Debug("[KG][Retrieve] Vector search returned seeds", "count", len(seeds))

	seen := make(map[string]struct{})
	var out []RetrievedNode

	for _, seed := range seeds {
		if _, ok := seen[seed.Node.ID]; ok {
			continue
		}
		seen[seed.Node.ID] = struct{}{}
		sim := math.Round(seed.Similarity*1e4) / 1e4
		out = append(out, r.resolve(ctx, scope, seed.Node, SourceVector, &sim))

		if cfg.HopLimit < 1 {
			continue
		}
		edges, err := r.store.Neighbours(ctx, scope, seed.Node.ID, store.NeighbourQuery{
			MinWeight: cfg.MinEdgeWeight,
			Limit:     cfg.MaxNeighbours,
		})
		if err != nil {
			logger.Error("[KG][Retrieve] Neighbour fetch failed", "node_id", seed.Node.ID, "error", err)
			continue
		}
		var candidates []string
		for _, e := range edges {
			if _, ok := seen[e.DstID]; !ok {
				candidates = append(candidates, e.DstID)
			}
		}
		neighbours, err := r.store.GetNodesByIDs(ctx, scope, candidates)
		if err != nil {
			logger.Error("[KG][Retrieve] Node batch fetch failed", "error", err)
			continue
		}
		for _, nb := range neighbours {
			if nb.Status != common.NodeStatusActive {
				continue
			}
			if _, ok := seen[nb.ID]; ok {
				continue
			}
			seen[nb.ID] = struct{}{}
			out = append(out, r.resolve(ctx, scope, nb, SourceGraphExpansion, nil))
		}
	}

	logger.Debug("[KG][Retrieve] Retrieval finished", "total", len(out), "seeds", len(seeds))
	return out, nil
}

// resolve builds the hit, swapping the node's preview description for the
// full chunk text when the node carries a chunk_id property.
func (r *Retriever) resolve(ctx context.Context, scope common.Scope, node common.Node, source string, sim *float64) RetrievedNode {
	content := node.Description
	if content == "" {
		content = node.Name
	}
	if chunkID, ok := node.Properties["chunk_id"].(string); ok && chunkID != "" {
		chunk, err := r.store.GetChunk(ctx, scope.TenantID, chunkID)
		switch {
		case err == nil && chunk.Content != "":
			content = chunk.Content
		case err != nil && !errors.Is(err, store.ErrNotFound):
			logger.Warn("[KG][Retrieve] Chunk content fetch failed", "chunk_id", chunkID, "error", err)
		}
	}
	return RetrievedNode{Node: node, Content: content, Source: source, Similarity: sim}
}
