package kg

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lattice-kb/lattice/pkg/common"
	"github.com/lattice-kb/lattice/pkg/logger"
	"github.com/lattice-kb/lattice/pkg/store"
)

// BuildConfig tunes one graph construction pass.
type BuildConfig struct {
	SimilarityThreshold float64           `json:"similarity_threshold"`
	MaxEdgesPerChunk    int               `json:"max_edges_per_chunk"`
	MaxChunks           int               `json:"max_chunks"`
	BatchSize           int               `json:"batch_size"`
	RelType             string            `json:"rel_type"`
	EdgeProperties      common.Properties `json:"edge_properties,omitempty"`
}

// DefaultBuildConfig returns the standard construction thresholds.
func DefaultBuildConfig() BuildConfig {
	return BuildConfig{
		SimilarityThreshold: 0.82,
		MaxEdgesPerChunk:    10,
		MaxChunks:           2000,
		BatchSize:           500,
		RelType:             "related_to",
	}
}

func (c BuildConfig) withDefaults() BuildConfig {
	d := DefaultBuildConfig()
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = d.SimilarityThreshold
	}
	if c.MaxEdgesPerChunk <= 0 {
		c.MaxEdgesPerChunk = d.MaxEdgesPerChunk
	}
	if c.MaxChunks <= 0 {
		c.MaxChunks = d.MaxChunks
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.RelType == "" {
		c.RelType = d.RelType
	}
	return c
}

// BuildResult summarizes one construction pass.
type BuildResult struct {
	ChunksFetched int    `json:"chunks_fetched"`
	ChunksValid   int    `json:"chunks_valid"`
	ChunksSkipped int    `json:"chunks_skipped"`
	NodesUpserted int    `json:"nodes_upserted"`
	EdgesUpserted int    `json:"edges_upserted"`
	Note          string `json:"note,omitempty"`
}

// Builder constructs the similarity graph over embedded chunks: one node per
// chunk, one directed edge per chunk pair whose embeddings agree above the
// configured threshold.
type Builder struct {
	store store.Storage
}

func NewBuilder(st store.Storage) *Builder {
	return &Builder{store: st}
}

// Build fetches every embedded chunk of the scope (or of one document when
// documentID is non-empty), upserts a graph node per valid chunk, then draws
// the best-weighted similarity edges out of each node.
func (b *Builder) Build(ctx context.Context, scope common.Scope, documentID string, cfg BuildConfig) (BuildResult, error) {
	if err := store.CheckScope(scope); err != nil {
		return BuildResult{}, err
	}
	cfg = cfg.withDefaults()

	chunks, err := b.fetchAllChunks(ctx, scope, documentID, cfg)
	if err != nil {
		return BuildResult{}, err
	}
	if len(chunks) == 0 {
		return BuildResult{Note: "no embedded chunks found"}, nil
	}

	valid := make([]common.Chunk, 0, len(chunks))
	skipped := 0
	for _, c := range chunks {
		if !ValidEmbedding(c.Embedding) {
			skipped++
			logger.Warn("[KG][Build] Skipping chunk with bad embedding", "chunk_id", c.ID, "dims", len(c.Embedding))
			continue
		}
		valid = append(valid, c)
	}
	if len(valid) == 0 {
		return BuildResult{
			ChunksFetched: len(chunks),
			ChunksSkipped: skipped,
			Note:          "no chunks had valid embeddings",
		}, nil
	}

	res := BuildResult{
		ChunksFetched: len(chunks),
		ChunksValid:   len(valid),
		ChunksSkipped: skipped,
	}

	nodeIDs := make([]string, len(valid))
	for i, c := range valid {
		id, err := b.store.UpsertNode(ctx, common.NodeUpsert{
			Scope:       scope,
			NodeKey:     "chunk:" + c.ID,
			Type:        common.ArtifactChunk,
			Name:        fmt.Sprintf("Chunk %d", c.ChunkIndex),
			Description: Preview(c.Content, 80),
			Properties: common.Properties{
				"chunk_id":    c.ID,
				"document_id": c.DocumentID,
				"chunk_index": c.ChunkIndex,
				"metadata":    MergeMetadata(nil, c.Metadata),
			},
			Embedding: c.Embedding,
			Status:    common.NodeStatusActive,
		})
		if err != nil {
			return BuildResult{}, fmt.Errorf("upsert chunk node %s: %w", c.ID, err)
		}
		nodeIDs[i] = id
		res.NodesUpserted++
	}

	for i := range valid {
		for _, cand := range topCandidates(valid, i, cfg) {
			weight := cand.sim
			_, err := b.store.UpsertEdge(ctx, common.EdgeUpsert{
				Scope:   scope,
				SrcID:   nodeIDs[i],
				DstID:   nodeIDs[cand.idx],
				RelType: cfg.RelType,
				Weight:  &weight,
				Properties: MergeProperties(cfg.EdgeProperties, common.Properties{
					"method":    "chunk_embedding_cosine",
					"threshold": cfg.SimilarityThreshold,
				}),
			})
			if err != nil {
				return BuildResult{}, fmt.Errorf("upsert similarity edge: %w", err)
			}
			res.EdgesUpserted++
		}
	}

	logger.Info("[KG][Build] Graph construction finished",
		"tenant_id", scope.TenantID,
		"nodes", res.NodesUpserted,
		"edges", res.EdgesUpserted,
		"skipped", res.ChunksSkipped)
	return res, nil
}

func (b *Builder) fetchAllChunks(ctx context.Context, scope common.Scope, documentID string, cfg BuildConfig) ([]common.Chunk, error) {
	var all []common.Chunk
	offset := 0
	for {
		page, err := b.store.FetchChunks(ctx, store.ChunkQuery{
			TenantID:   scope.TenantID,
			ClientID:   scope.ClientID,
			DocumentID: documentID,
			Limit:      cfg.BatchSize,
			Offset:     offset,
		})
		if err != nil {
			return nil, fmt.Errorf("fetch chunks at offset %d: %w", offset, err)
		}
		all = append(all, page...)
		if len(all) >= cfg.MaxChunks {
			logger.Warn("[KG][Build] Reached chunk limit, truncating", "max_chunks", cfg.MaxChunks)
			return all[:cfg.MaxChunks], nil
		}
		if len(page) < cfg.BatchSize {
			return all, nil
		}
		offset += cfg.BatchSize
	}
}

type candidate struct {
	idx int
	sim float64
}

// topCandidates returns the other chunks whose embeddings clear the
// threshold against chunk i, best first, capped at MaxEdgesPerChunk.
func topCandidates(chunks []common.Chunk, i int, cfg BuildConfig) []candidate {
	var cands []candidate
	for j := range chunks {
		if j == i {
			continue
		}
		sim := CosineSimilarity(chunks[i].Embedding, chunks[j].Embedding)
		if sim >= cfg.SimilarityThreshold {
			cands = append(cands, candidate{idx: j, sim: sim})
		}
	}
	sort.SliceStable(cands, func(a, b int) bool { return cands[a].sim > cands[b].sim })
	if len(cands) > cfg.MaxEdgesPerChunk {
		cands = cands[:cfg.MaxEdgesPerChunk]
	}
	return cands
}

// Preview collapses text to a single trimmed line of at most maxLen runes,
// with an ellipsis when it was cut.
func Preview(text string, maxLen int) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "…"
}
