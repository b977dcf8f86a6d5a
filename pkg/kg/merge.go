// Package kg holds the graph-maintenance algorithms shared by every storage
// backend: observation merging, evidence retention ranking, similarity math,
// graph construction from chunk embeddings and one-hop retrieval expansion.
package kg

import (
	"time"

	"github.com/lattice-kb/lattice/pkg/common"
)

// MergeProperties is the shallow key union used everywhere properties meet:
// keys from next win, keys only in prev survive. Nested values are replaced
// wholesale, never merged. A nil next leaves prev untouched.
func MergeProperties(prev, next common.Properties) common.Properties {
	if len(prev) == 0 && len(next) == 0 {
		return common.Properties{}
	}
	out := make(common.Properties, len(prev)+len(next))
	for k, v := range prev {
		out[k] = v
	}
	for k, v := range next {
		out[k] = v
	}
	return out
}

// MergeMetadata is MergeProperties for plain maps.
func MergeMetadata(prev, next map[string]any) map[string]any {
	if len(prev) == 0 && len(next) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(prev)+len(next))
	for k, v := range prev {
		out[k] = v
	}
	for k, v := range next {
		out[k] = v
	}
	return out
}

// NewNode materializes a first observation. SeenCount starts at 1 and the
// status defaults to active when the caller did not pick one.
func NewNode(in common.NodeUpsert, id string, now time.Time) common.Node {
	status := in.Status
	if status == "" {
		status = common.NodeStatusActive
	}
	return common.Node{
		ID:          id,
		TenantID:    in.TenantID,
		ClientID:    in.ClientID,
		NodeKey:     in.NodeKey,
		Type:        in.Type,
		Name:        in.Name,
		Description: in.Description,
		Properties:  MergeProperties(nil, in.Properties),
		Embedding:   in.Embedding,
		Status:      status,
		SeenCount:   1,
		LastSeenAt:  now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// MergeNode folds a re-observation into an existing node. Type, name,
// description and status overwrite; properties union shallowly; the embedding
// coalesces to the stored vector when the observation carries none. Exactly
// one seen_count increment per call.
func MergeNode(existing common.Node, in common.NodeUpsert, now time.Time) common.Node {
	out := existing
	out.Type = in.Type
	out.Name = in.Name
	out.Description = in.Description
	out.Properties = MergeProperties(existing.Properties, in.Properties)
	if in.Embedding != nil {
		out.Embedding = in.Embedding
	}
	if in.Status != "" {
		out.Status = in.Status
	}
	out.SeenCount = existing.SeenCount + 1
	out.LastSeenAt = now
	out.UpdatedAt = now
	return out
}

// NewEdge materializes a first edge observation; edges are born active.
func NewEdge(in common.EdgeUpsert, id string, now time.Time) common.Edge {
	return common.Edge{
		ID:         id,
		TenantID:   in.TenantID,
		ClientID:   in.ClientID,
		SrcID:      in.SrcID,
		DstID:      in.DstID,
		RelType:    in.RelType,
		Weight:     in.Weight,
		Properties: MergeProperties(nil, in.Properties),
		IsActive:   true,
		SeenCount:  1,
		LastSeenAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// MergeEdge folds a re-observation into an existing edge. The weight
// coalesces to the stored value when the observation carries none, and an
// archived edge comes back active: re-observation is the resurrection path.
func MergeEdge(existing common.Edge, in common.EdgeUpsert, now time.Time) common.Edge {
	out := existing
	if in.Weight != nil {
		out.Weight = in.Weight
	}
	out.Properties = MergeProperties(existing.Properties, in.Properties)
	out.IsActive = true
	out.SeenCount = existing.SeenCount + 1
	out.LastSeenAt = now
	out.UpdatedAt = now
	return out
}

// NewChunk materializes a chunk row.
func NewChunk(in common.ChunkUpsert, id string, now time.Time) common.Chunk {
	return common.Chunk{
		ID:            id,
		TenantID:      in.TenantID,
		DocumentID:    in.DocumentID,
		ChunkIndex:    in.ChunkIndex,
		PageStart:     in.PageStart,
		PageEnd:       in.PageEnd,
		Content:       in.Content,
		ContentTokens: in.ContentTokens,
		Metadata:      MergeMetadata(nil, in.Metadata),
		Embedding:     in.Embedding,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// MergeChunk refreshes an existing chunk. Every field coalesces to the
// stored value when omitted (empty content means "not supplied"); metadata
// shallow-merges.
func MergeChunk(existing common.Chunk, in common.ChunkUpsert, now time.Time) common.Chunk {
	out := existing
	if in.Content != "" {
		out.Content = in.Content
	}
	if in.PageStart != nil {
		out.PageStart = in.PageStart
	}
	if in.PageEnd != nil {
		out.PageEnd = in.PageEnd
	}
	if in.ContentTokens != nil {
		out.ContentTokens = in.ContentTokens
	}
	out.Metadata = MergeMetadata(existing.Metadata, in.Metadata)
	if in.Embedding != nil {
		out.Embedding = in.Embedding
	}
	out.UpdatedAt = now
	return out
}

// NewSummary materializes the scope's summary row.
func NewSummary(in common.ContextSummaryUpsert, id string, now time.Time) common.ContextSummary {
	return common.ContextSummary{
		ID:          id,
		TenantID:    in.TenantID,
		ClientID:    in.ClientID,
		Summary:     in.Summary,
		Topics:      in.Topics,
		Metadata:    MergeMetadata(nil, in.Metadata),
		SourceStats: in.SourceStats,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// MergeSummary recomputes the scope's summary in place: summary, topics and
// source stats are replaced wholesale, metadata shallow-merges so operator
// annotations survive regeneration.
func MergeSummary(existing common.ContextSummary, in common.ContextSummaryUpsert, now time.Time) common.ContextSummary {
	out := existing
	out.Summary = in.Summary
	out.Topics = in.Topics
	out.Metadata = MergeMetadata(existing.Metadata, in.Metadata)
	out.SourceStats = in.SourceStats
	out.UpdatedAt = now
	return out
}
