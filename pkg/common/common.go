package common

import "time"

// Scope identifies the isolation boundary every row lives in. TenantID is
// mandatory; ClientID partitions data within a tenant and may be empty, which
// is the tenant-wide partition (a distinct partition, not a wildcard).
type Scope struct {
	TenantID string `json:"tenant_id"`
	ClientID string `json:"client_id"`
}

// NodeStatus is the lifecycle state of a graph node. Archival is a status
// transition, never a delete.
type NodeStatus string

const (
	NodeStatusActive         NodeStatus = "active"
	NodeStatusPendingLinking NodeStatus = "pending_linking"
	NodeStatusArchived       NodeStatus = "archived"
)

// ValidNodeStatus reports whether s is one of the known statuses.
func ValidNodeStatus(s NodeStatus) bool {
	switch s {
	case NodeStatusActive, NodeStatusPendingLinking, NodeStatusArchived:
		return true
	}
	return false
}

// ArtifactType is the closed set of node types the graph accepts.
type ArtifactType string

const (
	ArtifactWebPage         ArtifactType = "WebPage"
	ArtifactPDF             ArtifactType = "PDF"
	ArtifactImage           ArtifactType = "Image"
	ArtifactPowerPoint      ArtifactType = "PowerPoint"
	ArtifactDocx            ArtifactType = "Docx"
	ArtifactVideoTranscript ArtifactType = "VideoTranscript"
	ArtifactChatTranscript  ArtifactType = "ChatTranscript"
	ArtifactChatSnapshot    ArtifactType = "ChatSnapshot"
	ArtifactChunk           ArtifactType = "Chunk"
)

// ValidArtifactType reports whether t is in the closed node-type set.
func ValidArtifactType(t ArtifactType) bool {
	switch t {
	case ArtifactWebPage, ArtifactPDF, ArtifactImage, ArtifactPowerPoint,
		ArtifactDocx, ArtifactVideoTranscript, ArtifactChatTranscript,
		ArtifactChatSnapshot, ArtifactChunk:
		return true
	}
	return false
}

// Properties is a JSON-like document attached to nodes and edges. Merging is
// a shallow key union: new keys win, unspecified keys survive.
type Properties map[string]any

// Node is a knowledge-graph vertex observed from ingested content.
//
// Nodes are resolved by (tenant, client, node_key). SeenCount starts at 1 and
// grows by one per re-observation; LastSeenAt tracks the latest observation
// and drives staleness-based archival.
type Node struct {
	ID string `json:"id"`

	TenantID string `json:"tenant_id"`
	ClientID string `json:"client_id"`

	NodeKey     string       `json:"node_key"`
	Type        ArtifactType `json:"type"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Properties  Properties   `json:"properties"`
	Embedding   []float32    `json:"embedding,omitempty"`
	Status      NodeStatus   `json:"status"`

	SeenCount  int       `json:"seen_count"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NodeUpsert is a single observation of a node. A nil Embedding means "not
// supplied" and never clears a stored vector.
type NodeUpsert struct {
	Scope

	NodeKey     string       `json:"node_key"`
	Type        ArtifactType `json:"type"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Properties  Properties   `json:"properties"`
	Embedding   []float32    `json:"embedding,omitempty"`
	Status      NodeStatus   `json:"status"`
}

// Edge is a directed, labeled relationship between two nodes of the same
// scope. Resolved by (tenant, client, src, dst, rel_type); re-observation
// merges and re-activates instead of duplicating.
type Edge struct {
	ID string `json:"id"`

	TenantID string `json:"tenant_id"`
	ClientID string `json:"client_id"`

	SrcID   string `json:"src_id"`
	DstID   string `json:"dst_id"`
	RelType string `json:"rel_type"`

	Weight     *float64   `json:"weight,omitempty"`
	Properties Properties `json:"properties"`
	IsActive   bool       `json:"is_active"`

	SeenCount  int       `json:"seen_count"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// EdgeUpsert is a single observation of an edge. A nil Weight keeps the
// stored weight.
type EdgeUpsert struct {
	Scope

	SrcID   string `json:"src_id"`
	DstID   string `json:"dst_id"`
	RelType string `json:"rel_type"`

	Weight     *float64   `json:"weight,omitempty"`
	Properties Properties `json:"properties"`
}

// Evidence links a node or an edge to a chunk that justifies it, with an
// optional quotation and relevance score. Unique per
// (tenant, client, subject, chunk); score and quote are replaced on conflict.
type Evidence struct {
	ID string `json:"id"`

	TenantID string `json:"tenant_id"`
	ClientID string `json:"client_id"`

	SubjectID string   `json:"subject_id"`
	ChunkID   string   `json:"chunk_id"`
	Quote     string   `json:"quote,omitempty"`
	Score     *float64 `json:"score,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// EvidenceUpsert records one (subject, chunk) justification. SubjectID is a
// node ID for node evidence and an edge ID for edge evidence.
type EvidenceUpsert struct {
	Scope

	SubjectID string   `json:"subject_id"`
	ChunkID   string   `json:"chunk_id"`
	Quote     string   `json:"quote,omitempty"`
	Score     *float64 `json:"score,omitempty"`
}

// ScoredNode is a search hit: a node plus its similarity to the query
// embedding (1 - cosine distance, higher is better).
type ScoredNode struct {
	Node       Node    `json:"node"`
	Similarity float64 `json:"similarity"`
}

// PruneOptions tunes one maintenance pass over a scope.
type PruneOptions struct {
	EdgeStaleDays    int `json:"edge_stale_days"`
	NodeStaleDays    int `json:"node_stale_days"`
	MinDegree        int `json:"min_degree"`
	KeepEdgeEvidence int `json:"keep_edge_evidence"`
	KeepNodeEvidence int `json:"keep_node_evidence"`
}

// DefaultPruneOptions returns the standard maintenance thresholds.
func DefaultPruneOptions() PruneOptions {
	return PruneOptions{
		EdgeStaleDays:    90,
		NodeStaleDays:    180,
		MinDegree:        3,
		KeepEdgeEvidence: 5,
		KeepNodeEvidence: 10,
	}
}

// PruneResult reports how much each maintenance step touched.
type PruneResult struct {
	EdgesArchived       int `json:"edges_archived"`
	NodesArchived       int `json:"nodes_archived"`
	EdgeEvidenceDeleted int `json:"edge_evidence_deleted"`
	NodeEvidenceDeleted int `json:"node_evidence_deleted"`
}
