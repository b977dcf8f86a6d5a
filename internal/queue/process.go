package queue

import (
	"context"
	"encoding/json"
	"fmt"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/lattice-kb/lattice/internal/storage"
	"github.com/lattice-kb/lattice/pkg/common"
	"github.com/lattice-kb/lattice/pkg/ingest"
	"github.com/lattice-kb/lattice/pkg/kg"
	"github.com/lattice-kb/lattice/pkg/logger"
)

// IngestMsg asks the worker to run one ingest. File sources reference an
// already-uploaded object by FileKey; web sources carry the URL.
type IngestMsg struct {
	TenantID string `json:"tenant_id"`
	ClientID string `json:"client_id"`

	SourceType string         `json:"source_type"`
	SourceURI  string         `json:"source_uri,omitempty"`
	FileKey    string         `json:"file_key,omitempty"`
	FileName   string         `json:"file_name,omitempty"`
	Title      string         `json:"title,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	MaxTokens  int            `json:"max_tokens,omitempty"`

	BuildGraph bool `json:"build_graph"`
	PruneAfter bool `json:"prune_after"`
}

// PruneMsg asks the worker to run graph maintenance for one scope.
// Zero option fields fall back to the defaults.
type PruneMsg struct {
	TenantID string `json:"tenant_id"`
	ClientID string `json:"client_id"`

	Options common.PruneOptions `json:"options"`
}

// ProcessIngestMessage fetches the source content and runs the pipeline.
func ProcessIngestMessage(
	ctx context.Context,
	s3Client *awss3.Client,
	pipeline *ingest.Pipeline,
	msg string,
) error {
	data := new(IngestMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("failed to unmarshal ingest message: %w", err)
	}

	req := ingest.Request{
		Scope:      common.Scope{TenantID: data.TenantID, ClientID: data.ClientID},
		SourceType: data.SourceType,
		SourceURI:  data.SourceURI,
		FileName:   data.FileName,
		Title:      data.Title,
		Metadata:   data.Metadata,
		MaxTokens:  data.MaxTokens,
		BuildGraph: data.BuildGraph,
		PruneAfter: data.PruneAfter,
	}

	if data.SourceType != ingest.SourceWeb {
		if data.FileKey == "" {
			return fmt.Errorf("ingest message has no file_key")
		}
		content, err := storage.GetFile(ctx, s3Client, data.FileKey)
		if err != nil {
			return fmt.Errorf("failed to fetch source object: %w", err)
		}
		req.Content = content
		req.SourceURI = data.FileKey
		if req.FileName == "" {
			req.FileName = data.FileKey
		}
	}

	result, err := pipeline.Run(ctx, req)
	if err != nil {
		return err
	}

	logger.Info("[Queue] Ingest finished",
		"tenant", data.TenantID, "client", data.ClientID,
		"document", result.DocumentID,
		"chunks", result.ChunksCreated,
		"warnings", len(result.Warnings))

	return nil
}

// ProcessPruneMessage runs graph maintenance under the scope's lease.
func ProcessPruneMessage(
	ctx context.Context,
	maintainer *kg.Maintainer,
	msg string,
) error {
	data := new(PruneMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("failed to unmarshal prune message: %w", err)
	}

	scope := common.Scope{TenantID: data.TenantID, ClientID: data.ClientID}
	result, err := maintainer.Prune(ctx, scope, data.Options)
	if err != nil {
		return err
	}

	logger.Info("[Queue] Prune finished",
		"tenant", data.TenantID, "client", data.ClientID,
		"edges_archived", result.EdgesArchived,
		"nodes_archived", result.NodesArchived,
		"edge_evidence_deleted", result.EdgeEvidenceDeleted,
		"node_evidence_deleted", result.NodeEvidenceDeleted)

	return nil
}
