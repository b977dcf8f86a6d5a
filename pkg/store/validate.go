package store

import (
	"fmt"

	"github.com/lattice-kb/lattice/pkg/common"
)

// Input checks shared by every backend. All failures wrap ErrValidation so
// transports can map them uniformly.

func CheckScope(s common.Scope) error {
	if s.TenantID == "" {
		return fmt.Errorf("%w: tenant_id is required", ErrValidation)
	}
	return nil
}

func CheckNodeUpsert(in common.NodeUpsert) error {
	if err := CheckScope(in.Scope); err != nil {
		return err
	}
	if in.NodeKey == "" {
		return fmt.Errorf("%w: node_key is required", ErrValidation)
	}
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !common.ValidArtifactType(in.Type) {
		return fmt.Errorf("%w: invalid node type %q", ErrValidation, in.Type)
	}
	if in.Status != "" && !common.ValidNodeStatus(in.Status) {
		return fmt.Errorf("%w: invalid node status %q", ErrValidation, in.Status)
	}
	return nil
}

func CheckEdgeUpsert(in common.EdgeUpsert) error {
	if err := CheckScope(in.Scope); err != nil {
		return err
	}
	if in.SrcID == "" || in.DstID == "" {
		return fmt.Errorf("%w: src_id and dst_id are required", ErrValidation)
	}
	if in.RelType == "" {
		return fmt.Errorf("%w: rel_type is required", ErrValidation)
	}
	return nil
}

func CheckChunkUpsert(in common.ChunkUpsert) error {
	if in.TenantID == "" {
		return fmt.Errorf("%w: tenant_id is required", ErrValidation)
	}
	if in.DocumentID == "" {
		return fmt.Errorf("%w: document_id is required", ErrValidation)
	}
	if in.ChunkIndex < 0 {
		return fmt.Errorf("%w: chunk_index must be non-negative", ErrValidation)
	}
	return nil
}

func CheckEvidenceUpsert(in common.EvidenceUpsert) error {
	if err := CheckScope(in.Scope); err != nil {
		return err
	}
	if in.SubjectID == "" {
		return fmt.Errorf("%w: subject_id is required", ErrValidation)
	}
	if in.ChunkID == "" {
		return fmt.Errorf("%w: chunk_id is required", ErrValidation)
	}
	return nil
}

func CheckSummaryUpsert(in common.ContextSummaryUpsert) error {
	if err := CheckScope(in.Scope); err != nil {
		return err
	}
	if in.Summary == "" {
		return fmt.Errorf("%w: summary is required", ErrValidation)
	}
	return nil
}

// CheckSearchScope enforces the stricter search contract: the client
// partition must be stated explicitly.
func CheckSearchScope(s common.Scope) error {
	if err := CheckScope(s); err != nil {
		return err
	}
	if s.ClientID == "" {
		return fmt.Errorf("%w: client_id is required for search", ErrValidation)
	}
	return nil
}
