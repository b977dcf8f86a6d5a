// Package summary maintains the per-scope context summary: a recomputable
// overview of what the knowledge graph currently holds.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lattice-kb/lattice/pkg/ai"
	"github.com/lattice-kb/lattice/pkg/common"
	"github.com/lattice-kb/lattice/pkg/kg"
	"github.com/lattice-kb/lattice/pkg/logger"
	"github.com/lattice-kb/lattice/pkg/store"
)

const (
	// overviewQuery seeds the retrieval that selects material for the
	// summary prompt.
	overviewQuery = "overall themes, entities and relationships in this knowledge base"

	// summaryTopK pulls more seeds than answer-time retrieval does; the
	// summary should see breadth, not just the closest hits.
	summaryTopK = 20

	maxTopics = 8
)

// modelOutput is the structure the model is asked to produce.
type modelOutput struct {
	Summary string   `json:"summary"`
	Topics  []string `json:"topics"`
}

// Generator builds and stores context summaries from the graph.
type Generator struct {
	store     store.Storage
	chat      ai.ChatClient
	retriever *kg.Retriever
}

// NewGeneratorParams wires a Generator.
type NewGeneratorParams struct {
	Store      store.Storage
	Chat       ai.ChatClient
	Embeddings ai.EmbeddingClient
}

func NewGenerator(params NewGeneratorParams) *Generator {
	return &Generator{
		store:     params.Store,
		chat:      params.Chat,
		retriever: kg.NewRetriever(params.Store, params.Embeddings),
	}
}

// Generate recomputes the scope's summary from the current graph and
// stores it. The previous summary is replaced wholesale.
func (g *Generator) Generate(ctx context.Context, scope common.Scope) (common.ContextSummary, error) {
	if err := store.CheckSearchScope(scope); err != nil {
		return common.ContextSummary{}, err
	}
	if g.chat == nil {
		return common.ContextSummary{}, fmt.Errorf("%w: chat client is nil", store.ErrDependency)
	}

	cfg := kg.DefaultRetrieveConfig()
	cfg.TopK = summaryTopK
	nodes, err := g.retriever.Retrieve(ctx, scope, overviewQuery, cfg)
	if err != nil {
		return common.ContextSummary{}, fmt.Errorf("failed to collect summary material: %w", err)
	}
	if len(nodes) == 0 {
		return common.ContextSummary{}, fmt.Errorf("%w: no graph content to summarize", store.ErrNotFound)
	}

	prompt := buildPrompt(nodes)
	raw, err := g.chat.GenerateCompletion(ctx, prompt,
		ai.WithSystemPrompts(systemPrompt()),
		ai.WithTemperature(0.2),
	)
	if err != nil {
		return common.ContextSummary{}, fmt.Errorf("%w: summary generation failed: %v", store.ErrDependency, err)
	}

	var out modelOutput
	if err := ai.UnmarshalFlexible(raw, &out); err != nil {
		return common.ContextSummary{}, fmt.Errorf("%w: unusable summary output: %v", store.ErrDependency, err)
	}
	if strings.TrimSpace(out.Summary) == "" {
		return common.ContextSummary{}, fmt.Errorf("%w: model returned an empty summary", store.ErrDependency)
	}
	if len(out.Topics) > maxTopics {
		out.Topics = out.Topics[:maxTopics]
	}

	stats := sourceStats(nodes)
	id, err := g.store.UpsertContextSummary(ctx, common.ContextSummaryUpsert{
		Scope:       scope,
		Summary:     strings.TrimSpace(out.Summary),
		Topics:      out.Topics,
		SourceStats: stats,
	})
	if err != nil {
		return common.ContextSummary{}, err
	}

	logger.Info("[Summary] Regenerated context summary",
		"tenant", scope.TenantID, "client", scope.ClientID,
		"id", id, "topics", len(out.Topics))

	return g.store.GetContextSummary(ctx, scope)
}

// Get returns the scope's stored summary.
func (g *Generator) Get(ctx context.Context, scope common.Scope) (common.ContextSummary, error) {
	if err := store.CheckScope(scope); err != nil {
		return common.ContextSummary{}, err
	}
	return g.store.GetContextSummary(ctx, scope)
}

// Delete removes the scope's summary. Reports whether one existed.
func (g *Generator) Delete(ctx context.Context, scope common.Scope) (bool, error) {
	if err := store.CheckScope(scope); err != nil {
		return false, err
	}
	return g.store.DeleteContextSummary(ctx, scope)
}

func systemPrompt() string {
	schema, _ := json.Marshal(ai.GenerateSchema(modelOutput{}))
	return fmt.Sprintf(
		"You summarize the contents of a knowledge base. "+
			"Respond with a single JSON object matching this schema, nothing else:\n%s",
		schema)
}

func buildPrompt(nodes []kg.RetrievedNode) string {
	var sb strings.Builder
	sb.WriteString("Knowledge base excerpts:\n\n")
	for i, n := range nodes {
		sb.WriteString(fmt.Sprintf("%d. %s (%s)\n", i+1, n.Node.Name, n.Node.Type))
		if content := strings.TrimSpace(n.Content); content != "" {
			sb.WriteString(content)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Write a concise summary of what this knowledge base covers " +
		"and list its main topics.")
	return sb.String()
}

func sourceStats(nodes []kg.RetrievedNode) map[string]any {
	seeds := 0
	expanded := 0
	byType := map[string]int{}
	for _, n := range nodes {
		if n.Source == kg.SourceVector {
			seeds++
		} else {
			expanded++
		}
		byType[string(n.Node.Type)]++
	}
	return map[string]any{
		"nodes_considered": len(nodes),
		"vector_seeds":     seeds,
		"graph_expanded":   expanded,
		"node_types":       byType,
	}
}
