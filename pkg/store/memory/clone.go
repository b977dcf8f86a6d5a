package memory

import "github.com/lattice-kb/lattice/pkg/common"

// Returned values are detached copies so callers can never mutate the
// store's state through them.

func cloneProperties(p common.Properties) common.Properties {
	if p == nil {
		return nil
	}
	out := make(common.Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneEmbedding(e []float32) []float32 {
	if e == nil {
		return nil
	}
	out := make([]float32, len(e))
	copy(out, e)
	return out
}

func cloneScore(s *float64) *float64 {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneNode(n common.Node) common.Node {
	n.Properties = cloneProperties(n.Properties)
	n.Embedding = cloneEmbedding(n.Embedding)
	return n
}

func cloneEdge(e common.Edge) common.Edge {
	e.Properties = cloneProperties(e.Properties)
	e.Weight = cloneScore(e.Weight)
	return e
}

func cloneChunk(c common.Chunk) common.Chunk {
	c.Metadata = cloneMetadata(c.Metadata)
	c.Embedding = cloneEmbedding(c.Embedding)
	if c.PageStart != nil {
		v := *c.PageStart
		c.PageStart = &v
	}
	if c.PageEnd != nil {
		v := *c.PageEnd
		c.PageEnd = &v
	}
	if c.ContentTokens != nil {
		v := *c.ContentTokens
		c.ContentTokens = &v
	}
	return c
}

func cloneDocument(d common.Document) common.Document {
	d.Metadata = cloneMetadata(d.Metadata)
	return d
}

func cloneSummary(s common.ContextSummary) common.ContextSummary {
	s.Metadata = cloneMetadata(s.Metadata)
	if s.Topics != nil {
		topics := make([]string, len(s.Topics))
		copy(topics, s.Topics)
		s.Topics = topics
	}
	if s.SourceStats != nil {
		s.SourceStats = cloneMetadata(s.SourceStats)
	}
	return s
}
