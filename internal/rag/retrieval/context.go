package retrieval

import (
	"fmt"
	"strings"

	"github.com/akolanti/ragstream/internal/config"
	"github.com/akolanti/ragstream/internal/domain/chatModel"
	"github.com/akolanti/ragstream/internal/domain/commonModels"
	"github.com/akolanti/ragstream/internal/rag/vectorDB"
)

// ContextDelimiter separates passages in the assembled context.
const ContextDelimiter = "\n\n---\n\n"

// FilterByScore keeps passages whose similarity is at least threshold, preserving order.
func FilterByScore(passages []commonModels.Passage, threshold float64) []commonModels.Passage {
	kept := make([]commonModels.Passage, 0, len(passages))
	for _, p := range passages {
		if vectorDB.MeetsSimilarity(p.Similarity(), threshold) {
			kept = append(kept, p)
		}
	}
	return kept
}

// BuildContext labels each passage by its 1-based position and filename. No passages yields
// config.NoRelevantDocuments.
func BuildContext(passages []commonModels.Passage) string {
	if len(passages) == 0 {
		return config.NoRelevantDocuments
	}
	var sb strings.Builder
	for i, p := range passages {
		if i > 0 {
			sb.WriteString(ContextDelimiter)
		}
		sb.WriteString(sourceLabel(i, p))
		sb.WriteString("\n")
		sb.WriteString(p.Content)
	}
	return sb.String()
}

func IsNoDocuments(assembled string) bool {
	return assembled == config.NoRelevantDocuments
}

// Sources describes passages the way BuildContext labels them.
func Sources(passages []commonModels.Passage) []chatModel.SourceRef {
	refs := make([]chatModel.SourceRef, len(passages))
	for i, p := range passages {
		refs[i] = chatModel.SourceRef{
			Label:      fmt.Sprintf("Source %d", i+1),
			Filename:   p.Filename,
			ChunkIndex: p.ChunkIndex,
			Similarity: p.Similarity(),
		}
	}
	return refs
}

func sourceLabel(i int, p commonModels.Passage) string {
	return fmt.Sprintf("[Source %d: %s]", i+1, p.Filename)
}
