package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/akolanti/ragstream/internal/domain/commonModels"
	"github.com/akolanti/ragstream/internal/domain/ragErrors"
)

// A unit is a run of text ending in one or more terminators, or whatever is left after the last one.
// Every character of the input lands in exactly one unit.
var unitPattern = regexp.MustCompile(`[^.!?]*[.!?]+|[^.!?]+$`)

type Chunker struct {
	size    int
	overlap int
}

func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, ragErrors.Newf(ragErrors.InvalidInput, "chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, ragErrors.Newf(ragErrors.InvalidInput, "chunk overlap must be within [0, %d), got %d", size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

func (c *Chunker) String() string {
	return fmt.Sprintf("chunker(size=%d, overlap=%d)", c.size, c.overlap)
}

// Normalize collapses every whitespace run to one space and trims both ends.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Chunk splits text into overlapping chunks of roughly c.size runes. Units are never split, so a single
// unit longer than the size becomes its own oversized chunk. Lengths are counted in runes.
func (c *Chunker) Chunk(text string) []commonModels.Chunk {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}

	units := splitUnits(normalized)

	var contents []string
	var buffer strings.Builder
	bufferLen := 0

	for _, unit := range units {
		if bufferLen == 0 {
			unit = strings.TrimLeft(unit, " ")
		}
		unitLen := utf8.RuneCountInString(unit)

		if bufferLen > 0 && bufferLen+unitLen > c.size {
			closed := strings.TrimSpace(buffer.String())
			contents = append(contents, closed)

			buffer.Reset()
			bufferLen = 0
			if tail := overlapTail(closed, c.overlap); tail != "" {
				buffer.WriteString(tail)
				bufferLen = utf8.RuneCountInString(tail)
			} else {
				unit = strings.TrimLeft(unit, " ")
				unitLen = utf8.RuneCountInString(unit)
			}
		}

		buffer.WriteString(unit)
		bufferLen += unitLen
	}

	if last := strings.TrimSpace(buffer.String()); last != "" {
		contents = append(contents, last)
	}

	chunks := make([]commonModels.Chunk, len(contents))
	for i, content := range contents {
		chunks[i] = commonModels.Chunk{
			Content:      content,
			Index:        i,
			TotalInGroup: len(contents),
		}
	}
	return chunks
}

func splitUnits(normalized string) []string {
	units := unitPattern.FindAllString(normalized, -1)
	if len(units) == 0 {
		return []string{normalized}
	}
	return units
}

// overlapTail walks backward over the words of chunk until their joined length reaches overlap.
// The result is always a suffix of chunk.
func overlapTail(chunk string, overlap int) string {
	if overlap <= 0 {
		return ""
	}
	words := strings.Fields(chunk)
	length := 0
	start := len(words)
	for start > 0 && length < overlap {
		start--
		if length > 0 {
			length++
		}
		length += utf8.RuneCountInString(words[start])
	}
	return strings.Join(words[start:], " ")
}
