package project

import "strings"

// Default chunking parameters, in words.
const (
	DefaultChunkWords   = 500
	DefaultChunkOverlap = 50
)

// Chunk splits text into windows of size words, each sharing overlap words
// with the previous one. Text of at most size words is returned whole and
// unmodified; blank text yields no chunks. Invalid parameters fall back to
// the defaults.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkWords
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= size {
		return []string{text}
	}

	var chunks []string
	for start := 0; start < len(words); start += size - overlap {
		end := min(start+size, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}
