package models

import (
	"encoding/json"
	"fmt"
)

type Chunk struct {
	DocumentID string
	Index      int
	Offset     int
	Text       string
}

// Preview returns at most n runes from the start of the chunk text.
func (c Chunk) Preview(n int) string {
	runes := []rune(c.Text)
	if len(runes) <= n {
		return c.Text
	}
	return string(runes[:n])
}

// RecordID is the deterministic index key of chunk i of a document.
func RecordID(documentID string, i int) string {
	return fmt.Sprintf("%s_%d", documentID, i)
}

const (
	KeyDocumentID  = "documentId"
	KeyChunkIndex  = "chunkIndex"
	KeyTextPreview = "textPreview"
)

// RecordMetadata holds the required fields of an index record plus caller supplied extras.
type RecordMetadata struct {
	DocumentID  string
	ChunkIndex  int
	TextPreview string
	Extra       map[string]any
}

func (m RecordMetadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+3)
	for k, v := range m.Extra {
		out[k] = v
	}
	out[KeyDocumentID] = m.DocumentID
	out[KeyChunkIndex] = m.ChunkIndex
	out[KeyTextPreview] = m.TextPreview
	return json.Marshal(out)
}

func (m *RecordMetadata) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = RecordMetadata{}
	if v, ok := raw[KeyDocumentID].(string); ok {
		m.DocumentID = v
	}
	if v, ok := raw[KeyChunkIndex].(float64); ok {
		m.ChunkIndex = int(v)
	}
	if v, ok := raw[KeyTextPreview].(string); ok {
		m.TextPreview = v
	}
	delete(raw, KeyDocumentID)
	delete(raw, KeyChunkIndex)
	delete(raw, KeyTextPreview)
	if len(raw) > 0 {
		m.Extra = raw
	}
	return nil
}

type Record struct {
	ID       string
	Vector   []float32
	Metadata RecordMetadata
}

// Match is a single nearest-neighbour candidate returned by a vector index.
type Match struct {
	ID       string
	Score    float64
	Vector   []float32
	Metadata RecordMetadata
}
