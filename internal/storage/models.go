package storage

// Hit is one search result chunk with its source metadata. Hits are
// returned in the order produced by the index (descending similarity);
// no re-sorting happens anywhere downstream.
type Hit struct {
	Score      float64 `json:"score"`
	DocID      string  `json:"doc_id"`
	Title      string  `json:"title"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
}

// searchEf is the HNSW ef search-quality parameter used for every query.
const searchEf = 64

// payloadFields are the metadata fields requested with each hit.
var payloadFields = []string{"doc_id", "title", "chunk_index", "text"}
