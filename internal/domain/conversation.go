package domain

import "time"

// Turn is one exchange in a conversation: the user's message and the
// assistant's answer. A conversation is its ordered turns, appended only
// after an answer has been produced.
type Turn struct {
	UserText  string
	AIText    string
	CreatedAt time.Time
}

// IndexMeta describes the persisted vector index. EmbeddingModel is the
// compatibility key: queries must be embedded with the same model identity
// or the index is unusable.
type IndexMeta struct {
	EmbeddingModel string
	Dimensions     int
	ChunkCount     int
	BuiltAt        time.Time
}
