package driven

import "context"

// EmbeddingService turns chunk and query text into vectors. The same model
// must embed both sides, since vectors from different models cannot be
// compared; the index records ModelName to catch a switch.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the vector length, or 0 until the first call when the
	// model does not advertise it.
	Dimensions() int

	ModelName() string

	// Ping makes the smallest request the provider accepts.
	Ping(ctx context.Context) error

	Close() error
}
