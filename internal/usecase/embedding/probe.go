package embedding

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

// DefaultProbeText is embedded once at startup to discover the dimension.
const DefaultProbeText = "dimension probe"

// Probe embeds a known text and returns the vector dimension.
func Probe(ctx context.Context, e domain.Embedder, text string) (int, error) {
	if text == "" {
		text = DefaultProbeText
	}
	res, err := e.Embed(ctx, text)
	if err != nil {
		return 0, fmt.Errorf("probe embedding: %w", err)
	}
	if len(res.Embedding) == 0 {
		return 0, fmt.Errorf("probe embedding returned an empty vector: %w", domain.ErrEmbeddingFailure)
	}
	return len(res.Embedding), nil
}

// VerifyDimension checks the probed dimension against the configured one.
// A zero configured dimension accepts anything.
func VerifyDimension(configured, probed int) error {
	if configured > 0 && configured != probed {
		return domain.NewDimMismatch("embedding model", configured, probed)
	}
	return nil
}
