package analysis

import (
	"context"
	"time"

	"github.com/menta2k/layout-analyzer/pkg/types"
)

// AnalyzeWithRetry calls Analyze up to attempts times, retrying only model
// timeouts and transport failures. The backoff doubles after each attempt.
func (a *Analyzer) AnalyzeWithRetry(ctx context.Context, imagePath string, attempts int, backoff time.Duration) (*types.AnalysisResult, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		res, err := a.Analyze(ctx, imagePath)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !types.IsRetryable(err) || i == attempts-1 {
			break
		}

		a.log.Warning("Attempt %d/%d for %s failed, retrying in %s: %v", i+1, attempts, imagePath, backoff, err)
		select {
		case <-ctx.Done():
			return nil, lastErr
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, lastErr
}
