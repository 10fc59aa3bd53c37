package images

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sirliboyev-uz/ai-blog-agent/pkg/util"
)

// Resolver walks an ordered list of image providers and falls back to
// on-demand generation when none of them returns a usable result. Each
// stage is tried at most once per call; an empty or transiently failing
// stage is the fallback trigger, not an error to recover from.
type Resolver struct {
	providers []Provider
	generator Provider
	timeout   time.Duration
	logger    *zap.Logger
}

func NewResolver(logger *zap.Logger, timeout time.Duration, generator Provider, providers ...Provider) *Resolver {
	return &Resolver{
		providers: providers,
		generator: generator,
		timeout:   timeout,
		logger:    logger,
	}
}

// Resolve returns exactly one image candidate for the topic. A fatal
// provider error (misconfiguration) aborts the waterfall immediately; if
// the final generation stage itself fails there is no further fallback and
// the error is surfaced to the caller.
func (r *Resolver) Resolve(ctx context.Context, topic string) (*Candidate, error) {
	for _, provider := range r.providers {
		candidate, err := r.trySearch(ctx, provider, topic)
		if err != nil {
			if IsFatal(err) {
				r.logger.Error("Image provider misconfigured, aborting waterfall",
					zap.String("provider", provider.Name()),
					zap.Error(err))
				return nil, fmt.Errorf("image provider %s: %w", provider.Name(), err)
			}
			r.logger.Warn("Image provider failed, falling through",
				zap.String("provider", provider.Name()),
				zap.Error(err))
			continue
		}
		if candidate == nil {
			r.logger.Info("Image provider returned no results",
				zap.String("provider", provider.Name()),
				zap.String("topic", topic))
			continue
		}

		r.logger.Info("Image resolved",
			zap.String("provider", provider.Name()),
			zap.String("url", candidate.URL))
		return candidate, nil
	}

	// Final stage: generation. Failure here is fatal for the caller, there
	// is nothing left to fall back to.
	candidate, err := r.trySearch(ctx, r.generator, topic)
	if err != nil {
		return nil, fmt.Errorf("image generation failed with no remaining fallback: %w", err)
	}
	if candidate == nil {
		return nil, fmt.Errorf("image generation returned no image for topic %q", topic)
	}

	r.logger.Info("Image generated as fallback", zap.String("topic", topic))
	return candidate, nil
}

func (r *Resolver) trySearch(ctx context.Context, provider Provider, topic string) (*Candidate, error) {
	searchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	results, err := provider.Search(searchCtx, topic)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	// Deterministic pick: the provider's own top-ranked result.
	top := results[0]

	altText := top.Description
	if altText == "" {
		altText = util.DeriveAltText(topic)
	}

	return &Candidate{
		Source:      provider.Source(),
		URL:         top.URL,
		Attribution: top.Attribution,
		AltText:     altText,
	}, nil
}
