package images

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ImageGenerator is the generation oracle backing the final waterfall stage.
// Implemented by the OpenAI service.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// GeneratedProvider is the always-available last stage of the waterfall: it
// asks the generation oracle for a fresh image instead of searching stock
// libraries.
type GeneratedProvider struct {
	generator ImageGenerator
	logger    *zap.Logger
}

func NewGeneratedProvider(logger *zap.Logger, generator ImageGenerator) *GeneratedProvider {
	return &GeneratedProvider{
		generator: generator,
		logger:    logger,
	}
}

func (p *GeneratedProvider) Name() string { return "generated" }

func (p *GeneratedProvider) Source() Source { return SourceGenerated }

func (p *GeneratedProvider) Search(ctx context.Context, query string) ([]Result, error) {
	prompt := buildImagePrompt(query)

	p.logger.Info("Generating featured image", zap.String("prompt", prompt))

	imageURL, err := p.generator.GenerateImage(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate image: %w", err)
	}

	return []Result{{URL: imageURL}}, nil
}

func buildImagePrompt(topic string) string {
	return fmt.Sprintf("A professional, photorealistic blog header image illustrating: %s. No text or watermarks.", topic)
}
