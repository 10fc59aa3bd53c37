package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sirliboyev-uz/ai-blog-agent/internal/config"
	"github.com/sirliboyev-uz/ai-blog-agent/internal/models"
	"github.com/sirliboyev-uz/ai-blog-agent/internal/service/images"
	"github.com/sirliboyev-uz/ai-blog-agent/internal/service/openai"
	"github.com/sirliboyev-uz/ai-blog-agent/internal/service/publisher"
	"github.com/sirliboyev-uz/ai-blog-agent/pkg/util"
)

// ContentGenerator produces post content for a topic. Implemented by the
// OpenAI client.
type ContentGenerator interface {
	GeneratePost(ctx context.Context, req openai.PostRequest) (*openai.GeneratedPost, error)
	AltText(ctx context.Context, topic string) (string, error)
}

// ImageResolver supplies exactly one featured image per topic.
type ImageResolver interface {
	Resolve(ctx context.Context, topic string) (*images.Candidate, error)
}

// TopicSource yields work items and records their outcomes. Implemented by
// the sheets service.
type TopicSource interface {
	SyncTopics(ctx context.Context) error
	PendingTopics(limit int) ([]models.Topic, error)
	MarkTopicStatus(ctx context.Context, topic *models.Topic) error
}

// Recorder persists errors and metric samples. Implemented by the
// monitoring service.
type Recorder interface {
	RecordError(level, source, title, message string, options ...ErrorLogOption) error
	RecordMetric(name, metricType string, value float64, tags map[string]interface{}) error
}

// BatchStats summarizes one pipeline run.
type BatchStats struct {
	Processed  int           `json:"processed"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	Queued     int           `json:"queued"`
	Duration   time.Duration `json:"duration"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Pipeline runs publish batches: for each pending topic it generates post
// content, resolves a featured image, assembles the payload and hands it to
// the publish executor. Jobs run concurrently under a worker bound and are
// independent of each other; the only shared sink is the recovery queue.
type Pipeline struct {
	config     *config.Config
	store      PipelineStore
	logger     *zap.Logger
	topics     TopicSource
	generator  ContentGenerator
	resolver   ImageResolver
	registry   *publisher.Registry
	executor   *publisher.Executor
	notifier   publisher.Notifier
	monitoring Recorder

	runMu sync.Mutex

	statsMu sync.Mutex
	stats   BatchStats
}

func NewPipeline(
	cfg *config.Config,
	store PipelineStore,
	logger *zap.Logger,
	topics TopicSource,
	generator ContentGenerator,
	resolver ImageResolver,
	registry *publisher.Registry,
	executor *publisher.Executor,
	notifier publisher.Notifier,
	monitoring Recorder,
) *Pipeline {
	return &Pipeline{
		config:     cfg,
		store:      store,
		logger:     logger,
		topics:     topics,
		generator:  generator,
		resolver:   resolver,
		registry:   registry,
		executor:   executor,
		notifier:   notifier,
		monitoring: monitoring,
	}
}

// RunBatch processes up to limit pending topics. Only one batch runs at a
// time; overlapping triggers return an error instead of doubling up work.
func (p *Pipeline) RunBatch(ctx context.Context, limit int) (*BatchStats, error) {
	if !p.runMu.TryLock() {
		return nil, fmt.Errorf("a batch is already running")
	}
	defer p.runMu.Unlock()

	if limit <= 0 {
		limit = p.config.Pipeline.BatchLimit
	}

	start := time.Now()
	p.statsMu.Lock()
	p.stats = BatchStats{StartedAt: start}
	p.statsMu.Unlock()

	if err := p.topics.SyncTopics(ctx); err != nil {
		// Stale local topics are still processable; sync again next run.
		p.logger.Warn("Topic sheet sync failed, processing local topics", zap.Error(err))
	}

	topics, err := p.topics.PendingTopics(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending topics: %w", err)
	}

	p.logger.Info("Starting batch",
		zap.Int("topics", len(topics)),
		zap.Int("workers", p.config.Pipeline.Workers))

	sem := make(chan struct{}, p.config.Pipeline.Workers)
	var wg sync.WaitGroup

	for i := range topics {
		// Shutdown stops scheduling new jobs; started jobs run to a
		// terminal state.
		if ctx.Err() != nil {
			p.logger.Info("Shutdown requested, not starting remaining topics",
				zap.Int("remaining", len(topics)-i))
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		topic := topics[i]
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			p.processTopic(ctx, &topic)
		}()
	}

	wg.Wait()

	p.statsMu.Lock()
	p.stats.FinishedAt = time.Now()
	p.stats.Duration = p.stats.FinishedAt.Sub(start)
	stats := p.stats
	p.statsMu.Unlock()

	p.logger.Info("Batch completed",
		zap.Int("processed", stats.Processed),
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed),
		zap.Int("queued", stats.Queued),
		zap.Duration("duration", stats.Duration))

	p.notifier.Notify(context.WithoutCancel(ctx), publisher.Event{
		Type:         "batch_summary",
		AttemptCount: stats.Processed,
		Error:        fmt.Sprintf("succeeded=%d failed=%d queued=%d", stats.Succeeded, stats.Failed, stats.Queued),
		OccurredAt:   stats.FinishedAt,
	})

	return &stats, nil
}

// processTopic runs one topic end to end. The image is resolved strictly
// before the payload is assembled; the executor only ever sees a complete
// payload.
func (p *Pipeline) processTopic(ctx context.Context, topic *models.Topic) {
	p.countProcessed()

	client, err := p.registry.Get(topic.TargetSiteID)
	if err != nil {
		p.abortTopic(ctx, topic, "pipeline", "Unknown target site", err)
		return
	}

	site, err := p.ensureSite(topic.TargetSiteID)
	if err != nil {
		p.abortTopic(ctx, topic, "pipeline", "Failed to resolve site record", err)
		return
	}

	post, err := p.generator.GeneratePost(ctx, openai.PostRequest{
		Subject:       topic.Subject,
		Business:      topic.Business,
		Location:      topic.Location,
		InternalLinks: topic.InternalLinks,
	})
	if err != nil {
		p.abortTopic(ctx, topic, "generator", "Content generation failed", err)
		return
	}

	candidate, err := p.resolver.Resolve(ctx, topic.Subject)
	if err != nil {
		// No further fallback exists past the generation oracle.
		p.abortTopic(ctx, topic, "images", "Image resolution failed", err)
		return
	}

	if candidate.Source == images.SourceGenerated {
		// Generated images carry no provider description; ask the model
		// for better alt text, keeping the deterministic one on failure.
		if alt, altErr := p.generator.AltText(ctx, topic.Subject); altErr == nil && alt != "" {
			candidate.AltText = alt
		}
	}

	payload := assemblePayload(topic, site, post, candidate)

	job := &models.PublishJob{
		TopicID:  topic.ID,
		SiteID:   site.ID,
		Title:    payload.Title,
		DedupKey: payload.DedupKey,
		Status:   models.JobStatusPending,
	}
	if err := p.store.CreateJob(job); err != nil {
		p.logger.Error("Failed to create publish job record", zap.Error(err))
	}

	p.executor.Publish(ctx, client, payload, job)

	if err := p.store.SaveJob(job); err != nil {
		p.logger.Error("Failed to persist publish job record",
			zap.Uint("job_id", job.ID),
			zap.Error(err))
	}

	switch job.Status {
	case models.JobStatusSucceeded:
		p.countSucceeded()
		topic.Status = models.TopicStatusCompleted
		topic.ResultURL = job.ResultURL
		topic.LastError = ""
		p.monitoring.RecordMetric("publish_success", "counter", 1, map[string]interface{}{
			"site":     topic.TargetSiteID,
			"topic_id": topic.ID,
		})
	case models.JobStatusQueued:
		p.countQueued()
		topic.Status = models.TopicStatusError
		topic.LastError = fmt.Sprintf("deferred to recovery queue after %d attempts: %s", job.AttemptCount, job.LastError)
		p.monitoring.RecordMetric("publish_queued", "counter", 1, map[string]interface{}{
			"site":     topic.TargetSiteID,
			"topic_id": topic.ID,
		})
	default:
		p.countFailed()
		topic.Status = models.TopicStatusError
		topic.LastError = job.LastError
		p.monitoring.RecordMetric("publish_failure", "counter", 1, map[string]interface{}{
			"site":     topic.TargetSiteID,
			"topic_id": topic.ID,
		})
		p.monitoring.RecordError("ERROR", "publisher", "Publish rejected by target site", job.LastError,
			WithSite(topic.TargetSiteID),
			WithTopic(topic.ID),
			WithJob(job.ID))
	}

	if err := p.topics.MarkTopicStatus(context.WithoutCancel(ctx), topic); err != nil {
		p.logger.Warn("Failed to mark topic status",
			zap.Int("sheet_row", topic.SheetRow),
			zap.Error(err))
	}
}

// assemblePayload builds the immutable payload delivered on every attempt.
// The dedup key is fixed here, before the first submission.
func assemblePayload(topic *models.Topic, site *models.Site, post *openai.GeneratedPost, candidate *images.Candidate) *publisher.PostPayload {
	var body strings.Builder
	body.WriteString(renderFeaturedImage(candidate))
	body.WriteString(post.BodyHTML)

	return &publisher.PostPayload{
		TopicID:         topic.ID,
		TopicSubject:    topic.Subject,
		SiteID:          site.ID,
		TargetSiteID:    topic.TargetSiteID,
		Title:           post.Title,
		Slug:            util.GenerateSlug(post.Title),
		BodyHTML:        body.String(),
		MetaDescription: post.MetaDescription,
		Categories:      post.Categories,
		Tags:            post.Tags,
		FeaturedImage:   *candidate,
		DedupKey:        uuid.NewString(),
	}
}

func renderFeaturedImage(candidate *images.Candidate) string {
	var sb strings.Builder
	sb.WriteString(`<figure class="featured-image">`)
	fmt.Fprintf(&sb, `<img src="%s" alt="%s"/>`, candidate.URL, candidate.AltText)
	if candidate.Attribution != "" {
		fmt.Fprintf(&sb, `<figcaption>%s</figcaption>`, candidate.Attribution)
	}
	sb.WriteString("</figure>\n")
	return sb.String()
}

func (p *Pipeline) ensureSite(siteID string) (*models.Site, error) {
	displayName := siteID
	baseURL := ""
	for _, sc := range p.config.Sites {
		if sc.ID == siteID {
			if sc.DisplayName != "" {
				displayName = sc.DisplayName
			}
			baseURL = sc.BaseURL
		}
	}
	return p.store.EnsureSite(siteID, displayName, baseURL)
}

// abortTopic marks a topic failed before any delivery attempt was made:
// unknown site, generation failure, or image resolution failure.
func (p *Pipeline) abortTopic(ctx context.Context, topic *models.Topic, source, title string, err error) {
	p.countFailed()

	p.logger.Error(title,
		zap.String("subject", topic.Subject),
		zap.String("site", topic.TargetSiteID),
		zap.Error(err))

	topic.Status = models.TopicStatusError
	topic.LastError = err.Error()

	p.monitoring.RecordError("ERROR", source, title, err.Error(),
		WithSite(topic.TargetSiteID),
		WithTopic(topic.ID))

	p.notifier.Notify(context.WithoutCancel(ctx), publisher.Event{
		Type:       "job_aborted",
		Topic:      topic.Subject,
		Site:       topic.TargetSiteID,
		Error:      err.Error(),
		OccurredAt: time.Now(),
	})

	if markErr := p.topics.MarkTopicStatus(context.WithoutCancel(ctx), topic); markErr != nil {
		p.logger.Warn("Failed to mark topic status",
			zap.Int("sheet_row", topic.SheetRow),
			zap.Error(markErr))
	}
}

// LastStats returns the stats of the most recent batch.
func (p *Pipeline) LastStats() BatchStats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats
}

func (p *Pipeline) countProcessed() { p.statsMu.Lock(); p.stats.Processed++; p.statsMu.Unlock() }
func (p *Pipeline) countSucceeded() { p.statsMu.Lock(); p.stats.Succeeded++; p.statsMu.Unlock() }
func (p *Pipeline) countFailed()    { p.statsMu.Lock(); p.stats.Failed++; p.statsMu.Unlock() }
func (p *Pipeline) countQueued()    { p.statsMu.Lock(); p.stats.Queued++; p.statsMu.Unlock() }
