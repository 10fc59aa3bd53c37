package publisher

import (
	"context"
	"time"

	"github.com/sirliboyev-uz/ai-blog-agent/internal/models"
	"github.com/sirliboyev-uz/ai-blog-agent/internal/service/images"
)

// PostPayload is a fully-assembled post ready for delivery. It is treated
// as immutable once built: retries resend the identical payload under the
// same dedup key.
type PostPayload struct {
	TopicID         uint             `json:"topic_id"`
	TopicSubject    string           `json:"topic_subject"`
	SiteID          uint             `json:"site_id"`
	TargetSiteID    string           `json:"target_site_id"`
	Title           string           `json:"title"`
	Slug            string           `json:"slug"`
	BodyHTML        string           `json:"body_html"`
	MetaDescription string           `json:"meta_description"`
	Categories      []string         `json:"categories"`
	Tags            []string         `json:"tags"`
	FeaturedImage   images.Candidate `json:"featured_image"`
	DedupKey        string           `json:"dedup_key"`
}

// CreateResult is the acknowledgment from a target site.
type CreateResult struct {
	ResourceID string `json:"resource_id"`
	URL        string `json:"url"`
}

// TargetClient delivers a payload to one content endpoint. Errors must be
// classified via *Error so the executor can tell retriable failures apart
// from rejected requests.
type TargetClient interface {
	SiteName() string
	CreatePost(ctx context.Context, payload *PostPayload) (*CreateResult, error)
}

// RecoveryQueue takes ownership of terminal failed/queued records. Enqueue
// must be safe for concurrent use; the queue is append-only with
// at-least-once semantics.
type RecoveryQueue interface {
	Enqueue(ctx context.Context, item *models.RecoveryItem) error
}

// Event is what the notification sink receives for every terminal
// queued/failed record: enough to act on without reading internal logs.
type Event struct {
	Type         string    `json:"type"`
	Topic        string    `json:"topic"`
	Site         string    `json:"site"`
	Title        string    `json:"title"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	Error        string    `json:"error,omitempty"`
	AttemptCount int       `json:"attempt_count"`
	ResultURL    string    `json:"result_url,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Notifier is fire-and-forget: its failures never affect executor state.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}
