package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sirliboyev-uz/ai-blog-agent/internal/models"
)

// scriptedClient returns one response per attempt, in order. The last
// entry repeats if the executor asks for more attempts than scripted.
type scriptedClient struct {
	responses []scriptedResponse
	attempts  int
}

type scriptedResponse struct {
	result *CreateResult
	err    error
}

func (c *scriptedClient) SiteName() string { return "test-site" }

func (c *scriptedClient) CreatePost(ctx context.Context, payload *PostPayload) (*CreateResult, error) {
	idx := c.attempts
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	c.attempts++
	r := c.responses[idx]
	return r.result, r.err
}

type memoryQueue struct {
	mu    sync.Mutex
	items []*models.RecoveryItem
}

func (q *memoryQueue) Enqueue(ctx context.Context, item *models.RecoveryItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
	return nil
}

type memoryNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *memoryNotifier) Notify(ctx context.Context, event Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func newTestExecutor(maxAttempts int, queue *memoryQueue, notifier *memoryNotifier) (*Executor, *[]time.Duration) {
	executor := NewExecutor(zap.NewNop(), maxAttempts, 2*time.Second, time.Minute, queue, notifier)
	waits := &[]time.Duration{}
	executor.sleep = func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
	return executor, waits
}

func testPayload() *PostPayload {
	return &PostPayload{
		TopicID:      1,
		TopicSubject: "best coffee shops for remote work",
		SiteID:       1,
		Title:        "Best Coffee Shops for Remote Work",
		DedupKey:     "11111111-2222-3333-4444-555555555555",
	}
}

func TestPublishSucceedsFirstAttempt(t *testing.T) {
	queue := &memoryQueue{}
	notifier := &memoryNotifier{}
	executor, waits := newTestExecutor(3, queue, notifier)

	client := &scriptedClient{responses: []scriptedResponse{
		{result: &CreateResult{ResourceID: "42", URL: "https://example.com/post/42"}},
	}}

	job := &models.PublishJob{Status: models.JobStatusPending}
	executor.Publish(context.Background(), client, testPayload(), job)

	assert.Equal(t, models.JobStatusSucceeded, job.Status)
	assert.Equal(t, 1, job.AttemptCount)
	assert.Equal(t, "42", job.ResourceID)
	assert.Equal(t, "https://example.com/post/42", job.ResultURL)
	require.NotNil(t, job.PublishedAt)
	assert.Empty(t, job.LastError)
	assert.Empty(t, *waits)
	assert.Empty(t, queue.items)
	assert.Empty(t, notifier.events)
}

func TestPublishRetriesThenSucceeds(t *testing.T) {
	queue := &memoryQueue{}
	notifier := &memoryNotifier{}
	executor, waits := newTestExecutor(3, queue, notifier)

	client := &scriptedClient{responses: []scriptedResponse{
		{err: Recoverable(nil, "target API returned status 503")},
		{result: &CreateResult{ResourceID: "7", URL: "https://example.com/post/7"}},
	}}

	job := &models.PublishJob{Status: models.JobStatusPending}
	executor.Publish(context.Background(), client, testPayload(), job)

	assert.Equal(t, models.JobStatusSucceeded, job.Status)
	assert.Equal(t, 2, job.AttemptCount)
	assert.Equal(t, 2, client.attempts)
	require.Len(t, *waits, 1)
	assert.Equal(t, 2*time.Second, (*waits)[0])
	assert.Empty(t, queue.items)
}

func TestPublishExhaustsRetriesAndQueues(t *testing.T) {
	queue := &memoryQueue{}
	notifier := &memoryNotifier{}
	executor, waits := newTestExecutor(3, queue, notifier)

	client := &scriptedClient{responses: []scriptedResponse{
		{err: Recoverable(nil, "target API returned status 500")},
	}}

	job := &models.PublishJob{ID: 9, TopicID: 1, SiteID: 1, Status: models.JobStatusPending}
	executor.Publish(context.Background(), client, testPayload(), job)

	assert.Equal(t, models.JobStatusQueued, job.Status)
	assert.Equal(t, 3, job.AttemptCount)
	assert.Equal(t, 3, client.attempts)
	assert.Equal(t, string(KindRecoverable), job.ErrorKind)

	// Two waits between three attempts, doubling and capped by the max.
	require.Len(t, *waits, 2)
	assert.Equal(t, 2*time.Second, (*waits)[0])
	assert.Equal(t, 4*time.Second, (*waits)[1])
	assert.Less(t, (*waits)[0], (*waits)[1])

	require.Len(t, queue.items, 1)
	assert.Equal(t, uint(9), queue.items[0].JobID)
	assert.Equal(t, 3, queue.items[0].AttemptCount)
	assert.Equal(t, models.RecoveryStatusHeld, queue.items[0].Status)
	assert.Contains(t, queue.items[0].Payload, "11111111-2222-3333-4444-555555555555")

	require.Len(t, notifier.events, 1)
	assert.Equal(t, "publish_queued", notifier.events[0].Type)
	assert.Equal(t, "test-site", notifier.events[0].Site)
}

func TestPublishFatalErrorFailsWithoutRetry(t *testing.T) {
	queue := &memoryQueue{}
	notifier := &memoryNotifier{}
	executor, waits := newTestExecutor(3, queue, notifier)

	client := &scriptedClient{responses: []scriptedResponse{
		{err: NonRecoverable(nil, "target API rejected credentials with status 401")},
	}}

	job := &models.PublishJob{ID: 3, Status: models.JobStatusPending}
	executor.Publish(context.Background(), client, testPayload(), job)

	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Equal(t, 1, job.AttemptCount)
	assert.Equal(t, 1, client.attempts)
	assert.Equal(t, string(KindFatal), job.ErrorKind)
	assert.Empty(t, *waits)

	require.Len(t, queue.items, 1)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, "publish_failed", notifier.events[0].Type)
}

func TestPublishPlainErrorTreatedAsRecoverable(t *testing.T) {
	queue := &memoryQueue{}
	notifier := &memoryNotifier{}
	executor, _ := newTestExecutor(2, queue, notifier)

	client := &scriptedClient{responses: []scriptedResponse{
		{err: errors.New("connection reset by peer")},
	}}

	job := &models.PublishJob{Status: models.JobStatusPending}
	executor.Publish(context.Background(), client, testPayload(), job)

	assert.Equal(t, models.JobStatusQueued, job.Status)
	assert.Equal(t, 2, job.AttemptCount)
}

func TestPublishShutdownDuringBackoffQueuesJob(t *testing.T) {
	queue := &memoryQueue{}
	notifier := &memoryNotifier{}
	executor := NewExecutor(zap.NewNop(), 3, 2*time.Second, time.Minute, queue, notifier)
	executor.sleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}

	client := &scriptedClient{responses: []scriptedResponse{
		{err: Recoverable(nil, "target API returned status 503")},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := &models.PublishJob{ID: 5, Status: models.JobStatusPending}
	executor.Publish(ctx, client, testPayload(), job)

	// The first attempt completes, then shutdown flushes the job with no
	// further retries. The record never stays pending.
	assert.Equal(t, models.JobStatusQueued, job.Status)
	assert.Equal(t, 1, job.AttemptCount)
	assert.Equal(t, 1, client.attempts)
	require.Len(t, queue.items, 1)
	assert.Equal(t, uint(5), queue.items[0].JobID)
}

func TestBackoffDelayDoublesAndCaps(t *testing.T) {
	executor := NewExecutor(zap.NewNop(), 5, time.Second, 4*time.Second, &memoryQueue{}, &memoryNotifier{})

	assert.Equal(t, time.Second, executor.backoffDelay(1))
	assert.Equal(t, 2*time.Second, executor.backoffDelay(2))
	assert.Equal(t, 4*time.Second, executor.backoffDelay(3))
	assert.Equal(t, 4*time.Second, executor.backoffDelay(4))
	assert.Equal(t, 4*time.Second, executor.backoffDelay(5))
}

func TestClassifyStatus(t *testing.T) {
	assert.Equal(t, KindRecoverable, ClassifyStatus(429))
	assert.Equal(t, KindRecoverable, ClassifyStatus(500))
	assert.Equal(t, KindRecoverable, ClassifyStatus(503))
	assert.Equal(t, KindFatal, ClassifyStatus(400))
	assert.Equal(t, KindFatal, ClassifyStatus(401))
	assert.Equal(t, KindFatal, ClassifyStatus(403))
	assert.Equal(t, KindFatal, ClassifyStatus(422))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindFatal, KindOf(NonRecoverable(nil, "rejected")))
	assert.Equal(t, KindRecoverable, KindOf(Recoverable(nil, "rate limited")))
	assert.Equal(t, KindRecoverable, KindOf(errors.New("timeout")))
}
