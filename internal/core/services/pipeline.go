package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/loreweave/loreweave/internal/core/domain"
	"github.com/loreweave/loreweave/internal/core/ports/driven"
	"github.com/loreweave/loreweave/internal/core/ports/driving"
	"github.com/loreweave/loreweave/internal/logger"
)

// Ensure PipelineWorker implements the interface.
var _ driving.PipelineWorker = (*PipelineWorker)(nil)

// DefaultMaxAttempts is the attempt limit before a task is marked failed.
const DefaultMaxAttempts = 5

// DefaultPollInterval is how often idle workers check for claimable tasks.
const DefaultPollInterval = 500 * time.Millisecond

// PipelineWorker claims pending ingestion tasks and runs them through
// the pipeline: normalise, persist, chunk, embed, extract. Tasks are
// claimed atomically so multiple workers never process the same task.
type PipelineWorker struct {
	taskStore        driven.TaskStore
	contentStore     driven.ContentStore
	graphStore       driven.GraphStore
	fileStore        driven.FileStore
	normalisers      driven.NormaliserRegistry
	chunker          driven.Chunker
	embeddingService driven.EmbeddingService
	extraction       *ExtractionService

	workerCount  int
	maxAttempts  int
	baseBackoff  time.Duration
	maxBackoff   time.Duration
	pollInterval time.Duration

	pool     *ants.Pool
	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// WorkerOption configures a PipelineWorker.
type WorkerOption func(*PipelineWorker)

// WithWorkerCount sets the number of concurrent pipeline workers.
func WithWorkerCount(n int) WorkerOption {
	return func(w *PipelineWorker) {
		if n > 0 {
			w.workerCount = n
		}
	}
}

// WithMaxAttempts sets the attempt limit before a task is marked failed.
func WithMaxAttempts(n int) WorkerOption {
	return func(w *PipelineWorker) {
		if n > 0 {
			w.maxAttempts = n
		}
	}
}

// WithBackoff sets the base and maximum retry delays.
func WithBackoff(base, max time.Duration) WorkerOption {
	return func(w *PipelineWorker) {
		if base > 0 {
			w.baseBackoff = base
		}
		if max >= base {
			w.maxBackoff = max
		}
	}
}

// WithPollInterval sets how often idle workers check the queue.
func WithPollInterval(d time.Duration) WorkerOption {
	return func(w *PipelineWorker) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// NewPipelineWorker creates a new pipeline worker.
// The embeddingService and extraction parameters are optional; without
// them the pipeline stores content and chunks only.
func NewPipelineWorker(
	taskStore driven.TaskStore,
	contentStore driven.ContentStore,
	graphStore driven.GraphStore,
	fileStore driven.FileStore,
	normalisers driven.NormaliserRegistry,
	chunker driven.Chunker,
	embeddingService driven.EmbeddingService,
	extraction *ExtractionService,
	opts ...WorkerOption,
) *PipelineWorker {
	w := &PipelineWorker{
		taskStore:        taskStore,
		contentStore:     contentStore,
		graphStore:       graphStore,
		fileStore:        fileStore,
		normalisers:      normalisers,
		chunker:          chunker,
		embeddingService: embeddingService,
		extraction:       extraction,
		workerCount:      4,
		maxAttempts:      DefaultMaxAttempts,
		baseBackoff:      50 * time.Millisecond,
		maxBackoff:       800 * time.Millisecond,
		pollInterval:     DefaultPollInterval,
		stopCh:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start recovers orphaned tasks, launches the worker pool and begins
// claiming. It returns once the poll loop is running.
func (w *PipelineWorker) Start(ctx context.Context) error {
	reset, err := w.taskStore.ResetOrphaned(ctx)
	if err != nil {
		return fmt.Errorf("reset orphaned tasks: %w", err)
	}
	if reset > 0 {
		logger.Info("Recovered %d orphaned tasks", reset)
	}

	pool, err := ants.NewPool(w.workerCount)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	w.pool = pool

	w.wg.Add(1)
	go w.pollLoop(ctx)

	logger.Info("Pipeline worker started: %d workers", w.workerCount)
	return nil
}

// Stop drains in-flight tasks and shuts the pool down.
func (w *PipelineWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
	w.wg.Wait()
	if w.pool != nil {
		w.pool.Release()
	}
}

// pollLoop claims tasks as long as any are due and hands them to the
// pool. Submit blocks when all workers are busy, which throttles
// claiming to the pool's capacity.
func (w *PipelineWorker) pollLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drainQueue(ctx)
		}
	}
}

// drainQueue claims every currently due task.
func (w *PipelineWorker) drainQueue(ctx context.Context) {
	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		task, err := w.taskStore.ClaimNext(ctx, time.Now().UTC())
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				logger.Warn("Claim failed: %v", err)
			}
			return
		}

		logger.Debug("Claimed task %s (attempt %d)", task.ID, task.Attempts)
		w.wg.Add(1)
		submitErr := w.pool.Submit(func() {
			defer w.wg.Done()
			w.runTask(ctx, task)
		})
		if submitErr != nil {
			w.wg.Done()
			logger.Warn("Submit to pool failed: %v", submitErr)
			return
		}
	}
}

// runTask executes one pipeline attempt and settles the task's fate.
func (w *PipelineWorker) runTask(ctx context.Context, task *domain.IngestionTask) {
	contentID, err := w.process(ctx, task)
	if err == nil {
		if markErr := w.taskStore.MarkCompleted(ctx, task.ID, contentID); markErr != nil {
			logger.Warn("Mark completed failed for task %s: %v", task.ID, markErr)
		}
		logger.Info("Task %s completed", task.ID)
		return
	}

	if domain.IsRetryable(err) && task.Attempts < w.maxAttempts {
		delay := w.backoff(task.Attempts)
		retryAt := time.Now().UTC().Add(delay)
		logger.Warn("Task %s attempt %d failed, retrying in %s: %v", task.ID, task.Attempts, delay, err)
		if reqErr := w.taskStore.Requeue(ctx, task.ID, err.Error(), contentID, retryAt); reqErr != nil {
			logger.Warn("Requeue failed for task %s: %v", task.ID, reqErr)
		}
		return
	}

	logger.Warn("Task %s failed permanently after %d attempts: %v", task.ID, task.Attempts, err)
	if markErr := w.taskStore.MarkFailed(ctx, task.ID, err.Error()); markErr != nil {
		logger.Warn("Mark failed failed for task %s: %v", task.ID, markErr)
	}
}

// backoff computes the retry delay for the given attempt count:
// exponential from the base, capped, with up to 50% jitter.
func (w *PipelineWorker) backoff(attempts int) time.Duration {
	delay := w.baseBackoff
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= w.maxBackoff {
			delay = w.maxBackoff
			break
		}
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
	return delay + jitter
}

// process runs the pipeline stages for one attempt. It returns the
// content ID produced so far; on error the caller persists it for
// cleanup before the next attempt.
func (w *PipelineWorker) process(ctx context.Context, task *domain.IngestionTask) (string, error) {
	// A retried task starts from scratch: partial output from the failed
	// attempt is removed first. Entity upserts are idempotent, so only
	// content, chunks and edges need cleanup.
	if task.ContentID != "" {
		if err := w.cleanup(ctx, task); err != nil {
			return "", fmt.Errorf("cleanup previous attempt: %w", err)
		}
	}

	input, err := w.resolveInput(ctx, task)
	if err != nil {
		return "", err
	}

	result, err := w.normalisers.Normalise(ctx, input)
	if err != nil {
		return "", fmt.Errorf("normalise: %w", err)
	}
	if result.Text == "" {
		return "", domain.Validation(domain.ErrNoReadableContent)
	}
	logger.Debug("Normalised task %s: %d bytes, title=%q", task.ID, len(result.Text), result.Title)

	now := time.Now().UTC()
	content := &domain.Content{
		ID:        uuid.New().String(),
		OwnerID:   task.OwnerID,
		Text:      result.Text,
		Title:     result.Title,
		Category:  task.Payload.Category,
		Context:   task.Payload.Instructions,
		URL:       result.URL,
		FileID:    task.Payload.FileID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := w.contentStore.SaveContent(ctx, content); err != nil {
		return "", fmt.Errorf("save content: %w", err)
	}

	if err := w.chunkAndEmbed(ctx, content); err != nil {
		return content.ID, err
	}

	if w.extraction != nil {
		if _, err := w.extraction.Extract(ctx, content); err != nil {
			if errors.Is(err, domain.ErrLLMUnavailable) {
				logger.Debug("Extraction skipped: no LLM configured")
				return content.ID, nil
			}
			return content.ID, fmt.Errorf("extract knowledge: %w", err)
		}
	}

	return content.ID, nil
}

// cleanup removes the partial output of a failed attempt.
func (w *PipelineWorker) cleanup(ctx context.Context, task *domain.IngestionTask) error {
	logger.Debug("Cleaning up partial content %s for task %s", task.ContentID, task.ID)

	if w.graphStore != nil {
		if err := w.graphStore.DeleteRelationshipsBySource(ctx, task.OwnerID, task.ContentID); err != nil {
			return fmt.Errorf("delete relationships: %w", err)
		}
	}
	if err := w.contentStore.DeleteContent(ctx, task.OwnerID, task.ContentID); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("delete content: %w", err)
		}
	}
	return nil
}

// resolveInput assembles the normaliser input, loading stored file
// bytes for file payloads.
func (w *PipelineWorker) resolveInput(ctx context.Context, task *domain.IngestionTask) (*driven.RawInput, error) {
	input := &driven.RawInput{
		Payload: task.Payload,
		OwnerID: task.OwnerID,
	}

	if task.Payload.Kind != domain.PayloadFile {
		return input, nil
	}

	if w.fileStore == nil {
		return nil, domain.Configuration(fmt.Errorf("file payloads: %w", domain.ErrUnsupportedType))
	}
	ref, err := w.contentStore.GetFileRef(ctx, task.OwnerID, task.Payload.FileID)
	if err != nil {
		return nil, fmt.Errorf("load file ref: %w", err)
	}
	data, err := w.fileStore.Read(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	input.Data = data
	input.MIMEType = ref.MIMEType
	input.FileName = ref.FileName
	return input, nil
}

// chunkAndEmbed splits the content and attaches vectors when an
// embedding service is configured.
func (w *PipelineWorker) chunkAndEmbed(ctx context.Context, content *domain.Content) error {
	chunks, err := w.chunker.Chunk(ctx, content)
	if err != nil {
		return fmt.Errorf("chunk: %w", err)
	}
	if len(chunks) == 0 {
		return nil
	}

	if w.embeddingService != nil {
		texts := make([]string, len(chunks))
		for i := range chunks {
			texts[i] = chunks[i].Text
		}
		vectors, err := w.embeddingService.EmbedBatch(ctx, texts)
		if err != nil {
			return domain.Transient(fmt.Errorf("embed chunks: %w", err))
		}
		for i := range chunks {
			chunks[i].Embedding = vectors[i]
		}
	}

	if err := w.contentStore.SaveChunks(ctx, chunks); err != nil {
		return fmt.Errorf("save chunks: %w", err)
	}
	logger.Debug("Stored %d chunks for content %s", len(chunks), content.ID)
	return nil
}
