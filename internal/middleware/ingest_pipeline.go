package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CravePulse/internal/domain/models"
	domrepo "CravePulse/internal/domain/repository"
)

// Sink is the minimal downstream interface the pipeline needs.
type Sink interface {
	Store(ctx context.Context, r *models.Reading) error
}

// IngestPipeline sits between the transport layer and the reading store.
// It validates, throttles per subject, and buffers when downstream is unavailable.
type IngestPipeline struct {
	sink     Sink
	metrics  domrepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan *models.Reading
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[string]time.Time // per-subject last accepted time
}

type PipelineOption func(*IngestPipeline)

// WithMaxRPS sets the max readings per second per subject.
func WithMaxRPS(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewIngestPipeline creates a new pipeline.
func NewIngestPipeline(sink Sink, metrics domrepo.Metrics, opts ...PipelineOption) *IngestPipeline {
	p := &IngestPipeline{
		sink:     sink,
		metrics:  metrics,
		maxRPS:   50,   // wearables sample at ~1Hz; 50 leaves headroom for backfill
		bufSize:  1000, // default buffer
		bufCh:    make(chan *models.Reading, 1000),
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.Reading, p.bufSize)
	}
	return p
}

// Start launches background flushing of buffered readings.
func (p *IngestPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case r := <-p.bufCh:
				if r == nil {
					continue
				}
				if err := p.sink.Store(ctx, r); err != nil {
					// exponential backoff with cap
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- r:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *IngestPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, throttles, and forwards a reading downstream, buffering on errors.
func (p *IngestPipeline) Process(ctx context.Context, r *models.Reading) error {
	start := time.Now()
	if err := validateReading(r); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.allow(r.SubjectID, start) {
		// throttled; record and drop silently
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.sink.Store(ctx, r); err != nil {
		p.metrics.RecordError("pipeline_store")
		// buffer non-blocking
		select {
		case p.bufCh <- r:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_store", time.Since(start).Seconds())
	return nil
}

func validateReading(r *models.Reading) error {
	if r == nil {
		return fmt.Errorf("reading nil")
	}
	if r.SubjectID == "" {
		return fmt.Errorf("subject empty")
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("timestamp invalid")
	}
	if r.HeartRate != nil && (*r.HeartRate < 0 || *r.HeartRate > 300) {
		return fmt.Errorf("heart rate out of range: %v", *r.HeartRate)
	}
	return nil
}

func (p *IngestPipeline) allow(subjectID string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastSeen[subjectID]
	if last.IsZero() {
		p.lastSeen[subjectID] = now
		return true
	}
	if now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[subjectID] = now
	return true
}
