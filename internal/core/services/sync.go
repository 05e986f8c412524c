package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/cmtap/internal/core/domain"
	"github.com/custodia-labs/cmtap/internal/core/ports/driven"
	"github.com/custodia-labs/cmtap/internal/core/ports/driving"
	"github.com/custodia-labs/cmtap/internal/logger"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

// DefaultLockName is the run lock name used when none is configured.
const DefaultLockName = "cmtap"

// SyncOptions configures optional orchestrator behaviour.
type SyncOptions struct {
	// StartDate seeds the watermark of (stream, parent) pairs without state.
	StartDate domain.Watermark

	// Order is the server sort order of incremental pages.
	Order domain.OrderDirection

	// Lock, when set, is held for the whole run.
	Lock driven.RunLock

	// LockName names the run lock. Defaults to DefaultLockName.
	LockName string
}

// SyncOrchestrator runs full streams first, then incremental streams per
// parent, checkpointing the bookmark store after every parent.
type SyncOrchestrator struct {
	catalog driven.StreamCatalog
	driver  *PaginationDriver
	sink    driven.RecordSink
	store   driven.BookmarkStore
	opts    SyncOptions

	// Status tracking
	mu     sync.RWMutex
	status driving.SyncStatus
}

// NewSyncOrchestrator creates a new sync orchestrator.
func NewSyncOrchestrator(
	catalog driven.StreamCatalog,
	fetcher driven.PageFetcher,
	sink driven.RecordSink,
	store driven.BookmarkStore,
	opts SyncOptions,
) *SyncOrchestrator {
	if opts.LockName == "" {
		opts.LockName = DefaultLockName
	}
	return &SyncOrchestrator{
		catalog: catalog,
		driver:  NewPaginationDriver(fetcher, sink, opts.Order),
		sink:    sink,
		store:   store,
		opts:    opts,
	}
}

// SyncAll extracts every stream in the catalog.
func (o *SyncOrchestrator) SyncAll(ctx context.Context) error {
	streams := o.catalog.Streams()
	ids := make([]string, len(streams))
	for i, s := range streams {
		ids[i] = s.ID
	}
	return o.Sync(ctx, ids)
}

// Sync extracts the selected streams. Any fatal error aborts the run;
// checkpoints already flushed remain valid.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (o *SyncOrchestrator) Sync(ctx context.Context, streamIDs []string) error {
	// 1. Resolve selection
	selected, err := o.catalog.Resolve(streamIDs)
	if err != nil {
		return fmt.Errorf("resolve streams: %w", err)
	}
	if len(selected) == 0 {
		return fmt.Errorf("%w: no streams selected", domain.ErrInvalidInput)
	}

	if !o.begin() {
		return domain.ErrSyncInProgress
	}
	defer o.end()

	// 2. Exclusive use of the bookmark store
	if o.opts.Lock != nil {
		if err := o.opts.Lock.Acquire(ctx, o.opts.LockName); err != nil {
			return fmt.Errorf("acquire run lock: %w", err)
		}
		defer func() {
			if err := o.opts.Lock.Release(context.WithoutCancel(ctx), o.opts.LockName); err != nil {
				logger.Warn("release run lock: %v", err)
			}
		}()
	}

	bookmarks, err := o.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load bookmarks: %w", err)
	}

	// 3. Declare every selected stream
	for _, s := range selected {
		if err := o.sink.WriteSchema(ctx, s); err != nil {
			return fmt.Errorf("write %s schema: %w", s.ID, err)
		}
	}

	// 4. Partition
	var producerSelected, needParents bool
	var clientFull, parentFull, incremental []domain.StreamDefinition
	for _, s := range selected {
		if s.Scope == domain.ScopeParent {
			needParents = true
		}
		switch {
		case s.ParentProducer:
			producerSelected = true
		case s.IsIncremental():
			incremental = append(incremental, s)
		case s.Scope == domain.ScopeParent:
			parentFull = append(parentFull, s)
		default:
			clientFull = append(clientFull, s)
		}
	}

	logger.Info("Starting sync of %d streams", len(selected))

	// 5. Parent producer first; its id list is frozen for the run
	var parents []string
	if producerSelected || needParents {
		producer, ok := o.catalog.ParentProducer()
		if !ok {
			return fmt.Errorf("%w: no parent producer in catalog", domain.ErrInvalidStreamDefinition)
		}
		res, err := o.runPass(ctx, Pass{Stream: producer, Discard: !producerSelected})
		if err != nil {
			return err
		}
		parents = res.ParentIDs
		if producerSelected {
			o.finishStream(producer.ID, res.Records)
		}
		logger.Info("%d parents to process", len(parents))
	}

	// 6. Remaining full streams
	for _, s := range clientFull {
		res, err := o.runPass(ctx, Pass{Stream: s})
		if err != nil {
			return err
		}
		o.finishStream(s.ID, res.Records)
	}
	for _, s := range parentFull {
		count := 0
		for _, parent := range parents {
			res, err := o.runPass(ctx, Pass{Stream: s, ParentID: parent})
			if err != nil {
				return err
			}
			count += res.Records
		}
		o.finishStream(s.ID, count)
	}

	// 7. Incremental streams, checkpointing per parent
	for _, s := range incremental {
		count := 0
		for _, parent := range parentsFor(s, parents) {
			n, err := o.syncIncremental(ctx, s, parent, bookmarks)
			if err != nil {
				return err
			}
			count += n
		}
		o.finishStream(s.ID, count)
	}
	return nil
}

// syncIncremental runs one parent's pass and checkpoints the result.
func (o *SyncOrchestrator) syncIncremental(
	ctx context.Context,
	s domain.StreamDefinition,
	parent string,
	bookmarks domain.Bookmarks,
) (int, error) {
	watermark := bookmarks.Get(s.ID, parent)
	if watermark.IsZero() {
		watermark = o.opts.StartDate
	}
	logger.Info("querying %s for campaign %s since %s", s.ID, parent, watermark)

	res, err := o.runPass(ctx, Pass{Stream: s, ParentID: parent, Watermark: watermark})
	if err != nil {
		return 0, err
	}

	next, err := watermark.Advance(res.Latest)
	if err != nil {
		return 0, fmt.Errorf("advance %s/%s watermark: %w", s.ID, parent, err)
	}
	if next.IsZero() {
		return res.Records, nil
	}

	if o.opts.Lock != nil {
		if err := o.opts.Lock.Extend(ctx, o.opts.LockName); err != nil {
			return 0, fmt.Errorf("extend run lock: %w", err)
		}
	}

	bookmarks.Set(s.ID, parent, next)
	if err := o.store.Save(ctx, bookmarks); err != nil {
		return 0, fmt.Errorf("save bookmarks: %w", err)
	}
	if err := o.sink.WriteState(ctx, bookmarks); err != nil {
		return 0, fmt.Errorf("write state: %w", err)
	}

	o.mu.Lock()
	o.status.Checkpoints++
	o.mu.Unlock()
	return res.Records, nil
}

func (o *SyncOrchestrator) runPass(ctx context.Context, pass Pass) (*PassResult, error) {
	o.mu.Lock()
	o.status.Stream = pass.Stream.ID
	o.status.ParentID = pass.ParentID
	o.mu.Unlock()

	res, err := o.driver.Run(ctx, pass)
	if err != nil {
		if pass.ParentID != "" {
			return nil, fmt.Errorf("sync %s for parent %s: %w", pass.Stream.ID, pass.ParentID, err)
		}
		return nil, fmt.Errorf("sync %s: %w", pass.Stream.ID, err)
	}

	if !pass.Discard {
		o.mu.Lock()
		o.status.RecordsEmitted += res.Records
		o.mu.Unlock()
	}
	return res, nil
}

func (o *SyncOrchestrator) finishStream(streamID string, records int) {
	logger.Metric("record_count", records, "endpoint", streamID)
}

// Status returns the progress of the current or last run.
func (o *SyncOrchestrator) Status(_ context.Context) (*driving.SyncStatus, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	// Return a copy to avoid race conditions
	status := o.status
	return &status, nil
}

func (o *SyncOrchestrator) begin() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status.Running {
		return false
	}
	o.status = driving.SyncStatus{Running: true}
	return true
}

func (o *SyncOrchestrator) end() {
	o.mu.Lock()
	o.status.Running = false
	o.mu.Unlock()
}

// parentsFor returns the parent ids a stream is fetched for. Client-scoped
// streams have a single pass with no parent.
func parentsFor(s domain.StreamDefinition, parents []string) []string {
	if s.Scope == domain.ScopeClient {
		return []string{""}
	}
	return parents
}
