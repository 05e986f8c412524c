package services

import (
	"context"
	"fmt"
	stdsync "sync"

	"github.com/custodia-labs/cmtap/internal/core/domain"
)

// --- Fakes shared by the service tests ---

// fakeFetcher serves canned pages per (stream, parent).
type fakeFetcher struct {
	mu       stdsync.Mutex
	pages    map[string][]*domain.Page
	errs     map[string]error
	requests []domain.PageRequest
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages: make(map[string][]*domain.Page),
		errs:  make(map[string]error),
	}
}

func fetchKey(stream, parent string) string {
	return stream + "/" + parent
}

// serve registers pages of records; page numbers and totals are derived.
func (f *fakeFetcher) serve(stream, parent string, pages ...[]domain.Record) {
	total := 0
	for _, p := range pages {
		total += len(p)
	}
	out := make([]*domain.Page, len(pages))
	for i, p := range pages {
		out[i] = &domain.Page{
			Results:      p,
			TotalRecords: total,
			TotalPages:   len(pages),
			PageNumber:   i + 1,
		}
	}
	f.pages[fetchKey(stream, parent)] = out
}

func (f *fakeFetcher) failOn(stream, parent string, err error) {
	f.errs[fetchKey(stream, parent)] = err
}

func (f *fakeFetcher) FetchPage(_ context.Context, req domain.PageRequest) (*domain.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	key := fetchKey(req.Stream.ID, req.ParentID)
	if err := f.errs[key]; err != nil {
		return nil, err
	}

	pages := f.pages[key]
	if req.Page < 1 || req.Page > len(pages) {
		return &domain.Page{PageNumber: req.Page, TotalPages: len(pages)}, nil
	}
	p := *pages[req.Page-1]
	return &p, nil
}

func (f *fakeFetcher) requestsFor(stream string) []domain.PageRequest {
	var out []domain.PageRequest
	for _, r := range f.requests {
		if r.Stream.ID == stream {
			out = append(out, r)
		}
	}
	return out
}

// fakeSink records every message in program order.
type fakeSink struct {
	events  []string
	records map[string][]domain.Record
	states  []domain.Bookmarks
}

func newFakeSink() *fakeSink {
	return &fakeSink{records: make(map[string][]domain.Record)}
}

func (s *fakeSink) WriteSchema(_ context.Context, stream domain.StreamDefinition) error {
	s.events = append(s.events, "SCHEMA "+stream.ID)
	return nil
}

func (s *fakeSink) WriteRecords(_ context.Context, streamID string, records []domain.Record) error {
	for range records {
		s.events = append(s.events, "RECORD "+streamID)
	}
	s.records[streamID] = append(s.records[streamID], records...)
	return nil
}

func (s *fakeSink) WriteState(_ context.Context, bookmarks domain.Bookmarks) error {
	s.events = append(s.events, "STATE")
	s.states = append(s.states, bookmarks.Clone())
	return nil
}

// fakeStore keeps a snapshot of every save.
type fakeStore struct {
	current domain.Bookmarks
	saves   []domain.Bookmarks
	saveErr error
}

func newFakeStore(initial domain.Bookmarks) *fakeStore {
	if initial == nil {
		initial = domain.NewBookmarks()
	}
	return &fakeStore{current: initial.Clone()}
}

func (s *fakeStore) Load(context.Context) (domain.Bookmarks, error) {
	return s.current.Clone(), nil
}

func (s *fakeStore) Save(_ context.Context, b domain.Bookmarks) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.current = b.Clone()
	s.saves = append(s.saves, b.Clone())
	return nil
}

func (s *fakeStore) Close() error { return nil }

// fakeLock is a single in-process lock.
type fakeLock struct {
	held      map[string]bool
	acquired  int
	released  int
	extended  int
	extendErr error
}

func (l *fakeLock) Acquire(_ context.Context, name string) error {
	if l.held == nil {
		l.held = make(map[string]bool)
	}
	if l.held[name] {
		return domain.ErrLockHeld
	}
	l.held[name] = true
	l.acquired++
	return nil
}

func (l *fakeLock) Release(_ context.Context, name string) error {
	delete(l.held, name)
	l.released++
	return nil
}

func (l *fakeLock) Extend(_ context.Context, name string) error {
	if l.extendErr != nil {
		return l.extendErr
	}
	if !l.held[name] {
		return domain.ErrLockHeld
	}
	l.extended++
	return nil
}

// activity builds an activity record with the given Date.
func activity(email, date string) domain.Record {
	return domain.Record(fmt.Sprintf(`{"EmailAddress":%q,"Date":%q}`, email, date))
}

// campaign builds a campaign record.
func campaign(id string) domain.Record {
	return domain.Record(fmt.Sprintf(`{"CampaignID":%q,"Name":"Campaign %s"}`, id, id))
}

// dates returns the Date field of each record.
func dates(records []domain.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		t, err := RecordTime(r, "Date")
		if err != nil {
			out[i] = "?"
			continue
		}
		out[i] = t.Format(domain.RecordTimeLayout)
	}
	return out
}
