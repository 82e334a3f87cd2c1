package lifecycle

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"matchmap/internal/domain/event"
	"matchmap/internal/domain/request"
	"matchmap/internal/infrastructure/workflow"
	"matchmap/internal/usecase/billing"

	"github.com/google/uuid"
)

// memRepo mirrors the conditional update semantics of the SQL repository.
type memRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]request.Request
	results  map[uuid.UUID][]request.ResultCandidate
	events   []event.Entry
	createFn func(request.Request) error
}

func newMemRepo() *memRepo {
	return &memRepo{
		requests: map[uuid.UUID]request.Request{},
		results:  map[uuid.UUID][]request.ResultCandidate{},
	}
}

func (m *memRepo) Create(_ context.Context, r request.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createFn != nil {
		if err := m.createFn(r); err != nil {
			return err
		}
	}
	m.requests[r.ID] = r
	return nil
}

func (m *memRepo) GetForTenant(_ context.Context, tenantID, id uuid.UUID) (request.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.TenantID != tenantID {
		return request.Request{}, request.ErrNotFound
	}
	return r, nil
}

func (m *memRepo) GetByID(_ context.Context, id uuid.UUID) (request.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return request.Request{}, request.ErrNotFound
	}
	return r, nil
}

func (m *memRepo) ListForTenant(_ context.Context, tenantID uuid.UUID) ([]request.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []request.Summary
	for _, r := range m.requests {
		if r.TenantID == tenantID {
			out = append(out, request.Summary{Request: r, ApplicantCount: len(r.ApplicantFiles), ResultCount: len(m.results[r.ID])})
		}
	}
	slices.SortFunc(out, func(a, b request.Summary) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (m *memRepo) ListResults(_ context.Context, requestID uuid.UUID) ([]request.ResultCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.results[requestID]), nil
}

func (m *memRepo) TransitionStatus(_ context.Context, tenantID, id uuid.UUID, from []request.Status, to request.Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.TenantID != tenantID || !slices.Contains(from, r.Status) {
		return false, nil
	}
	r.Status = to
	r.UpdatedAt = time.Now().UTC()
	m.requests[id] = r
	return true, nil
}

func (m *memRepo) MarkRunning(_ context.Context, id uuid.UUID, executionID string) (request.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return "", request.ErrNotFound
	}
	r.ExternalExecutionID = &executionID
	if r.Status == request.StatusQueued {
		r.Status = request.StatusRunning
	}
	m.requests[id] = r
	return r.Status, nil
}

func (m *memRepo) ApplyOutcome(_ context.Context, o request.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[o.RequestID]
	if !ok {
		return request.ErrNotFound
	}
	r.Status = o.Status
	completed := o.CompletedAt
	r.CompletedAt = &completed
	m.requests[o.RequestID] = r
	if o.ReplaceResults {
		m.results[o.RequestID] = slices.Clone(o.Results)
	}
	m.events = append(m.events, o.Event)
	return nil
}

func (m *memRepo) ExpireStale(_ context.Context, before time.Time) ([]request.Expired, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []request.Expired
	for id, r := range m.requests {
		if slices.Contains(request.InFlightStatuses, r.Status) && r.UpdatedAt.Before(before) {
			out = append(out, request.Expired{ID: id, TenantID: r.TenantID, PrevStatus: r.Status})
			r.Status = request.StatusFailed
			m.requests[id] = r
			m.events = append(m.events, event.New(r.TenantID, id, event.TypeRequestExpired, nil))
		}
	}
	return out, nil
}

func (m *memRepo) CountBillableSince(_ context.Context, tenantID uuid.UUID, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.requests {
		if r.TenantID == tenantID && !r.CreatedAt.Before(since) && r.Status != request.StatusDraft {
			n++
		}
	}
	return n, nil
}

func (m *memRepo) GetFile(_ context.Context, kind request.FileKind, fileID uuid.UUID) (request.OwnedFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		files := slices.Clone(r.ApplicantFiles)
		if r.JobFile != nil {
			files = append(files, *r.JobFile)
		}
		for _, f := range files {
			if f.ID == fileID && f.Kind == kind {
				return request.OwnedFile{File: f, TenantID: r.TenantID}, nil
			}
		}
	}
	return request.OwnedFile{}, request.ErrFileNotFound
}

func (m *memRepo) Append(_ context.Context, e event.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memRepo) status(id uuid.UUID) request.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[id].Status
}

func (m *memRepo) get(id uuid.UUID) request.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[id]
}

func (m *memRepo) eventTypes(id uuid.UUID) []event.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []event.Type
	for _, e := range m.events {
		if e.RequestID != nil && *e.RequestID == id {
			out = append(out, e.Type)
		}
	}
	return out
}

func (m *memRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

type stubTrigger struct {
	calls    atomic.Int32
	err      error
	execID   string
	delay    time.Duration
	mu       sync.Mutex
	payloads []workflow.StartPayload
	onStart  func(workflow.StartPayload)
}

func (s *stubTrigger) Start(ctx context.Context, p workflow.StartPayload) (string, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.payloads = append(s.payloads, p)
	s.mu.Unlock()
	if s.onStart != nil {
		s.onStart(p)
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.err != nil {
		return "", s.err
	}
	return s.execID, nil
}

type stubGate struct {
	decision billing.Decision
	calls    atomic.Int32
}

func (g *stubGate) CanCreateRequest(context.Context, uuid.UUID) (billing.Decision, error) {
	g.calls.Add(1)
	return g.decision, nil
}

func (g *stubGate) Usage(context.Context, uuid.UUID) (billing.Usage, error) {
	return billing.Usage{}, nil
}

type update struct {
	TenantID  uuid.UUID
	RequestID uuid.UUID
	Status    request.Status
}

type recordingNotifier struct {
	mu      sync.Mutex
	updates []update
}

func (n *recordingNotifier) RequestUpdated(tenantID, requestID uuid.UUID, status request.Status) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, update{TenantID: tenantID, RequestID: requestID, Status: status})
}

func (n *recordingNotifier) statuses(id uuid.UUID) []request.Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []request.Status
	for _, u := range n.updates {
		if u.RequestID == id {
			out = append(out, u.Status)
		}
	}
	return out
}

func textUpload(name, body string) Upload {
	return Upload{
		Filename:    name,
		ContentType: "text/plain; charset=utf-8",
		Size:        int64(len(body)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

var errBoom = errors.New("boom")
