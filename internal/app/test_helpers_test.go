package app

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/example/bulkedit/internal/core/errs"
	"github.com/example/bulkedit/internal/core/filter"
	"github.com/example/bulkedit/internal/core/record"
	"github.com/example/bulkedit/internal/ports/primary"
	"github.com/example/bulkedit/internal/ports/secondary"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// Ensure mocks implement the interfaces
var (
	_ secondary.SessionRepository  = (*mockSessionRepository)(nil)
	_ secondary.RecordSelector     = (*mockRecordStore)(nil)
	_ secondary.RecordStore        = (*mockRecordStore)(nil)
	_ secondary.TaskExecutor       = (*mockExecutor)(nil)
	_ secondary.LogWriter          = (*mockLogWriter)(nil)
	_ secondary.AuditLogRepository = (*mockAuditLogRepository)(nil)
)

// mockSessionRepository implements secondary.SessionRepository for testing.
// Records are copied in and out so services cannot mutate stored state
// without calling Save.
type mockSessionRepository struct {
	mu              sync.Mutex
	sessions        map[string]*secondary.SessionRecord
	saves           int
	progressCalls   int
	createErr       error
	getErr          error
	saveErr         error
	markErr         error
	saveProgressErr error
	// onSaveProgress runs before each SaveProgress; a non-nil error is returned.
	onSaveProgress func(call int) error
}

func newMockSessionRepository() *mockSessionRepository {
	return &mockSessionRepository{sessions: make(map[string]*secondary.SessionRecord)}
}

func cloneSession(r *secondary.SessionRecord) *secondary.SessionRecord {
	c := *r
	c.Filters = slices.Clone(r.Filters)
	c.Columns = slices.Clone(r.Columns)
	c.Changes = slices.Clone(r.Changes)
	c.SideEffectIDs = slices.Clone(r.SideEffectIDs)
	c.Failures = slices.Clone(r.Failures)
	c.FailureCount = len(r.Failures)
	return &c
}

func isOpen(r *secondary.SessionRecord) bool {
	return r.Status == "active" && r.CommittedAt == nil && r.ArchivedAt == nil
}

func (m *mockSessionRepository) put(r *secondary.SessionRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[r.ID] = cloneSession(r)
}

func (m *mockSessionRepository) stored(id string) *secondary.SessionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.sessions[id]; ok {
		return cloneSession(r)
	}
	return nil
}

func (m *mockSessionRepository) Create(ctx context.Context, session *secondary.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, r := range m.sessions {
		if isOpen(r) && r.UserID == session.UserID && r.Domain == session.Domain && r.RecordType == session.RecordType {
			return fmt.Errorf("%w: session %s is open", errs.ErrSessionConflict, r.ID)
		}
	}
	m.sessions[session.ID] = cloneSession(session)
	return nil
}

func (m *mockSessionRepository) GetByID(ctx context.Context, id string) (*secondary.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	r, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrSessionNotFound, id)
	}
	return cloneSession(r), nil
}

func (m *mockSessionRepository) GetOpen(ctx context.Context, scope secondary.SessionScope) (*secondary.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.sessions {
		if isOpen(r) && r.UserID == scope.UserID && r.Domain == scope.Domain && r.RecordType == scope.RecordType {
			return cloneSession(r), nil
		}
	}
	return nil, nil
}

func (m *mockSessionRepository) Save(ctx context.Context, session *secondary.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	r, ok := m.sessions[session.ID]
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrSessionNotFound, session.ID)
	}
	if !isOpen(r) {
		return fmt.Errorf("%w: %s", errs.ErrSessionClosed, session.ID)
	}
	r.Filters = slices.Clone(session.Filters)
	r.Columns = slices.Clone(session.Columns)
	r.Changes = slices.Clone(session.Changes)
	r.NextSequence = session.NextSequence
	m.saves++
	return nil
}

func (m *mockSessionRepository) Restart(ctx context.Context, scope secondary.SessionScope, next *secondary.SessionRecord, archivedAt time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	archived := ""
	for _, r := range m.sessions {
		if isOpen(r) && r.UserID == scope.UserID && r.Domain == scope.Domain && r.RecordType == scope.RecordType {
			r.Status = "archived"
			r.ArchivedAt = &archivedAt
			archived = r.ID
		}
	}
	m.sessions[next.ID] = cloneSession(next)
	return archived, nil
}

func (m *mockSessionRepository) MarkCommitted(ctx context.Context, id, taskID string, committedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	r, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrSessionNotFound, id)
	}
	if !isOpen(r) {
		return fmt.Errorf("%w: %s", errs.ErrSessionClosed, id)
	}
	r.Status = "committing"
	r.CommittedAt = &committedAt
	r.TaskID = taskID
	r.RecordsProcessed = 0
	r.LastRecordID = ""
	r.NumChangedRecords = 0
	r.PercentComplete = 0
	return nil
}

func (m *mockSessionRepository) SetTotalRecords(ctx context.Context, id string, total int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.sessions[id]
	if !ok || r.Status != "committing" {
		return fmt.Errorf("%w: %s", errs.ErrSessionClosed, id)
	}
	r.TotalRecords = total
	return nil
}

func (m *mockSessionRepository) SaveProgress(ctx context.Context, id string, progress secondary.BatchProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progressCalls++
	if m.onSaveProgress != nil {
		if err := m.onSaveProgress(m.progressCalls); err != nil {
			return err
		}
	}
	if m.saveProgressErr != nil {
		return m.saveProgressErr
	}
	r, ok := m.sessions[id]
	if !ok || r.Status != "committing" || r.RecordsProcessed != progress.ExpectedProcessed {
		return fmt.Errorf("%w: %s", secondary.ErrProgressConflict, id)
	}
	r.RecordsProcessed += progress.Processed
	r.LastRecordID = progress.LastRecordID
	r.NumChangedRecords += progress.Changed
	r.PercentComplete = max(r.PercentComplete, progress.PercentComplete)
	for _, id := range progress.SideEffectIDs {
		if !slices.Contains(r.SideEffectIDs, id) {
			r.SideEffectIDs = append(r.SideEffectIDs, id)
		}
	}
	for _, f := range progress.Failures {
		r.Failures = slices.DeleteFunc(r.Failures, func(e secondary.FailureRecord) bool { return e.RecordID == f.RecordID })
		r.Failures = append(r.Failures, f)
	}
	return nil
}

func (m *mockSessionRepository) Finish(ctx context.Context, id string, result secondary.FinishRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.sessions[id]
	if !ok || r.Status != "committing" {
		return fmt.Errorf("%w: %s", errs.ErrSessionClosed, id)
	}
	r.Status = result.Status
	r.CompletedAt = result.CompletedAt
	r.PercentComplete = result.PercentComplete
	r.ErrorDetail = result.ErrorDetail
	return nil
}

func (m *mockSessionRepository) ListCommitted(ctx context.Context, userID, domain string, limit, offset int) ([]*secondary.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*secondary.SessionRecord
	for _, r := range m.sessions {
		if r.UserID == userID && r.Domain == domain && r.CommittedAt != nil {
			result = append(result, cloneSession(r))
		}
	}
	slices.SortFunc(result, func(a, b *secondary.SessionRecord) int { return b.CommittedAt.Compare(*a.CommittedAt) })
	if offset > len(result) {
		return nil, nil
	}
	result = result[offset:]
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockSessionRepository) ListByStatus(ctx context.Context, status string) ([]*secondary.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*secondary.SessionRecord
	for _, r := range m.sessions {
		if r.Status == status {
			result = append(result, cloneSession(r))
		}
	}
	slices.SortFunc(result, func(a, b *secondary.SessionRecord) int { return cmp.Compare(a.ID, b.ID) })
	return result, nil
}

// mockRecordStore implements secondary.RecordSelector and secondary.RecordStore.
type mockRecordStore struct {
	mu      sync.Mutex
	records map[string]record.Properties
	// failures maps a record id to how many writes fail before one
	// succeeds; a negative count fails every write.
	failures    map[string]int
	unavailable bool
	selectErr   error
	attempts    map[string]int
	writes      int
}

func newMockRecordStore() *mockRecordStore {
	return &mockRecordStore{
		records:  make(map[string]record.Properties),
		failures: make(map[string]int),
		attempts: make(map[string]int),
	}
}

func (m *mockRecordStore) add(id string, props record.Properties) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[id] = props.Clone()
}

func (m *mockRecordStore) get(id string) record.Properties {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[id].Clone()
}

func (m *mockRecordStore) Count(ctx context.Context, query secondary.RecordQuery) (int, error) {
	n := 0
	for _, err := range m.Select(ctx, query) {
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

func (m *mockRecordStore) Select(ctx context.Context, query secondary.RecordQuery) iter.Seq2[record.Ref, error] {
	return func(yield func(record.Ref, error) bool) {
		if m.selectErr != nil {
			yield(record.Ref{}, m.selectErr)
			return
		}
		m.mu.Lock()
		var refs []record.Ref
		for id, props := range m.records {
			if id <= query.AfterID {
				continue
			}
			if len(query.IDs) > 0 && !slices.Contains(query.IDs, id) {
				continue
			}
			if !filter.MatchesAll(query.Filters, props) {
				continue
			}
			refs = append(refs, record.Ref{ID: id, Properties: props.Clone()})
		}
		m.mu.Unlock()
		slices.SortFunc(refs, func(a, b record.Ref) int { return cmp.Compare(a.ID, b.ID) })
		for _, ref := range refs {
			if !yield(ref, nil) {
				return
			}
		}
	}
}

func (m *mockRecordStore) Write(ctx context.Context, w secondary.RecordWrite) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return "", fmt.Errorf("%w: connection refused", errs.ErrStoreUnavailable)
	}
	m.attempts[w.RecordID]++
	if n, ok := m.failures[w.RecordID]; ok && n != 0 {
		if n > 0 {
			m.failures[w.RecordID] = n - 1
		}
		return "", &errs.RecordWriteError{RecordID: w.RecordID, Attempts: 1, Err: fmt.Errorf("record %s is locked", w.RecordID)}
	}
	props := m.records[w.RecordID]
	for k, v := range w.Updates {
		props[k] = v
	}
	m.writes++
	return fmt.Sprintf("form-%s", w.RecordID), nil
}

func (m *mockRecordStore) Put(ctx context.Context, domain, recordType string, ref record.Ref) error {
	m.add(ref.ID, ref.Properties)
	return nil
}

// mockExecutor implements secondary.TaskExecutor, recording submissions.
type mockExecutor struct {
	handlers  map[string]secondary.TaskHandler
	submitted []secondary.Task
	submitErr error
}

func newMockExecutor() *mockExecutor {
	return &mockExecutor{handlers: make(map[string]secondary.TaskHandler)}
}

func (m *mockExecutor) Register(name string, handler secondary.TaskHandler) {
	m.handlers[name] = handler
}

func (m *mockExecutor) Submit(ctx context.Context, task secondary.Task) error {
	if m.submitErr != nil {
		return m.submitErr
	}
	m.submitted = append(m.submitted, task)
	return nil
}

// mockLogWriter implements secondary.LogWriter for testing.
type mockLogWriter struct {
	entries []string
	err     error
}

func (m *mockLogWriter) LogCreate(ctx context.Context, entityType, entityID string) error {
	m.entries = append(m.entries, fmt.Sprintf("create %s %s", entityType, entityID))
	return m.err
}

func (m *mockLogWriter) LogUpdate(ctx context.Context, entityType, entityID, fieldName, oldValue, newValue string) error {
	m.entries = append(m.entries, fmt.Sprintf("update %s %s %s %q->%q", entityType, entityID, fieldName, oldValue, newValue))
	return m.err
}

// mockAuditLogRepository implements secondary.AuditLogRepository for testing.
type mockAuditLogRepository struct {
	entries []*secondary.AuditLogRecord
}

func (m *mockAuditLogRepository) Create(ctx context.Context, entry *secondary.AuditLogRecord) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditLogRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]*secondary.AuditLogRecord, error) {
	var result []*secondary.AuditLogRecord
	for _, e := range m.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			result = append(result, e)
		}
	}
	return result, nil
}

// ============================================================================
// Fixtures
// ============================================================================

var (
	testScope = primary.Scope{UserID: "user-1", Domain: "demo", RecordType: "plant"}
	testOwner = testScope.Owner()
	testNow   = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
)

// sequentialIDs returns an id generator yielding prefix-1, prefix-2, ...
func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func fixedNow() time.Time { return testNow }

func newTestSessionService(repo *mockSessionRepository, lw *mockLogWriter) *SessionServiceImpl {
	s := NewSessionService(repo, lw)
	s.now = fixedNow
	s.newID = sequentialIDs("id")
	return s
}

func newTestChangeLogService(repo *mockSessionRepository, store *mockRecordStore) *ChangeLogServiceImpl {
	s := NewChangeLogService(repo, store, &mockLogWriter{})
	s.now = fixedNow
	s.newID = sequentialIDs("chg")
	return s
}

func newTestCommitService(repo *mockSessionRepository, store *mockRecordStore, executor *mockExecutor, opts CommitOptions) *CommitServiceImpl {
	s := NewCommitService(repo, store, store, executor, &mockLogWriter{}, opts)
	s.now = fixedNow
	s.newID = sequentialIDs("task")
	return s
}

// seedPlants adds n plant records named plant-00001... with height_cm set.
func seedPlants(store *mockRecordStore, n int) {
	for i := 1; i <= n; i++ {
		store.add(fmt.Sprintf("plant-%05d", i), record.Properties{
			"name":      record.String(fmt.Sprintf("plant %d", i)),
			"height_cm": record.String(fmt.Sprintf("%d", i)),
			"status":    record.String("open"),
		})
	}
}
