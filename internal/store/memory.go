package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/foodtruck-agent/internal/similarity"
	"github.com/jonathan/foodtruck-agent/internal/types"
)

// Memory is an in-process Store. It is safe for concurrent use and is used by
// tests and dry local runs without a database.
type Memory struct {
	mu         sync.Mutex
	trucks     map[uuid.UUID]*types.Truck
	truckOrder []uuid.UUID
	jobs       map[uuid.UUID]*types.Job
	urls       map[uuid.UUID]*types.DiscoveredURL
	urlIndex   map[string]uuid.UUID
	now        func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		trucks:   make(map[uuid.UUID]*types.Truck),
		jobs:     make(map[uuid.UUID]*types.Job),
		urls:     make(map[uuid.UUID]*types.DiscoveredURL),
		urlIndex: make(map[string]uuid.UUID),
		now:      time.Now,
	}
}

var _ Store = (*Memory)(nil)

// CreateTruck stores a new truck, assigning an ID when missing.
func (m *Memory) CreateTruck(_ context.Context, truck *types.Truck) (*types.Truck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := clone(truck)
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if _, exists := m.trucks[t.ID]; exists {
		return nil, fmt.Errorf("truck %s already exists", t.ID)
	}
	now := m.now()
	t.CreatedAt = now
	t.UpdatedAt = now
	m.trucks[t.ID] = t
	m.truckOrder = append(m.truckOrder, t.ID)
	return clone(t), nil
}

// UpdateTruck replaces a stored truck.
func (m *Memory) UpdateTruck(_ context.Context, id uuid.UUID, truck *types.Truck) (*types.Truck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.trucks[id]
	if !ok {
		return nil, fmt.Errorf("truck %s: %w", id, ErrNotFound)
	}
	t := clone(truck)
	t.ID = id
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = m.now()
	m.trucks[id] = t
	return clone(t), nil
}

// GetTruck returns a truck by ID.
func (m *Memory) GetTruck(_ context.Context, id uuid.UUID) (*types.Truck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.trucks[id]
	if !ok {
		return nil, fmt.Errorf("truck %s: %w", id, ErrNotFound)
	}
	return clone(t), nil
}

// ListTrucks returns a page of trucks in insertion order and the total count.
func (m *Memory) ListTrucks(_ context.Context, limit, offset int) ([]types.Truck, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := len(m.truckOrder)
	if offset >= total {
		return []types.Truck{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	page := make([]types.Truck, 0, end-offset)
	for _, id := range m.truckOrder[offset:end] {
		page = append(page, *clone(m.trucks[id]))
	}
	return page, total, nil
}

// ListTrucksByRadius returns trucks with coordinates within radiusKm, nearest first.
func (m *Memory) ListTrucksByRadius(_ context.Context, lat, lng, radiusKm float64) ([]types.Truck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	type hit struct {
		truck    types.Truck
		distance float64
	}
	var hits []hit
	for _, id := range m.truckOrder {
		t := m.trucks[id]
		if !t.CurrentLocation.HasCoordinates() {
			continue
		}
		d := similarity.HaversineKm(lat, lng, *t.CurrentLocation.Lat, *t.CurrentLocation.Lng)
		if d <= radiusKm {
			hits = append(hits, hit{truck: *clone(t), distance: d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].distance < hits[j].distance })

	result := make([]types.Truck, 0, len(hits))
	for _, h := range hits {
		result = append(result, h.truck)
	}
	return result, nil
}

// ListTruckSourceURLs returns every source URL across all trucks.
func (m *Memory) ListTruckSourceURLs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var urls []string
	for _, id := range m.truckOrder {
		urls = append(urls, m.trucks[id].SourceURLs...)
	}
	return urls, nil
}

// CreateJob stores a new job.
func (m *Memory) CreateJob(_ context.Context, job *types.Job) (*types.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j := clone(job)
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	now := m.now()
	if j.Status == "" {
		j.Status = types.JobStatusPending
	}
	if j.ScheduledAt.IsZero() {
		j.ScheduledAt = now
	}
	if j.Errors == nil {
		j.Errors = []string{}
	}
	j.CreatedAt = now
	j.UpdatedAt = now
	m.jobs[j.ID] = j
	return clone(j), nil
}

// GetJob returns a job by ID.
func (m *Memory) GetJob(_ context.Context, id uuid.UUID) (*types.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return clone(j), nil
}

// ListJobsByStatus returns jobs in the given status, highest priority first.
func (m *Memory) ListJobsByStatus(_ context.Context, status types.JobStatus, limit int) ([]types.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var jobs []types.Job
	for _, j := range m.jobs {
		if j.Status == status {
			jobs = append(jobs, *clone(j))
		}
	}
	sort.SliceStable(jobs, func(a, b int) bool {
		if jobs[a].Priority != jobs[b].Priority {
			return jobs[a].Priority > jobs[b].Priority
		}
		return jobs[a].ScheduledAt.Before(jobs[b].ScheduledAt)
	})
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// ClaimJob transitions a pending job to running.
func (m *Memory) ClaimJob(_ context.Context, id uuid.UUID) (*types.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if j.Status != types.JobStatusPending {
		return nil, fmt.Errorf("job %s is %s: %w", id, j.Status, ErrJobNotClaimable)
	}
	now := m.now()
	j.Status = types.JobStatusRunning
	j.StartedAt = &now
	j.UpdatedAt = now
	return clone(j), nil
}

// UpdateJobStatus writes a status transition.
func (m *Memory) UpdateJobStatus(_ context.Context, id uuid.UUID, status types.JobStatus, update JobUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	j.Status = status
	if update.Errors != nil {
		j.Errors = append([]string(nil), update.Errors...)
	}
	if update.DataCollected != nil {
		if j.DataCollected == nil {
			j.DataCollected = make(map[string]any, len(update.DataCollected))
		}
		for k, v := range update.DataCollected {
			j.DataCollected[k] = v
		}
	}
	if update.CompletedAt != nil {
		completed := *update.CompletedAt
		j.CompletedAt = &completed
	}
	j.UpdatedAt = m.now()
	return nil
}

// RetryJob re-queues a failed job that has retries left.
func (m *Memory) RetryJob(_ context.Context, id uuid.UUID) (RetryOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok {
		return RetryOutcome{}, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	outcome := RetryOutcome{RetryCount: j.RetryCount, MaxRetries: j.MaxRetries}
	if !j.CanRetry() {
		return outcome, nil
	}
	j.RetryCount++
	j.Status = types.JobStatusPending
	j.StartedAt = nil
	j.CompletedAt = nil
	j.UpdatedAt = m.now()

	outcome.Requeued = true
	outcome.RetryCount = j.RetryCount
	return outcome, nil
}

// InsertDiscoveredURL stores a discovered URL. URLs are unique.
func (m *Memory) InsertDiscoveredURL(_ context.Context, u *types.DiscoveredURL) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if id, exists := m.urlIndex[u.URL]; exists {
		d := m.urls[id]
		if d.Status != types.DiscoveredIrrelevant {
			return fmt.Errorf("%s: %w", u.URL, ErrDuplicateURL)
		}
		d.SourceDirectoryURL = u.SourceDirectoryURL
		d.Region = u.Region
		d.Status = types.DiscoveredNew
		d.Notes = u.Notes
		d.UpdatedAt = now
		u.ID, u.Status, u.DiscoveredAt, u.UpdatedAt = d.ID, d.Status, d.DiscoveredAt, d.UpdatedAt
		return nil
	}
	d := clone(u)
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = types.DiscoveredNew
	}
	d.DiscoveredAt = now
	d.UpdatedAt = now
	m.urls[d.ID] = d
	m.urlIndex[d.URL] = d.ID
	u.ID = d.ID
	return nil
}

// ListDiscoveredURLs returns discovered URLs filtered by status, oldest first.
func (m *Memory) ListDiscoveredURLs(_ context.Context, statuses ...types.DiscoveredURLStatus) ([]types.DiscoveredURL, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := make(map[types.DiscoveredURLStatus]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}

	var result []types.DiscoveredURL
	for _, u := range m.urls {
		if len(want) == 0 || want[u.Status] {
			result = append(result, *clone(u))
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].DiscoveredAt.Equal(result[j].DiscoveredAt) {
			return result[i].URL < result[j].URL
		}
		return result[i].DiscoveredAt.Before(result[j].DiscoveredAt)
	})
	return result, nil
}

// UpdateDiscoveredURLStatus changes the status of a discovered URL.
func (m *Memory) UpdateDiscoveredURLStatus(_ context.Context, id uuid.UUID, status types.DiscoveredURLStatus, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.urls[id]
	if !ok {
		return fmt.Errorf("discovered url %s: %w", id, ErrNotFound)
	}
	u.Status = status
	if notes != "" {
		u.Notes = notes
	}
	u.UpdatedAt = m.now()
	return nil
}

// clone deep-copies a record so callers never share memory with the store.
func clone[T any](v *T) *T {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("store: clone marshal: %v", err))
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("store: clone unmarshal: %v", err))
	}
	return &out
}
