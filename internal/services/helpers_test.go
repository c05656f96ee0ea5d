package services

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/forecast-ai-go/internal/cache"
	"github.com/irfndi/forecast-ai-go/internal/forecast"
	"github.com/irfndi/forecast-ai-go/internal/models"
	"github.com/irfndi/forecast-ai-go/internal/utils"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// salesCSV is one row per month with a trend, a yearly cycle and two
// products sold in two regions.
func salesCSV(months int) string {
	var b strings.Builder
	b.WriteString("date,revenue,units_sold,price,promotion_flag,product_name,region\n")
	for i := 0; i < months; i++ {
		d := time.Date(2022, time.Month(1+i), 15, 0, 0, 0, 0, time.UTC)
		revenue := 1000 + 10*float64(i) + 200*math.Sin(2*math.Pi*float64(d.Month())/12)
		product, region := "Widget", "North"
		if i%3 == 0 {
			product, region = "Gadget", "South"
		}
		fmt.Fprintf(&b, "%s,%.2f,%d,%.2f,0,%s,%s\n", d.Format("2006-01-02"), revenue, 100+i, 10+float64(i%3), product, region)
	}
	return b.String()
}

type storedJob struct {
	job  models.Job
	data []byte
}

// memStore is an in-memory JobStore.
type memStore struct {
	mu         sync.Mutex
	jobs       map[string]*storedJob
	forecasts  map[string][]models.ForecastRecord
	insights   map[string][]models.InsightsBundle
	statuses   map[string][]models.JobStatus
	lastLimit  int
	saveErr    error
	purgedFrom time.Time
}

func newMemStore() *memStore {
	return &memStore{
		jobs:      make(map[string]*storedJob),
		forecasts: make(map[string][]models.ForecastRecord),
		insights:  make(map[string][]models.InsightsBundle),
		statuses:  make(map[string][]models.JobStatus),
	}
}

func (m *memStore) CreateJob(_ context.Context, job *models.Job, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.JobID] = &storedJob{job: *job, data: append([]byte(nil), data...)}
	return nil
}

func (m *memStore) GetJob(_ context.Context, jobID string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	job := j.job
	return &job, nil
}

func (m *memStore) GetJobData(_ context.Context, jobID string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return nil, "", utils.ErrNotFound
	}
	return j.data, j.job.OriginalFilename, nil
}

func (m *memStore) UpdateJobStatus(_ context.Context, jobID string, status models.JobStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return utils.ErrNotFound
	}
	j.job.Status = status
	m.statuses[jobID] = append(m.statuses[jobID], status)
	return nil
}

func (m *memStore) RecentJobs(_ context.Context, limit int) ([]models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	jobs := make([]models.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		jobs = append(jobs, j.job)
	}
	sort.Slice(jobs, func(a, b int) bool { return jobs[a].CreatedAt.After(jobs[b].CreatedAt) })
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (m *memStore) SaveForecast(_ context.Context, rec *models.ForecastRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.forecasts[rec.JobID] = append(m.forecasts[rec.JobID], *rec)
	return nil
}

func (m *memStore) LatestForecast(_ context.Context, jobID string) (*models.ForecastRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.forecasts[jobID]
	if len(recs) == 0 {
		return nil, utils.ErrNotFound
	}
	rec := recs[len(recs)-1]
	return &rec, nil
}

func (m *memStore) SaveInsights(_ context.Context, bundle *models.InsightsBundle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insights[bundle.JobID] = append(m.insights[bundle.JobID], *bundle)
	return nil
}

func (m *memStore) LatestInsights(_ context.Context, jobID string) (*models.InsightsBundle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bundles := m.insights[jobID]
	if len(bundles) == 0 {
		return nil, utils.ErrNotFound
	}
	b := bundles[len(bundles)-1]
	return &b, nil
}

func (m *memStore) DeleteJob(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[jobID]; !ok {
		return utils.ErrNotFound
	}
	delete(m.jobs, jobID)
	delete(m.forecasts, jobID)
	delete(m.insights, jobID)
	return nil
}

func (m *memStore) DeleteJobsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purgedFrom = cutoff
	var n int64
	for id, j := range m.jobs {
		if j.job.CreatedAt.Before(cutoff) {
			delete(m.jobs, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) status(jobID string) models.JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[jobID].job.Status
}

func (m *memStore) insightCount(jobID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.insights[jobID])
}

type testEnv struct {
	store    *memStore
	redis    *miniredis.Miniredis
	results  *cache.ResultCache
	prepared *cache.PreparedCache
	metrics  *Metrics
	svc      *ForecastService
}

type envOption func(*ForecastServiceOptions)

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := quietLogger()
	prepared, err := cache.NewPreparedCache(8)
	require.NoError(t, err)

	env := &testEnv{
		store:    newMemStore(),
		redis:    mr,
		results:  cache.NewResultCache(client, time.Hour, time.Hour, logger),
		prepared: prepared,
		metrics:  NewMetrics(),
	}
	o := ForecastServiceOptions{
		Store:          env.store,
		Registry:       forecast.NewDefaultRegistry(logger, false, nil),
		Results:        env.results,
		Prepared:       env.prepared,
		Metrics:        env.metrics,
		Logger:         logger,
		DefaultHorizon: 3,
	}
	for _, opt := range opts {
		opt(&o)
	}
	env.svc = NewForecastService(o)
	return env
}

// upload stores the fixture and returns its job id.
func (e *testEnv) upload(t *testing.T) string {
	t.Helper()
	resp, err := e.svc.Upload(context.Background(), "sales.csv", []byte(salesCSV(24)))
	require.NoError(t, err)
	return resp.JobID
}

// forecastJob uploads the fixture and runs a default forecast on it.
func (e *testEnv) forecastJob(t *testing.T) (string, *models.ForecastRecord) {
	t.Helper()
	jobID := e.upload(t)
	rec, err := e.svc.Run(context.Background(), models.ForecastRequest{JobID: jobID})
	require.NoError(t, err)
	return jobID, rec
}

// forecastJobAgain reruns the default forecast on an existing job.
func (e *testEnv) forecastJobAgain(t *testing.T, jobID string) {
	t.Helper()
	_, err := e.svc.Run(context.Background(), models.ForecastRequest{JobID: jobID})
	require.NoError(t, err)
}
