package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/forecast-ai-go/internal/utils"
)

func newInsightService(env *testEnv) *InsightService {
	return NewInsightService(env.store, env.results, env.svc, quietLogger())
}

func TestInsightService_GetGeneratesOnce(t *testing.T) {
	env := newTestEnv(t)
	jobID, _ := env.forecastJob(t)
	svc := newInsightService(env)

	bundle, err := svc.Get(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, jobID, bundle.JobID)
	assert.NotEmpty(t, bundle.Title)
	assert.NotEmpty(t, bundle.KPIs)
	assert.False(t, bundle.GeneratedAt.IsZero())
	assert.True(t, env.redis.Exists("insights:"+jobID))

	again, err := svc.Get(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, bundle.Title, again.Title)
	assert.Equal(t, 1, env.store.insightCount(jobID))
}

func TestInsightService_GetFallsBackToStore(t *testing.T) {
	env := newTestEnv(t)
	jobID, _ := env.forecastJob(t)
	svc := newInsightService(env)

	_, err := svc.Get(context.Background(), jobID)
	require.NoError(t, err)
	env.redis.FlushAll()

	_, err = svc.Get(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, 1, env.store.insightCount(jobID))
	assert.True(t, env.redis.Exists("insights:"+jobID), "stored bundle is cached again")
}

func TestInsightService_Regenerate(t *testing.T) {
	env := newTestEnv(t)
	jobID, _ := env.forecastJob(t)
	svc := newInsightService(env)

	_, err := svc.Get(context.Background(), jobID)
	require.NoError(t, err)
	_, err = svc.Regenerate(context.Background(), jobID)
	require.NoError(t, err)

	assert.Equal(t, 2, env.store.insightCount(jobID))
}

func TestInsightService_ConcurrentGenerate(t *testing.T) {
	env := newTestEnv(t)
	jobID, _ := env.forecastJob(t)
	svc := newInsightService(env)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Regenerate(context.Background(), jobID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n := env.store.insightCount(jobID)
	assert.GreaterOrEqual(t, n, 1)
	assert.LessOrEqual(t, n, 8)
}

func TestInsightService_NewRunInvalidatesCachedInsights(t *testing.T) {
	env := newTestEnv(t)
	jobID, _ := env.forecastJob(t)
	svc := newInsightService(env)

	_, err := svc.Get(context.Background(), jobID)
	require.NoError(t, err)
	require.True(t, env.redis.Exists("insights:"+jobID))

	env.forecastJobAgain(t, jobID)
	assert.False(t, env.redis.Exists("insights:"+jobID))
}

func TestInsightService_Errors(t *testing.T) {
	env := newTestEnv(t)
	svc := newInsightService(env)

	_, err := svc.Get(context.Background(), "job_missing")
	assert.ErrorIs(t, err, utils.ErrNotFound)
	assert.NotErrorIs(t, err, ErrNoForecast)

	jobID := env.upload(t)
	_, err = svc.Get(context.Background(), jobID)
	assert.ErrorIs(t, err, ErrNoForecast)
	assert.ErrorIs(t, err, utils.ErrNotFound)

	_, err = svc.Regenerate(context.Background(), jobID)
	assert.ErrorIs(t, err, ErrNoForecast)
}
