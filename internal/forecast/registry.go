package forecast

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/forecast-ai-go/internal/models"
	"github.com/irfndi/forecast-ai-go/internal/pipeline"
	"github.com/irfndi/forecast-ai-go/internal/utils"
)

// Registry resolves strategy names and falls back to the decomposition
// strategy when a requested strategy is unavailable.
type Registry struct {
	strategies map[string]Strategy
	aliases    map[string]string
	fallback   string
	logger     *logrus.Logger
}

// NewRegistry returns an empty registry whose fallback is the decomposition strategy.
func NewRegistry(logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.New()
	}
	return &Registry{
		strategies: make(map[string]Strategy),
		aliases:    make(map[string]string),
		fallback:   models.StrategyDecomposition,
		logger:     logger,
	}
}

// NewDefaultRegistry registers both strategies under their names and the
// legacy "prophet" and "lightgbm" aliases.
func NewDefaultRegistry(logger *logrus.Logger, treeEnabled bool, guard CapacityChecker) *Registry {
	r := NewRegistry(logger)
	r.Register(NewAdditive(DefaultAdditiveParams()), "prophet")
	r.Register(NewTreeEnsemble(DefaultTreeParams(), treeEnabled, guard), "lightgbm")
	return r
}

// Register adds a strategy under its name and any aliases.
func (r *Registry) Register(s Strategy, aliases ...string) {
	r.strategies[s.Name()] = s
	for _, a := range aliases {
		r.aliases[strings.ToLower(a)] = s.Name()
	}
}

// Names returns the registered strategy names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Resolve maps a requested name or alias to a strategy. An empty name selects
// the fallback strategy.
func (r *Registry) Resolve(name string) (Strategy, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = r.fallback
	}
	if canonical, ok := r.aliases[key]; ok {
		key = canonical
	}
	s, ok := r.strategies[key]
	if !ok {
		return nil, utils.NewConfigurationErrorf("model", "Unknown model type '%s'. Available: %s", name, strings.Join(r.Names(), ", "))
	}
	return s, nil
}

// Dispatch trains the requested strategy, substituting the fallback when the
// requested one reports ErrStrategyUnavailable.
func (r *Registry) Dispatch(ctx context.Context, name string, series *pipeline.Frame, cfg Config) (*models.ForecastResult, error) {
	s, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	if err := s.Available(ctx); err != nil {
		if !errors.Is(err, ErrStrategyUnavailable) || s.Name() == r.fallback {
			return nil, err
		}
		fallback, ok := r.strategies[r.fallback]
		if !ok {
			return nil, err
		}
		r.logger.WithFields(logrus.Fields{
			"requested": s.Name(),
			"fallback":  fallback.Name(),
			"reason":    err.Error(),
		}).Warn("Forecast strategy unavailable, falling back")
		s = fallback
	}
	return s.Train(ctx, series, cfg)
}
