package office

import (
	"context"

	"github.com/starford/lexdesk/internal/models"
)

// Config returns the tenant configuration.
func (s *Service) Config() models.SystemConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Config
}

// UpdateConfig stores cfg after filling every cleared field from the defaults.
func (s *Service) UpdateConfig(ctx context.Context, cfg models.SystemConfig) (models.SystemConfig, error) {
	cfg = cfg.WithDefaults()
	err := s.mutate(ctx, ChangeEvent{Origin: OriginLocal, Op: OpUpdate, Collection: models.KeyConfig, Keys: []string{models.KeyConfig, models.KeyLogs}},
		func(st *models.State) error {
			st.Config = cfg
			s.appendLog(ctx, st, "updated office settings")
			return nil
		})
	if err != nil {
		return models.SystemConfig{}, err
	}
	return cfg, nil
}
