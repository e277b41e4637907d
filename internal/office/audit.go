package office

import (
	"context"
	"fmt"

	"github.com/starford/lexdesk/internal/auditctx"
	"github.com/starford/lexdesk/internal/models"
)

// appendLog prepends an audit entry attributed to the actor on ctx.
func (s *Service) appendLog(ctx context.Context, st *models.State, format string, args ...any) {
	actor := auditctx.ActorFromContext(ctx)
	entry := models.SystemLog{
		ID:        s.ids.NewID(),
		Timestamp: s.now().UTC(),
		User:      actor.Name,
		Role:      actor.Role,
		Action:    fmt.Sprintf(format, args...),
	}
	st.Logs = append([]models.SystemLog{entry}, st.Logs...)
}

// Logs returns the audit log, most recent first.
func (s *Service) Logs() []models.SystemLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.SystemLog(nil), s.state.Logs...)
}

// AppendLog records an action performed by the actor on ctx.
func (s *Service) AppendLog(ctx context.Context, action string) error {
	return s.mutate(ctx, ChangeEvent{Origin: OriginLocal, Op: OpCreate, Collection: models.KeyLogs, Keys: []string{models.KeyLogs}},
		func(st *models.State) error {
			s.appendLog(ctx, st, "%s", action)
			return nil
		})
}
