// Package core implements the task-sharing and board-consistency engine:
// contiguous per-board ordering, author/recipient permissions, share
// resolution and the merged per-user view. It talks to persistence only
// through the ports in ports.go and takes the acting user explicitly on
// every operation.
package core

import (
	"context"

	log "github.com/sirupsen/logrus"

	"shareboard/domain"
)

// Config carries engine tunables.
type Config struct {
	// MaxBoards caps boards per user. Zero means domain.MaxBoardsPerUser.
	MaxBoards int
	// TitleFallback enables legacy resolution of share rows that carry no
	// destination board id by matching the author's board title.
	TitleFallback bool
}

// Service is the engine facade the transport layer calls into.
type Service struct {
	ports  Ports
	tx     Transactor
	cache  ViewCache
	cfg    Config
	logger *log.Logger
}

// New creates a Service. cache may be nil to disable view caching.
func New(ports Ports, tx Transactor, cache ViewCache, cfg Config, logger *log.Logger) *Service {
	if cfg.MaxBoards <= 0 {
		cfg.MaxBoards = domain.MaxBoardsPerUser
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Service{ports: ports, tx: tx, cache: cache, cfg: cfg, logger: logger}
}

// invalidate drops cached views for every listed user, deduplicated.
func (s *Service) invalidate(ctx context.Context, userIDs ...int64) {
	if s.cache == nil || len(userIDs) == 0 {
		return
	}
	seen := make(map[int64]struct{}, len(userIDs))
	uniq := userIDs[:0]
	for _, id := range userIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	s.cache.Invalidate(ctx, uniq...)
}
