package middleware

import (
	"github.com/schoolgate/schoolgate/internal/config"
	"github.com/schoolgate/schoolgate/internal/database"
	"github.com/schoolgate/schoolgate/internal/logger"
	"github.com/schoolgate/schoolgate/internal/metrics"
)

// Middleware holds all HTTP middleware
type Middleware struct {
	rdb       *database.Redis
	log       *logger.Logger
	cfg       *config.Config
	collector *metrics.Collector
}

// New creates a new Middleware instance. rdb and collector may be nil.
func New(rdb *database.Redis, log *logger.Logger, cfg *config.Config, collector *metrics.Collector) *Middleware {
	return &Middleware{
		rdb:       rdb,
		log:       log,
		cfg:       cfg,
		collector: collector,
	}
}
