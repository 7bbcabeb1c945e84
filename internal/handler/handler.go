package handler

import (
	"context"

	"github.com/simplemailer/simplemailer/internal/config"
	"github.com/simplemailer/simplemailer/internal/database"
	"github.com/simplemailer/simplemailer/internal/logger"
	"github.com/simplemailer/simplemailer/internal/service"
)

// RunStore looks up background dispatch runs
type RunStore interface {
	Run(ctx context.Context, runID string) (*service.DispatchRun, error)
}

// Handler holds all HTTP handlers. db, rdb and runs are nil when the
// corresponding backend is not configured.
type Handler struct {
	db          *database.Postgres
	rdb         *database.Redis
	log         *logger.Logger
	cfg         *config.Config
	directory   *service.DirectoryService
	dispatch    *service.DispatchService
	bulk        *service.BulkSendService
	unsubscribe *service.UnsubscribeService
	runs        RunStore
}

// New creates a new Handler instance
func New(
	db *database.Postgres,
	rdb *database.Redis,
	log *logger.Logger,
	cfg *config.Config,
	directory *service.DirectoryService,
	dispatch *service.DispatchService,
	bulk *service.BulkSendService,
	unsubscribe *service.UnsubscribeService,
	runs RunStore,
) *Handler {
	return &Handler{
		db:          db,
		rdb:         rdb,
		log:         log.WithComponent("handler"),
		cfg:         cfg,
		directory:   directory,
		dispatch:    dispatch,
		bulk:        bulk,
		unsubscribe: unsubscribe,
		runs:        runs,
	}
}
