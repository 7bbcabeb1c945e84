package middleware

import (
	"net/http"
	"sync"

	"github.com/simplemailer/simplemailer/internal/config"
	"github.com/simplemailer/simplemailer/internal/logger"
)

// Middleware holds all HTTP middleware
type Middleware struct {
	log *logger.Logger
	cfg *config.Config

	openAccessWarning sync.Once
}

// New creates a new Middleware instance
func New(log *logger.Logger, cfg *config.Config) *Middleware {
	return &Middleware{
		log: log.WithComponent("http"),
		cfg: cfg,
	}
}

// Chain applies middlewares so that the first one listed runs first
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
