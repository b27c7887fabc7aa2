// Package app wires the engine together: storage, listings, the quote
// path, the settlement pool, and the HTTP surface.
package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mselser95/auction-engine/internal/events"
	"github.com/mselser95/auction-engine/internal/intent"
	"github.com/mselser95/auction-engine/internal/listings"
	"github.com/mselser95/auction-engine/internal/nonce"
	"github.com/mselser95/auction-engine/internal/ratelimit"
	"github.com/mselser95/auction-engine/internal/settlement"
	"github.com/mselser95/auction-engine/internal/storage"
	"github.com/mselser95/auction-engine/pkg/config"
	"github.com/mselser95/auction-engine/pkg/healthprobe"
	"github.com/mselser95/auction-engine/pkg/httpserver"
)

// App is the main engine orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	store         storage.Store
	listings      *listings.Service
	nonces        *nonce.Store
	limiter       *ratelimit.Limiter
	validator     *intent.Validator
	bus           *events.Bus
	hub           *events.Hub
	pool          *settlement.Pool
	sweeper       *settlement.Sweeper
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}
