package app

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Run starts the engine and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("engine-starting",
		zap.String("storage-mode", a.cfg.StorageMode),
		zap.String("settlement-mode", a.cfg.SettlementMode),
		zap.Int("worker-count", a.cfg.WorkerCount),
		zap.String("log-level", a.cfg.LogLevel))

	a.startComponents()

	// Mark as ready
	a.healthChecker.SetReady(true)

	a.logger.Info("engine-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.Duration("nonce-ttl", a.cfg.NonceTTL),
		zap.Duration("intent-ttl", a.cfg.IntentTTL))

	return a.waitForShutdown()
}

func (a *App) startComponents() {
	// Start HTTP server
	a.wg.Add(1)
	go a.runHTTPServer()

	// Give HTTP server a moment to start
	time.Sleep(100 * time.Millisecond)

	// Start event fan-out
	a.wg.Add(1)
	go a.runHub()

	// Start settlement workers
	a.wg.Add(1)
	go a.runWorkerPool()

	// Start background sweeps
	a.wg.Add(1)
	go a.runSweeper()

	a.wg.Add(1)
	go a.runNonceGC()

	a.wg.Add(1)
	go a.runLimiterEviction()
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) runHub() {
	defer a.wg.Done()
	a.hub.Run(a.ctx)
}

func (a *App) runWorkerPool() {
	defer a.wg.Done()
	a.pool.Run(a.ctx)
}

func (a *App) runSweeper() {
	defer a.wg.Done()
	a.sweeper.Run(a.ctx)
}

func (a *App) runNonceGC() {
	defer a.wg.Done()
	a.nonces.RunGC(a.ctx)
}

func (a *App) runLimiterEviction() {
	defer a.wg.Done()
	a.limiter.Run(a.ctx)
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
