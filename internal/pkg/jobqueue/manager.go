package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// Archiver moves dead-letter entries to long-term storage
type Archiver interface {
	ArchiveOnce(ctx context.Context) (int, error)
}

// Manager runs the worker and the background dead-letter archive task
type Manager struct {
	worker          *Worker
	archiver        Archiver
	archiveInterval time.Duration
	archiveTicker   *time.Ticker
	stopCh          chan struct{}
	wg              sync.WaitGroup
	mu              sync.Mutex
	running         bool
}

// NewManager creates a manager. archiver may be nil to disable archiving.
func NewManager(worker *Worker, archiver Archiver, archiveInterval time.Duration) *Manager {
	if archiveInterval <= 0 {
		archiveInterval = 15 * time.Minute
	}
	return &Manager{
		worker:          worker,
		archiver:        archiver,
		archiveInterval: archiveInterval,
		stopCh:          make(chan struct{}),
	}
}

// GetWorker returns the managed worker
func (m *Manager) GetWorker() *Worker {
	return m.worker
}

// Start starts the worker and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting worker and background tasks")

	m.worker.Start()

	if m.archiver != nil {
		m.archiveTicker = time.NewTicker(m.archiveInterval)
		m.wg.Add(1)
		go m.archiveWorker(m.archiveTicker, m.stopCh)
	}

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the worker and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping worker and background tasks...")

	if m.archiveTicker != nil {
		m.archiveTicker.Stop()
	}

	close(m.stopCh)
	m.running = false
	m.wg.Wait()

	m.worker.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// archiveWorker periodically drains the dead-letter list to the archive
func (m *Manager) archiveWorker(ticker *time.Ticker, stopCh <-chan struct{}) {
	defer m.wg.Done()
	log.Infof("[JobQueue Manager] Started dead-letter archive worker (interval: %s)", m.archiveInterval)

	for {
		select {
		case <-stopCh:
			log.Info("[JobQueue Manager] Dead-letter archive worker stopping")
			return
		case <-ticker.C:
			m.runArchiveOnce()
		}
	}
}

func (m *Manager) runArchiveOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	n, err := m.archiver.ArchiveOnce(ctx)
	if err != nil {
		log.Errorf("[JobQueue Manager] Dead-letter archive error: %v", err)
		return
	}
	if n > 0 {
		log.Infof("[JobQueue Manager] Archived %d dead-letter entries", n)
	}
}

// RunArchiveOnce exposes a manual trigger for a single archive pass (admin use)
func (m *Manager) RunArchiveOnce(ctx context.Context) (int, error) {
	if m.archiver == nil {
		return 0, nil
	}
	return m.archiver.ArchiveOnce(ctx)
}
