package dispatchworker

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// DispatchJob representa un job de despacho de efectos secundarios (audit,
// alertas, notificaciones) derivados de una decisión de acceso.
type DispatchJob struct {
	SchoolID string
	ReaderID string
	Handler  func(ctx context.Context) error
}

// PoolStats contiene métricas en tiempo real del worker pool
type PoolStats struct {
	NumWorkers      int            `json:"num_workers"`
	QueueSize       int            `json:"queue_size"`
	ActiveWorkers   int            `json:"active_workers"`
	TotalDispatched int64          `json:"total_dispatched"`
	TotalProcessed  int64          `json:"total_processed"`
	TotalDropped    int64          `json:"total_dropped"`
	TotalErrors     int64          `json:"total_errors"`
	WorkerStats     []WorkerStats  `json:"worker_stats"`
	ActiveReaders   map[string]int `json:"active_readers"` // schoolID|readerID -> worker_id
}

// WorkerStats contiene métricas por worker individual
type WorkerStats struct {
	WorkerID      int   `json:"worker_id"`
	QueueDepth    int   `json:"queue_depth"`
	IsProcessing  bool  `json:"is_processing"`
	JobsProcessed int64 `json:"jobs_processed"`
}

type activeReaderEntry struct {
	workerID  int
	updatedAt time.Time
}

// DispatchWorkerPool maneja un pool de workers para despachar efectos
// secundarios. Los jobs de un mismo lector siempre caen en el mismo worker,
// así los registros de auditoría por lector conservan su orden.
type DispatchWorkerPool struct {
	numWorkers int
	queueSize  int
	workers    []*worker
	wg         sync.WaitGroup
	stopOnce   sync.Once
	stopped    int32
	stopCh     chan struct{}

	// Métricas
	totalDispatched int64
	totalProcessed  int64
	totalDropped    int64
	totalErrors     int64
	activeReadersMu sync.RWMutex
	activeReaders   map[string]activeReaderEntry
	startTime       time.Time
}

// worker representa un worker individual con su cola
type worker struct {
	id            int
	jobQueue      chan DispatchJob
	ctx           context.Context
	cancel        context.CancelFunc
	isProcessing  int32
	jobsProcessed int64
	pool          *DispatchWorkerPool
}

// NewDispatchWorkerPool crea un nuevo pool de workers de despacho
func NewDispatchWorkerPool(numWorkers, queueSize int) *DispatchWorkerPool {
	if numWorkers <= 0 {
		numWorkers = 8
	}
	if queueSize <= 0 {
		queueSize = 100
	}

	pool := &DispatchWorkerPool{
		numWorkers:    numWorkers,
		queueSize:     queueSize,
		workers:       make([]*worker, numWorkers),
		activeReaders: make(map[string]activeReaderEntry),
		stopCh:        make(chan struct{}),
		startTime:     time.Now(),
	}

	return pool
}

// Start inicia todos los workers del pool
func (p *DispatchWorkerPool) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stopCh:
				return
			case <-ticker.C:
				now := time.Now()
				p.activeReadersMu.Lock()
				for k, v := range p.activeReaders {
					if !v.updatedAt.IsZero() && now.Sub(v.updatedAt) > 2*time.Second {
						delete(p.activeReaders, k)
					}
				}
				p.activeReadersMu.Unlock()
			}
		}
	}()

	for i := 0; i < p.numWorkers; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		w := &worker{
			id:       i,
			jobQueue: make(chan DispatchJob, p.queueSize),
			ctx:      workerCtx,
			cancel:   cancel,
			pool:     p,
		}
		p.workers[i] = w

		p.wg.Add(1)
		go w.run(&p.wg)
	}

	logrus.Infof("[DISPATCH_POOL] Started with %d workers, queue size: %d", p.numWorkers, p.queueSize)
}

// TryDispatch envía un job al worker apropiado (no bloqueante) y retorna
// si el job pudo encolarse. Útil para aplicar backpressure en endpoints HTTP.
func (p *DispatchWorkerPool) TryDispatch(job DispatchJob) bool {
	if atomic.LoadInt32(&p.stopped) == 1 {
		atomic.AddInt64(&p.totalDropped, 1)
		return false
	}

	shard := p.shardForReader(job.SchoolID, job.ReaderID)
	atomic.AddInt64(&p.totalDispatched, 1)

	readerKey := job.SchoolID + "|" + job.ReaderID
	p.activeReadersMu.Lock()
	p.activeReaders[readerKey] = activeReaderEntry{workerID: shard, updatedAt: time.Now()}
	p.activeReadersMu.Unlock()

	sent := func() (ok bool) {
		defer func() {
			if r := recover(); r != nil {
				ok = false
			}
		}()
		select {
		case p.workers[shard].jobQueue <- job:
			return true
		default:
			return false
		}
	}()

	if sent {
		return true
	}
	p.activeReadersMu.Lock()
	delete(p.activeReaders, readerKey)
	p.activeReadersMu.Unlock()

	atomic.AddInt64(&p.totalDropped, 1)
	logrus.Warnf("[DISPATCH_POOL] Worker %d queue full (or stopped), dropping job for %s|%s",
		shard, job.SchoolID, job.ReaderID)
	return false
}

// Dispatch envía un job al worker apropiado (no bloqueante)
func (p *DispatchWorkerPool) Dispatch(job DispatchJob) {
	_ = p.TryDispatch(job)
}

// Stop detiene el pool de forma graceful
func (p *DispatchWorkerPool) Stop() {
	p.stopOnce.Do(func() {
		atomic.StoreInt32(&p.stopped, 1)
		close(p.stopCh)
		logrus.Info("[DISPATCH_POOL] Stopping workers...")

		for _, w := range p.workers {
			w.cancel()
			close(w.jobQueue)
		}

		p.wg.Wait()

		logrus.Info("[DISPATCH_POOL] All workers stopped")
	})
}

// shardForReader calcula el shard (worker) para un lector usando hash consistente
func (p *DispatchWorkerPool) shardForReader(schoolID, readerID string) int {
	key := schoolID + "|" + readerID
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(p.numWorkers))
}

// GetStats retorna estadísticas en tiempo real del pool
func (p *DispatchWorkerPool) GetStats() PoolStats {
	workerStats := make([]WorkerStats, len(p.workers))
	activeWorkers := 0

	for i, w := range p.workers {
		isProcessing := atomic.LoadInt32(&w.isProcessing) == 1
		if isProcessing {
			activeWorkers++
		}

		workerStats[i] = WorkerStats{
			WorkerID:      w.id,
			QueueDepth:    len(w.jobQueue),
			IsProcessing:  isProcessing,
			JobsProcessed: atomic.LoadInt64(&w.jobsProcessed),
		}
	}

	now := time.Now()
	p.activeReadersMu.Lock()
	activeReadersSnapshot := make(map[string]int, len(p.activeReaders))
	for k, v := range p.activeReaders {
		if !v.updatedAt.IsZero() && now.Sub(v.updatedAt) > 2*time.Second {
			delete(p.activeReaders, k)
			continue
		}
		activeReadersSnapshot[k] = v.workerID
	}
	p.activeReadersMu.Unlock()

	return PoolStats{
		NumWorkers:      p.numWorkers,
		QueueSize:       p.queueSize,
		ActiveWorkers:   activeWorkers,
		TotalDispatched: atomic.LoadInt64(&p.totalDispatched),
		TotalProcessed:  atomic.LoadInt64(&p.totalProcessed),
		TotalDropped:    atomic.LoadInt64(&p.totalDropped),
		TotalErrors:     atomic.LoadInt64(&p.totalErrors),
		WorkerStats:     workerStats,
		ActiveReaders:   activeReadersSnapshot,
	}
}

// run ejecuta el loop principal del worker
func (w *worker) run(wg *sync.WaitGroup) {
	defer wg.Done()

	logrus.Debugf("[DISPATCH_POOL] Worker %d started", w.id)

	for {
		select {
		case job, ok := <-w.jobQueue:
			if !ok {
				logrus.Debugf("[DISPATCH_POOL] Worker %d shutting down", w.id)
				return
			}

			func() {
				readerKey := job.SchoolID + "|" + job.ReaderID

				atomic.StoreInt32(&w.isProcessing, 1)
				defer func() {
					if r := recover(); r != nil {
						atomic.AddInt64(&w.pool.totalErrors, 1)
						logrus.Errorf("[DISPATCH_POOL] Worker %d panic for %s: %v", w.id, readerKey, r)
					}
					atomic.StoreInt32(&w.isProcessing, 0)
					atomic.AddInt64(&w.jobsProcessed, 1)
					atomic.AddInt64(&w.pool.totalProcessed, 1)
				}()

				err := job.Handler(w.ctx)

				if err != nil {
					atomic.AddInt64(&w.pool.totalErrors, 1)
					logrus.WithError(err).Errorf("[DISPATCH_POOL] Worker %d job failed for %s|%s",
						w.id, job.SchoolID, job.ReaderID)
				}
			}()

		case <-w.ctx.Done():
			logrus.Debugf("[DISPATCH_POOL] Worker %d context cancelled, draining queue...", w.id)
			w.drainQueue()
			return
		}
	}
}

// drainQueue procesa jobs pendientes antes del shutdown
func (w *worker) drainQueue() {
	for {
		select {
		case job, ok := <-w.jobQueue:
			if !ok {
				return
			}
			func() {
				defer func() {
					if r := recover(); r != nil {
						atomic.AddInt64(&w.pool.totalErrors, 1)
						logrus.Errorf("[DISPATCH_POOL] Worker %d drain panic: %v", w.id, r)
					}
				}()
				if err := job.Handler(w.ctx); err != nil {
					logrus.WithError(err).Errorf("[DISPATCH_POOL] Worker %d drain job failed", w.id)
				}
			}()
		default:
			return
		}
	}
}
