package starlark

import (
	"log/slog"
	"sync"

	"go.starlark.net/starlark"
)

// ThreadPool manages a pool of Starlark threads for parallel execution.
// print() output of data files is sent to the pool's logger.
type ThreadPool struct {
	mu      sync.Mutex
	threads []*starlark.Thread
	maxSize int
	logger  *slog.Logger
}

// NewThreadPool creates a new thread pool with the specified maximum size.
func NewThreadPool(maxSize int, logger *slog.Logger) *ThreadPool {
	if maxSize <= 0 {
		maxSize = 10 // default pool size
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ThreadPool{
		threads: make([]*starlark.Thread, 0, maxSize),
		maxSize: maxSize,
		logger:  logger,
	}
}

// Get retrieves a thread from the pool or creates a new one.
// The thread name is used for error reporting.
func (p *ThreadPool) Get(name string) *starlark.Thread {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.threads) > 0 {
		thread := p.threads[len(p.threads)-1]
		p.threads = p.threads[:len(p.threads)-1]
		thread.Name = name
		return thread
	}

	logger := p.logger
	return &starlark.Thread{
		Name: name,
		Print: func(thread *starlark.Thread, msg string) {
			logger.Debug("starlark print", slog.String("file", thread.Name), slog.String("msg", msg))
		},
	}
}

// Put returns a thread to the pool for reuse.
// If the pool is full, the thread is discarded.
func (p *ThreadPool) Put(thread *starlark.Thread) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.threads) < p.maxSize {
		// Clear any state that might leak between uses
		thread.Name = ""
		p.threads = append(p.threads, thread)
	}
}

// Size returns the current number of threads in the pool.
func (p *ThreadPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.threads)
}

// ParallelExecutor executes several data files concurrently with shared
// predeclared globals.
type ParallelExecutor struct {
	pool        *ThreadPool
	predeclared starlark.StringDict
}

// NewParallelExecutor creates a new parallel executor with shared globals.
func NewParallelExecutor(pool *ThreadPool, predeclared starlark.StringDict) *ParallelExecutor {
	return &ParallelExecutor{
		pool:        pool,
		predeclared: predeclared,
	}
}

// Execute runs every task and returns results in task order.
func (e *ParallelExecutor) Execute(tasks []DataTask) []DataResult {
	results := make([]DataResult, len(tasks))
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func(idx int, t DataTask) {
			defer wg.Done()

			thread := e.pool.Get(t.Path)
			defer e.pool.Put(thread)

			data, err := execData(thread, t.Path, t.Src, e.predeclared)
			results[idx] = DataResult{Path: t.Path, Data: data, Error: err}
		}(i, task)
	}

	wg.Wait()
	return results
}

// DataTask is a data file to execute.
type DataTask struct {
	Path string // used for error reporting
	Src  []byte
}

// DataResult is the outcome of one DataTask.
type DataResult struct {
	Path  string
	Data  map[string]any
	Error error
}
