package compute

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// Kernel runs once per pixel. Kernels may only write state owned by their
// own pixel.
type Kernel func(x, y int)

// tileTask is one tile of a dispatch
type tileTask struct {
	tile   Tile
	kernel Kernel
}

// tileResult reports a finished tile
type tileResult struct {
	TileID int
	Pixels int
	Err    error
}

// WorkerPool runs dispatches on a fixed set of goroutines. Workers are
// started once and live until Stop.
type WorkerPool struct {
	taskQueue   chan tileTask
	resultQueue chan tileResult
	numWorkers  int
	wg          sync.WaitGroup
	mu          sync.Mutex // one dispatch at a time
	stopped     bool
}

// ErrPoolStopped is returned by Run after Stop
var ErrPoolStopped = errors.New("worker pool stopped")

// NewWorkerPool creates and starts a worker pool. numWorkers <= 0 uses the CPU count.
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	wp := &WorkerPool{
		taskQueue:   make(chan tileTask, numWorkers*4),
		resultQueue: make(chan tileResult, numWorkers*4),
		numWorkers:  numWorkers,
	}

	for i := 0; i < numWorkers; i++ {
		wp.wg.Add(1)
		go wp.run()
	}
	return wp
}

// NumWorkers returns the number of workers in the pool
func (wp *WorkerPool) NumWorkers() int {
	return wp.numWorkers
}

// Run executes kernel over every pixel of every tile and returns once all
// tiles have finished. A kernel panic fails its tile; the remaining tiles
// still run.
func (wp *WorkerPool) Run(tiles []Tile, kernel Kernel) (pixels int, err error) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.stopped {
		return 0, ErrPoolStopped
	}

	// Feed tasks from a separate goroutine so results can be drained while
	// the queue is full
	go func() {
		for _, tile := range tiles {
			wp.taskQueue <- tileTask{tile: tile, kernel: kernel}
		}
	}()

	for range tiles {
		result := <-wp.resultQueue
		pixels += result.Pixels
		if result.Err != nil && err == nil {
			err = result.Err
		}
	}
	return pixels, err
}

// Stop gracefully shuts down all workers
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.stopped {
		return
	}
	wp.stopped = true
	close(wp.taskQueue) // No more tasks
	wp.wg.Wait()        // Wait for workers to finish
	close(wp.resultQueue)
}

// run is the main worker loop
func (wp *WorkerPool) run() {
	defer wp.wg.Done()
	for task := range wp.taskQueue {
		wp.resultQueue <- runTile(task)
	}
}

func runTile(task tileTask) (result tileResult) {
	result.TileID = task.tile.ID
	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("tile %d: kernel panic: %v", task.tile.ID, r)
		}
	}()

	b := task.tile.Bounds
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			task.kernel(x, y)
			result.Pixels++
		}
	}
	return result
}
