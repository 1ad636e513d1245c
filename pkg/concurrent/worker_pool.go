package concurrent

import "sync"

// WorkerPool fans a fixed batch of jobs out to numWorkers goroutines.
// Usage: AddJob for every job, Close, Start, Wait, then drain CollectResults.
// Both channels are buffered to the full batch size so workers never block
// on a slow consumer.
type WorkerPool[T JobI, G any] struct {
	numWorkers int
	jobs       chan T
	results    chan G
	wg         sync.WaitGroup
}

func NewWorkerPool[T JobI, G any](numWorkers, totalJobs int) *WorkerPool[T, G] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &WorkerPool[T, G]{
		numWorkers: numWorkers,
		jobs:       make(chan T, totalJobs),
		results:    make(chan G, totalJobs),
	}
}

func (wp *WorkerPool[T, G]) AddJob(job T) {
	wp.jobs <- job
}

// Close marks the job set complete. Must be called before Wait.
func (wp *WorkerPool[T, G]) Close() {
	close(wp.jobs)
}

func (wp *WorkerPool[T, G]) Start(f JobFunc[T, G]) {
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go func() {
			defer wp.wg.Done()
			for job := range wp.jobs {
				wp.results <- f(job)
			}
		}()
	}
}

// StartWithWorkerID is Start for job functions that need a per-worker
// scratch slot: every goroutine passes its own pool index, so jobs running
// concurrently never see the same id.
func (wp *WorkerPool[T, G]) StartWithWorkerID(f JobFuncWithWorkerID[T, G]) {
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go func(workerID int) {
			defer wp.wg.Done()
			for job := range wp.jobs {
				wp.results <- f(job, workerID)
			}
		}(i)
	}
}

func (wp *WorkerPool[T, G]) Wait() {
	wp.wg.Wait()
	close(wp.results)
}

func (wp *WorkerPool[T, G]) CollectResults() chan G {
	return wp.results
}
