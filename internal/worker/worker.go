package worker

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
)

// Task is a background job run off the request path.
type Task func(ctx context.Context) error

type WorkerPool struct {
	taskQueue chan Task
	wg        sync.WaitGroup
	isClosing atomic.Bool
}

func NewWorkerPool(size int) *WorkerPool {
	wp := &WorkerPool{
		taskQueue: make(chan Task, 1000),
	}

	for range size {
		wp.wg.Add(1)
		go wp.startWorker()
	}

	return wp
}

func (wp *WorkerPool) startWorker() {
	defer wp.wg.Done()
	for task := range wp.taskQueue {
		if err := task(context.Background()); err != nil {
			log.Printf("[WORKER] task failed: %v", err)
		}
	}
}

// Submit enqueues a task. Tasks are dropped when the pool is shutting down or
// the queue is full; callers must treat them as best effort.
func (wp *WorkerPool) Submit(t Task) {
	if wp.isClosing.Load() {
		log.Println("[WORKER] task submitted during shutdown, dropping")
		return
	}
	select {
	case wp.taskQueue <- t:
	default:
		log.Println("[WORKER] task queue full, dropping task")
	}
}

// Shutdown closes the queue and waits for in-flight tasks to finish.
func (wp *WorkerPool) Shutdown() {
	wp.isClosing.Store(true)
	close(wp.taskQueue)
	wp.wg.Wait()
}
