// Package scheduler runs the server's background maintenance tasks on a
// single worker.
package scheduler

import (
	"sync"
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("formatls.scheduler")

type Task struct {
	Name    string
	Execute func() error
}

type Scheduler struct {
	taskQueue chan Task
	stopChan  chan struct{}
	stopOnce  sync.Once
	worker    sync.WaitGroup
	tickers   sync.WaitGroup
}

// NewScheduler creates a new Scheduler with the specified queue size
func NewScheduler(queueSize int) *Scheduler {
	return &Scheduler{
		taskQueue: make(chan Task, queueSize),
		stopChan:  make(chan struct{}),
	}
}

// RunScheduler starts the worker loop.
func (s *Scheduler) RunScheduler() {
	s.worker.Add(1)
	go func() {
		defer s.worker.Done()
		for {
			select {
			case task := <-s.taskQueue:
				run(task)
			case <-s.stopChan:
				// Finish what was already queued.
				for {
					select {
					case task := <-s.taskQueue:
						log.Debugf("draining task: %s", task.Name)
						run(task)
					default:
						return
					}
				}
			}
		}
	}()
}

func run(task Task) {
	log.Debugf("executing %s task", task.Name)
	if err := task.Execute(); err != nil {
		log.Warningf("%s task failed: %v", task.Name, err)
	}
}

// SchedulePeriodicTask queues task now and then every interval. A tick is
// skipped when the queue is full.
func (s *Scheduler) SchedulePeriodicTask(interval time.Duration, task Task) {
	s.tickers.Add(1)
	go func() {
		defer s.tickers.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.enqueue(task)
		for {
			select {
			case <-ticker.C:
				s.enqueue(task)
			case <-s.stopChan:
				return
			}
		}
	}()
}

func (s *Scheduler) enqueue(task Task) {
	select {
	case s.taskQueue <- task:
	default:
		log.Debugf("skipped scheduling %s, queue is full", task.Name)
	}
}

// StopScheduler stops the periodic tasks and waits for queued tasks to
// complete.
func (s *Scheduler) StopScheduler() {
	s.stopOnce.Do(func() {
		log.Info("stopping scheduler")
		close(s.stopChan)
		s.tickers.Wait()
		s.worker.Wait()
		log.Info("scheduler stopped")
	})
}
