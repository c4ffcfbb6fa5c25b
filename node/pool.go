package node

import (
	"sync"
)

type jobKind uint8

const (
	jobParse jobKind = iota
	jobRefill
)

// fileJob hands a connection's buffer and source to a worker. The loop must
// not touch either until the job comes back from drain.
type fileJob struct {
	kind jobKind
	conn *Connection
	err  error
}

// filePool runs file reads off the event loop on a fixed set of workers.
// Finished jobs are queued and announced through notify, which wakes the loop.
type filePool struct {
	parser *Parser
	jobs   chan *fileJob
	notify func()
	wg     sync.WaitGroup

	mu   sync.Mutex
	done []*fileJob
}

func newFilePool(workers int, parser *Parser, notify func()) *filePool {
	fp := &filePool{
		parser: parser,
		jobs:   make(chan *fileJob, workers*16),
		notify: notify,
	}
	for i := 0; i < workers; i++ {
		fp.wg.Add(1)
		go fp.work()
	}
	return fp
}

func (fp *filePool) work() {
	defer fp.wg.Done()
	for job := range fp.jobs {
		job.err = fp.run(job)

		fp.mu.Lock()
		fp.done = append(fp.done, job)
		fp.mu.Unlock()
		fp.notify()
	}
}

func (fp *filePool) run(job *fileJob) error {
	switch job.kind {
	case jobParse:
		return fp.parser.Parse(job.conn)
	default:
		return job.conn.refill()
	}
}

// trySubmit queues job without blocking. It returns false when the queue is
// full, in which case the caller runs the job itself.
func (fp *filePool) trySubmit(job *fileJob) bool {
	select {
	case fp.jobs <- job:
		return true
	default:
		return false
	}
}

// drain returns the finished jobs in completion order.
func (fp *filePool) drain() []*fileJob {
	fp.mu.Lock()
	done := fp.done
	fp.done = nil
	fp.mu.Unlock()
	return done
}

// close stops the workers after the queued jobs finish.
func (fp *filePool) close() {
	close(fp.jobs)
	fp.wg.Wait()
}
