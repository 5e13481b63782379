package server

import (
	"github.com/pkg/errors"

	"github.com/saifulbkhan/gmpack/mpack"
	"github.com/saifulbkhan/gmpack/rpc"
)

// dispatchJob is one inbound request queued for worker dispatch (spec
// section 5: "handler invocation for inbound requests may be
// dispatched to a worker").
type dispatchJob struct {
	session  *rpc.Session
	registry *Registry
	msg      rpc.Message
	trace    *Trace
}

// workerPool runs a fixed number of goroutines draining a shared job
// queue; each job looks up and invokes the bound handler, then writes
// a response back on the job's session. The session's own internal
// lock serializes concurrent writers (spec section 5's per-session
// write serialization requirement), so workers never coordinate with
// each other beyond the shared queue.
type workerPool struct {
	jobs chan dispatchJob
	done chan struct{}
}

func newWorkerPool(n int) *workerPool {
	if n <= 0 {
		n = 1
	}
	p := &workerPool{
		jobs: make(chan dispatchJob, n*4),
		done: make(chan struct{}),
	}
	for i := 0; i < n; i++ {
		go p.run()
	}
	return p
}

func (p *workerPool) run() {
	for {
		select {
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			dispatch(job)
		case <-p.done:
			return
		}
	}
}

func (p *workerPool) submit(job dispatchJob) {
	p.jobs <- job
}

func (p *workerPool) stop() {
	close(p.done)
}

func dispatch(job dispatchJob) {
	handler, userData, ok := job.registry.Lookup(job.msg.Method.Str())
	if !ok {
		job.trace.UnknownMethod(job.msg.Method.Str())
		if job.msg.Kind == rpc.Request {
			_ = job.session.SendResponse(job.msg.ID, mpack.NewStr("unbound method"), mpack.Nil)
		}
		return
	}

	result, err := handler(job.msg.Args, userData)
	if err != nil {
		job.trace.HandlerError(job.msg.Method.Str(), err)
	}

	if job.msg.Kind != rpc.Request {
		// Notification: dispatch to handler, ignore the return value
		// (spec section 4.6).
		return
	}

	if err != nil {
		_ = job.session.SendResponse(job.msg.ID, mpack.NewStr(errors.Cause(err).Error()), mpack.Nil)
		return
	}
	_ = job.session.SendResponse(job.msg.ID, mpack.Nil, result)
}
