package emitter

import "sync"

// loop runs posted tasks one at a time, in order, on a single goroutine.
// Posting never blocks, so a task may post follow-up work without recursing.
type loop struct {
	mu      sync.Mutex
	tasks   []func()
	stopped bool
	wake    chan struct{}
	quit    chan struct{}
	done    chan struct{}
}

func newLoop() *loop {
	l := &loop{
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *loop) post(task func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.tasks = append(l.tasks, task)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

func (l *loop) run() {
	defer close(l.done)
	for {
		select {
		case <-l.quit:
			return
		default:
		}
		l.mu.Lock()
		if len(l.tasks) == 0 {
			l.mu.Unlock()
			select {
			case <-l.wake:
			case <-l.quit:
				return
			}
			continue
		}
		task := l.tasks[0]
		l.tasks[0] = nil
		l.tasks = l.tasks[1:]
		l.mu.Unlock()
		task()
	}
}

// stop drops queued tasks and waits for the running one. It must not be
// called from a task.
func (l *loop) stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.stopped = true
	l.tasks = nil
	l.mu.Unlock()
	close(l.quit)
	<-l.done
}
