package report

import "sync"

// Reporter receives findings as probes produce them.
type Reporter interface {
	AddFinding(Finding)
}

// Sink is the in-memory, append-only Reporter used for a run.
type Sink struct {
	mu       sync.Mutex
	findings []Finding
	onAdd    func(Finding)
}

// NewSink returns a sink. onAdd, if set, runs after each append.
func NewSink(onAdd func(Finding)) *Sink {
	return &Sink{onAdd: onAdd}
}

func (s *Sink) AddFinding(f Finding) {
	if f == nil {
		return
	}
	s.mu.Lock()
	s.findings = append(s.findings, f)
	s.mu.Unlock()
	if s.onAdd != nil {
		s.onAdd(f)
	}
}

// All returns the findings in append order.
func (s *Sink) All() []Finding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Finding(nil), s.findings...)
}

func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.findings)
}
