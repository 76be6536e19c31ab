package runner

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Call records one invocation seen by a mock runner.
type Call struct {
	Dir  string
	Name string
	Args []string
}

func (c Call) key() string {
	return commandKey(c.Name, c.Args...)
}

func commandKey(name string, args ...string) string {
	return strings.Join(append([]string{name}, args...), "\x00")
}

type response struct {
	out Output
	err error
}

// MockRunner returns canned responses keyed by command line, optionally
// scoped to a working directory. Unmatched commands fail.
type MockRunner struct {
	mu        sync.Mutex
	responses map[string]response
	scoped    map[string]response
	calls     []Call
}

// NewMockRunner creates an empty MockRunner.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		responses: make(map[string]response),
		scoped:    make(map[string]response),
	}
}

// Expectation is returned by OnCommand to attach a response.
type Expectation struct {
	runner *MockRunner
	dir    string
	key    string
	scoped bool
}

// OnCommand registers a response for name+args in any directory.
func (m *MockRunner) OnCommand(name string, args ...string) *Expectation {
	return &Expectation{runner: m, key: commandKey(name, args...)}
}

// OnCommandIn registers a response for name+args run in dir. Scoped
// responses take precedence over OnCommand responses.
func (m *MockRunner) OnCommandIn(dir, name string, args ...string) *Expectation {
	return &Expectation{runner: m, dir: dir, key: commandKey(name, args...), scoped: true}
}

// Return sets stdout and the error for the expectation.
func (e *Expectation) Return(stdout string, err error) {
	e.ReturnOutput(Output{Stdout: stdout}, err)
}

// ReturnOutput sets the full Output and the error for the expectation.
func (e *Expectation) ReturnOutput(out Output, err error) {
	e.runner.mu.Lock()
	defer e.runner.mu.Unlock()
	if e.scoped {
		e.runner.scoped[e.dir+"\x01"+e.key] = response{out: out, err: err}
		return
	}
	e.runner.responses[e.key] = response{out: out, err: err}
}

// Run implements CommandRunner.
func (m *MockRunner) Run(ctx context.Context, dir, name string, args ...string) (Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := Call{Dir: dir, Name: name, Args: append([]string(nil), args...)}
	m.calls = append(m.calls, call)

	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	if resp, ok := m.scoped[dir+"\x01"+call.key()]; ok {
		return resp.out, resp.err
	}
	if resp, ok := m.responses[call.key()]; ok {
		return resp.out, resp.err
	}
	return Output{}, fmt.Errorf("mock runner: unexpected command %s %s", name, strings.Join(args, " "))
}

// WasCalled reports whether name+args was run in any directory.
func (m *MockRunner) WasCalled(name string, args ...string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := commandKey(name, args...)
	for _, c := range m.calls {
		if c.key() == want {
			return true
		}
	}
	return false
}

// Calls returns a copy of all recorded calls in order.
func (m *MockRunner) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// SequentialMockRunner returns queued responses in call order regardless
// of the command. Running past the end of the queue fails.
type SequentialMockRunner struct {
	mu        sync.Mutex
	responses []response
	calls     []Call
}

// NewSequentialMockRunner creates an empty SequentialMockRunner.
func NewSequentialMockRunner() *SequentialMockRunner {
	return &SequentialMockRunner{}
}

// AddOutput queues a response with the given stdout.
func (s *SequentialMockRunner) AddOutput(stdout string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, response{out: Output{Stdout: stdout}, err: err})
}

// AddOutputError queues a response with stdout and stderr.
func (s *SequentialMockRunner) AddOutputError(stdout, stderr string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, response{out: Output{Stdout: stdout, Stderr: stderr}, err: err})
}

// Run implements CommandRunner.
func (s *SequentialMockRunner) Run(_ context.Context, dir, name string, args ...string) (Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Dir: dir, Name: name, Args: append([]string(nil), args...)})
	if len(s.responses) == 0 {
		return Output{}, fmt.Errorf("sequential mock runner: no response queued for %s %s", name, strings.Join(args, " "))
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp.out, resp.err
}

// Calls returns a copy of all recorded calls in order.
func (s *SequentialMockRunner) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}
