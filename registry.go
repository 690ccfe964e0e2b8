package toolbox

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Registry holds tools by name and dispatches calls to them with optional timeout,
// semaphore, and panic recovery. All methods are safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	tools        map[string]Tool // wrapped with middlewares, used by Call
	rawTools     map[string]Tool // unwrapped, used by Use() to re-apply middlewares from scratch
	descriptions map[string]string
	signatures   map[string]Signature
	middlewares  []Middleware

	sem     chan struct{}
	opts    registryOptions
	done    chan struct{}
	running sync.WaitGroup
}

// NewRegistry creates an empty Registry with the given options.
func NewRegistry(opts ...RegistryOption) *Registry {
	o := defaultRegistryOptions()
	for _, opt := range opts {
		opt(&o)
	}
	var sem chan struct{}
	if o.maxConcurrency > 0 {
		sem = make(chan struct{}, o.maxConcurrency)
	}
	return &Registry{
		tools:        make(map[string]Tool),
		rawTools:     make(map[string]Tool),
		descriptions: make(map[string]string),
		signatures:   make(map[string]Signature),
		sem:          sem,
		opts:         o,
		done:         make(chan struct{}),
	}
}

// Register adds a tool. Stored middlewares (see Use) are applied before it is stored.
// Returns a KindAlreadyRegistered error if the name is taken; the existing tool is kept.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return invalidTool("", "tool must not be nil")
	}
	name := t.Name()
	if name == "" {
		return invalidTool("", "tool name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rawTools[name]; exists {
		return alreadyRegistered(name)
	}
	r.rawTools[name] = t
	r.tools[name] = r.wrap(t)
	r.descriptions[name] = t.Description()
	r.signatures[name] = t.Signature()
	return nil
}

// Unregister removes a tool and its description and signature. Schemas cached by the
// schema engine are left alone. Returns a KindFunctionNotFound error if the name is unknown.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rawTools[name]; !exists {
		return notFound(name)
	}
	delete(r.rawTools, name)
	delete(r.tools, name)
	delete(r.descriptions, name)
	delete(r.signatures, name)
	return nil
}

// wrap applies the middleware chain; caller holds r.mu.
func (r *Registry) wrap(t Tool) Tool {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		t = r.middlewares[i](t)
	}
	return t
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames()
}

func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Tools returns all registered tools (after middlewares are applied), sorted by name.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, name := range r.sortedNames() {
		out = append(out, r.tools[name])
	}
	return out
}

// Tool returns the tool with the given name (after middlewares are applied).
func (r *Registry) Tool(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Descriptions returns name and doc string of every tool, sorted by name.
func (r *Registry) Descriptions() []Description {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Description, 0, len(r.descriptions))
	for _, name := range r.sortedNames() {
		out = append(out, Description{Name: name, Description: r.descriptions[name]})
	}
	return out
}

// Signatures returns the Go input and output type names of every tool, sorted by name.
func (r *Registry) Signatures() []Signature {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Signature, 0, len(r.signatures))
	for _, name := range r.sortedNames() {
		out = append(out, r.signatures[name])
	}
	return out
}

// Call dispatches one call. The registry lock is held only for the lookup, never while
// the tool runs. On failure the returned response still carries the call ID and name,
// and err is a *ToolError.
func (r *Registry) Call(ctx context.Context, call FunctionCall) (resp FunctionResponse, err error) {
	if call.ID == "" && r.opts.generateIDs {
		call.ID = NewCallID()
	}
	resp = FunctionResponse{ID: call.ID, Name: call.Name}

	r.mu.RLock()
	select {
	case <-r.done:
		r.mu.RUnlock()
		return resp, &ToolError{Kind: KindRuntime, Name: call.Name, Message: ErrShutdown.Error(), Err: ErrShutdown}
	default:
	}
	t, ok := r.tools[call.Name]
	if !ok {
		r.mu.RUnlock()
		return resp, notFound(call.Name)
	}
	r.running.Add(1)
	r.mu.RUnlock()
	defer r.running.Done()

	if err = r.acquireSemaphore(ctx); err != nil {
		return resp, waitError(call.Name, err)
	}
	defer r.releaseSemaphore()

	timeout := r.opts.timeout
	if tm, ok := t.(ToolMetadata); ok && tm.Timeout() > 0 {
		timeout = tm.Timeout()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	// The after-call hook is registered before recovery so that it runs last and sees the
	// error produced from a panic.
	if r.opts.onAfter != nil {
		defer func() {
			r.opts.onAfter(ctx, Outcome{Call: call, Response: resp, Err: err, Duration: time.Since(start)})
		}()
	}
	if r.opts.recoverPanics {
		defer func() {
			if p := recover(); p != nil {
				pe := &panicError{p: p}
				resp.Result = nil
				err = &ToolError{Kind: KindRuntime, Name: call.Name, Message: pe.Error(), Err: pe}
			}
		}()
	}
	if r.opts.onBefore != nil {
		r.opts.onBefore(ctx, call)
	}

	out, err := t.Invoke(ctx, call.Arguments)
	if err != nil {
		return resp, timeoutError(ctx, call.Name, runtimeError(call.Name, err))
	}
	resp.Result = out
	return resp, nil
}

// waitError reports a context that ended while waiting for a semaphore slot.
func waitError(name string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ToolError{Kind: KindRuntime, Name: name, Message: ErrTimeout.Error(), Err: fmt.Errorf("%w: %w", ErrTimeout, err)}
	}
	return &ToolError{Kind: KindRuntime, Name: name, Message: err.Error(), Err: err}
}

// timeoutError marks a runtime failure caused by an expired deadline so that
// errors.Is(err, ErrTimeout) holds. Client errors are returned unchanged.
func timeoutError(ctx context.Context, name string, err error) error {
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) || IsClientError(err) || errors.Is(err, ErrTimeout) {
		return err
	}
	return &ToolError{Kind: KindRuntime, Name: name, Message: ErrTimeout.Error(), Err: fmt.Errorf("%w: %w", ErrTimeout, err)}
}

func (r *Registry) acquireSemaphore(ctx context.Context) error {
	if r.sem == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	select {
	case r.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Registry) releaseSemaphore() {
	if r.sem != nil {
		<-r.sem
	}
}

// CallBatch runs all calls in parallel and returns one Outcome per call, in input order.
// A failing call does not cancel the others.
func (r *Registry) CallBatch(ctx context.Context, calls []FunctionCall) []Outcome {
	out := make([]Outcome, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Go(func() {
			start := time.Now()
			resp, err := r.Call(ctx, call)
			call.ID = resp.ID
			out[i] = Outcome{Call: call, Response: resp, Err: err, Duration: time.Since(start)}
		})
	}
	wg.Wait()
	return out
}

// Shutdown closes the registry for new calls and waits for in-flight calls or ctx to end.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	select {
	case <-r.done:
		r.mu.Unlock()
		return nil
	default:
		close(r.done)
	}
	r.mu.Unlock()
	done := make(chan struct{})
	go func() {
		r.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
