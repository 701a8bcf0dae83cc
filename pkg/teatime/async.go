package teatime

import (
	"context"
)

// Pending is the handle for a request started with Begin. The dominant
// pattern is the blocking Do; Begin exists for callers who want to overlap
// independent requests and resolve them later.
type Pending struct {
	done chan struct{}
	resp *Response
	err  error
}

// Begin dispatches the request on its own goroutine and returns immediately.
// Resolve the handle with Wait or WaitJSON; results are ready once Done is
// closed.
func (c *Client) Begin(ctx context.Context, req *Request) *Pending {
	pending := &Pending{done: make(chan struct{})}

	go func() {
		defer close(pending.done)
		pending.resp, pending.err = c.Do(ctx, req)
	}()

	return pending
}

// Wait blocks until the round trip completes and returns its result. Calling
// Wait more than once returns the same result.
func (p *Pending) Wait() (*Response, error) {
	<-p.done

	return p.resp, p.err
}

// WaitJSON blocks like Wait and decodes the response body to JSON.
func (p *Pending) WaitJSON() (any, error) {
	resp, err := p.Wait()
	if err != nil {
		return nil, err
	}

	return DecodeBody(resp)
}

// Done is closed when the request has resolved, for use in select loops.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}
