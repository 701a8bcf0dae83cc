package teatime

import (
	"context"
	"encoding/json"

	"github.com/teatime-io/teatime/internal/constants"
)

// Paginator is the minimal surface autopagination walks: the request
// operation plus continuation discovery. *Client satisfies it, as does every
// binding, so bindings with vendor-specific continuation rules override
// NextPage and the helpers below pick that up.
type Paginator interface {
	Do(ctx context.Context, req *Request) (*Response, error)
	NextPage(resp *Response) (Target, bool, error)
}

// NextPage extracts the continuation target from a response using the Link
// header. A missing header or a missing "next" relation means no continuation
// and reports ok=false; a malformed header is a ParseError, never silently
// swallowed.
func (c *Client) NextPage(resp *Response) (Target, bool, error) {
	links, present, err := resp.Links()
	if err != nil {
		return Target{}, false, err
	}

	if !present || !links.HasNext() {
		return Target{}, false, nil
	}

	next, err := Abs(links.Next)
	if err != nil {
		return Target{}, false, err
	}

	return next, true, nil
}

// PaginationOptions bounds an autopaginated fetch.
type PaginationOptions struct {
	// MaxPages stops the walk after this many pages. Zero means unbounded.
	MaxPages int
}

// RequestPaged fetches every page of a paginated collection and returns the
// decoded payloads in server traversal order.
func (c *Client) RequestPaged(ctx context.Context, method string, target Target, params Params) ([]any, error) {
	return FetchAllPages(ctx, c, method, target, params, nil)
}

// FetchAllPages drives the autopagination state machine: request the current
// target, decode the body, record the page, then follow the "next" relation
// until a response carries none. Pages are fetched strictly one at a time so
// the returned order equals the server-declared traversal order. On failure
// the fetch fails as a whole; the PaginationError carries the pages decoded
// before the fault for callers who explicitly opt in via errors.As.
func FetchAllPages(ctx context.Context, pager Paginator, method string, target Target, params Params, opts *PaginationOptions) ([]any, error) {
	maxPages := constants.DefaultMaxPages
	if opts != nil {
		maxPages = opts.MaxPages
	}

	pages := make([]any, 0)
	current := target

	for pageIndex := 0; ; pageIndex++ {
		if maxPages > 0 && pageIndex >= maxPages {
			break
		}

		resp, err := pager.Do(ctx, NewRequest(method, current).WithParams(params))
		if err != nil {
			return nil, &PaginationError{PageIndex: pageIndex, Pages: pages, Err: err}
		}

		page, err := DecodeBody(resp)
		if err != nil {
			return nil, &PaginationError{PageIndex: pageIndex, Pages: pages, Err: err}
		}

		pages = append(pages, page)

		next, more, err := pager.NextPage(resp)
		if err != nil {
			return nil, &PaginationError{PageIndex: pageIndex, Pages: pages, Err: err}
		}

		if !more {
			break
		}

		current = next
	}

	return pages, nil
}

// PageIterator walks a paginated collection one page per Next call, for
// callers that want to stop early or interleave work between pages.
type PageIterator struct {
	ctx     context.Context
	pager   Paginator
	method  string
	current Target
	params  Params
	done    bool
}

// NewPageIterator creates an iterator positioned before the first page.
func NewPageIterator(ctx context.Context, pager Paginator, method string, target Target, params Params) *PageIterator {
	return &PageIterator{
		ctx:     ctx,
		pager:   pager,
		method:  method,
		current: target,
		params:  params,
	}
}

// HasNext reports whether another page is available. It is true before the
// first fetch.
func (it *PageIterator) HasNext() bool {
	return !it.done
}

// Next fetches and decodes the next page. An error terminates the iterator.
func (it *PageIterator) Next() (any, error) {
	if it.done {
		return nil, ErrNoNextPage
	}

	resp, err := it.pager.Do(it.ctx, NewRequest(it.method, it.current).WithParams(it.params))
	if err != nil {
		it.done = true

		return nil, err
	}

	page, err := DecodeBody(resp)
	if err != nil {
		it.done = true

		return nil, err
	}

	next, more, err := it.pager.NextPage(resp)
	if err != nil {
		it.done = true

		return nil, err
	}

	if more {
		it.current = next
	} else {
		it.done = true
	}

	return page, nil
}

// All drains the iterator and returns the remaining pages in order.
func (it *PageIterator) All() ([]any, error) {
	pages := make([]any, 0)

	for it.HasNext() {
		page, err := it.Next()
		if err != nil {
			return nil, err
		}

		pages = append(pages, page)
	}

	return pages, nil
}

// ForEach applies fn to each remaining page, stopping on the first error.
func (it *PageIterator) ForEach(fn func(page any) error) error {
	for it.HasNext() {
		page, err := it.Next()
		if err != nil {
			return err
		}

		err = fn(page)
		if err != nil {
			return err
		}
	}

	return nil
}

// PageResult is one streamed page or the error that ended the stream.
type PageResult struct {
	Index int
	Page  any
	Err   error
}

// StreamPages fetches pages sequentially and delivers them on a channel. The
// channel closes after the last page or the first error; an error is the
// final result sent. Cancellation of ctx stops the stream.
func StreamPages(ctx context.Context, pager Paginator, method string, target Target, params Params, opts *PaginationOptions) <-chan PageResult {
	results := make(chan PageResult, constants.StreamPageBuffer)

	go func() {
		defer close(results)

		maxPages := constants.DefaultMaxPages
		if opts != nil {
			maxPages = opts.MaxPages
		}

		iterator := NewPageIterator(ctx, pager, method, target, params)

		for index := 0; iterator.HasNext(); index++ {
			if maxPages > 0 && index >= maxPages {
				return
			}

			page, err := iterator.Next()

			result := PageResult{Index: index, Page: page, Err: err}
			select {
			case results <- result:
			case <-ctx.Done():
				return
			}

			if err != nil {
				return
			}
		}
	}()

	return results
}

// DecodeItems converts a decoded page into typed items by round-tripping
// through JSON, for pages whose payload is an array of objects.
func DecodeItems[T any](page any) ([]T, error) {
	raw, err := json.Marshal(page)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	var items []T

	err = json.Unmarshal(raw, &items)
	if err != nil {
		return nil, &DecodeError{Body: raw, Err: err}
	}

	return items, nil
}
