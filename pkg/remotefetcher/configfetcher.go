package remotefetcher

import (
	"context"
	"fmt"
)

// Outcome classifies a single conditional fetch.
type Outcome int

const (
	// Failed covers transport errors and every status other than 200 and 304.
	Failed Outcome = iota
	// Fresh means the server answered 200 with a full body.
	Fresh
	// NotModified means the server answered 304 for the validators we sent.
	NotModified
)

func (o Outcome) String() string {
	switch o {
	case Fresh:
		return "fresh"
	case NotModified:
		return "not-modified"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Validators are the cache validators captured from the last fresh response.
type Validators struct {
	ETag         string
	LastModified string
}

// IsZero reports whether neither validator was captured.
func (v *Validators) IsZero() bool {
	return v == nil || (v.ETag == "" && v.LastModified == "")
}

// FetchResult is what a Fetcher hands back for one request.
type FetchResult struct {
	Outcome Outcome

	// Body is only set for Fresh results and may be empty.
	Body []byte

	// Validators holds the validators of a Fresh response; nil if the server sent none.
	Validators *Validators

	// Err is only set for Failed results.
	Err error
}

type ConfigFetcher interface {
	// Fetch issues a GET against source, sending conditional headers built
	// from validators when they are non-nil. It never returns an error
	// directly; failures are reported through a Failed result.
	Fetch(ctx context.Context, source string, validators *Validators) FetchResult
}
