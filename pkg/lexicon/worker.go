package lexicon

import (
	"fmt"

	"github.com/CTAG07/Lexicogenesis/pkg/markov"
)

// BuildRequest is the message handed to a background builder. Entries is a
// private copy owned by the builder for the duration of the build.
type BuildRequest struct {
	Entries []string
	Order   int
}

// BuildResponse carries either the built table as a snapshot or the reason
// the build failed.
type BuildResponse struct {
	Snapshot markov.Snapshot
	Err      error
}

// Builder turns a request into a response. It runs on its own goroutine and
// shares nothing with the caller other than the request it was given.
type Builder func(BuildRequest) BuildResponse

// BuildCharSnapshot trains a character table on the request's entries. A
// corpus in which no entry reaches the order is reported as
// markov.ErrInsufficientData, so it is never adopted over a working model.
func BuildCharSnapshot(req BuildRequest) BuildResponse {
	table, err := markov.Build[rune](req.Entries, req.Order, markov.CharTokenizer{})
	if err != nil {
		return BuildResponse{Err: err}
	}
	snapshot := table.Snapshot()
	if len(snapshot.StartStates) == 0 {
		return BuildResponse{Err: fmt.Errorf("%w: no entry has %d characters", markov.ErrInsufficientData, req.Order)}
	}
	return BuildResponse{Snapshot: snapshot}
}

// startWorker runs build on a new goroutine and returns the one-shot channel
// its response will arrive on. A panicking builder is reported as an error.
func startWorker(build Builder, req BuildRequest) <-chan BuildResponse {
	reply := make(chan BuildResponse, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				reply <- BuildResponse{Err: fmt.Errorf("builder panicked: %v", r)}
			}
		}()
		reply <- build(req)
	}()
	return reply
}
