package streaming

import (
	"context"
	"io"
	"log/slog"
	"time"

	"nexusgate/pkg/adapters"
	"nexusgate/pkg/proxy/types"
)

// Pipeline drives one streaming response from an upstream body to the
// caller's SSE connection.
type Pipeline struct {
	adapter adapters.Adapter

	// OnFirstChunk, when set, observes time-to-first-byte.
	OnFirstChunk func(elapsed time.Duration)
}

// NewPipeline builds a pipeline for the adapter.
func NewPipeline(adapter adapters.Adapter) *Pipeline {
	return &Pipeline{adapter: adapter}
}

// streamItem is what the upstream reader hands the caller writer.
type streamItem struct {
	chunk *types.ChatCompletionChunk
	err   *types.Error
}

// Run consumes a native upstream stream and re-frames it for the caller.
// It always terminates the downstream stream with the [DONE] sentinel,
// emitting an in-band error event first when the upstream fails mid-flight.
//
// The reader goroutine and the writer are joined by a single-slot channel:
// when the caller stops draining, the upstream read stops one chunk later.
// Caller disconnects cancel ctx, which closes the upstream body and
// unblocks the reader.
func (p *Pipeline) Run(ctx context.Context, body io.ReadCloser, w *Writer) error {
	start := time.Now()
	items := make(chan streamItem, 1)

	// Closing the body on cancellation aborts a blocked read.
	readerCtx, stopReader := context.WithCancel(ctx)
	defer stopReader()
	go func() {
		<-readerCtx.Done()
		body.Close()
	}()

	go p.readUpstream(readerCtx, body, items)

	firstChunk := true
	var streamID string

	for {
		select {
		case <-ctx.Done():
			// Caller went away; nothing more can be delivered.
			return types.AsError(contextCause(ctx))

		case item, ok := <-items:
			if !ok {
				return w.WriteDone()
			}
			if item.err != nil {
				slog.Debug("upstream stream failed", "kind", item.err.Kind)
				if err := w.WriteError(item.err); err != nil {
					return err
				}
				if err := w.WriteDone(); err != nil {
					return err
				}
				return item.err
			}

			if firstChunk {
				firstChunk = false
				streamID = item.chunk.ID
				if p.OnFirstChunk != nil {
					p.OnFirstChunk(time.Since(start))
				}
			} else if streamID != "" {
				// Backends that synthesize per-record ids get one
				// stable id per stream.
				item.chunk.ID = streamID
			}

			if err := w.WriteChunk(item.chunk); err != nil {
				return types.WrapError(types.KindCanceled, "caller write failed", err)
			}
		}
	}
}

// readUpstream parses upstream records and feeds the bounded channel until
// the stream ends, fails, the consumer goes away, or the body is closed
// under it.
func (p *Pipeline) readUpstream(ctx context.Context, body io.ReadCloser, items chan<- streamItem) {
	defer close(items)
	defer body.Close()

	var reader EventReader
	switch p.adapter.Framing() {
	case adapters.FramingNDJSON:
		reader = NewLineReader(body, DefaultMaxEventBytes)
	default:
		reader = NewSSEReader(body, DefaultMaxEventBytes)
	}

	send := func(item streamItem) bool {
		select {
		case items <- item:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			send(streamItem{err: types.AsError(err)})
			return
		}

		chunks, terminal, parseErr := p.adapter.ParseStreamChunk(event)
		if parseErr != nil {
			send(streamItem{err: types.AsError(parseErr)})
			return
		}
		for _, chunk := range chunks {
			if !send(streamItem{chunk: chunk}) {
				return
			}
		}
		if terminal {
			return
		}
	}
}

// Synthesize emits a synthetic stream for a completed unary response: one
// chunk per choice carrying the full content, then the sentinel. Content
// is never truncated.
func Synthesize(resp *types.ChatCompletionResponse, w *Writer) error {
	for _, choice := range resp.Choices {
		chunk := &types.ChatCompletionChunk{
			ID:      resp.ID,
			Object:  types.ObjectChatCompletionChunk,
			Created: resp.Created,
			Model:   resp.Model,
			Choices: []types.ChunkChoice{{
				Index: choice.Index,
				Delta: types.Delta{
					Role:      types.RoleAssistant,
					Content:   choice.Message.Content,
					ToolCalls: choice.Message.ToolCalls,
				},
				FinishReason: choice.FinishReason,
			}},
		}
		if choice.Index == len(resp.Choices)-1 {
			usage := resp.Usage
			chunk.Usage = &usage
		}
		if err := w.WriteChunk(chunk); err != nil {
			return err
		}
	}
	return w.WriteDone()
}

// SynthesizeError terminates a stream that failed before producing any
// upstream content: one error event, then the sentinel.
func SynthesizeError(gatewayErr *types.Error, w *Writer) error {
	if err := w.WriteError(gatewayErr); err != nil {
		return err
	}
	return w.WriteDone()
}

// contextCause maps a done context to its taxonomy error.
func contextCause(ctx context.Context) error {
	if err := ctx.Err(); err == context.DeadlineExceeded {
		return &types.Error{Kind: types.KindTimeout, Message: "deadline exceeded mid-stream", Cause: err}
	}
	return &types.Error{Kind: types.KindCanceled, Message: "caller disconnected", Cause: ctx.Err()}
}
