package batch

// Printer receives decoded worker console output chunks.
type Printer interface {
	Print(text string)
}

// OutputRelay forwards worker output chunks to a sink in arrival
// order. It must only be used from the coordinating goroutine: the
// chunk channel has exactly one reader.
type OutputRelay struct {
	chunks <-chan string
}

// NewOutputRelay wraps the worker's output channel.
func NewOutputRelay(chunks <-chan string) *OutputRelay {
	return &OutputRelay{chunks: chunks}
}

// Drain forwards every currently available chunk without blocking.
func (r *OutputRelay) Drain(sink Printer) {
	for {
		select {
		case chunk, ok := <-r.chunks:
			if !ok {
				return
			}
			sink.Print(chunk)
		default:
			return
		}
	}
}

// Flush forwards all remaining chunks until the channel closes. Call
// only after the worker completed, when the pipe is guaranteed to
// reach EOF.
func (r *OutputRelay) Flush(sink Printer) {
	for chunk := range r.chunks {
		sink.Print(chunk)
	}
}
