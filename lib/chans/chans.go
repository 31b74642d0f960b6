package chans

import (
	"context"
	"iter"
)

// ReceiveOrDoneSeq yields values received from ch until ch is closed or ctx is done,
// whichever comes first. Values still buffered in ch when ctx is done are not yielded.
func ReceiveOrDoneSeq[T any](ctx context.Context, ch <-chan T) iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-ch:
				if !ok || !yield(v) {
					return
				}
			}
		}
	}
}
