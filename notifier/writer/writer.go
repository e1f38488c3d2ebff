// Package writer provides a notifier writing JSON lines to an io.Writer.
package writer

import (
	"context"
	"io"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/AndreasM009/entitystore-go/notifier"
	"github.com/AndreasM009/entitystore-go/store"
)

type writer struct {
	encoder *json.Encoder
	closer  io.Closer
	mutex   sync.Mutex
}

// NewNotifier creates a notifier writing one output entity per line to w.
// Close closes w if it is an io.Closer.
func NewNotifier(w io.Writer) notifier.Notifier {
	n := &writer{encoder: json.NewEncoder(w)}
	if c, ok := w.(io.Closer); ok {
		n.closer = c
	}
	return n
}

func (n *writer) Notify(ctx context.Context, entity *store.Entity) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n.mutex.Lock()
	defer n.mutex.Unlock()

	return n.encoder.Encode(entity.OutputView())
}

func (n *writer) Close() error {
	if n.closer == nil {
		return nil
	}
	return n.closer.Close()
}
