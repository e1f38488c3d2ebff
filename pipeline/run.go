package pipeline

import (
	"context"
	"hash/fnv"
	"sync"

	"go.uber.org/zap"

	"github.com/AndreasM009/entitystore-go/store"
)

// Result reports the outcome of one event processed by Run
type Result struct {
	EntityUID string
	EventKey  string
	Outcome   Outcome
	Err       error
}

// Run processes events until events is closed or ctx is done. Events are
// partitioned by entity uid over the workers, so events of one entity are
// processed in order by a single worker. The returned channel is closed once
// every worker has stopped.
func (p *Processor) Run(ctx context.Context, events <-chan *store.Entity) <-chan Result {
	results := make(chan Result, p.workers)
	partitions := make([]chan *store.Entity, p.workers)
	wg := &sync.WaitGroup{}

	for i := range partitions {
		partitions[i] = make(chan *store.Entity)

		wg.Add(1)
		go func(in <-chan *store.Entity) {
			defer wg.Done()
			for e := range in {
				res := resultOf(e)
				res.Outcome, res.Err = p.Process(ctx, e)
				if res.Err != nil {
					p.log.Warn("processing event failed",
						zap.String("entityUid", res.EntityUID),
						zap.String("eventKey", res.EventKey),
						zap.Error(res.Err))
				}

				select {
				case results <- res:
				case <-ctx.Done():
				}
			}
		}(partitions[i])
	}

	// dispatch
	go func() {
		defer func() {
			for _, partition := range partitions {
				close(partition)
			}
			wg.Wait()
			close(results)
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}

				select {
				case partitions[p.partition(resultOf(e).EntityUID)] <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return results
}

func (p *Processor) partition(uid string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(uid))
	return int(h.Sum32() % uint32(p.workers))
}

// resultOf returns a Result carrying the identity of e, nil events have none
func resultOf(e *store.Entity) Result {
	if e == nil {
		return Result{}
	}
	return Result{EntityUID: e.EntityUID(), EventKey: e.EventKey()}
}
