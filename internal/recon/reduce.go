package recon

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultFanIn is the number of entities merged per node of a parallel reduction.
const DefaultFanIn = 4

// Reduce folds entities left to right into a new entity. The inputs are not
// modified.
func Reduce(entities ...*ReconEntity) *ReconEntity {
	out := NewReconEntity()
	for _, e := range entities {
		out.AddReconEntity(e)
	}
	return out
}

// ParallelReduce merges entities as a tree, reducing each group of fanIn entities
// in its own goroutine until one remains. The result equals Reduce(entities...).
func ParallelReduce(ctx context.Context, entities []*ReconEntity, fanIn int) (*ReconEntity, error) {
	if fanIn < 2 {
		fanIn = DefaultFanIn
	}
	if len(entities) == 0 {
		return NewReconEntity(), nil
	}

	level := entities
	for len(level) > 1 {
		next := make([]*ReconEntity, (len(level)+fanIn-1)/fanIn)
		g, gctx := errgroup.WithContext(ctx)
		for i := range next {
			lo := i * fanIn
			hi := lo + fanIn
			if hi > len(level) {
				hi = len(level)
			}
			group := level[lo:hi]
			slot := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				next[slot] = Reduce(group...)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		level = next
	}
	return Reduce(level[0]), nil
}
