package compaction

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/rocks"
)

// Run drives one compaction-filter sweep: a fresh Filter (so its decision
// cache never outlives a reopen) scanning the Data CF and Score CF
// concurrently, since the two families are independent on disk and share
// only the filter's read-through cache/singleflight group.
func Run(engine *rocks.Engine, snapshotFlag *int32) (removed int, err error) {
	f := NewFilter(engine, snapshotFlag)

	var dataRemoved, scoreRemoved int
	g, _ := errgroup.WithContext(context.Background())
	g.Go(func() error {
		n, err := engine.FilterCF(codec.CFData, f)
		dataRemoved = n
		return err
	})
	g.Go(func() error {
		n, err := engine.FilterCF(codec.CFScore, f)
		scoreRemoved = n
		return err
	})
	if err := g.Wait(); err != nil {
		return dataRemoved + scoreRemoved, err
	}
	return dataRemoved + scoreRemoved, nil
}
