package hdkey

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/lightningnetwork/hdchain/keypath"
	"github.com/lightningnetwork/lnd/fn/v2"
	"golang.org/x/sync/errgroup"
)

// ScanResult holds the outcome of a ScanPublicChildren call.
type ScanResult struct {
	// Keys holds the derived children ordered by index. Indices that were
	// skipped have no entry.
	Keys []*ExtendedPublicKey

	// Skipped lists, in increasing order, the indices whose derivation
	// produced an invalid key.
	Skipped []uint32
}

// scanOptions holds the tunables of a scan.
type scanOptions struct {
	concurrency int
}

// defaultScanOptions returns the options used when none are given.
func defaultScanOptions() *scanOptions {
	return &scanOptions{
		concurrency: runtime.NumCPU(),
	}
}

// ScanOption is a functional option for ScanPublicChildren.
type ScanOption func(*scanOptions)

// WithConcurrency bounds the number of derivations running at once. Values
// below one are ignored.
func WithConcurrency(n int) ScanOption {
	return func(o *scanOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// ScanPublicChildren derives the public children of parent for count
// consecutive indices starting at start. Unlike DerivePublicKey, an index
// whose derivation yields an invalid key does not fail the call: it is
// recorded in ScanResult.Skipped and the scan carries on, which is what a
// wallet looking for used addresses wants.
//
// The range must stay below keypath.HardenedKeyStart. Cancelling ctx aborts
// the scan.
func ScanPublicChildren(ctx context.Context, parent *ExtendedPublicKey,
	start, count uint32, opts ...ScanOption) (*ScanResult, error) {

	if count == 0 {
		return &ScanResult{}, nil
	}

	last := uint64(start) + uint64(count) - 1
	if keypath.IsHardened(start) ||
		last >= uint64(keypath.HardenedKeyStart) {

		return nil, fmt.Errorf("%w: scan range %d..%d",
			ErrHardenedFromPublicKey, start, last)
	}

	cfg := defaultScanOptions()
	for _, opt := range opts {
		opt(cfg)
	}

	log.Debugf("Scanning %d public children from index %d with "+
		"concurrency %d", count, start, cfg.concurrency)

	// Each worker writes only to its own slot, so the slice needs no
	// locking.
	slots := make([]fn.Option[*ExtendedPublicKey], count)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.concurrency)

	for i := uint32(0); i < count; i++ {
		if gCtx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}

			child, err := DerivePublicKey(parent, start+i)
			switch {
			case errors.Is(err, ErrInvalidDerivedPoint):
				log.Debugf("Skipping invalid child %d", start+i)

				return nil

			case err != nil:
				return err
			}

			slots[i] = fn.Some(child)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &ScanResult{
		Keys: make([]*ExtendedPublicKey, 0, count),
	}
	for i, slot := range slots {
		slot.WhenSome(func(child *ExtendedPublicKey) {
			result.Keys = append(result.Keys, child)
		})
		if slot.IsNone() {
			result.Skipped = append(result.Skipped, start+uint32(i))
		}
	}

	return result, nil
}
