// Package aggregator reconciles on-ledger state with content-addressed
// documents into merged read views. Reads degrade per item: an animal or
// record whose document cannot be resolved is omitted from the batch, and a
// batch read never fails as a whole because one item did.
package aggregator

import (
	"context"
	"encoding/json"
	"errors"

	concpool "github.com/sourcegraph/conc/pool"
	"golang.org/x/sync/errgroup"

	"github.com/pasaporte-animal/go-pasaporte/service/logger"
	"github.com/pasaporte-animal/go-pasaporte/service/persist"
	sentryutil "github.com/pasaporte-animal/go-pasaporte/service/sentry"
)

// LedgerReader is the slice of the ledger gateway the aggregator reads from.
type LedgerReader interface {
	BalanceOf(ctx context.Context, owner persist.EthereumAddress) (uint64, error)
	ChipOfOwnerByIndex(ctx context.Context, owner persist.EthereumAddress, index uint64) (persist.ChipID, error)
	TokenURI(ctx context.Context, chipID persist.ChipID) (persist.TokenURI, error)
	MedicalHistory(ctx context.Context, chipID persist.ChipID) ([]persist.CID, error)
	HealthState(ctx context.Context, chipID persist.ChipID) (persist.HealthState, error)
}

// ContentFetcher resolves a CID to the raw document pinned under it.
type ContentFetcher interface {
	Fetch(ctx context.Context, cid persist.CID) ([]byte, error)
}

// Aggregator merges ledger rows with their off-ledger documents.
type Aggregator struct {
	ledger  LedgerReader
	fetcher ContentFetcher
}

func New(ledger LedgerReader, fetcher ContentFetcher) *Aggregator {
	return &Aggregator{ledger: ledger, fetcher: fetcher}
}

// ListOwnedChipIDs enumerates the chip ids held by owner. An owner unknown
// to the registry, or a ledger that cannot be reached, yields an empty list
// rather than an error so callers can always render something.
func (a *Aggregator) ListOwnedChipIDs(ctx context.Context, owner persist.EthereumAddress) []persist.ChipID {
	balance, err := a.ledger.BalanceOf(ctx, owner)
	if err != nil {
		logger.For(ctx).Warnf("could not read balance for %s: %s", owner, err)
		return []persist.ChipID{}
	}

	chipIDs := make([]persist.ChipID, 0, balance)
	for i := uint64(0); i < balance; i++ {
		chipID, err := a.ledger.ChipOfOwnerByIndex(ctx, owner, i)
		if err != nil {
			logger.For(ctx).Warnf("could not read chip at index %d for %s: %s", i, owner, err)
			continue
		}
		chipIDs = append(chipIDs, chipID)
	}
	return chipIDs
}

// ListOwnedAnimals is the full owner view: enumerate then resolve.
func (a *Aggregator) ListOwnedAnimals(ctx context.Context, owner persist.EthereumAddress) []persist.AnimalView {
	return a.ResolveAnimalViews(ctx, a.ListOwnedChipIDs(ctx, owner))
}

type viewResult struct {
	index int
	view  persist.AnimalView
	err   error
}

// ResolveAnimalViews resolves each chip id into a merged view: the pinned
// metadata document joined with the live health state. Every id is resolved
// concurrently; ids whose URI, fetch, or decode fails are dropped from the
// result, preserving the input order of the rest.
func (a *Aggregator) ResolveAnimalViews(ctx context.Context, chipIDs []persist.ChipID) []persist.AnimalView {
	if len(chipIDs) == 0 {
		return []persist.AnimalView{}
	}

	resultCh := make(chan viewResult)
	for i, chipID := range chipIDs {
		go func(i int, chipID persist.ChipID) {
			view, err := a.resolveAnimalView(ctx, chipID)
			resultCh <- viewResult{index: i, view: view, err: err}
		}(i, chipID)
	}

	ordered := make([]*persist.AnimalView, len(chipIDs))
	for range chipIDs {
		res := <-resultCh
		if res.err != nil {
			reportDrop(ctx, res.err)
			logger.For(ctx).Warnf("dropping chip %d from view: %s", chipIDs[res.index], res.err)
			continue
		}
		view := res.view
		ordered[res.index] = &view
	}

	views := make([]persist.AnimalView, 0, len(chipIDs))
	for _, view := range ordered {
		if view != nil {
			views = append(views, *view)
		}
	}
	return views
}

// resolveAnimalView reads the URI and health state concurrently, then fetches
// and decodes the metadata document.
func (a *Aggregator) resolveAnimalView(ctx context.Context, chipID persist.ChipID) (persist.AnimalView, error) {
	var (
		uri   persist.TokenURI
		state persist.HealthState
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		uri, err = a.ledger.TokenURI(egCtx, chipID)
		return err
	})
	eg.Go(func() error {
		var err error
		state, err = a.ledger.HealthState(egCtx, chipID)
		return err
	})
	if err := eg.Wait(); err != nil {
		return persist.AnimalView{}, err
	}

	cid, err := uri.CID()
	if err != nil {
		return persist.AnimalView{}, err
	}

	data, err := a.fetcher.Fetch(ctx, cid)
	if err != nil {
		return persist.AnimalView{}, err
	}

	metadata := persist.AnimalMetadata{}
	if err := json.Unmarshal(data, &metadata); err != nil {
		return persist.AnimalView{}, err
	}

	return persist.AnimalView{
		ChipID:        chipID,
		EstadoDeSalud: state,
		Metadata:      metadata,
	}, nil
}

// ResolveMedicalHistory returns the decoded medical records for an animal in
// ledger order, each annotated with the CID it was resolved from. Records
// that cannot be fetched or decoded are dropped; an animal with no records
// yields an empty list. Only the ledger read itself can fail the call.
func (a *Aggregator) ResolveMedicalHistory(ctx context.Context, chipID persist.ChipID) ([]persist.MedicalRecordView, error) {
	cids, err := a.ledger.MedicalHistory(ctx, chipID)
	if err != nil {
		return nil, err
	}
	if len(cids) == 0 {
		return []persist.MedicalRecordView{}, nil
	}

	resolved := make([]*persist.MedicalRecordView, len(cids))
	wp := concpool.New()
	for i, cid := range cids {
		i, cid := i, cid
		wp.Go(func() {
			record, err := a.resolveMedicalRecord(ctx, cid)
			if err != nil {
				reportDrop(ctx, err)
				logger.For(ctx).Warnf("dropping record %s for chip %d: %s", cid, chipID, err)
				return
			}
			resolved[i] = record
		})
	}
	wp.Wait()

	records := make([]persist.MedicalRecordView, 0, len(cids))
	for _, record := range resolved {
		if record != nil {
			records = append(records, *record)
		}
	}
	return records, nil
}

// reportDrop forwards transport-class failures to error reporting. Routine
// drops (bad URI scheme, undecodable document) stay log-only.
func reportDrop(ctx context.Context, err error) {
	var gateway persist.ErrGatewayUnavailable
	var store persist.ErrStoreUnavailable
	if errors.As(err, &gateway) || errors.As(err, &store) {
		sentryutil.ReportError(ctx, err)
	}
}

func (a *Aggregator) resolveMedicalRecord(ctx context.Context, cid persist.CID) (*persist.MedicalRecordView, error) {
	data, err := a.fetcher.Fetch(ctx, cid)
	if err != nil {
		return nil, err
	}

	var record persist.MedicalRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}

	return &persist.MedicalRecordView{CID: cid, MedicalRecord: record}, nil
}
