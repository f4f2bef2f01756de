package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pasaporte-animal/go-pasaporte/service/persist"
)

type fakeLedger struct {
	mu       sync.Mutex
	owned    map[persist.EthereumAddress][]persist.ChipID
	uris     map[persist.ChipID]persist.TokenURI
	states   map[persist.ChipID]persist.HealthState
	history  map[persist.ChipID][]persist.CID
	balErr   error
	uriErrs  map[persist.ChipID]error
	histErrs map[persist.ChipID]error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		owned:    map[persist.EthereumAddress][]persist.ChipID{},
		uris:     map[persist.ChipID]persist.TokenURI{},
		states:   map[persist.ChipID]persist.HealthState{},
		history:  map[persist.ChipID][]persist.CID{},
		uriErrs:  map[persist.ChipID]error{},
		histErrs: map[persist.ChipID]error{},
	}
}

func (f *fakeLedger) BalanceOf(ctx context.Context, owner persist.EthereumAddress) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balErr != nil {
		return 0, f.balErr
	}
	return uint64(len(f.owned[owner])), nil
}

func (f *fakeLedger) ChipOfOwnerByIndex(ctx context.Context, owner persist.EthereumAddress, index uint64) (persist.ChipID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	chips := f.owned[owner]
	if index >= uint64(len(chips)) {
		return 0, errors.New("index out of range")
	}
	return chips[index], nil
}

func (f *fakeLedger) TokenURI(ctx context.Context, chipID persist.ChipID) (persist.TokenURI, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.uriErrs[chipID]; err != nil {
		return "", err
	}
	return f.uris[chipID], nil
}

func (f *fakeLedger) MedicalHistory(ctx context.Context, chipID persist.ChipID) ([]persist.CID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.histErrs[chipID]; err != nil {
		return nil, err
	}
	return f.history[chipID], nil
}

func (f *fakeLedger) HealthState(ctx context.Context, chipID persist.ChipID) (persist.HealthState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[chipID], nil
}

type fakeFetcher struct {
	mu   sync.Mutex
	docs map[persist.CID][]byte
	errs map[persist.CID]error
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{docs: map[persist.CID][]byte{}, errs: map[persist.CID]error{}}
}

func (f *fakeFetcher) Fetch(ctx context.Context, cid persist.CID) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[cid]; err != nil {
		return nil, err
	}
	data, ok := f.docs[cid]
	if !ok {
		return nil, fmt.Errorf("not pinned: %s", cid)
	}
	return data, nil
}

func (f *fakeFetcher) putDoc(cid persist.CID, doc interface{}) {
	data, _ := json.Marshal(doc)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[cid] = data
}

func registerAnimal(ledger *fakeLedger, fetcher *fakeFetcher, chipID persist.ChipID, name string, state persist.HealthState) {
	cid := persist.CID(fmt.Sprintf("QmAnimal%d", chipID))
	ledger.uris[chipID] = persist.NewIPFSTokenURI(cid)
	ledger.states[chipID] = state
	fetcher.putDoc(cid, persist.AnimalDocument{Name: name, Description: "Perro - Mestizo"})
}

func TestListOwnedChipIDsUnknownOwnerIsEmpty(t *testing.T) {
	a := New(newFakeLedger(), newFakeFetcher())

	chips := a.ListOwnedChipIDs(context.Background(), "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	assert.Empty(t, chips)
}

func TestListOwnedChipIDsLedgerDownIsEmptyNotError(t *testing.T) {
	ledger := newFakeLedger()
	ledger.balErr = persist.ErrGatewayUnavailable{Err: errors.New("dial tcp: connection refused")}
	a := New(ledger, newFakeFetcher())

	chips := a.ListOwnedChipIDs(context.Background(), "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	assert.Empty(t, chips)
}

func TestResolveAnimalViewsMergesLedgerAndDocument(t *testing.T) {
	ledger := newFakeLedger()
	fetcher := newFakeFetcher()
	registerAnimal(ledger, fetcher, 1001, "Firulais", persist.HealthEnfermo)
	a := New(ledger, fetcher)

	views := a.ResolveAnimalViews(context.Background(), []persist.ChipID{1001})
	require.Len(t, views, 1)
	assert.Equal(t, persist.ChipID(1001), views[0].ChipID)
	assert.Equal(t, persist.HealthEnfermo, views[0].EstadoDeSalud)
	assert.Equal(t, "Firulais", views[0].Metadata["name"])
}

func TestResolveAnimalViewsDropsFailedItemKeepsRest(t *testing.T) {
	ledger := newFakeLedger()
	fetcher := newFakeFetcher()
	registerAnimal(ledger, fetcher, 1, "Uno", persist.HealthSano)
	registerAnimal(ledger, fetcher, 2, "Dos", persist.HealthSano)
	registerAnimal(ledger, fetcher, 3, "Tres", persist.HealthSano)
	ledger.uriErrs[2] = errors.New("execution reverted")
	a := New(ledger, fetcher)

	views := a.ResolveAnimalViews(context.Background(), []persist.ChipID{1, 2, 3})
	require.Len(t, views, 2)
	assert.Equal(t, persist.ChipID(1), views[0].ChipID)
	assert.Equal(t, persist.ChipID(3), views[1].ChipID)
}

func TestResolveAnimalViewsDropsNonIPFSURI(t *testing.T) {
	ledger := newFakeLedger()
	fetcher := newFakeFetcher()
	ledger.uris[7] = "https://example.com/7.json"
	a := New(ledger, fetcher)

	views := a.ResolveAnimalViews(context.Background(), []persist.ChipID{7})
	assert.Empty(t, views)
}

func TestResolveAnimalViewsDropsUndecodableDocument(t *testing.T) {
	ledger := newFakeLedger()
	fetcher := newFakeFetcher()
	cid := persist.CID("QmBroken")
	ledger.uris[9] = persist.NewIPFSTokenURI(cid)
	fetcher.mu.Lock()
	fetcher.docs[cid] = []byte("<html>gateway error</html>")
	fetcher.mu.Unlock()
	a := New(ledger, fetcher)

	views := a.ResolveAnimalViews(context.Background(), []persist.ChipID{9})
	assert.Empty(t, views)
}

func TestResolveMedicalHistoryEmptyIsEmptyList(t *testing.T) {
	a := New(newFakeLedger(), newFakeFetcher())

	records, err := a.ResolveMedicalHistory(context.Background(), 42)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestResolveMedicalHistoryDropsUnfetchableRecord(t *testing.T) {
	ledger := newFakeLedger()
	fetcher := newFakeFetcher()
	ledger.history[5] = []persist.CID{"QmA", "QmB"}
	fetcher.putDoc("QmA", persist.MedicalRecord{ChipID: 5, Diagnostico: "otitis"})
	fetcher.errs["QmB"] = persist.ErrStoreUnavailable{Err: errors.New("504")}
	a := New(ledger, fetcher)

	records, err := a.ResolveMedicalHistory(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, persist.CID("QmA"), records[0].CID)
	assert.Equal(t, "otitis", records[0].Diagnostico)
}

func TestResolveMedicalHistoryPreservesLedgerOrder(t *testing.T) {
	ledger := newFakeLedger()
	fetcher := newFakeFetcher()
	cids := make([]persist.CID, 0, 20)
	for i := 0; i < 20; i++ {
		cid := persist.CID(fmt.Sprintf("QmRec%02d", i))
		cids = append(cids, cid)
		fetcher.putDoc(cid, persist.MedicalRecord{ChipID: 8, Notas: fmt.Sprintf("visita %d", i)})
	}
	ledger.history[8] = cids
	a := New(ledger, fetcher)

	records, err := a.ResolveMedicalHistory(context.Background(), 8)
	require.NoError(t, err)
	require.Len(t, records, 20)
	for i, record := range records {
		assert.Equal(t, cids[i], record.CID)
	}
}

func TestResolveMedicalHistoryLedgerFailurePropagates(t *testing.T) {
	ledger := newFakeLedger()
	ledger.histErrs[3] = persist.ErrGatewayUnavailable{Err: errors.New("timeout")}
	a := New(ledger, newFakeFetcher())

	_, err := a.ResolveMedicalHistory(context.Background(), 3)
	var unavailable persist.ErrGatewayUnavailable
	assert.True(t, errors.As(err, &unavailable))
}

func TestConcurrentDisjointResolvesDoNotMix(t *testing.T) {
	ledger := newFakeLedger()
	fetcher := newFakeFetcher()
	for chip := persist.ChipID(100); chip < 120; chip++ {
		registerAnimal(ledger, fetcher, chip, fmt.Sprintf("animal-%d", chip), persist.HealthSano)
	}
	a := New(ledger, fetcher)

	var wg sync.WaitGroup
	for chip := persist.ChipID(100); chip < 120; chip++ {
		chip := chip
		wg.Add(1)
		go func() {
			defer wg.Done()
			views := a.ResolveAnimalViews(context.Background(), []persist.ChipID{chip})
			if assert.Len(t, views, 1) {
				assert.Equal(t, chip, views[0].ChipID)
				assert.Equal(t, fmt.Sprintf("animal-%d", chip), views[0].Metadata["name"])
			}
		}()
	}
	wg.Wait()
}

func TestListOwnedAnimalsEndToEnd(t *testing.T) {
	ledger := newFakeLedger()
	fetcher := newFakeFetcher()
	owner := persist.EthereumAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	registerAnimal(ledger, fetcher, 11, "Luna", persist.HealthSano)
	registerAnimal(ledger, fetcher, 12, "Rocky", persist.HealthFallecido)
	ledger.owned[owner] = []persist.ChipID{11, 12}
	a := New(ledger, fetcher)

	views := a.ListOwnedAnimals(context.Background(), owner)
	require.Len(t, views, 2)
	assert.Equal(t, "Luna", views[0].Metadata["name"])
	assert.Equal(t, persist.HealthFallecido, views[1].EstadoDeSalud)
}
