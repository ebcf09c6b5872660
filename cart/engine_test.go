package cart

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"crumble/models"
)

type fakeRemote struct {
	mu         sync.Mutex
	carts      map[string][]models.LineItem
	failReads  bool
	failWrites bool
	writes     int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{carts: make(map[string][]models.LineItem)}
}

func (f *fakeRemote) ReadCart(_ context.Context, userID string) ([]models.LineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReads {
		return nil, errors.New("remote store down")
	}
	return f.carts[userID], nil
}

func (f *fakeRemote) WriteCart(_ context.Context, userID string, items []models.LineItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errors.New("remote store down")
	}
	f.carts[userID] = items
	f.writes++
	return nil
}

type fakeLocal struct {
	mu          sync.Mutex
	data        map[string]string
	failSet     bool
	unavailable bool
	sets        int
}

func newFakeLocal() *fakeLocal {
	return &fakeLocal{data: make(map[string]string)}
}

func (f *fakeLocal) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeLocal) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet {
		return errors.New("quota exceeded")
	}
	f.data[key] = value
	f.sets++
	return nil
}

func (f *fakeLocal) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeLocal) Available(_ context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.failSet && !f.unavailable
}

func (f *fakeLocal) snapshot(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok
}

func (f *fakeLocal) setCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets
}

func testEngine(remote RemoteStore, local LocalStore) *Engine {
	return NewEngine("dev1", remote, local, Options{
		DebounceWindow: 10 * time.Millisecond,
		CleanInterval:  time.Hour,
	})
}

func fullItem(id string, price float64) models.LineItem {
	return models.LineItem{
		ID: id, Name: "Cake " + id, Price: price, Quantity: 1, ShopID: "shop1",
		Image: "/img/" + id + ".jpg", Description: "very tasty",
	}
}

func TestAnonymousWritesCompressedToLocal(t *testing.T) {
	local := newFakeLocal()
	e := testEngine(newFakeRemote(), local)

	e.AddItem(fullItem("choc", 25))
	time.Sleep(60 * time.Millisecond)

	raw, ok := local.snapshot("dev1")
	if !ok {
		t.Fatal("expected a local snapshot after the debounce window")
	}
	if strings.Contains(raw, "image") || strings.Contains(raw, "description") {
		t.Errorf("local tier must hold the compressed shape, got %s", raw)
	}

	var compressed []models.CompressedLineItem
	if err := json.Unmarshal([]byte(raw), &compressed); err != nil {
		t.Fatalf("local snapshot not parseable: %v", err)
	}
	if len(compressed) != 1 || compressed[0].ID != "choc" || compressed[0].Quantity != 1 {
		t.Errorf("unexpected snapshot contents: %+v", compressed)
	}
}

func TestDebounceCoalescesBursts(t *testing.T) {
	local := newFakeLocal()
	e := NewEngine("dev1", newFakeRemote(), local, Options{
		DebounceWindow: 100 * time.Millisecond,
		CleanInterval:  time.Hour,
	})

	for i := 0; i < 5; i++ {
		e.AddItem(fullItem("choc", 25)) // each add restarts the quiet period
	}
	time.Sleep(300 * time.Millisecond)

	if got := local.setCount(); got != 1 {
		t.Errorf("expected one coalesced write, got %d", got)
	}

	raw, _ := local.snapshot("dev1")
	var compressed []models.CompressedLineItem
	json.Unmarshal([]byte(raw), &compressed)
	if len(compressed) != 1 || compressed[0].Quantity != 5 {
		t.Errorf("coalesced write must carry the latest state, got %+v", compressed)
	}
}

func TestAuthenticatedWriteGoesRemote(t *testing.T) {
	remote := newFakeRemote()
	local := newFakeLocal()
	e := testEngine(remote, local)

	if err := e.SetIdentity(context.Background(), "u1"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	e.AddItem(fullItem("choc", 25))
	if status := e.Flush(context.Background()); status != PersistOK {
		t.Fatalf("expected PersistOK, got %v", status)
	}

	items := remote.carts["u1"]
	if len(items) != 1 || items[0].Image == "" {
		t.Errorf("remote tier holds the full shape, got %+v", items)
	}
	if _, ok := local.snapshot("dev1"); ok {
		t.Error("local staging should be cleared after a successful remote write")
	}
}

func TestRemoteFailureDegradesToLocal(t *testing.T) {
	remote := newFakeRemote()
	local := newFakeLocal()
	e := testEngine(remote, local)

	e.SetIdentity(context.Background(), "u1")
	remote.failWrites = true

	e.AddItem(fullItem("choc", 25))
	if status := e.Flush(context.Background()); status != PersistDegraded {
		t.Fatalf("expected PersistDegraded, got %v", status)
	}
	if _, ok := local.snapshot("dev1"); !ok {
		t.Error("the mutation must survive in the local tier")
	}
}

func TestBothTiersFailing(t *testing.T) {
	remote := newFakeRemote()
	local := newFakeLocal()
	e := testEngine(remote, local)

	e.SetIdentity(context.Background(), "u1")
	remote.failWrites = true
	local.failSet = true

	e.AddItem(fullItem("choc", 25))
	if status := e.Flush(context.Background()); status != PersistFailed {
		t.Fatalf("expected PersistFailed, got %v", status)
	}
	// the in-memory mutation is still there
	if e.ItemCount() != 1 {
		t.Error("in-memory state must survive persistence failure")
	}
}

// A merge whose remote write fails lands the merged cart locally and
// reports Degraded.
func TestLoginMergeWriteFailureDegrades(t *testing.T) {
	remote := newFakeRemote()
	remote.failWrites = true
	local := newFakeLocal()
	e := testEngine(remote, local)

	e.AddItem(fullItem("choc", 25))
	if err := e.SetIdentity(context.Background(), "u1"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if got := e.LastPersistStatus(); got != PersistDegraded {
		t.Fatalf("expected PersistDegraded, got %v", got)
	}
	if _, ok := local.snapshot("dev1"); !ok {
		t.Error("the merged cart must survive in the local tier")
	}
}

// When both the merge write and the local fallback fail, the status must say
// so: the merged cart lives only in memory and Degraded would overstate
// durability.
func TestLoginMergeDoubleFailure(t *testing.T) {
	remote := newFakeRemote()
	remote.failWrites = true
	local := newFakeLocal()
	e := testEngine(remote, local)

	e.AddItem(fullItem("choc", 25))
	local.failSet = true

	if err := e.SetIdentity(context.Background(), "u1"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if got := e.LastPersistStatus(); got != PersistFailed {
		t.Fatalf("expected PersistFailed, got %v", got)
	}
	if e.UserID() != "u1" || e.ItemCount() != 1 {
		t.Error("the merged cart must survive in memory")
	}
}

// An unavailable local tier is detected by the capacity probe before any
// write is attempted.
func TestFallbackProbesLocalTierFirst(t *testing.T) {
	remote := newFakeRemote()
	local := newFakeLocal()
	e := testEngine(remote, local)

	e.SetIdentity(context.Background(), "u1")
	remote.failWrites = true
	local.unavailable = true

	e.AddItem(fullItem("choc", 25))
	if status := e.Flush(context.Background()); status != PersistFailed {
		t.Fatalf("expected PersistFailed, got %v", status)
	}
	if got := local.setCount(); got != 0 {
		t.Errorf("no write should be attempted against an unavailable tier, got %d", got)
	}
}

// The login-merge scenario end to end: an anonymous shopper with a staged
// cart logs in against an empty remote cart.
func TestMergeOnLoginWithEmptyRemote(t *testing.T) {
	remote := newFakeRemote()
	local := newFakeLocal()
	e := testEngine(remote, local)

	cake := fullItem("cake1", 20)
	e.AddItem(cake)
	e.AddItem(cake) // quantity 2, subtotal 40
	e.Flush(context.Background())

	if err := e.SetIdentity(context.Background(), "u1"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	state := e.State()
	if len(state.Items) != 1 || state.Items[0].ID != "cake1" || state.Items[0].Quantity != 2 {
		t.Fatalf("merged cart should equal the local cart, got %+v", state.Items)
	}
	if got := remote.carts["u1"]; len(got) != 1 || got[0].Quantity != 2 {
		t.Errorf("remote store should now hold the merged cart, got %+v", got)
	}
	if _, ok := local.snapshot("dev1"); ok {
		t.Error("local store should be cleared once the merge is durable")
	}
}

func TestMergeOnLoginTakesMaxQuantity(t *testing.T) {
	remote := newFakeRemote()
	remote.carts["u1"] = []models.LineItem{item("a", 10, 5), item("b", 8, 1)}
	local := newFakeLocal()
	e := testEngine(remote, local)

	for i := 0; i < 7; i++ {
		e.AddItem(item("a", 10, 1))
	}
	e.AddItem(item("c", 3, 1))
	e.Flush(context.Background())

	if err := e.SetIdentity(context.Background(), "u1"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	got := make(map[string]int)
	for _, it := range e.State().Items {
		got[it.ID] = it.Quantity
	}
	want := map[string]int{"a": 7, "b": 1, "c": 1}
	for id, q := range want {
		if got[id] != q {
			t.Errorf("item %s: expected qty %d, got %d", id, q, got[id])
		}
	}
}

// Mutations still inside the debounce window must not be lost by a login.
func TestLoginMergesUnflushedState(t *testing.T) {
	remote := newFakeRemote()
	local := newFakeLocal()
	e := NewEngine("dev1", remote, local, Options{DebounceWindow: time.Hour, CleanInterval: time.Hour})

	e.AddItem(fullItem("choc", 25)) // never flushed

	if err := e.SetIdentity(context.Background(), "u1"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if got := remote.carts["u1"]; len(got) != 1 || got[0].ID != "choc" {
		t.Errorf("unflushed item lost in merge: %+v", got)
	}
}

func TestLoginRefusedWhenRemoteUnreadable(t *testing.T) {
	remote := newFakeRemote()
	remote.failReads = true
	e := testEngine(remote, newFakeLocal())

	e.AddItem(fullItem("choc", 25))
	if err := e.SetIdentity(context.Background(), "u1"); err == nil {
		t.Fatal("expected login merge to be refused when the remote read fails")
	}
	if e.UserID() != "" {
		t.Error("identity must not flip when the merge is refused")
	}
}

func TestSetIdentityIdempotent(t *testing.T) {
	remote := newFakeRemote()
	e := testEngine(remote, newFakeLocal())

	e.AddItem(fullItem("choc", 25))
	e.SetIdentity(context.Background(), "u1")
	writesAfterLogin := remote.writes

	if err := e.SetIdentity(context.Background(), "u1"); err != nil {
		t.Fatalf("repeat login errored: %v", err)
	}
	if remote.writes != writesAfterLogin {
		t.Error("repeating the current identity must be a no-op")
	}
}

func TestLogoutSnapshotsNonEmptyCart(t *testing.T) {
	remote := newFakeRemote()
	local := newFakeLocal()
	e := testEngine(remote, local)

	e.SetIdentity(context.Background(), "u1")
	e.AddItem(fullItem("choc", 25))
	e.Flush(context.Background())

	if err := e.SetIdentity(context.Background(), ""); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if e.UserID() != "" {
		t.Error("expected anonymous identity after logout")
	}
	if _, ok := local.snapshot("dev1"); !ok {
		t.Error("logout must stage the non-empty cart locally")
	}
}

func TestOfflineEventSnapshotsImmediately(t *testing.T) {
	local := newFakeLocal()
	e := NewEngine("dev1", newFakeRemote(), local, Options{DebounceWindow: time.Hour, CleanInterval: time.Hour})

	e.AddItem(fullItem("choc", 25))
	e.HandleLifecycleEvent(context.Background(), EventOffline)

	if _, ok := local.snapshot("dev1"); !ok {
		t.Error("offline event must snapshot without waiting for the debounce")
	}
}

func TestVisibleEventSyncsAuthenticatedCart(t *testing.T) {
	remote := newFakeRemote()
	e := NewEngine("dev1", remote, newFakeLocal(), Options{DebounceWindow: time.Hour, CleanInterval: time.Hour})

	e.SetIdentity(context.Background(), "u1")
	e.AddItem(fullItem("choc", 25))
	e.HandleLifecycleEvent(context.Background(), EventVisible)

	if got := remote.carts["u1"]; len(got) != 1 {
		t.Errorf("visible event should re-sync the remote tier, got %+v", got)
	}
}

func TestEngineSeedsFromLocalStore(t *testing.T) {
	local := newFakeLocal()
	staged, _ := json.Marshal([]models.CompressedLineItem{
		{ID: "choc", Name: "Choc Cake", Price: 25, Quantity: 2, ShopID: "shop1"},
	})
	local.data["dev1"] = string(staged)

	e := testEngine(newFakeRemote(), local)
	if e.ItemCount() != 2 {
		t.Errorf("expected the staged cart to be loaded, got count %d", e.ItemCount())
	}
}

func TestValidateAndCleanRemovesTamperedEntries(t *testing.T) {
	local := newFakeLocal()
	staged, _ := json.Marshal([]models.CompressedLineItem{
		{ID: "choc", Name: "Choc Cake", Price: 25, Quantity: 2, ShopID: "shop1"},
		{ID: "", Name: "ghost", Price: 5, Quantity: 1, ShopID: "shop1"},
		{ID: "neg", Name: "neg", Price: -3, Quantity: 1, ShopID: "shop1"},
	})
	local.data["dev1"] = string(staged)

	e := testEngine(newFakeRemote(), local)
	if removed := e.ValidateAndClean(); removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if removed := e.ValidateAndClean(); removed != 0 {
		t.Errorf("second sweep should be a no-op, removed %d", removed)
	}
	if e.ItemCount() != 2 {
		t.Errorf("valid entry should survive, got count %d", e.ItemCount())
	}
}

type fakeCatalog struct {
	products map[string]models.Product
}

func (f fakeCatalog) LookupByID(_ context.Context, id string) (*models.Product, error) {
	if p, ok := f.products[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func TestRestoreFullProductInfo(t *testing.T) {
	local := newFakeLocal()
	staged, _ := json.Marshal([]models.CompressedLineItem{
		{ID: "choc", Name: "Choc Cake", Price: 25, Quantity: 3, ShopID: "shop1"},
		{ID: "gone", Name: "Retired Cake", Price: 10, Quantity: 1, ShopID: "shop1"},
	})
	local.data["dev1"] = string(staged)

	e := testEngine(newFakeRemote(), local)
	catalog := fakeCatalog{products: map[string]models.Product{
		"choc": {
			ProductID: "choc", Name: "Choc Cake", Price: 25, ShopID: "shop1",
			Image: "/img/choc.jpg", Description: "rich chocolate", Rating: 4.5, Reviews: 12,
		},
	}}

	e.RestoreFullProductInfo(context.Background(), catalog)

	state := e.State()
	if state.Items[0].Image != "/img/choc.jpg" || state.Items[0].Description == "" {
		t.Errorf("expected display fields restored, got %+v", state.Items[0])
	}
	if state.Items[0].Compressed {
		t.Error("a restored item should no longer be marked compressed")
	}
	if state.Items[0].Quantity != 3 {
		t.Errorf("stored quantity must be preserved, got %d", state.Items[0].Quantity)
	}
	// the catalog miss stays compressed but is not dropped
	if len(state.Items) != 2 || !state.Items[1].Compressed {
		t.Errorf("catalog miss should stay compressed, got %+v", state.Items[1])
	}
}

// Restoration is driven by the compressed marker, not by whether display
// fields happen to be blank: an item added in full shape without an image
// is never sent back through the catalog.
func TestRestoreLeavesFullShapeItemsAlone(t *testing.T) {
	e := testEngine(newFakeRemote(), newFakeLocal())
	e.AddItem(models.LineItem{ID: "plain", Name: "Plain Cake", Price: 12, Quantity: 1, ShopID: "shop1"})

	catalog := fakeCatalog{products: map[string]models.Product{
		"plain": {
			ProductID: "plain", Name: "Plain Cake", Price: 12, ShopID: "shop1",
			Image: "/img/plain.jpg", Description: "should not appear",
		},
	}}
	e.RestoreFullProductInfo(context.Background(), catalog)

	if got := e.State().Items[0]; got.Image != "" || got.Description != "" {
		t.Errorf("full-shape item must not be rehydrated, got %+v", got)
	}
}
