package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"crumble/models"
)

// Options are the engine's tuning knobs. Zero values fall back to the
// defaults below; both windows are deliberately configurable because the
// reference numbers are tuning constants, not requirements.
type Options struct {
	DebounceWindow time.Duration // quiet period before a persistence write, default 500ms
	CleanInterval  time.Duration // cadence of the periodic validity sweep, default 5m
}

const (
	defaultDebounceWindow = 500 * time.Millisecond
	defaultCleanInterval  = 5 * time.Minute
)

// Engine owns one shopper's in-memory cart and orchestrates persistence
// across the remote and local tiers. It is created per device session by the
// Manager and handed to handlers explicitly; there is no package-level cart.
type Engine struct {
	mu       sync.Mutex
	deviceID string
	userID   string // "" while anonymous
	state    CartState

	remote RemoteStore
	local  LocalStore
	opts   Options

	debounce    *time.Timer
	lastPersist PersistStatus

	stateSubs    []func(CartState)
	identitySubs []func(userID string)

	cleanStop chan struct{}
	closed    bool
}

// NewEngine builds an engine for one device session and seeds its state from
// the local tier if a staged anonymous cart exists there.
func NewEngine(deviceID string, remote RemoteStore, local LocalStore, opts Options) *Engine {
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = defaultDebounceWindow
	}
	if opts.CleanInterval <= 0 {
		opts.CleanInterval = defaultCleanInterval
	}
	e := &Engine{
		deviceID:  deviceID,
		remote:    remote,
		local:     local,
		opts:      opts,
		cleanStop: make(chan struct{}),
	}
	if items, ok := e.readLocal(context.Background()); ok {
		e.state = CartState{Items: items}
	}
	go e.cleanLoop()
	return e
}

// OnStateChange registers a callback invoked after every state transition.
func (e *Engine) OnStateChange(fn func(CartState)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stateSubs = append(e.stateSubs, fn)
}

// OnIdentityChange registers a callback invoked after login/logout.
func (e *Engine) OnIdentityChange(fn func(userID string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.identitySubs = append(e.identitySubs, fn)
}

// State returns a copy of the current snapshot.
func (e *Engine) State() CartState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return CartState{Items: cloneItems(e.state.Items), Coupon: e.state.Coupon}
}

func (e *Engine) UserID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.userID
}

func (e *Engine) LastPersistStatus() PersistStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastPersist
}

// AddItem appends the item with quantity 1, or bumps the existing quantity.
func (e *Engine) AddItem(item models.LineItem) {
	e.dispatch(AddItem{Item: item})
}

func (e *Engine) RemoveItem(id string) {
	e.dispatch(RemoveItem{ID: id})
}

// UpdateQuantity sets the quantity; qty <= 0 removes the item.
func (e *Engine) UpdateQuantity(id string, qty int) {
	e.dispatch(UpdateQuantity{ID: id, Quantity: qty})
}

func (e *Engine) Clear() {
	e.dispatch(ClearCart{})
}

// ApplyCoupon validates the code against the catalog and the current
// subtotal. It never replaces an already applied coupon implicitly; callers
// remove the old one first.
func (e *Engine) ApplyCoupon(code string) (Coupon, string, error) {
	state, err := e.dispatch(ApplyCoupon{Code: code})
	if err != nil {
		return Coupon{}, "", err
	}
	c := *state.Coupon
	return c, fmt.Sprintf("Coupon %s applied: %s", c.Code, c.Description), nil
}

func (e *Engine) RemoveCoupon() {
	e.dispatch(RemoveCoupon{})
}

func (e *Engine) Subtotal() float64 { return e.State().Subtotal() }
func (e *Engine) ItemCount() int    { return e.State().ItemCount() }
func (e *Engine) Discount() float64 { return e.State().Discount() }

// dispatch runs the reducer, notifies subscribers, and schedules a debounced
// persistence write. Failed commands (coupon rejections) change nothing.
func (e *Engine) dispatch(cmd Command) (CartState, error) {
	e.mu.Lock()
	next, err := Reduce(e.state, cmd)
	if err != nil {
		e.mu.Unlock()
		return e.state, err
	}
	e.state = next
	subs := append([]func(CartState){}, e.stateSubs...)
	e.scheduleLocked()
	e.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return next, nil
}

// scheduleLocked arms or resets the debounce timer. Caller holds e.mu.
func (e *Engine) scheduleLocked() {
	if e.closed {
		return
	}
	if e.debounce != nil {
		e.debounce.Reset(e.opts.DebounceWindow)
		return
	}
	e.debounce = time.AfterFunc(e.opts.DebounceWindow, func() {
		e.Flush(context.Background())
	})
}

// Flush persists the latest snapshot immediately, bypassing the debounce
// window. Coalesced writes always carry the most recent state only.
func (e *Engine) Flush(ctx context.Context) PersistStatus {
	e.mu.Lock()
	if e.debounce != nil {
		e.debounce.Stop()
		e.debounce = nil
	}
	userID := e.userID
	items := cloneItems(e.state.Items)
	e.mu.Unlock()

	status := e.persist(ctx, userID, items)

	e.mu.Lock()
	e.lastPersist = status
	e.mu.Unlock()
	return status
}

// persist implements the tier policy: authenticated carts go to the remote
// store in full shape, with a compressed local fallback on failure;
// anonymous carts go straight to the local tier compressed.
func (e *Engine) persist(ctx context.Context, userID string, items []models.LineItem) PersistStatus {
	if userID != "" {
		err := e.remote.WriteCart(ctx, userID, items)
		if err == nil {
			// Once the remote copy is durable, the local staging copy is stale.
			e.local.Remove(ctx, e.deviceID)
			return PersistOK
		}
		log.Printf("cart: remote write failed for user %s: %v", userID, err)
		return e.localFallback(ctx, items)
	}

	if err := e.writeLocal(ctx, items); err != nil {
		log.Printf("cart: local write failed for device %s: %v", e.deviceID, err)
		return PersistFailed
	}
	return PersistOK
}

// localFallback stages a compressed copy after a remote failure. The tier is
// probed first so a full store fails fast instead of issuing a doomed write.
// Degraded means the fallback copy landed; Failed means the mutation survives
// only in memory.
func (e *Engine) localFallback(ctx context.Context, items []models.LineItem) PersistStatus {
	if !e.local.Available(ctx) {
		log.Printf("cart: local tier unavailable for device %s", e.deviceID)
		return PersistFailed
	}
	if err := e.writeLocal(ctx, items); err != nil {
		log.Printf("cart: local fallback failed for device %s: %v", e.deviceID, err)
		return PersistFailed
	}
	return PersistDegraded
}

func (e *Engine) writeLocal(ctx context.Context, items []models.LineItem) error {
	compressed := make([]models.CompressedLineItem, 0, len(items))
	for _, it := range items {
		compressed = append(compressed, it.Compress())
	}
	raw, err := json.Marshal(compressed)
	if err != nil {
		return err
	}
	return e.local.Set(ctx, e.deviceID, string(raw))
}

func (e *Engine) readLocal(ctx context.Context) ([]models.LineItem, bool) {
	raw, ok, err := e.local.Get(ctx, e.deviceID)
	if err != nil || !ok {
		return nil, false
	}
	var compressed []models.CompressedLineItem
	if err := json.Unmarshal([]byte(raw), &compressed); err != nil {
		// Corrupt staging data is discarded, not surfaced.
		e.local.Remove(ctx, e.deviceID)
		return nil, false
	}
	items := make([]models.LineItem, 0, len(compressed))
	for _, ci := range compressed {
		items = append(items, ci.Expand())
	}
	return items, true
}

// SetIdentity reacts to login/logout transitions from the identity provider.
// It is idempotent: repeating the current identity is a no-op.
func (e *Engine) SetIdentity(ctx context.Context, userID string) error {
	e.mu.Lock()
	if e.userID == userID {
		e.mu.Unlock()
		return nil
	}
	prev := e.userID
	e.mu.Unlock()

	var err error
	if userID != "" {
		err = e.login(ctx, userID)
	} else {
		err = e.logout(ctx, prev)
	}
	if err != nil {
		return err
	}

	e.mu.Lock()
	subs := append([]func(string){}, e.identitySubs...)
	e.mu.Unlock()
	for _, fn := range subs {
		fn(userID)
	}
	return nil
}

// login merges the device-local staged cart into the user's remote cart:
// items present in both keep the larger quantity, local-only items are
// carried over. The merged result is written remotely and the staging copy
// cleared only after that write succeeds.
func (e *Engine) login(ctx context.Context, userID string) error {
	// Stage the in-memory cart first so it survives a crash mid-merge.
	e.mu.Lock()
	current := cloneItems(e.state.Items)
	e.mu.Unlock()
	if len(current) > 0 {
		if err := e.writeLocal(ctx, current); err != nil {
			log.Printf("cart: pre-merge staging failed for device %s: %v", e.deviceID, err)
		}
	}

	remoteItems, err := e.remote.ReadCart(ctx, userID)
	if err != nil {
		// Without the remote snapshot a merge could clobber the user's saved
		// cart, so the transition is refused and can be retried.
		return fmt.Errorf("read remote cart: %w", err)
	}

	// The in-memory snapshot joins the merge directly so a failed staging
	// write cannot drop it.
	localItems, _ := e.readLocal(ctx)
	merged := MergeItems(remoteItems, MergeItems(localItems, current))

	e.mu.Lock()
	e.userID = userID
	e.state = CartState{Items: merged, Coupon: e.state.Coupon}
	subs := append([]func(CartState){}, e.stateSubs...)
	e.mu.Unlock()

	if err := e.remote.WriteCart(ctx, userID, merged); err != nil {
		log.Printf("cart: merge write failed for user %s: %v", userID, err)
		e.setLastPersist(e.localFallback(ctx, merged))
	} else {
		e.local.Remove(ctx, e.deviceID)
		e.setLastPersist(PersistOK)
	}

	for _, fn := range subs {
		fn(e.State())
	}
	return nil
}

// logout stages a non-empty cart locally so it survives the session.
func (e *Engine) logout(ctx context.Context, prevUserID string) error {
	e.mu.Lock()
	e.userID = ""
	items := cloneItems(e.state.Items)
	e.mu.Unlock()

	if len(items) > 0 {
		if err := e.writeLocal(ctx, items); err != nil {
			log.Printf("cart: logout snapshot failed for device %s: %v", e.deviceID, err)
			e.setLastPersist(PersistFailed)
			return nil
		}
	}
	e.setLastPersist(PersistOK)
	return nil
}

func (e *Engine) setLastPersist(s PersistStatus) {
	e.mu.Lock()
	e.lastPersist = s
	e.mu.Unlock()
}

// Lifecycle events the client reports; the engine reconciles opportunistically.
const (
	EventVisible = "visible" // tab regained foreground
	EventOnline  = "online"  // connectivity restored
	EventOffline = "offline" // connectivity lost
	EventUnload  = "unload"  // page closing
)

// HandleLifecycleEvent re-syncs the remote tier when the app comes back into
// view or online, and snapshots locally the moment connectivity drops.
func (e *Engine) HandleLifecycleEvent(ctx context.Context, event string) {
	switch event {
	case EventVisible, EventOnline, EventUnload:
		e.mu.Lock()
		authed := e.userID != ""
		nonEmpty := len(e.state.Items) > 0
		e.mu.Unlock()
		if event == EventUnload || (authed && nonEmpty) {
			e.Flush(ctx)
		}
	case EventOffline:
		e.mu.Lock()
		items := cloneItems(e.state.Items)
		e.mu.Unlock()
		if err := e.writeLocal(ctx, items); err != nil {
			log.Printf("cart: offline snapshot failed for device %s: %v", e.deviceID, err)
		}
	}
}

// ValidateAndClean drops invalid line items and reports how many went.
func (e *Engine) ValidateAndClean() int {
	e.mu.Lock()
	next, removed := e.state.Clean()
	if removed == 0 {
		e.mu.Unlock()
		return 0
	}
	e.state = next
	subs := append([]func(CartState){}, e.stateSubs...)
	e.scheduleLocked()
	e.mu.Unlock()

	log.Printf("cart: removed %d invalid item(s) for device %s", removed, e.deviceID)
	for _, fn := range subs {
		fn(next)
	}
	return removed
}

func (e *Engine) cleanLoop() {
	ticker := time.NewTicker(e.opts.CleanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.ValidateAndClean()
		case <-e.cleanStop:
			return
		}
	}
}

// RestoreFullProductInfo rehydrates compressed items from the catalog,
// preserving stored quantities. Items missing from the catalog are left in
// their compressed shape rather than dropped.
func (e *Engine) RestoreFullProductInfo(ctx context.Context, catalog Catalog) {
	state := e.State()

	restored := make([]models.LineItem, len(state.Items))
	for i, it := range state.Items {
		restored[i] = it
		if !it.Compressed {
			continue
		}
		p, err := catalog.LookupByID(ctx, it.ID)
		if err != nil || p == nil {
			// catalog miss: stays compressed, kept for the next attempt
			continue
		}
		full := p.ToLineItem()
		full.Quantity = it.Quantity
		restored[i] = full
	}

	e.mu.Lock()
	e.state = CartState{Items: restored, Coupon: e.state.Coupon}
	subs := append([]func(CartState){}, e.stateSubs...)
	e.scheduleLocked()
	e.mu.Unlock()

	for _, fn := range subs {
		fn(e.State())
	}
}

// Close flushes pending state and stops the background sweep.
func (e *Engine) Close(ctx context.Context) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.cleanStop)
	e.mu.Unlock()
	e.Flush(ctx)
}
