package cart

import (
	"encoding/json"
	"time"

	"crumble/models"
)

const exportVersion = "1.0"

// Export serializes the current cart into the downloadable backup format.
func (e *Engine) Export() models.CartExport {
	state := e.State()
	return models.CartExport{
		Items:      state.Items,
		ExportDate: time.Now().Format(time.RFC3339),
		TotalItems: state.ItemCount(),
		TotalValue: state.Subtotal(),
		Version:    exportVersion,
	}
}

// Import parses a backup produced by Export and merges it into the cart by
// quantity addition: an imported id that already exists has its quantity
// summed with the current one, new ids are appended. Returns how many items
// were merged in and how many malformed entries were skipped.
func (e *Engine) Import(raw []byte) (added, dropped int, err error) {
	var backup models.CartExport
	if err := json.Unmarshal(raw, &backup); err != nil {
		return 0, 0, ErrInvalidFormat
	}
	if backup.Items == nil {
		return 0, 0, ErrInvalidFormat
	}

	valid := make([]models.LineItem, 0, len(backup.Items))
	for _, it := range backup.Items {
		if it.Valid() {
			valid = append(valid, it)
		} else {
			dropped++
		}
	}
	if len(valid) == 0 {
		return 0, dropped, ErrNoValidItems
	}

	e.mu.Lock()
	next := cloneItems(e.state.Items)
	index := make(map[string]int, len(next))
	for i, it := range next {
		index[it.ID] = i
	}
	for _, it := range valid {
		if i, ok := index[it.ID]; ok {
			next[i].Quantity += it.Quantity
		} else {
			index[it.ID] = len(next)
			next = append(next, it)
		}
	}
	e.state = CartState{Items: next, Coupon: e.state.Coupon}
	subs := append([]func(CartState){}, e.stateSubs...)
	e.scheduleLocked()
	e.mu.Unlock()

	for _, fn := range subs {
		fn(e.State())
	}
	return len(valid), dropped, nil
}
