package cart

import "crumble/models"

// MergeItems reconciles two cart snapshots by product id: items present in
// both keep the larger quantity, items present in only one side are carried
// over. Base ordering wins for shared items; extra-only items append in
// order. Quantity resolution is symmetric, so swapping the arguments never
// changes a shared item's final quantity.
func MergeItems(base, extra []models.LineItem) []models.LineItem {
	merged := cloneItems(base)
	index := make(map[string]int, len(merged))
	for i, it := range merged {
		index[it.ID] = i
	}

	for _, it := range extra {
		if i, ok := index[it.ID]; ok {
			if it.Quantity > merged[i].Quantity {
				merged[i].Quantity = it.Quantity
			}
			continue
		}
		index[it.ID] = len(merged)
		merged = append(merged, it)
	}
	return merged
}
