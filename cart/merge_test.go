package cart

import (
	"testing"

	"crumble/models"
)

func TestMergeTakesLargerQuantity(t *testing.T) {
	local := []models.LineItem{item("a", 10, 2)}
	remote := []models.LineItem{item("a", 10, 5)}

	merged := MergeItems(remote, local)
	if len(merged) != 1 || merged[0].Quantity != 5 {
		t.Fatalf("expected qty 5, got %+v", merged)
	}

	local = []models.LineItem{item("a", 10, 7)}
	merged = MergeItems(remote, local)
	if merged[0].Quantity != 7 {
		t.Fatalf("expected qty 7, got %+v", merged)
	}
}

func TestMergeQuantityIsSymmetric(t *testing.T) {
	a := []models.LineItem{item("a", 10, 2), item("b", 5, 4)}
	b := []models.LineItem{item("a", 10, 6), item("b", 5, 1)}

	ab := MergeItems(a, b)
	ba := MergeItems(b, a)

	quantities := func(items []models.LineItem) map[string]int {
		m := make(map[string]int)
		for _, it := range items {
			m[it.ID] = it.Quantity
		}
		return m
	}
	qab, qba := quantities(ab), quantities(ba)
	for id, q := range qab {
		if qba[id] != q {
			t.Errorf("merge order changed quantity for %s: %d vs %d", id, q, qba[id])
		}
	}
	if qab["a"] != 6 || qab["b"] != 4 {
		t.Errorf("expected max quantities a=6 b=4, got %+v", qab)
	}
}

func TestMergeCarriesLocalOnlyItems(t *testing.T) {
	remote := []models.LineItem{item("a", 10, 1)}
	local := []models.LineItem{item("b", 5, 3)}

	merged := MergeItems(remote, local)
	if len(merged) != 2 {
		t.Fatalf("expected 2 items, got %d", len(merged))
	}
	if merged[0].ID != "a" || merged[1].ID != "b" {
		t.Errorf("expected remote ordering first, got %+v", merged)
	}
	if merged[1].Quantity != 3 {
		t.Errorf("local-only item lost its quantity: %+v", merged[1])
	}
}

func TestMergeWithEmptySides(t *testing.T) {
	items := []models.LineItem{item("a", 10, 2)}
	if got := MergeItems(nil, items); len(got) != 1 {
		t.Errorf("merge into empty base lost items: %+v", got)
	}
	if got := MergeItems(items, nil); len(got) != 1 {
		t.Errorf("merge of empty extra lost items: %+v", got)
	}
	if got := MergeItems(nil, nil); len(got) != 0 {
		t.Errorf("expected empty merge, got %+v", got)
	}
}
