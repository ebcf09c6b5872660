package cart

import (
	"encoding/json"
	"testing"
	"time"

	"crumble/models"
)

func TestExportCarriesTotals(t *testing.T) {
	e := testEngine(newFakeRemote(), newFakeLocal())
	e.AddItem(item("a", 10, 1))
	e.AddItem(item("a", 10, 1))
	e.AddItem(item("b", 5.5, 1))

	backup := e.Export()
	if backup.Version != "1.0" {
		t.Errorf("expected version 1.0, got %s", backup.Version)
	}
	if backup.TotalItems != 3 {
		t.Errorf("expected 3 total items, got %d", backup.TotalItems)
	}
	if backup.TotalValue != 25.5 {
		t.Errorf("expected total value 25.5, got %v", backup.TotalValue)
	}
	if _, err := time.Parse(time.RFC3339, backup.ExportDate); err != nil {
		t.Errorf("export date not RFC3339: %v", err)
	}
}

func TestImportRoundTrip(t *testing.T) {
	src := testEngine(newFakeRemote(), newFakeLocal())
	src.AddItem(item("a", 10, 1))
	src.AddItem(item("b", 5, 1))
	src.AddItem(item("c", 2, 1))
	raw, err := json.Marshal(src.Export())
	if err != nil {
		t.Fatal(err)
	}

	dst := testEngine(newFakeRemote(), newFakeLocal())
	added, dropped, err := dst.Import(raw)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if added != 3 || dropped != 0 {
		t.Errorf("expected 3 added / 0 dropped, got %d / %d", added, dropped)
	}
	if dst.ItemCount() != 3 || dst.Subtotal() != 17 {
		t.Errorf("restored cart off: count %d subtotal %v", dst.ItemCount(), dst.Subtotal())
	}
}

func TestImportMergesByAddition(t *testing.T) {
	e := testEngine(newFakeRemote(), newFakeLocal())
	e.AddItem(item("x", 4, 1))
	e.AddItem(item("x", 4, 1)) // quantity 2

	backup := models.CartExport{
		Items:   []models.LineItem{item("x", 4, 3), item("y", 9, 1)},
		Version: "1.0",
	}
	raw, _ := json.Marshal(backup)

	added, _, err := e.Import(raw)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if added != 2 {
		t.Errorf("expected 2 merged entries, got %d", added)
	}
	got := make(map[string]int)
	for _, it := range e.State().Items {
		got[it.ID] = it.Quantity
	}
	if got["x"] != 5 {
		t.Errorf("quantities should sum on import: expected x=5, got %d", got["x"])
	}
	if got["y"] != 1 {
		t.Errorf("new ids are appended: expected y=1, got %d", got["y"])
	}
}

func TestImportRejectsMalformedPayload(t *testing.T) {
	e := testEngine(newFakeRemote(), newFakeLocal())

	if _, _, err := e.Import([]byte("not json")); err != ErrInvalidFormat {
		t.Errorf("expected ErrInvalidFormat for garbage, got %v", err)
	}
	if _, _, err := e.Import([]byte(`{"version":"1.0"}`)); err != ErrInvalidFormat {
		t.Errorf("expected ErrInvalidFormat for missing items, got %v", err)
	}
}

func TestImportAllInvalidEntries(t *testing.T) {
	e := testEngine(newFakeRemote(), newFakeLocal())

	backup := models.CartExport{
		Items: []models.LineItem{
			{ID: "", Name: "nameless", Price: 5, Quantity: 1},
			{ID: "neg", Name: "neg", Price: -1, Quantity: 1},
		},
		Version: "1.0",
	}
	raw, _ := json.Marshal(backup)

	added, dropped, err := e.Import(raw)
	if err != ErrNoValidItems {
		t.Fatalf("expected ErrNoValidItems, got %v", err)
	}
	if added != 0 || dropped != 2 {
		t.Errorf("expected 0 added / 2 dropped, got %d / %d", added, dropped)
	}
	if e.ItemCount() != 0 {
		t.Error("a failed import must not touch the cart")
	}
}

func TestImportSkipsBadEntriesKeepsGood(t *testing.T) {
	e := testEngine(newFakeRemote(), newFakeLocal())

	backup := models.CartExport{
		Items: []models.LineItem{
			item("good", 7, 2),
			{ID: "bad", Name: "bad", Price: 3, Quantity: 0},
		},
		Version: "1.0",
	}
	raw, _ := json.Marshal(backup)

	added, dropped, err := e.Import(raw)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if added != 1 || dropped != 1 {
		t.Errorf("expected 1 added / 1 dropped, got %d / %d", added, dropped)
	}
	if e.ItemCount() != 2 {
		t.Errorf("expected quantity 2 from the good entry, got %d", e.ItemCount())
	}
}
