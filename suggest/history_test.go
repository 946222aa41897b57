package suggest

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestHistoryMostRecentFirst(t *testing.T) {
	h := NewHistory(NewMemoryHistoryStore())

	for _, text := range []string{"CBC", "HbA1c", "Lipid profile"} {
		if _, err := h.Add("tests", text); err != nil {
			t.Fatalf("Add(%q) error = %v", text, err)
		}
	}

	want := []string{"Lipid profile", "HbA1c", "CBC"}
	if got := h.List("tests"); !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
}

func TestHistoryDeduplicatesExactText(t *testing.T) {
	h := NewHistory(NewMemoryHistoryStore())

	for _, text := range []string{"CBC", "HbA1c", "cbc", "CBC"} {
		if _, err := h.Add("tests", text); err != nil {
			t.Fatal(err)
		}
	}

	// Matching is exact, "cbc" is a different entry
	want := []string{"CBC", "cbc", "HbA1c"}
	if got := h.List("tests"); !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
}

func TestHistoryCapacity(t *testing.T) {
	h := NewHistory(NewMemoryHistoryStore())

	for i := 0; i < 15; i++ {
		if _, err := h.Add("tests", fmt.Sprintf("entry %d", i)); err != nil {
			t.Fatal(err)
		}
	}

	got := h.List("tests")
	if len(got) != HistoryCapacity {
		t.Fatalf("len(List()) = %d, want %d", len(got), HistoryCapacity)
	}
	if got[0] != "entry 14" || got[HistoryCapacity-1] != "entry 5" {
		t.Errorf("List() = %v", got)
	}
}

func TestHistoryIgnoresBlankAndSeparatesContexts(t *testing.T) {
	h := NewHistory(NewMemoryHistoryStore())

	if _, err := h.Add("tests", "   "); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Add("medications", "Ibuprofen 200mg"); err != nil {
		t.Fatal(err)
	}

	if got := h.List("tests"); len(got) != 0 {
		t.Errorf("tests history = %v, want empty", got)
	}
	if got := h.List("medications"); len(got) != 1 {
		t.Errorf("medications history = %v", got)
	}
	if got := h.List("unknown"); got == nil || len(got) != 0 {
		t.Errorf("unknown context = %#v, want an empty slice", got)
	}
}

func TestHistoryWriteFailure(t *testing.T) {
	h := NewHistory(failingHistoryStore{})

	entries, err := h.Add("tests", "CBC")
	if err == nil {
		t.Fatal("expected the write error to be returned")
	}
	if len(entries) != 1 || entries[0] != "CBC" {
		t.Errorf("entries = %v", entries)
	}
	if got := h.List("tests"); len(got) != 0 {
		t.Errorf("List() = %v, want empty on read failure", got)
	}
}

func TestFileHistoryStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()

	store, err := NewFileHistoryStore(dir)
	if err != nil {
		t.Fatalf("NewFileHistoryStore() error = %v", err)
	}
	if store.Path() != filepath.Join(dir, HistoryFileName) {
		t.Errorf("Path() = %s", store.Path())
	}

	if got, err := store.Read("tests"); err != nil || len(got) != 0 {
		t.Fatalf("Read() on a missing file = %v, %v", got, err)
	}

	if err := store.Write("tests", []string{"CBC", "TSH"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := store.Write("medications", []string{"Amoxicillin 500mg"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	reopened, err := NewFileHistoryStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	got, err := reopened.Read("tests")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"CBC", "TSH"}) {
		t.Errorf("Read(tests) = %v", got)
	}
	got, _ = reopened.Read("medications")
	if !reflect.DeepEqual(got, []string{"Amoxicillin 500mg"}) {
		t.Errorf("Read(medications) = %v", got)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestFileHistoryStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history", "recent.json")

	store, err := NewFileHistoryStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0640); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Read("tests"); err == nil {
		t.Error("expected an error for a corrupt file")
	}

	// A write replaces the corrupt content
	if err := store.Write("tests", []string{"CBC"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := store.Read("tests")
	if err != nil || !reflect.DeepEqual(got, []string{"CBC"}) {
		t.Errorf("Read() = %v, %v", got, err)
	}
}

func TestHistoryWithFileStore(t *testing.T) {
	store, err := NewFileHistoryStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	h := NewHistory(store)

	for _, text := range []string{"CBC", "TSH", "CBC"} {
		if _, err := h.Add("tests", text); err != nil {
			t.Fatal(err)
		}
	}
	if got := h.List("tests"); !reflect.DeepEqual(got, []string{"CBC", "TSH"}) {
		t.Errorf("List() = %v", got)
	}
}
