package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pixil98/go-testutil"
)

type mockRecord struct {
	Context string `json:"context"`
}

func (r *mockRecord) Validate() error {
	if r.Context == "" {
		return errors.New("context is required")
	}
	return nil
}

func newTestSlotStore(t *testing.T) (*SlotStore[*mockRecord], string) {
	t.Helper()
	root := t.TempDir()
	st, err := NewSlotStore[*mockRecord](root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return st, root
}

func slotKeys(infos []SlotInfo) string {
	keys := make([]string, len(infos))
	for i, info := range infos {
		keys[i] = info.Key
	}
	return strings.Join(keys, ",")
}

func TestParseSlotKey(t *testing.T) {
	tests := map[string]struct {
		key        string
		expIndexed bool
		expSlot    int
		expName    string
	}{
		"simple key":        {key: "3-checkpoint", expIndexed: true, expSlot: 3, expName: "checkpoint"},
		"dash in name":      {key: "12-town 2026-01-02", expIndexed: true, expSlot: 12, expName: "town 2026-01-02"},
		"empty name":        {key: "4-", expIndexed: true, expSlot: 4, expName: ""},
		"no dash":           {key: "checkpoint", expIndexed: false, expName: "checkpoint"},
		"non-numeric index": {key: "abc-def", expIndexed: false, expName: "abc-def"},
		"negative index":    {key: "-1-x", expIndexed: false, expName: "-1-x"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			info := ParseSlotKey(tt.key)
			testutil.AssertEqual(t, "indexed", info.Indexed, tt.expIndexed)
			testutil.AssertEqual(t, "slot", info.Slot, tt.expSlot)
			testutil.AssertEqual(t, "name", info.Name, tt.expName)
			testutil.AssertEqual(t, "key", info.Key, tt.key)
		})
	}
}

func TestSlotStore_SaveOverwritesSlot(t *testing.T) {
	st, root := newTestSlotStore(t)

	if err := st.Save("first", &mockRecord{Context: "camp"}, 3, "main"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := st.Save("second", &mockRecord{Context: "keep"}, 3, "main"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	infos, err := st.ListSlot("main", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "keys", slotKeys(infos), "3-second")

	rec, info, ok, err := st.GetSlot(3, "main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "found", ok, true)
	testutil.AssertEqual(t, "name", info.Name, "second")
	testutil.AssertEqual(t, "claims", info.Claims, 1)
	testutil.AssertEqual(t, "context", rec.Context, "keep")

	_, err = os.Stat(filepath.Join(root, "main", "3-second.json"+tempSuffix))
	testutil.AssertEqual(t, "temp removed", os.IsNotExist(err), true)
}

func TestSlotStore_SaveSameNameTwice(t *testing.T) {
	st, _ := newTestSlotStore(t)

	for _, ctx := range []string{"camp", "keep"} {
		if err := st.Save("checkpoint", &mockRecord{Context: ctx}, 3, "main"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	infos, err := st.List("main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "keys", slotKeys(infos), "3-checkpoint")

	rec, ok, err := st.Get("3-checkpoint", "main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "found", ok, true)
	testutil.AssertEqual(t, "context", rec.Context, "keep")
}

func TestSlotStore_Save_Invalid(t *testing.T) {
	tests := map[string]struct {
		name   string
		rec    *mockRecord
		slot   int
		layer  string
		expErr string
	}{
		"negative slot": {
			name: "x", rec: &mockRecord{Context: "camp"}, slot: -1, layer: "main",
			expErr: ErrInvalidSlot.Error(),
		},
		"layer with separator": {
			name: "x", rec: &mockRecord{Context: "camp"}, slot: 1, layer: "../up",
			expErr: ErrInvalidLayer.Error(),
		},
		"name with separator": {
			name: "a/b", rec: &mockRecord{Context: "camp"}, slot: 1, layer: "main",
			expErr: ErrInvalidName.Error(),
		},
		"empty name": {
			name: "", rec: &mockRecord{Context: "camp"}, slot: 1, layer: "main",
			expErr: ErrInvalidName.Error(),
		},
		"invalid record": {
			name: "x", rec: &mockRecord{}, slot: 1, layer: "main",
			expErr: "context is required",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			st, root := newTestSlotStore(t)

			err := st.Save(tt.name, tt.rec, tt.slot, tt.layer)
			testutil.AssertErrorContains(t, err, tt.expErr)

			entries, err := os.ReadDir(root)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "nothing written", len(entries), 0)
		})
	}
}

func TestSlotStore_ListSkipsMalformed(t *testing.T) {
	st, root := newTestSlotStore(t)
	dir := filepath.Join(root, "main")

	if err := st.Save("b", &mockRecord{Context: "camp"}, 10, "main"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := st.Save("a", &mockRecord{Context: "camp"}, 2, "main"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, f := range []string{"notes.json", "x-y.json", "readme.txt", "5-half.json.tmp"} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("{}"), 0644); err != nil {
			t.Fatalf("failed to write test file: %v", err)
		}
	}

	infos, err := st.List("main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "keys", slotKeys(infos), "2-a,10-b,notes,x-y")
	testutil.AssertEqual(t, "malformed unindexed", infos[2].Indexed, false)

	slot5, err := st.ListSlot("main", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "temp file ignored", len(slot5), 0)
}

func TestSlotStore_LayersAreIsolated(t *testing.T) {
	st, _ := newTestSlotStore(t)

	if err := st.Save("main-save", &mockRecord{Context: "camp"}, 1, "main"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := st.Save("other-save", &mockRecord{Context: "keep"}, 1, "secondary"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	main, err := st.List("main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "main", slotKeys(main), "1-main-save")

	if err := st.Delete(1, "secondary"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	main, err = st.List("main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "main after delete", slotKeys(main), "1-main-save")

	layers, err := st.Layers()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "layers", strings.Join(layers, ","), "main,secondary")
}

func TestSlotStore_MissingLayerIsEmpty(t *testing.T) {
	st, _ := newTestSlotStore(t)

	infos, err := st.List("nothing-here")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "count", len(infos), 0)

	_, _, ok, err := st.GetSlot(0, "nothing-here")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "found", ok, false)
}

func TestSlotStore_DeleteIsIdempotent(t *testing.T) {
	st, _ := newTestSlotStore(t)

	if err := st.Save("x", &mockRecord{Context: "camp"}, 4, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := st.Delete(4, ""); err != nil {
			t.Fatalf("unexpected error on delete %d: %v", i, err)
		}
	}

	infos, err := st.List("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "count", len(infos), 0)
}

func TestSlotStore_Get(t *testing.T) {
	st, root := newTestSlotStore(t)

	if err := st.Save("good", &mockRecord{Context: "camp"}, 1, "main"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "main", "2-broken.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "main", "3-empty.json"), []byte("{}"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	tests := map[string]struct {
		key        string
		expFound   bool
		expErr     string
		expContext string
	}{
		"existing":    {key: "1-good", expFound: true, expContext: "camp"},
		"missing":     {key: "9-gone", expFound: false},
		"malformed":   {key: "2-broken", expErr: "unmarshalling 2-broken"},
		"invalid":     {key: "3-empty", expErr: "context is required"},
		"path in key": {key: "../1-good", expErr: ErrInvalidName.Error()},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rec, ok, err := st.Get(tt.key, "main")
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "found", ok, tt.expFound)
			if tt.expFound {
				testutil.AssertEqual(t, "context", rec.Context, tt.expContext)
			}
		})
	}
}
