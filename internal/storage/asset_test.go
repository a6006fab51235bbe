package storage

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/pixil98/go-testutil"
)

type testSpec struct {
	valid bool
}

func (s *testSpec) Validate() error {
	if !s.valid {
		return fmt.Errorf("zone is invalid")
	}
	return nil
}

func TestAsset_Validate(t *testing.T) {
	good := &testSpec{valid: true}

	tests := map[string]struct {
		version uint
		id      Identifier
		spec    *testSpec
		expErrs []string
	}{
		"valid": {
			version: 1,
			id:      "camp-2",
			spec:    good,
		},
		"missing version": {
			id:      "camp",
			spec:    good,
			expErrs: []string{"version must be set"},
		},
		"missing id": {
			version: 1,
			spec:    good,
			expErrs: []string{"id must be set"},
		},
		"path characters in id": {
			version: 1,
			id:      "../camp",
			spec:    good,
			expErrs: []string{"id must be alphanumeric"},
		},
		"everything wrong at once": {
			id:      "camp site",
			spec:    &testSpec{},
			expErrs: []string{"version must be set", "id must be alphanumeric", "zone is invalid"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			a := &Asset[*testSpec]{Version: tt.version, Identifier: tt.id, Spec: tt.spec}
			err := a.Validate()
			if len(tt.expErrs) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				testutil.AssertEqual(t, "id", a.Id().String(), string(tt.id))
				return
			}
			for _, e := range tt.expErrs {
				testutil.AssertErrorContains(t, err, e)
			}
		})
	}
}

// refStore is a minimal Storer for resolving references.
type refStore map[string]*testSpec

func (r refStore) Get(id string) *testSpec      { return r[id] }
func (r refStore) GetAll() map[string]*testSpec { return r }

func TestRef_Resolve(t *testing.T) {
	st := refStore{"camp": {valid: true}}

	tests := map[string]struct {
		key    string
		expErr string
	}{
		"existing asset": {key: "camp"},
		"missing asset":  {key: "ruins", expErr: `testSpec "ruins" not found`},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ref := Ref[*testSpec]{key: tt.key}
			err := ref.Resolve(st)
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "resolved", ref.Get(), st["camp"])
		})
	}
}

func TestRef_JSON(t *testing.T) {
	var holder struct {
		Zone Ref[*testSpec] `json:"zone"`
	}

	if err := json.Unmarshal([]byte(`{"zone":"camp"}`), &holder); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "key", holder.Zone.Key(), "camp")

	out, err := json.Marshal(holder)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "json", string(out), `{"zone":"camp"}`)

	testutil.AssertErrorContains(t, (&Ref[*testSpec]{}).Validate(), "testSpec reference is required")
}
