package storage

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
)

var layerPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]*$`)

// SlotInfo describes one file in a layer. Keys have the shape {slot}-{name};
// anything else is listed with Indexed false and never matches a slot.
type SlotInfo struct {
	Key     string
	Path    string
	Slot    int
	Indexed bool
	Name    string

	// Claims is the number of files found for the slot. Only GetSlot sets it.
	Claims int
}

// SlotStore persists one record per (slot, layer) under root. Each layer is
// a directory; the empty layer is root itself.
type SlotStore[T ValidatingSpec] struct {
	root string

	mu sync.Mutex
}

func NewSlotStore[T ValidatingSpec](root string) (*SlotStore[T], error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating savestate directory: %w", err)
	}
	return &SlotStore[T]{root: root}, nil
}

// Save writes rec into slot, replacing whatever the slot held before. The
// new file is written to a temp path first and only renamed into place once
// the old entries are gone.
func (s *SlotStore[T]) Save(name string, rec T, slot int, layer string) error {
	if slot < 0 {
		return ErrInvalidSlot
	}
	if err := checkName(name); err != nil {
		return err
	}
	dir, err := s.layerDir(layer)
	if err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("validating savestate: %w", err)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshalling savestate: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating layer directory: %w", err)
	}

	target := filepath.Join(dir, fmt.Sprintf("%d-%s.json", slot, name))
	tmp, err := writeTemp(target, data, 0644)
	if err != nil {
		return err
	}

	existing, err := s.list(dir)
	if err != nil {
		discardTemp(tmp)
		return err
	}
	for _, info := range existing {
		if !info.Indexed || info.Slot != slot || info.Path == target {
			continue
		}
		if err := os.Remove(info.Path); err != nil && !os.IsNotExist(err) {
			discardTemp(tmp)
			return fmt.Errorf("removing %s: %w", info.Key, err)
		}
	}

	return commitTemp(tmp, target)
}

// List returns every savestate in layer, ordered by slot then name.
func (s *SlotStore[T]) List(layer string) ([]SlotInfo, error) {
	dir, err := s.layerDir(layer)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.list(dir)
}

// ListSlot returns the savestates in layer that claim slot. There is normally
// at most one.
func (s *SlotStore[T]) ListSlot(layer string, slot int) ([]SlotInfo, error) {
	all, err := s.List(layer)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(all, func(info SlotInfo) bool {
		return !info.Indexed || info.Slot != slot
	}), nil
}

// Delete removes everything in slot. Deleting an empty slot is not an error.
func (s *SlotStore[T]) Delete(slot int, layer string) error {
	if slot < 0 {
		return ErrInvalidSlot
	}
	dir, err := s.layerDir(layer)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	infos, err := s.list(dir)
	if err != nil {
		return err
	}
	for _, info := range infos {
		if !info.Indexed || info.Slot != slot {
			continue
		}
		if err := os.Remove(info.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", info.Key, err)
		}
	}
	return nil
}

// Get reads the savestate stored under key. A missing file is reported as
// ok=false with no error; unreadable or invalid content is an error.
func (s *SlotStore[T]) Get(key string, layer string) (T, bool, error) {
	var rec T

	if err := checkName(key); err != nil {
		return rec, false, err
	}
	dir, err := s.layerDir(layer)
	if err != nil {
		return rec, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(dir, key+".json"))
	if os.IsNotExist(err) {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, fmt.Errorf("reading %s: %w", key, err)
	}

	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, false, fmt.Errorf("unmarshalling %s: %w", key, err)
	}
	if err := rec.Validate(); err != nil {
		return rec, false, fmt.Errorf("validating %s: %w", key, err)
	}
	return rec, true, nil
}

// GetSlot loads the savestate in slot. When several files claim the slot the
// first in list order wins and info.Claims says how many there were.
func (s *SlotStore[T]) GetSlot(slot int, layer string) (T, SlotInfo, bool, error) {
	var rec T

	infos, err := s.ListSlot(layer, slot)
	if err != nil {
		return rec, SlotInfo{}, false, err
	}
	if len(infos) == 0 {
		return rec, SlotInfo{}, false, nil
	}
	info := infos[0]
	info.Claims = len(infos)

	rec, ok, err := s.Get(info.Key, layer)
	return rec, info, ok, err
}

// Layers returns the names of every non-default layer on disk.
func (s *SlotStore[T]) Layers() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading savestate directory: %w", err)
	}

	var layers []string
	for _, e := range entries {
		if e.IsDir() && layerPattern.MatchString(e.Name()) {
			layers = append(layers, e.Name())
		}
	}
	return layers, nil
}

func (s *SlotStore[T]) list(dir string) ([]SlotInfo, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []SlotInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading layer directory: %w", err)
	}

	infos := []SlotInfo{}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info := ParseSlotKey(strings.TrimSuffix(e.Name(), ".json"))
		info.Path = filepath.Join(dir, e.Name())
		infos = append(infos, info)
	}

	slices.SortFunc(infos, compareSlots)
	return infos, nil
}

func (s *SlotStore[T]) layerDir(layer string) (string, error) {
	if err := ValidateLayer(layer); err != nil {
		return "", err
	}
	return filepath.Join(s.root, layer), nil
}

// ValidateLayer reports whether layer can name a layer directory.
func ValidateLayer(layer string) error {
	if !layerPattern.MatchString(layer) {
		return fmt.Errorf("%w: %q", ErrInvalidLayer, layer)
	}
	return nil
}

// ParseSlotKey splits a key of the form {slot}-{name} at its first dash.
func ParseSlotKey(key string) SlotInfo {
	info := SlotInfo{Key: key, Name: key}

	idx, name, found := strings.Cut(key, "-")
	if !found {
		return info
	}
	slot, err := strconv.Atoi(idx)
	if err != nil || slot < 0 {
		return info
	}

	info.Slot = slot
	info.Indexed = true
	info.Name = name
	return info
}

func compareSlots(a, b SlotInfo) int {
	if a.Indexed != b.Indexed {
		if a.Indexed {
			return -1
		}
		return 1
	}
	return cmp.Or(cmp.Compare(a.Slot, b.Slot), cmp.Compare(a.Name, b.Name), cmp.Compare(a.Key, b.Key))
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.HasSuffix(name, tempSuffix) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
