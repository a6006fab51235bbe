package command

import (
	"fmt"
	"os"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-savestate/internal/commands"
	"github.com/pixil98/go-savestate/internal/game"
	"github.com/pixil98/go-savestate/internal/snapshot"
	"github.com/pixil98/go-savestate/internal/storage"
)

type StorageConfig struct {
	Commands   AssetConfig[*commands.Command] `json:"commands"`
	Zones      AssetConfig[*game.Zone]        `json:"zones"`
	Savestates SlotConfig                     `json:"savestates"`
}

func (c *StorageConfig) validate() error {
	el := errors.NewErrorList()
	el.Add(c.Commands.Validate("commands"))
	el.Add(c.Zones.Validate("zones"))
	el.Add(c.Savestates.Validate("savestates"))
	return el.Err()
}

type AssetConfig[T storage.ValidatingSpec] struct {
	Path string `json:"path"`
}

func (c *AssetConfig[T]) Validate(name string) error {
	if c.Path == "" {
		return fmt.Errorf("%s: path is required", name)
	}
	_, err := os.Stat(c.Path)
	if err != nil {
		return fmt.Errorf("%s: invalid path %q: %w", name, c.Path, err)
	}

	return nil
}

func (c *AssetConfig[T]) BuildFileStore() (*storage.FileStore[T], error) {
	return storage.NewFileStore[T](c.Path)
}

// SlotConfig points at the savestate directory. It is created on start if
// missing.
type SlotConfig struct {
	Path string `json:"path"`
}

func (c *SlotConfig) Validate(name string) error {
	if c.Path == "" {
		return fmt.Errorf("%s: path is required", name)
	}
	return nil
}

func (c *SlotConfig) BuildSlotStore() (*storage.SlotStore[*snapshot.Record], error) {
	return storage.NewSlotStore[*snapshot.Record](c.Path)
}
