package command

import (
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/pixil98/go-savestate/internal/commands"
	"github.com/pixil98/go-savestate/internal/game"
	"github.com/pixil98/go-testutil"
)

const assetsDir = "../../../assets"

func validConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		TickInterval: "100ms",
		Storage: StorageConfig{
			Commands:   AssetConfig[*commands.Command]{Path: filepath.Join(assetsDir, "commands")},
			Zones:      AssetConfig[*game.Zone]{Path: filepath.Join(assetsDir, "zones")},
			Savestates: SlotConfig{Path: filepath.Join(t.TempDir(), "savestates")},
		},
		Nats:  NatsConfig{Port: -1},
		World: WorldConfig{PersistentZone: "player", StartZone: "camp"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := map[string]struct {
		mutate func(c *Config)
		expErr []string
	}{
		"valid": {
			mutate: func(c *Config) {},
		},
		"bad tick interval": {
			mutate: func(c *Config) { c.TickInterval = "soon" },
			expErr: []string{"parsing tick_interval"},
		},
		"negative tick interval": {
			mutate: func(c *Config) { c.TickInterval = "-1s" },
			expErr: []string{"tick_interval must be positive"},
		},
		"listener without port": {
			mutate: func(c *Config) { c.Listeners = []ListenerConfig{{Protocol: ListenerTypeTelnet}} },
			expErr: []string{"listener 0: port must be set"},
		},
		"host key on telnet": {
			mutate: func(c *Config) {
				c.Listeners = []ListenerConfig{{Protocol: ListenerTypeTelnet, Port: 4000, HostKeyPath: "key"}}
			},
			expErr: []string{"host_key_path only applies to ssh listeners"},
		},
		"missing paths": {
			mutate: func(c *Config) { c.Storage = StorageConfig{} },
			expErr: []string{"commands: path is required", "zones: path is required", "savestates: path is required"},
		},
		"world errors are collected": {
			mutate: func(c *Config) { c.World = WorldConfig{TimeStep: "0s", Seed: []uint64{1}} },
			expErr: []string{"start_zone is required", "time_step must be positive", "seed must hold exactly two numbers"},
		},
		"start zone is persistent": {
			mutate: func(c *Config) { c.World.StartZone = "player" },
			expErr: []string{"start_zone must differ from persistent_zone"},
		},
		"bad savestate settings": {
			mutate: func(c *Config) {
				c.Savestate = SavestateConfig{
					Layers:         []string{"main", "../up"},
					RestoreTimeout: "never",
					Deny:           map[string][]string{"Mobile": {}},
				}
			},
			expErr: []string{`layer "../up"`, "parsing restore_timeout", "deny Mobile: no fields listed"},
		},
		"bad nats port": {
			mutate: func(c *Config) { c.Nats.Port = 70000 },
			expErr: []string{"port 70000 is out of range"},
		},
		"negative max connections": {
			mutate: func(c *Config) { c.Console.MaxConnections = -1 },
			expErr: []string{"max_connections must not be negative"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c := validConfig(t)
			tt.mutate(c)

			err := c.Validate()
			if len(tt.expErr) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			for _, e := range tt.expErr {
				testutil.AssertErrorContains(t, err, e)
			}
		})
	}
}

func TestListenerType_UnmarshalText(t *testing.T) {
	var lt ListenerType
	if err := lt.UnmarshalText([]byte("ssh")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "ssh", lt, ListenerTypeSSH)
	testutil.AssertErrorContains(t, lt.UnmarshalText([]byte("gopher")), "unknown listener type: gopher")
}

func TestWorldConfig_BuildWorld(t *testing.T) {
	zones, err := (&AssetConfig[*game.Zone]{Path: filepath.Join(assetsDir, "zones")}).BuildFileStore()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = (&WorldConfig{StartZone: "moon", PersistentZone: "ghost"}).BuildWorld(zones, nil)
	testutil.AssertErrorContains(t, err, `start_zone "moon" not found`)
	testutil.AssertErrorContains(t, err, `persistent_zone "ghost" not found`)

	w, err := (&WorldConfig{StartZone: "camp", PersistentZone: "player", Seed: []uint64{1, 2}}).BuildWorld(zones, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "state", w.State(), game.StateInactive)
}

func TestSavestateConfig_denyRules(t *testing.T) {
	reg := game.NewRegistry()

	rules, err := (&SavestateConfig{Deny: map[string][]string{"Mobile": {"Label"}, "Body": {"Mass"}}}).denyRules(reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "rules", len(rules), 2)

	_, err = (&SavestateConfig{Deny: map[string][]string{"Dragon": {"Hoard"}}}).denyRules(reg)
	testutil.AssertErrorContains(t, err, "Dragon")
}

func TestBuildWorkers(t *testing.T) {
	workers, err := BuildWorkers(validConfig(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var names []string
	for name := range workers {
		names = append(names, name)
	}
	sort.Strings(names)
	testutil.AssertEqual(t, "workers", strings.Join(names, ","), "control,driver,listeners,nats,players")

	_, err = BuildWorkers("not a config")
	testutil.AssertErrorContains(t, err, "unable to cast config")
}
