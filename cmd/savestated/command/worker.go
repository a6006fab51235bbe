package command

import (
	"context"
	"fmt"

	"github.com/pixil98/go-savestate/internal/commands"
	"github.com/pixil98/go-savestate/internal/driver"
	"github.com/pixil98/go-savestate/internal/game"
	"github.com/pixil98/go-savestate/internal/listener"
	"github.com/pixil98/go-savestate/internal/messaging"
	"github.com/pixil98/go-savestate/internal/savestate"
	"github.com/pixil98/go-savestate/internal/storage"
	"github.com/pixil98/go-service"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	bus, err := cfg.Nats.buildNatsServer()
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}

	zones, err := cfg.Storage.Zones.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating zone store: %w", err)
	}
	world, err := cfg.World.BuildWorld(zones, cfg.Nats.buildPublisher(bus))
	if err != nil {
		return nil, fmt.Errorf("creating world: %w", err)
	}

	slots, err := cfg.Storage.Savestates.BuildSlotStore()
	if err != nil {
		return nil, fmt.Errorf("creating savestate store: %w", err)
	}
	module, err := cfg.Savestate.BuildModule(world, slots, messaging.NewBusNotifier(bus))
	if err != nil {
		return nil, fmt.Errorf("creating savestate module: %w", err)
	}

	cmdHandler, err := buildCommandHandler(cfg, module, world, zones)
	if err != nil {
		return nil, err
	}

	// The console needs the handler, which needs the module, so the console
	// joins the module's notifiers last.
	pm := cfg.Console.BuildPlayerManager(cmdHandler, module.Layer)
	module.AddNotifier(pm)

	cm := listener.NewConnectionManager(pm, listener.WithMaxConnections(cfg.Console.MaxConnections))
	listeners := make(service.WorkerList, len(cfg.Listeners))
	for i, l := range cfg.Listeners {
		w, err := l.BuildListener(cm)
		if err != nil {
			return nil, fmt.Errorf("creating listener %d: %w", i, err)
		}
		listeners[fmt.Sprintf("listener-%d", i)] = w
	}

	if err := world.Enter(context.Background(), cfg.World.StartZone); err != nil {
		return nil, fmt.Errorf("entering %s: %w", cfg.World.StartZone, err)
	}

	drv := driver.NewDriver(
		[]driver.Manager{world},
		driver.WithTickLength(cfg.tickLength(cfg.World.timeStep())),
	)

	return service.WorkerList{
		"nats":      bus,
		"control":   messaging.NewControl(bus, module),
		"driver":    drv,
		"players":   pm,
		"listeners": &listeners,
	}, nil
}

func buildCommandHandler(cfg *Config, module *savestate.Module, world *game.World, zones storage.Storer[*game.Zone]) (*commands.Handler, error) {
	cmds, err := cfg.Storage.Commands.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating command store: %w", err)
	}

	h := commands.NewHandler(cmds, module.Layer)
	factories := map[string]commands.HandlerFactory{
		"save":   commands.NewSaveHandlerFactory(module),
		"load":   commands.NewLoadHandlerFactory(module),
		"delete": commands.NewDeleteHandlerFactory(module),
		"list":   commands.NewListHandlerFactory(module),
		"layer":  commands.NewLayerHandlerFactory(module),
		"status": commands.NewStatusHandlerFactory(module),
		"filter": &commands.FilterHandlerFactory{},
		"move":   commands.NewMoveHandlerFactory(world),
		"where":  commands.NewWhereHandlerFactory(world),
		"travel": commands.NewTravelHandlerFactory(world, module, zones, cfg.World.PersistentZone),
	}
	for name, f := range factories {
		if err := h.RegisterFactory(name, f); err != nil {
			return nil, fmt.Errorf("registering %s handler: %w", name, err)
		}
	}

	if err := h.CompileAll(); err != nil {
		return nil, fmt.Errorf("compiling commands: %w", err)
	}
	return h, nil
}
