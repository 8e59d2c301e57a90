// Package appcfg loads and checks the declarative app description: the
// device's interrupt controller shape plus the static task and resource
// tables. Everything here is validated before the scheduler touches a
// single register; a priority that needs more bits than the device has is
// rejected with the offending task named, never truncated at runtime.
package appcfg

import (
	"fmt"
	"os"

	yaml "github.com/goccy/go-yaml"

	"irqsched/internal/hw"
	"irqsched/internal/sched"
)

// Device mirrors the `device:` block.
type Device struct {
	PriorityBits int      `yaml:"priority_bits"` // 4 (by default)
	Interrupts   []string `yaml:"interrupts"`    // external vector names, line order
}

// Task mirrors one entry of the `tasks:` block.
type Task struct {
	Name        string `yaml:"name"`
	Kind        string `yaml:"kind"` // "hardware" or "software"
	Priority    int    `yaml:"priority"`
	Capacity    int    `yaml:"capacity"`    // software only
	Binds       string `yaml:"binds"`       // hardware only: interrupt or exception name
	Schedulable bool   `yaml:"schedulable"` // software only
}

// Resource mirrors one entry of the `resources:` block.
type Resource struct {
	Name  string   `yaml:"name"`
	Tasks []string `yaml:"tasks"`
}

// Config mirrors the whole app declaration file.
type Config struct {
	Device    Device     `yaml:"device"`
	Tasks     []Task     `yaml:"tasks"`
	Resources []Resource `yaml:"resources"`
}

func defaultDevice() Device {
	return Device{PriorityBits: 4}
}

// Load reads a YAML app declaration and applies device defaults. The
// declaration is not validated yet; call Validate.
func Load(path string) (Config, error) {
	cfg := Config{Device: defaultDevice()}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("appcfg: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("appcfg: parse %s: %w", path, err)
	}
	if cfg.Device.PriorityBits == 0 {
		cfg.Device.PriorityBits = defaultDevice().PriorityBits
	}
	return cfg, nil
}

// Validate checks the declaration's internal consistency. All checks run
// against the declared device, so a config that validates here also builds.
func (c Config) Validate() error {
	if c.Device.PriorityBits < 1 || c.Device.PriorityBits > 8 {
		return fmt.Errorf("appcfg: device priority_bits must be 1..8, got %d", c.Device.PriorityBits)
	}
	maxPrio := 1<<c.Device.PriorityBits - 1

	if n := len(c.Device.Interrupts); n > hw.MaxExternal {
		return fmt.Errorf("appcfg: device lists %d interrupts but the controller has %d external lines",
			n, hw.MaxExternal)
	}
	irqNames := make(map[string]bool, len(c.Device.Interrupts))
	for _, n := range c.Device.Interrupts {
		if n == "" {
			return fmt.Errorf("appcfg: device lists an unnamed interrupt")
		}
		if _, isExc := hw.ExceptionNamed(n); isExc {
			return fmt.Errorf("appcfg: device interrupt %q shadows a core exception", n)
		}
		if irqNames[n] {
			return fmt.Errorf("appcfg: device interrupt %q listed twice", n)
		}
		irqNames[n] = true
	}

	if len(c.Tasks) == 0 {
		return fmt.Errorf("appcfg: no tasks declared")
	}
	names := make(map[string]bool, len(c.Tasks))
	for _, t := range c.Tasks {
		if t.Name == "" {
			return fmt.Errorf("appcfg: a task has no name")
		}
		if names[t.Name] {
			return fmt.Errorf("appcfg: duplicate task %q", t.Name)
		}
		names[t.Name] = true

		if t.Priority < 0 || t.Priority > maxPrio {
			return fmt.Errorf("appcfg: task %q: priority %d does not fit in %d priority bits (max %d)",
				t.Name, t.Priority, c.Device.PriorityBits, maxPrio)
		}

		switch t.Kind {
		case "hardware":
			if t.Binds == "" {
				return fmt.Errorf("appcfg: hardware task %q binds nothing", t.Name)
			}
			if _, isExc := hw.ExceptionNamed(t.Binds); !isExc && !irqNames[t.Binds] {
				return fmt.Errorf("appcfg: task %q binds unknown interrupt %q", t.Name, t.Binds)
			}
			if t.Capacity != 0 {
				return fmt.Errorf("appcfg: hardware task %q cannot have a capacity", t.Name)
			}
			if t.Schedulable {
				return fmt.Errorf("appcfg: hardware task %q cannot be schedulable", t.Name)
			}
		case "software":
			if t.Binds != "" {
				return fmt.Errorf("appcfg: software task %q cannot bind an interrupt", t.Name)
			}
			if t.Capacity < 1 || t.Capacity > 255 {
				return fmt.Errorf("appcfg: task %q: capacity must be 1..255, got %d", t.Name, t.Capacity)
			}
		default:
			return fmt.Errorf("appcfg: task %q: kind must be hardware or software, got %q", t.Name, t.Kind)
		}
	}

	for _, r := range c.Resources {
		if r.Name == "" {
			return fmt.Errorf("appcfg: a resource has no name")
		}
		if len(r.Tasks) == 0 {
			return fmt.Errorf("appcfg: resource %q has no accessing tasks", r.Name)
		}
		for _, acc := range r.Tasks {
			if !names[acc] {
				return fmt.Errorf("appcfg: resource %q names unknown task %q", r.Name, acc)
			}
		}
	}
	return nil
}

// Externals returns the device's external vectors in declaration order.
func (c Config) Externals() []hw.Vector {
	vs := make([]hw.Vector, len(c.Device.Interrupts))
	for i := range c.Device.Interrupts {
		vs[i] = hw.IRQ(i)
	}
	return vs
}

// ResolveBinds maps an interrupt or exception name to its vector.
func (c Config) ResolveBinds(name string) (hw.Vector, error) {
	if v, ok := hw.ExceptionNamed(name); ok {
		return v, nil
	}
	for i, n := range c.Device.Interrupts {
		if n == name {
			return hw.IRQ(i), nil
		}
	}
	return 0, fmt.Errorf("appcfg: unknown interrupt %q", name)
}

// Decls translates the declaration into the scheduler's task table, wiring
// in the given bodies by task name. Tasks without a body run as no-ops.
func (c Config) Decls(bodies map[string]sched.Body) ([]sched.TaskDecl, error) {
	decls := make([]sched.TaskDecl, 0, len(c.Tasks))
	for _, t := range c.Tasks {
		d := sched.TaskDecl{
			Name:        t.Name,
			Priority:    uint8(t.Priority),
			Capacity:    t.Capacity,
			Schedulable: t.Schedulable,
			Body:        bodies[t.Name],
		}
		switch t.Kind {
		case "hardware":
			d.Kind = sched.Hardware
			v, err := c.ResolveBinds(t.Binds)
			if err != nil {
				return nil, fmt.Errorf("appcfg: task %q: %w", t.Name, err)
			}
			d.Binds = v
		case "software":
			d.Kind = sched.Software
		default:
			return nil, fmt.Errorf("appcfg: task %q: unknown kind %q", t.Name, t.Kind)
		}
		decls = append(decls, d)
	}
	return decls, nil
}
