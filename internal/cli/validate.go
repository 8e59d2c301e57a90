package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"irqsched/internal/appcfg"
	"irqsched/internal/hw"
	"irqsched/internal/sched"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <app.yml>",
		Short: "Check an app declaration against its device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appcfg.Load(args[0])
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			// Run the full build too, so everything the builder checks on
			// top of the config shape (vector budget, ceilings) is caught
			// here rather than at boot.
			ctrl, err := hw.NewController(cfg.Device.PriorityBits)
			if err != nil {
				return err
			}
			decls, err := cfg.Decls(nil)
			if err != nil {
				return err
			}
			b := sched.NewBuilder(ctrl, cfg.Externals())
			for _, d := range decls {
				b.AddTask(d)
			}
			for _, r := range cfg.Resources {
				b.AddResource(sched.NewResource[int64](r.Name, 0), r.Tasks...)
			}
			app, err := b.Build()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "device: %d priority bits, %d external vectors\n",
				cfg.Device.PriorityBits, len(cfg.Device.Interrupts))
			fmt.Fprintf(out, "%-12s %-9s %4s %9s %-10s %s\n",
				"TASK", "KIND", "PRIO", "CAPACITY", "VECTOR", "SECTION")
			for _, ti := range app.Tasks() {
				capStr, secStr := "-", "-"
				if ti.Kind == sched.Software {
					capStr = fmt.Sprintf("%d", ti.Capacity)
					secStr = fmt.Sprintf(".uninit.%d", ti.Section)
				}
				fmt.Fprintf(out, "%-12s %-9s %4d %9s %-10s %s\n",
					ti.Name, ti.Kind, ti.Priority, capStr, ti.Vector, secStr)
			}
			for _, ri := range b.Resources() {
				fmt.Fprintf(out, "resource %-12s ceiling=%d\n", ri.Name, ri.Ceiling)
			}
			return nil
		},
	}
}
