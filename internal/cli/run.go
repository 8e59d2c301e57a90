package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"irqsched/internal/appcfg"
	"irqsched/internal/hw"
	"irqsched/internal/job"
	"irqsched/internal/sched"
)

func newRunCmd() *cobra.Command {
	var (
		flagTicks        uint32
		flagTickMS       int
		flagCSV          string
		flagTriggerEvery uint32
	)

	cmd := &cobra.Command{
		Use:   "run <app.yml>",
		Short: "Boot an app on the simulated controller and run it",
		Long: "run boots the declared app, spawns every software task once,\n" +
			"schedules the schedulable ones, and drives the timer for a fixed\n" +
			"number of ticks while periodically triggering hardware tasks.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appcfg.Load(args[0])
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctrl, err := hw.NewController(cfg.Device.PriorityBits)
			if err != nil {
				return err
			}

			// Wire demo bodies: tasks that touch a declared resource tally
			// it under the ceiling lock, the rest just log.
			resources := make(map[string]*sched.Resource[int64], len(cfg.Resources))
			bodyFor := make(map[string]sched.Body, len(cfg.Tasks))
			for _, r := range cfg.Resources {
				res := sched.NewResource[int64](r.Name, 0)
				resources[r.Name] = res
				for _, acc := range r.Tasks {
					if _, done := bodyFor[acc]; !done {
						bodyFor[acc] = job.Tally(logger, res)
					}
				}
			}
			for _, t := range cfg.Tasks {
				if _, done := bodyFor[t.Name]; !done {
					bodyFor[t.Name] = job.Echo(logger)
				}
			}

			decls, err := cfg.Decls(bodyFor)
			if err != nil {
				return err
			}
			b := sched.NewBuilder(ctrl, cfg.Externals())
			for _, d := range decls {
				b.AddTask(d)
			}
			for _, r := range cfg.Resources {
				b.AddResource(resources[r.Name], r.Tasks...)
			}
			app, err := b.Build()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			app.SetTrace(func(ev sched.Event) {
				fmt.Fprintln(out, sched.FormatEvent(ev))
			})
			if flagCSV != "" {
				if err := app.EnableCSVLogging(flagCSV); err != nil {
					return err
				}
				defer app.Close()
			}

			if err := app.Start(); err != nil {
				return err
			}

			for _, t := range cfg.Tasks {
				if t.Kind != "software" {
					continue
				}
				if t.Schedulable {
					if err := app.Schedule(t.Name, app.Now()+16, t.Name); err != nil {
						return err
					}
					continue
				}
				if err := app.Spawn(t.Name, t.Name); err != nil {
					return err
				}
			}

			var clock *sched.TickClock
			if flagTickMS > 0 {
				clock = sched.NewTickClock(256)
				clock.Start(time.Duration(flagTickMS) * time.Millisecond)
				defer clock.Stop()
			}

			for tick := uint32(1); tick <= flagTicks; tick++ {
				if clock != nil {
					<-clock.Ch
				}
				if app.TimerRunning() {
					app.Advance(1)
				}
				if flagTriggerEvery > 0 && tick%flagTriggerEvery == 0 {
					for _, t := range cfg.Tasks {
						if t.Kind == "hardware" {
							if err := app.Trigger(t.Name); err != nil {
								return err
							}
						}
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().Uint32Var(&flagTicks, "ticks", 200, "Number of timer ticks to run")
	cmd.Flags().IntVar(&flagTickMS, "tick-ms", 0, "Real milliseconds per tick (0 = as fast as possible)")
	cmd.Flags().StringVar(&flagCSV, "csv", "", "Write the event trace to a CSV file")
	cmd.Flags().Uint32Var(&flagTriggerEvery, "trigger-every", 32, "Trigger hardware tasks every N ticks (0 = never)")

	return cmd
}
