package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meraki-sync/feature/schedule"

	"github.com/spf13/cobra"
)

var scheduleWatch bool

// scheduleCmd is the parent command for scheduled sync tasks.
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage scheduled syncs",
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled sync tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		tasks, err := schedule.NewService(rt.db, rt.engine, rt.logger.Named("schedule")).List(cmd.Context())
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			fmt.Println("No scheduled tasks.")
			return nil
		}
		for _, t := range tasks {
			next := "-"
			if t.NextRun != nil {
				next = t.NextRun.Local().Format(time.RFC3339)
			}
			state := "enabled"
			if !t.Enabled {
				state = "disabled"
			}
			fmt.Printf("#%-4d %-30s %-7s %-8s %-9s next=%s runs=%d\n",
				t.ID, t.Name, t.Frequency, state, t.Status, next, t.TotalRuns)
		}
		return nil
	},
}

var scheduleRunDueCmd = &cobra.Command{
	Use:   "run-due",
	Short: "Execute every due scheduled task",
	Long:  `Executes the tasks whose next run time has passed. With --watch, keeps running them on the configured tick until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		svc := schedule.NewService(rt.db, rt.engine, rt.logger.Named("schedule"))
		if !scheduleWatch {
			n, err := svc.RunDue(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("Executed %d task(s)\n", n)
			return nil
		}

		runner, err := schedule.NewRunner(svc, rt.cfg.Sync.ScheduleTick, rt.logger.Named("schedule"))
		if err != nil {
			return err
		}
		runner.Start()

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		runner.Stop()
		return nil
	},
}

func init() {
	scheduleRunDueCmd.Flags().BoolVar(&scheduleWatch, "watch", false, "Keep running due tasks on the configured tick")
	scheduleCmd.AddCommand(scheduleListCmd, scheduleRunDueCmd)
	RootCmd.AddCommand(scheduleCmd)
}
