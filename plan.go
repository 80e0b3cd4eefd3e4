package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"travelplanner/config"
	"travelplanner/planner"
)

func planCmd() *cobra.Command {
	var (
		req     planner.Request
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan one trip from the command line and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := req.Normalize(); err != nil {
				return err
			}
			cfg, err := config.LoadConfig(cliArgs.ConfigFile)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if cfg.Planner.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Planner.Timeout)
				defer cancel()
			}

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			stderr := cmd.ErrOrStderr()
			var last planner.Progress
			report, err := a.planner.Plan(ctx, req, func(p planner.Progress) {
				last = p
				if p.Err == "" {
					fmt.Fprintln(stderr, lastLine(p.Status))
				}
			})
			if err != nil {
				fmt.Fprintln(stderr, last.Status)
				return err
			}

			if outPath == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), report)
				return err
			}
			if err := os.WriteFile(outPath, []byte(report), 0o644); err != nil {
				return fmt.Errorf("error writing report: %w", err)
			}
			fmt.Fprintf(stderr, "Report written to %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Origin, "origin", "", "Current location (city name or airport code)")
	cmd.Flags().StringVar(&req.Destination, "destination", "", "Where you would like to go")
	cmd.Flags().StringVar(&req.Dates, "dates", "", "Travel dates, e.g. \"April 15-22, 2025\"")
	cmd.Flags().StringVar(&req.Interests, "interests", "", "What you are interested in seeing or doing")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the report to this file instead of stdout")
	for _, name := range []string{"origin", "destination", "dates", "interests"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

// lastLine returns the final line of a status snapshot.
func lastLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
