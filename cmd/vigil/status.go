package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/cuemby/vigil/pkg/notify"
	"github.com/cuemby/vigil/pkg/runtime"
	"github.com/cuemby/vigil/pkg/storage"
	"github.com/cuemby/vigil/pkg/types"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted monitor state",
	Long: `Print the last known state of every monitored container as recorded
in the state file. The running monitor is not contacted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		store, err := storage.New(cfg.StateBackend, cfg.StateFile)
		if err != nil {
			return fmt.Errorf("failed to open state store: %v", err)
		}
		defer store.Close()

		renderSnapshot(cmd.OutOrStdout(), store.Load(), time.Now().UTC())
		return nil
	},
}

// renderSnapshot writes the snapshot as a table, one row per container
func renderSnapshot(w io.Writer, snap *types.Snapshot, now time.Time) {
	if len(snap.Containers) == 0 {
		fmt.Fprintf(w, "%s %s\n", text.FgYellow.Sprint("📋"), text.FgYellow.Sprint("No containers recorded yet"))
		return
	}

	names := make([]string, 0, len(snap.Containers))
	for name := range snap.Containers {
		names = append(names, name)
	}
	sort.Strings(names)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("CONTAINER"),
		text.FgHiCyan.Sprint("STATUS"),
		text.FgHiCyan.Sprint("HEALTH"),
		text.FgHiCyan.Sprint("LAST CHECK"),
		text.FgHiCyan.Sprint("DOWN FOR"),
	})

	var down int
	for _, name := range names {
		state := snap.Containers[name]

		status := text.FgGreen.Sprint(state.Status)
		downFor := "-"
		if !state.Available() {
			down++
			status = text.FgRed.Sprint(state.Status)
		}
		if state.DowntimeStart != nil {
			downFor = notify.FormatDuration(int64(now.Sub(*state.DowntimeStart).Seconds()))
		}

		healthCol := "-"
		if state.Health != types.HealthNone {
			healthCol = string(state.Health)
		}

		t.AppendRow(table.Row{name, status, healthCol, notify.FormatTime(state.LastCheck), downFor})
	}
	t.Render()

	fmt.Fprintf(w, "\n%s %d %s, %d %s (updated %s)\n",
		text.FgHiBlue.Sprint("Total:"),
		len(names), text.FgHiBlue.Sprint("containers"),
		down, text.FgHiBlue.Sprint("unavailable"),
		notify.FormatTime(snap.LastUpdate))
}

var checkCmd = &cobra.Command{
	Use:   "check NAME",
	Short: "Inspect one container now",
	Long: `Ask the runtime for the current state of a single container and
report whether it counts as available. The exit code is non-zero when it
does not, which makes the command usable from scripts.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		inspector, err := runtime.New(cfg.RuntimeOptions(), nil)
		if err != nil {
			return fmt.Errorf("failed to connect to %s: %v", cfg.Runtime, err)
		}
		defer inspector.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		obs, err := inspector.Inspect(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to inspect %s: %v", args[0], err)
		}
		return reportObservation(cmd.OutOrStdout(), args[0], obs)
	},
}

// reportObservation prints obs and returns an error when it is unavailable
func reportObservation(w io.Writer, name string, obs types.Observation) error {
	healthCol := "-"
	if obs.Health != types.HealthNone {
		healthCol = string(obs.Health)
	}
	fmt.Fprintf(w, "%s: status=%s health=%s\n", name, obs.Status, healthCol)

	if !obs.Available() {
		return fmt.Errorf("%s is unavailable", name)
	}
	fmt.Fprintln(w, text.FgGreen.Sprint("✓ available"))
	return nil
}

func init() {
	addConfigFlags(statusCmd)
	addConfigFlags(checkCmd)
}
