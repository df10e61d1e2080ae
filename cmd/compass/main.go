// Command compass runs the dosing analytics engine over JSON exports.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/taylorsterlingwrites/threshold-compass/internal"
	"github.com/taylorsterlingwrites/threshold-compass/internal/analytics"
	"github.com/taylorsterlingwrites/threshold-compass/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	dosesFile    string
	checkInsFile string
	userFile     string
	configFile   string
	now          string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "compass",
		Short: "Run carryover, pattern and threshold analysis on exported logs",
		Long: `compass reads dose and check-in exports (JSON arrays in the same shape the
server stores them) and prints the engine result as JSON.

Examples:
  compass carryover --doses data/doses.json --now 2026-03-10T12:00:00Z
  compass patterns --doses data/doses.json --check-ins data/check_ins.json
  compass threshold --batch b1 --doses data/doses.json --check-ins data/check_ins.json`,
		SilenceUsage: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.dosesFile, "doses", "data/doses.json", "dose log export")
	flags.StringVar(&opts.checkInsFile, "check-ins", "data/check_ins.json", "check-in export")
	flags.StringVar(&opts.userFile, "user", "", "user profile JSON; the default profile when empty")
	flags.StringVar(&opts.configFile, "config", "", "YAML config with engine overrides")
	flags.StringVar(&opts.now, "now", "", "RFC3339 time to evaluate at; wall clock when empty")

	root.AddCommand(carryoverCmd(opts), patternsCmd(opts), thresholdCmd(opts))
	return root
}

func carryoverCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "carryover",
		Short: "Print the carryover a dose taken now would see",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := opts.engine()
			if err != nil {
				return err
			}
			user, err := opts.user()
			if err != nil {
				return err
			}
			doses, err := readJSON[internal.DoseLog](opts.dosesFile)
			if err != nil {
				return err
			}
			var history []internal.DoseLog
			for _, d := range analytics.RecentDoses(doses, engine.Now(), engine.Config().WindowDays) {
				if d.UserID == user.ID || d.UserID == "" {
					history = append(history, d)
				}
			}
			return printJSON(cmd.OutOrStdout(), engine.Carryover(history, user))
		},
	}
}

func patternsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "Print detected patterns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, user, doses, checkIns, err := opts.history()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), engine.DetectPatterns(user, doses, checkIns))
		},
	}
}

func thresholdCmd(opts *options) *cobra.Command {
	var batchID string
	cmd := &cobra.Command{
		Use:   "threshold",
		Short: "Print the estimated dose range for one batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, doses, checkIns, err := opts.history()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), engine.ThresholdRange(doses, checkIns, batchID))
		},
	}
	cmd.Flags().StringVar(&batchID, "batch", "", "batch id")
	_ = cmd.MarkFlagRequired("batch")
	return cmd
}

func (o *options) engine() (*analytics.Engine, error) {
	ec := analytics.DefaultConfig()
	if o.configFile != "" {
		cfg, err := config.LoadFrom(o.configFile)
		if err != nil {
			return nil, err
		}
		ec = cfg.Engine()
	}
	engine := analytics.New(ec)
	if o.now != "" {
		at, err := time.Parse(time.RFC3339, o.now)
		if err != nil {
			return nil, fmt.Errorf("--now: %w", err)
		}
		engine = engine.WithClock(analytics.FixedClock(at))
	}
	return engine, nil
}

func (o *options) user() (internal.User, error) {
	if o.userFile == "" {
		return internal.DefaultUser("u1"), nil
	}
	raw, err := os.ReadFile(o.userFile)
	if err != nil {
		return internal.User{}, fmt.Errorf("reading %s: %w", o.userFile, err)
	}
	user := internal.DefaultUser("")
	if err := json.Unmarshal(raw, &user); err != nil {
		return internal.User{}, fmt.Errorf("parsing %s: %w", o.userFile, err)
	}
	return user, nil
}

func (o *options) history() (*analytics.Engine, internal.User, []internal.DoseLog, []internal.CheckIn, error) {
	engine, err := o.engine()
	if err != nil {
		return nil, internal.User{}, nil, nil, err
	}
	user, err := o.user()
	if err != nil {
		return nil, internal.User{}, nil, nil, err
	}
	doses, err := readJSON[internal.DoseLog](o.dosesFile)
	if err != nil {
		return nil, internal.User{}, nil, nil, err
	}
	checkIns, err := readJSON[internal.CheckIn](o.checkInsFile)
	if err != nil {
		return nil, internal.User{}, nil, nil, err
	}
	return engine, user, doses, checkIns, nil
}

// readJSON treats a missing file as an empty export.
func readJSON[T any](path string) ([]T, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return items, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
