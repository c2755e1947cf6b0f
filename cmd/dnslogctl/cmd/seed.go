package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/your-username/pihole-log-viewer/internal/database"
	"github.com/your-username/pihole-log-viewer/internal/seeder"
)

func newSeedCommand(o *options) *cobra.Command {
	opts := seeder.DefaultOptions()
	var path string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill a local query database with fake traffic",
		Long:  "Write generated queries straight into a server database file, for demos and development.",
		Example: `  dnslogctl seed --db ./data/queries.db --count 5000 --spread 72h
  dnslogctl seed --db ./demo.db --seed 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Count <= 0 {
				return errors.New("count must be positive")
			}
			if opts.Spread <= 0 {
				return errors.New("spread must be positive")
			}

			db, err := database.Open(path)
			if err != nil {
				return err
			}
			defer db.Close()

			inserted, err := seeder.Seed(cmd.Context(), db, opts, time.Now())
			if err != nil {
				return err
			}
			total, err := db.Count(cmd.Context())
			if err != nil {
				return err
			}
			o.printer(cmd).Success("Inserted %d queries into %s (%d total)", inserted, path, total)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&path, "db", "./data/queries.db", "database file")
	f.IntVar(&opts.Count, "count", opts.Count, "rows to generate")
	f.DurationVar(&opts.Spread, "spread", opts.Spread, "time window the rows span, ending now")
	f.IntVar(&opts.Clients, "clients", opts.Clients, "distinct client addresses")
	f.IntVar(&opts.Domains, "domains", opts.Domains, "distinct domains")
	f.Float64Var(&opts.BlockRate, "block-rate", opts.BlockRate, "share of blocked queries")
	f.Int64Var(&opts.Seed, "seed", 0, "random seed, 0 for a random one")
	return cmd
}
