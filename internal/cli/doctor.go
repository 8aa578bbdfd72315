package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/polyroute/polyroute/internal/llm/configbuilder"
)

// NewDoctorCmd returns a health-check command validating config and the model
// registry it would produce.
func NewDoctorCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Validate configuration and model bindings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config OK. Providers: %d, bound models: %d\n", len(cfg.Providers), len(cfg.Models))

			registry, err := configbuilder.BuildRegistry(cfg)
			if err != nil {
				return fmt.Errorf("registry: %w", err)
			}
			for _, m := range registry.List() {
				status := "unbound"
				if _, _, err := registry.Resolve(m.ID); err == nil {
					status = "ready"
				}
				fmt.Fprintf(out, "  %-22s %-12s %s\n", m.ID, m.Tier, status)
			}

			fmt.Fprintf(out, "Metrics enabled: %v, transport: %s\n", cfg.Server.MetricsEnabled, cfg.Server.Transport)
			return nil
		},
	}
}
