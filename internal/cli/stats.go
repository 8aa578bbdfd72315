package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

// NewStatsCmd fetches aggregate counters, and optionally drains telemetry,
// from a running daemon.
func NewStatsCmd(opts *Options) *cobra.Command {
	var withTelemetry bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show request totals from the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			base := daemonURL(cfg.Server.Addr)
			if err := fetchJSON(cmd, base+"/v1/stats"); err != nil {
				return err
			}
			if withTelemetry {
				return fetchJSON(cmd, base+"/v1/telemetry")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withTelemetry, "telemetry", false, "Also drain and print buffered per-request telemetry")
	return cmd
}

func fetchJSON(cmd *cobra.Command, url string) error {
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("daemon returned status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var pretty map[string]any
	if err := json.Unmarshal(body, &pretty); err != nil {
		_, _ = cmd.OutOrStdout().Write(body)
		return nil
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
