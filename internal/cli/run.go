package cli

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bufbuild/connect-go"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"

	"github.com/polyroute/polyroute/internal/classify"
	"github.com/polyroute/polyroute/internal/orchestrator"
	"github.com/polyroute/polyroute/internal/rpc"
	"github.com/polyroute/polyroute/internal/rpc/connectjson"
	"github.com/polyroute/polyroute/internal/rpc/orchestrate"
)

// NewRunCmd wires the run command to stream a generation from the daemon.
func NewRunCmd(opts *Options) *cobra.Command {
	var (
		systemPrompt    string
		modelOverride   string
		complexityForce int
		maxTokens       int
		temperature     float64
		fileCount       int
		images          []string
	)

	cmd := &cobra.Command{
		Use:   "run \"<prompt>\"",
		Short: "Send a prompt to the daemon and stream the response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			prompt := args[0]
			if strings.TrimSpace(prompt) == "" {
				return fmt.Errorf("prompt cannot be empty")
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			reqBody := rpc.GenerateRequest{
				RequestID:       fmt.Sprintf("cli-%d", time.Now().UnixNano()),
				Prompt:          prompt,
				SystemPrompt:    systemPrompt,
				Images:          images,
				MaxTokens:       maxTokens,
				Temperature:     temperature,
				ForceModel:      modelOverride,
				ForceComplexity: classify.Complexity(complexityForce),
				Context:         orchestrator.RequestContext{FileCount: fileCount},
			}

			baseURL := daemonURL(cfg.Server.Addr)
			switch strings.ToLower(strings.TrimSpace(cfg.Server.Transport)) {
			case "ndjson":
				return runNDJSON(ctx, cmd, baseURL+"/v1/generate", reqBody)
			default:
				return runConnect(ctx, cmd, baseURL+orchestrate.ConnectGenerateProcedure, reqBody)
			}
		},
	}

	cmd.Flags().StringVar(&systemPrompt, "system", "", "System prompt to send alongside the user prompt")
	cmd.Flags().StringVar(&modelOverride, "model", "", "Force a specific model id, bypassing routing")
	cmd.Flags().IntVar(&complexityForce, "complexity", 0, "Force a complexity level 1-5, bypassing estimation")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Cap output tokens (0 = strategy default)")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "Sampling temperature (0 = provider default)")
	cmd.Flags().IntVar(&fileCount, "files", 0, "Number of project files in scope, informs complexity estimation")
	cmd.Flags().StringSliceVar(&images, "image", nil, "Image reference to include (repeatable)")
	return cmd
}

func runNDJSON(ctx context.Context, cmd *cobra.Command, url string, reqBody rpc.GenerateRequest) error {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var evt rpc.GenerateEvent
		if err := json.Unmarshal(scanner.Bytes(), &evt); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		if err := renderEvent(cmd, evt); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func runConnect(ctx context.Context, cmd *cobra.Command, url string, reqBody rpc.GenerateRequest) error {
	client := connect.NewClient[rpc.GenerateStreamRequest, rpc.GenerateEvent](buildH2CClient(), url, connect.WithCodec(connectjson.Codec{}))
	stream := client.CallBidiStream(ctx)

	if err := stream.Send(&rpc.GenerateStreamRequest{Generate: &reqBody}); err != nil {
		return err
	}

	// propagate cancellation to the daemon.
	go func() {
		<-ctx.Done()
		_ = stream.Send(&rpc.GenerateStreamRequest{Cancel: true, RequestID: reqBody.RequestID})
		_ = stream.CloseRequest()
	}()

	for {
		evt, err := stream.Receive()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if err := renderEvent(cmd, *evt); err != nil {
			return err
		}
	}
	_ = stream.CloseRequest()
	return stream.CloseResponse()
}

func renderEvent(cmd *cobra.Command, evt rpc.GenerateEvent) error {
	out := cmd.OutOrStdout()
	if evt.Routing != nil {
		fmt.Fprintf(out, "[route %s/%s via %s on %s]\n",
			evt.Routing.TaskType, evt.Routing.Complexity, evt.Routing.Strategy, evt.Routing.PrimaryModel)
	}

	switch evt.Type {
	case "text":
		fmt.Fprint(out, evt.Content)
	case "status":
		fmt.Fprintf(out, "\n[%s]\n", evt.Content)
	case "enhancement_start":
		fmt.Fprintf(out, "\n[refining with %s]\n", evt.Model)
	case "done":
		if evt.Meta != nil && evt.Meta.LatencyMs > 0 {
			fmt.Fprintf(out, "\n[done %s in %dms]\n", evt.Model, evt.Meta.LatencyMs)
		} else {
			fmt.Fprintln(out, "\n[done]")
		}
	case "error":
		return fmt.Errorf("daemon error: %s", evt.Content)
	}
	return nil
}

func buildH2CClient() *http.Client {
	return &http.Client{
		Transport: &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		},
	}
}
