package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/ai-runner/internal/bench"
	"github.com/ziadkadry99/ai-runner/internal/progress"
)

var (
	benchURL         string
	benchEndpoint    string
	benchRequests    int
	benchConcurrency int
	benchInput       string
	benchToken       string
	benchJSON        bool
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark an endpoint of a running airunner server",
	Long: `Sends --requests POST requests to --endpoint with at most --concurrency in
flight and reports latency statistics. The request body is read from the
JSON object in --input; the bearer token comes from --token or AIRUNNER_TOKEN.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := readPayload(benchInput)
		if err != nil {
			return err
		}

		token := benchToken
		if token == "" {
			token = os.Getenv("AIRUNNER_TOKEN")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runner := bench.NewRunner(&http.Client{Timeout: 10 * time.Minute}, progress.NewReporter("Benchmarking "+benchEndpoint))
		res, err := runner.Run(ctx, bench.Config{
			URL:         benchURL,
			Endpoint:    benchEndpoint,
			Requests:    benchRequests,
			Concurrency: benchConcurrency,
			Token:       token,
			Payload:     payload,
		})
		if err != nil && res == nil {
			return err
		}

		if benchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(res); encErr != nil {
				return encErr
			}
		} else {
			fmt.Print(res.String())
		}
		return err
	},
}

// readPayload loads the request fields from a JSON object file.
func readPayload(path string) (map[string]string, error) {
	if path == "" {
		return nil, fmt.Errorf("--input is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	payload := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			payload[k] = s
		} else {
			payload[k] = fmt.Sprint(v)
		}
	}
	return payload, nil
}

func init() {
	benchCmd.Flags().StringVar(&benchURL, "url", "http://localhost:8080", "Server base URL")
	benchCmd.Flags().StringVar(&benchEndpoint, "endpoint", "summarize", "Endpoint: "+strings.Join(bench.Endpoints, ", "))
	benchCmd.Flags().IntVar(&benchRequests, "requests", 10, "Total number of requests")
	benchCmd.Flags().IntVar(&benchConcurrency, "concurrency", 1, "Requests in flight at once")
	benchCmd.Flags().StringVar(&benchInput, "input", "", "JSON file holding the request fields")
	benchCmd.Flags().StringVar(&benchToken, "token", "", "Bearer token")
	benchCmd.Flags().BoolVar(&benchJSON, "json", false, "Print the result as JSON")
	rootCmd.AddCommand(benchCmd)
}
