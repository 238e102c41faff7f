package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

// BenchPrompts covers general knowledge, summarization, creative writing,
// sentiment, completion, translation, coding, edge devices, math and
// role play.
var BenchPrompts = []string{
	"What is the capital of France?",
	"Summarize the following text: The industrial revolution was a period of major industrialization...",
	"Write a short poem about the beauty of nature.",
	"Classify the sentiment: 'I absolutely loved the new restaurant!'",
	"Complete this sentence: The quick brown fox jumps over...",
	"Translate to French: 'Good morning, how are you?'",
	"Write a Python function to calculate the factorial of a number.",
	"Explain the benefits of Raspberry Pi in IoT applications.",
	"What is the square root of 256?",
	"Pretend to be a travel assistant. Suggest some attractions in Paris for a family vacation.",
}

// Bench defaults.
const (
	DefaultBenchURL    = "http://localhost:5000"
	DefaultBenchOutput = "llm_test_results.json"
	DefaultBenchPause  = time.Second
	previewLen         = 100
)

// BenchOptions configures a benchmark run.
type BenchOptions struct {
	BaseURL string
	Prompts []string
	Pause   time.Duration
	Output  string
}

// NewBenchCmd creates the bench subcommand.
func NewBenchCmd() *cobra.Command {
	opts := BenchOptions{
		BaseURL: DefaultBenchURL,
		Pause:   DefaultBenchPause,
		Output:  DefaultBenchOutput,
	}

	cmd := &cobra.Command{
		Use:     "bench",
		Aliases: []string{"b"},
		Short:   "Replay the canned prompt set against a running service",
		Long: `Post a fixed set of diverse prompts to <url>/process_prompt, one at a
time with a pause in between. Successful reports are collected with their
round-trip time and written as a JSON array.

Example:
  infmeter bench
  infmeter bench --url http://pi.local:5000 --results out.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Prompts = BenchPrompts
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			results, err := RunBench(ctx, opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nTest completed. %d results saved to '%s'.\n", len(results), opts.Output)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.BaseURL, "url", opts.BaseURL, "Base URL of the metering service")
	cmd.Flags().DurationVar(&opts.Pause, "pause", opts.Pause, "Pause between prompts")
	cmd.Flags().StringVar(&opts.Output, "results", opts.Output, "Results file")

	return cmd
}

// RunBench posts every prompt in order. Failed prompts are reported to out
// and skipped; the successful reports are written to opts.Output.
func RunBench(ctx context.Context, opts BenchOptions, out io.Writer) ([]map[string]interface{}, error) {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(opts.BaseURL, "/")).
		SetHeader("Content-Type", "application/json")

	results := make([]map[string]interface{}, 0, len(opts.Prompts))

	for i, prompt := range opts.Prompts {
		if i > 0 && opts.Pause > 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(opts.Pause):
			}
		}

		fmt.Fprintf(out, "Sending prompt: %s\n", prompt)
		start := time.Now()
		resp, err := client.R().
			SetContext(ctx).
			SetBody(map[string]string{"prompt": prompt}).
			Post("/process_prompt")
		elapsed := time.Since(start).Seconds()
		if err != nil {
			fmt.Fprintf(out, "Error during request: %v\n", err)
			continue
		}
		if resp.StatusCode() != 200 {
			fmt.Fprintf(out, "Error %d: %s\n", resp.StatusCode(), resp.String())
			continue
		}

		var result map[string]interface{}
		if err := json.Unmarshal(resp.Body(), &result); err != nil {
			fmt.Fprintf(out, "Error during request: %v\n", err)
			continue
		}
		result["elapsed_time"] = elapsed
		results = append(results, result)

		text, _ := result["model_response"].(string)
		fmt.Fprintf(out, "Response received in %.2fs: %s...\n", elapsed, preview(text, previewLen))
	}

	if opts.Output != "" {
		if err := saveResults(opts.Output, results); err != nil {
			return results, err
		}
	}
	return results, nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func saveResults(path string, results []map[string]interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(results); err != nil {
		f.Close()
		return fmt.Errorf("failed to write results: %w", err)
	}
	return f.Close()
}
