// rtecho is a minimal worker built on the runtime client: it polls the
// configured runtime API, echoes each event payload back, and demonstrates
// the poll, execute, report cycle end to end. Point it at rtemu for a
// local run, or at AWS_LAMBDA_RUNTIME_API inside a custom runtime.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/spf13/cobra"

	"github.com/kessler-labs/lambda-runtime-client/internal/config"
	"github.com/kessler-labs/lambda-runtime-client/internal/logger"
	"github.com/kessler-labs/lambda-runtime-client/pkg/runtime"
)

var (
	endpoint string
	verbose  bool
	debug    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd *cobra.Command

func init() {
	rootCmd = &cobra.Command{
		Use:          "rtecho",
		Short:        "Echo worker for the Lambda runtime API",
		RunE:         runWorker,
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVarP(&endpoint, "endpoint", "e", "", "Runtime API endpoint host:port (defaults to "+config.EnvRuntimeAPI+")")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "Debug output with caller information")
}

func runWorker(cmd *cobra.Command, args []string) error {
	log := logger.SetupFromFlags(verbose, debug)

	cfg, err := config.LoadFromFlags(cmd.Flags())
	if err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client := runtime.NewClient(cfg.Endpoint, runtime.WithLogger(log))
	worker := runtime.NewWorker(client, runtime.HandlerFunc(echo), log)

	log.Info().
		Str("endpoint", cfg.Endpoint).
		Str("function", cfg.FunctionName).
		Msg("starting worker loop")

	return worker.Run(cmd.Context())
}

// echo returns the event payload unchanged. API Gateway v2 events get a
// proxy response envelope so the result renders as an HTTP response.
func echo(ctx context.Context, payload []byte, eventCtx *runtime.EventContext) ([]byte, error) {
	var event events.APIGatewayV2HTTPRequest
	if err := json.Unmarshal(payload, &event); err == nil && event.Version == "2.0" {
		response := events.APIGatewayV2HTTPResponse{
			StatusCode: 200,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       event.Body,
		}
		return json.Marshal(response)
	}
	return payload, nil
}
