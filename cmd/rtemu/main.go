package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kessler-labs/lambda-runtime-client/internal/emulator"
	"github.com/kessler-labs/lambda-runtime-client/internal/logger"
)

var (
	listenAddr   string
	functionName string
	timeoutSec   int
	verbose      bool
	debug        bool
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
		Use:   "rtemu",
		Short: "Run a local Lambda runtime API emulator",
		Long: `rtemu serves the Lambda runtime API on a local port so workers built on
this module can be exercised without deploying them. Invoke the function by
POSTing a payload to /2015-03-31/functions/function/invocations.`,
		RunE:         runEmulator,
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVarP(&listenAddr, "listen", "l", "127.0.0.1:9001", "Address to serve the runtime API on")
	rootCmd.Flags().StringVarP(&functionName, "function", "f", "function", "Function name used in the synthesized ARN")
	rootCmd.Flags().IntVarP(&timeoutSec, "timeout", "t", 30, "Invocation timeout in seconds, advertised as the deadline")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "Debug output with caller information")
}

func runEmulator(cmd *cobra.Command, args []string) error {
	log := logger.SetupFromFlags(verbose, debug)

	server := emulator.New(functionName,
		emulator.WithTimeout(time.Duration(timeoutSec)*time.Second),
		emulator.WithLogger(log),
	)

	log.Info().
		Str("listen", listenAddr).
		Str("function", functionName).
		Msg("serving runtime API")

	httpServer := &http.Server{
		Addr:    listenAddr,
		Handler: server.Handler(),
		// No read timeout: the worker's next-event call long-polls.
	}
	return httpServer.ListenAndServe()
}
