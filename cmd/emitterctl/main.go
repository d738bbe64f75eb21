package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"go-kafka-emitter/internal/config"
	"go-kafka-emitter/internal/emitter"
)

var (
	version          = "dev"
	cfgFile          string
	connectionString string
	codecName        string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "emitterctl",
		Short: "Publish to and listen on broker topics through the emitter",
		Long: `emitterctl drives the emitter from the command line.
The broker is chosen by the connection string: a Kafka broker list, a redis:// URL,
or nothing for an in-process mock. Settings also come from --config and EMITTER_* variables.`,
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&connectionString, "connection-string", "", "broker list or redis:// URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&codecName, "codec", "", "payload codec: json or msgpack (overrides config)")

	rootCmd.AddCommand(
		newPublishCmd(),
		newListenCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig merges the config file, the environment and the flags.
func loadConfig() (emitter.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return emitter.Config{}, err
	}
	ec := cfg.Emitter()
	if connectionString != "" {
		ec.ConnectionString = connectionString
	}
	if codecName != "" {
		ec.Codec = codecName
	}
	return ec, nil
}

func newLogger() *log.Logger {
	return log.New(os.Stderr, "emitterctl ", log.LstdFlags)
}
