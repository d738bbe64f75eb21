package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"go-kafka-emitter/internal/codec"
	"go-kafka-emitter/internal/core"
	"go-kafka-emitter/internal/emitter"
)

func newPublishCmd() *cobra.Command {
	var (
		raw     bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "publish <topic> <json>...",
		Short: "Emit one message per JSON argument and flush",
		Long: `Each argument is parsed as JSON. By default it becomes the payload of an event
envelope (id, type, source, timestamp); with --raw it is sent as is.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cfg.ManualFlush = true
			e, err := emitter.New(cfg, newLogger())
			if err != nil {
				return err
			}
			defer e.Close()

			topic := args[0]
			for _, arg := range args[1:] {
				v, err := codec.JSON{}.Decode(arg)
				if err != nil {
					return fmt.Errorf("argument %q: %w", arg, err)
				}
				if !raw {
					payload, ok := v.(map[string]interface{})
					if !ok {
						payload = map[string]interface{}{"value": v}
					}
					v = core.NewEvent(topic, e.Config().ClientID, payload)
				}
				if err := e.Emit(topic, v); err != nil {
					return err
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if err := e.Flush(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %d message(s) to %s\n", len(args)-1, topic)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "send the JSON value without an event envelope")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "flush timeout")
	return cmd
}
