package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go-kafka-emitter/internal/codec"
	"go-kafka-emitter/internal/emitter"
)

func newListenCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "listen <topic>...",
		Short: "Print messages arriving on the given topics until interrupted",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger()
			cfg.OnListenerError = func(topic string, err error) {
				logger.Println("listener error", topic, err)
			}
			e, err := emitter.New(cfg, logger)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			out := cmd.OutOrStdout()
			seen := 0
			printer := func(topic string) *emitter.Listener {
				return emitter.ListenerFunc(func(msg interface{}) {
					line, err := codec.JSON{}.Encode(msg)
					if err != nil {
						line = fmt.Sprint(msg)
					}
					fmt.Fprintf(out, "%s\t%s\n", topic, line)
					seen++
					if count > 0 && seen >= count {
						cancel()
					}
				})
			}
			for _, topic := range args {
				e.On(topic, printer(topic))
			}
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "exit after this many messages (0 waits for a signal)")
	return cmd
}
