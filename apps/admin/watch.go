package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/deepweb1970/gestionchantier-sub001/client"
	"github.com/deepweb1970/gestionchantier-sub001/core/realtime"
)

const tokenEnvVar = "API_TOKEN"

type row = map[string]interface{}

func (cli *commandLine) watchCmd() *cobra.Command {
	var (
		baseURL  string
		token    string
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch COLLECTION",
		Short: "Keep a collection of a running API in sync and print its snapshot on every change, until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				token = os.Getenv(tokenEnvVar)
			}
			c, err := client.New(baseURL, token)
			if err != nil {
				return err
			}
			return cli.watch(cmd.Context(), cmd.OutOrStdout(), c, args[0], debounce)
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "http://localhost"+cli.conf.Server.Address, "base URL of the API")
	cmd.Flags().StringVar(&token, "token", "", "JWT of the API (default: $"+tokenEnvVar+")")
	cmd.Flags().DurationVar(&debounce, "debounce", cli.conf.Realtime.Debounce, "coalesce the changes received within this window")
	return cmd
}

// watch binds `collection` & prints every state change until ctx is done.
func (cli *commandLine) watch(ctx context.Context, out io.Writer, c *client.Client, collection string, debounce time.Duration) error {
	b := realtime.NewBinding(
		client.NewWSSubscriber(c, cli.logger),
		collection,
		client.Fetch[row](c, collection, nil),
		&realtime.Options[row]{
			Debounce: debounce,
			Logger:   cli.logger,
			OnChange: func(st realtime.State[row]) { printState(out, collection, st) },
		},
	)
	if err := b.Activate(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return b.Deactivate()
}

func printState(out io.Writer, collection string, st realtime.State[row]) {
	ts := time.Now().Format("15:04:05")
	switch {
	case st.Loading:
		fmt.Fprintf(out, "%s %s: loading...\n", ts, collection)
	case st.Err != nil:
		fmt.Fprintf(out, "%s %s: %v\n", ts, collection, st.Err)
	default:
		fmt.Fprintf(out, "%s %s: %d row(s)\n", ts, collection, len(st.Data))
	}
}
