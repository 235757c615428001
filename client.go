/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Seednode/trexboard/board"
	"github.com/Seednode/trexboard/session"
)

func remoteClient(cfg *Config) (*board.Client, error) {
	remote, err := board.NewRemote(cfg.server, nil)
	if err != nil {
		return nil, err
	}

	return board.New(remote), nil
}

// runTop prints the leaderboard. A leaderboard that cannot be loaded is
// reported on the output, not as a failure.
func runTop(ctx context.Context, cfg *Config, w io.Writer) error {
	client, err := remoteClient(cfg)
	if err != nil {
		return err
	}

	records, err := client.FetchTop(ctx, cfg.limit)
	if status := board.LoadStatus(err); status != "" {
		_, werr := fmt.Fprintln(w, status)
		return werr
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, row := range session.Render(records, nil) {
		if row.Placeholder {
			fmt.Fprintln(tw, row.Name)
			continue
		}
		fmt.Fprintf(tw, "%d.\t%s\t%d\n", row.Rank, row.Name, row.Score)
	}

	return tw.Flush()
}

func runSubmit(ctx context.Context, cfg *Config, w io.Writer) error {
	client, err := remoteClient(cfg)
	if err != nil {
		return err
	}

	result := client.Submit(ctx, cfg.name, cfg.score)

	switch result.Reason {
	case board.ReasonNone:
		_, err = fmt.Fprintln(w, "Score submitted.")
		return err
	case board.ReasonMissingName:
		return errors.New("a name is required to submit scores (--name)")
	case board.ReasonMissingBackend:
		return errors.New(board.DisabledStatus)
	default:
		return fmt.Errorf("failed to submit score: %s", result.Message)
	}
}
