// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luxfi/r2pipe"
)

func newPoolCommand(ctx *commandContext) *cobra.Command {
	var targets []string
	var width int
	var callbackLimit int64

	cmd := &cobra.Command{
		Use:   "pool <command>...",
		Short: "Run JSON commands on a pool of engines",
		Long: `Start one engine per pool target, send every command to each of them and
print the results as a table. Targets come from --target or the [[pool]]
section of the configuration.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			names, opts := cfg.PoolSpawn()
			if len(targets) > 0 {
				names = targets
				opts = make([]*r2pipe.SpawnOptions, len(targets))
				for i := range targets {
					opts[i] = cfg.SpawnOptions()
				}
			}
			if len(names) == 0 {
				return errors.New("no pool targets: pass --target or configure [[pool]]")
			}

			log := ctx.log()
			cb := func(id int, res string) {
				log.Debug("pool result", zap.Int("entry", id), zap.Int("bytes", len(res)))
			}
			pool, err := r2pipe.SpawnMany(names, opts, cb, r2pipe.WithLogger(log), r2pipe.WithCallbackLimit(callbackLimit))
			if err != nil {
				return err
			}

			if err := sendAll(pool, args); err != nil {
				return err
			}

			var rows [][]string
			var errs []error
			for _, e := range pool {
				for _, c := range args {
					res, err := e.Recv(true)
					if err != nil {
						// the worker ended early; Join has the reason
						if jerr := e.Join(); jerr != nil {
							err = jerr
						}
						errs = append(errs, fmt.Errorf("%s: %w", names[e.ID], err))
						break
					}
					rows = append(rows, []string{strconv.Itoa(e.ID), names[e.ID], c, truncate(res, width)})
				}
			}
			if err := pool.Close(); err != nil && len(errs) == 0 {
				errs = append(errs, err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Entry", "Target", "Command", "Result"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			return errors.Join(errs...)
		},
	}

	cmd.Flags().StringSliceVarP(&targets, "target", "t", nil, "Files to open, one engine each (overrides [[pool]])")
	cmd.Flags().IntVar(&width, "width", 80, "Truncate results to this many characters")
	cmd.Flags().Int64Var(&callbackLimit, "callback-limit", 0, "Maximum concurrent result callbacks, 0 for unbounded")

	return cmd
}

// sendAll queues every command on every entry. On failure it stops the
// whole pool so no engine outlives the command.
func sendAll(pool r2pipe.Pool, cmds []string) error {
	for _, e := range pool {
		for _, c := range cmds {
			if err := e.Send(c); err != nil {
				err = fmt.Errorf("entry %d: %w", e.ID, err)
				if cerr := pool.Close(); cerr != nil {
					err = errors.Join(err, cerr)
				}
				return err
			}
		}
	}
	return nil
}
