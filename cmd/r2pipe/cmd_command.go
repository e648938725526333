// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luxfi/r2pipe"
)

func newCmdCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var call bool
	var pretty string

	cmd := &cobra.Command{
		Use:   "cmd <uri> <command>...",
		Short: "Run commands on one engine",
		Long: `Run commands on the engine named by uri and print each answer.

uri is a file to spawn the engine on, an engine uri such as malloc://512,
or a transport uri: session:, tcp://host:port, http://host:port,
native://file, jsonrpc://host:port/rpc?open=file, grpc://host:port?session=id.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := r2pipe.Dial(cmd.Context(), args[0], ctx.options()...)
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer p.Close()

			indent := pretty == "always" || (pretty == "auto" && isTerminal(cmd.OutOrStdout()))
			for _, c := range args[1:] {
				if err := runOne(ctx, cmd, p, c, asJSON, call, indent); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Decode every answer as JSON and print it re-encoded")
	cmd.Flags().BoolVar(&call, "call", false, "Send commands with the \"\" prefix so special characters are not interpreted")
	cmd.Flags().StringVar(&pretty, "pretty", "auto", "Indent JSON output: auto, always or never")

	return cmd
}

func runOne(ctx *commandContext, cmd *cobra.Command, p *r2pipe.Pipe, c string, asJSON, call, indent bool) error {
	cctx, cancel := ctx.commandTimeout(cmd.Context())
	defer cancel()

	out := cmd.OutOrStdout()
	if !asJSON {
		run := p.Cmd
		if call {
			run = p.Call
		}
		res, err := run(cctx, c)
		if err != nil {
			return fmt.Errorf("%s: %w", c, err)
		}
		_, err = fmt.Fprintln(out, res)
		return err
	}

	run := p.Cmdj
	if call {
		run = p.Callj
	}
	v, err := run(cctx, c)
	if err != nil {
		return fmt.Errorf("%s: %w", c, err)
	}
	var b []byte
	if indent {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("%s: encode: %w", c, err)
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}
