// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package r2 decodes the engine's most common JSON answers into typed
// records. It works over any r2pipe transport.
package r2

import (
	"context"
	"fmt"
	"strconv"

	"github.com/luxfi/r2pipe"
)

// AnalysisLevel selects how deep Analyze goes.
type AnalysisLevel int

const (
	AnalyzeBasic    AnalysisLevel = iota + 1 // aa
	AnalyzeFull                              // aaa
	AnalyzeExtended                          // aaaa
)

func (l AnalysisLevel) command() (string, error) {
	switch l {
	case AnalyzeBasic:
		return "aa", nil
	case AnalyzeFull:
		return "aaa", nil
	case AnalyzeExtended:
		return "aaaa", nil
	default:
		return "", fmt.Errorf("%w: analysis level %d", r2pipe.ErrArgumentMismatch, int(l))
	}
}

// R2 wraps a Pipe with typed queries.
type R2 struct {
	pipe *r2pipe.Pipe
}

// New wraps p. Closing the R2 closes p.
func New(p *r2pipe.Pipe) *R2 {
	return &R2{pipe: p}
}

// Pipe returns the underlying pipe for commands without a typed helper.
func (r *R2) Pipe() *r2pipe.Pipe {
	return r.pipe
}

// Info returns the loaded file's summary ("ij").
func (r *R2) Info(ctx context.Context) (*Info, error) {
	var info Info
	if err := r.pipe.CmdjInto(ctx, "ij", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Analyze runs the analysis at level. Its text output is discarded.
func (r *R2) Analyze(ctx context.Context, level AnalysisLevel) error {
	cmd, err := level.command()
	if err != nil {
		return err
	}
	_, err = r.pipe.Cmd(ctx, cmd)
	return err
}

// Functions lists analyzed functions ("aflj"). Before any analysis the
// engine prints nothing, which is reported as an empty list.
func (r *R2) Functions(ctx context.Context) ([]Function, error) {
	var fns []Function
	return fns, r.list(ctx, "aflj", &fns)
}

// Sections lists the binary's sections ("iSj").
func (r *R2) Sections(ctx context.Context) ([]Section, error) {
	var s []Section
	return s, r.list(ctx, "iSj", &s)
}

// Strings lists strings in data sections ("izj").
func (r *R2) Strings(ctx context.Context) ([]String, error) {
	var s []String
	return s, r.list(ctx, "izj", &s)
}

// Flags lists flags in the current flag space ("fj").
func (r *R2) Flags(ctx context.Context) ([]Flag, error) {
	var f []Flag
	return f, r.list(ctx, "fj", &f)
}

// Registers returns the register profile ("drpj").
func (r *R2) Registers(ctx context.Context) (*RegisterProfile, error) {
	var rp RegisterProfile
	if err := r.pipe.CmdjInto(ctx, "drpj", &rp); err != nil {
		return nil, err
	}
	return &rp, nil
}

// Disassemble decodes n instructions at the current seek ("pdj n").
func (r *R2) Disassemble(ctx context.Context, n int) ([]Instruction, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: instruction count %d", r2pipe.ErrArgumentMismatch, n)
	}
	var ins []Instruction
	return ins, r.list(ctx, "pdj "+strconv.Itoa(n), &ins)
}

// Seek moves the current offset.
func (r *R2) Seek(ctx context.Context, addr uint64) error {
	_, err := r.pipe.Cmd(ctx, "s 0x"+strconv.FormatUint(addr, 16))
	return err
}

// DisassembleAt decodes n instructions at addr without moving the seek.
func (r *R2) DisassembleAt(ctx context.Context, addr uint64, n int) ([]Instruction, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: instruction count %d", r2pipe.ErrArgumentMismatch, n)
	}
	var ins []Instruction
	cmd := "pdj " + strconv.Itoa(n) + " @ 0x" + strconv.FormatUint(addr, 16)
	return ins, r.list(ctx, cmd, &ins)
}

func (r *R2) list(ctx context.Context, cmd string, v interface{}) error {
	res, err := r.pipe.Cmd(ctx, cmd)
	if err != nil {
		return err
	}
	if res == "" {
		return nil
	}
	return r.pipe.Decode(cmd, res, v)
}

// Close closes the pipe.
func (r *R2) Close() error {
	return r.pipe.Close()
}
