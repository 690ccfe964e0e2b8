package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/skosovsky/toolbox"
	"github.com/skosovsky/toolbox/adapters/anthropictool"
	"github.com/skosovsky/toolbox/adapters/openaitool"
)

const maxLineBytes = 1 << 20

func (a *app) toolsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List registered tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), a.reg.Signatures())
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, d := range a.reg.Descriptions() {
				_, _ = fmt.Fprintf(w, "%s\t%s\n", d.Name, d.Description)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print name, input and output types as JSON")
	return cmd
}

func (a *app) declarationsCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "declarations",
		Short: "Print function declarations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			switch format {
			case "native":
				return writeJSON(out, a.reg.Declarations())
			case "openai":
				ts, err := openaitool.FromRegistry(a.reg)
				if err != nil {
					return err
				}
				return writeJSON(out, ts.Tools())
			case "anthropic":
				ts, err := anthropictool.FromRegistry(a.reg)
				if err != nil {
					return err
				}
				return writeJSON(out, ts.Tools())
			default:
				return fmt.Errorf("unknown format %q: want native, openai or anthropic", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "native", "Output format: native, openai or anthropic")
	return cmd
}

func (a *app) callCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call [NAME [ARGS]]",
		Short: "Call a tool, or a batch of calls read from stdin",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var calls []toolbox.FunctionCall
			if len(args) == 0 {
				var err error
				if calls, err = readCalls(cmd.InOrStdin()); err != nil {
					return err
				}
			} else {
				call := toolbox.FunctionCall{Name: args[0]}
				if len(args) == 2 {
					call.Arguments = json.RawMessage(args[1])
				}
				calls = append(calls, call)
			}

			replies := toolbox.Replies(a.reg.CallBatch(cmd.Context(), calls))
			enc := json.NewEncoder(cmd.OutOrStdout())
			failed := 0
			for _, r := range replies {
				if r.IsError() {
					failed++
				}
				if err := enc.Encode(r); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d calls failed", failed, len(replies))
			}
			return nil
		},
	}
}

// readCalls parses one FunctionCall per non-blank line.
func readCalls(r io.Reader) ([]toolbox.FunctionCall, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	var calls []toolbox.FunctionCall
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var call toolbox.FunctionCall
		if err := json.Unmarshal([]byte(text), &call); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if call.Name == "" {
			return nil, fmt.Errorf("line %d: missing name", line)
		}
		calls = append(calls, call)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read calls: %w", err)
	}
	if len(calls) == 0 {
		return nil, errors.New("no calls on stdin")
	}
	return calls, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
