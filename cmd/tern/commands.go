package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/oxhq/tern"
	"github.com/oxhq/tern/syntax"
)

// expandFiles resolves arguments as doublestar globs against the working
// directory, passing non-glob paths through.
func expandFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[{") {
			files = append(files, arg)
			continue
		}
		matches, err := doublestar.FilepathGlob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files")
	}
	return files, nil
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func newTokensCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens <files...>",
		Short: "Dump the token stream of JavaScript sources",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := expandFiles(args)
			if err != nil {
				return err
			}
			store := openHistory()

			for _, file := range files {
				src, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				logger.Debug("lexing", "file", file, "bytes", len(src))

				lex := syntax.NewLexer(string(src), file, 1)
				var lexErr error
				for {
					tok, err := lex.Next()
					if err != nil {
						lexErr = err
						break
					}
					if tok.Type == syntax.TokenEnd {
						break
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%4d  %-12s %s\n", tok.Line, tok.Type.String(), tok.Text)
				}
				record(store, "tokens", file, digest(src), lexErr)
				if lexErr != nil {
					return lexErr
				}
			}
			return nil
		},
	}
}

func newParseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <files...>",
		Short: "Parse JavaScript sources and print their ASTs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := expandFiles(args)
			if err != nil {
				return err
			}
			store := openHistory()

			for _, file := range files {
				src, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				logger.Debug("parsing", "file", file, "bytes", len(src))

				vm := tern.New(tern.Options{File: file})
				tree, parseErr := vm.Compile(string(src))
				record(store, "parse", file, digest(src), parseErr)
				if parseErr != nil {
					return fmt.Errorf("%s", vm.ErrorString())
				}
				if tree.Root != nil {
					fmt.Fprint(cmd.OutOrStdout(), tree.Root.Dump())
				}
			}
			return nil
		},
	}
}

func newJSONCommand() *cobra.Command {
	var (
		indent   int
		showDiff bool
	)

	cmd := &cobra.Command{
		Use:   "json <files...>",
		Short: "Parse JSON documents and re-serialize them canonically",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := expandFiles(args)
			if err != nil {
				return err
			}
			store := openHistory()

			if indent == 0 {
				indent = cfg.Indent
			}

			for _, file := range files {
				src, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				logger.Debug("canonicalizing", "file", file, "bytes", len(src))

				vm := tern.New(tern.Options{File: file})
				out, runErr := canonicalize(vm, string(src), indent)
				record(store, "json", file, digest(src), runErr)
				if runErr != nil {
					return fmt.Errorf("%s: %s", file, vm.ErrorString())
				}

				if showDiff {
					diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
						A:        difflib.SplitLines(string(src)),
						B:        difflib.SplitLines(out + "\n"),
						FromFile: file,
						ToFile:   file + " (canonical)",
						Context:  3,
					})
					if err != nil {
						return err
					}
					fmt.Fprint(cmd.OutOrStdout(), diff)
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&indent, "indent", "i", 0, "Spaces of indentation in the output (0 for compact).")
	cmd.Flags().BoolVarP(&showDiff, "diff", "D", false, "Show a unified diff between input and canonical output.")
	return cmd
}

// canonicalize round-trips a JSON document through the engine's codec.
func canonicalize(vm *tern.VM, src string, indent int) (string, error) {
	v, err := vm.JSONParse(tern.String(src), tern.Undefined)
	if err != nil {
		return "", err
	}

	space := tern.Undefined
	if indent > 0 {
		space = tern.Number(float64(indent))
	}
	out, err := vm.JSONStringify(v, tern.Undefined, space)
	if err != nil {
		return "", err
	}
	return out.Str(), nil
}
