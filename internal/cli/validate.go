package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"pubquiz-service/internal/config"
	"pubquiz-service/internal/quizspec"
)

// errInvalidDocument makes the process exit non-zero after diagnostics were printed.
var errInvalidDocument = errors.New("quiz document is invalid")

// NewValidateCmd checks a quiz document and prints its diagnostics.
func NewValidateCmd(configPath *string) *cobra.Command {
	var permissive bool
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a quiz document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := validateFile(*configPath, args[0], permissive)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().BoolVar(&permissive, "permissive", false, "skip the strict checks (overrides quiz.permissive)")
	return cmd
}

// NewFmtCmd prints a document in normalized form with defaults filled in.
func NewFmtCmd(configPath *string) *cobra.Command {
	var permissive bool
	cmd := &cobra.Command{
		Use:   "fmt <file>",
		Short: "Print a quiz document in normalized form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := validateFile(*configPath, args[0], permissive)
			if err != nil {
				return err
			}
			if !res.Valid {
				return printResult(cmd.ErrOrStderr(), res)
			}
			out, err := quizspec.Marshal(res.Spec)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().BoolVar(&permissive, "permissive", false, "skip the strict checks (overrides quiz.permissive)")
	return cmd
}

// NewShareCmd prints the share token of a valid document.
func NewShareCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "share <file>",
		Short: "Print the share token for a quiz document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := validateFile(*configPath, args[0], false)
			if err != nil {
				return err
			}
			if !res.Valid {
				return printResult(cmd.ErrOrStderr(), res)
			}
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), quizspec.EncodeShareToken(string(raw)))
			return err
		},
	}
}

func validateFile(configPath, path string, permissive bool) (quizspec.Result, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return quizspec.Result{}, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return quizspec.Result{}, err
	}
	v := quizspec.Validator{Permissive: permissive || cfg.Quiz.Permissive}
	return v.Validate(string(raw)), nil
}

func printResult(w io.Writer, res quizspec.Result) error {
	if res.Valid {
		fmt.Fprintf(w, "ok: %q, %d rounds, %d questions\n", res.Spec.Title, len(res.Spec.Rounds), res.Spec.QuestionCount())
		return nil
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Line", "Col", "Message"})
	for _, d := range res.Errors {
		tw.AppendRow(table.Row{d.Line, d.Col, d.Message})
	}
	tw.Render()
	return errInvalidDocument
}
