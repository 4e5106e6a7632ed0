package main

import (
	"fmt"
	"strconv"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/dshills/redmargin/internal/document"
	"github.com/dshills/redmargin/internal/viewer"
)

func viewCmd(flags *globalFlags) *cobra.Command {
	var noLineNumbers, noMarkers, noHighlight bool
	var theme string

	cmd := &cobra.Command{
		Use:   "view <file>",
		Short: "Show a Markdown file with change markers",
		Long: `Render a Markdown file in the terminal with line numbers and git change
markers in the gutter. The view follows edits to the file and changes to
the repository.

Keys:
  j/k, arrows     scroll
  space/b         page down/up
  g/G             top/bottom
  /               find text, Enter to search, Esc to cancel
  n/N             next/previous match, wrapping at the ends
  l               toggle line numbers
  m               toggle change markers
  r               refresh change markers
  q               quit
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.newSession(true)
			if err != nil {
				return err
			}
			defer s.Close()

			doc, err := s.app.Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			opts := viewer.Options{
				ShowLineNumbers: s.cfg.View.LineNumbers && !noLineNumbers,
				ShowMarkers:     s.cfg.View.Markers && !noMarkers,
			}
			if s.cfg.View.Highlight && !noHighlight {
				if theme == "" {
					theme = s.cfg.View.Theme
				}
				opts.Highlighter = viewer.NewHighlighter(theme)
			}

			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("create screen: %w", err)
			}
			return viewer.Run(cmd.Context(), screen, viewer.NewView(doc.Name, opts), doc, s.logger)
		},
	}

	cmd.Flags().BoolVar(&noLineNumbers, "no-line-numbers", false, "hide line numbers")
	cmd.Flags().BoolVar(&noMarkers, "no-markers", false, "hide change markers")
	cmd.Flags().BoolVar(&noHighlight, "no-highlight", false, "disable code block highlighting")
	cmd.Flags().StringVar(&theme, "theme", "", "chroma style for code blocks")

	return cmd
}

func toggleCmd() *cobra.Command {
	var check, uncheck bool

	cmd := &cobra.Command{
		Use:   "toggle <file> <line>",
		Short: "Flip a task list checkbox",
		Long: `Flip the task list checkbox on a 1-indexed line, or set it with --check
or --uncheck. The file is replaced atomically.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid line %q: %w", args[1], err)
			}

			var checked bool
			switch {
			case check || uncheck:
				if _, err := document.SetTask(args[0], line, check); err != nil {
					return err
				}
				checked = check
			default:
				checked, err = document.ToggleTask(args[0], line)
				if err != nil {
					return err
				}
			}

			state := "unchecked"
			if checked {
				state = "checked"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s:%d %s\n", args[0], line, state)
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "mark the task done")
	cmd.Flags().BoolVar(&uncheck, "uncheck", false, "mark the task open")
	cmd.MarkFlagsMutuallyExclusive("check", "uncheck")

	return cmd
}
