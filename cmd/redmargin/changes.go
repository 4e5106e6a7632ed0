package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/redmargin/internal/changeset"
	"github.com/dshills/redmargin/internal/integration/git"
)

// changeRecord is one line of changes or watch output.
type changeRecord struct {
	Path       string              `json:"path"`
	Root       string              `json:"root,omitempty"`
	Generation uint64              `json:"generation,omitempty"`
	Changes    changeset.ChangeSet `json:"changes"`
}

func rootPathCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "root <file>",
		Short: "Print the repository root containing a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.newSession(false)
			if err != nil {
				return err
			}
			defer s.Close()

			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			repo, err := s.app.Git().LocateRoot(cmd.Context(), path)
			if err != nil {
				return err
			}
			if repo == nil {
				return fmt.Errorf("%s: %w", args[0], git.ErrNotRepository)
			}
			fmt.Fprintln(cmd.OutOrStdout(), repo.Root)
			return nil
		},
	}
}

func changesCmd(flags *globalFlags) *cobra.Command {
	var pretty bool

	cmd := &cobra.Command{
		Use:   "changes <file>...",
		Short: "Print the change set of files against the reference revision",
		Long: `Compare each file with the configured reference revision (HEAD by
default) and print one JSON record per file. Files outside a repository
report an empty change set.

Examples:
  redmargin changes README.md
  redmargin changes --pretty docs/*.md
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.newSession(false)
			if err != nil {
				return err
			}
			defer s.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			if pretty {
				enc.SetIndent("", "  ")
			}

			client := s.app.Git()
			for _, arg := range args {
				path, err := filepath.Abs(arg)
				if err != nil {
					return err
				}
				repo, err := client.LocateRoot(cmd.Context(), path)
				if err != nil {
					return err
				}
				rec := changeRecord{Path: path, Changes: changeset.Empty()}
				if repo != nil {
					rec.Root = repo.Root
					rec.Changes, err = client.Retrieve(cmd.Context(), path, repo)
					if err != nil {
						return err
					}
				}
				if err := enc.Encode(rec); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent JSON output")

	return cmd
}

func watchCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <file>...",
		Short: "Stream change sets as files, the index and HEAD change",
		Long: `Track each file and print a JSON record every time its change set
changes. Runs until interrupted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.newSession(false)
			if err != nil {
				return err
			}
			defer s.Close()

			out := &lineWriter{w: cmd.OutOrStdout()}
			g, ctx := errgroup.WithContext(cmd.Context())
			for _, arg := range args {
				doc, err := s.app.Open(ctx, arg)
				if err != nil {
					return err
				}
				g.Go(func() error {
					for {
						select {
						case <-ctx.Done():
							return nil
						case <-doc.Done():
							return nil
						case u := <-doc.Updates():
							rec := changeRecord{Path: u.Path, Root: u.Root, Generation: u.Generation, Changes: u.Changes}
							if err := out.write(rec); err != nil {
								return err
							}
						case err := <-doc.Errors():
							s.logger.Warn("change tracking", zap.String("document", doc.Path()), zap.Error(err))
						}
					}
				})
			}
			return g.Wait()
		},
	}
}

// lineWriter serializes JSON records from concurrent documents.
type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lineWriter) write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.w.Write(append(data, '\n'))
	return err
}
