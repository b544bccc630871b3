package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/gifsizer/internal/config"
	"github.com/five82/gifsizer/internal/history"
	"github.com/five82/gifsizer/internal/util"
)

func newHistoryCmd() *cobra.Command {
	var (
		dbPath  string
		limit   int
		session string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent conversions and their trials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dbPath == "" {
				p, err := config.DefaultHistoryPath()
				if err != nil {
					return err
				}
				dbPath = p
			}
			if !util.FileExists(dbPath) {
				return fmt.Errorf("no history database at %s", dbPath)
			}

			store, err := history.Open(dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if session != "" {
				trials, err := store.Trials(cmd.Context(), session)
				if err != nil {
					return err
				}
				return printTrials(cmd.OutOrStdout(), trials)
			}

			sessions, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printSessions(cmd.OutOrStdout(), sessions)
		},
	}

	cmd.Flags().StringVar(&dbPath, "history-db", "", "Trial history database (defaults to the user config directory)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of sessions to list")
	cmd.Flags().StringVar(&session, "session", "", "Show the trials of one session")

	return cmd
}

func printSessions(w io.Writer, sessions []history.Session) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions recorded")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "WHEN\tSESSION\tINPUT\tSTATE\tTARGET\tRESULT\tTRIALS")
	for _, s := range sessions {
		target := "-"
		if s.Target != nil {
			target = util.FormatBytes(*s.Target)
		}
		result := "-"
		if s.Winner != "" {
			result = fmt.Sprintf("%s (%s)", util.FormatBytes(s.WinnerBytes), s.Winner)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			s.CreatedAt.Format("2006-01-02 15:04"), s.ID, util.GetFileStem(s.InputPath),
			s.State, target, result, s.Trials)
	}
	return tw.Flush()
}

func printTrials(w io.Writer, trials []history.Trial) error {
	if len(trials) == 0 {
		_, err := fmt.Fprintln(w, "No trials recorded for this session")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SEQ\tPARAMS\tSIZE\tTIME\tERROR")
	for _, t := range trials {
		size := "-"
		if t.Error == "" {
			size = util.FormatBytes(t.SizeBytes)
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			t.Seq, t.Params, size, t.Elapsed.Round(10*time.Millisecond), t.Error)
	}
	return tw.Flush()
}
