package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/councilsense/minutes-cli/internal/model"
	"github.com/councilsense/minutes-cli/internal/store"
)

var meetingsCmd = &cobra.Command{
	Use:   "meetings",
	Short: "Inspect imported meetings",
	Long:  "Commands for listing imported meetings and viewing their artifacts.",
}

// -- meetings list --

var meetingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List imported meetings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("meetings"); err != nil {
			return err
		}

		dir, _ := cmd.Flags().GetString("store-dir")
		st, err := initStore(ctx, dir)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		meetings, err := st.ListMeetings(ctx, store.MeetingFilter{Limit: limit})
		if err != nil {
			return eris.Wrap(err, "meetings list")
		}

		if len(meetings) == 0 {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "No meetings found.")
			return nil
		}

		formatMeetingsList(cmd.OutOrStdout(), meetings)
		return nil
	},
}

// -- meetings show --

var meetingsShowCmd = &cobra.Command{
	Use:   "show <meeting-id>",
	Short: "Show a meeting and its artifacts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("meetings"); err != nil {
			return err
		}

		dir, _ := cmd.Flags().GetString("store-dir")
		st, err := initStore(ctx, dir)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		detail, err := loadMeetingDetail(cmd.Context(), st, args[0])
		if err != nil {
			return eris.Wrap(err, "meetings show")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(detail)
	},
}

func formatMeetingsList(out io.Writer, meetings []model.Meeting) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tDATE\tLOCATION\tTITLE\tIMPORTED")
	_, _ = fmt.Fprintln(w, "--\t----\t--------\t-----\t--------")

	for _, m := range meetings {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			m.ID,
			dash(m.MeetingDate),
			dash(truncate(m.MeetingLocation, 30)),
			dash(truncate(m.Title, 30)),
			m.ImportedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	meetingsCmd.PersistentFlags().String("store-dir", "", "meeting store directory (default from config)")
	meetingsListCmd.Flags().Int("limit", 50, "maximum meetings to list")

	meetingsCmd.AddCommand(meetingsListCmd, meetingsShowCmd)
	rootCmd.AddCommand(meetingsCmd)
}
