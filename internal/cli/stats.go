package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"forumdata/internal/models"
)

// Stats summarizes what the store holds.
type Stats struct {
	Users       int                `json:"users"`
	Posts       int                `json:"posts"`
	Comments    int                `json:"comments"`
	Messages    int                `json:"messages"`
	HotSearches []models.HotSearch `json:"hotSearches"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show record counts and hot searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(rootOpts, top, cmd)
		},
	}

	cmd.Flags().IntVar(&top, "top", 10, "number of hot searches to show")
	return cmd
}

func runStats(opts *RootOptions, top int, cmd *cobra.Command) error {
	a, err := openApp(opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := collectStats(a.data, top)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read store", err)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), s)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "users:    %d\nposts:    %d\ncomments: %d\nmessages: %d\n", s.Users, s.Posts, s.Comments, s.Messages)
	if len(s.HotSearches) > 0 {
		fmt.Fprintln(w, "hot searches:")
		for _, h := range s.HotSearches {
			fmt.Fprintf(w, "  %s (%d)\n", h.Keyword, h.Count)
		}
	}
	return nil
}

func collectStats(d *models.DB, top int) (Stats, error) {
	users, err := d.Users()
	if err != nil {
		return Stats{}, err
	}
	posts, err := d.Posts()
	if err != nil {
		return Stats{}, err
	}
	comments, err := d.Comments()
	if err != nil {
		return Stats{}, err
	}
	messages, err := d.Messages()
	if err != nil {
		return Stats{}, err
	}
	hot, err := d.HotSearches(top)
	if err != nil {
		return Stats{}, err
	}
	if hot == nil {
		hot = []models.HotSearch{}
	}
	return Stats{
		Users:       len(users),
		Posts:       len(posts),
		Comments:    len(comments),
		Messages:    len(messages),
		HotSearches: hot,
	}, nil
}
