package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"forumdata/internal/models"
	"forumdata/internal/search"
)

type searchOptions struct {
	topic  string
	author int
	images bool
	hot    bool
	sort   string
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	o := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search visible posts",
		Long: `Search approved posts by title, content, topic and tags.

With no query every visible post matching the filters is listed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var query string
			if len(args) == 1 {
				query = args[0]
			}
			return runSearch(rootOpts, o, query, cmd)
		},
	}

	cmd.Flags().StringVar(&o.topic, "topic", "", "only posts in this topic")
	cmd.Flags().IntVar(&o.author, "author", 0, "only posts by this user id")
	cmd.Flags().BoolVar(&o.images, "images", false, "only posts with images")
	cmd.Flags().BoolVar(&o.hot, "hot", false, "only hot posts")
	cmd.Flags().StringVar(&o.sort, "sort", "latest", "sort order (latest|likes|comments|views)")
	return cmd
}

func runSearch(opts *RootOptions, o *searchOptions, query string, cmd *cobra.Command) error {
	sortBy, err := search.ParseSort(o.sort)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --sort", err)
	}

	a, err := openApp(opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	posts, err := search.New(a.data).Search(query, search.Filters{
		Topic:     o.topic,
		AuthorID:  o.author,
		HasImages: o.images,
		IsHot:     o.hot,
		SortBy:    sortBy,
	})
	if err != nil {
		return WrapExitError(ExitFailure, "search failed", err)
	}

	if opts.Format == "json" {
		if posts == nil {
			posts = []models.Post{}
		}
		return writeJSON(cmd.OutOrStdout(), posts)
	}
	w := cmd.OutOrStdout()
	if len(posts) == 0 {
		fmt.Fprintln(w, "no posts found")
		return nil
	}
	for _, p := range posts {
		fmt.Fprintf(w, "#%d %s [%s] likes=%d comments=%d views=%d\n",
			p.ID, p.Title, p.Topic, p.Likes, p.Comments, p.Views)
	}
	return nil
}
