package main

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/Sternrassler/cinegrid/pkg/catalog"
	"github.com/spf13/cobra"
)

type browseFlags struct {
	media  string
	genre  int
	name   string
	search string
	page   int
	size   int
}

func newBrowseCmd(c *cli) *cobra.Command {
	var f browseFlags

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Print one grid page to the terminal",
		Example: `  cinegrid browse --media tv --genre 18 --page 2
  cinegrid browse --search "blade runner"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := f.query(cmd, c.cfg.Catalog.PageSize)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), c.cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			page, err := catalog.NewGrid(a.service, q).Load(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), catalog.RenderPage(page))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.media, "media", "tv", "listing: tv or movie")
	flags.IntVar(&f.genre, "genre", catalog.DefaultGenreID, "TMDB genre id (0 for all)")
	flags.StringVar(&f.name, "name", "", "grid heading")
	flags.StringVar(&f.search, "search", "", "search movies instead of browsing a genre")
	flags.IntVar(&f.page, "page", 1, "virtual page number")
	flags.IntVar(&f.size, "size", 0, "virtual page size (default from config)")

	return cmd
}

// query builds the grid query through the same parser the HTTP API uses.
func (f browseFlags) query(cmd *cobra.Command, defaultSize int) (catalog.Query, error) {
	v := url.Values{}
	v.Set(catalog.ParamPage, strconv.Itoa(f.page))
	size := defaultSize
	if f.size > 0 {
		size = f.size
	}
	v.Set(catalog.ParamSize, strconv.Itoa(size))

	media := catalog.Media(f.media)
	if cmd.Flags().Changed("search") {
		media = catalog.MediaSearch
		v.Set(catalog.ParamSearch, f.search)
	} else {
		if cmd.Flags().Changed("genre") {
			v.Set(catalog.ParamGenre, strconv.Itoa(f.genre))
		}
		if f.name != "" {
			v.Set(catalog.ParamName, f.name)
		}
	}

	q, err := catalog.ParseQuery(media, v)
	if err != nil {
		return catalog.Query{}, err
	}
	return q, q.Validate()
}
