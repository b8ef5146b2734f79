package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/searchsync/internal/domain/search/filter"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/domain/search/result"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	page    int
	perPage int
	where   []string // field=value, repeatable
	whereIn []string // field=v1,v2
	orderBy []string // field or field:desc
	trashed string   // "", "with", "only"
	format  string   // "text", "json"
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <model> [term...]",
		Short: "Search a model and print the matching live records",
		Long: `Search a model and print the matching live records in engine rank order.

Examples:
  searchsync search posts "hello world"
  searchsync search posts --where status=draft --order-by id:desc
  searchsync search posts zonda --where-in id=1,2,3 --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			term := strings.Join(args[1:], " ")
			return runSearch(cmd.Context(), cmd, root, args[0], term, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.page, "page", "p", 1, "Page number")
	cmd.Flags().IntVarP(&opts.perPage, "per-page", "n", 0, "Results per page (default: the model's per_page)")
	cmd.Flags().StringArrayVar(&opts.where, "where", nil, "Equality filter field=value (repeatable)")
	cmd.Flags().StringArrayVar(&opts.whereIn, "where-in", nil, "Membership filter field=v1,v2 (repeatable)")
	cmd.Flags().StringArrayVar(&opts.orderBy, "order-by", nil, "Sort clause field or field:desc (repeatable)")
	cmd.Flags().StringVar(&opts.trashed, "trashed", "", "Trashed records: with, only")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, root *rootOptions, modelName, term string, opts searchOptions) error {
	a, err := newApp(ctx, root, false)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	b, err := a.search.Query(modelName, term)
	if err != nil {
		return err
	}
	if err := opts.apply(b); err != nil {
		return err
	}

	page, err := a.search.Paginate(ctx, b.Build(), opts.perPage, opts.page)
	if err != nil {
		return fmt.Errorf("search %s: %w", modelName, err)
	}
	return printPage(cmd, page, opts.format)
}

// apply adds the flag constraints to b in flag order.
func (o searchOptions) apply(b *request.Builder) error {
	for _, w := range o.where {
		field, value, ok := strings.Cut(w, "=")
		if !ok || field == "" {
			return fmt.Errorf("invalid --where %q: want field=value", w)
		}
		b.Where(field, filter.Parse(value))
	}
	for _, w := range o.whereIn {
		field, list, ok := strings.Cut(w, "=")
		if !ok || field == "" {
			return fmt.Errorf("invalid --where-in %q: want field=v1,v2", w)
		}
		var values []any
		if list != "" {
			for _, v := range strings.Split(list, ",") {
				values = append(values, filter.Parse(v))
			}
		}
		b.WhereIn(field, values...)
	}
	for _, ob := range o.orderBy {
		field, dir, _ := strings.Cut(ob, ":")
		b.OrderBy(field, request.Direction(strings.ToLower(dir)))
	}
	switch o.trashed {
	case "":
	case "with":
		b.WithTrashed()
	case "only":
		b.OnlyTrashed()
	default:
		return fmt.Errorf("invalid --trashed %q: want with or only", o.trashed)
	}
	return nil
}

// hitOutput is one line of --format json output.
type hitOutput struct {
	Key      string         `json:"key"`
	Record   map[string]any `json:"record"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type pageOutput struct {
	Hits        []hitOutput `json:"hits"`
	Total       int         `json:"total"`
	PerPage     int         `json:"per_page"`
	CurrentPage int         `json:"current_page"`
	LastPage    int         `json:"last_page"`
}

func printPage(cmd *cobra.Command, p result.Page, format string) error {
	out := cmd.OutOrStdout()
	hits := make([]hitOutput, 0, len(p.Items))
	for _, it := range p.Items {
		hits = append(hits, hitOutput{
			Key:      it.Record.SearchKey(),
			Record:   it.Record.SearchableProjection(),
			Metadata: it.Metadata,
		})
	}

	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(pageOutput{
			Hits:        hits,
			Total:       p.Total,
			PerPage:     p.PerPage,
			CurrentPage: p.CurrentPage,
			LastPage:    p.LastPage(),
		})
	case "text", "":
		for _, h := range hits {
			body, err := json.Marshal(h.Record)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(out, "%s\t%s\n", h.Key, body); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(out, "page %d of %d, %d total\n", p.CurrentPage, p.LastPage(), p.Total)
		return err
	default:
		return fmt.Errorf("unknown format %q: want text or json", format)
	}
}
