package main

import (
	"flag"
	"fmt"
	"strings"

	"gymdesk/internal/application/listutil"
	"gymdesk/internal/domain/entity"
)

// listFlags registers the shared paging, sorting and search flags.
type listFlags struct {
	page    *int
	perPage *int
	sort    *string
	dir     *string
	search  *string
	filters map[string]*string
}

func newListFlags(fs *flag.FlagSet, filterKeys ...string) *listFlags {
	lf := &listFlags{
		page:    fs.Int("page", 1, "page number"),
		perPage: fs.Int("per-page", listutil.DefaultPerPage, "rows per page (10, 20, 50, 100, 200)"),
		sort:    fs.String("sort", "", "sort column"),
		dir:     fs.String("dir", "asc", "asc or desc"),
		search:  fs.String("q", "", "search text"),
		filters: make(map[string]*string),
	}
	for _, key := range filterKeys {
		lf.filters[key] = fs.String(key, "", "filter by "+key)
	}
	return lf
}

func (lf *listFlags) params(sortColumns, filterKeys []string) listutil.ListParams {
	filters := make(map[string]string, len(lf.filters))
	for k, v := range lf.filters {
		filters[k] = *v
	}
	return listutil.ListParams{
		PageParams:   listutil.NewPageParams(*lf.page, *lf.perPage),
		SortParams:   listutil.NewSortParams(*lf.sort, *lf.dir, sortColumns),
		FilterParams: listutil.NewFilterParams(*lf.search, filters, filterKeys),
	}
}

func printPageFooter(d *desk, info listutil.PageInfo) {
	if info.Total == 0 {
		fmt.Fprintln(d.out, "No results")
		return
	}
	if info.ShowPagination() {
		fmt.Fprintf(d.out, "Showing %d-%d of %d (page %d/%d)\n", info.StartRow(), info.EndRow(), info.Total, info.Page, info.TotalPages)
		return
	}
	fmt.Fprintf(d.out, "%d total\n", info.Total)
}

// idArg splits "<id> [flags]" for commands that act on one entity.
func idArg(name string, args []string) (entity.ID, []string, error) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return "", nil, fmt.Errorf("%s: missing id", name)
	}
	return entity.ID(args[0]), args[1:], nil
}

// visited reports which flags were given on the command line.
func visited(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// splitList parses a comma-separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func unknownSubcommand(cmd, sub string) error {
	return fmt.Errorf("%s: unknown subcommand %q", cmd, sub)
}
