package commands

import (
	"fmt"
	"io"

	"git.home.luguber.info/inful/dirprocess/internal/filter"
)

// FiltersCmd implements the 'filters' command.
type FiltersCmd struct{}

func (f *FiltersCmd) Run(g *Global, _ *CLI) error {
	return ListFilters(g.out())
}

// ListFilters prints the filter catalogue. md is enabled on every template;
// the others need template_handler.filters.
func ListFilters(w io.Writer) error {
	for _, f := range filter.Catalogue() {
		state := "optional"
		if f == filter.Markdown {
			state = "always"
		}
		if _, err := fmt.Fprintf(w, "%-18s %-9s %s\n", f.Name, state, f.Description); err != nil {
			return err
		}
		if f.Usage != "" {
			if _, err := fmt.Fprintf(w, "%-18s %-9s usage: %s\n", "", "", f.Usage); err != nil {
				return err
			}
		}
	}
	return nil
}
