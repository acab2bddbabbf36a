package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"duprank/pkg/attribute"
)

func buildCriteriaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "criteria",
		Short: "List the attributes accepted by --rank-by and --sort-by",
		Long: `Lists every attribute letter. Lowercase prefers the smaller value,
uppercase the larger one. The directory rule tells how a merged directory
derives its value from the files below it.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return printCriteria()
		},
	}
}

func printCriteria() error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LETTER\tNAME\tTYPE\tDIRECTORY RULE")
	for _, a := range attribute.DefaultRegistry().Attributes() {
		upper := a.Letter - 'a' + 'A'
		fmt.Fprintf(w, "%c/%c\t%s\t%s\t%s\n", a.Letter, upper, a.Name, a.Type, a.Aggregation)
	}
	fmt.Fprintf(w, "\nregistry version %d\n", attribute.RegistryVersion)
	return w.Flush()
}
