// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/siemens/nscrawler/collector"
	"github.com/spf13/cobra"
)

func newFeaturesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "features",
		Short: "list the available features and the namespaces they need",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "FEATURE\tNAMESPACES\tROOTFS")
			for _, name := range collector.Names() {
				f, err := collector.Lookup(name)
				if err != nil {
					return err
				}
				kinds := make([]string, 0, len(f.Namespaces()))
				for _, kind := range f.Namespaces() {
					kinds = append(kinds, kind.String())
				}
				rootfs := "no"
				if collector.SupportsRootfs(f) {
					rootfs = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, strings.Join(kinds, ","), rootfs)
			}
			return w.Flush()
		},
	}
}
