package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/haunted-syllabus/internal/config"
	"github.com/thywilljoshua/haunted-syllabus/internal/extract"
	"github.com/thywilljoshua/haunted-syllabus/internal/paginate"
)

func paginateCmd(cfg *config.Config) *cobra.Command {
	var pageSize, page int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "paginate <file>",
		Short: "Split a text file into pages and print one page or all of them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := extract.FromFile(cmd.Context(), args[0], extract.Options{MaxBytes: cfg.MaxUploadBytes()})
			if err != nil {
				return err
			}
			if pageSize <= 0 {
				pageSize = cfg.Pages.CharactersPerPage
			}
			pages := paginate.Paginate(doc.Text, pageSize)
			if asJSON {
				b, _ := json.MarshalIndent(pages, "", "  ")
				fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			}
			if len(pages) == 0 {
				return nil
			}
			n := paginate.ClampPage(page, len(pages))
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n-- page %d of %d --\n", pages[n-1], n, len(pages))
			return nil
		},
	}
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "characters per page (default from config)")
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page to print, clamped to the document")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print all pages as a JSON array")
	return cmd
}
