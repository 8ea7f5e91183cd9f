package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/haunted-syllabus/internal/config"
	"github.com/thywilljoshua/haunted-syllabus/internal/export"
	"github.com/thywilljoshua/haunted-syllabus/internal/haunt"
	"github.com/thywilljoshua/haunted-syllabus/internal/structure"
)

type generateSummary struct {
	JobID          string `json:"job_id"`
	Output         string `json:"output"`
	Format         string `json:"format"`
	Chunks         int    `json:"chunks"`
	Pages          int    `json:"pages"`
	MatchedJoins   int    `json:"matched_joins"`
	SeparatedJoins int    `json:"separated_joins"`
	MergeFallback  bool   `json:"merge_fallback"`
	Sections       int    `json:"sections"`
	SourcePDFPages int    `json:"source_pdf_pages,omitempty"`
	Duration       string `json:"duration"`
}

func generateCmd(cfg *config.Config) *cobra.Command {
	var (
		out         string
		format      string
		title       string
		chunkSize   int
		pageSize    int
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "generate <file|->",
		Short: "Haunt a document (PDF, text or image) and export the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			if concurrency > 0 {
				cfg.Pipeline.Concurrency = concurrency
			}
			p, _, err := newPipeline(ctx, cfg, nil)
			if err != nil {
				return err
			}

			var text string
			var srcPages int
			if args[0] == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				text = string(b)
			} else {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				doc, err := p.Document(ctx, filepath.Base(args[0]), data)
				if err != nil {
					return err
				}
				text, srcPages = doc.Text, doc.Pages
				if title == "" {
					title = strings.TrimSuffix(doc.Name, filepath.Ext(doc.Name))
				}
			}

			res, err := p.Run(ctx, haunt.Request{Text: text, MaxChunkSize: chunkSize, CharactersPerPage: pageSize})
			if err != nil {
				return err
			}

			if out == "" {
				return export.Write(cmd.OutOrStdout(), f, res.Text, title)
			}
			if info, err := os.Stat(out); err == nil && info.IsDir() {
				out = filepath.Join(out, export.Filename(title, f))
			}
			file, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := export.Write(file, f, res.Text, title); err != nil {
				file.Close()
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			if err := file.Close(); err != nil {
				return err
			}

			b, _ := json.MarshalIndent(generateSummary{
				JobID:          res.JobID,
				Output:         out,
				Format:         string(f),
				Chunks:         res.ProcessedChunks,
				Pages:          len(res.Pages),
				MatchedJoins:   res.Merge.Matched,
				SeparatedJoins: res.Merge.Separated,
				MergeFallback:  res.Merge.Fallback,
				Sections:       len(structure.Flatten(res.Outline)),
				SourcePDFPages: srcPages,
				Duration:       res.Duration.String(),
			}, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file or directory (default: stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "txt", "export format: txt|md|html|pdf")
	cmd.Flags().StringVar(&title, "title", "", "document title (defaults to the input file name)")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "override chunking.max_chunk_size")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "override pages.characters_per_page")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "override pipeline.concurrency")
	return cmd
}
