package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/haunted-syllabus/internal/config"
	"github.com/thywilljoshua/haunted-syllabus/internal/extract"
)

func syllabusCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "syllabus <image>",
		Short: "Extract the units and topics of a syllabus image as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			fi, err := os.Stat(args[0])
			if err != nil {
				return err
			}
			if err := extract.Validate(fi.Name(), "", fi.Size(), cfg.MaxUploadBytes()); err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			mt := extract.DetectMIME(data)
			if !strings.HasPrefix(mt, "image/") {
				return fmt.Errorf("%w: only image files are supported (got %s)", extract.ErrUnsupportedType, mt)
			}

			p, _, err := newPipeline(ctx, cfg, nil)
			if err != nil {
				return err
			}
			syl, err := p.Syllabus(ctx, data, mt)
			if err != nil {
				return err
			}
			b, _ := json.MarshalIndent(syl, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
}
