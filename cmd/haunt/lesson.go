package main

import (
	"github.com/spf13/cobra"

	"github.com/thywilljoshua/haunted-syllabus/internal/ai"
	"github.com/thywilljoshua/haunted-syllabus/internal/config"
	"github.com/thywilljoshua/haunted-syllabus/internal/export"
)

func lessonCmd(cfg *config.Config) *cobra.Command {
	var unit, topic, kind, format string
	cmd := &cobra.Command{
		Use:   "lesson",
		Short: "Generate an overview, in-depth lesson or key takeaways for one topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			k, err := ai.ParseLessonKind(kind)
			if err != nil {
				return err
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			p, _, err := newPipeline(ctx, cfg, nil)
			if err != nil {
				return err
			}
			res, err := p.Lesson(ctx, k, unit, topic)
			if err != nil {
				return err
			}
			return export.Write(cmd.OutOrStdout(), f, res.Text, topic)
		},
	}
	cmd.Flags().StringVar(&unit, "unit", "", "syllabus unit title")
	cmd.Flags().StringVar(&topic, "topic", "", "topic within the unit")
	cmd.Flags().StringVar(&kind, "kind", "overview", "lesson kind: overview|indepth|takeaways")
	cmd.Flags().StringVarP(&format, "format", "f", "md", "output format: txt|md|html|pdf")
	_ = cmd.MarkFlagRequired("unit")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}
