package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/haunted-syllabus/internal/config"
	"github.com/thywilljoshua/haunted-syllabus/internal/logger"
)

type rootFlags struct {
	configPath string
	logLevel   string
	logJSON    bool
}

func newRootCmd() *cobra.Command {
	var flags rootFlags
	var cfg *config.Config

	root := &cobra.Command{
		Use:           "haunt",
		Short:         "Turn course material into haunted study notes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				c.Log.Level = flags.logLevel
			}
			if cmd.Flags().Changed("log-json") {
				c.Log.JSON = flags.logJSON
			}
			logger.SetupLogger(c.Log.Level, c.Log.JSON)
			*cfg = *c
			cmd.SetContext(logger.ContextWithLogger(cmd.Context(), logger.GetDefault()))
			return nil
		},
	}
	cfg = config.Default()

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "path to a YAML config file")
	pf.StringVar(&flags.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	pf.BoolVar(&flags.logJSON, "log-json", false, "log as JSON")

	root.AddCommand(
		generateCmd(cfg),
		syllabusCmd(cfg),
		lessonCmd(cfg),
		paginateCmd(cfg),
		serveCmd(cfg),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
