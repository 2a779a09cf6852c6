package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sammcj/mcp-excel/internal/cli"
	"github.com/sammcj/mcp-excel/internal/config"
	"github.com/sammcj/mcp-excel/internal/demo"
	"github.com/sammcj/mcp-excel/internal/harness"
	"github.com/sammcj/mcp-excel/internal/registry"
	"github.com/sammcj/mcp-excel/internal/workbook"
	"github.com/sirupsen/logrus"
	ucli "github.com/urfave/cli/v3"
)

// useStderrLogging sends logs to stderr for the commands that do not serve MCP
func useStderrLogging(logger *logrus.Logger) {
	logger.SetOutput(os.Stderr)
	logger.SetLevel(parseLogLevel())
	if err := config.LoadError(); err != nil {
		logger.WithError(err).Warn("Configuration loaded with errors, using defaults for invalid values")
	}
}

// cliCommand runs tools without an MCP client
func cliCommand(logger *logrus.Logger) *ucli.Command {
	newRunner := func(cmd *ucli.Command) *cli.Runner {
		useStderrLogging(logger)
		return cli.NewRunner(logger, registry.GetCache(), cli.OutputFormat(cmd.String("output")), os.Stdout)
	}

	return &ucli.Command{
		Name:  "cli",
		Usage: "Run workbook tools directly from the command line",
		Flags: []ucli.Flag{
			&ucli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   string(cli.OutputText),
				Usage:   "Output format (text or json)",
			},
		},
		Commands: []*ucli.Command{
			{
				Name:  "list",
				Usage: "List enabled tools",
				Action: func(ctx context.Context, cmd *ucli.Command) error {
					return newRunner(cmd).ListTools()
				},
			},
			{
				Name:      "help",
				Usage:     "Show the parameters of a tool",
				ArgsUsage: "<tool>",
				Action: func(ctx context.Context, cmd *ucli.Command) error {
					if cmd.Args().Len() != 1 {
						return fmt.Errorf("expected exactly one tool name")
					}
					return newRunner(cmd).HelpTool(cmd.Args().First())
				},
			},
			{
				Name:            "run",
				Usage:           "Run a single tool, e.g. run read-cell --sheet-name Sheet1 --cell-address A1",
				ArgsUsage:       "<tool> [--param value ...] [JSON object]",
				SkipFlagParsing: true,
				Action: func(ctx context.Context, cmd *ucli.Command) error {
					if cmd.Args().Len() == 0 {
						return fmt.Errorf("expected a tool name")
					}
					return newRunner(cmd).RunTool(ctx, cmd.Args().First(), cmd.Args().Tail())
				},
			},
			{
				Name:      "session",
				Usage:     "Run tool calls from a file (or stdin), one JSON object per line, sharing open workbooks",
				ArgsUsage: "[file]",
				Action: func(ctx context.Context, cmd *ucli.Command) error {
					var in io.Reader = os.Stdin
					if path := cmd.Args().First(); path != "" && path != "-" {
						f, err := os.Open(path)
						if err != nil {
							return fmt.Errorf("failed to open session file: %w", err)
						}
						defer func() { _ = f.Close() }()
						in = f
					}
					return newRunner(cmd).RunSession(ctx, in)
				},
			},
		},
	}
}

// demoCommand runs a walkthrough against a workbook
func demoCommand(logger *logrus.Logger) *ucli.Command {
	run := func(fn func(io.Writer, *workbook.App) error) ucli.ActionFunc {
		return func(ctx context.Context, cmd *ucli.Command) error {
			useStderrLogging(logger)
			cfg := config.Get()
			app := workbook.New(logger, workbook.Options{MaxCells: cfg.MaxCells})
			defer func() { _ = app.Close() }()

			book, err := app.Open(cmd.String("file"))
			if err != nil {
				return err
			}
			if err := fn(os.Stdout, app); err != nil {
				return err
			}
			if cmd.Bool("save") && book.Dirty() {
				return book.Save()
			}
			return nil
		}
	}

	fileFlag := &ucli.StringFlag{
		Name:     "file",
		Aliases:  []string{"f"},
		Usage:    "Workbook to open",
		Required: true,
	}

	return &ucli.Command{
		Name:  "demo",
		Usage: "Run a short walkthrough of the workbook layer",
		Commands: []*ucli.Command{
			{
				Name:   "sheet-names",
				Usage:  "Print the sheet names of a workbook",
				Flags:  []ucli.Flag{fileFlag},
				Action: run(demo.SheetNames),
			},
			{
				Name:  "read-write",
				Usage: "Read A1:C3 and write test values to column Z of the first sheet",
				Flags: []ucli.Flag{
					fileFlag,
					&ucli.BoolFlag{Name: "save", Usage: "Save the workbook afterwards"},
				},
				Action: run(demo.ReadWrite),
			},
		},
	}
}

// integrationCommand drives the server through the agent CLI
func integrationCommand(logger *logrus.Logger) *ucli.Command {
	return &ucli.Command{
		Name:  "integration",
		Usage: "Run the agent-driven scenarios against fresh fixture workbooks",
		Flags: []ucli.Flag{
			&ucli.StringFlag{
				Name:  "scenario",
				Usage: "Only run scenarios whose name contains this text",
			},
			&ucli.StringFlag{
				Name:  "agent",
				Value: harness.DefaultCommand,
				Usage: "Agent CLI to run",
			},
		},
		Action: func(ctx context.Context, cmd *ucli.Command) error {
			useStderrLogging(logger)

			scenarios, err := harness.LoadScenarios()
			if err != nil {
				return err
			}
			selected := harness.Find(scenarios, cmd.String("scenario"))
			if len(selected) == 0 {
				return fmt.Errorf("no scenario matches '%s'", cmd.String("scenario"))
			}

			tester := harness.NewTester(logger, config.Get().AgentTimeout)
			tester.Command = cmd.String("agent")
			if failed := tester.RunAll(ctx, selected, os.Stdout); failed > 0 {
				return fmt.Errorf("%d of %d scenarios failed", failed, len(selected))
			}
			return nil
		},
	}
}

// configCommand prints the effective configuration
func configCommand() *ucli.Command {
	return &ucli.Command{
		Name:  "config",
		Usage: "Print the effective configuration as YAML",
		Action: func(ctx context.Context, cmd *ucli.Command) error {
			cfg := config.Get()
			if err := config.LoadError(); err != nil {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			fmt.Printf("# %s\n%s", config.Path(), data)
			return nil
		},
	}
}
