// FILE: lixenwraith/printercfg/cmd/printercfg/commands.go
package main

import (
	"errors"
	"fmt"

	"github.com/lixenwraith/printercfg"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// commandKind identifies a subcommand in commandTable
type commandKind int

const (
	cmdParse commandKind = iota
	cmdSections
	cmdGet
	cmdSet
	cmdRemove
	cmdExport
)

type commandSpec struct {
	use   string
	short string
	args  cobra.PositionalArgs
	run   func(a *app, cmd *cobra.Command, args []string) error
}

var commandTable = map[commandKind]commandSpec{
	cmdParse: {
		use:   "parse <line>",
		short: "Split a single option line into name and value",
		args:  cobra.ExactArgs(1),
		run:   (*app).runParse,
	},
	cmdSections: {
		use:   "sections <file>",
		short: "List the sections of a config file",
		args:  cobra.ExactArgs(1),
		run:   (*app).runSections,
	},
	cmdGet: {
		use:   "get <file> <section> <option>",
		short: "Print the value of an option",
		args:  cobra.ExactArgs(3),
		run:   (*app).runGet,
	},
	cmdSet: {
		use:   "set <file> <section> <option> <value>",
		short: "Set an option, creating the section if needed",
		args:  cobra.ExactArgs(4),
		run:   (*app).runSet,
	},
	cmdRemove: {
		use:   "remove <file> <section> [option]",
		short: "Remove an option, or a whole section",
		args:  cobra.RangeArgs(2, 3),
		run:   (*app).runRemove,
	},
	cmdExport: {
		use:   "export <file>",
		short: "Convert the effective values of a config file to another format",
		args:  cobra.ExactArgs(1),
		run:   (*app).runExport,
	},
}

// app carries the state shared by all subcommands
type app struct {
	verbose    bool
	noIncludes bool
	format     string
	settings   settings
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "printercfg",
		Short: "Inspect and edit Klipper style printer configuration files",
		Long: `printercfg reads and edits printer.cfg style files.

Untouched lines, comments and layout are kept when a file is written back.
[include ...] sections are followed when reading unless --no-includes is set.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			a.settings = s

			logger, err := newLogger(s, a.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&a.noIncludes, "no-includes", false, "Do not follow [include ...] sections when reading")

	for _, kind := range []commandKind{cmdParse, cmdSections, cmdGet, cmdSet, cmdRemove, cmdExport} {
		spec := commandTable[kind]
		sub := &cobra.Command{
			Use:   spec.use,
			Short: spec.short,
			Args:  spec.args,
			RunE: func(cmd *cobra.Command, args []string) error {
				return spec.run(a, cmd, args)
			},
		}
		if kind == cmdExport {
			sub.Flags().StringVarP(&a.format, "format", "f", "", "Output format: cfg, toml, json or yaml (default from settings)")
		}
		root.AddCommand(sub)
	}

	return root
}

// readDocument reads a file for querying, following includes unless disabled
func (a *app) readDocument(path string) (*printercfg.Document, error) {
	if a.noIncludes {
		return printercfg.ReadFile(path)
	}
	return printercfg.ReadFileWithIncludes(path)
}

func (a *app) runParse(cmd *cobra.Command, args []string) error {
	key, value, err := printercfg.ParseOption(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", key, value)
	return nil
}

func (a *app) runSections(cmd *cobra.Command, args []string) error {
	doc, err := a.readDocument(args[0])
	if err != nil {
		return err
	}
	for _, name := range doc.Sections() {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}

func (a *app) runGet(cmd *cobra.Command, args []string) error {
	doc, err := a.readDocument(args[0])
	if err != nil {
		return err
	}
	value, err := doc.Get(args[1], args[2])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

// runSet edits the named file only; included files are never written
func (a *app) runSet(cmd *cobra.Command, args []string) error {
	path, sectionName, option, value := args[0], args[1], args[2], args[3]

	doc, err := printercfg.ReadFile(path)
	if err != nil && !errors.Is(err, printercfg.ErrConfigNotFound) {
		return err
	}
	if doc == nil {
		doc = printercfg.NewDocument()
	}

	if !doc.HasSection(sectionName) {
		if err := doc.AddSection(sectionName); err != nil {
			return err
		}
	}
	if err := doc.Set(sectionName, option, value); err != nil {
		return err
	}
	if err := doc.Save(path); err != nil {
		return err
	}

	a.logger.Info("option set",
		zap.String("file", path),
		zap.String("section", sectionName),
		zap.String("option", option))
	return nil
}

func (a *app) runRemove(cmd *cobra.Command, args []string) error {
	path, sectionName := args[0], args[1]

	doc, err := printercfg.ReadFile(path)
	if err != nil {
		return err
	}

	if len(args) == 3 {
		err = doc.RemoveOption(sectionName, args[2])
	} else {
		err = doc.RemoveSection(sectionName)
	}
	if err != nil {
		return err
	}
	if err := doc.Save(path); err != nil {
		return err
	}

	a.logger.Info("removed from config",
		zap.String("file", path),
		zap.String("section", sectionName),
		zap.Strings("option", args[2:]))
	return nil
}

func (a *app) runExport(cmd *cobra.Command, args []string) error {
	format := a.format
	if format == "" {
		format = a.settings.Export.Format
	}

	doc, err := a.readDocument(args[0])
	if err != nil {
		return err
	}

	a.logger.Debug("exporting config", zap.String("file", args[0]), zap.String("format", format))
	return doc.Export(cmd.OutOrStdout(), format)
}
