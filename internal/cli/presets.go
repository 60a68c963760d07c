package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/liuji1031/visualize-architecture/pkg/preset"
)

// presetsCommand creates the presets command group.
func (c *CLI) presetsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "Inspect and publish example model configurations",
	}

	cmd.AddCommand(c.presetsListCommand())
	cmd.AddCommand(c.presetsShowCommand())
	cmd.AddCommand(c.presetsPublishCommand())

	return cmd
}

// presetsListCommand creates the "presets list" subcommand.
func (c *CLI) presetsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			stores, closeStores, err := c.presetStores(ctx)
			if err != nil {
				return err
			}
			if closeStores != nil {
				defer closeStores(context.Background())
			}

			presets, err := stores.List(ctx)
			if err != nil {
				return fmt.Errorf("list presets: %w", err)
			}
			if len(presets) == 0 {
				printInfo("No presets available")
				return nil
			}
			for _, p := range presets {
				printKeyValue(p.Name, p.Description)
			}
			return nil
		},
	}
}

// presetsShowCommand creates the "presets show" subcommand.
func (c *CLI) presetsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Show a preset's files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			stores, closeStores, err := c.presetStores(ctx)
			if err != nil {
				return err
			}
			if closeStores != nil {
				defer closeStores(context.Background())
			}

			p, err := stores.Get(ctx, args[0])
			if err != nil {
				return err
			}

			printKeyValue("name", p.Name)
			if p.Description != "" {
				printKeyValue("description", p.Description)
			}
			printKeyValue("main file", p.MainFile)

			names := make([]string, 0, len(p.Files))
			for name := range p.Files {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				printFile(name)
			}
			return nil
		},
	}
}

// presetsPublishCommand creates the "presets publish" subcommand. It reads
// a model folder and stores it in the shared mongo preset store.
func (c *CLI) presetsPublishCommand() *cobra.Command {
	var (
		name        string
		description string
	)

	cmd := &cobra.Command{
		Use:   "publish [dir]",
		Short: "Publish a model folder to the shared preset store",
		Long: `Publish a model folder to the shared preset store.

The folder must contain a ` + preset.MainFileName + ` entry file; every file in the
folder is stored so nested config references keep resolving. Publishing
requires a configured mongo_url in the settings file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPublish(cmd.Context(), args[0], name, description)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "preset name (default: folder name)")
	cmd.Flags().StringVar(&description, "description", "", "preset description")

	return cmd
}

// runPublish loads the folder and writes it to the mongo store.
func (c *CLI) runPublish(ctx context.Context, dir, name, description string) error {
	s, err := c.settings()
	if err != nil {
		return err
	}
	if s.Preset.MongoURL == "" {
		return fmt.Errorf("publishing requires mongo_url in the settings file")
	}

	p, err := loadPresetDir(dir, name, description)
	if err != nil {
		return err
	}

	store, err := preset.NewMongoStore(ctx, s.Preset.MongoURL, s.Preset.Database)
	if err != nil {
		return fmt.Errorf("connect preset store: %w", err)
	}
	defer store.Close(context.Background())

	if err := store.Publish(ctx, p); err != nil {
		return fmt.Errorf("publish %s: %w", p.Name, err)
	}
	printSuccess("Published %s (%d files)", p.Name, len(p.Files))
	return nil
}

// loadPresetDir reads a model folder into a Preset.
func loadPresetDir(dir, name, description string) (*preset.Preset, error) {
	if name == "" {
		name = filepath.Base(filepath.Clean(dir))
	}

	p := &preset.Preset{
		Name:        name,
		Description: description,
		MainFile:    preset.MainFileName,
		Files:       make(map[string]string),
	}

	root := os.DirFS(dir)
	err := fs.WalkDir(root, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(root, path)
		if err != nil {
			return err
		}
		p.Files[path] = string(data)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	if _, ok := p.Files[preset.MainFileName]; !ok {
		return nil, fmt.Errorf("%s has no %s entry file", dir, preset.MainFileName)
	}
	if p.Description == "" {
		if readme, ok := p.Files["README"]; ok {
			first, _, _ := strings.Cut(strings.TrimSpace(readme), "\n")
			p.Description = strings.TrimSpace(first)
		}
	}
	return p, nil
}
