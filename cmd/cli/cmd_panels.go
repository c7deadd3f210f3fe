package main

import (
	"flag"
	"fmt"

	"github.com/thecyberx/cyberx/pkg/jsonutil"
	"github.com/thecyberx/cyberx/pkg/panel"
	"github.com/thecyberx/cyberx/pkg/ui"
)

// runPanels prints the panel catalog grouped by category.
func runPanels(argv []string, s streams) error {
	fs := flag.NewFlagSet("panels", flag.ContinueOnError)
	fs.SetOutput(s.err)
	jsonMode := fs.Bool("json", false, "Print the catalog with parameters as JSON")
	category := fs.String("category", "", "Only this category (core, security, recon, utils)")
	if err := fs.Parse(argv); err != nil {
		return err
	}

	reg := panel.New(panel.Env{})
	cats := panel.Categories
	if *category != "" {
		c := panel.Category(*category)
		if len(reg.ByCategory(c)) == 0 {
			return fmt.Errorf("unknown category %q", *category)
		}
		cats = []panel.Category{c}
	}

	if *jsonMode {
		var infos []panel.Info
		for _, c := range cats {
			infos = append(infos, reg.ByCategory(c)...)
		}
		data, err := jsonutil.MarshalIndent(infos, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(s.out, string(data))
		return err
	}

	prev := ui.SetOutput(s.out)
	defer ui.SetOutput(prev)
	for _, c := range cats {
		ui.PrintSection(categoryTitle(c))
		for _, info := range reg.ByCategory(c) {
			ui.PrintCatalogEntry(info.ID, info.Label, info.Description)
		}
	}
	fmt.Fprintln(s.out)
	return nil
}

func categoryTitle(c panel.Category) string {
	switch c {
	case panel.Core:
		return "CORE"
	case panel.Security:
		return "SECURITY"
	case panel.Recon:
		return "RECON"
	case panel.Utils:
		return "UTILS"
	}
	return string(c)
}
