package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"git.home.luguber.info/inful/dirprocess/internal/config"
	"git.home.luguber.info/inful/dirprocess/internal/filter"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force       bool `help:"Overwrite existing configuration file"`
	Interactive bool `short:"i" help:"Prompt for the configuration values"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	example := config.Example()
	if i.Interactive {
		if err := promptConfig(example); err != nil {
			return err
		}
	}
	return RunInit(g.out(), root.Config, i.Force, example)
}

// RunInit writes example to configPath.
func RunInit(w io.Writer, configPath string, force bool, example *config.Config) error {
	_, _ = fmt.Fprintf(w, "Writing configuration to %s\n", configPath)
	if err := config.Init(configPath, force, example); err != nil {
		_, _ = fmt.Fprintln(w, "Initialization failed")
		return err
	}
	_, _ = fmt.Fprintln(w, "initialized successfully")
	return nil
}

// promptConfig asks for the values most configurations change, pre-filled
// from cfg.
func promptConfig(cfg *config.Config) error {
	answers := struct {
		InputRoot       string
		ProcessRoot     string
		TemplateRoot    string
		OutputExtension string
		Filters         []string
	}{}

	var optional []string
	for _, f := range filter.Catalogue() {
		if f != filter.Markdown {
			optional = append(optional, f.Name)
		}
	}

	questions := []*survey.Question{
		{
			Name:     "InputRoot",
			Prompt:   &survey.Input{Message: "Input root:", Default: cfg.InputRoot},
			Validate: survey.Required,
		},
		{
			Name:     "ProcessRoot",
			Prompt:   &survey.Input{Message: "Process root:", Default: cfg.ProcessRoot},
			Validate: survey.Required,
		},
		{
			Name:   "TemplateRoot",
			Prompt: &survey.Input{Message: "Template root:", Default: cfg.TemplateHandler.TemplateRoot},
		},
		{
			Name: "OutputExtension",
			Prompt: &survey.Input{
				Message: "Output extension:",
				Default: cfg.TemplateHandler.OutputExtension,
				Help:    fmt.Sprintf("Use %q to strip the template extension only", config.NoOutputExtension),
			},
		},
		{
			Name:   "Filters",
			Prompt: &survey.MultiSelect{Message: "Optional filters:", Options: optional},
		},
	}
	if err := survey.Ask(questions, &answers); err != nil {
		return fmt.Errorf("prompt: %w", err)
	}

	cfg.InputRoot = strings.TrimSpace(answers.InputRoot)
	cfg.ProcessRoot = strings.TrimSpace(answers.ProcessRoot)
	cfg.TemplateHandler.TemplateRoot = strings.TrimSpace(answers.TemplateRoot)
	cfg.TemplateHandler.OutputExtension = strings.TrimSpace(answers.OutputExtension)
	cfg.TemplateHandler.Filters = answers.Filters
	return nil
}
