package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dukex/automations/pkg/models"
	"github.com/dukex/automations/pkg/triggers"
	"github.com/dukex/automations/pkg/workflow"
	cli "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

var (
	errMissingFile   = errors.New("definition file is required")
	errMissingStepID = errors.New("step id is required")
)

// loadDefinition reads a YAML or JSON automation definition. JSON is valid YAML.
func loadDefinition(path string) (models.WorkflowDefinition, error) {
	var def models.WorkflowDefinition

	data, err := os.ReadFile(path)
	if err != nil {
		return def, fmt.Errorf("failed to read definition: %w", err)
	}

	if err := yaml.Unmarshal(data, &def); err != nil {
		return def, fmt.Errorf("failed to parse definition %s: %w", path, err)
	}

	return def, nil
}

func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}

	_, err = fmt.Fprintln(w, string(out))

	return err
}

func ValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate an automation definition file",
		ArgsUsage: "<file>",
		Action: func(ctx context.Context, command *cli.Command) error {
			path := command.Args().First()
			if path == "" {
				return errMissingFile
			}

			def, err := loadDefinition(path)
			if err != nil {
				return err
			}

			report := workflow.NewBuilder().Validate(def)
			if err := writeJSON(command.Root().Writer, report); err != nil {
				return err
			}

			if !report.Valid {
				return fmt.Errorf("%s: %d problem(s) found", path, report.ErrorCount())
			}

			return nil
		},
	}
}

func ResolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Show where each outcome of a condition step leads",
		ArgsUsage: "<file> <stepId>",
		Action: func(ctx context.Context, command *cli.Command) error {
			path := command.Args().Get(0)
			if path == "" {
				return errMissingFile
			}

			stepID := command.Args().Get(1)
			if stepID == "" {
				return errMissingStepID
			}

			def, err := loadDefinition(path)
			if err != nil {
				return err
			}

			resolution, err := workflow.NewBuilder().ResolveBranches(def, stepID)
			if err != nil {
				return err
			}

			return writeJSON(command.Root().Writer, resolution)
		},
	}
}

type scheduleLine struct {
	Index   int       `json:"index"`
	Cron    string    `json:"cron"`
	NextRun time.Time `json:"nextRun"`
}

func ScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:      "schedule",
		Usage:     "Print the cron expression and next run of each scheduled trigger",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "from",
				Usage: "Compute the next run after this instant (RFC3339)",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			path := command.Args().First()
			if path == "" {
				return errMissingFile
			}

			def, err := loadDefinition(path)
			if err != nil {
				return err
			}

			from := time.Now()

			if raw := command.String("from"); raw != "" {
				from, err = time.Parse(time.RFC3339, raw)
				if err != nil {
					return fmt.Errorf("invalid --from: %w", err)
				}
			}

			lines := make([]scheduleLine, 0, len(def.Triggers))

			for i, trigger := range def.Triggers {
				if trigger.Kind != models.TriggerKindScheduled {
					continue
				}

				expr, err := triggers.CronExpression(trigger.Config)
				if err != nil {
					return fmt.Errorf("trigger %d: %w", i, err)
				}

				next, err := triggers.NextRun(trigger.Config, from)
				if err != nil {
					return fmt.Errorf("trigger %d: %w", i, err)
				}

				lines = append(lines, scheduleLine{Index: i, Cron: expr, NextRun: next})
			}

			return writeJSON(command.Root().Writer, lines)
		},
	}
}
