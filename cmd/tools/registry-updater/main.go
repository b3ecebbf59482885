// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"drift-workers/pkg/registry"
)

const defaultPath = "configs/activity-registry.json"

func main() {
	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}
	if err := run(os.Args[1], os.Args[2:], time.Now()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(command string, args []string, now time.Time) error {
	switch command {
	case "add":
		fs := flag.NewFlagSet("add", flag.ExitOnError)
		path := fs.String("path", defaultPath, "Path to registry file")
		id := fs.String("id", "", "Activity ID (e.g., risk.deal.compute)")
		displayName := fs.String("displayName", "", "Display name")
		description := fs.String("description", "", "Description")
		category := fs.String("category", "", "Category (e.g., risk)")
		taskType := fs.String("taskType", "", "Zeebe task type (e.g., compute-deal-risk)")
		version := fs.String("version", "1.0.0", "Version")
		status := fs.String("status", registry.StatusPlanned, "Implementation status (planned, in-progress, completed, verified)")
		timeout := fs.String("timeout", "10s", "Job timeout")
		_ = fs.Parse(args)

		if *id == "" || *displayName == "" || *description == "" || *category == "" || *taskType == "" {
			fs.Usage()
			return fmt.Errorf("id, displayName, description, category and taskType are required")
		}

		reg, err := registry.Load(*path)
		if os.IsNotExist(err) {
			reg, err = registry.New(now), nil
		}
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		err = reg.Add(registry.Activity{
			ID:                   *id,
			DisplayName:          *displayName,
			Description:          *description,
			Category:             *category,
			Version:              *version,
			TaskType:             *taskType,
			ImplementationStatus: *status,
			InputSchema:          map[string]interface{}{"type": "object"},
			OutputSchema:         map[string]interface{}{"type": "object"},
			ErrorCodes:           []string{},
			Timeout:              *timeout,
			Workflows:            []string{},
			Tags:                 []string{},
		}, now)
		if err != nil {
			return err
		}
		if err := registry.Save(reg, *path); err != nil {
			return err
		}
		fmt.Printf("Added activity: %s\n", *id)

	case "update":
		fs := flag.NewFlagSet("update", flag.ExitOnError)
		path := fs.String("path", defaultPath, "Path to registry file")
		id := fs.String("id", "", "Activity ID to update")
		field := fs.String("field", "", "Field to update (status, version, timeout, retries, ...)")
		value := fs.String("value", "", "New value for the field")
		_ = fs.Parse(args)

		if *id == "" || *field == "" || *value == "" {
			fs.Usage()
			return fmt.Errorf("id, field and value are required")
		}
		reg, err := registry.Load(*path)
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		if err := reg.Update(*id, *field, *value, now); err != nil {
			return err
		}
		if err := registry.Save(reg, *path); err != nil {
			return err
		}
		fmt.Printf("Updated activity %s, field %s to %s\n", *id, *field, *value)

	case "validate":
		fs := flag.NewFlagSet("validate", flag.ExitOnError)
		path := fs.String("path", defaultPath, "Path to registry file")
		_ = fs.Parse(args)

		reg, err := registry.Load(*path)
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		if err := reg.Validate(); err != nil {
			return fmt.Errorf("registry validation failed: %w", err)
		}
		fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))

	default:
		help()
	}
	return nil
}

func help() {
	fmt.Println(`
Usage: registry-updater <command> [flags]

Commands:
  add       Add a new activity to the registry
  update    Update an existing activity's field
  validate  Validate the registry file
  help      Show this help message

Examples:
  registry-updater add -id risk.deal.compute -displayName "Compute Deal Risk" -description "Scores one deal" -category risk -taskType compute-deal-risk
  registry-updater update -id risk.deal.compute -field status -value verified
  registry-updater validate -path configs/activity-registry.json`)
}
