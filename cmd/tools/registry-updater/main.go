// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"sow-workers/internal/common/errors"
	"sow-workers/pkg/registry"

	ctc "sow-workers/internal/workers/sow/check-template-compatibility"
	sst "sow-workers/internal/workers/sow/select-template"
)

const defaultRegistryPath = "configs/activity-registry.json"

// servedTaskTypes are the task types the worker manager registers.
var servedTaskTypes = []string{sst.TaskType, ctc.TaskType}

func main() {
	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "list":
		err = runList(os.Args[2:])
	case "update":
		err = runUpdate(os.Args[2:])
	case "validate":
		err = runValidate(os.Args[2:])
	default:
		help()
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runList(args []string) error {
	cmd := flag.NewFlagSet("list", flag.ExitOnError)
	path := cmd.String("path", defaultRegistryPath, "Path to registry file")
	cmd.Parse(args)

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	for _, a := range reg.Activities {
		fmt.Printf("%-32s %-12s %-8s retries=%d errors=%v\n",
			a.TaskType, a.ImplementationStatus, a.Timeout, a.Retries, a.ErrorCodes)
	}
	return nil
}

func runUpdate(args []string) error {
	cmd := flag.NewFlagSet("update", flag.ExitOnError)
	path := cmd.String("path", defaultRegistryPath, "Path to registry file")
	id := cmd.String("id", "", "Activity ID to update")
	field := cmd.String("field", "", "Field to update (status, version, displayName, description, timeout, retries)")
	value := cmd.String("value", "", "New value for the field")
	cmd.Parse(args)

	if *id == "" || *field == "" || *value == "" {
		cmd.Usage()
		return fmt.Errorf("id, field, and value are required for update")
	}

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Update(*id, *field, *value); err != nil {
		return err
	}
	if err := reg.Save(*path, time.Now()); err != nil {
		return err
	}
	fmt.Printf("Updated activity %s, field %s to %s\n", *id, *field, *value)
	return nil
}

func runValidate(args []string) error {
	cmd := flag.NewFlagSet("validate", flag.ExitOnError)
	path := cmd.String("path", defaultRegistryPath, "Path to registry file")
	cmd.Parse(args)

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Validate(knownBPMNCodes()); err != nil {
		return fmt.Errorf("registry validation failed: %w", err)
	}
	for _, taskType := range servedTaskTypes {
		if _, ok := reg.Find(taskType); !ok {
			return fmt.Errorf("registry validation failed: task type %s is served but not registered", taskType)
		}
	}

	fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))
	return nil
}

func knownBPMNCodes() []string {
	seen := make(map[string]bool)
	for _, code := range errors.BPMNErrorMapping {
		seen[code] = true
	}
	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func help() {
	fmt.Print(`
Usage: registry-updater <command> [flags]

Commands:
  list      Print every registered activity
  update    Update an existing activity's field
  validate  Validate the registry against the served workers and BPMN error codes
  help      Show this help message

Examples:
  registry-updater update -id select-sow-template -field timeout -value 45s
  registry-updater validate -path configs/activity-registry.json

Use 'registry-updater <command> -h' for more information about a command.

`)
}
