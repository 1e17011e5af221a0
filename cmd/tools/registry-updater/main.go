// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"travel-workers/pkg/registry"
)

const defaultRegistryPath = "pkg/registry/activities.json"

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
	case "check":
		err = runCheck(os.Args[2:])
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
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	path := fs.String("path", defaultRegistryPath, "Path to registry file")
	_ = fs.Parse(args)

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return err
	}
	activities := append([]registry.Activity(nil), reg.Activities...)
	sort.Slice(activities, func(i, j int) bool { return activities[i].TaskType < activities[j].TaskType })
	for _, a := range activities {
		fmt.Printf("%-28s %-12s %-10s timeout=%s retries=%d\n", a.TaskType, a.Category, a.ImplementationStatus, a.Timeout, a.Retries)
	}
	return nil
}

func runUpdate(args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	path := fs.String("path", defaultRegistryPath, "Path to registry file")
	taskType := fs.String("taskType", "", "Task type to update")
	field := fs.String("field", "", "Field to update (status, version, description, timeout, retries)")
	value := fs.String("value", "", "New value for the field")
	_ = fs.Parse(args)

	if *taskType == "" || *field == "" || *value == "" {
		fs.Usage()
		return fmt.Errorf("taskType, field and value are required")
	}

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return err
	}
	if err := updateActivity(reg, *taskType, *field, *value); err != nil {
		return err
	}
	reg.LastUpdated = time.Now().Format("2006-01-02")
	if err := registry.SaveRegistry(*path, reg); err != nil {
		return err
	}
	fmt.Printf("Updated %s: %s = %s\n", *taskType, *field, *value)
	return nil
}

func updateActivity(reg *registry.ActivityRegistry, taskType, field, value string) error {
	a, ok := reg.Find(taskType)
	if !ok {
		return fmt.Errorf("task type %s not found", taskType)
	}
	switch field {
	case "status":
		a.ImplementationStatus = value
	case "version":
		a.Version = value
	case "description":
		a.Description = value
	case "timeout":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
		a.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil || retries < 0 {
			return fmt.Errorf("invalid retries value %q", value)
		}
		a.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}
	return nil
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	path := fs.String("path", defaultRegistryPath, "Path to registry file")
	_ = fs.Parse(args)

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return err
	}
	if err := validateRegistry(reg); err != nil {
		return err
	}
	fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))
	return nil
}

// validateRegistry checks required fields and compiles every input schema.
func validateRegistry(reg *registry.ActivityRegistry) error {
	if len(reg.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	seen := make(map[string]bool)
	for _, a := range reg.Activities {
		switch {
		case a.TaskType == "":
			return fmt.Errorf("activity %q missing taskType", a.ID)
		case seen[a.TaskType]:
			return fmt.Errorf("duplicate task type: %s", a.TaskType)
		case a.DisplayName == "":
			return fmt.Errorf("activity %s missing displayName", a.TaskType)
		case a.Retries < 0:
			return fmt.Errorf("activity %s has negative retries", a.TaskType)
		}
		seen[a.TaskType] = true

		if _, err := time.ParseDuration(a.Timeout); err != nil {
			return fmt.Errorf("activity %s: invalid timeout %q", a.TaskType, a.Timeout)
		}
		if _, err := reg.InputValidator(a.TaskType); err != nil {
			return err
		}
	}
	return nil
}

func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	path := fs.String("path", defaultRegistryPath, "Path to registry file")
	taskType := fs.String("taskType", "", "Task type whose input schema to use")
	file := fs.String("file", "", "JSON file with job variables")
	_ = fs.Parse(args)

	if *taskType == "" || *file == "" {
		fs.Usage()
		return fmt.Errorf("taskType and file are required")
	}
	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return err
	}
	doc, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	if err := checkVariables(reg, *taskType, string(doc)); err != nil {
		return err
	}
	fmt.Printf("%s: variables are valid\n", *file)
	return nil
}

func checkVariables(reg *registry.ActivityRegistry, taskType, doc string) error {
	v, err := reg.InputValidator(taskType)
	if err != nil {
		return err
	}
	res, err := v.ValidateJSON(doc)
	if err != nil {
		return err
	}
	if !res.Valid {
		return fmt.Errorf("invalid variables for %s: %s", taskType, res.Summary())
	}
	return nil
}

func help() {
	fmt.Print(`
Usage: registry-updater <command> [flags]

Commands:
  list      List registered activities
  update    Update one field of an activity
  validate  Validate the registry file and compile every input schema
  check     Validate a job variables file against a task's input schema
  help      Show this help message

Examples:
  registry-updater list
  registry-updater update -taskType plan-group-travel -field timeout -value 120s
  registry-updater validate -path pkg/registry/activities.json
  registry-updater check -taskType group-flow-message -file vars.json

Use 'registry-updater <command> -h' for more information about a command.

`)
}
