package main

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"marketing-workers/pkg/registry"
)

// WorkerData feeds the scaffold templates.
type WorkerData struct {
	Name         string
	PackageName  string
	TaskType     string
	Description  string
	Dir          string
	Timeout      string
	InputFields  []Field
	OutputFields []Field
	Required     []string
	ErrorCodes   []string
}

type Field struct {
	Name    string
	GoType  string
	JSONTag string
}

func NewWorkerData(a *registry.Activity) WorkerData {
	timeout := a.Timeout
	if timeout == "" {
		timeout = "30s"
	}
	return WorkerData{
		Name:         a.DisplayName,
		PackageName:  strings.ReplaceAll(a.ID, "-", ""),
		TaskType:     a.TaskType,
		Description:  a.Description,
		Dir:          filepath.Join(strings.ToLower(a.Category), a.ID),
		Timeout:      timeout,
		InputFields:  schemaFields(a.InputSchema),
		OutputFields: schemaFields(a.OutputSchema),
		Required:     requiredFields(a.InputSchema),
		ErrorCodes:   a.ErrorCodes,
	}
}

// schemaFields lists the schema properties in name order.
func schemaFields(schema map[string]interface{}) []Field {
	props, _ := schema["properties"].(map[string]interface{})
	required := map[string]bool{}
	for _, r := range requiredFields(schema) {
		required[r] = true
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]Field, 0, len(names))
	for _, name := range names {
		details, _ := props[name].(map[string]interface{})
		tag := name
		if !required[name] {
			tag += ",omitempty"
		}
		fields = append(fields, Field{
			Name:    exportedName(name),
			GoType:  goType(details["type"]),
			JSONTag: tag,
		})
	}
	return fields
}

func requiredFields(schema map[string]interface{}) []string {
	raw, _ := schema["required"].([]interface{})
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// goType maps a JSON schema type, or the first non-null entry of a type
// list, to a Go type.
func goType(t interface{}) string {
	if list, ok := t.([]interface{}); ok {
		for _, v := range list {
			if s, ok := v.(string); ok && s != "null" {
				t = s
				break
			}
		}
	}
	switch t {
	case "string":
		return "string"
	case "integer":
		return "int"
	case "number":
		return "float64"
	case "boolean":
		return "bool"
	case "object":
		return "map[string]interface{}"
	case "array":
		return "[]interface{}"
	default:
		return "interface{}"
	}
}

func exportedName(prop string) string {
	if prop == "" {
		return prop
	}
	for _, initialism := range []string{"Id", "Url"} {
		if strings.HasSuffix(prop, initialism) {
			prop = strings.TrimSuffix(prop, initialism) + strings.ToUpper(initialism)
		}
	}
	return strings.ToUpper(prop[:1]) + prop[1:]
}

var scaffold = map[string]string{
	"config.go":       configTemplate,
	"models.go":       modelsTemplate,
	"handler.go":      handlerTemplate,
	"handler_test.go": testTemplate,
}

// Generate writes a gofmt'ed worker scaffold under outputDir and returns the
// written paths. Existing files are kept unless force is set.
func Generate(outputDir string, data WorkerData, force bool) ([]string, error) {
	workerDir := filepath.Join(outputDir, data.Dir)
	if err := os.MkdirAll(workerDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", workerDir, err)
	}

	names := make([]string, 0, len(scaffold))
	for name := range scaffold {
		names = append(names, name)
	}
	sort.Strings(names)

	var written []string
	for _, name := range names {
		path := filepath.Join(workerDir, name)
		if _, err := os.Stat(path); err == nil && !force {
			return written, fmt.Errorf("%s already exists", path)
		}

		tmpl, err := template.New(name).Parse(scaffold[name])
		if err != nil {
			return written, fmt.Errorf("parse template %s: %w", name, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return written, fmt.Errorf("render %s: %w", name, err)
		}
		src, err := format.Source(buf.Bytes())
		if err != nil {
			return written, fmt.Errorf("format %s: %w", name, err)
		}
		if err := os.WriteFile(path, src, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
