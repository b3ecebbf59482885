// cmd/tools/worker-generator/main.go
package main

import (
	"bytes"
	"flag"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"drift-workers/pkg/registry"
)

const defaultTimeout = 30 * time.Second

// WorkerData holds data for templates
type WorkerData struct {
	Module         string
	Name           string
	PackageName    string
	TaskType       string
	Dir            string
	Description    string
	TimeoutLiteral string
	InputFields    []string
	OutputFields   []string
	ErrorCodes     []string
}

// schemaProperties extracts properties from a JSON schema object
func schemaProperties(schema map[string]interface{}) map[string]interface{} {
	if props, ok := schema["properties"].(map[string]interface{}); ok {
		return props
	}
	return map[string]interface{}{}
}

// goTypeFromJSONType maps JSON schema types to Go types
func goTypeFromJSONType(jsonType interface{}) string {
	switch jsonType {
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

// structFields renders one field per property, sorted by name.
func structFields(schema map[string]interface{}) []string {
	props := schemaProperties(schema)
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]string, 0, len(names))
	for _, name := range names {
		details, _ := props[name].(map[string]interface{})
		line := fmt.Sprintf("%s %s `json:\"%s\"`", exportedName(name), goTypeFromJSONType(details["type"]), name)
		if desc, ok := details["description"].(string); ok && desc != "" {
			line += " // " + desc
		}
		fields = append(fields, line)
	}
	return fields
}

// exportedName turns dealId or deal_id into DealId / DealID-style Go names.
func exportedName(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' })
	var b strings.Builder
	for _, p := range parts {
		switch strings.ToLower(p) {
		case "id":
			b.WriteString("ID")
		case "url":
			b.WriteString("URL")
		default:
			b.WriteString(strings.ToUpper(p[:1]) + p[1:])
		}
	}
	out := b.String()
	if strings.HasSuffix(out, "Id") {
		out = strings.TrimSuffix(out, "Id") + "ID"
	}
	return out
}

func durationLiteral(d time.Duration) string {
	if d%time.Second == 0 {
		return fmt.Sprintf("%d * time.Second", d/time.Second)
	}
	return fmt.Sprintf("%d * time.Millisecond", d/time.Millisecond)
}

// workerData derives the template data for one activity.
func workerData(a registry.Activity, module string) WorkerData {
	category := strings.ToLower(a.Category)
	if category == "" {
		category = "misc"
	}
	return WorkerData{
		Module:         module,
		Name:           a.DisplayName,
		PackageName:    strings.ReplaceAll(a.TaskType, "-", ""),
		TaskType:       a.TaskType,
		Dir:            filepath.ToSlash(filepath.Join("internal", "workers", category, a.TaskType)),
		Description:    a.Description,
		TimeoutLiteral: durationLiteral(a.TimeoutOr(defaultTimeout)),
		InputFields:    structFields(a.InputSchema),
		OutputFields:   structFields(a.OutputSchema),
		ErrorCodes:     a.ErrorCodes,
	}
}

const configTemplate = `// {{ .Dir }}/config.go
package {{ .PackageName }}

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: {{ .TimeoutLiteral }},
	}
}
`

const modelsTemplate = `// {{ .Dir }}/models.go
package {{ .PackageName }}

type Input struct {
{{- range .InputFields }}
	{{ . }}
{{- end }}
}

type Output struct {
{{- range .OutputFields }}
	{{ . }}
{{- end }}
}
`

const handlerTemplate = `// {{ .Dir }}/handler.go
package {{ .PackageName }}

import (
	"context"

	"{{ .Module }}/internal/common/camunda"
	"{{ .Module }}/internal/common/errors"
	"{{ .Module }}/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "{{ .TaskType }}"
)

{{ if .Description }}// Handler serves {{ .TaskType }} jobs: {{ .Description }}
{{ end -}}
type Handler struct {
	config     *Config
	validator  camunda.InputValidator
	metrics    camunda.JobMetrics
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, validator camunda.InputValidator, metrics camunda.JobMetrics, log logger.Logger) *Handler {
	if metrics == nil {
		metrics = camunda.NopMetrics()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		validator:  validator,
		metrics:    metrics,
		errHandler: errors.NewErrorHandler(log),
		logger:     log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	done := h.metrics.JobStarted(TaskType)
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := camunda.DecodeVariables(TaskType, job.Variables, h.validator, &input); err != nil {
		h.errHandler.HandleJobError(ctx, client, job, err)
		done(string(errors.CodeOf(err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errHandler.HandleJobError(ctx, client, job, err)
		done(string(errors.CodeOf(err)))
		return
	}

	if err := camunda.Complete(ctx, client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{"error": err.Error()})
	}
	done("")
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewTimeoutError(TaskType, err)
	}
	return &Output{}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
`

const testTemplate = `// {{ .Dir }}/handler_test.go
package {{ .PackageName }}

import (
	"context"
	"testing"

	apperrors "{{ .Module }}/internal/common/errors"
	"{{ .Module }}/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	return NewHandler(LoadConfig(), nil, nil, logger.NewTestLogger(t))
}

func TestHandler_Execute(t *testing.T) {
	out, err := newTestHandler(t).Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.NotNil(t, out)
}

func TestHandler_Execute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestHandler(t).Execute(ctx, &Input{})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeTimeout, apperrors.CodeOf(err))
}
`

var templates = []struct {
	file string
	text string
}{
	{"config.go", configTemplate},
	{"models.go", modelsTemplate},
	{"handler.go", handlerTemplate},
	{"handler_test.go", testTemplate},
}

// generate writes the worker scaffold under root and returns the written
// paths. Existing files are never overwritten.
func generate(data WorkerData, root string) ([]string, error) {
	dir := filepath.Join(root, filepath.FromSlash(data.Dir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	var written []string
	for _, t := range templates {
		path := filepath.Join(dir, t.file)
		if _, err := os.Stat(path); err == nil {
			return written, fmt.Errorf("%s already exists", path)
		}

		tmpl, err := template.New(t.file).Parse(t.text)
		if err != nil {
			return written, fmt.Errorf("parse template %s: %w", t.file, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return written, fmt.Errorf("execute template %s: %w", t.file, err)
		}
		src, err := format.Source(buf.Bytes())
		if err != nil {
			return written, fmt.Errorf("format %s: %w", t.file, err)
		}
		if err := os.WriteFile(path, src, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func run(args []string) error {
	fs := flag.NewFlagSet("worker-generator", flag.ContinueOnError)
	taskType := fs.String("task", "", "Task type from the registry (e.g. compute-deal-risk)")
	root := fs.String("root", ".", "Repository root the worker is generated under")
	registryPath := fs.String("registry", "configs/activity-registry.json", "Path to the activity registry JSON file")
	module := fs.String("module", "drift-workers", "Go module path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *taskType == "" {
		return fmt.Errorf("-task is required")
	}

	reg, err := registry.Load(*registryPath)
	if err != nil {
		return fmt.Errorf("load registry %s: %w", *registryPath, err)
	}
	act, ok := reg.Find(*taskType)
	if !ok {
		return fmt.Errorf("task type %q not found in %s", *taskType, *registryPath)
	}

	written, err := generate(workerData(act, *module), *root)
	for _, p := range written {
		fmt.Printf("✓ Generated %s\n", p)
	}
	if err != nil {
		return err
	}

	fmt.Printf("\nNext steps:\n")
	fmt.Printf("  1. Implement execute in handler.go\n")
	fmt.Printf("  2. Register the worker in cmd/worker-manager/workers.go\n")
	fmt.Printf("  3. Add a workers.%s section to configs/config.yaml\n", act.TaskType)
	return nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Usage: worker-generator -task <task-type> [-root <dir>] [-registry <path>]")
		os.Exit(1)
	}
}
