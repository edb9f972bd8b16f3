// Package scenario drives pool managers with scripted or built-in workloads.
package scenario

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dop251/goja"

	"github.com/coachpo/spawnpool/internal/observability"
)

var (
	// ErrFunctionMissing reports a script without an onFrame export.
	ErrFunctionMissing = errors.New("scenario: onFrame export missing")
	// ErrUnknownTemplate reports a template name the resolver does not know.
	ErrUnknownTemplate = errors.New("scenario: unknown template")
)

// Metadata describes a workload script.
type Metadata struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Templates   []string `json:"templates"`
}

// Script is a compiled workload module. A Script can be shared; every Runner gets its own VM.
type Script struct {
	Name     string
	Path     string
	Hash     string
	Metadata Metadata
	Program  *goja.Program
	Size     int64
}

// Compile reads and compiles the workload at path.
func Compile(path string) (*Script, error) {
	clean := filepath.Clean(strings.TrimSpace(path))
	// #nosec G304 -- scenario paths are operator controlled.
	source, err := os.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("scenario: read %q: %w", clean, err)
	}
	script, err := CompileSource(clean, string(source))
	if err != nil {
		return nil, err
	}
	return script, nil
}

// CompileSource compiles an in-memory workload module named for diagnostics by path.
func CompileSource(path, source string) (*Script, error) {
	prog, err := goja.Compile(path, source, true)
	if err != nil {
		return nil, fmt.Errorf("scenario: compile %q: %w", path, err)
	}
	meta, err := extractMetadata(prog)
	if err != nil {
		return nil, fmt.Errorf("scenario: %s: %w", path, err)
	}
	sum := sha256.Sum256([]byte(source))
	return &Script{
		Name:     meta.Name,
		Path:     path,
		Hash:     hex.EncodeToString(sum[:]),
		Metadata: meta,
		Program:  prog,
		Size:     int64(len(source)),
	}, nil
}

func extractMetadata(program *goja.Program) (Metadata, error) {
	rt := goja.New()
	exports, err := runModule(rt, program, observability.Nop())
	if err != nil {
		return Metadata{}, err
	}
	raw := exports.Get("metadata")
	if raw == nil || goja.IsUndefined(raw) || goja.IsNull(raw) {
		return Metadata{}, fmt.Errorf("metadata export missing")
	}

	var meta Metadata
	if err := rt.ExportTo(raw, &meta); err != nil {
		return Metadata{}, fmt.Errorf("metadata export invalid: %w", err)
	}
	meta.Name = strings.ToLower(strings.TrimSpace(meta.Name))
	if meta.Name == "" {
		return Metadata{}, fmt.Errorf("metadata name required")
	}
	templates := make([]string, 0, len(meta.Templates))
	for _, name := range meta.Templates {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			templates = append(templates, trimmed)
		}
	}
	meta.Templates = templates
	return meta, nil
}

func runModule(rt *goja.Runtime, program *goja.Program, logger observability.Logger) (*goja.Object, error) {
	rt.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	module := rt.NewObject()
	exports := rt.NewObject()
	if err := module.Set("exports", exports); err != nil {
		return nil, fmt.Errorf("module init: %w", err)
	}
	if err := rt.Set("exports", exports); err != nil {
		return nil, fmt.Errorf("module init: %w", err)
	}
	if err := rt.Set("module", module); err != nil {
		return nil, fmt.Errorf("module init: %w", err)
	}
	if err := rt.Set("console", buildConsole(rt, logger)); err != nil {
		return nil, fmt.Errorf("module init: %w", err)
	}

	if _, err := rt.RunProgram(program); err != nil {
		return nil, fmt.Errorf("module run: %w", err)
	}

	value := module.Get("exports")
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return nil, fmt.Errorf("module exports must be an object")
	}
	return value.ToObject(rt), nil
}

func buildConsole(rt *goja.Runtime, logger observability.Logger) *goja.Object {
	console := rt.NewObject()
	emit := func(level func(string, ...observability.Field)) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, 0, len(call.Arguments))
			for _, arg := range call.Arguments {
				parts = append(parts, arg.String())
			}
			level("scenario: console", observability.F("message", strings.Join(parts, " ")))
			return goja.Undefined()
		}
	}
	_ = console.Set("log", emit(logger.Info))
	_ = console.Set("info", emit(logger.Info))
	_ = console.Set("debug", emit(logger.Debug))
	_ = console.Set("warn", emit(logger.Warn))
	_ = console.Set("error", emit(logger.Error))
	return console
}
