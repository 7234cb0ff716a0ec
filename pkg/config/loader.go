package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/go-playground/validator/v10"
)

// DefaultFile is the configuration file looked up in the project root when
// no file is named explicitly.
const DefaultFile = "conform.cue"

// schemaFile names the built-in schema in CUE positions.
const schemaFile = "schema.cue"

// Loader compiles CUE configuration files against the built-in schema.
type Loader struct {
	mu       sync.Mutex
	ctx      *cue.Context
	schema   cue.Value
	validate *validator.Validate
}

// NewLoader creates a loader with the schema compiled.
func NewLoader() (*Loader, error) {
	ctx := cuecontext.New()

	compiled := ctx.CompileString(configSchema, cue.Filename(schemaFile))
	if err := compiled.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile config schema: %w", err)
	}

	schema := compiled.LookupPath(cue.ParsePath("#Config"))
	if !schema.Exists() {
		return nil, fmt.Errorf("config schema has no #Config definition")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Loader{
		ctx:      ctx,
		schema:   schema,
		validate: validate,
	}, nil
}

// Resolve loads the explicitly named file, or DefaultFile from root when it
// exists, or falls back to Default. It returns the file used, empty for the
// defaults.
func (l *Loader) Resolve(explicit, root string) (*Config, string, error) {
	if explicit != "" {
		cfg, err := l.Load(explicit)
		return cfg, explicit, err
	}

	candidate := filepath.Join(root, DefaultFile)
	if _, err := os.Stat(candidate); err == nil {
		cfg, err := l.Load(candidate)
		return cfg, candidate, err
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, "", fmt.Errorf("failed to stat %s: %w", candidate, err)
	}

	cfg := Default()
	cfg.Root = root
	return cfg, "", nil
}

// Load reads and validates a configuration file.
func (l *Loader) Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return l.LoadString(path, string(content))
}

// LoadString compiles src, unifies it with the schema, and decodes the
// result. Every problem found is reported in a *LoadError.
func (l *Loader) LoadString(filename, src string) (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	file := l.ctx.CompileString(src, cue.Filename(filename))
	if err := file.Err(); err != nil {
		return nil, &LoadError{Errors: convertCUEErrors(err)}
	}

	unified := l.schema.Unify(file)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, &LoadError{Errors: convertCUEErrors(err)}
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return nil, &LoadError{Errors: convertCUEErrors(err)}
	}
	if cfg.Paths == nil {
		cfg.Paths = map[string]string{}
	}

	if err := l.Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg against its struct tags. Flags applied after loading
// are checked the same way.
func (l *Loader) Validate(cfg *Config) error {
	err := l.validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate config: %w", err)
	}

	out := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{
			Path:    strings.TrimPrefix(fe.Namespace(), "Config."),
			Message: describe(fe),
		})
	}
	return &LoadError{Errors: out}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "hostname_port":
		return "must be host:port"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// convertCUEErrors flattens a CUE error into positioned entries.
func convertCUEErrors(err error) []ValidationError {
	var out []ValidationError
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		ve := ValidationError{
			Path:    strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		}
		for _, pos := range cueerrors.Positions(e) {
			if pos.Filename() == schemaFile {
				continue
			}
			ve.File = pos.Filename()
			ve.Line = pos.Line()
			ve.Column = pos.Column()
			break
		}
		out = append(out, ve)
	}
	if len(out) == 0 {
		out = append(out, ValidationError{Message: err.Error()})
	}
	return out
}
