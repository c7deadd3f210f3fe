package encoding

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

// Scripts only get modules without file, network or OS access.
var safeModules = stdlib.GetModuleMap("text", "fmt", "math", "times", "base64", "hex")

const scriptMaxAllocs = 10_000_000

// ScriptEncoder is an encoder written in Tengo. The script defines
// name (string), encode(s) and decode(s). A function may return
// error("message") to reject its input.
type ScriptEncoder struct {
	name   string
	encode *tengo.Compiled
	decode *tengo.Compiled
	mu     sync.Mutex
}

// LoadScriptEncoder compiles a .tengo file.
func LoadScriptEncoder(path string) (*ScriptEncoder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read encoder script %s: %w", path, err)
	}
	return CompileScriptEncoder(path, data)
}

// CompileScriptEncoder compiles script source; origin is used in errors.
func CompileScriptEncoder(origin string, src []byte) (*ScriptEncoder, error) {
	script := tengo.NewScript(src)
	script.SetImports(safeModules)
	script.SetMaxAllocs(scriptMaxAllocs)

	compiled, err := script.Run()
	if err != nil {
		return nil, fmt.Errorf("compile encoder script %s: %w", origin, err)
	}

	nameVar := compiled.Get("name")
	if nameVar.IsUndefined() || nameVar.String() == "" {
		return nil, fmt.Errorf("encoder script %s: missing 'name' variable", origin)
	}
	for _, fn := range []string{"encode", "decode"} {
		if compiled.Get(fn).IsUndefined() {
			return nil, fmt.Errorf("encoder script %s: missing '%s' function", origin, fn)
		}
	}

	se := &ScriptEncoder{name: nameVar.String()}
	if se.encode, err = wrap(src, "encode"); err != nil {
		return nil, fmt.Errorf("encoder script %s: %w", origin, err)
	}
	if se.decode, err = wrap(src, "decode"); err != nil {
		return nil, fmt.Errorf("encoder script %s: %w", origin, err)
	}
	return se, nil
}

// wrap compiles src with a trailing call of fn so each invocation only
// needs Clone.
func wrap(src []byte, fn string) (*tengo.Compiled, error) {
	wrapper := fmt.Sprintf("%s\n__result__ := %s(__input__)\n", src, fn)
	script := tengo.NewScript([]byte(wrapper))
	script.SetImports(safeModules)
	script.SetMaxAllocs(scriptMaxAllocs)
	if err := script.Add("__input__", ""); err != nil {
		return nil, fmt.Errorf("bind %s input: %w", fn, err)
	}
	return script.Compile()
}

func (s *ScriptEncoder) Name() string { return s.name }

func (s *ScriptEncoder) Encode(text string) (string, error) {
	return s.run(s.encode, text)
}

func (s *ScriptEncoder) Decode(encoded string) (string, error) {
	return s.run(s.decode, encoded)
}

func (s *ScriptEncoder) run(compiled *tengo.Compiled, input string) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("encoder script %s panicked: %v", s.name, r)
		}
	}()

	s.mu.Lock()
	c := compiled.Clone()
	s.mu.Unlock()

	if err := c.Set("__input__", input); err != nil {
		return "", err
	}
	if err := c.Run(); err != nil {
		return "", fmt.Errorf("encoder script %s: %w", s.name, err)
	}

	out := c.Get("__result__")
	if e, ok := out.Object().(*tengo.Error); ok {
		msg, _ := tengo.ToString(e.Value)
		return "", malformed("%s: %s", s.name, msg)
	}
	if out.IsUndefined() {
		return "", fmt.Errorf("encoder script %s returned undefined", s.name)
	}
	return out.String(), nil
}

// RegisterScripts loads each path and registers it. Files that fail are
// logged and skipped.
func RegisterScripts(paths []string, logger *slog.Logger) []error {
	if logger == nil {
		logger = slog.Default()
	}
	var errs []error
	for _, p := range expandScriptPaths(paths, logger) {
		se, err := LoadScriptEncoder(p)
		if err != nil {
			logger.Warn("skipping encoder script", slog.String("path", p), slog.String("error", err.Error()))
			errs = append(errs, err)
			continue
		}
		Register(se)
		logger.Debug("registered encoder script", slog.String("name", se.Name()), slog.String("path", p))
	}
	return errs
}

// expandScriptPaths replaces directories with the .tengo files they contain.
func expandScriptPaths(paths []string, logger *slog.Logger) []string {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			out = append(out, p)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(p, "*.tengo"))
		if err != nil {
			logger.Warn("bad encoder script directory", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		out = append(out, matches...)
	}
	return out
}
