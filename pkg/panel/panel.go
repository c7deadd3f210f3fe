// Package panel is the tool registry shared by the CLI, the MCP server and
// the REST API.
//
// Every panel is an (id, label, category, runner) entry. Run invokes one by
// id inside a fallback boundary: a panic is recovered into a *PanelError
// that the caller can retry, and start/result/error events are sent to the
// configured dispatcher.
//
//	reg := panel.New(panel.Env{Host: host}, panel.WithDispatcher(d))
//	res, err := reg.Run(ctx, "hasher", panel.Args{"text": "hello"})
package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thecyberx/cyberx/pkg/cookies"
	"github.com/thecyberx/cyberx/pkg/cors"
	"github.com/thecyberx/cyberx/pkg/dorks"
	"github.com/thecyberx/cyberx/pkg/extract"
	"github.com/thecyberx/cyberx/pkg/finding"
	"github.com/thecyberx/cyberx/pkg/headers"
	"github.com/thecyberx/cyberx/pkg/hostbridge"
	"github.com/thecyberx/cyberx/pkg/output/dispatcher"
	"github.com/thecyberx/cyberx/pkg/output/events"
	"github.com/thecyberx/cyberx/pkg/payloads"
	"github.com/thecyberx/cyberx/pkg/revshell"
	"github.com/thecyberx/cyberx/pkg/ruleset"
)

var (
	// ErrUnknownPanel is returned by Run for an id with no panel.
	ErrUnknownPanel = errors.New("unknown panel")

	// ErrMissingArg is returned when a required argument is empty.
	ErrMissingArg = errors.New("missing required argument")

	// ErrInvalidArg is returned when an argument cannot be converted.
	ErrInvalidArg = errors.New("invalid argument")
)

// Category groups panels in listings.
type Category string

const (
	Core     Category = "core"
	Security Category = "security"
	Recon    Category = "recon"
	Utils    Category = "utils"
)

// Categories in display order.
var Categories = []Category{Core, Security, Recon, Utils}

// ParamType is the JSON schema type of a Param.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
)

// Param describes one panel argument. The CLI turns it into a flag and the
// MCP server into a schema property.
type Param struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Description string    `json:"description"`
	Required    bool      `json:"required,omitempty"`
	Default     any       `json:"default,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
}

// Info describes a panel.
type Info struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Category    Category `json:"category"`
	Description string   `json:"description"`
	Params      []Param  `json:"params"`
}

// Param returns the named parameter.
func (i Info) Param(name string) (Param, bool) {
	for _, p := range i.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

func (i Info) event() events.PanelInfo {
	return events.PanelInfo{ID: i.ID, Label: i.Label, Category: string(i.Category)}
}

// Result is what a panel returns.
type Result struct {
	// Data is the typed result, serialized by the JSON writers and the
	// MCP and REST servers.
	Data any `json:"data"`

	// Table is the flat rendering for console and PDF output.
	Table *events.Table `json:"-"`

	// Severity is the worst finding, empty when the panel grades nothing.
	Severity finding.Severity `json:"severity,omitempty"`

	// Text is the primary output value, the one --copy puts on the
	// clipboard.
	Text string `json:"-"`
}

type runFunc func(ctx context.Context, args Args) (*Result, error)

type entry struct {
	info Info
	run  runFunc
}

// Env is what panels may touch outside their own input.
type Env struct {
	// Host is the browser bridge. Nil uses an empty in-memory host, so
	// page panels return empty results.
	Host hostbridge.Host

	// Rules are the data tables. Nil uses ruleset.Default().
	Rules *ruleset.Set

	// Client sends requests for hosts that cannot fetch themselves.
	Client *http.Client

	Logger *slog.Logger

	// Location renders local times. Nil means time.Local.
	Location *time.Location

	// Now is the clock used for JWT validity. Nil means time.Now.
	Now func() time.Time

	// CORSOrigin is the default probe origin.
	CORSOrigin string

	// ShellIP and ShellPort pre-fill the reverse shell listener.
	ShellIP   string
	ShellPort string

	// RatePerSecond and Burst bound multi-request checks.
	RatePerSecond float64
	Burst         int
}

// Registry holds the panels in display order. It is read-only after New
// and safe for concurrent use.
type Registry struct {
	env        Env
	logger     *slog.Logger
	dispatcher *dispatcher.Dispatcher

	entries []*entry
	index   map[string]*entry

	payloads *payloads.Library
	dorks    *dorks.Generator
	shells   *revshell.Generator
	headers  *headers.Analyzer
	cors     *cors.Checker
	cookies  *cookies.Editor

	detectorOnce sync.Once
	detector     *extract.Detector
	detectorErr  error
}

// Option configures a Registry.
type Option func(*Registry)

// WithDispatcher sends every invocation's events to d.
func WithDispatcher(d *dispatcher.Dispatcher) Option {
	return func(r *Registry) { r.dispatcher = d }
}

// New builds the registry with every built-in panel.
func New(env Env, opts ...Option) *Registry {
	if env.Host == nil {
		env.Host = hostbridge.NewMemory()
	}
	if env.Rules == nil {
		env.Rules = ruleset.Default()
	}
	if env.Logger == nil {
		env.Logger = slog.Default()
	}
	if env.Location == nil {
		env.Location = time.Local
	}
	if env.Now == nil {
		env.Now = time.Now
	}

	r := &Registry{
		env:      env,
		logger:   env.Logger,
		index:    make(map[string]*entry),
		payloads: payloads.New(env.Rules),
		dorks:    dorks.New(env.Rules),
		shells:   revshell.New(env.Rules),
		headers: headers.New(headers.Options{
			Rules:         env.Rules,
			Host:          env.Host,
			Client:        env.Client,
			RatePerSecond: env.RatePerSecond,
			Burst:         env.Burst,
			Logger:        env.Logger,
		}),
		cors: cors.New(cors.Options{
			Host:          env.Host,
			Client:        env.Client,
			Origin:        env.CORSOrigin,
			RatePerSecond: env.RatePerSecond,
			Burst:         env.Burst,
			Logger:        env.Logger,
		}),
		cookies: cookies.New(env.Host, env.Logger),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.registerCore()
	r.registerSecurity()
	r.registerRecon()
	r.registerUtils()
	return r
}

func (r *Registry) add(info Info, run runFunc) {
	if _, dup := r.index[info.ID]; dup {
		panic("panel: duplicate id " + info.ID)
	}
	e := &entry{info: info, run: run}
	r.entries = append(r.entries, e)
	r.index[info.ID] = e
}

// List returns every panel in display order.
func (r *Registry) List() []Info {
	out := make([]Info, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.info
	}
	return out
}

// ByCategory returns the panels of c in display order.
func (r *Registry) ByCategory(c Category) []Info {
	var out []Info
	for _, e := range r.entries {
		if e.info.Category == c {
			out = append(out, e.info)
		}
	}
	return out
}

// Lookup returns the panel with the given id. Ids are case-insensitive.
func (r *Registry) Lookup(id string) (Info, bool) {
	e, ok := r.index[strings.ToLower(id)]
	if !ok {
		return Info{}, false
	}
	return e.info, true
}

// Run invokes the panel id with args. A panic inside the panel is returned
// as a *PanelError; nothing is retried automatically. A result produced
// after ctx is done is discarded and ctx's error returned instead.
func (r *Registry) Run(ctx context.Context, id string, args Args) (*Result, error) {
	e, ok := r.index[strings.ToLower(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPanel, id)
	}
	if args == nil {
		args = Args{}
	}

	run := uuid.NewString()
	info := e.info.event()
	// Events are still delivered for a cancelled run.
	evCtx := context.WithoutCancel(ctx)

	r.dispatch(evCtx, events.NewStart(run, info, args))
	start := time.Now()
	res, err := r.invoke(ctx, e, args)
	if err == nil && ctx.Err() != nil {
		res, err = nil, ctx.Err()
	}
	elapsed := time.Since(start)

	if err != nil {
		r.dispatch(evCtx, events.NewError(run, info, elapsed, ErrorType(err), err.Error()))
		return nil, err
	}
	r.dispatch(evCtx, events.NewResult(run, info, elapsed, res.Severity, res.Data, res.Table))
	return res, nil
}

func (r *Registry) invoke(ctx context.Context, e *entry, args Args) (res *Result, err error) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		stack := debug.Stack()
		r.logger.Error("panel crashed",
			slog.String("panel", e.info.ID),
			slog.Any("panic", v),
			slog.String("stack", string(stack)),
		)
		res = nil
		err = &PanelError{
			Panel: e.info.ID,
			Value: v,
			Stack: stack,
			retry: func(ctx context.Context) (*Result, error) {
				return r.Run(ctx, e.info.ID, args)
			},
		}
	}()

	if err := args.validate(e.info.Params); err != nil {
		return nil, err
	}
	res, err = e.run(ctx, args)
	if err == nil && res == nil {
		res = &Result{}
	}
	return res, err
}

func (r *Registry) dispatch(ctx context.Context, ev events.Event) {
	if r.dispatcher == nil {
		return
	}
	if err := r.dispatcher.Dispatch(ctx, ev); err != nil {
		r.logger.Debug("event dropped", slog.String("event", string(ev.EventType())), slog.String("error", err.Error()))
	}
}

// Detector returns the compiled technology detector, built on first use.
func (r *Registry) Detector() (*extract.Detector, error) {
	r.detectorOnce.Do(func() {
		r.detector, r.detectorErr = extract.NewDetector(r.env.Rules)
	})
	return r.detector, r.detectorErr
}

// Host returns the host bridge the panels use.
func (r *Registry) Host() hostbridge.Host { return r.env.Host }

// PanelError is a panic recovered from a panel.
type PanelError struct {
	Panel string
	Value any
	Stack []byte

	retry func(ctx context.Context) (*Result, error)
}

// DefaultPanicMessage is shown when the panic value carries no text.
const DefaultPanicMessage = "An unexpected error occurred"

func (e *PanelError) Error() string {
	var msg string
	switch v := e.Value.(type) {
	case error:
		msg = v.Error()
	case string:
		msg = v
	case fmt.Stringer:
		msg = v.String()
	}
	if msg == "" {
		return DefaultPanicMessage
	}
	return msg
}

// Unwrap returns the panic value when it is an error.
func (e *PanelError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// Retry runs the panel again with the same arguments.
func (e *PanelError) Retry(ctx context.Context) (*Result, error) {
	if e.retry == nil {
		return nil, e
	}
	return e.retry(ctx)
}

// ErrorType classifies err for events and metrics.
func ErrorType(err error) events.ErrorType {
	var pe *PanelError
	switch {
	case errors.As(err, &pe):
		return events.ErrorTypePanic
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return events.ErrorTypeCanceled
	}
	return events.ErrorTypeFailed
}
