// Package cli bridges the panel registry with command-line flags. Every
// panel parameter becomes a flag of the panel's subcommand, and the first
// string parameter also accepts positional text:
//
//	fs := flag.NewFlagSet("encoder", flag.ContinueOnError)
//	b := cli.BindPanel(fs, info)
//	rest, err := cli.ParseInterleaved(fs, os.Args[2:])
//	args, err := b.Args(rest, os.Stdin)
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cast"

	"github.com/thecyberx/cyberx/pkg/panel"
)

// StdinMarker as the only positional argument reads the primary parameter
// from standard input.
const StdinMarker = "-"

// maxStdin caps what is read for StdinMarker.
const maxStdin = 10 << 20

// ErrTooManyArgs is returned when positional text is given to a panel that
// has no string parameter to receive it.
var ErrTooManyArgs = errors.New("unexpected positional arguments")

// Binding holds the flags registered for one panel.
type Binding struct {
	info    panel.Info
	fs      *flag.FlagSet
	primary string
	bound   map[string]bool
	lists   map[string]*stringList
}

// BindPanel registers one flag per panel parameter on fs. A parameter whose
// name is already taken on fs is left to its positional or default value.
func BindPanel(fs *flag.FlagSet, info panel.Info) *Binding {
	b := &Binding{
		info:  info,
		fs:    fs,
		bound: make(map[string]bool, len(info.Params)),
		lists: make(map[string]*stringList),
	}
	for _, p := range info.Params {
		if b.primary == "" && p.Type == panel.TypeString {
			b.primary = p.Name
		}
		if fs.Lookup(p.Name) != nil {
			continue
		}
		usage := Usage(p)
		switch p.Type {
		case panel.TypeBoolean:
			fs.Bool(p.Name, cast.ToBool(p.Default), usage)
		case panel.TypeInteger:
			fs.Int(p.Name, cast.ToInt(p.Default), usage)
		case panel.TypeArray:
			l := &stringList{}
			fs.Var(l, p.Name, usage)
			b.lists[p.Name] = l
		default:
			fs.String(p.Name, cast.ToString(p.Default), usage)
		}
		b.bound[p.Name] = true
	}
	return b
}

// Primary returns the parameter that receives positional text, or "".
func (b *Binding) Primary() string { return b.primary }

// Args collects the flags that were set on the command line, plus the
// positional text joined with spaces into the primary parameter. Unset
// flags are left out so the panel applies its own defaults.
func (b *Binding) Args(positional []string, stdin io.Reader) (panel.Args, error) {
	args := panel.Args{}
	b.fs.Visit(func(f *flag.Flag) {
		name := f.Name
		if !b.bound[name] {
			return
		}
		if l, ok := b.lists[name]; ok {
			args[name] = []string(*l)
			return
		}
		if g, ok := f.Value.(flag.Getter); ok {
			args[name] = g.Get()
			return
		}
		args[name] = f.Value.String()
	})

	if len(positional) == 0 {
		return args, nil
	}
	if b.primary == "" {
		return nil, fmt.Errorf("%s: %w: %s", b.info.ID, ErrTooManyArgs, strings.Join(positional, " "))
	}
	if _, set := args[b.primary]; set {
		return nil, fmt.Errorf("%s: --%s given twice: %w", b.info.ID, b.primary, ErrTooManyArgs)
	}
	if len(positional) == 1 && positional[0] == StdinMarker && stdin != nil {
		data, err := io.ReadAll(io.LimitReader(stdin, maxStdin))
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		args[b.primary] = strings.TrimRight(string(data), "\r\n")
		return args, nil
	}
	args[b.primary] = strings.Join(positional, " ")
	return args, nil
}

// ParseInterleaved parses fs allowing flags after positional arguments,
// so "cyberx encoder hello -encoding hex" works. "--" ends flag parsing.
func ParseInterleaved(fs *flag.FlagSet, arguments []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(arguments); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		if len(arguments) > len(rest) && arguments[len(arguments)-len(rest)-1] == "--" {
			return append(positional, rest...), nil
		}
		positional = append(positional, rest[0])
		arguments = rest[1:]
	}
}

// Usage renders a parameter's help text with its allowed values.
func Usage(p panel.Param) string {
	usage := p.Description
	if len(p.Enum) > 0 {
		usage += " (" + strings.Join(p.Enum, "|") + ")"
	}
	if p.Type == panel.TypeArray {
		usage += " (repeatable, comma separated)"
	}
	if p.Required {
		usage += " [required]"
	}
	return usage
}

// stringList is a repeatable flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}
