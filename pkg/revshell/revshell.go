// Package revshell renders reverse shell one-liners for a listener address.
package revshell

import (
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/thecyberx/cyberx/pkg/defaults"
	"github.com/thecyberx/cyberx/pkg/regexcache"
	"github.com/thecyberx/cyberx/pkg/ruleset"
)

var (
	ErrUnknownShell = errors.New("revshell: unknown shell")
	ErrInvalidHost  = errors.New("revshell: invalid listener address")
	ErrInvalidPort  = errors.New("revshell: port must be 1-65535")
)

// RFC 1123 host name.
var hostnamePattern = regexcache.MustGet(`^(?i:[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)(\.(?i:[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?))*\.?$`)

// Listener is where the shell connects back to.
type Listener struct {
	IP   string `json:"ip"`
	Port string `json:"port"`
}

// Normalize fills defaults and validates.
func (l Listener) Normalize() (Listener, error) {
	l.IP = strings.TrimSpace(l.IP)
	l.Port = strings.TrimSpace(l.Port)
	if l.IP == "" {
		l.IP = defaults.ShellIP
	}
	if l.Port == "" {
		l.Port = defaults.ShellPort
	}
	if !validHost(l.IP) {
		return l, fmt.Errorf("%w: %q", ErrInvalidHost, l.IP)
	}
	if p, err := strconv.Atoi(l.Port); err != nil || p < 1 || p > 65535 {
		return l, fmt.Errorf("%w: %q", ErrInvalidPort, l.Port)
	}
	return l, nil
}

func validHost(s string) bool {
	if _, err := netip.ParseAddr(s); err == nil {
		return true
	}
	return len(s) <= 253 && hostnamePattern.MatchString(s)
}

// Shell is a rendered command.
type Shell struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Command string `json:"command"`
}

// Generator renders shell templates.
type Generator struct {
	shells []ruleset.Shell
}

// New returns a generator. A nil set uses the bundled tables.
func New(set *ruleset.Set) *Generator {
	if set == nil {
		set = ruleset.Default()
	}
	return &Generator{shells: set.Shells}
}

// IDs returns the shell identifiers in declared order.
func (g *Generator) IDs() []string {
	ids := make([]string, len(g.shells))
	for i, s := range g.shells {
		ids[i] = s.ID
	}
	return ids
}

// Render replaces every {IP} and {PORT} in template.
func Render(template string, l Listener) string {
	return strings.NewReplacer("{IP}", l.IP, "{PORT}", l.Port).Replace(template)
}

// Generate renders one shell.
func (g *Generator) Generate(id string, l Listener) (Shell, error) {
	l, err := l.Normalize()
	if err != nil {
		return Shell{}, err
	}
	for _, s := range g.shells {
		if strings.EqualFold(s.ID, id) {
			return Shell{ID: s.ID, Name: s.Name, Command: Render(s.Template, l)}, nil
		}
	}
	return Shell{}, fmt.Errorf("%w: %q", ErrUnknownShell, id)
}

// GenerateAll renders every shell.
func (g *Generator) GenerateAll(l Listener) ([]Shell, error) {
	l, err := l.Normalize()
	if err != nil {
		return nil, err
	}
	out := make([]Shell, 0, len(g.shells))
	for _, s := range g.shells {
		out = append(out, Shell{ID: s.ID, Name: s.Name, Command: Render(s.Template, l)})
	}
	return out, nil
}
