package hostbridge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/thecyberx/cyberx/pkg/httpclient"
)

// BackendAuto picks chrome when a DevTools URL is given and http otherwise.
const BackendAuto = "auto"

// Options selects and configures a backend.
type Options struct {
	Backend   string
	ChromeURL string
	Headless  bool

	// URL is loaded into the active tab after opening, if set.
	URL string

	HTTP   httpclient.Config
	Logger *slog.Logger
}

// Open creates the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Host, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	backend := opts.Backend
	if backend == "" || backend == BackendAuto {
		backend = BackendHTTP
		if opts.ChromeURL != "" {
			backend = BackendChrome
		}
	}

	var (
		host Host
		err  error
	)
	switch backend {
	case BackendHTTP:
		host, err = NewHTTP(opts.HTTP, logger)
	case BackendChrome:
		client, cerr := httpclient.New(opts.HTTP)
		if cerr != nil {
			return nil, cerr
		}
		host, err = NewChrome(ctx, ChromeOptions{
			RemoteURL: opts.ChromeURL,
			Headless:  opts.Headless,
			Proxy:     opts.HTTP.Proxy,
			UserAgent: opts.HTTP.UserAgent,
			Client:    client,
		}, logger)
	case BackendMemory:
		host = NewMemory()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("host opened", slog.String("backend", backend))

	if opts.URL != "" {
		nav, ok := host.(Navigator)
		if !ok {
			host.Close()
			return nil, fmt.Errorf("open %s: %w", backend, ErrUnsupported)
		}
		if _, err := nav.Navigate(ctx, opts.URL); err != nil {
			host.Close()
			return nil, err
		}
	}
	return host, nil
}
