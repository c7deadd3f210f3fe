// Package headers grades a response's security headers against the
// headers.yaml rule table and scores the result.
package headers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/thecyberx/cyberx/pkg/defaults"
	"github.com/thecyberx/cyberx/pkg/hostbridge"
	"github.com/thecyberx/cyberx/pkg/regexcache"
	"github.com/thecyberx/cyberx/pkg/ruleset"
)

var (
	// ErrEmptyURL is returned when no target URL is given.
	ErrEmptyURL = errors.New("headers: URL is required")

	// ErrFetch is wrapped around request failures. Its text is shown as is.
	ErrFetch = errors.New("Failed to fetch headers. Try using the current page instead.")
)

// Status grades one header.
type Status string

const (
	Good    Status = "good"
	Warning Status = "warning"
	Bad     Status = "bad"
	Missing Status = "missing"
)

// UnknownHeader describes a header with no rule table entry.
const UnknownHeader = "Unknown header"

// Result is the verdict for one header. Value is empty when the response
// did not carry it.
type Result struct {
	Name        string `json:"name"`
	Value       string `json:"value,omitempty"`
	Status      Status `json:"status"`
	Description string `json:"description"`
}

// Report is every checked header in table order plus a score.
type Report struct {
	URL     string   `json:"url,omitempty"`
	Results []Result `json:"results"`
	Good    int      `json:"good"`
	Score   int      `json:"score"` // percent of results graded good
	Error   string   `json:"error,omitempty"`
}

// Options configures an Analyzer.
type Options struct {
	// Rules defaults to ruleset.Default().
	Rules *ruleset.Set

	// Host sends requests when it implements hostbridge.Fetcher.
	Host hostbridge.Host

	// Client sends requests otherwise. Nil uses a probe client.
	Client *http.Client

	// RatePerSecond and Burst bound CheckAll.
	RatePerSecond float64
	Burst         int

	Logger *slog.Logger
}

// Analyzer grades headers. It is safe for concurrent use.
type Analyzer struct {
	checks  []ruleset.HeaderCheck
	host    hostbridge.Host
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates an analyzer from opts.
func New(opts Options) *Analyzer {
	if opts.Rules == nil {
		opts.Rules = ruleset.Default()
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = defaults.ProbesPerSecond
	}
	if opts.Burst <= 0 {
		opts.Burst = defaults.ProbeBurst
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Analyzer{
		checks:  opts.Rules.Headers,
		host:    opts.Host,
		client:  opts.Client,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
		logger:  opts.Logger,
	}
}

// Names lists the checked headers in table order.
func (a *Analyzer) Names() []string {
	names := make([]string, len(a.checks))
	for i, c := range a.checks {
		names[i] = c.Name
	}
	return names
}

// Evaluate grades a single header value. An empty value counts as absent.
func (a *Analyzer) Evaluate(name, value string) Result {
	res := Result{Name: name, Value: value}
	for _, check := range a.checks {
		if !strings.EqualFold(check.Name, name) {
			continue
		}
		for _, r := range check.Rules {
			if ruleMatches(r, value) {
				res.Status = Status(r.Status)
				res.Description = r.Description
				return res
			}
		}
		break
	}
	res.Status = Missing
	res.Description = UnknownHeader
	return res
}

// Analyze grades every table header against h. Repeated fields are joined
// with ", " the way a browser's Headers.get does.
func (a *Analyzer) Analyze(h http.Header) *Report {
	report := &Report{Results: make([]Result, 0, len(a.checks))}
	for _, check := range a.checks {
		res := a.Evaluate(check.Name, strings.Join(h.Values(check.Name), ", "))
		if res.Status == Good {
			report.Good++
		}
		report.Results = append(report.Results, res)
	}
	report.Score = score(report.Good, len(report.Results))
	return report
}

// score rounds half up.
func score(good, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Floor(float64(good)/float64(total)*100 + 0.5))
}

// Check GETs targetURL and grades its response headers. Request failures
// are returned wrapped in ErrFetch.
func (a *Analyzer) Check(ctx context.Context, targetURL string) (*Report, error) {
	targetURL = strings.TrimSpace(targetURL)
	if targetURL == "" {
		return nil, ErrEmptyURL
	}
	hdr := http.Header{}
	hdr.Set("User-Agent", defaults.UAChrome)
	resp, err := hostbridge.Fetch(ctx, a.host, a.client, http.MethodGet, targetURL, hdr)
	if err != nil {
		a.logger.Debug("header fetch failed", slog.String("url", targetURL), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	report := a.Analyze(resp.Headers)
	report.URL = targetURL
	return report, nil
}

// CheckActive checks the URL of the host's active tab.
func (a *Analyzer) CheckActive(ctx context.Context) (*Report, error) {
	if a.host == nil {
		return nil, hostbridge.ErrNoActiveTab
	}
	tab, err := a.host.ActiveTab(ctx)
	if err != nil {
		return nil, err
	}
	return a.Check(ctx, tab.URL)
}

// CheckAll checks each URL in turn behind the rate limiter. A failed URL
// yields a report carrying the error; cancellation stops the batch.
func (a *Analyzer) CheckAll(ctx context.Context, urls []string) ([]*Report, error) {
	reports := make([]*Report, 0, len(urls))
	for _, u := range urls {
		if err := a.limiter.Wait(ctx); err != nil {
			return reports, err
		}
		report, err := a.Check(ctx, u)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return reports, ctxErr
			}
			report = &Report{URL: u, Results: []Result{}, Error: err.Error()}
		}
		reports = append(reports, report)
	}
	return reports, nil
}

var maxAgePattern = regexcache.MustGet(`max-age=(\d+)`)

// maxAge reads the first max-age=N directive, or 0. Overflow saturates.
func maxAge(value string) int {
	m := maxAgePattern.FindStringSubmatch(value)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return math.MaxInt
	}
	return n
}

// ruleMatches ANDs every condition set on r.
func ruleMatches(r ruleset.HeaderRule, value string) bool {
	absent := value == ""
	if r.Missing && !absent {
		return false
	}
	if absent && hasValueCondition(r) {
		return false
	}
	if len(r.ContainsAny) > 0 && !containsAny(value, r.ContainsAny) {
		return false
	}
	if len(r.EqualsAny) > 0 && !equalsAnyFold(value, r.EqualsAny) {
		return false
	}
	if r.Equals != nil && value != *r.Equals {
		return false
	}
	if r.HasMaxAge && !strings.Contains(value, "max-age") {
		return false
	}
	if r.MinMaxAge > 0 && (!strings.Contains(value, "max-age") || maxAge(value) < r.MinMaxAge) {
		return false
	}
	return true
}

func hasValueCondition(r ruleset.HeaderRule) bool {
	return len(r.ContainsAny) > 0 || len(r.EqualsAny) > 0 || r.Equals != nil || r.HasMaxAge || r.MinMaxAge > 0
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func equalsAnyFold(s string, options []string) bool {
	for _, o := range options {
		if strings.EqualFold(s, o) {
			return true
		}
	}
	return false
}
