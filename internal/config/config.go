package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultPath = ".crawlprobe.yaml"

var (
	ErrEmptyBaseURL  = errors.New("base URL is empty")
	ErrInvalidMode   = errors.New("crawl mode must be bfs or dfs")
	ErrInvalidTarget = errors.New("invalid base URL")
)

type CrawlMode string

const (
	BreadthFirst CrawlMode = "bfs"
	DepthFirst   CrawlMode = "dfs"
)

// Check names accepted in Config.Checks.
const (
	CheckXSS  = "xss"
	CheckSQLi = "sqli"
	CheckCSRF = "csrf"
)

type Config struct {
	BaseURL    string    `yaml:"base_url"`
	ScopePaths []string  `yaml:"scope_paths,omitempty"`
	Mode       CrawlMode `yaml:"mode"`
	MaxDepth   int       `yaml:"max_depth"`
	MaxPages   int       `yaml:"max_pages"`

	Delay   time.Duration `yaml:"delay"`
	Timeout time.Duration `yaml:"timeout"`

	ErrorDiffThreshold   float64       `yaml:"error_diff_threshold"`
	BooleanDiffThreshold float64       `yaml:"boolean_diff_threshold"`
	TimeMargin           time.Duration `yaml:"time_margin"`

	Concurrency      int               `yaml:"concurrency"`
	RequestBudget    int64             `yaml:"request_budget"`
	AllowCrossDomain bool              `yaml:"allow_cross_domain"`
	UserAgent        string            `yaml:"user_agent,omitempty"`
	Headers          map[string]string `yaml:"headers,omitempty"`

	ErrorPayloads []string `yaml:"error_payloads,omitempty"`
	XSSPayloads   []string `yaml:"xss_payloads,omitempty"`
	Checks        []string `yaml:"checks"`
	Fingerprint   bool     `yaml:"fingerprint"`

	Output            string   `yaml:"output"`
	HTMLOutput        string   `yaml:"html_output,omitempty"`
	MetricsAddr       string   `yaml:"metrics_addr,omitempty"`
	RedactionPatterns []string `yaml:"redaction_patterns,omitempty"`
}

func Default() Config {
	return Config{
		Mode:                 BreadthFirst,
		MaxDepth:             3,
		MaxPages:             50,
		Delay:                500 * time.Millisecond,
		Timeout:              10 * time.Second,
		ErrorDiffThreshold:   0.10,
		BooleanDiffThreshold: 0.20,
		TimeMargin:           2500 * time.Millisecond,
		Concurrency:          1,
		Checks:               []string{CheckXSS, CheckSQLi, CheckCSRF},
		Output:               "findings.json",
	}
}

// Load reads a YAML config file on top of Default. A missing file is not an
// error when path is the default location.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == DefaultPath {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate is the startup gate. Nothing touches the network before it passes.
func (c *Config) Validate() error {
	target := strings.TrimSpace(c.BaseURL)
	if target == "" {
		return ErrEmptyBaseURL
	}
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q (only http/https allowed)", ErrInvalidTarget, u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidTarget)
	}
	c.BaseURL = target

	c.Mode = CrawlMode(strings.ToLower(string(c.Mode)))
	if c.Mode == "" {
		c.Mode = BreadthFirst
	}
	if c.Mode != BreadthFirst && c.Mode != DepthFirst {
		return fmt.Errorf("%w: got %q", ErrInvalidMode, c.Mode)
	}

	switch {
	case c.MaxDepth < 0:
		return fmt.Errorf("max_depth must be >= 0, got %d", c.MaxDepth)
	case c.MaxPages < 1:
		return fmt.Errorf("max_pages must be >= 1, got %d", c.MaxPages)
	case c.Delay < 0:
		return fmt.Errorf("delay must be >= 0, got %s", c.Delay)
	case c.Timeout <= 0:
		return fmt.Errorf("timeout must be > 0, got %s", c.Timeout)
	case c.ErrorDiffThreshold <= 0 || c.BooleanDiffThreshold <= 0:
		return fmt.Errorf("difference thresholds must be > 0")
	case c.TimeMargin <= 0:
		return fmt.Errorf("time_margin must be > 0, got %s", c.TimeMargin)
	case c.RequestBudget < 0:
		return fmt.Errorf("request_budget must be >= 0, got %d", c.RequestBudget)
	}
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}

	for i, p := range c.ScopePaths {
		p = strings.TrimSpace(p)
		if p != "" && !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		c.ScopePaths[i] = p
	}
	for _, name := range c.Checks {
		switch name {
		case CheckXSS, CheckSQLi, CheckCSRF:
		default:
			return fmt.Errorf("unknown check %q", name)
		}
	}
	return nil
}

func (c *Config) Enabled(check string) bool {
	for _, name := range c.Checks {
		if name == check {
			return true
		}
	}
	return false
}

// Set assigns one config key from its string form. Keys use the YAML names.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	var err error
	switch key {
	case "base_url":
		c.BaseURL = value
	case "scope_paths":
		c.ScopePaths = splitList(value)
	case "mode":
		c.Mode = CrawlMode(strings.ToLower(value))
	case "max_depth":
		c.MaxDepth, err = strconv.Atoi(value)
	case "max_pages":
		c.MaxPages, err = strconv.Atoi(value)
	case "delay":
		c.Delay, err = time.ParseDuration(value)
	case "timeout":
		c.Timeout, err = time.ParseDuration(value)
	case "time_margin":
		c.TimeMargin, err = time.ParseDuration(value)
	case "error_diff_threshold":
		c.ErrorDiffThreshold, err = strconv.ParseFloat(value, 64)
	case "boolean_diff_threshold":
		c.BooleanDiffThreshold, err = strconv.ParseFloat(value, 64)
	case "concurrency":
		c.Concurrency, err = strconv.Atoi(value)
	case "request_budget":
		c.RequestBudget, err = strconv.ParseInt(value, 10, 64)
	case "allow_cross_domain":
		c.AllowCrossDomain, err = strconv.ParseBool(strings.ToLower(value))
	case "fingerprint":
		c.Fingerprint, err = strconv.ParseBool(strings.ToLower(value))
	case "user_agent":
		c.UserAgent = value
	case "checks":
		c.Checks = splitList(value)
	case "output":
		c.Output = value
	case "html_output":
		c.HTMLOutput = value
	case "metrics_addr":
		c.MetricsAddr = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// Save writes c as YAML.
func (c Config) Save(path string) error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append([]byte("# crawlprobe scan config\n"), raw...), 0o644)
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
