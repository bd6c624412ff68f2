package interactive

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MOYARU/crawlprobe/internal/app/scan"
	"github.com/MOYARU/crawlprobe/internal/app/ui"
	"github.com/MOYARU/crawlprobe/internal/config"
	msges "github.com/MOYARU/crawlprobe/internal/messages"
	"github.com/MOYARU/crawlprobe/internal/report"
)

// Runner executes one scan. scan.RunScan in production.
type Runner func(ctx context.Context, cfg config.Config, opts scan.Options) (*scan.Result, error)

// Shell is the line-oriented prompt started when no target is given.
type Shell struct {
	cfg        config.Config
	configPath string
	logger     *slog.Logger

	in      io.Reader
	out     io.Writer
	run     Runner
	confirm func(string) (bool, error)

	last *scan.Result
}

func New(cfg config.Config, configPath string, logger *slog.Logger) *Shell {
	if configPath == "" {
		configPath = config.DefaultPath
	}
	return &Shell{
		cfg:        cfg,
		configPath: configPath,
		logger:     logger,
		in:         os.Stdin,
		out:        os.Stdout,
		run:        scan.RunScan,
		confirm:    ui.Confirm,
	}
}

// Run reads commands until exit, EOF or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	fmt.Fprintf(s.out, "%s%s%s\n", ui.ColorGray, msges.GetUIMessage("InteractiveWelcome"), ui.ColorReset)
	scanner := bufio.NewScanner(s.in)
	for {
		fmt.Fprintf(s.out, "%scrawlprobe > %s", ui.ColorGray, ui.ColorReset)
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		if s.Execute(ctx, scanner.Text()) || ctx.Err() != nil {
			return nil
		}
	}
}

// Execute runs one command line and reports whether the shell should exit.
func (s *Shell) Execute(ctx context.Context, input string) bool {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return false
	}
	command, args := parts[0], parts[1:]

	switch command {
	case "exit", "quit":
		fmt.Fprintf(s.out, "%s%s%s\n", ui.ColorGray, msges.GetUIMessage("InteractiveExit"), ui.ColorReset)
		return true
	case "clear", "cls":
		fmt.Fprint(s.out, "\033[H\033[2J")
	case "help":
		s.help()
	case "scan":
		s.scan(ctx, args)
	case "set":
		if len(args) < 2 {
			s.errorf("Usage: set <key> <value>")
			return false
		}
		if err := s.cfg.Set(args[0], strings.Join(args[1:], " ")); err != nil {
			s.errorf("%v", err)
			return false
		}
		fmt.Fprintf(s.out, "%sUpdated %s%s\n", ui.ColorGreen, args[0], ui.ColorReset)
	case "show":
		raw, err := yaml.Marshal(s.cfg)
		if err != nil {
			s.errorf("%v", err)
			return false
		}
		fmt.Fprint(s.out, string(raw))
	case "save":
		path := s.configPath
		if len(args) > 0 {
			path = args[0]
		}
		if err := s.cfg.Save(path); err != nil {
			s.errorf("Failed to save config: %v", err)
			return false
		}
		fmt.Fprintf(s.out, "%sSaved config to %s%s\n", ui.ColorGreen, path, ui.ColorReset)
	case "load":
		path := s.configPath
		if len(args) > 0 {
			path = args[0]
		}
		cfg, err := config.Load(path)
		if err != nil {
			s.errorf("Failed to load config: %v", err)
			return false
		}
		s.cfg = cfg
		fmt.Fprintf(s.out, "%sLoaded config from %s%s\n", ui.ColorGreen, path, ui.ColorReset)
	case "findings":
		s.listFindings()
	case "curl":
		s.curl(args)
	default:
		s.errorf("%s", msges.GetUIMessage("InteractiveErrorUnknown", command))
	}
	return false
}

func (s *Shell) help() {
	fmt.Fprintf(s.out, "%s%s%s\n", ui.ColorWhite, msges.GetUIMessage("InteractiveHelp"), ui.ColorReset)
	for _, line := range []string{
		"scan [target_url]",
		"set <key> <value>",
		"show | save [path] | load [path]",
		"findings",
		"curl <n>",
		"help | clear | exit",
	} {
		fmt.Fprintf(s.out, "%s  %s%s\n", ui.ColorGray, line, ui.ColorReset)
	}
}

func (s *Shell) scan(ctx context.Context, args []string) {
	cfg := s.cfg
	if len(args) > 0 {
		cfg.BaseURL = scan.NormalizeTarget(ctx, args[0])
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		s.errorf("%s", msges.GetUIMessage("InteractiveErrorTarget"))
		return
	}

	fmt.Fprintf(s.out, "\n%s%s%s\n", ui.ColorRed, msges.GetUIMessage("ActiveScanWarning"), ui.ColorReset)
	fmt.Fprintf(s.out, "%s%s%s\n", ui.ColorYellow, msges.GetUIMessage("ActiveScanPermission"), ui.ColorReset)
	ok, err := s.confirm(ui.ColorYellow + msges.GetUIMessage("ActiveScanPrompt") + ui.ColorReset)
	if err != nil || !ok {
		fmt.Fprintf(s.out, "%s%s%s\n", ui.ColorYellow, msges.GetUIMessage("ActiveScanAborted"), ui.ColorReset)
		return
	}

	scanCtx, cancel := ui.WaitForCancel(ctx)
	defer cancel()
	res, err := s.run(scanCtx, cfg, scan.Options{Logger: s.logger})
	if err != nil {
		s.errorf("%s", msges.GetUIMessage("InteractiveScanFailed", err))
		return
	}
	s.last = res
}

func (s *Shell) listFindings() {
	if s.last == nil || len(s.last.Findings) == 0 {
		fmt.Fprintf(s.out, "%s%s%s\n", ui.ColorGreen, msges.GetUIMessage("ConsoleNoIssues"), ui.ColorReset)
		return
	}
	for i, f := range s.last.Findings {
		m := f.Meta()
		fmt.Fprintf(s.out, " %d. [%s] %s %s %s\n", i+1, m.Severity, m.Kind, m.Method, report.SanitizeURL(m.URL))
	}
}

// curl prints a reproduction command for the n-th finding of the last scan.
func (s *Shell) curl(args []string) {
	if s.last == nil {
		s.errorf("no scan results yet")
		return
	}
	if len(args) != 1 {
		s.errorf("Usage: curl <n>")
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(s.last.Findings) {
		s.errorf("finding number must be between 1 and %d", len(s.last.Findings))
		return
	}
	m := s.last.Findings[n-1].Meta()
	fmt.Fprintln(s.out, report.Curl(m.Method, m.URL, m.Params, s.cfg.Headers))
}

func (s *Shell) errorf(format string, args ...any) {
	fmt.Fprintf(s.out, "%s%s%s\n", ui.ColorRed, fmt.Sprintf(format, args...), ui.ColorReset)
}
