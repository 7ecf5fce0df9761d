// Package shell turns operator input into device operations. One command
// table serves both invocation styles: a single command passed on the
// f5lm command line, and the interactive read-eval loop.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	apperrors "github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/errors"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/infrastructure"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/license"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/ops"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/store"
)

// prompt is printed before every interactive read.
const prompt = "f5lm> "

// Commander is the operation surface the shell drives. *ops.Service
// satisfies it.
type Commander interface {
	Add(ip, authType string) (store.DeviceRecord, error)
	Remove(ip string) error
	Get(ip string) (store.DeviceRecord, error)
	List() []store.DeviceRecord
	Count() int
	Check(ctx context.Context, ip string) (store.DeviceRecord, error)
	CheckAll(ctx context.Context) ops.BatchResult
	Renew(ctx context.Context, ip, regkey string) (store.DeviceRecord, error)
	Dossier(ctx context.Context, ip, regkey string) (ops.DossierResult, error)
	Apply(ctx context.Context, ip, licenseFile string) (store.DeviceRecord, error)
	Reload(ctx context.Context, ip string) (store.DeviceRecord, error)
	Export(format, path string) (string, error)
}

// command is one dispatch-table entry. Handlers receive the arguments
// after the command name.
type command struct {
	usage   string
	summary string
	minArgs int
	maxArgs int
	run     func(ctx context.Context, args []string) error
}

// Shell parses operator commands and renders their results.
type Shell struct {
	ops     Commander
	history *History
	in      io.Reader
	out     io.Writer
	logger  *slog.Logger

	table map[string]command
	order []string
}

// New builds a shell reading from in and writing to out. history may be
// nil when no audit log is available.
func New(cmds Commander, history *History, in io.Reader, out io.Writer, logger *slog.Logger) *Shell {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Shell{ops: cmds, history: history, in: in, out: out, logger: logger}
	s.table = map[string]command{
		"add":     {usage: "add <ip> [key|password]", summary: "register a device", minArgs: 1, maxArgs: 2, run: s.cmdAdd},
		"remove":  {usage: "remove <ip>", summary: "delete a device", minArgs: 1, maxArgs: 1, run: s.cmdRemove},
		"show":    {usage: "show [ip]", summary: "list devices, or one device in detail", minArgs: 0, maxArgs: 1, run: s.cmdShow},
		"check":   {usage: "check <ip>|all", summary: "refresh license state from the device", minArgs: 1, maxArgs: 1, run: s.cmdCheck},
		"renew":   {usage: "renew <ip> <regkey>", summary: "install a license by registration key", minArgs: 2, maxArgs: 2, run: s.cmdRenew},
		"dossier": {usage: "dossier <ip> [regkey]", summary: "generate the activation dossier", minArgs: 1, maxArgs: 2, run: s.cmdDossier},
		"apply":   {usage: "apply <ip> <license-file>", summary: "install a license file", minArgs: 2, maxArgs: 2, run: s.cmdApply},
		"reload":  {usage: "reload <ip>", summary: "re-activate the current license", minArgs: 1, maxArgs: 1, run: s.cmdReload},
		"export":  {usage: "export [csv|xlsx] [path]", summary: "write the fleet report", minArgs: 0, maxArgs: 2, run: s.cmdExport},
		"count":   {usage: "count", summary: "number of registered devices", minArgs: 0, maxArgs: 0, run: s.cmdCount},
		"help":    {usage: "help", summary: "show this help", minArgs: 0, maxArgs: 0, run: s.cmdHelp},
	}
	s.order = []string{"add", "remove", "show", "check", "renew", "dossier", "apply", "reload", "export", "count", "help"}
	return s
}

// Execute dispatches one command. The executed line lands in the history
// log with secret-bearing arguments masked.
func (s *Shell) Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return s.cmdHelp(ctx, nil)
	}
	name := strings.ToLower(args[0])
	cmd, ok := s.table[name]
	if !ok {
		return fmt.Errorf("unknown command %q; try help", name)
	}
	rest := args[1:]
	if len(rest) < cmd.minArgs || len(rest) > cmd.maxArgs {
		return fmt.Errorf("usage: %s", cmd.usage)
	}
	// One executed command is one traced operation; every log line it
	// emits carries the same trace_id.
	ctx = infrastructure.ContextWithTraceID(ctx)
	s.history.Record(redact(args))
	return cmd.run(ctx, rest)
}

// Run drives the interactive loop until quit, end of input, or context
// cancellation. Command errors are printed and the loop continues.
func (s *Shell) Run(ctx context.Context) error {
	fmt.Fprintf(s.out, "f5lm license manager (%d devices registered). Type help for commands, quit to exit.\n", s.ops.Count())

	scanner := bufio.NewScanner(s.in)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprint(s.out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch strings.ToLower(fields[0]) {
		case "quit", "exit":
			fmt.Fprintln(s.out, "bye")
			return nil
		}
		if err := s.Execute(ctx, fields); err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
			s.logger.DebugContext(ctx, "command failed",
				slog.String("command", fields[0]),
				slog.String("error", err.Error()))
		}
	}
}

// redact masks registration keys before a command line is written to the
// history log.
func redact(args []string) []string {
	if len(args) < 3 {
		return args
	}
	switch strings.ToLower(args[0]) {
	case "renew", "dossier":
		out := make([]string, len(args))
		copy(out, args)
		out[2] = license.MaskRegKey(out[2])
		return out
	}
	return args
}

func (s *Shell) cmdAdd(_ context.Context, args []string) error {
	authType := ""
	if len(args) > 1 {
		authType = strings.ToLower(args[1])
	}
	rec, err := s.ops.Add(args[0], authType)
	if err != nil {
		return err
	}
	if rec.AuthType == store.AuthTypeUnset {
		fmt.Fprintf(s.out, "added %s\n", rec.IP)
		return nil
	}
	fmt.Fprintf(s.out, "added %s (auth %s)\n", rec.IP, rec.AuthType)
	return nil
}

func (s *Shell) cmdRemove(_ context.Context, args []string) error {
	if err := s.ops.Remove(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "removed %s\n", args[0])
	return nil
}

func (s *Shell) cmdShow(_ context.Context, args []string) error {
	if len(args) == 1 {
		rec, err := s.ops.Get(args[0])
		if err != nil {
			return err
		}
		RenderDetail(s.out, rec)
		return nil
	}

	records := s.ops.List()
	if len(records) == 0 {
		fmt.Fprintln(s.out, "no devices registered; use: add <ip> [key|password]")
		return nil
	}
	RenderTable(s.out, records)
	return nil
}

func (s *Shell) cmdCheck(ctx context.Context, args []string) error {
	if !strings.EqualFold(args[0], "all") {
		rec, err := s.ops.Check(ctx, args[0])
		if err != nil {
			return err
		}
		RenderTable(s.out, []store.DeviceRecord{rec})
		return nil
	}

	result := s.ops.CheckAll(ctx)
	if len(result.Checked) > 0 {
		RenderTable(s.out, result.Checked)
	}
	for _, f := range result.Failures {
		fmt.Fprintf(s.out, "failed %s: %v%s\n", f.IP, f.Err, retryHint(f.Err))
	}
	fmt.Fprintf(s.out, "checked %d of %d devices\n",
		len(result.Checked), len(result.Checked)+len(result.Failures))
	return nil
}

func (s *Shell) cmdRenew(ctx context.Context, args []string) error {
	rec, err := s.ops.Renew(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "license installed on %s\n", rec.IP)
	RenderTable(s.out, []store.DeviceRecord{rec})
	return nil
}

func (s *Shell) cmdDossier(ctx context.Context, args []string) error {
	regkey := ""
	if len(args) > 1 {
		regkey = args[1]
	}
	res, err := s.ops.Dossier(ctx, args[0], regkey)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, res.Text)
	fmt.Fprintf(s.out, "dossier saved to %s\n", res.Path)
	return nil
}

func (s *Shell) cmdApply(ctx context.Context, args []string) error {
	rec, err := s.ops.Apply(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "license file applied on %s\n", rec.IP)
	RenderTable(s.out, []store.DeviceRecord{rec})
	return nil
}

func (s *Shell) cmdReload(ctx context.Context, args []string) error {
	rec, err := s.ops.Reload(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "license reloaded on %s\n", rec.IP)
	RenderTable(s.out, []store.DeviceRecord{rec})
	return nil
}

func (s *Shell) cmdExport(_ context.Context, args []string) error {
	format, path := "", ""
	if len(args) > 0 {
		format = args[0]
	}
	if len(args) > 1 {
		path = args[1]
	}
	written, err := s.ops.Export(format, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "exported %d devices to %s\n", s.ops.Count(), written)
	return nil
}

func (s *Shell) cmdCount(_ context.Context, _ []string) error {
	n := s.ops.Count()
	if n == 1 {
		fmt.Fprintln(s.out, "1 device registered")
		return nil
	}
	fmt.Fprintf(s.out, "%d devices registered\n", n)
	return nil
}

func (s *Shell) cmdHelp(_ context.Context, _ []string) error {
	fmt.Fprintln(s.out, "commands:")
	for _, name := range s.order {
		c := s.table[name]
		fmt.Fprintf(s.out, "  %-28s %s\n", c.usage, c.summary)
	}
	fmt.Fprintf(s.out, "  %-28s %s\n", "quit", "leave the shell")
	return nil
}

// retryHint marks failures that are expected while a device restarts its
// management plane.
func retryHint(err error) string {
	if apperrors.Retryable(err) {
		return " (device may be restarting; try again shortly)"
	}
	return ""
}
