package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"procura-backend/internal/assistant"
	"procura-backend/internal/catalog"
	"procura-backend/internal/config"
	"procura-backend/internal/logging"
	"procura-backend/internal/modules"
	"procura-backend/internal/server"
)

func main() {
	app := &cli.App{
		Name:  "procura",
		Usage: "Procurement assistant backend for pharmaceutical sourcing",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "info",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the HTTP and websocket API",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "port", Aliases: []string{"p"}, Usage: "Listen on `PORT` (overrides PORT)"},
				},
				Action: runServe,
			},
			{
				Name:  "chat",
				Usage: "Chat with the assistant in the terminal",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "no-delay", Usage: "Skip the simulated thinking time"},
				},
				Action: runChat,
			},
			{
				Name:      "classify",
				Usage:     "Print the intent tag for a message",
				ArgsUsage: "TEXT",
				Action:    runClassify,
			},
			{
				Name:  "export-catalog",
				Usage: "Write the active catalog to a JSON file for editing",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write to `FILE`", Required: true},
				},
				Action: runExportCatalog,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Load()
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := logging.Init(logging.Options{Dir: cfg.LogDir, Level: cfg.LogLevel}); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer logging.Sync()
	if p := c.String("port"); p != "" {
		cfg.Port = p
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := server.NewServer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer s.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logging.AppLogger.Info("procura server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen error: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.ErrorLogger.Error("server shutdown error", zap.Error(err))
		return err
	}
	logging.AppLogger.Info("server shutdown complete")
	return nil
}

func runClassify(c *cli.Context) error {
	text := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(text) == "" {
		return cli.Exit("usage: procura classify TEXT", 2)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	engine, _, err := server.NewEngine(cfg)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, engine.Classify(c.Context, text))
	return nil
}

func runExportCatalog(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cat, err := catalog.NewFileSource(cfg.CatalogFile).Load()
	if err != nil {
		return err
	}
	out := c.String("out")
	if err := catalog.NewFileSource(out).Write(cat); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "catalog written to %s\n", out)
	return nil
}

func runChat(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.Bool("no-delay") {
		cfg.ThinkDelay, cfg.ResearchDelay = 0, 0
	}
	engine, cat, err := server.NewEngine(cfg)
	if err != nil {
		return err
	}
	r := &repl{engine: engine, renderer: modules.NewRenderer(cat), session: assistant.NewSession("terminal"), out: c.App.Writer}
	return r.run(c.Context, os.Stdin)
}

// repl is a terminal front end over the same engine the server uses.
type repl struct {
	engine   *assistant.Engine
	renderer *modules.Renderer
	session  assistant.Session
	out      io.Writer
}

const replHelp = `Commands:
  /actions        show the action preview panel
  /drop TEXT      add a custom action
  /module TYPE    render a dashboard module
  /reset          start a new conversation
  /quit           exit`

func (r *repl) run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(r.out, "Procurement assistant. Type /help for commands.")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := scanner.Text()
		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		switch cmd {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(r.out, replHelp)
		case "/reset":
			r.session = assistant.NewSession(r.session.ID)
			fmt.Fprintln(r.out, "Conversation cleared.")
		case "/actions":
			r.printPanel()
		case "/drop":
			next, ca, err := r.engine.Drop(r.session, arg)
			if err != nil {
				fmt.Fprintln(r.out, "nothing to add:", err)
				continue
			}
			r.session = next
			fmt.Fprintf(r.out, "Added custom action %q\n", ca.Content)
		case "/module":
			r.printJSON(r.renderer.Render(strings.TrimSpace(arg), nil))
		default:
			if err := r.turn(ctx, line); err != nil {
				return err
			}
		}
	}
}

func (r *repl) turn(ctx context.Context, text string) error {
	t := r.engine.Decide(ctx, r.session, text)
	fmt.Fprintln(r.out, "...")
	if err := assistant.Think(ctx, r.engine.DelayFor(t)); err != nil {
		return err
	}
	r.session = r.engine.Apply(r.session, t)
	fmt.Fprintf(r.out, "[%s] %s\n", t.Tag, t.Reply.Content)
	if p := t.Response.Payload; p != nil {
		for _, s := range p.Suppliers {
			fmt.Fprintf(r.out, "  - %s (%s) rating %.1f, GMP %t\n", s.Name, s.Country, s.Rating, s.GMPCertified)
		}
		for _, f := range p.Research {
			fmt.Fprintf(r.out, "  * %s: %s\n", f.Title, f.Summary)
		}
		for _, qa := range p.QuickActions {
			fmt.Fprintf(r.out, "  > %s: %q\n", qa.Label, qa.Prompt)
		}
		if mr := p.ModuleRequest; mr != nil {
			r.printJSON(r.renderer.Render(string(mr.Type), mr.Data))
		}
	}
	return nil
}

func (r *repl) printPanel() {
	p := r.engine.Panel(r.session)
	fmt.Fprintf(r.out, "Suggestions for %s:\n", p.Tag)
	for _, a := range p.Actions {
		fmt.Fprintf(r.out, "  %s: %s (%s %s)\n", a.Title, a.Description, a.Invoke.Kind, a.Invoke.Target)
	}
	if len(p.Custom) > 0 {
		fmt.Fprintln(r.out, "Custom:")
		for _, ca := range p.Custom {
			fmt.Fprintf(r.out, "  %s\n", ca.Content)
		}
	}
}

func (r *repl) printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(r.out, "render error:", err)
		return
	}
	fmt.Fprintln(r.out, string(b))
}
