package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/vango-go/vai-companion/pkg/audio"
	"github.com/vango-go/vai-companion/pkg/companion"
	"github.com/vango-go/vai-companion/pkg/core/types"
	"github.com/vango-go/vai-companion/pkg/gateway/config"
	"github.com/vango-go/vai-companion/pkg/gateway/upstream"
)

const defaultConversationFile = "conversation.json"

type cliOptions struct {
	Model        string
	Voice        string
	Language     string
	SystemPrompt string
	NoPlay       bool
	Async        bool
}

func parseCLIOptions(args []string) (cliOptions, error) {
	var opts cliOptions
	flags := flag.NewFlagSet("companion", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	flags.StringVar(&opts.Model, "model", "", "chat model (overrides CHAT_MODEL)")
	flags.StringVar(&opts.Voice, "voice", "", "speech voice (overrides TTS_VOICE)")
	flags.StringVar(&opts.Language, "language", "", "transcription language (overrides COMPANION_LANGUAGE)")
	flags.StringVar(&opts.SystemPrompt, "system", "", "system prompt for every turn")
	flags.BoolVar(&opts.NoPlay, "no-play", false, "print replies without speaking them")
	flags.BoolVar(&opts.Async, "async", false, "run voice turns on the asynchronous path")

	if err := flags.Parse(args); err != nil {
		return cliOptions{}, err
	}
	if flags.NArg() > 0 {
		return cliOptions{}, fmt.Errorf("unexpected argument %q", flags.Arg(0))
	}
	return opts, nil
}

// applyOptions layers flag overrides over the environment configuration.
func applyOptions(cfg config.Config, opts cliOptions) (config.Config, error) {
	if v := strings.TrimSpace(opts.Model); v != "" {
		cfg.ChatModel = v
	}
	if v := strings.TrimSpace(opts.Voice); v != "" {
		cfg.TTSVoice = v
	}
	if v := strings.TrimSpace(opts.Language); v != "" {
		cfg.Language = v
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

type palette struct {
	prompt    func(a ...any) string
	user      func(a ...any) string
	assistant func(a ...any) string
	info      func(a ...any) string
	warn      func(a ...any) string
	err       func(a ...any) string
}

func newPalette(enabled bool) palette {
	mk := func(attrs ...color.Attribute) func(a ...any) string {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return palette{
		prompt:    mk(color.FgGreen, color.Bold),
		user:      mk(color.FgGreen),
		assistant: mk(color.FgCyan, color.Bold),
		info:      mk(color.Faint),
		warn:      mk(color.FgYellow),
		err:       mk(color.FgRed),
	}
}

type repl struct {
	comp   *companion.Companion
	opts   cliOptions
	out    io.Writer
	errOut io.Writer
	colors palette
}

const helpText = `commands:
  /talk [seconds]          record, transcribe and answer a spoken turn
  <text>                   send a text message
  /say <text>              speak text without changing the conversation
  /transcribe <file>       transcribe an audio file
  /record <seconds> <file> record the microphone to a WAV file
  /play <file>             play an audio file
  /save [file]             save the conversation (default conversation.json)
  /load <file>             replace the conversation with a saved one
  /clear                   forget the conversation
  /history                 print the conversation
  /exit                    quit`

func (r *repl) printErr(format string, args ...any) {
	fmt.Fprintln(r.errOut, r.colors.err(fmt.Sprintf(format, args...)))
}

func (r *repl) printInfo(format string, args ...any) {
	fmt.Fprintln(r.out, r.colors.info(fmt.Sprintf(format, args...)))
}

func (r *repl) printExchange(userText, assistantText string) {
	if userText != "" {
		fmt.Fprintf(r.out, "%s %s\n", r.colors.user("you:"), userText)
	}
	fmt.Fprintf(r.out, "%s %s\n", r.colors.assistant("companion:"), assistantText)
}

// handle runs one input line. It reports quit=true on /exit.
func (r *repl) handle(ctx context.Context, line string) (quit bool) {
	if !strings.HasPrefix(line, "/") {
		reply, err := r.comp.SendText(ctx, line, r.opts.SystemPrompt)
		if err != nil {
			r.printErr("send error: %v", err)
			return false
		}
		r.printExchange("", reply)
		if !r.opts.NoPlay {
			if _, err := r.comp.Speak(ctx, reply); err != nil {
				fmt.Fprintln(r.errOut, r.colors.warn(fmt.Sprintf("speech unavailable: %v", err)))
			}
		}
		return false
	}

	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch cmd {
	case "/exit", "/quit":
		fmt.Fprintln(r.out, "bye")
		return true
	case "/help":
		fmt.Fprintln(r.out, helpText)
	case "/talk":
		r.talk(ctx, rest)
	case "/say":
		if rest == "" {
			r.printErr("usage: /say <text>")
			return false
		}
		if _, err := r.comp.Speak(ctx, rest); err != nil {
			r.printErr("say error: %v", err)
		}
	case "/transcribe":
		if rest == "" {
			r.printErr("usage: /transcribe <file>")
			return false
		}
		text, err := r.comp.TranscribeFile(ctx, rest)
		if err != nil {
			r.printErr("transcribe error: %v", err)
			return false
		}
		fmt.Fprintln(r.out, text)
	case "/record":
		secs, path, ok := strings.Cut(rest, " ")
		d, err := parseSeconds(secs)
		if !ok || err != nil || strings.TrimSpace(path) == "" {
			r.printErr("usage: /record <seconds> <file>")
			return false
		}
		path = strings.TrimSpace(path)
		r.printInfo("recording %s...", d)
		if err := r.comp.Record(ctx, d, path); err != nil {
			r.printErr("record error: %v", err)
			return false
		}
		r.printInfo("saved %s", path)
	case "/play":
		if rest == "" {
			r.printErr("usage: /play <file>")
			return false
		}
		if err := r.comp.Play(ctx, rest); err != nil {
			r.printErr("play error: %v", err)
		}
	case "/save":
		path := rest
		if path == "" {
			path = defaultConversationFile
		}
		if err := r.comp.Save(path); err != nil {
			r.printErr("save error: %v", err)
			return false
		}
		r.printInfo("conversation saved to %s", path)
	case "/load":
		if rest == "" {
			r.printErr("usage: /load <file>")
			return false
		}
		if err := r.comp.Load(rest); err != nil {
			r.printErr("load error: %v", err)
			return false
		}
		r.printInfo("loaded %d messages", len(r.comp.History()))
	case "/clear":
		r.comp.Clear()
		r.printInfo("conversation cleared")
	case "/history":
		history := r.comp.History()
		if len(history) == 0 {
			r.printInfo("(empty)")
		}
		for _, m := range history {
			label := r.colors.user(string(m.Role) + ":")
			if m.Role == types.RoleAssistant {
				label = r.colors.assistant(string(m.Role) + ":")
			}
			fmt.Fprintf(r.out, "%s %s\n", label, m.Content)
		}
	default:
		r.printErr("unknown command %s (try /help)", cmd)
	}
	return false
}

func (r *repl) talk(ctx context.Context, arg string) {
	d := companion.DefaultTurnDuration
	if arg != "" {
		parsed, err := parseSeconds(arg)
		if err != nil {
			r.printErr("usage: /talk [seconds]")
			return
		}
		d = parsed
	}
	turn := companion.TurnOptions{Duration: d, Play: !r.opts.NoPlay}
	r.printInfo("listening for %s...", d)

	var (
		res companion.TurnResult
		err error
	)
	if r.opts.Async {
		outcome := <-r.comp.TurnAsync(ctx, turn)
		res, err = outcome.Result, outcome.Err
	} else {
		res, err = r.comp.Turn(ctx, turn)
	}
	if err != nil {
		r.printErr("turn error: %v", err)
		return
	}
	r.printExchange(res.UserText, res.AssistantText)
	if res.SpeechErr != nil {
		fmt.Fprintln(r.errOut, r.colors.warn(fmt.Sprintf("speech unavailable: %v", res.SpeechErr)))
	}
}

func parseSeconds(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil || secs <= 0 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func runREPL(ctx context.Context, comp *companion.Companion, opts cliOptions, colors palette, in io.Reader, out, errOut io.Writer) error {
	if comp == nil {
		return errors.New("companion must not be nil")
	}
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}

	r := &repl{comp: comp, opts: opts, out: out, errOut: errOut, colors: colors}
	fmt.Fprintln(out, colors.prompt("voice companion ready"))
	fmt.Fprintln(out, "Type a message, /talk to speak, /help for commands, /exit to quit.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, colors.prompt("> "))
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			fmt.Fprintln(out)
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if r.handle(ctx, line) {
			return nil
		}
	}
}

func buildCompanion(ctx context.Context, cfg config.Config, opts cliOptions, logger *slog.Logger) (*companion.Companion, func() error, error) {
	stack, err := upstream.Factory{HTTPClient: upstream.NewHTTPClient()}.Build(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	comp, err := companion.New(companion.Config{
		Transcriber:  stack.Pipeline,
		Replier:      stack.Generator,
		Synthesizer:  stack.Pipeline,
		Capturer:     audio.NewRecorder(),
		Speaker:      audio.NewPlayer(),
		Language:     cfg.Language,
		Voice:        cfg.TTSVoice,
		SystemPrompt: opts.SystemPrompt,
		Logger:       logger,
	})
	if err != nil {
		_ = stack.Close()
		return nil, nil, err
	}
	return comp, stack.Close, nil
}

func run(ctx context.Context, args []string) error {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	opts, err := parseCLIOptions(args)
	if err != nil {
		return err
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	if cfg, err = applyOptions(cfg, opts); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	comp, closeStack, err := buildCompanion(ctx, cfg, opts, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStack(); err != nil {
			logger.Warn("close providers", "error", err)
		}
	}()

	colors := newPalette(term.IsTerminal(int(os.Stdout.Fd())))
	return runREPL(ctx, comp, opts, colors, os.Stdin, os.Stdout, os.Stderr)
}

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "companion: %v\n", err)
		os.Exit(1)
	}
}
