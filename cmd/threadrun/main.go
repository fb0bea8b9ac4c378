// Command threadrun is a small CLI around the run orchestration: ask a
// hosted assistant a one-shot question or chat with it on a persistent
// thread, streaming replies to the terminal.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/hupe1980/threadrun"
	"github.com/hupe1980/threadrun/assistant"
	"github.com/hupe1980/threadrun/handler"
	"github.com/hupe1980/threadrun/run"
)

type cli struct {
	APIKey   string `help:"API key." env:"OPENAI_API_KEY"`
	BaseURL  string `help:"API base URL override." env:"OPENAI_BASE_URL"`
	LogLevel string `help:"Log level (debug, info, warn, error)." enum:"debug,info,warn,error" default:"warn"`

	Ask  askCmd  `cmd:"" help:"Ask the assistant a single question on an ephemeral thread."`
	Chat chatCmd `cmd:"" help:"Chat with the assistant on a persistent thread."`
}

type askCmd struct {
	AssistantFile string `help:"YAML assistant definition." type:"existingfile" short:"f"`
	AssistantID   string `help:"Existing assistant ID to use instead of a definition file."`
	Model         string `help:"Model for an ad-hoc assistant." default:"gpt-4o-mini"`
	Question      string `arg:"" help:"The question to ask."`
}

type chatCmd struct {
	AssistantFile string `help:"YAML assistant definition." type:"existingfile" short:"f"`
	AssistantID   string `help:"Existing assistant ID to use instead of a definition file."`
	Model         string `help:"Model for an ad-hoc assistant." default:"gpt-4o-mini"`
	ThreadID      string `help:"Resume an existing thread instead of creating one."`
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var c cli
	kctx := kong.Parse(&c,
		kong.Name("threadrun"),
		kong.Description("Run hosted assistants against conversation threads."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	tr := threadrun.New(func(o *threadrun.Options) {
		o.APIKey = c.APIKey
		o.BaseURL = c.BaseURL
		o.Logger = newLogger(c.LogLevel)
	})

	kctx.FatalIfErrorf(kctx.Run(tr))
}

func (a *askCmd) Run(ctx context.Context, tr *threadrun.ThreadRun) error {
	asst, err := resolveAssistant(ctx, tr, a.AssistantFile, a.AssistantID, a.Model)
	if err != nil {
		return err
	}

	reply, err := tr.Say(ctx, asst, a.Question)
	if err != nil {
		return err
	}
	fmt.Println(reply)

	return nil
}

func (cc *chatCmd) Run(ctx context.Context, tr *threadrun.ThreadRun) error {
	asst, err := resolveAssistant(ctx, tr, cc.AssistantFile, cc.AssistantID, cc.Model)
	if err != nil {
		return err
	}

	th := tr.NewThread()
	if cc.ThreadID != "" {
		th = tr.UseThread(cc.ThreadID)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			break
		}

		if _, err := th.AddMessage(ctx, line); err != nil {
			return err
		}

		r, err := th.Run(ctx, asst, func(o *run.Options) {
			o.Handler = func() handler.Handler { return handler.NewPrinter(os.Stdout) }
		})
		if err != nil {
			return err
		}
		if err := r.Execute(ctx); err != nil {
			return err
		}
	}

	return scanner.Err()
}

// resolveAssistant builds the assistant from, in priority order, an existing
// remote ID, a YAML definition file, or an ad-hoc model name.
func resolveAssistant(ctx context.Context, tr *threadrun.ThreadRun, file, id, model string) (*assistant.Assistant, error) {
	if id != "" {
		return assistant.Load(ctx, tr.API(), id)
	}
	if file != "" {
		return assistant.FromFile(file)
	}
	return assistant.New(model), nil
}
