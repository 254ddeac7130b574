// linkctl выгружает и загружает ссылки в формате JSON lines.
//
//	linkctl export [-file links.jsonl]
//	linkctl import -file links.jsonl
//
// Хранилище выбирается теми же переменными окружения, что и у сервера.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"shortlink/internal/config"
	"shortlink/internal/deps"
	"shortlink/internal/logger"
	"shortlink/internal/repository/filestore"

	"github.com/rs/zerolog"
)

const usage = "usage: linkctl export [-file path] | import -file path"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	cmd, rest := args[0], args[1:]
	fset := flag.NewFlagSet("linkctl "+cmd, flag.ContinueOnError)
	file := fset.String("file", "", "JSON lines file, stdin/stdout when empty")
	if err := fset.Parse(rest); err != nil {
		return err
	}

	cfg, err := config.Load("linkctl", nil)
	if err != nil {
		return err
	}
	log := logger.New(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := deps.OpenStore(ctx, log, *cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	switch cmd {
	case "export":
		return export(ctx, log, store, *file, stdout)
	case "import":
		return load(ctx, log, store, *file, stdin)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func export(ctx context.Context, log *zerolog.Logger, store deps.Store, path string, stdout io.Writer) error {
	w := stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	n, err := filestore.Export(ctx, w, store)
	if err != nil {
		return err
	}
	log.Info().Int("count", n).Msg("Links exported")
	return nil
}

func load(ctx context.Context, log *zerolog.Logger, store deps.Store, path string, stdin io.Reader) error {
	r := stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	res, err := filestore.Import(ctx, *log, r, store)
	if err != nil {
		return err
	}
	log.Info().Int("loaded", res.Loaded).Int("skipped", res.Skipped).Msg("Links imported")
	return nil
}
