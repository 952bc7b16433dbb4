// Command formdump parses a captured multipart/form-data body the way a
// PUT/PATCH/DELETE handler would and prints the resulting form and file
// trees.
//
//	formdump -content-type 'multipart/form-data; boundary=XyZ' body.txt
//	curl ... --trace-ascii - | formdump -content-type "$CT" -format yaml -keep
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/scott-cotton/cli"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/restform/pkg/config"
	"github.com/dmitrymomot/restform/pkg/fieldtree"
	"github.com/dmitrymomot/restform/pkg/formdata"
	"github.com/dmitrymomot/restform/pkg/logger"
)

func main() {
	cli.MainContext(context.Background(), MainCommand())
}

type Config struct {
	ContentType string `cli:"name=content-type desc='Content-Type header of the captured request'"`
	Method      string `cli:"name=method desc='request method' default=PUT"`
	Format      string `cli:"name=format desc='output format, json or yaml' default=json"`
	EnvFile     string `cli:"name=env desc='.env file loaded before reading FORMDATA_* settings'"`
	LogEnv      string `cli:"name=log-env desc='logging environment, production or development; overrides FORMDATA_LOG_ENV'"`
	Keep        bool   `cli:"name=keep desc='leave temporary files in place and print their paths'"`
	Verbose     bool   `cli:"name=v desc='log parser diagnostics to stderr'"`
}

// envConfig holds the settings formdump reads next to formdata.Config.
type envConfig struct {
	LogEnv string `env:"FORMDATA_LOG_ENV" envDefault:"development"`
}

func MainCommand() *cli.Command {
	cfg := &Config{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}

	return cli.NewCommand("formdump").
		WithSynopsis("formdump -content-type <header> [opts] [file]").
		WithDescription("Parse a captured multipart/form-data body and print its form and files.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return run(cfg, cc, args)
		})
}

func run(cfg *Config, cc *cli.Context, args []string) error {
	if cfg.ContentType == "" {
		return fmt.Errorf("%w: -content-type is required", cli.ErrUsage)
	}
	if len(args) > 1 {
		return fmt.Errorf("%w: at most one input file, got %v", cli.ErrUsage, args)
	}

	var in io.Reader = cc.In
	input := "stdin"
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("could not open %q: %w", args[0], err)
		}
		defer f.Close()
		in, input = f, args[0]
	}

	if cfg.EnvFile != "" {
		if err := config.LoadEnv(cfg.EnvFile); err != nil {
			return err
		}
	}
	var pcfg formdata.Config
	if err := config.Load(&pcfg); err != nil {
		return err
	}
	var ecfg envConfig
	if err := config.Load(&ecfg); err != nil {
		return err
	}
	log := newLogger(cfg, ecfg, input, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p, err := formdata.NewFromConfig(ctx, pcfg, formdata.WithLogger(log))
	if err != nil {
		return err
	}
	return dump(ctx, p, cfg, in, cc.Out)
}

// newLogger logs to w in the format of the configured environment. Only
// warnings are shown unless -v is set.
func newLogger(cfg *Config, ecfg envConfig, input string, w io.Writer) *slog.Logger {
	env := ecfg.LogEnv
	if cfg.LogEnv != "" {
		env = cfg.LogEnv
	}
	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	return logger.New(
		logger.WithEnvironment(env, "formdump"),
		logger.WithOutput(w),
		logger.WithLevel(level),
		logger.WithAttr(slog.String("input", input)),
	)
}

type output struct {
	Form  *fieldtree.Value  `json:"form" yaml:"form"`
	Files *fieldtree.Forest `json:"files" yaml:"files"`
	Kept  []string          `json:"kept,omitempty" yaml:"kept,omitempty"`
}

// dump parses in and writes the trees to w in the configured format.
func dump(ctx context.Context, p *formdata.Parser, cfg *Config, in io.Reader, w io.Writer) error {
	if cfg.Format != "json" && cfg.Format != "yaml" {
		return fmt.Errorf("%w: unknown format %q", cli.ErrUsage, cfg.Format)
	}

	sess, err := p.Parse(ctx, cfg.ContentType, cfg.Method, in)
	if err != nil {
		return err
	}
	if !sess.Multipart() {
		return fmt.Errorf("not a parsable multipart/form-data body for %s: %q", cfg.Method, cfg.ContentType)
	}

	out := output{Form: sess.Form(), Files: sess.Files()}
	if cfg.Keep {
		out.Kept = sess.Registry().Paths()
	} else {
		defer sess.Release(ctx)
	}

	if cfg.Format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("error encoding yaml: %w", err)
		}
		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("error encoding json: %w", err)
	}
	return nil
}
