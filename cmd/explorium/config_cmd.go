package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/Sternrassler/explorium-cli/pkg/config"
	"gopkg.in/yaml.v3"
)

func (a *app) runConfig(ctx context.Context, args []string) error {
	commands := map[string]command{
		"init": {summary: "Write a config file holding the API key", run: a.configInit},
		"show": {summary: "Print the effective configuration", run: a.configShow},
		"set":  {summary: "Update one key: set <key> <value>", run: a.configSet},
	}

	if len(args) == 0 || isHelp(args[0]) {
		printGroupUsage(a.stderr, "config", commands)
		if len(args) == 0 {
			return errParseFlags
		}
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		printGroupUsage(a.stderr, "config", commands)
		return usagef("unknown config command: %s", args[0])
	}
	return cmd.run(ctx, args[1:])
}

func (a *app) configInit(_ context.Context, args []string) error {
	fs := a.newFlagSet("config init")
	apiKey := fs.String("api-key", "", "Explorium API key (required)")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if *apiKey == "" {
		return usagef("--api-key is required")
	}

	path, err := config.Init(a.global.configPath, *apiKey)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Configuration saved to: %s\n", path)
	return nil
}

func (a *app) configShow(_ context.Context, args []string) error {
	fs := a.newFlagSet("config show")
	if err := a.parse(fs, args); err != nil {
		return err
	}

	cfg, err := config.Load(a.global.configPath)
	if err != nil {
		return &usageError{msg: err.Error()}
	}
	shown := *cfg
	shown.APIKey = cfg.MaskedAPIKey()
	shown.Cache.RedisPassword = ""

	data, err := yaml.Marshal(&shown)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	_, err = a.stdout.Write(data)
	return err
}

func (a *app) configSet(_ context.Context, args []string) error {
	fs := a.newFlagSet("config set")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errParseFlags
	}
	if fs.NArg() != 2 {
		return usagef("usage: explorium config set <key> <value> (keys: %v)", config.Keys())
	}

	key, value := fs.Arg(0), fs.Arg(1)
	path, err := config.Set(a.global.configPath, key, value)
	if err != nil {
		if errors.Is(err, config.ErrUnknownKey) {
			return usagef("%v (keys: %v)", err, config.Keys())
		}
		return err
	}
	fmt.Fprintf(a.stdout, "Set %s in %s\n", key, path)
	return nil
}
