package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"
	"golang.org/x/term"

	"gsh/internal/config"
	"gsh/internal/jobs"
	"gsh/internal/parse"
	"gsh/internal/run"
)

func main() {
	cmdStr := flag.String("c", "", "run a single command line and exit")
	cfgPath := flag.String("config", "", "rc file path")
	flag.Parse()

	cfg := loadConfig(*cfgPath)
	runner := &run.Runner{Jobs: jobs.New(cfg.MaxJobs)}

	if *cmdStr != "" {
		runLine(runner, *cmdStr, os.Stderr)
		if runner.ExitRequested() {
			os.Exit(runner.ExitCode())
		}
		os.Exit(runner.Status())
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		runInteractive(runner, cfg)
		os.Exit(runner.ExitCode())
	}
	runScript(runner, os.Stdin)
	if runner.ExitRequested() {
		os.Exit(runner.ExitCode())
	}
	os.Exit(runner.Status())
}

func loadConfig(path string) *config.Config {
	explicit := path != ""
	if path == "" {
		path = config.DefaultPath()
	}
	if path == "" {
		return config.Default()
	}
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return config.Default()
		}
		fmt.Fprintln(os.Stderr, err)
		return config.Default()
	}
	return cfg
}

func runLine(runner *run.Runner, line string, errw io.Writer) {
	cl, err := parse.Parse(line)
	if err != nil {
		fmt.Fprintln(errw, err)
		return
	}
	if err := runner.Execute(cl); err != nil {
		fmt.Fprintln(errw, err)
	}
}

func runScript(runner *run.Runner, rd io.Reader) {
	scanner := bufio.NewScanner(rd)
	for scanner.Scan() {
		runLine(runner, scanner.Text(), os.Stderr)
		if runner.ExitRequested() {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}

func runInteractive(runner *run.Runner, cfg *config.Config) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if cfg.History != "" {
		if f, err := os.Open(cfg.History); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
	}

	errColor := color.New(color.FgRed)
	for {
		input, err := line.Prompt(cfg.Prompt)
		if err == liner.ErrPromptAborted {
			fmt.Fprintln(os.Stderr)
			continue
		}
		if err == io.EOF {
			fmt.Fprintln(os.Stderr)
			break
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			break
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		line.AppendHistory(input)

		cl, err := parse.Parse(input)
		if err != nil {
			errColor.Fprintln(os.Stderr, err)
			continue
		}
		if err := runner.Execute(cl); err != nil {
			errColor.Fprintln(os.Stderr, err)
		}
		if runner.ExitRequested() {
			break
		}
	}

	if cfg.History != "" {
		if f, err := os.Create(cfg.History); err == nil {
			_, _ = line.WriteHistory(f)
			f.Close()
		}
	}
}
