// Package main is the docqa CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/docqa/internal/cli"
	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/extract"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/server"
	"github.com/hyperjump/docqa/internal/watcher"
	"github.com/hyperjump/docqa/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/docqa/config.yaml"
	defaultServerURL  = "http://localhost:8000"
)

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory wins if present, and a missing default file yields the built-in defaults.
// Returns the config and the path that was loaded ("" for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		if path == defaultConfigPath && errors.Is(err, fs.ErrNotExist) {
			cfg = &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, "", nil
		}
		return nil, "", err
	}
	return cfg, path, nil
}

// loadEnv reads .env from the working directory when present.
func loadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func main() {
	if err := loadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		os.Exit(1)
	}
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	var err error
	command := os.Args[1]
	switch command {
	case "server":
		err = runServer()
	case "ask":
		err = runAsk()
	case "upload":
		err = runUpload()
	case "files":
		err = runFiles()
	case "delete":
		err = runDelete()
	case "inbox":
		err = runInbox()
	case "version", "--version", "-v":
		fmt.Printf("docqa version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// errUsage reports invalid arguments after usage has been printed.
var errUsage = errors.New("usage")

func runServer() error {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (pipeline stages, inbox events, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize components", zap.Error(err))
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	defer components.Close()

	inbox := watcher.NewInbox(cfg.Inbox.Directories, cfg.Inbox.RecursiveOrDefault(), components.Service, logger)
	if err := inbox.Start(ctx); err != nil {
		logger.Error("Failed to start inbox", zap.Error(err))
		return fmt.Errorf("failed to start inbox: %w", err)
	}
	go func() {
		select {
		case <-inbox.Ready():
			logger.Info("inbox caught up", zap.Strings("directories", inbox.Directories()))
		case <-ctx.Done():
		}
	}()

	srv := server.NewServer(components.Service, cfg, logger, inbox, resolvedConfigPath)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	var serveErr error
	select {
	case serveErr = <-errCh:
		logger.Error("Server failed", zap.Error(serveErr))
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	inbox.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
	return serveErr
}

// pipelineFlags are the per-question overrides shared by ask modes.
type pipelineFlags struct {
	mode          *string
	k             *int
	segmentation  *string
	vectorization *string
}

func (p pipelineFlags) apply(cfg *config.Config) {
	if *p.mode != "" {
		cfg.Pipeline.Synthesis = *p.mode
	}
	if *p.k > 0 {
		cfg.Pipeline.K = *p.k
	}
	if *p.segmentation != "" {
		cfg.Pipeline.Segmentation = *p.segmentation
	}
	if *p.vectorization != "" {
		cfg.Pipeline.Vectorization = *p.vectorization
	}
}

func printAskUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: docqa ask (--file path | --id id) [flags] <question>\n\n")
	fmt.Fprintf(fs.Output(), "The question is all remaining arguments joined by spaces.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  docqa ask --file manual.pdf how do I reset the device
  docqa ask --id 3f2a... --mode generative "what are the warranty terms?"
  docqa ask --id 3f2a... --server "" what changed   # direct registry access
`)
}

func runAsk() error {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL for --id (empty = direct registry access)")
	file := fs.String("file", "", "answer from a local PDF or text file without uploading it")
	id := fs.String("id", "", "answer from an uploaded document")
	outputFormat := fs.String("output", "text", "output format: text or json")
	flags := pipelineFlags{
		mode:          fs.String("mode", "", "synthesis mode: extractive or generative (default from config)"),
		k:             fs.Int("k", 0, "number of units to retrieve (default from config)"),
		segmentation:  fs.String("segmentation", "", "segmentation mode for --file: dense or sparse"),
		vectorization: fs.String("vectorization", "", "vectorization strategy for --file: dense or sparse"),
	}
	fs.Usage = func() { printAskUsage(fs) }
	_ = fs.Parse(cli.ReorderArgs(os.Args[2:]))

	question := cli.JoinArgs(fs.Args())
	if question == "" || (*file == "") == (*id == "") {
		printAskUsage(fs)
		return errUsage
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		return err
	}

	if *id != "" && *serverURL != "" {
		answer, err := askViaHTTP(*serverURL, askPayload{Question: question, FileID: *id, Mode: *flags.mode, K: *flags.k})
		if err != nil {
			return fmt.Errorf("ask failed: %w", err)
		}
		if err := cli.WriteAnswer(os.Stdout, answer, format); err != nil {
			return fmt.Errorf("output failed: %w", err)
		}
		return nil
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	flags.apply(cfg)
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()
	ctx := context.Background()

	var answer *models.Answer
	if *file != "" {
		if err := cfg.Validate(); err != nil {
			return err
		}
		components, err := initializePipeline(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize: %w", err)
		}
		defer components.Close()
		text, err := extract.NewExtractor().Extract(*file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", *file, err)
		}
		answer, err = components.Pipeline.Answer(ctx, text, question, components.PipelineConfig)
		if err != nil {
			return fmt.Errorf("ask failed: %w", err)
		}
	} else {
		components, err := initializeComponents(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize: %w", err)
		}
		defer components.Close()
		answer, err = components.Service.Ask(ctx, *id, question)
		if err != nil {
			return fmt.Errorf("ask failed: %w", err)
		}
	}
	if err := cli.WriteAnswer(os.Stdout, answer, format); err != nil {
		return fmt.Errorf("output failed: %w", err)
	}
	return nil
}

func runUpload() error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = direct registry access)")
	_ = fs.Parse(cli.ReorderArgs(os.Args[2:]))
	if fs.NArg() != 1 {
		fmt.Println("Usage: docqa upload [flags] <file.pdf>")
		return errUsage
	}
	path := fs.Arg(0)
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var docID string
	if *serverURL != "" {
		docID, err = uploadViaHTTP(*serverURL, filepath.Base(path), content)
	} else {
		err = withService(*configPath, func(c *Components) error {
			doc, err := c.Service.Upload(context.Background(), filepath.Base(path), content)
			if err == nil {
				docID = doc.ID
			}
			return err
		})
	}
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	fmt.Printf("PDF uploaded successfully: %s\n", docID)
	return nil
}

func runFiles() error {
	fs := flag.NewFlagSet("files", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = direct registry access)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		return err
	}

	var files []cli.FileEntry
	if *serverURL != "" {
		files, err = listViaHTTP(*serverURL)
	} else {
		err = withService(*configPath, func(c *Components) error {
			docs, err := c.Service.List(context.Background())
			files = cli.FileEntries(docs)
			return err
		})
	}
	if err != nil {
		return fmt.Errorf("listing failed: %w", err)
	}
	if err := cli.WriteFiles(os.Stdout, files, format); err != nil {
		return fmt.Errorf("output failed: %w", err)
	}
	return nil
}

func runDelete() error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = direct registry access)")
	_ = fs.Parse(cli.ReorderArgs(os.Args[2:]))
	if fs.NArg() != 1 {
		fmt.Println("Usage: docqa delete [flags] <id>")
		return errUsage
	}
	id := fs.Arg(0)

	var err error
	if *serverURL != "" {
		err = deleteViaHTTP(*serverURL, id)
	} else {
		err = withService(*configPath, func(c *Components) error {
			return c.Service.Delete(context.Background(), id)
		})
	}
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	fmt.Println("File deleted successfully")
	return nil
}

func runInbox() error {
	if len(os.Args) < 3 {
		fmt.Println("Usage: docqa inbox <add|remove|list> [flags] [path]")
		return errUsage
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("inbox", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(cli.ReorderArgs(os.Args[3:]))

	switch sub {
	case "list":
		dirs, err := inboxListViaHTTP(*serverURL)
		if err != nil {
			return fmt.Errorf("inbox list failed: %w", err)
		}
		if len(dirs) == 0 {
			fmt.Println("No inbox directories.")
		}
		for _, d := range dirs {
			fmt.Println(d)
		}
	case "add", "remove":
		if fs.NArg() != 1 {
			fmt.Printf("Usage: docqa inbox %s [--server url] <path>\n", sub)
			return errUsage
		}
		abs, err := filepath.Abs(fs.Arg(0))
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
		if sub == "add" {
			err = inboxAddViaHTTP(*serverURL, abs)
		} else {
			err = inboxRemoveViaHTTP(*serverURL, abs)
		}
		if err != nil {
			return fmt.Errorf("inbox %s failed: %w", sub, err)
		}
		fmt.Printf("Inbox directory %s: %s\n", map[string]string{"add": "added", "remove": "removed"}[sub], abs)
	default:
		fmt.Printf("Unknown inbox command: %s\n", sub)
		return errUsage
	}
	return nil
}

// withService runs fn against directly wired components.
func withService(configPath string, fn func(*Components) error) error {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()
	components, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()
	return fn(components)
}

func printUsage() {
	fmt.Println(`docqa - Ask questions about PDF documents

Usage:
  docqa server [flags]                 Start the HTTP server (and inbox watcher)
  docqa ask [flags] <question>         Answer a question about a document
  docqa upload [flags] <file.pdf>      Upload a PDF
  docqa files [flags]                  List uploaded files
  docqa delete [flags] <id>            Delete an uploaded file
  docqa inbox <add|remove|list>        Manage inbox directories on a running server
  docqa version                        Show version
  docqa help                           Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/docqa/config.yaml)
  --debug            Enable debug logging

Ask Flags:
  --file string           Answer from a local file without uploading it
  --id string             Answer from an uploaded document
  --server string         Server URL for --id (default: http://localhost:8000). Use --server "" for direct registry access.
  --mode string           extractive or generative
  --k int                 Number of units to retrieve
  --segmentation string   dense or sparse (local runs)
  --vectorization string  dense or sparse (local runs)
  --output string         text or json

Upload, Files and Delete Flags:
  --config string    Config file path (for direct registry access)
  --server string    Server URL (default: http://localhost:8000). Use --server "" for direct registry access.

Examples:
  docqa server
  docqa upload manual.pdf
  docqa files --output json
  docqa ask --id 3f2a... how do I reset the device
  docqa ask --file manual.pdf --vectorization dense --mode generative "what is covered?"
  docqa delete 3f2a...
  docqa inbox add ~/Documents/inbox`)
}
