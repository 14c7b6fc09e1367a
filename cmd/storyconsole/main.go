// Package main implements the storynest console entry point. It parses the
// command line, loads the environment and the profile, wires the stores and
// starts the Bubble Tea program.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"github.com/storynest/console/internal/app"
	"github.com/storynest/console/internal/auth"
	"github.com/storynest/console/internal/config"
	"github.com/storynest/console/internal/content"
	apperrors "github.com/storynest/console/internal/errors"
	"github.com/storynest/console/internal/health"
	"github.com/storynest/console/internal/i18n"
	"github.com/storynest/console/internal/interfaces"
	"github.com/storynest/console/internal/logging"
	"github.com/storynest/console/internal/protocol"
	"github.com/storynest/console/internal/speech"
	"github.com/storynest/console/internal/store"
	"github.com/storynest/console/internal/telemetry"
	"github.com/storynest/console/internal/ui/components"
)

// Application metadata
const (
	Version     = "1.0.0"
	ProgramName = "storynest console"
)

// bootstrapTimeout bounds the checks made before the first frame
const bootstrapTimeout = 5 * time.Second

// CommandLineArgs represents parsed command-line arguments
type CommandLineArgs struct {
	Profile       string
	APIURL        string
	Theme         string
	Language      string
	ShowHelp      bool
	ShowVersion   bool
	ListProfiles  bool
	DeleteProfile string
	RotateKey     bool
}

// Dependencies holds everything built before the program starts
type Dependencies struct {
	Env      *config.Environment
	Config   *config.Manager
	Profile  *interfaces.Profile
	Client   *protocol.Client
	Auth     *store.AuthStore
	Children *store.ChildStore
	Stories  *store.StoryStore
	Health   *health.Monitor
	Theme    *content.ThemeManager
	Sink     telemetry.Sink
	Logger   *logging.Logger
}

func main() {
	args := parseCommandLineArgs()
	if handleEarlyExitConditions(args) {
		return
	}
	if handled, err := runProfileCommand(args); handled {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		fmt.Fprintf(os.Stderr, "%s needs an interactive terminal\n", ProgramName)
		os.Exit(1)
	}

	env, err := config.LoadEnvironment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := initializeLogging(env)

	deps, err := initializeDependencies(args, env, logger)
	if err != nil {
		logger.Error("Failed to initialize application components", "error", err.Error())
		fmt.Fprintf(os.Stderr, "Error initializing application: %v\n", err)
		os.Exit(1)
	}
	defer deps.Client.Close()
	defer func() {
		if err := deps.Sink.Close(); err != nil {
			logger.Warn("Failed to flush telemetry", "error", err.Error())
		}
	}()

	if err := run(deps); err != nil {
		logger.Error("Application terminated with error", "error", err.Error())
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("Application shutdown completed successfully")
}

func parseCommandLineArgs() CommandLineArgs {
	var args CommandLineArgs

	flag.StringVar(&args.Profile, "profile", "", "Profile name from the configuration file")
	flag.StringVar(&args.APIURL, "api", "", "Backend API URL (e.g. http://localhost:8000/api/v1)")
	flag.StringVar(&args.Theme, "theme", "", "Color theme name")
	flag.StringVar(&args.Language, "lang", "", "Interface language before a reader is chosen (english or hebrew)")
	flag.BoolVar(&args.ShowHelp, "help", false, "Display usage information and exit")
	flag.BoolVar(&args.ShowVersion, "version", false, "Display version information and exit")
	flag.BoolVar(&args.ListProfiles, "list-profiles", false, "List the saved profiles and exit")
	flag.StringVar(&args.DeleteProfile, "delete-profile", "", "Delete a saved profile and exit")
	flag.BoolVar(&args.RotateKey, "rotate-key", false, "Replace the credential encryption key, re-encrypting saved sign-ins, and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", ProgramName, Version)
		fmt.Fprintf(os.Stderr, "An interactive terminal client for reading personalized stories\n")
		fmt.Fprintf(os.Stderr, "with your children.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                  # Use the default profile\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --api http://localhost:8000/api/v1 # Talk to a local backend\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --lang hebrew                    # Hebrew sign-in screens\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --delete-profile work            # Forget a saved profile\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment: STORY_ENV, STORY_API_URL, STORY_DEBUG, STORY_LOG_FILE,\n")
		fmt.Fprintf(os.Stderr, "STORY_TELEMETRY_FILE, STORY_SPEECH_CMD, STORY_REQUEST_TIMEOUT,\n")
		fmt.Fprintf(os.Stderr, "STORY_MAX_RETRIES, STORY_RETRY_BASE_DELAY, STORY_TOAST_DURATION\n")
	}

	flag.Parse()
	return args
}

// handleEarlyExitConditions processes flags that exit immediately
func handleEarlyExitConditions(args CommandLineArgs) bool {
	if args.ShowHelp {
		flag.Usage()
		return true
	}
	if args.ShowVersion {
		fmt.Printf("%s v%s\n", ProgramName, Version)
		return true
	}
	return false
}

// runProfileCommand handles the flags that maintain the configuration file
// instead of starting the console
func runProfileCommand(args CommandLineArgs) (bool, error) {
	if !args.ListProfiles && args.DeleteProfile == "" && !args.RotateKey {
		return false, nil
	}
	manager, err := config.NewManager()
	if err != nil {
		return true, err
	}

	switch {
	case args.ListProfiles:
		names, err := manager.ListProfiles()
		if err != nil {
			return true, err
		}
		for _, name := range names {
			fmt.Println(name)
		}
	case args.DeleteProfile != "":
		if err := manager.DeleteProfile(args.DeleteProfile); err != nil {
			return true, err
		}
		fmt.Printf("Deleted profile %s\n", args.DeleteProfile)
	case args.RotateKey:
		if err := manager.RotateKey(); err != nil {
			return true, err
		}
		fmt.Println("Credential encryption key rotated")
	}
	return true, nil
}

func initializeLogging(env *config.Environment) *logging.Logger {
	if err := logging.InitGlobalLogger(env.LoggingConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	logger := logging.GetGlobalLogger()
	logger.Info("storynest console starting",
		"version", Version,
		"env", env.Env)
	return logger
}

// initializeDependencies builds the stores against the selected profile
func initializeDependencies(args CommandLineArgs, env *config.Environment, logger *logging.Logger) (*Dependencies, error) {
	deps := &Dependencies{Env: env, Logger: logger}

	configManager, err := config.NewManager()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize config manager: %w", err)
	}
	deps.Config = configManager

	profileName := args.Profile
	if profileName == "" {
		profileName = config.DefaultProfileName
	}
	profile, err := configManager.LoadProfile(profileName)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile '%s': %w", profileName, err)
	}
	env.Apply(profile)
	if args.APIURL != "" {
		if err := config.ValidateAPIURL(args.APIURL); err != nil {
			return nil, fmt.Errorf("--api: %w", err)
		}
		profile.APIURL = args.APIURL
	}
	if args.Theme != "" {
		profile.Theme = args.Theme
	}
	deps.Profile = profile
	logger.LogConfigLoad(configManager.GetConfigPath(), profile.Name)

	deps.Theme = content.NewThemeManager()
	if theme, err := configManager.LoadTheme(profile.Theme); err == nil {
		deps.Theme.SetTheme(theme)
	} else {
		logger.Warn("Unknown theme, using defaults", "theme", profile.Theme)
	}

	deps.Sink, err = initializeTelemetry(env)
	if err != nil {
		return nil, err
	}
	apperrors.SetDefaultReporter(&apperrors.Reporter{
		Development: env.IsDevelopment(),
		Sink:        deps.Sink,
		UserAgent:   apperrors.DefaultUserAgent(Version),
	})

	tokens, err := auth.NewManager(profile, configManager)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize auth manager: %w", err)
	}
	client, err := protocol.NewClient(profile.APIURL, tokens,
		protocol.WithTimeout(env.RequestTimeout),
		protocol.WithUserAgent(apperrors.DefaultUserAgent(Version)))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize backend client: %w", err)
	}
	deps.Client = client

	lang := i18n.Parse(profile.Language)
	if args.Language != "" {
		lang = i18n.Parse(args.Language)
	}
	deps.Auth = store.NewAuthStore(client, tokens)
	deps.Children = store.NewChildStore(client, lang)
	deps.Stories = store.NewStoryStore(client)
	deps.Health = health.NewMonitor(client, profile.APIURL)

	speech.Default().SetEngine(speech.DetectEngine(profile.Speech.Command))

	logger.Info("Application components initialized successfully", "api", profile.APIURL)
	return deps, nil
}

// initializeTelemetry queues diagnostic records to a zap file outside
// development builds
func initializeTelemetry(env *config.Environment) (telemetry.Sink, error) {
	if env.IsDevelopment() {
		return telemetry.NopSink{}, nil
	}
	path := env.TelemetryFile
	if path == "" {
		path = filepath.Join(filepath.Dir(logging.DefaultLogPath()), "telemetry.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}
	sink, err := telemetry.NewFileSink(telemetry.Config{Level: "info", Encoding: "json", OutputPath: path})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	return sink, nil
}

// bootstrap probes the backend and, with a stored session, loads the
// children before the first frame. Failures are left for the screens to
// report.
func bootstrap(deps *Dependencies) {
	ctx, cancel := context.WithTimeout(context.Background(), bootstrapTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		status := deps.Health.Check(ctx)
		deps.Logger.Debug("Initial health check", "status", status.Status)
		return nil
	})
	if deps.Auth.LoggedIn() {
		g.Go(func() error {
			if _, err := deps.Children.Load(ctx); err != nil {
				deps.Logger.Warn("Failed to preload children", "error", err.Error())
			}
			return nil
		})
	}
	_ = g.Wait()
}

func run(deps *Dependencies) error {
	bootstrap(deps)

	controller := app.NewController(app.Dependencies{
		Auth:     deps.Auth,
		Children: deps.Children,
		Stories:  deps.Stories,
		Health:   deps.Health,
		Speech:   speech.Default(),
		Theme:    deps.Theme,
		Profile:  deps.Profile,
		Policy: components.RetryPolicy{
			Timeout:    deps.Env.RequestTimeout,
			MaxRetries: deps.Env.MaxRetries,
			BaseDelay:  deps.Env.RetryBaseDelay,
		},
		ToastDuration: deps.Env.ToastDuration,
	})

	deps.Logger.Debug("Starting TUI application")
	program := tea.NewProgram(controller, tea.WithAltScreen())
	_, err := program.Run()
	speech.Default().Stop()
	return err
}
