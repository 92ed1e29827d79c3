package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"

	"github.com/traingen/go-traingen/internal/app"
	"github.com/traingen/go-traingen/internal/config"
	"github.com/traingen/go-traingen/internal/infra"
	"github.com/traingen/go-traingen/internal/profiles"
	"github.com/traingen/go-traingen/internal/prompt"
	"github.com/traingen/go-traingen/pkg/client"
	pkgLogger "github.com/traingen/go-traingen/pkg/logger"
)

// knowledgePathsFlag implements flag.Value for repeatable knowledge source flags
type knowledgePathsFlag []string

func (k *knowledgePathsFlag) String() string {
	return strings.Join(*k, ",")
}

func (k *knowledgePathsFlag) Set(value string) error {
	*k = append(*k, value)
	return nil
}

// resolveStringFlag returns the non-empty value, preferring short flag over long flag
func resolveStringFlag(shortVal, longVal string) string {
	if shortVal != "" {
		return shortVal
	}
	return longVal
}

func printUsage() {
	fmt.Println("traingen - knowledge-grounded training dataset generator")
	fmt.Println()
	fmt.Println("Built-in Profiles (case-insensitive):")
	fmt.Println("  medical_compliance      Healthcare privacy and compliance scenarios")
	fmt.Println("  legal_compliance        Contract and regulatory review scenarios")
	fmt.Println("  financial_compliance    Financial reporting and audit scenarios")
	fmt.Println("  safety_compliance       Workplace safety and incident scenarios")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  traingen -p medical_compliance -k ./policies           # Generate with a built-in profile")
	fmt.Println("  traingen -c run.json                                   # Generate from a config file")
	fmt.Println("  traingen -p legal_compliance -k ./contracts -n 50      # Request 50 scenarios")
	fmt.Println("  traingen -b anthropic -p safety_compliance -k ./docs   # Use the Anthropic backend")
	fmt.Println("  traingen -c run.json --raw                             # Also write raw scenario JSON")
	fmt.Println("  traingen -p medical_compliance -k ./policies \\")
	fmt.Println("           --save-config run.json                        # Save the resolved config for reuse")
	fmt.Println("  traingen -c run.json -y                                # Skip the confirmation prompt")
	fmt.Println()
}

func main() {
	ctx := context.Background()

	var backend = flag.String("b", "", "LLM backend (anthropic, openai, gemini, or ollama)")
	var backendLong = flag.String("backend", "", "LLM backend (anthropic, openai, gemini, or ollama)")
	var model = flag.String("m", "", "Model name to use")
	var modelLong = flag.String("model", "", "Model name to use")
	var configPath = flag.String("c", "", "Generation config JSON file")
	var configPathLong = flag.String("config", "", "Generation config JSON file")
	var profile = flag.String("p", "", "Built-in domain profile")
	var profileLong = flag.String("profile", "", "Built-in domain profile")
	var numScenarios = flag.Int("n", 0, "Number of scenarios to generate")
	var outputDir = flag.String("o", ".", "Output directory for dataset artifacts")
	var settingsPath = flag.String("settings", "", "Path to settings file")
	var saveConfig = flag.String("save-config", "", "Write the resolved generation config to this file and continue")
	var seed = flag.Int64("seed", 0, "Seed for reproducible knowledge slicing")
	var includeRaw = flag.Bool("raw", false, "Also write the raw scenario JSON artifact")
	var assumeYes = flag.Bool("y", false, "Skip the API call budget confirmation")
	var verbose = flag.Bool("v", false, "Enable verbose logging (debug level)")
	var verboseLong = flag.Bool("verbose", false, "Enable verbose logging (debug level)")
	var help = flag.Bool("h", false, "Show this help message")
	var helpLong = flag.Bool("help", false, "Show this help message")

	var knowledgePaths knowledgePathsFlag
	flag.Var(&knowledgePaths, "k", "Knowledge source file or directory (can be used multiple times)")
	flag.Var(&knowledgePaths, "knowledge", "Knowledge source file or directory (can be used multiple times)")

	flag.Usage = func() {
		printUsage()
		fmt.Println("Flags:")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *help || *helpLong {
		flag.Usage()
		return
	}

	resolvedBackend := resolveStringFlag(*backend, *backendLong)
	resolvedModel := resolveStringFlag(*model, *modelLong)
	resolvedConfig := resolveStringFlag(*configPath, *configPathLong)
	resolvedProfile := resolveStringFlag(*profile, *profileLong)
	resolvedVerbose := *verbose || *verboseLong

	settings, err := config.LoadSettings(*settingsPath)
	if err != nil {
		fmt.Printf("⚠️  Warning: failed to load settings: %v\n", err)
		settings = config.GetDefaultSettings()
	}

	logLevel := settings.Run.LogLevel
	if resolvedVerbose {
		logLevel = "debug"
	}
	pkgLogger.SetGlobalLogLevel(pkgLogger.LogLevel(logLevel))
	logger := pkgLogger.NewLogger(pkgLogger.LogLevel(logLevel))

	if resolvedBackend != "" {
		settings.LLM.Backend = resolvedBackend
	}
	if resolvedModel != "" {
		settings.LLM.Model = resolvedModel
	}

	if err := config.ValidateSettings(settings); err != nil {
		logger.Error("Settings validation failed", "error", err)
		os.Exit(1)
	}

	cfg, userQuery, err := buildGenerationConfig(resolvedConfig, resolvedProfile, knowledgePaths, *numScenarios, *seed, *includeRaw)
	if err != nil {
		logger.Error("Invalid generation config", "error", err)
		os.Exit(1)
	}
	if cfg.ModelName == "" {
		cfg.ModelName = settings.LLM.Model
	}

	if *saveConfig != "" {
		if err := config.SaveGenerationConfig(cfg, *saveConfig); err != nil {
			logger.Error("Failed to save generation config", "path", *saveConfig, "error", err)
			os.Exit(1)
		}
		fmt.Printf("💾 Saved resolved config to %s\n", *saveConfig)
	}

	llmClient, err := client.NewLLMClient(ctx, settings.LLM.Backend, cfg.ModelName, settings.LLM.MaxTokens, cfg.Temperature)
	if err != nil {
		logger.Error("Failed to create LLM client", "backend", settings.LLM.Backend, "error", err)
		os.Exit(1)
	}

	source := infra.NewFileKnowledgeSource(cfg.ChunkSize, cfg.ChunkOverlap)
	chunks, err := source.Load(ctx, cfg.KnowledgeSources)
	if err != nil {
		logger.Error("Failed to load knowledge base", "error", err)
		os.Exit(1)
	}
	stats := infra.Analyze(chunks)
	fmt.Printf("📚 Knowledge base: %d files, %d chunks, %d words\n", stats.Files, stats.Chunks, stats.TotalWords)

	if !*assumeYes && isInteractive() {
		if !confirmBudget(cfg, llmClient.ModelID()) {
			fmt.Println("Aborted.")
			return
		}
	}

	runner, err := app.NewRunner(llmClient, prompt.NewTemplates(userQuery), cfg, chunks, stats)
	if err != nil {
		logger.Error("Failed to initialize run", "error", err)
		os.Exit(1)
	}

	// SIGINT stops new attempts and assembles what was accepted so far
	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := runner.Run(runCtx)
	if err != nil {
		logger.Error("Generation run failed", "error", err)
		os.Exit(1)
	}

	writer := infra.NewFileArtifactWriter(*outputDir, cfg.Style.OutputPrefix)
	rawScenarios := result.Raw
	if !cfg.Style.IncludeRawScenarios {
		rawScenarios = nil
	}

	// Artifacts are written even after cancellation, so use a fresh context
	paths, err := writer.WriteDataset(context.Background(), result.Records, rawScenarios, result.Manifest)
	if err != nil {
		logger.Error("Failed to write dataset artifacts", "error", err)
		os.Exit(1)
	}

	if result.Warning != nil {
		fmt.Printf("⚠️  Partial dataset: %v\n", result.Warning)
	}
	fmt.Printf("✅ Wrote %d training records to %s\n", len(result.Records), paths.Training)
	if paths.Raw != "" {
		fmt.Printf("   Raw scenarios: %s\n", paths.Raw)
	}
	fmt.Printf("   Manifest: %s\n", paths.Manifest)
}

// buildGenerationConfig layers a config file, a built-in profile, and flag
// overrides into one run configuration. The second return value is the
// profile's user query override, empty when no profile sets one.
func buildGenerationConfig(configPath, profileName string, knowledge []string, num int, seed int64, includeRaw bool) (*config.GenerationConfig, string, error) {
	cfg := &config.GenerationConfig{}
	if configPath != "" {
		loaded, err := config.LoadGenerationConfig(configPath)
		if err != nil {
			return nil, "", err
		}
		cfg = loaded
	}

	userQuery := ""
	if profileName != "" {
		builtins, err := profiles.LoadBuiltinProfiles()
		if err != nil {
			return nil, "", err
		}
		selected, ok := builtins.Get(profileName)
		if !ok {
			return nil, "", fmt.Errorf("unknown profile %q (available: %s)", profileName, strings.Join(builtins.Names(), ", "))
		}
		selected.ApplyTo(cfg)
		userQuery = selected.UserQuery
	}

	if len(knowledge) > 0 {
		cfg.KnowledgeSources = knowledge
	}
	if num > 0 {
		cfg.NumScenarios = num
	}
	if seed != 0 {
		cfg.Seed = seed
	}
	if includeRaw {
		cfg.Style.IncludeRawScenarios = true
	}

	config.ApplyGenerationDefaults(cfg)

	if len(cfg.KnowledgeSources) == 0 {
		return nil, "", fmt.Errorf("no knowledge sources configured (use -k or knowledge_sources in the config file)")
	}
	return cfg, userQuery, nil
}

// confirmBudget asks the user to approve the worst-case number of model calls
func confirmBudget(cfg *config.GenerationConfig, modelID string) bool {
	confirm := promptui.Prompt{
		Label: fmt.Sprintf("Generate %d scenarios with up to %d calls to %s",
			cfg.NumScenarios, cfg.MaxAttempts(), modelID),
		IsConfirm: true,
	}
	if _, err := confirm.Run(); err != nil {
		return false
	}
	return true
}

// isInteractive reports whether stdin is a terminal
func isInteractive() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
