package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pluqqy/pdfdeck/cmd/commands"
	"github.com/pluqqy/pdfdeck/internal/cli"
	"github.com/pluqqy/pdfdeck/pkg/files"
	"github.com/pluqqy/pdfdeck/pkg/tui"
)

// Version is set during build with -ldflags
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "pdfdeck [file.pdf...]",
	Short: "Terminal client for editing PDF pages on a document service",
	Long: `pdfdeck opens PDF documents in tabs and lets you reorder, delete, insert
and merge pages. The page editing itself happens on a remote document service;
pdfdeck keeps the view of every open document in step with it.

Run without a subcommand to start the interactive TUI. Files given as
arguments are opened in tabs on start.`,
	Args: cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cc := cli.NewCommandContext()
		if err := cc.ValidateProject(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: No .pdfdeck directory found in the current directory.\n")
			fmt.Fprintf(os.Stderr, "Please run 'pdfdeck init' first to initialize a new project.\n")
			os.Exit(1)
		}

		if err := runTUI(cc, args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

var (
	openLog    = files.OpenLog
	runProgram = func(m tea.Model) error {
		_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
		return err
	}
)

// runTUI runs the interactive app until it quits. The log file is closed
// on every return path.
func runTUI(cc *cli.CommandContext, args []string) error {
	settings := cc.LoadSettingsWithDefault()
	logger, logFile, err := openLog(settings.Log)
	if err != nil {
		return fmt.Errorf("failed to open the log file: %w", err)
	}
	defer logFile.Close()
	logger.Info("Starting.", "version", version, "server", cc.ServerURL())

	app := tui.NewApp(tui.Config{
		Settings: settings,
		Client:   cc.Client(),
		Logger:   logger,
		Files:    args,
	})
	if err := runProgram(app); err != nil {
		logger.Error("Terminal UI failed.", "error", err)
		return fmt.Errorf("failed to start the terminal user interface: %w\n"+
			"This could be due to terminal compatibility issues. Try running in a different terminal", err)
	}
	logger.Info("Stopped.")
	return nil
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new pdfdeck project",
	Long:  `Creates the .pdfdeck folder with default settings in the current directory`,
	Run: func(cmd *cobra.Command, args []string) {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to determine current directory: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Initializing pdfdeck project in %s...\n", cwd)

		if err := files.InitProjectStructure(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to initialize project structure: %v\n", err)
			fmt.Fprintf(os.Stderr, "Make sure you have write permissions in the current directory.\n")
			os.Exit(1)
		}

		cli.PrintSuccess("Created %s", files.SettingsPath())
		cli.PrintInfo("Set server.base_url there, or use --server / %s", cli.ServerEnv)
		fmt.Println("\nRun 'pdfdeck' to start the interactive TUI.")
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of pdfdeck",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pdfdeck version %s\n", version)
	},
}

func init() {
	commands.Register(rootCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Command execution failed: %v\n", err)
		os.Exit(1)
	}
}
