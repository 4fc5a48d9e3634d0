package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/psantana5/exectime/internal/config"
	"github.com/psantana5/exectime/pkg/logging"
)

var (
	cfgFile  string
	logLevel string

	cfg    *config.Config
	logger *logging.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "exectime",
	Short: "Time operations and report their durations",
	Long: `exectime measures how long commands and requests take and reports every
measurement to the console, logs, Prometheus, traces, a message queue or a
history database, as configured.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExitCodeError asks main to exit with Code without printing anything.
type ExitCodeError struct {
	Code int
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.exectime/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig reads the config file and EXECTIME_* environment variables.
func initConfig() {
	c, err := config.Load(viper.GetViper(), cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg = c

	if c.Log.File != "" {
		l, err := logging.NewFileLogger(c.Log.File, logging.ParseLevel(c.Log.Level), c.Log.Format == "json")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
			os.Exit(1)
		}
		logger = l
		return
	}
	logger = logging.NewLogger(logging.ParseLevel(c.Log.Level), c.Log.Format == "json")
	// keep stdout for the command and the console sink
	logger.SetOutput(os.Stderr)
}
