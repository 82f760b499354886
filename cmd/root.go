package cmd

import (
	"oidcgate/internal/bootstrap"
	"oidcgate/internal/config"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "oidcgate",
	Short: "An OpenID Connect login bridge for your application.",
	Long:  `Oidcgate delegates end-user authentication to an external OIDC identity provider and issues your application's own session tokens.`,
	Run: func(cmd *cobra.Command, args []string) {
		log.Info().Msg("Parsing config")
		var cfg config.Config
		parseErr := viper.Unmarshal(&cfg)
		HandleError(parseErr, "Failed to parse config")

		log.Info().Msg("Validating config")
		validate := validator.New()
		validateErr := validate.Struct(cfg)
		HandleError(validateErr, "Invalid config")

		level, levelErr := zerolog.ParseLevel(cfg.LogLevel)
		HandleError(levelErr, "Invalid log level")
		log.Logger = log.Level(level)

		app := bootstrap.NewBootstrapApp(cfg)

		setupErr := app.Setup()
		HandleError(setupErr, "Failed to setup app")

		log.Info().Str("address", cfg.Address).Int("port", cfg.Port).Msg("Starting server")
		runErr := app.Start()
		HandleError(runErr, "Failed to start server")
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to execute command")
	}
}

func HandleError(err error, msg string) {
	if err != nil {
		log.Fatal().Err(err).Msg(msg)
	}
}

func init() {
	viper.AutomaticEnv()
	rootCmd.Flags().Int("port", 3000, "Port to run the server on.")
	rootCmd.Flags().String("address", "0.0.0.0", "Address to bind the server to.")
	rootCmd.Flags().String("app-url", "", "The public URL of the application.")
	rootCmd.Flags().String("database-path", "./oidcgate.db", "Path to the sqlite database.")
	rootCmd.Flags().Int("session-expiry", 86400, "Session token lifetime in seconds.")
	rootCmd.Flags().String("log-level", "info", "Log level (trace, debug, info, warn, error, fatal, panic).")
	rootCmd.Flags().String("trusted-proxies", "", "Comma separated list of trusted proxies.")
	rootCmd.Flags().String("jwt-key-path", "", "Path to the RSA key used to sign session tokens (generated when missing).")

	bindErr := viper.BindPFlags(rootCmd.Flags())
	HandleError(bindErr, "Failed to bind flags")
}
