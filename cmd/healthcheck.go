package cmd

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Perform a health check",
	Long:  `Use the health check endpoint to verify that oidcgate is running and healthy.`,
	Run: func(cmd *cobra.Command, args []string) {
		port := viper.GetInt("port")
		if port == 0 {
			port = 3000
		}

		url := fmt.Sprintf("http://127.0.0.1:%d/api/healthcheck", port)

		resp, err := http.Get(url)
		HandleError(err, "Failed to perform request")
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			log.Fatal().Int("status", resp.StatusCode).Msg("Service is not healthy")
		}

		log.Info().Msg("Service is healthy")
	},
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
}
