package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/TEENet-io/tokenbridge/cmd"
)

const (
	ENV_CONFIG_FILE_PATH = "BRIDGE_CONFIG"
)

func main() {
	// Tool to read environment variables
	viper.AutomaticEnv()

	// Accessing an environment variable of configuration file location.
	// Without it the server runs on environment variables only.
	_config_file := viper.GetString(ENV_CONFIG_FILE_PATH)
	if _config_file != "" {
		fmt.Printf("Bridge server configuration file = %s\n", _config_file)

		if !cmd.FileExists(_config_file) {
			fmt.Printf("Bridge server configuration file not found: %s\n", _config_file)
			return
		}
		if !initializeViper(_config_file) {
			return
		}
	}

	bsc := cmd.ReadBridgeServerConfig(viper.GetViper())

	fmt.Println("Starting bridge server... press Ctrl+C to kill the server")
	// Start server and block.
	cmd.StartBridgeServerAndWait(bsc)
}

func initializeViper(filePath string) bool {
	viper.SetConfigFile(filePath)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("Error reading configuration file, %s\n", err)
		return false
	}
	return true
}
