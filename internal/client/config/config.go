// Package config handles configuration for the chat client, including
// defaults, JSON overlay, and command-line flags.
package config

import (
	"encoding/json"
	"flag"
	"os"

	"cipherchat/internal/flagx"
)

// Config holds runtime settings for the chat client.
//
// Fields:
//   - ServerAddr: address of the chat server's TCP endpoint.
//   - EncryptionKey: base64-encoded 32-byte AES key shared with the server.
//   - Username: login name; prompted interactively when empty.
//   - DownloadDir: directory where received files and images are saved.
type Config struct {
	ServerAddr    string `json:"server_addr"`
	EncryptionKey string `json:"encryption_key"`
	Username      string `json:"username"`
	DownloadDir   string `json:"download_dir"`
}

// LoadDefaults populates Config with sensible development defaults.
func (c *Config) LoadDefaults() {
	c.ServerAddr = "127.0.0.1:8080"
	// base64 of 32 zero bytes, development only
	c.EncryptionKey = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="
	c.Username = ""
	c.DownloadDir = "downloads"
}

// parseJson overlays values from the JSON file named by -c/-config, if any.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, config); err != nil {
		panic(err)
	}
}

// parseFlags populates selected client Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   chat server address (e.g., "127.0.0.1:8080")
//	-k string   base64-encoded AES-256 key
//	-u string   username
//	-o string   download directory for received attachments
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-k", "-u", "-o"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ServerAddr, "a", config.ServerAddr, "chat server address")
	fs.StringVar(&config.EncryptionKey, "k", config.EncryptionKey, "base64 AES-256 key")
	fs.StringVar(&config.Username, "u", config.Username, "username")
	fs.StringVar(&config.DownloadDir, "o", config.DownloadDir, "download directory")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
