package config

import (
	"encoding/json"
	"os"
	"time"

	"cipherchat/internal/flagx"
	"cipherchat/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "24h" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its fields are copied into the
// runtime Config struct which uses time.Duration.
type JsonConfig struct {
	BindAddr          string         `json:"bind_addr"`
	MetricsAddr       string         `json:"metrics_addr"`
	DatabaseDSN       string         `json:"database_dsn"`
	EncryptionKey     string         `json:"encryption_key"`
	JWTSecret         string         `json:"jwt_secret"`
	TokenValidity     timex.Duration `json:"token_validity"`
	MaxFrameSize      int            `json:"max_frame_size"`
	OutboundQueueSize int            `json:"outbound_queue_size"`
	BlobDir           string         `json:"blob_dir"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags; if neither
// is set, no JSON file is loaded. If the file cannot be read or contains
// invalid JSON, the function panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.BindAddr = c.BindAddr
	config.MetricsAddr = c.MetricsAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.EncryptionKey = c.EncryptionKey
	config.JWTSecret = c.JWTSecret
	config.TokenValidity = time.Duration(c.TokenValidity.Duration)
	config.MaxFrameSize = c.MaxFrameSize
	config.OutboundQueueSize = c.OutboundQueueSize
	config.BlobDir = c.BlobDir
}
