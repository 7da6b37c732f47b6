package config

import (
	"flag"
	"os"
	"time"

	"cipherchat/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   TCP bind address (e.g., ":8080")
//	-m string   HTTP metrics bind address (e.g., ":9090")
//	-d string   PostgreSQL DSN
//	-k string   base64-encoded AES-256 key
//	-s string   JWT HMAC secret key
//	-t int      session token validity, minutes
//	-f int      max wire frame payload, bytes
//	-q int      per-connection outbound queue length
//	-b string   blob storage root directory
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Duration
// flags are accepted as integers in minutes and then converted to
// time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-m", "-d", "-k", "-s", "-t", "-f", "-q", "-b"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.BindAddr, "a", config.BindAddr, "address and port to run chat server")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "address and port for metrics endpoint")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.EncryptionKey, "k", config.EncryptionKey, "base64 AES-256 key")
	fs.StringVar(&config.JWTSecret, "s", config.JWTSecret, "secret key")

	tokenValidity := fs.Int("t", int(config.TokenValidity.Minutes()), "token_validity (in minutes)")

	fs.IntVar(&config.MaxFrameSize, "f", config.MaxFrameSize, "max frame payload size in bytes")
	fs.IntVar(&config.OutboundQueueSize, "q", config.OutboundQueueSize, "outbound queue length per connection")
	fs.StringVar(&config.BlobDir, "b", config.BlobDir, "blob storage root directory")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TokenValidity = time.Duration(*tokenValidity) * time.Minute
}
