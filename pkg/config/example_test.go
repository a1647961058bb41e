package config_test

import (
	"fmt"
	"log"

	"github.com/ajitpratap0/xlsx2parquet/pkg/config"
)

// ExampleNewDefaultConfig demonstrates the configuration used when nothing
// is overridden.
func ExampleNewDefaultConfig() {
	cfg := config.NewDefaultConfig()

	fmt.Printf("Batch Size: %d\n", cfg.Conversion.BatchSize)
	fmt.Printf("Compression: %s\n", cfg.Conversion.Compression)
	fmt.Printf("Strategy: %s\n", cfg.Conversion.Strategy)
	fmt.Printf("Row Group Size: %d\n", cfg.Conversion.RowGroupSize)

	// Output:
	// Batch Size: 25000
	// Compression: snappy
	// Strategy: assemble
	// Row Group Size: 65536
}

// ExampleConfig_Validate shows how to validate a configuration before using
// it.
func ExampleConfig_Validate() {
	cfg := config.NewDefaultConfig()

	// Smaller batches lower peak memory
	cfg.Conversion.BatchSize = 1000
	cfg.Conversion.Strategy = config.StrategyStream
	cfg.Conversion.Compression = "zstd"

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	fmt.Println("Configuration is valid!")

	cfg.Conversion.BatchSize = 0
	fmt.Println(cfg.Validate())

	// Output:
	// Configuration is valid!
	// config: batch_size must be positive, got 0
}
