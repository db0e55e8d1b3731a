// Package main provides a standalone tool to generate JSON Schemas for the
// validator's configuration files.
//
// Usage:
//
//	go run ./cmd/schemagen -type config > configs/config.schema.json
//	go run ./cmd/schemagen -type tenant -output tenant.schema.json
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/your-org/b2c-validator/internal/schema"
)

func main() {
	schemaType := flag.String("type", "config", "Schema type to generate (config, tenant)")
	output := flag.String("output", "", "Output file (default: stdout)")
	flag.Parse()

	st, ok := schema.ParseSchemaType(*schemaType)
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown schema type: %s\n", *schemaType)
		fmt.Fprintf(os.Stderr, "Available types: %v\n", schema.GetAvailableSchemas())
		os.Exit(1)
	}

	gen := schema.NewGenerator()
	data, err := gen.Generate(st)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
		os.Exit(1)
	}

	if *output != "" {
		if err := os.WriteFile(*output, append(data, '\n'), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", *output, err)
			os.Exit(1)
		}
		return
	}

	fmt.Println(string(data))
}
