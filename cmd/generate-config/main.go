package main

import (
	"fmt"
	"os"

	"github.com/kumagoya/kumagoya/internal/config"
	"gopkg.in/yaml.v3"
)

func main() {
	cfg := config.Default()

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating YAML: %v\n", err)
		os.Exit(1)
	}

	header := "# 熊小屋 configuration example\n" +
		"# Copy this file to config.yaml and customize as needed.\n" +
		"# Secrets are better set through the environment (KUMAGOYA_CSRF_KEY, S3_SECRET_ACCESS_KEY, ...).\n\n"
	output := header + string(yamlData)

	outputFile := "config.example.yaml"
	if len(os.Args) > 1 {
		outputFile = os.Args[1]
	}

	if outputFile == "-" {
		fmt.Print(output)
		return
	}
	if err := os.WriteFile(outputFile, []byte(output), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated example config: %s\n", outputFile)
}
