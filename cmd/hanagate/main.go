package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "exec":
		if err := runExec(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "configure":
		if err := runConfigure(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "doctor":
		if err := runDoctor(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("hanagate — SQL execution gateway for SAP HANA")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  hanagate serve       Start the MCP server")
	fmt.Println("  hanagate exec        Execute a SQL statement and print the result")
	fmt.Println("  hanagate configure   Run interactive configuration wizard")
	fmt.Println("  hanagate doctor      Validate configuration and print connection snippets")
	fmt.Println("  hanagate --help      Show this help message")
}
