package main

import (
	"fmt"
	"os"
)

const version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "resolve":
		err = runResolve(args)
	case "synthesize":
		err = runSynthesize(args)
	case "explain":
		err = runExplain(args)
	case "batch":
		err = runBatch(args)
	case "watch":
		err = runWatch(args)
	case "serve":
		err = runServe(args)
	case "demo":
		err = runDemo(args)
	case "version":
		fmt.Printf("uifind %s\n", version)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "uifind %s: %v\n", command, err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: uifind <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  resolve     Resolve a query and print every match")
	fmt.Println("  synthesize  Emit the minimal stable query for a match")
	fmt.Println("  explain     Print how a query parses, without resolving it")
	fmt.Println("  batch       Resolve a query across every snapshot under a directory")
	fmt.Println("  watch       Re-resolve a query whenever the snapshot changes")
	fmt.Println("  serve       Start the MCP server on stdin/stdout")
	fmt.Println("  demo        Print the embedded demo snapshot")
	fmt.Println("  version     Print version")
	fmt.Println("  help        Show this help message")
	fmt.Println()
	fmt.Println("Queries address components by type, attributes and position, e.g.")
	fmt.Println(`  uifind resolve '//Button[caption="Sign in"]'`)
	fmt.Println(`  uifind resolve '//Grid#cell-0-0' --snapshot ui/orders.json`)
	fmt.Println(`  uifind resolve '//TextField' --snapshot src/Login.tsx`)
	fmt.Println(`  uifind batch '//PasswordField' --dir ./snapshots`)
}
