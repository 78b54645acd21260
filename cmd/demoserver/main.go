// Command demoserver starts a local urlscan.io compatible reputation server
// answering from a canned verdict catalogue.
// Usage: go run ./cmd/demoserver [port]
// Default port: 9999
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/raysh454/phishscan/internal/demoserver"
)

func main() {
	cfg := demoserver.DefaultConfig()

	// Optional: custom port from command line
	if len(os.Args) > 1 {
		port, err := strconv.Atoi(os.Args[1])
		if err != nil || port < 1 || port > 65535 {
			log.Fatalf("Invalid port: %s", os.Args[1])
		}
		cfg.Port = port
	}

	fmt.Println("===========================================")
	fmt.Println("   phishscan demo reputation server")
	fmt.Println("===========================================")
	fmt.Println()
	fmt.Println("Point phishscan at this server with:")
	fmt.Printf("  enrichment.base_url: http://localhost:%d\n", cfg.Port)
	fmt.Printf("  enrichment.api_key:  %s\n", cfg.APIKey)
	fmt.Println()
	fmt.Println("Canned verdicts:")
	for _, v := range demoserver.DefaultVerdicts() {
		fmt.Printf("  %-18s %s\n", v.Host, v.Description)
	}
	fmt.Println()

	server := demoserver.NewDemoServer(cfg)
	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
