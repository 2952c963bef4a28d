package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
)

func main() {
	port := flag.Int("port", 5173, "Port to run the dashboard on")
	verbose := flag.Bool("verbose", false, "Log every request and config response")
	flag.Parse()

	server := NewDashboardServer(*verbose)

	log.Printf("🚀 Starting fake dashboard on http://localhost:%d", *port)
	log.Printf("🛠  Admin page at http://localhost:%d/admin (password: admin)", *port)
	log.Printf("💾 Using in-memory config store")

	if err := http.ListenAndServe(fmt.Sprintf(":%d", *port), server); err != nil {
		log.Fatalf("❌ Server failed to start: %v", err)
	}
}
