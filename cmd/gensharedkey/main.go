package main

import (
	"fmt"
	"log"

	"msgbridge/core"
)

func main() {
	log.Printf("🔑 Generating new dashboard realtime shared key...")

	// Generate a new secret key with "rtk" prefix for dashboard socket auth
	sharedKey, err := core.NewSecretKey("rtk")
	if err != nil {
		log.Fatalf("❌ Failed to generate shared key: %v", err)
	}

	fmt.Printf("Generated shared key: %s\n", sharedKey)
	log.Printf("✅ Successfully generated realtime shared key, set it as REALTIME_SHARED_KEY")
}
