// Command main runs the database seeder for Homeroom.
package main

import (
	"flag"
	"log"

	"homeroom/internal/config"
	"homeroom/internal/database"
	"homeroom/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numMessages := flag.Int("messages", 500, "Number of chat messages to create")
	maxDays := flag.Int("max-days", 30, "Spread message timestamps over this many days")
	skipBcrypt := flag.Bool("fast", false, "Skip bcrypt hashing for faster seeding")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d users, %d messages, clean=%v\n", *numUsers, *numMessages, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	seeder := seed.NewSeeder(db, seed.Options{
		NumUsers:    *numUsers,
		NumMessages: *numMessages,
		MaxDays:     *maxDays,
		SkipBcrypt:  *skipBcrypt,
		ShouldClean: *shouldClean,
	})

	if err := seeder.Run(); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✅ Seeding complete")
	log.Println("   Admin login: admin@homeroom.local / admin123")
	log.Println("   Student password: password123")
}
