package main

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Quick utility to generate a bcrypt hash for a moderator account
// Usage: go run scripts/admin_password.go <email> <password>
func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: go run scripts/admin_password.go <email> <password>")
		fmt.Println("Example: go run scripts/admin_password.go mod@example.com 0i2rinbcp12yc31h")
		os.Exit(1)
	}

	email := strings.ToLower(strings.TrimSpace(os.Args[1]))
	password := os.Args[2]

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Printf("Error generating hash: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Email: %s\n", email)
	fmt.Printf("Bcrypt Hash: %s\n", string(hashedPassword))
	fmt.Printf("\nTo create the admin in MongoDB, run:\n")
	fmt.Printf("db.admins.updateOne(\n")
	fmt.Printf("  {\"email\": %q},\n", email)
	fmt.Printf("  {$set: {\"passwordHash\": %q, \"active\": true, \"roles\": [\"moderator\"], \"updatedAt\": new Date()},\n", string(hashedPassword))
	fmt.Printf("   $setOnInsert: {\"createdAt\": new Date()}},\n")
	fmt.Printf("  {upsert: true}\n")
	fmt.Printf(")\n")
}
