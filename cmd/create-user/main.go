package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"case_registry_go/config"
	"case_registry_go/db"
	"case_registry_go/models"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(&models.User{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	reader := bufio.NewReader(os.Stdin)

	// Get user details
	fmt.Println("=== Create Staff User ===")
	fmt.Println()

	fmt.Print("Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)

	fmt.Print("Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)

	fmt.Printf("Role (%s/%s/%s) [%s]: ", models.UserRoleAdmin, models.UserRoleOfficer, models.UserRoleReviewer, models.UserRoleOfficer)
	role, _ := reader.ReadString('\n')
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		role = models.UserRoleOfficer
	}

	// Validate inputs
	if name == "" || email == "" {
		log.Fatal("Name and email are required")
	}
	if !models.IsValidUserRole(role) {
		log.Fatalf("Unknown role %q", role)
	}

	// Check if user already exists
	var existingUser models.User
	if err := db.DB.Where("email = ?", email).First(&existingUser).Error; err == nil {
		log.Fatalf("User with email %s already exists", email)
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		Role:     role,
		IsActive: true,
	}

	if err := db.DB.Create(user).Error; err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Println()
	fmt.Println("✓ User created successfully!")
	fmt.Printf("  ID: %s\n", user.ID)
	fmt.Printf("  Name: %s\n", user.Name)
	fmt.Printf("  Role: %s\n", user.Role)
	fmt.Println()
	fmt.Printf("Requests acting as this user must carry the header %s: %s\n", "X-User-ID", user.ID)
}
