package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"docmon/config"
	"docmon/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	admin := flag.Bool("admin", false, "grant the administrator role")
	vendorID := flag.Uint("vendor", 0, "attach the user to a vendor id")
	flag.Parse()
	if flag.NArg() < 3 {
		fmt.Println("usage: create_user [-admin] [-vendor id] <username> <password> <email>")
		os.Exit(2)
	}
	username, password, email := flag.Arg(0), flag.Arg(1), flag.Arg(2)

	cfg := config.MustLoad()
	if strings.TrimSpace(cfg.DBDSN) == "" {
		log.Fatal("DB_DSN not set in environment")
	}
	db, err := gorm.Open(postgres.Open(cfg.DBDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}

	roleName := "user"
	if *admin {
		roleName = "administrator"
	}
	var role models.Role
	if err := db.Where("name = ?", roleName).First(&role).Error; err != nil {
		role = models.Role{Name: roleName}
		db.Create(&role)
	}

	var existing models.User
	if err := db.Where("username = ? OR email = ?", username, email).First(&existing).Error; err == nil {
		fmt.Printf("user %s already exists (id=%d)\n", existing.Username, existing.ID)
		os.Exit(0)
	}

	hpw, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("bcrypt failed: %v", err)
	}
	rid := role.ID
	user := models.User{
		Username:       username,
		Email:          strings.ToLower(email),
		HashedPassword: hpw,
		Active:         true,
		SecurityStamp:  uuid.NewString(),
		RoleID:         &rid,
	}
	if *vendorID != 0 {
		var v models.Vendor
		if err := db.First(&v, *vendorID).Error; err != nil {
			log.Fatalf("vendor %d not found", *vendorID)
		}
		user.VendorID = vendorID
	}
	if err := db.Create(&user).Error; err != nil {
		log.Fatalf("failed to create user: %v", err)
	}
	fmt.Printf("created user %s id=%d role=%s\n", username, user.ID, roleName)
}
