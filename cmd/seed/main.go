package main

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"taskflow/internal/config"
	"taskflow/internal/db"
	"taskflow/internal/model"
	"taskflow/internal/repository"
)

const (
	demoEmail    = "demo@taskflow.local"
	demoPassword = "demo-pass-1234"
)

func main() {
	log.Println("Starting seed script...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	if err := gormDB.AutoMigrate(&model.User{}, &model.Task{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	ctx := context.Background()
	users := repository.NewUserRepository(gormDB)
	tasks := repository.NewTaskRepository(gormDB)

	user, err := users.FindByEmail(ctx, demoEmail)
	switch {
	case err == nil:
		log.Printf("Demo user already present (%s), skipping", user.Email)
		return
	case errors.Is(err, gorm.ErrRecordNotFound):
		// continue below
	default:
		log.Fatalf("Failed to look up demo user: %v", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(demoPassword), 10)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	user = &model.User{
		Name:         "Demo User",
		Email:        demoEmail,
		PasswordHash: string(hashed),
	}
	if err := users.Create(ctx, user); err != nil {
		log.Fatalf("Failed to create demo user: %v", err)
	}
	log.Printf("Created demo user %s (password: %s)", demoEmail, demoPassword)

	today := time.Now()
	midnight := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())

	seedTasks := []model.Task{
		{
			Title:       "Plan the sprint",
			Description: "Collect open items and agree on scope for the week.",
			DueDate:     midnight.AddDate(0, 0, 1),
			Status:      model.StatusInProgress,
			OwnerID:     user.ID,
		},
		{
			Title:       "Review pull requests",
			Description: "Work through the review queue before standup.",
			DueDate:     midnight.AddDate(0, 0, 2),
			Status:      model.StatusToDo,
			OwnerID:     user.ID,
		},
		{
			Title:       "Ship release notes",
			Description: "Draft and publish notes for the current release.",
			DueDate:     midnight.AddDate(0, 0, 7),
			Status:      model.StatusToDo,
			OwnerID:     user.ID,
		},
	}

	created := 0
	for i := range seedTasks {
		if err := tasks.Create(ctx, &seedTasks[i]); err != nil {
			log.Printf("Warning: failed to create task %q: %v", seedTasks[i].Title, err)
			continue
		}
		created++
	}
	log.Printf("Seed complete: %d tasks created", created)
}
