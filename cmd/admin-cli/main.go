package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"trade-journal/internal/billing"
	"trade-journal/internal/database"
)

func main() {
	fmt.Println("========================================")
	fmt.Println(" Trade Journal Administration Tool")
	fmt.Println("========================================")

	_ = godotenv.Load()

	db, err := database.NewDB(database.Config{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "trade_journal"),
		Password: getEnv("DB_PASSWORD", "trade_journal"),
		Database: getEnv("DB_NAME", "trade_journal"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	})
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := database.NewRepository(db)
	billingService := billing.NewService(repo, true)
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Println("\nOptions:")
		fmt.Println("  1. List pending payment orders")
		fmt.Println("  2. Confirm a payment order")
		fmt.Println("  3. List users")
		fmt.Println("  4. Set an admin setting")
		fmt.Println("  5. Exit")
		fmt.Print("\nSelect option: ")

		input, _ := reader.ReadString('\n')
		switch strings.TrimSpace(input) {
		case "1":
			listPendingOrders(billingService)
		case "2":
			confirmOrder(reader, billingService)
		case "3":
			listUsers(repo)
		case "4":
			setSetting(reader, repo)
		case "5":
			fmt.Println("Goodbye!")
			os.Exit(0)
		default:
			fmt.Println("Invalid option")
		}
	}
}

func listPendingOrders(billingService *billing.Service) {
	orders, err := billingService.ListPendingOrders(context.Background())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(orders) == 0 {
		fmt.Println("No pending orders")
		return
	}
	for _, order := range orders {
		fmt.Printf("  %s  user=%s  plan=%-8s  amount=%.2f  created=%s\n",
			order.ID, order.UserID, order.Plan, order.Amount,
			order.CreatedAt.Format("2006-01-02 15:04"))
	}
}

func confirmOrder(reader *bufio.Reader, billingService *billing.Service) {
	fmt.Print("Order ID: ")
	input, _ := reader.ReadString('\n')
	orderID := strings.TrimSpace(input)
	if orderID == "" {
		fmt.Println("Order ID is required")
		return
	}

	order, err := billingService.ConfirmOrder(context.Background(), orderID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Order %s confirmed: user=%s plan=%s\n", order.ID, order.UserID, order.Plan)
}

func listUsers(repo *database.Repository) {
	users, err := repo.ListUsers(context.Background())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	for _, user := range users {
		paid := "no"
		if user.IsPaid && user.PaidUntil != nil {
			paid = user.PaidUntil.Format("2006-01-02")
		}
		fmt.Printf("  %-36s  %-20s  admin=%-5v  paid_until=%s\n",
			user.ID, user.Username, user.IsAdmin, paid)
	}
}

func setSetting(reader *bufio.Reader, repo *database.Repository) {
	fmt.Print("Key: ")
	key, _ := reader.ReadString('\n')
	fmt.Print("Value: ")
	value, _ := reader.ReadString('\n')

	key = strings.TrimSpace(key)
	if key == "" {
		fmt.Println("Key is required")
		return
	}
	if err := repo.SetSetting(context.Background(), key, strings.TrimSpace(value)); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("Setting saved")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return fallback
}
