package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"telegram_miniapp/internal/logger"
	"telegram_miniapp/internal/service"
	"telegram_miniapp/internal/telegram"

	"github.com/joho/godotenv"
)

// sign_init_data prints a launch payload signed with the local bot token, for
// exercising the API without opening the app inside a Telegram client.
func main() {
	_ = godotenv.Load()

	userID := flag.Int64("user-id", 3001, "telegram user id")
	firstName := flag.String("first-name", "Test", "first name")
	username := flag.String("username", "tester", "username, empty to omit")
	premium := flag.Bool("premium", false, "mark the user as premium")
	age := flag.Duration("age", 0, "backdate auth_date by this much")
	startParam := flag.String("start-param", "", "optional start_param")
	withSession := flag.Bool("session", false, "also print a session token for the user")
	flag.Parse()

	logger.Init("warn", false)

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		logger.Fatal("TELEGRAM_BOT_TOKEN not set")
	}

	user := map[string]any{
		"id":            *userID,
		"first_name":    *firstName,
		"language_code": "en",
	}
	if *username != "" {
		user["username"] = *username
	}
	if *premium {
		user["is_premium"] = true
	}
	userJSON, err := json.Marshal(user)
	if err != nil {
		logger.Fatal("encode user", "error", err)
	}

	fields := map[string]string{
		"auth_date": strconv.FormatInt(time.Now().Add(-*age).Unix(), 10),
		"query_id":  "AAH" + strconv.FormatInt(*userID, 36),
		"user":      string(userJSON),
	}
	if *startParam != "" {
		fields["start_param"] = *startParam
	}
	payload := telegram.Sign(fields, token)
	fmt.Println(payload)

	if *withSession {
		sessions := service.NewSessionCodec(os.Getenv("SESSION_SECRET"), 0)
		session, err := sessions.Issue(*userID)
		if err != nil {
			logger.Fatal("issue session", "error", err)
		}
		fmt.Println(session)
	}
}
