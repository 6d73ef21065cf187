package bot

import (
	"fmt"
	"html"
	"log/slog"
	"sync"
	"time"

	"telegram_miniapp/internal/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ResolveUsername asks the Bot API who the token belongs to.
func ResolveUsername(token string) (string, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return "", err
	}
	return api.Self.UserName, nil
}

// LauncherBot answers /start and /help with a button that opens the mini app.
type LauncherBot struct {
	bot       *tgbotapi.BotAPI
	webAppURL string
	stopCh    chan struct{}
	wg        sync.WaitGroup
	log       *slog.Logger
}

func NewLauncherBot(token, webAppURL string) (*LauncherBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log := logger.With("component", "launcher_bot")
	log.Info("launcher bot authorized", "username", api.Self.UserName)

	return &LauncherBot{
		bot:       api,
		webAppURL: webAppURL,
		stopCh:    make(chan struct{}),
		log:       log,
	}, nil
}

// Username is the bot's @handle without the @.
func (b *LauncherBot) Username() string {
	return b.bot.Self.UserName
}

// Start runs the update loop until Stop is called.
func (b *LauncherBot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.bot.GetUpdatesChan(u)
	b.log.Info("starting bot update loop")

	for {
		select {
		case <-b.stopCh:
			b.log.Info("stopping bot update loop")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}

			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				b.handleCommand(msg)
			}(update.Message)
		}
	}
}

// Stop gracefully stops the bot
func (b *LauncherBot) Stop() {
	b.log.Info("stopping launcher bot...")
	close(b.stopCh)
	b.bot.StopReceivingUpdates()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("launcher bot stopped gracefully")
	case <-time.After(10 * time.Second):
		b.log.Warn("launcher bot shutdown timeout, some handlers may not have completed")
	}
}

func (b *LauncherBot) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start", "help":
	default:
		return
	}

	firstName := ""
	if msg.From != nil {
		firstName = msg.From.FirstName
	}
	reply := launchMessage(msg.Chat.ID, b.webAppURL, firstName)
	if _, err := b.bot.Send(reply); err != nil {
		b.log.Error("failed to send launch message", "chat_id", msg.Chat.ID, "error", err)
	}
}

// launchMessage builds the reply to /start. Without a web app URL it falls
// back to plain instructions.
func launchMessage(chatID int64, webAppURL, firstName string) tgbotapi.MessageConfig {
	greeting := "Hi!"
	if firstName != "" {
		greeting = fmt.Sprintf("Hi, <b>%s</b>!", html.EscapeString(firstName))
	}

	if webAppURL == "" {
		msg := tgbotapi.NewMessage(chatID, greeting+" Open the chat from the menu button below.")
		msg.ParseMode = tgbotapi.ModeHTML
		return msg
	}

	msg := tgbotapi.NewMessage(chatID, greeting+" Tap the button to start chatting.")
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Open chat", webAppURL),
		),
	)
	return msg
}
