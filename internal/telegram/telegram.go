package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/fuego-digital/ProspectBoard/pkg/models"

	"github.com/sirupsen/logrus"
	tele "gopkg.in/telebot.v3"
)

type Telegram struct {
	log *logrus.Entry
	bot *tele.Bot
	app App
}

// Notifier forwards service notifications to the agency chat.
type Notifier struct {
	log    *logrus.Entry
	bot    *tele.Bot
	chatID int64
}

type App interface {
	AvailableSlots(ctx context.Context, date time.Time) ([]models.ScheduleSlot, error)
	Rankings(ctx context.Context) ([]models.RankingEntry, error)
}

func NewNotifier(log *logrus.Logger, bot *tele.Bot, chatID int64) *Notifier {
	return &Notifier{
		log:    log.WithField("component", "notifier"),
		bot:    bot,
		chatID: chatID,
	}
}

func New(log *logrus.Logger, bot *tele.Bot, app App) (*Telegram, error) {
	t := Telegram{
		log: log.WithField("component", "telegram"),
		bot: bot,
		app: app,
	}
	t.initButtons()
	t.initHandlers()
	return &t, nil
}

func NewBot(token string) (*tele.Bot, error) {
	config := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(config)
	if err != nil {
		return nil, fmt.Errorf("new bot faild: %w", err)
	}
	return b, nil
}

func (t *Notifier) Notify(_ context.Context, msg string, user interface{}) error {
	t.log.Infof("Notification: %v %v", msg, user)
	if _, err := t.bot.Send(&tele.Chat{ID: t.chatID}, msg); err != nil {
		return fmt.Errorf("tg send message faild: %w", err)
	}
	return nil
}

func (t *Telegram) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		t.bot.Stop()
	}()
	t.log.Infof("Starting telegram bot as %v", t.bot.Me.Username)
	t.bot.Start()
}
