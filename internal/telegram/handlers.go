package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"
)

const cmdStart = "/start"

func (t *Telegram) initHandlers() {
	t.bot.Handle(cmdStart, t.startHandler)
	t.bot.Handle(&todaySlotsBtn, t.todaySlotsHandler)
	t.bot.Handle(&tomorrowSlotsBtn, t.tomorrowSlotsHandler)
	t.bot.Handle(&rankingBtn, t.rankingHandler)
}

func (t *Telegram) startHandler(ctx tele.Context) error {
	msg := "ProspectBoard here. Pick what you want to see."
	return ctx.Send(msg, menu)
}

func (t *Telegram) todaySlotsHandler(ctx tele.Context) error {
	return t.sendSlots(ctx, time.Now())
}

func (t *Telegram) tomorrowSlotsHandler(ctx tele.Context) error {
	return t.sendSlots(ctx, time.Now().AddDate(0, 0, 1))
}

func (t *Telegram) sendSlots(ctx tele.Context, date time.Time) error {
	slots, err := t.app.AvailableSlots(context.Background(), date)
	if err != nil {
		t.log.Errorf("err getting slots: %v", err)
		return ctx.Edit("Could not load the schedule, try again later.", menu)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Schedule for %s\n", date.Format("02/01/2006"))
	for _, slot := range slots {
		switch {
		case slot.Available:
			fmt.Fprintf(&b, "%s free\n", slot.Time)
		case slot.ClientName != "":
			fmt.Fprintf(&b, "%s %s\n", slot.Time, slot.ClientName)
		default:
			fmt.Fprintf(&b, "%s gone\n", slot.Time)
		}
	}
	return ctx.Edit(b.String(), menu)
}

func (t *Telegram) rankingHandler(ctx tele.Context) error {
	rankings, err := t.app.Rankings(context.Background())
	if err != nil {
		t.log.Errorf("err getting rankings: %v", err)
		return ctx.Edit("Could not load the ranking, try again later.", menu)
	}
	if len(rankings) == 0 {
		return ctx.Edit("No closed deals yet.", menu)
	}
	var b strings.Builder
	b.WriteString("Ranking\n")
	for i, entry := range rankings {
		fmt.Fprintf(&b, "%d. %s R$ %.2f (%d clients, %.0f%%)\n",
			i+1, entry.User.Name, entry.TotalClosed, entry.ClientsCount, entry.ConversionRate)
	}
	return ctx.Edit(b.String(), menu)
}
