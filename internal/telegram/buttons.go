package telegram

import tele "gopkg.in/telebot.v3"

func (t *Telegram) initButtons() {
	menu.Inline(
		menu.Row(todaySlotsBtn),
		menu.Row(tomorrowSlotsBtn),
		menu.Row(rankingBtn))
}

var (
	menu             = &tele.ReplyMarkup{}
	todaySlotsBtn    = menu.Data("Today's slots", "today_slots")
	tomorrowSlotsBtn = menu.Data("Tomorrow's slots", "tomorrow_slots")
	rankingBtn       = menu.Data("Ranking", "ranking")
)
