package translation

import (
	"github.com/leonelquinteros/gotext"
)

// AnnouncementMsgID is the untranslated announcement: ticker, then price.
const AnnouncementMsgID = "%s is now $%s"

func Translate(msgID string, vars ...interface{}) string {
	return gotext.Get(msgID, vars...)
}

// Announcement builds the sentence spoken when a ticker breaches its threshold.
func Announcement(ticker, price string) string {
	return Translate(AnnouncementMsgID, ticker, price)
}
