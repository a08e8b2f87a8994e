package handler

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"
)

// CallbackPrefix is the prefix of every challenge callback payload.
const CallbackPrefix = "chal_"

// Callback actions.
const (
	ActionAccept  = "accept"
	ActionDecline = "decline"
)

// EncodeCallback encodes an action on a challenge into callback data,
// e.g. chal_accept_7.
func EncodeCallback(action string, challengeID int64) string {
	return CallbackPrefix + action + "_" + strconv.FormatInt(challengeID, 10)
}

// DecodeCallback reverses EncodeCallback. ok is false for payloads that do
// not belong to challenges or carry no valid id.
func DecodeCallback(data string) (action string, challengeID int64, ok bool) {
	// telebot prefixes data buttons with \f
	data = strings.TrimPrefix(data, "\f")
	if !strings.HasPrefix(data, CallbackPrefix) {
		return "", 0, false
	}

	action, param, found := strings.Cut(strings.TrimPrefix(data, CallbackPrefix), "_")
	if !found {
		return "", 0, false
	}
	id, valid := parseID(param)
	if !valid {
		return "", 0, false
	}
	return action, id, true
}

// BuildResponsePanel builds the accept/decline keyboard attached to a new
// challenge.
func BuildResponsePanel(challengeID int64) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(
		tele.Btn{Text: "✅ Accept", Data: EncodeCallback(ActionAccept, challengeID)},
		tele.Btn{Text: "🚫 Decline", Data: EncodeCallback(ActionDecline, challengeID)},
	))
	return markup
}
