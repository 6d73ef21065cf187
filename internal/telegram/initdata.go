package telegram

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// User is a Telegram account as described by a signed payload.
type User struct {
	ID                    int64  `json:"id"`
	FirstName             string `json:"firstName"`
	LastName              string `json:"lastName,omitempty"`
	Username              string `json:"username,omitempty"`
	PhotoURL              string `json:"photoUrl,omitempty"`
	IsPremium             bool   `json:"isPremium,omitempty"`
	LanguageCode          string `json:"languageCode,omitempty"`
	IsBot                 bool   `json:"isBot,omitempty"`
	AddedToAttachmentMenu bool   `json:"addedToAttachmentMenu,omitempty"`
	AllowsWriteToPM       bool   `json:"allowsWriteToPm,omitempty"`
}

// Chat is the chat a mini app was opened from via an attachment menu.
type Chat struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Username string `json:"username,omitempty"`
	PhotoURL string `json:"photoUrl,omitempty"`
}

// InitData is the structured form of a launch payload.
type InitData struct {
	User         *User  `json:"user,omitempty"`
	Receiver     *User  `json:"receiver,omitempty"`
	Chat         *Chat  `json:"chat,omitempty"`
	AuthDate     int64  `json:"authDate"`
	Hash         string `json:"hash"`
	QueryID      string `json:"queryId,omitempty"`
	ChatType     string `json:"chatType,omitempty"`
	ChatInstance string `json:"chatInstance,omitempty"`
	StartParam   string `json:"startParam,omitempty"`
	CanSendAfter int64  `json:"canSendAfter,omitempty"`
	Signature    string `json:"signature,omitempty"`
}

// wireUser mirrors the host's snake_case JSON.
type wireUser struct {
	ID                    int64  `json:"id"`
	FirstName             string `json:"first_name"`
	LastName              string `json:"last_name"`
	Username              string `json:"username"`
	PhotoURL              string `json:"photo_url"`
	IsPremium             bool   `json:"is_premium"`
	LanguageCode          string `json:"language_code"`
	IsBot                 bool   `json:"is_bot"`
	AddedToAttachmentMenu bool   `json:"added_to_attachment_menu"`
	AllowsWriteToPM       bool   `json:"allows_write_to_pm"`
}

func (w wireUser) user() *User {
	return &User{
		ID:                    w.ID,
		FirstName:             w.FirstName,
		LastName:              w.LastName,
		Username:              w.Username,
		PhotoURL:              w.PhotoURL,
		IsPremium:             w.IsPremium,
		LanguageCode:          w.LanguageCode,
		IsBot:                 w.IsBot,
		AddedToAttachmentMenu: w.AddedToAttachmentMenu,
		AllowsWriteToPM:       w.AllowsWriteToPM,
	}
}

type wireChat struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Username string `json:"username"`
	PhotoURL string `json:"photo_url"`
}

func parseUser(field, raw string) (*User, error) {
	var w wireUser
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, field, err)
	}
	if w.ID == 0 {
		return nil, fmt.Errorf("%w: %s.id is missing", ErrMalformed, field)
	}
	return w.user(), nil
}

// Parse decodes payload into InitData. It does not check the signature; call
// Verify first for anything that crosses a trust boundary.
func Parse(payload string) (*InitData, error) {
	if payload == "" {
		return nil, ErrEmpty
	}
	pairs, err := splitPairs(payload)
	if err != nil {
		return nil, err
	}

	var d InitData
	for _, p := range pairs {
		switch p.key {
		case "user":
			if d.User, err = parseUser("user", p.value); err != nil {
				return nil, err
			}
		case "receiver":
			if d.Receiver, err = parseUser("receiver", p.value); err != nil {
				return nil, err
			}
		case "chat":
			var w wireChat
			if err := json.Unmarshal([]byte(p.value), &w); err != nil {
				return nil, fmt.Errorf("%w: chat: %v", ErrMalformed, err)
			}
			d.Chat = &Chat{ID: w.ID, Type: w.Type, Title: w.Title, Username: w.Username, PhotoURL: w.PhotoURL}
		case "auth_date":
			if d.AuthDate, err = strconv.ParseInt(p.value, 10, 64); err != nil {
				return nil, fmt.Errorf("%w: auth_date %q is not an integer", ErrMalformed, p.value)
			}
		case "can_send_after":
			if d.CanSendAfter, err = strconv.ParseInt(p.value, 10, 64); err != nil {
				return nil, fmt.Errorf("%w: can_send_after %q is not an integer", ErrMalformed, p.value)
			}
		case "hash":
			d.Hash = p.value
		case "query_id":
			d.QueryID = p.value
		case "chat_type":
			d.ChatType = p.value
		case "chat_instance":
			d.ChatInstance = p.value
		case "start_param":
			d.StartParam = p.value
		case "signature":
			d.Signature = p.value
		}
	}
	return &d, nil
}
