package transport

import "context"

type UpdateKind string

const (
	UpdateMessage    UpdateKind = "message"
	UpdateUserJoined UpdateKind = "user_joined"
)

type Update struct {
	Kind    UpdateKind
	Message *Message
	Joined  *UserJoined
}

type Message struct {
	ID           int
	ChatID       int64
	FromID       int64
	FromUsername string
	FromName     string
	Text         string
	IsGroup      bool
}

// UserJoined reports new members entering a group chat.
type UserJoined struct {
	ChatID int64
	Users  []JoinedUser
}

type JoinedUser struct {
	ID       int64
	Username string
	Name     string
}

type ChatTarget struct {
	ChatID int64
}

type MessageRef struct {
	ChatID    int64
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Notification is one outbound announcement queued for async delivery.
type Notification struct {
	Target  ChatTarget
	Text    string
	Options *SendOptions
}

type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}
