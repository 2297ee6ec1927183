package graph

import (
	"context"
	_ "embed"

	"github.com/google/uuid"
	graphql "github.com/graph-gophers/graphql-go"
	"github.com/thereayou/chatql/internal/middleware"
	"github.com/thereayou/chatql/internal/services"
	"github.com/thereayou/chatql/internal/validation"
	"go.uber.org/zap"
)

//go:embed schema.graphql
var schemaSDL string

type Resolver struct {
	users *services.UserService
	chats *services.ChatService
	log   *zap.Logger
}

func NewResolver(users *services.UserService, chats *services.ChatService, log *zap.Logger) *Resolver {
	return &Resolver{users: users, chats: chats, log: log}
}

// NewSchema parses the embedded schema against r.
func NewSchema(r *Resolver) (*graphql.Schema, error) {
	return graphql.ParseSchema(schemaSDL, r,
		graphql.UseFieldResolvers(),
		graphql.MaxDepth(12),
		graphql.PanicHandler(panicHandler{log: r.log}),
	)
}

func (r *Resolver) self(ctx context.Context) (uuid.UUID, error) {
	id, ok := middleware.UserIDFrom(ctx)
	if !ok {
		return uuid.Nil, &Error{Message: "Unauthorized.", Code: "UNAUTHENTICATED"}
	}
	return id, nil
}

func (r *Resolver) fail(err error) error {
	return toError(r.log, err)
}

func parseID(raw, field, message string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, services.Invalid(message, validation.FieldError{Field: field, Tag: "uuid", Message: message})
	}
	return id, nil
}

func (r *Resolver) Me(ctx context.Context) (*User, error) {
	self, err := r.self(ctx)
	if err != nil {
		return nil, err
	}
	user, err := r.users.Me(ctx, self)
	if err != nil {
		return nil, r.fail(err)
	}
	out, err := MapUser(user)
	if err != nil {
		return nil, r.fail(err)
	}
	return out, nil
}

type chatsArgs struct {
	Skip  *int32
	Limit *int32
}

func (r *Resolver) Chats(ctx context.Context, args chatsArgs) ([]*Chat, error) {
	self, err := r.self(ctx)
	if err != nil {
		return nil, err
	}
	chats, err := r.chats.ListChats(ctx, self, intPtr(args.Skip), intPtr(args.Limit))
	if err != nil {
		return nil, r.fail(err)
	}
	out, err := mapChats(chats)
	if err != nil {
		return nil, r.fail(err)
	}
	return out, nil
}

type chatMessagesArgs struct {
	ChatID string
	Limit  *int32
	Before *string
}

func (r *Resolver) ChatMessages(ctx context.Context, args chatMessagesArgs) ([]*Message, error) {
	self, err := r.self(ctx)
	if err != nil {
		return nil, err
	}
	chatID, err := parseID(args.ChatID, "chatId", "Invalid chat id.")
	if err != nil {
		return nil, r.fail(err)
	}
	var before *uuid.UUID
	if args.Before != nil {
		id, err := parseID(*args.Before, "before", "Invalid message id.")
		if err != nil {
			return nil, r.fail(err)
		}
		before = &id
	}

	messages, err := r.chats.ListMessages(ctx, self, chatID, intPtr(args.Limit), before)
	if err != nil {
		return nil, r.fail(err)
	}
	out, err := mapMessages(messages)
	if err != nil {
		return nil, r.fail(err)
	}
	return out, nil
}

type updateUserArgs struct {
	Name           *string
	Username       *string
	ProfilePicture *Upload
	Email          *string
}

func (r *Resolver) UpdateUser(ctx context.Context, args updateUserArgs) (*User, error) {
	self, err := r.self(ctx)
	if err != nil {
		return nil, err
	}
	upd := services.ProfileUpdate{Name: args.Name, Username: args.Username, Email: args.Email}
	if args.ProfilePicture != nil {
		upd.Avatar = args.ProfilePicture.File
	}

	user, err := r.users.UpdateProfile(ctx, self, upd)
	if err != nil {
		return nil, r.fail(err)
	}
	out, err := MapUser(user)
	if err != nil {
		return nil, r.fail(err)
	}
	return out, nil
}

func (r *Resolver) CreateOneToOneChat(ctx context.Context, args struct{ UserID graphql.ID }) (*Chat, error) {
	self, err := r.self(ctx)
	if err != nil {
		return nil, err
	}
	other, err := parseID(string(args.UserID), "userId", "Invalid user id.")
	if err != nil {
		return nil, r.fail(err)
	}

	chat, err := r.chats.GetOrCreateDirectChat(ctx, self, other)
	if err != nil {
		return nil, r.fail(err)
	}
	out, err := MapChat(chat)
	if err != nil {
		return nil, r.fail(err)
	}
	return out, nil
}

type createGroupChatArgs struct {
	ChatName     string
	Participants []graphql.ID
}

func (r *Resolver) CreateGroupChat(ctx context.Context, args createGroupChatArgs) (*Chat, error) {
	self, err := r.self(ctx)
	if err != nil {
		return nil, err
	}
	participants := make([]uuid.UUID, len(args.Participants))
	for i, raw := range args.Participants {
		id, err := parseID(string(raw), "participants", "Invalid user id.")
		if err != nil {
			return nil, r.fail(err)
		}
		participants[i] = id
	}

	chat, err := r.chats.CreateGroupChat(ctx, self, args.ChatName, participants)
	if err != nil {
		return nil, r.fail(err)
	}
	out, err := MapChat(chat)
	if err != nil {
		return nil, r.fail(err)
	}
	return out, nil
}

type sendMessageArgs struct {
	ChatID  string
	Message *string
	File    *Upload
}

func (r *Resolver) SendMessageInChat(ctx context.Context, args sendMessageArgs) (*Message, error) {
	self, err := r.self(ctx)
	if err != nil {
		return nil, err
	}
	chatID, err := parseID(args.ChatID, "chatId", "Invalid chat id.")
	if err != nil {
		return nil, r.fail(err)
	}

	body, err := messageBody(args.Message, args.File)
	if err != nil {
		return nil, r.fail(err)
	}

	msg, err := r.chats.SendMessage(ctx, self, chatID, body)
	if err != nil {
		return nil, r.fail(err)
	}
	out, err := MapMessage(msg)
	if err != nil {
		return nil, r.fail(err)
	}
	return out, nil
}

// messageBody accepts exactly one of a non-empty text or a file.
func messageBody(text *string, file *Upload) (services.MessageBody, error) {
	if text != nil && *text == "" {
		return nil, services.Invalid("Invalid message.", validation.FieldError{Field: "message", Tag: "min", Message: "Invalid message."})
	}
	hasFile := file != nil && file.File != nil
	switch {
	case text != nil && !hasFile:
		return services.TextBody(*text), nil
	case text == nil && hasFile:
		return services.FileBody{File: file.File}, nil
	}
	return nil, services.Invalid("Either send text or file.")
}

func intPtr(v *int32) *int {
	if v == nil {
		return nil
	}
	n := int(*v)
	return &n
}
