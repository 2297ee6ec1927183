// Package mongodb is the document database implementation of the chat store.
package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/chatql/internal/database"
	"github.com/thereayou/chatql/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	client   *mongo.Client
	users    *mongo.Collection
	chats    *mongo.Collection
	messages *mongo.Collection
}

// Connect dials uri, selects dbName and makes sure the indexes exist.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	db := client.Database(dbName)
	s := &Store{
		client:   client,
		users:    db.Collection("users"),
		chats:    db.Collection("chats"),
		messages: db.Collection("messages"),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return err
	}

	_, err = s.chats.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "directKey", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"directKey": bson.M{"$exists": true}}),
		},
		{Keys: bson.D{{Key: "participants", Value: 1}, {Key: "lastMessageAt", Value: -1}}},
	})
	if err != nil {
		return err
	}

	_, err = s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "chat", Value: 1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
	})
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return database.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return database.ErrDuplicate
	}
	return err
}

// Users

func (s *Store) SaveUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.AvatarURL == "" {
		user.AvatarURL = models.DefaultAvatarURL
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now

	_, err := s.users.InsertOne(ctx, toUserDoc(user))
	return translate(err)
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	user, err := doc.model()
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id.String()})
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"username": username})
}

func (s *Store) GetUsers(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": idStrings(ids)}})
	if err != nil {
		return nil, translate(err)
	}
	defer cur.Close(ctx)

	var users []models.User
	for cur.Next(ctx) {
		var doc userDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		u, err := doc.model()
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, cur.Err()
}

func (s *Store) UserTaken(ctx context.Context, email, username string, exclude uuid.UUID) (bool, error) {
	var or bson.A
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if username != "" {
		or = append(or, bson.M{"username": username})
	}
	if len(or) == 0 {
		return false, nil
	}

	filter := bson.M{"$or": or}
	if exclude != uuid.Nil {
		filter["_id"] = bson.M{"$ne": exclude.String()}
	}
	n, err := s.users.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, translate(err)
	}
	return n > 0, nil
}

func (s *Store) UpdateUser(ctx context.Context, id uuid.UUID, upd models.UserUpdate) (*models.User, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Username != nil {
		set["username"] = *upd.Username
	}
	if upd.Email != nil {
		set["email"] = *upd.Email
	}
	if upd.AvatarURL != nil {
		set["profilePicture"] = *upd.AvatarURL
	}

	var doc userDoc
	err := s.users.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, translate(err)
	}
	user, err := doc.model()
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Chats

func (s *Store) CreateChat(ctx context.Context, chat *models.Chat) error {
	if chat.ID == uuid.Nil {
		chat.ID = uuid.New()
	}
	now := time.Now().UTC()
	chat.CreatedAt, chat.UpdatedAt = now, now
	if chat.LastMessageAt.IsZero() {
		chat.LastMessageAt = now
	}

	_, err := s.chats.InsertOne(ctx, toChatDoc(chat))
	return translate(err)
}

func (s *Store) findChat(ctx context.Context, filter bson.M) (*models.Chat, error) {
	var doc chatDoc
	if err := s.chats.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	chat, err := doc.model()
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (s *Store) GetChat(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	return s.findChat(ctx, bson.M{"_id": id.String()})
}

func (s *Store) FindDirectChat(ctx context.Context, key string) (*models.Chat, error) {
	return s.findChat(ctx, bson.M{"isGroupChat": false, "directKey": key})
}

func (s *Store) ResolveChat(ctx context.Context, id uuid.UUID) (*models.ResolvedChat, error) {
	chat, err := s.GetChat(ctx, id)
	if err != nil {
		return nil, err
	}
	resolved, err := s.resolveChats(ctx, []models.Chat{*chat})
	if err != nil {
		return nil, err
	}
	return &resolved[0], nil
}

func (s *Store) ListUserChats(ctx context.Context, userID uuid.UUID, skip, limit int) ([]models.ResolvedChat, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "lastMessageAt", Value: -1}, {Key: "createdAt", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))
	cur, err := s.chats.Find(ctx, bson.M{"participants": userID.String()}, opts)
	if err != nil {
		return nil, translate(err)
	}
	defer cur.Close(ctx)

	var chats []models.Chat
	for cur.Next(ctx) {
		var doc chatDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		c, err := doc.model()
		if err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return s.resolveChats(ctx, chats)
}

func (s *Store) resolveChats(ctx context.Context, chats []models.Chat) ([]models.ResolvedChat, error) {
	var ids []uuid.UUID
	for _, c := range chats {
		ids = append(ids, c.ParticipantIDs()...)
		if c.AdminID != nil {
			ids = append(ids, *c.AdminID)
		}
	}
	users, err := s.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	return database.ResolveChats(chats, users)
}

// Messages

// SaveMessage inserts the message and then advances the chat's
// lastMessageAt. The two writes are not atomic.
func (s *Store) SaveMessage(ctx context.Context, message *models.Message) error {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	message.UpdatedAt = message.CreatedAt

	if _, err := s.messages.InsertOne(ctx, toMessageDoc(message)); err != nil {
		return translate(err)
	}

	_, err := s.chats.UpdateOne(ctx,
		bson.M{"_id": message.ChatID.String(), "lastMessageAt": bson.M{"$lt": message.CreatedAt}},
		bson.M{"$set": bson.M{"lastMessageAt": message.CreatedAt, "updatedAt": message.CreatedAt}},
	)
	return translate(err)
}

func (s *Store) getMessage(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	var doc messageDoc
	if err := s.messages.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	m, err := doc.model()
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) ResolveMessage(ctx context.Context, id uuid.UUID) (*models.ResolvedMessage, error) {
	message, err := s.getMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	chat, err := s.ResolveChat(ctx, message.ChatID)
	if err != nil {
		return nil, err
	}
	resolved, err := database.ResolveMessages(chat, []models.Message{*message})
	if err != nil {
		return nil, err
	}
	return &resolved[0], nil
}

func (s *Store) GetChatMessages(ctx context.Context, chatID uuid.UUID, limit int, beforeID *uuid.UUID) ([]models.ResolvedMessage, error) {
	chat, err := s.ResolveChat(ctx, chatID)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"chat": chatID.String()}
	if beforeID != nil {
		before, err := s.getMessage(ctx, *beforeID)
		if err != nil {
			return nil, err
		}
		if before.ChatID != chatID {
			return nil, database.ErrNotFound
		}
		filter["$or"] = bson.A{
			bson.M{"createdAt": bson.M{"$lt": before.CreatedAt}},
			bson.M{"createdAt": before.CreatedAt, "_id": bson.M{"$lt": before.ID.String()}},
		}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := s.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(err)
	}
	defer cur.Close(ctx)

	var messages []models.Message
	for cur.Next(ctx) {
		var doc messageDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		m, err := doc.model()
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return database.ResolveMessages(chat, messages)
}
