package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	userstore "github.com/dalemusser/membersonly/internal/app/store/users"
	"github.com/dalemusser/membersonly/internal/app/system/auth"
	"github.com/dalemusser/membersonly/internal/app/system/authutil"
	"github.com/dalemusser/membersonly/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MemUsers is an in-memory user store with the same method set as
// userstore.Store and userstore.Fetcher, for handler tests without MongoDB.
type MemUsers struct {
	mu    sync.Mutex
	byID  map[primitive.ObjectID]models.User
	Err   error // when set, every call fails with it
	Calls []string
}

// NewMemUsers returns an empty MemUsers.
func NewMemUsers() *MemUsers {
	return &MemUsers{byID: map[primitive.ObjectID]models.User{}}
}

func (m *MemUsers) record(op string) error {
	m.Calls = append(m.Calls, op)
	return m.Err
}

// Add inserts u as-is and returns it with an ID assigned.
func (m *MemUsers) Add(u models.User) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	m.byID[u.ID] = u
	return u
}

// AddWithPassword inserts a user with a bcrypt hash of password.
func (m *MemUsers) AddWithPassword(first, last, email, password string, isAdmin bool) models.User {
	hash, err := authutil.HashPassword(password)
	if err != nil {
		panic(err)
	}
	return m.Add(models.User{FirstName: first, LastName: last, Email: email, PasswordHash: hash, IsAdmin: isAdmin})
}

// All returns a snapshot of the stored users.
func (m *MemUsers) All() []models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.User, 0, len(m.byID))
	for _, u := range m.byID {
		out = append(out, u)
	}
	return out
}

func (m *MemUsers) Create(_ context.Context, u models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("Create"); err != nil {
		return models.User{}, err
	}
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return models.User{}, userstore.ErrDuplicateEmail
		}
	}
	u.ID = primitive.NewObjectID()
	u.CreatedAt = time.Now().UTC()
	m.byID[u.ID] = u
	return u, nil
}

func (m *MemUsers) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("GetByID"); err != nil {
		return nil, err
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return &u, nil
}

func (m *MemUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("GetByEmail"); err != nil {
		return nil, err
	}
	for _, u := range m.byID {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (m *MemUsers) SetMember(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("SetMember"); err != nil {
		return nil, err
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	u.IsMember = true
	m.byID[id] = u
	return &u, nil
}

// FetchUser implements auth.UserFetcher like userstore.Fetcher.
func (m *MemUsers) FetchUser(_ context.Context, userID string) (*auth.SessionUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, nil
	}
	u, ok := m.byID[oid]
	if !ok {
		return nil, nil
	}
	return &auth.SessionUser{ID: u.ID.Hex(), Name: u.FullName(), Email: u.Email}, nil
}

// MemSecrets holds at most one shared secret.
type MemSecrets struct {
	mu  sync.Mutex
	sec *models.SharedSecret
	Err error
}

// NewMemSecrets returns a store seeded with passphrase, or empty when
// passphrase is "".
func NewMemSecrets(passphrase string) *MemSecrets {
	m := &MemSecrets{}
	if passphrase != "" {
		hash, err := authutil.HashPassword(passphrase)
		if err != nil {
			panic(err)
		}
		m.sec = &models.SharedSecret{ID: primitive.NewObjectID(), PasswordHash: hash, CreatedAt: time.Now().UTC()}
	}
	return m
}

func (m *MemSecrets) Get(context.Context) (*models.SharedSecret, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if m.sec == nil {
		return nil, mongo.ErrNoDocuments
	}
	cp := *m.sec
	return &cp, nil
}

// MemMessages is an in-memory message store. Authors are resolved against Users.
type MemMessages struct {
	mu    sync.Mutex
	items []models.Message
	Users *MemUsers
	Err   error
}

// NewMemMessages returns an empty store joined against users.
func NewMemMessages(users *MemUsers) *MemMessages {
	return &MemMessages{Users: users}
}

// All returns a snapshot of stored messages in insertion order.
func (m *MemMessages) All() []models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Message(nil), m.items...)
}

// Add inserts msg as-is.
func (m *MemMessages) Add(msg models.Message) models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	m.items = append(m.items, msg)
	return msg
}

func (m *MemMessages) Create(_ context.Context, title, text string, authorID primitive.ObjectID) (models.Message, error) {
	if m.Err != nil {
		return models.Message{}, m.Err
	}
	return m.Add(models.Message{Title: title, Text: text, AuthorID: authorID}), nil
}

func (m *MemMessages) ListWithAuthors(_ context.Context) ([]models.MessageWithAuthor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	out := make([]models.MessageWithAuthor, 0, len(m.items))
	for i := len(m.items) - 1; i >= 0; i-- {
		msg := m.items[i]
		mw := models.MessageWithAuthor{Message: msg}
		if m.Users != nil {
			m.Users.mu.Lock()
			if u, ok := m.Users.byID[msg.AuthorID]; ok {
				u.PasswordHash = ""
				mw.Author = &u
			}
			m.Users.mu.Unlock()
		}
		out = append(out, mw)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (m *MemMessages) Delete(_ context.Context, id primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	for i, msg := range m.items {
		if msg.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}
