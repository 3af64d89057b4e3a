package api

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ayush/blog-api/backend/internal/models"
	"github.com/ayush/blog-api/backend/internal/store"
)

// memStore is an in-memory stand-in for store.PostgresStore.
type memStore struct {
	mu       sync.Mutex
	users    []*models.User
	posts    []*models.Post
	userSeq  int64
	postSeq  int64
	clock    time.Time
	failList error
}

func newMemStore() *memStore {
	return &memStore{clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// tick returns a strictly increasing timestamp.
func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) CreateUser(_ context.Context, email, username, hashedPw string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email || u.Username == username {
			return nil, store.ErrConflict
		}
	}
	m.userSeq++
	u := &models.User{ID: m.userSeq, Email: email, Username: username, Password: hashedPw, IsActive: true, CreatedAt: m.tick()}
	m.users = append(m.users, u)
	cp := *u
	return &cp, nil
}

func (m *memStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) author(id int64) *models.User {
	for _, u := range m.users {
		if u.ID == id {
			cp := *u
			cp.Password = ""
			return &cp
		}
	}
	return nil
}

func (m *memStore) view(p *models.Post) models.Post {
	cp := *p
	cp.Author = m.author(p.AuthorID)
	return cp
}

func (m *memStore) ListPosts(_ context.Context, q models.PostQuery) ([]models.Post, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList != nil {
		return nil, 0, m.failList
	}
	needle := strings.ToLower(q.Search)
	var matched []models.Post
	for _, p := range m.posts {
		if needle == "" ||
			strings.Contains(strings.ToLower(p.Title), needle) ||
			strings.Contains(strings.ToLower(p.Content), needle) {
			matched = append(matched, m.view(p))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	page := []models.Post{}
	for i := q.Skip; i < total && len(page) < q.Limit; i++ {
		page = append(page, matched[i])
	}
	return page, total, nil
}

func (m *memStore) find(id int64) *models.Post {
	for _, p := range m.posts {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (m *memStore) GetPost(_ context.Context, id int64) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.find(id)
	if p == nil {
		return nil, nil
	}
	v := m.view(p)
	return &v, nil
}

func (m *memStore) CreatePost(_ context.Context, in models.PostInput, authorID int64) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.author(authorID) == nil {
		return nil, errors.New("foreign key violation")
	}
	m.postSeq++
	p := &models.Post{
		ID:        m.postSeq,
		Title:     in.Title,
		Content:   in.Content,
		ImageURL:  in.ImageURL,
		CreatedAt: m.tick(),
		AuthorID:  authorID,
	}
	m.posts = append(m.posts, p)
	v := m.view(p)
	return &v, nil
}

func (m *memStore) owned(id, actorID int64) (*models.Post, error) {
	p := m.find(id)
	if p == nil {
		return nil, store.ErrNotFound
	}
	if p.AuthorID != actorID {
		return nil, store.ErrForbidden
	}
	return p, nil
}

func (m *memStore) UpdatePost(_ context.Context, id, actorID int64, patch models.PostPatch) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.owned(id, actorID)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		v := m.view(p)
		return &v, nil
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Content != nil {
		p.Content = *patch.Content
	}
	if patch.ImageURL != nil {
		p.ImageURL = patch.ImageURL
	}
	now := m.tick()
	p.UpdatedAt = &now
	v := m.view(p)
	return &v, nil
}

func (m *memStore) DeletePost(_ context.Context, id, actorID int64) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.owned(id, actorID)
	if err != nil {
		return nil, err
	}
	for i := range m.posts {
		if m.posts[i].ID == id {
			m.posts = append(m.posts[:i], m.posts[i+1:]...)
			break
		}
	}
	v := m.view(p)
	return &v, nil
}
