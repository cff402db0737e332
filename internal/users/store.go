package users

import (
	"sort"
	"sync"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Store holds the demo principal table. Tokens are static demo secrets
// looked up on every authorize call.
type Store struct {
	mu      sync.RWMutex
	users   map[int]User
	byToken map[string]int
}

func NewStore() *Store {
	s := &Store{
		users:   make(map[int]User),
		byToken: make(map[string]int),
	}
	s.seed()
	return s
}

func (s *Store) seed() {
	s.add(User{ID: 1, Name: "Ada", Email: "ada@example.com", Role: RoleAdmin}, "token-ada")
	s.add(User{ID: 2, Name: "Linus", Email: "linus@example.com", Role: RoleUser}, "token-linus")
	s.add(User{ID: 3, Name: "Grace", Email: "grace@example.com", Role: RoleUser}, "token-grace")
}

func (s *Store) add(u User, token string) {
	s.users[u.ID] = u
	s.byToken[token] = u.ID
}

func (s *Store) ByToken(token string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byToken[token]
	if !ok {
		return User{}, false
	}
	return s.users[id], true
}

func (s *Store) ByID(id int) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

func (s *Store) List() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
