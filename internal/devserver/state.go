package devserver

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"client_go/internal/domain"
)

var (
	errUserExists     = errors.New("email already registered")
	errUserNotFound   = errors.New("user not found")
	errSelfRequest    = errors.New("cannot befriend yourself")
	errAlreadyFriends = errors.New("already friends")
	errRequestExists  = errors.New("friend request already sent")
	errRequestMissing = errors.New("friend request not found")
	errGroupNotFound  = errors.New("group not found")
	errAlreadyMember  = errors.New("already a member")
	errNotFriends     = errors.New("you can only message friends")
)

type user struct {
	profile domain.Profile
	hashed  string
}

type friendRequest struct {
	id       string
	sender   string
	receiver string
}

type group struct {
	id      string
	name    string
	members []string
}

type replay struct {
	status      int
	contentType string
	body        []byte
}

// State is the in-memory data behind the development backend.
type State struct {
	mu        sync.Mutex
	now       func() time.Time
	users     map[string]*user
	friends   map[string]map[string]struct{}
	requests  []*friendRequest
	nextReqID int
	groups    map[string]*group
	groupIDs  []string
	messages  []domain.Message
	nextMsgID int64
	replays   map[string]replay
}

func NewState() *State {
	return &State{
		now:       time.Now,
		users:     make(map[string]*user),
		friends:   make(map[string]map[string]struct{}),
		nextReqID: 1,
		groups:    make(map[string]*group),
		nextMsgID: 1,
		replays:   make(map[string]replay),
	}
}

func normEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *State) addUser(p domain.Profile, hashed string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := normEmail(p.Email)
	if _, ok := s.users[email]; ok {
		return errUserExists
	}
	p.Email = email
	p.Password = ""
	s.users[email] = &user{profile: p, hashed: hashed}
	return nil
}

func (s *State) passwordHash(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[normEmail(email)]
	if !ok {
		return "", false
	}
	return u.hashed, true
}

func (s *State) userExists(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[normEmail(email)]
	return ok
}

func (s *State) areFriendsLocked(a, b string) bool {
	_, ok := s.friends[a][b]
	return ok
}

func (s *State) friendsOf(email string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.friends[email]))
	for f := range s.friends[email] {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func (s *State) requestFriend(sender, receiver string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	receiver = normEmail(receiver)
	if _, ok := s.users[receiver]; !ok {
		return errUserNotFound
	}
	if sender == receiver {
		return errSelfRequest
	}
	if s.areFriendsLocked(sender, receiver) {
		return errAlreadyFriends
	}
	for _, r := range s.requests {
		if r.sender == sender && r.receiver == receiver {
			return errRequestExists
		}
	}
	s.requests = append(s.requests, &friendRequest{
		id:       strconv.Itoa(s.nextReqID),
		sender:   sender,
		receiver: receiver,
	})
	s.nextReqID++
	return nil
}

func (s *State) incomingRequests(receiver string) []domain.FriendRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.FriendRequest{}
	for _, r := range s.requests {
		if r.receiver == receiver {
			out = append(out, domain.FriendRequest{ID: domain.ID(r.id), SenderEmail: r.sender})
		}
	}
	return out
}

// answerRequest removes the request addressed to receiver and, when
// accepted, makes both users friends.
func (s *State) answerRequest(receiver, id string, accept bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.requests {
		if r.id != id || r.receiver != receiver {
			continue
		}
		s.requests = append(s.requests[:i], s.requests[i+1:]...)
		if accept {
			s.linkLocked(r.sender, r.receiver)
		}
		return nil
	}
	return errRequestMissing
}

func (s *State) linkLocked(a, b string) {
	if s.friends[a] == nil {
		s.friends[a] = make(map[string]struct{})
	}
	if s.friends[b] == nil {
		s.friends[b] = make(map[string]struct{})
	}
	s.friends[a][b] = struct{}{}
	s.friends[b][a] = struct{}{}
}

func (s *State) createGroup(owner, name string, users []string) (domain.GroupSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := []string{owner}
	for _, u := range users {
		u = normEmail(u)
		if _, ok := s.users[u]; !ok {
			return domain.GroupSummary{}, errUserNotFound
		}
		if !contains(members, u) {
			members = append(members, u)
		}
	}
	g := &group{id: uuid.NewString(), name: name, members: members}
	s.groups[g.id] = g
	s.groupIDs = append(s.groupIDs, g.id)
	return domain.GroupSummary{GroupID: domain.ID(g.id), Name: g.name}, nil
}

func (s *State) groupsOf(email string) []domain.GroupSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.GroupSummary{}
	for _, id := range s.groupIDs {
		g := s.groups[id]
		if contains(g.members, email) {
			out = append(out, domain.GroupSummary{GroupID: domain.ID(g.id), Name: g.name})
		}
	}
	return out
}

// memberGroupLocked returns the group when email belongs to it. Non-members
// get errGroupNotFound so group ids are not probeable.
func (s *State) memberGroupLocked(id, email string) (*group, error) {
	g, ok := s.groups[id]
	if !ok || !contains(g.members, email) {
		return nil, errGroupNotFound
	}
	return g, nil
}

func (s *State) group(id, email string) (domain.GroupSummary, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.memberGroupLocked(id, email)
	if err != nil {
		return domain.GroupSummary{}, nil, err
	}
	return domain.GroupSummary{GroupID: domain.ID(g.id), Name: g.name}, append([]string{}, g.members...), nil
}

func (s *State) addMember(id, caller, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.memberGroupLocked(id, caller)
	if err != nil {
		return err
	}
	email = normEmail(email)
	if _, ok := s.users[email]; !ok {
		return errUserNotFound
	}
	if contains(g.members, email) {
		return errAlreadyMember
	}
	g.members = append(g.members, email)
	return nil
}

func (s *State) directMessages(a, b string) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Message{}
	for _, m := range s.messages {
		if m.GroupID != "" {
			continue
		}
		if (m.SenderEmail == a && m.ReceiverEmail == b) || (m.SenderEmail == b && m.ReceiverEmail == a) {
			out = append(out, m)
		}
	}
	return out
}

func (s *State) sendDirect(sender, receiver, content string) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	receiver = normEmail(receiver)
	if _, ok := s.users[receiver]; !ok {
		return domain.Message{}, errUserNotFound
	}
	if !s.areFriendsLocked(sender, receiver) {
		return domain.Message{}, errNotFriends
	}
	return s.appendLocked(domain.Message{
		SenderEmail:   sender,
		ReceiverEmail: receiver,
		Content:       content,
		SentAt:        &domain.Timestamp{Time: s.now().UTC()},
	}), nil
}

func (s *State) groupMessages(id, email string) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.memberGroupLocked(id, email); err != nil {
		return nil, err
	}
	out := []domain.Message{}
	for _, m := range s.messages {
		if string(m.GroupID) == id {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *State) sendGroup(id, sender, content string, sentAt time.Time) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.memberGroupLocked(id, sender); err != nil {
		return domain.Message{}, err
	}
	if sentAt.IsZero() {
		sentAt = s.now()
	}
	return s.appendLocked(domain.Message{
		SenderEmail: sender,
		Content:     content,
		SentAt:      &domain.Timestamp{Time: sentAt.UTC()},
		GroupID:     domain.ID(id),
	}), nil
}

func (s *State) appendLocked(m domain.Message) domain.Message {
	m.ID = s.nextMsgID
	s.nextMsgID++
	s.messages = append(s.messages, m)
	return m
}

func (s *State) lookupReplay(key string) (replay, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.replays[key]
	return r, ok
}

func (s *State) storeReplay(key string, r replay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replays[key] = r
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
