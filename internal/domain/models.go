package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Session is the authenticated user's token and identity.
type Session struct {
	Token        string
	UserIdentity string
	ExpiresAt    *time.Time
}

// Expired reports whether the session carries an expiry that has passed.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// ThreadKind discriminates ThreadRef.
type ThreadKind string

const (
	ThreadDirect ThreadKind = "direct"
	ThreadGroup  ThreadKind = "group"
)

// ThreadRef identifies a message collection: a peer for direct chat or a
// group for group chat.
type ThreadRef struct {
	Kind ThreadKind
	// PeerIdentity is set for direct threads.
	PeerIdentity string
	// GroupID is set for group threads.
	GroupID string
}

func DirectThread(peerIdentity string) ThreadRef {
	return ThreadRef{Kind: ThreadDirect, PeerIdentity: peerIdentity}
}

func GroupThread(groupID string) ThreadRef {
	return ThreadRef{Kind: ThreadGroup, GroupID: groupID}
}

// Valid reports whether the variant's identifier is present.
func (r ThreadRef) Valid() bool {
	switch r.Kind {
	case ThreadDirect:
		return strings.TrimSpace(r.PeerIdentity) != ""
	case ThreadGroup:
		return strings.TrimSpace(r.GroupID) != ""
	}
	return false
}

func (r ThreadRef) String() string {
	if r.Kind == ThreadGroup {
		return "group:" + r.GroupID
	}
	return "direct:" + r.PeerIdentity
}

// Message is a single chat message as returned by the server.
type Message struct {
	ID            int64      `json:"id"`
	SenderEmail   string     `json:"senderEmail"`
	ReceiverEmail string     `json:"receiverEmail,omitempty"`
	Content       string     `json:"content"`
	SentAt        *Timestamp `json:"sentAt,omitempty"`
	GroupID       ID         `json:"groupId,omitempty"`
}

// ThreadMetadata describes a group thread.
type ThreadMetadata struct {
	GroupID          string
	Name             string
	MemberIdentities []string
}

// FriendRequest is an incoming, pending friend request.
type FriendRequest struct {
	ID          ID     `json:"id"`
	SenderEmail string `json:"senderEmail"`
}

// GroupSummary is one entry of the group list.
type GroupSummary struct {
	GroupID ID     `json:"groupId"`
	Name    string `json:"name"`
}

// Profile is the registration payload.
type Profile struct {
	Name     string `json:"name"`
	LastName string `json:"lastName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ID is a server identifier that may be encoded as a JSON string or number.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Timestamp accepts RFC 3339, zone-less ISO 8601 (read as UTC) and epoch
// milliseconds, which is what the known backends emit for sentAt.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] != '"' {
		var ms int64
		if err := json.Unmarshal(b, &ms); err != nil {
			return err
		}
		t.Time = time.UnixMilli(ms).UTC()
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// ParseTimestamp parses the textual forms accepted by Timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
