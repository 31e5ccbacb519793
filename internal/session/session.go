package session

import (
	"crypto/rand"
	"encoding/base64"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const idBytes = 32

// Identity is the authenticated user attached to a session.
type Identity struct {
	UserID   uint
	UserType string
	Name     string
	Avatar   string
}

// Data is the persisted part of a session.
type Data struct {
	UserID          uint      `json:"user_id,omitempty"`
	UserType        string    `json:"user_type,omitempty"`
	Name            string    `json:"name,omitempty"`
	Avatar          string    `json:"avatar,omitempty"`
	GuestChannel    string    `json:"guest_channel,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	LastActivity    time.Time `json:"last_activity"`
	LastRegenerated time.Time `json:"last_regenerated"`
	Flash           []string  `json:"flash,omitempty"`
}

// Session is the request-scoped view of one browser session. It is not safe for
// concurrent use; each request owns its own *Session.
type Session struct {
	id        string
	data      Data
	isNew     bool
	idChanged bool
}

func newSession(now time.Time) (*Session, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}
	return &Session{
		id:    id,
		isNew: true,
		data: Data{
			GuestChannel:    uuid.NewString(),
			CreatedAt:       now,
			LastActivity:    now,
			LastRegenerated: now,
		},
	}, nil
}

func (s *Session) ID() string { return s.id }

// IsNew reports whether the session was started (or reset) during this request.
func (s *Session) IsNew() bool { return s.isNew }

// IDChanged reports whether the identifier was rotated during this request.
func (s *Session) IDChanged() bool { return s.idChanged }

func (s *Session) UserID() uint { return s.data.UserID }

func (s *Session) IsAuthenticated() bool { return s.data.UserID != 0 }

func (s *Session) UserType() string { return s.data.UserType }

func (s *Session) Name() string { return s.data.Name }

func (s *Session) Avatar() string { return s.data.Avatar }

func (s *Session) LastActivity() time.Time { return s.data.LastActivity }

func (s *Session) LastRegenerated() time.Time { return s.data.LastRegenerated }

func (s *Session) CreatedAt() time.Time { return s.data.CreatedAt }

// Snapshot returns a copy of the persisted data.
func (s *Session) Snapshot() Data {
	d := s.data
	d.Flash = append([]string(nil), s.data.Flash...)
	return d
}

// SetIdentity marks the session as authenticated for the given user.
func (s *Session) SetIdentity(id Identity, now time.Time) {
	s.data.UserID = id.UserID
	s.data.UserType = id.UserType
	s.data.Name = id.Name
	s.data.Avatar = id.Avatar
	s.data.LastActivity = now
}

// Channel names the event stream of this session: the user for authenticated
// sessions, a per-session guest key otherwise. The guest key survives id
// rotation but not login, so a socket opened as a guest must reconnect after
// logging in to keep receiving events.
func (s *Session) Channel() string {
	if s.IsAuthenticated() {
		return "user:" + strconv.FormatUint(uint64(s.data.UserID), 10)
	}
	if s.data.GuestChannel == "" {
		return "session:" + s.id
	}
	return "guest:" + s.data.GuestChannel
}

func (s *Session) AddFlash(msg string) {
	s.data.Flash = append(s.data.Flash, msg)
}

// Flashes returns and clears pending flash messages.
func (s *Session) Flashes() []string {
	msgs := s.data.Flash
	s.data.Flash = nil
	return msgs
}

func (s *Session) touch(now time.Time) {
	s.data.LastActivity = now
}

func (s *Session) rotate(id string, now time.Time) {
	s.id = id
	s.idChanged = true
	s.data.LastRegenerated = now
}

func (s *Session) reset(id string, now time.Time) {
	s.id = id
	s.idChanged = true
	s.isNew = true
	s.data = Data{
		GuestChannel:    uuid.NewString(),
		CreatedAt:       now,
		LastActivity:    now,
		LastRegenerated: now,
	}
}

func newID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
