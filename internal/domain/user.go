package domain

import "time"

// User represents a registered account holder.
type User struct {
	ID       uint32
	Email    string
	FullName string
	Username string
	// Password holds whatever the configured password hasher stores.
	Password string
	// Sessions is the set of session sequence numbers that are currently valid.
	Sessions map[uint64]struct{}
	// NextSession is the sequence number handed to the next login. It only grows.
	NextSession uint64
	CreatedAt   time.Time
}

// Session identifies one login of one user. It is what a signed token carries.
type Session struct {
	UserID    uint32
	SessionID uint64
}

// Clone returns a deep copy so callers never share the session set with a store.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Sessions = make(map[uint64]struct{}, len(u.Sessions))
	for sid := range u.Sessions {
		clone.Sessions[sid] = struct{}{}
	}
	return &clone
}
