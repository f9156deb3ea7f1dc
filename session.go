package authclient

import "fmt"

// State is the session controller state.
type State string

const (
	StateBooting         State = "booting"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

// Snapshot is an immutable view of the session. A new value is produced on
// every transition.
type Snapshot struct {
	State           State
	User            *User
	Token           string
	IsAuthenticated bool
	IsLoading       bool
	// Err is the classified error of the last settle, if any.
	Err error
}

// HasToken reports whether a token is held by the snapshot.
func (s Snapshot) HasToken() bool {
	return s.Token != ""
}

func (s Snapshot) String() string {
	uid := "<nil>"
	if s.User != nil {
		uid = s.User.ID
	}
	return fmt.Sprintf(
		"state=%s user=%s authenticated=%t loading=%t token=%t",
		s.State,
		uid,
		s.IsAuthenticated,
		s.IsLoading,
		s.HasToken(),
	)
}

func bootingSnapshot() Snapshot {
	return Snapshot{State: StateBooting, IsLoading: true}
}

func authenticatedSnapshot(user *User, token string) Snapshot {
	return Snapshot{
		State:           StateAuthenticated,
		User:            user,
		Token:           token,
		IsAuthenticated: true,
	}
}

// unauthenticatedSnapshot optionally keeps a token around, which is what a
// soft verification failure does.
func unauthenticatedSnapshot(keptToken string, err error) Snapshot {
	return Snapshot{
		State: StateUnauthenticated,
		Token: keptToken,
		Err:   err,
	}
}
