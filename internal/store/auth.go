package store

// AuthState models three reachable states: checking, logged out
// (Checking=false, IsLoggedIn=false) and logged in (IsLoggedIn=true).
type AuthState struct {
	Checking   bool
	UID        string
	Name       string
	IsLoggedIn bool
}

type AuthChecking struct{}

type AuthLoggedIn struct {
	UID  string
	Name string
}

type AuthLoggedOut struct{}

func (AuthChecking) ActionType() string { return "auth/checking" }
func (AuthLoggedIn) ActionType() string { return "auth/loggedIn" }
func (AuthLoggedOut) ActionType() string { return "auth/loggedOut" }

func reduceAuth(s AuthState, action Action) AuthState {
	switch a := action.(type) {
	case AuthChecking:
		return AuthState{Checking: true}
	case AuthLoggedIn:
		return AuthState{UID: a.UID, Name: a.Name, IsLoggedIn: true}
	case AuthLoggedOut:
		return AuthState{}
	}
	return s
}
