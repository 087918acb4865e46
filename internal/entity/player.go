package entity

// Player is a directory entry for a user that can hold a seat.
type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// DisplayName falls back to the id when no name is known.
func (that *Player) DisplayName() string {
	if that.Name == "" {
		return that.ID
	}
	return that.Name
}
