package domain

// Permission names consulted by the review queue.
const (
	PermInitialReview  = "perform initial article review"
	PermAbstractReview = "perform abstract article review"
	PermFullTextReview = "perform full text article review"
	PermAllTopics      = "perform all topic reviews"
)

// User is a reviewer together with assignments and saved queue preferences.
type User struct {
	ID          int64
	Name        string
	Permissions map[string]bool
	Boards      []int64
	Topics      []int64
	Defaults    ReviewDefaults
}

// ReviewDefaults are the display options a reviewer saved with "Save as Default".
type ReviewDefaults struct {
	Sort         string
	Format       string
	PerPage      int
	ReviewBoards string
}

// HasPermission reports whether the permission is in the user's loaded set.
func (u User) HasPermission(name string) bool {
	return u.Permissions[name]
}

// AssignedToBoard reports whether the board is one of the user's boards.
func (u User) AssignedToBoard(boardID int64) bool {
	return containsID(u.Boards, boardID)
}

// AssignedToTopic reports whether the topic is one of the user's topics.
func (u User) AssignedToTopic(topicID int64) bool {
	return containsID(u.Topics, topicID)
}

// DefaultBoard is the board a fresh queue starts filtered on.
func (u User) DefaultBoard() int64 {
	if len(u.Boards) == 0 {
		return 0
	}
	return u.Boards[0]
}

func containsID(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
