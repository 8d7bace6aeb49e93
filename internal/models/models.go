package models

// User represents a registered user.
type User struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	PwHash    string `json:"-"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// Tweet represents one posted message.
type Tweet struct {
	TweetID  int64  `json:"tweet_id"`
	Message  string `json:"message"`
	AuthorID int64  `json:"author_id"`
}

// TweetPatch carries a partial tweet update. A nil field was absent from the
// request and keeps its stored value.
type TweetPatch struct {
	Message  *string `json:"message"`
	AuthorID *int64  `json:"author_id"`
}

func (p TweetPatch) Empty() bool {
	return p.Message == nil && p.AuthorID == nil
}

// UserPatch carries a partial user update. There is no username field; it is
// fixed at registration.
type UserPatch struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
}

func (p UserPatch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil && p.Password == nil
}
