package model

// Profile is the public view of a user. Follower counts are placeholders
// until following exists; the formatted strings read like "1.2K".
type Profile struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Username          string `json:"username"`
	Bio               string `json:"bio"`
	FollowersCount    string `json:"followersCount"`
	FollowersCountRaw int    `json:"followersCountRaw"`
	FollowingCount    string `json:"followingCount"`
	FollowingCountRaw int    `json:"followingCountRaw"`
	IsFollowing       bool   `json:"isFollowing"`
	IsOwnProfile      bool   `json:"isOwnProfile"`
}

// ProfilePage is a profile with the articles the viewer may see.
type ProfilePage struct {
	User     Profile   `json:"user"`
	Articles []Article `json:"articles"`
}
