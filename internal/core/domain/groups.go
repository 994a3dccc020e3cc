package domain

// Well-known broadcast groups. Every authenticated connection joins the
// feed, its own user group and the status group; admins additionally join
// the admin group.
const (
	GroupPostsFeed     = "posts_feed"
	GroupStatusUpdates = "status_updates"
	GroupAdmin         = "admin_notifications"
)

func PostGroup(postID string) string { return "post_" + postID }
func UserGroup(userID string) string { return "user_" + userID }
