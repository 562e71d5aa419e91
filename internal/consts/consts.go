package consts

// Redis key prefixes shared by the query cache and the settings store.
const (
	ReplayKeyPrefix        = "replay:"
	TimelineKeyPrefix      = "timeline:"
	StatisticsKeyPrefix    = "stats:"
	UsersKey               = "users"
	OverviewKey            = "overview"
	NotificationsKeyPrefix = "notifications:"
	UnreadCountKeyPrefix   = "unread:"
	SettingsKeyPrefix      = "settings:"
)
