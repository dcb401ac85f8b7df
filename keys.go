package mgm

// Keys used in the persisted key-value state store.
const (
	keyUserID           = "mgm_user_id"
	keyAnonymousID      = "mgm_anonymous_id"
	keySessionID        = "mgm_session_id"
	keySuperProperties  = "mgm_super_properties"
	keyIdentifyHash     = "mgm_identify_hash"
	keyIdentifySentAt   = "mgm_identify_sent_at"
	keyExperimentsCache = "mgm_experiments_cache"
	keyLastAppVersion   = "mgm_last_app_version"
)

// Reserved event names emitted by the SDK itself. The $ prefix marks system
// events and is only legal in the leading position.
const (
	EventIdentify        = "$identify"
	EventAppInstalled    = "$app_installed"
	EventAppUpdated      = "$app_updated"
	EventAppOpened       = "$app_opened"
	EventAppForegrounded = "$app_foregrounded"
	EventAppBackgrounded = "$app_backgrounded"
)
