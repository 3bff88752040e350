package constants

// Redis key prefixes and formats.
// Naming scheme: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix is the shared prefix of every Redis key the service owns.
	AppPrefix = "app"

	// FileModulePrefix groups keys about uploaded files.
	FileModulePrefix = "file"
	// BuilderModulePrefix groups keys about interactive builder sessions.
	BuilderModulePrefix = "builder"

	// EntityDedupSet is the deduplication set entity.
	EntityDedupSet = "dedup_set"
	// EntityMD5ToUUID maps a file fingerprint to its submission UUID.
	EntityMD5ToUUID = "md5_to_uuid"
	// EntitySession is the builder session entity.
	EntitySession = "session"

	// KeyFileMD5Set holds MD5 fingerprints of every accepted upload (SET).
	// Format: app:file:dedup_set
	KeyFileMD5Set = AppPrefix + ":" + FileModulePrefix + ":" + EntityDedupSet

	// KeyTextMD5Set holds MD5 fingerprints of extracted CV text (SET).
	// Format: app:file:text_dedup_set
	KeyTextMD5Set = AppPrefix + ":" + FileModulePrefix + ":text_" + EntityDedupSet

	// KeyFileMD5ToSubmissionUUID maps an MD5 to its submission (STRING).
	// Format: app:file:md5_to_uuid:{md5}
	KeyFileMD5ToSubmissionUUID = AppPrefix + ":" + FileModulePrefix + ":" + EntityMD5ToUUID + ":%s"

	// KeyBuilderSession stores one builder session as JSON (STRING).
	// Format: app:builder:session:{sessionID}
	KeyBuilderSession = AppPrefix + ":" + BuilderModulePrefix + ":" + EntitySession + ":%s"
)
