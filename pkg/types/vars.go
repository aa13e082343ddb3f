package types

import (
	"time"
)

var (
	GO_DYNFILE_VERSION string
	GO_VERSION         string
	COMMIT_ID          string
	BUILD_TIME         string
)

const (
	PANIC_LOG_PREFIX = "go-dynfile-"
	PANIC_LOG_SUFFIX = "-stderr.log"

	// default value
	DEFAULT_LEVEL             = "info"
	DEFAULT_LOG_MAX_AGE       = 72 * time.Hour
	DEFAULT_LOG_ROTATION_TIME = 1 * time.Hour
	DEFAULT_LISTEN            = "127.0.0.1:8899"
	DEFAULT_ENCODING          = "none"
	DEFAULT_NODE_NAME         = "default"
	DEFAULT_DRAIN_TIMEOUT     = 30 * time.Second
	DEFAULT_STATUS_DELAY      = 333 * time.Millisecond
	DEFAULT_FILE_MODE         = 0666
	DEFAULT_DIR_MODE          = 0755

	// encoding selector that defers to msg.encoding
	EncodingSetByMsg = "setbymsg"
	EncodingNone     = "none"
)
