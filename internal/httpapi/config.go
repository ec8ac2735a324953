package httpapi

import "time"

// maxMessageBytes limits the size of one inbound websocket record.
// Default is 1 MiB.
var maxMessageBytes int64 = 1 << 20

// SetMaxMessageBytes configures the inbound record size limit.
func SetMaxMessageBytes(n int64) {
	if n <= 0 {
		maxMessageBytes = 1 << 20
		return
	}
	maxMessageBytes = n
}

// writeTimeout bounds one outbound websocket write. Zero disables the deadline.
var writeTimeout = 10 * time.Second

// SetWriteTimeout sets the per-record write deadline (negative disables).
func SetWriteTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	writeTimeout = d
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added and
// websocket upgrades accept any origin.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}

// originAllowed applies the CORS origin list to websocket upgrades.
func originAllowed(origin string) bool {
	if !corsEnabled || origin == "" {
		return true
	}
	for _, o := range corsAllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
