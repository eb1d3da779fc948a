package main

type LogLevel int

const (
	LogLevelNone  LogLevel = 0
	LogLevelError LogLevel = 1
	LogLevelWarn  LogLevel = 2
	LogLevelInfo  LogLevel = 3
	LogLevelDebug LogLevel = 4
)

type Options struct {
	LogLevel        LogLevel
	RedisServerAddr string // empty disables the Redis mirror
	RedisServerPort uint16
	CANDevice       string
	ConfigPath      string
	Backend         string // overrides the configured hardware backend when set
}
