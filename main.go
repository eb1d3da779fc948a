package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"brake-service/config"
)

var (
	version            = flag.Bool("version", false, "Print version info")
	help               = flag.Bool("help", false, "Print help")
	logLevel           = flag.Int("log", 3, "Log level (0=NONE, 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG)")
	redisServer        = flag.String("redis_server", "127.0.0.1", "Redis server address (empty disables the status mirror)")
	redisPort          = flag.Int("redis_port", 6379, "Redis server port")
	canDevice          = flag.String("can_device", "can0", "CAN device name")
	configPath         = flag.String("config", "/etc/brake-service.yaml", "Tuning and pin mapping file")
	hardware           = flag.String("hardware", "", "Hardware backend override (linux or sim)")
	writeDefaultConfig = flag.Bool("write_default_config", false, "Write the default configuration to -config and exit")
)

const (
	ProjectName    = "brake-service"
	ProjectVersion = "1.0.0"
)

func printVersion() {
	fmt.Printf("%s v%s\n", ProjectName, ProjectVersion)
}

func printHelp() {
	printVersion()
	flag.PrintDefaults()
}

func main() {
	flag.Parse()

	if *version {
		printVersion()
		os.Exit(0)
	}

	if *help {
		printHelp()
		os.Exit(0)
	}

	if *logLevel < 0 || *logLevel > 4 {
		log.Fatalf("invalid log level %d", *logLevel)
	}

	if *writeDefaultConfig {
		if err := config.Default().Save(*configPath); err != nil {
			log.Fatalf("failed to write default config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		os.Exit(0)
	}

	switch *hardware {
	case "", BackendLinux, BackendSim:
	default:
		log.Fatalf("invalid hardware backend: %s (must be 'linux' or 'sim')", *hardware)
	}

	logger := NewLeveledLogger(log.New(os.Stderr, fmt.Sprintf("%s: ", ProjectName), log.LstdFlags), LogLevel(*logLevel))

	opts := &Options{
		LogLevel:        LogLevel(*logLevel),
		RedisServerAddr: *redisServer,
		RedisServerPort: uint16(*redisPort),
		CANDevice:       *canDevice,
		ConfigPath:      *configPath,
		Backend:         *hardware,
	}

	app, err := NewBrakeApp(opts, logger)
	if err != nil {
		logger.Fatalf("failed to create brake app: %v", err)
	}
	defer app.Destroy()

	// Handle SIGINT and SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
}
