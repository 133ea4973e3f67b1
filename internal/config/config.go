package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Motor controller (serial)
	MotorPort string
	MotorBaud int

	// Control tablet link
	ControlTransport  string
	ControlPort       string
	ControlBaud       int
	ControlListenAddr string
	ReconnectDelay    time.Duration

	// Vision companion
	VisionListenAddr string
	VisionTrigger    string

	// Planner service
	PlannerURL     string
	PlannerTimeout time.Duration
	CompileLocally bool

	// Initial pose
	InitialX   int
	InitialY   int
	InitialDir int

	// Redis
	RedisEnabled  bool
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MQTT
	MQTTEnabled     bool
	MQTTBroker      string
	MQTTClientID    string
	MQTTUsername    string
	MQTTPassword    string
	MQTTTopicPrefix string

	// Application
	APIAddr    string
	LogLevel   string
	AckTimeout time.Duration
}

// Control transport 종류
const (
	ControlTransportSerial = "serial"
	ControlTransportTCP    = "tcp"
)

// Load .env 파일과 환경 변수에서 설정 로드
func Load() (*Config, error) {
	// .env 파일이 없어도 환경 변수만으로 동작
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	plannerTimeout := getEnvInt("PLANNER_TIMEOUT_SECONDS", 30)
	ackTimeout := getEnvInt("ACK_TIMEOUT_SECONDS", 0)
	reconnectDelay := getEnvInt("RECONNECT_DELAY_SECONDS", 1)

	return &Config{
		MotorPort:         getEnv("MOTOR_PORT", "/dev/ttyUSB0"),
		MotorBaud:         getEnvInt("MOTOR_BAUD", 115200),
		ControlTransport:  strings.ToLower(getEnv("CONTROL_TRANSPORT", ControlTransportSerial)),
		ControlPort:       getEnv("CONTROL_PORT", "/dev/rfcomm0"),
		ControlBaud:       getEnvInt("CONTROL_BAUD", 9600),
		ControlListenAddr: getEnv("CONTROL_LISTEN_ADDR", ":5182"),
		ReconnectDelay:    time.Duration(reconnectDelay) * time.Second,
		VisionListenAddr:  getEnv("VISION_LISTEN_ADDR", ":12345"),
		VisionTrigger:     getEnv("VISION_TRIGGER", "Capture"),
		PlannerURL:        strings.TrimRight(getEnv("PLANNER_URL", "http://localhost:5000"), "/"),
		PlannerTimeout:    time.Duration(plannerTimeout) * time.Second,
		CompileLocally:    getEnvBool("COMPILE_LOCALLY", false),
		InitialX:          getEnvInt("INITIAL_X", 1),
		InitialY:          getEnvInt("INITIAL_Y", 1),
		InitialDir:        getEnvInt("INITIAL_DIR", 0),
		RedisEnabled:      getEnvBool("REDIS_ENABLED", false),
		RedisHost:         getEnv("REDIS_HOST", "localhost"),
		RedisPort:         getEnv("REDIS_PORT", "6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		MQTTEnabled:       getEnvBool("MQTT_ENABLED", false),
		MQTTBroker:        getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID:      getEnv("MQTT_CLIENT_ID", "robot-pipeline"),
		MQTTUsername:      getEnv("MQTT_USERNAME", ""),
		MQTTPassword:      getEnv("MQTT_PASSWORD", ""),
		MQTTTopicPrefix:   strings.TrimRight(getEnv("MQTT_TOPIC_PREFIX", "robot/telemetry"), "/"),
		APIAddr:           getEnv("API_ADDR", ":8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		AckTimeout:        time.Duration(ackTimeout) * time.Second,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}
