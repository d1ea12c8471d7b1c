package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds the runtime settings of the monitor executables
type Config struct {
	// DetectorURL is the prediction endpoint of the model server
	DetectorURL string `validate:"required,url"`
	// DetectorTimeout bounds each detection request
	DetectorTimeout time.Duration `validate:"gt=0"`
	// DetectorFormat is the response format of the model server
	DetectorFormat string `validate:"oneof=detections yolov5face"`
	// PoolSize is the number of detectors used in parallel
	PoolSize int `validate:"gte=1,lte=32"`
	// Source is a webcam device id or a video file path
	Source string `validate:"required"`
	// Interval is the cadence frames are sampled and classified at
	Interval time.Duration `validate:"gte=10ms"`
	// DisplayWidth and DisplayHeight are the initial displayed surface size
	DisplayWidth  int `validate:"gt=0"`
	DisplayHeight int `validate:"gt=0"`
	// Fit is the CSS object-fit mode, "cover" or "contain"
	Fit string `validate:"oneof=cover contain"`
	// HTTPAddr is the address the stream server listens on
	HTTPAddr string `validate:"required,hostname_port"`
	// Labels is a comma delimited list of category labels to render
	Labels string
	// HistorySize is the number of events kept in the display log
	HistorySize int `validate:"gte=1"`
	// RedisAddr enables publishing frame events to redis when set
	RedisAddr     string `validate:"omitempty,hostname_port"`
	RedisPassword string
	RedisDB       int    `validate:"gte=0"`
	RedisChannel  string `validate:"required_with=RedisAddr"`
	// LogLevel and LogFile configure logging
	LogLevel string `validate:"oneof=trace debug info warn error"`
	LogFile  string
}

// Default returns the default configuration, overridden by any FACEWATCH_*
// environment variables
func Default() Config {
	return Config{
		DetectorURL:     env("FACEWATCH_DETECTOR_URL", "http://localhost:8080/predictions/face"),
		DetectorTimeout: envDuration("FACEWATCH_DETECTOR_TIMEOUT", 2*time.Second),
		DetectorFormat:  env("FACEWATCH_DETECTOR_FORMAT", "detections"),
		PoolSize:        envInt("FACEWATCH_POOL_SIZE", 2),
		Source:          env("FACEWATCH_SOURCE", "0"),
		Interval:        envDuration("FACEWATCH_INTERVAL", time.Second),
		DisplayWidth:    envInt("FACEWATCH_DISPLAY_WIDTH", 640),
		DisplayHeight:   envInt("FACEWATCH_DISPLAY_HEIGHT", 480),
		Fit:             env("FACEWATCH_FIT", "cover"),
		HTTPAddr:        env("FACEWATCH_HTTP_ADDR", "localhost:8090"),
		Labels:          env("FACEWATCH_LABELS", ""),
		HistorySize:     envInt("FACEWATCH_HISTORY_SIZE", 50),
		RedisAddr:       env("FACEWATCH_REDIS_ADDR", ""),
		RedisPassword:   env("FACEWATCH_REDIS_PASSWORD", ""),
		RedisDB:         envInt("FACEWATCH_REDIS_DB", 0),
		RedisChannel:    env("FACEWATCH_REDIS_CHANNEL", "facewatch:events"),
		LogLevel:        env("FACEWATCH_LOG_LEVEL", "info"),
		LogFile:         env("FACEWATCH_LOG_FILE", ""),
	}
}

// LoadEnv reads a .env file into the process environment.  A missing file
// is not an error
func LoadEnv(files ...string) error {

	err := godotenv.Load(files...)

	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error loading env file: %w", err)
	}

	return nil
}

// RegisterFlags binds the configuration to command line flags using the
// current values as defaults
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.DetectorURL, "d", c.DetectorURL, "Detection model server prediction URL")
	fs.DurationVar(&c.DetectorTimeout, "dt", c.DetectorTimeout, "Timeout for each detection request")
	fs.StringVar(&c.DetectorFormat, "df", c.DetectorFormat, "Detection model server response format [detections|yolov5face]")
	fs.IntVar(&c.PoolSize, "s", c.PoolSize, "Number of detectors to run in parallel")
	fs.StringVar(&c.Source, "v", c.Source, "Webcam device id or video file to monitor")
	fs.DurationVar(&c.Interval, "i", c.Interval, "Interval between processed frames")
	fs.IntVar(&c.DisplayWidth, "w", c.DisplayWidth, "Initial displayed width")
	fs.IntVar(&c.DisplayHeight, "h", c.DisplayHeight, "Initial displayed height")
	fs.StringVar(&c.Fit, "f", c.Fit, "Display fit mode [cover|contain]")
	fs.StringVar(&c.HTTPAddr, "a", c.HTTPAddr, "HTTP Address to run server on, format address:port")
	fs.StringVar(&c.Labels, "x", c.Labels, "Comma delimited list of labels to restrict rendering to")
	fs.IntVar(&c.HistorySize, "n", c.HistorySize, "Number of events to keep in the display log")
	fs.StringVar(&c.RedisAddr, "redis", c.RedisAddr, "Redis address to publish frame events to, empty to disable")
	fs.StringVar(&c.RedisChannel, "redis-channel", c.RedisChannel, "Redis channel frame events are published on")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level [trace|debug|info|warn|error]")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "Rotated log file path, empty to disable")
}

// Validate checks the configuration values
func (c *Config) Validate() error {

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}

func env(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}
