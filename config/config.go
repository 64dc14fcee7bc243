package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Graph      GraphConfig
	Image      ImageConfig
	Video      VideoConfig
	FileServer FileServerConfig
	Log        LogConfig

	CaptionHashSuffix string
	FFmpegPath        string
	ServerPort        int
	Concurrency       int

	PostgresURL        string
	PostgresSecretPath string

	TestModeEnabled bool
}

type GraphConfig struct {
	APIVersion      string
	AccessToken     string
	SecretPath      string
	PageID          string
	InstagramUserID string
	PollInterval    time.Duration
	MaxPolls        int
}

type ImageConfig struct {
	MaxWidth  int
	MaxHeight int
	Format    string
	Quality   int
}

type VideoConfig struct {
	MaxWidth        int
	MaxHeight       int
	Codec           string
	Preset          string
	CRF             int
	FPS             int
	MaxBitrate      string
	AudioCodec      string
	AudioBitrate    string
	AudioChannels   int
	AudioSampleRate int
}

type FileServerConfig struct {
	Mode          FileServerMode
	Addr          string
	PublicBaseURL *url.URL
	S3Bucket      string
	S3Prefix      string
	S3PresignTTL  time.Duration
}

type LogConfig struct {
	Level          log.Level
	Format         LogFormat
	FilePath       string
	FileMaxSizeMB  int
	FileMaxBackups int
	FileMaxAgeDays int
}

type LogFormat string

const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// FileServerMode selects how transcoded video is exposed to the Instagram fetcher.
type FileServerMode string

const (
	// Registered on the host server's single public listener
	FileServerModeShared FileServerMode = "shared"
	// Own short-lived listener on FILE_SERVER_ADDR
	FileServerModeDedicated FileServerMode = "dedicated"
	// Presigned S3 object, no inbound port needed
	FileServerModeS3 FileServerMode = "s3"
)

type EnvfileKey string

const (
	// Graph API version used for every call, e.g. "v21.0"
	EnvfileKeyGraphAPIVersion = "GRAPH_API_VERSION"
	// Long-lived user access token; takes precedence over GRAPH_SECRETS_PATH
	EnvfileKeyGraphAccessToken = "GRAPH_ACCESS_TOKEN"
	// AWS Secrets Manager path where the Graph access token can be found
	EnvfileKeyGraphSecretPath = "GRAPH_SECRETS_PATH"
	// Facebook Page that receives the feed post / video
	EnvfileKeyFacebookPageID = "FACEBOOK_PAGE_ID"
	// Instagram business account linked to the page
	EnvfileKeyInstagramUserID = "INSTAGRAM_USER_ID"
	// Seconds between reel container status checks
	EnvfileKeyPollInterval = "POLL_INTERVAL"
	// Number of status checks before giving up on a reel container
	EnvfileKeyMaxPolls = "MAX_POLLS"

	// Appended to every caption unless already present
	EnvfileKeyCaptionHashSuffix = "CAPTION_HASH_SUFFIX"

	EnvfileKeyImageMaxWidth  = "IMAGE_MAX_WIDTH"
	EnvfileKeyImageMaxHeight = "IMAGE_MAX_HEIGHT"
	// Output format of the fallback image conversion (jpeg, png, webp)
	EnvfileKeyImageFormat  = "IMAGE_FORMAT"
	EnvfileKeyImageQuality = "IMAGE_QUALITY"

	EnvfileKeyVideoMaxWidth       = "VIDEO_MAX_WIDTH"
	EnvfileKeyVideoMaxHeight      = "VIDEO_MAX_HEIGHT"
	EnvfileKeyVideoCodec          = "VIDEO_CODEC"
	EnvfileKeyVideoPreset         = "VIDEO_PRESET"
	EnvfileKeyVideoCRF            = "VIDEO_CRF"
	EnvfileKeyVideoFPS            = "VIDEO_FPS"
	EnvfileKeyVideoMaxBitrate     = "VIDEO_MAX_BITRATE"
	EnvfileKeyAudioCodec          = "AUDIO_CODEC"
	EnvfileKeyAudioBitrate        = "AUDIO_BITRATE"
	EnvfileKeyAudioChannels       = "AUDIO_CHANNELS"
	EnvfileKeyAudioSampleRate     = "AUDIO_SAMPLE_RATE"
	EnvfileKeyFFmpegPath          = "FFMPEG_PATH"
	EnvfileKeyPublishConcurrency  = "PUBLISH_CONCURRENCY"
	EnvfileKeyFileServerMode      = "FILE_SERVER_MODE"
	EnvfileKeyFileServerAddr      = "FILE_SERVER_ADDR"
	EnvfileKeyPublicBaseURL       = "PUBLIC_BASE_URL"
	EnvfileKeyServerPort          = "SERVER_PORT"
	EnvfileKeyS3Bucket            = "S3_BUCKET"
	EnvfileKeyS3Prefix            = "S3_PREFIX"
	EnvfileKeyS3PresignTTL        = "S3_PRESIGN_TTL"
	EnvfileKeyPostgresURL         = "POSTGRES_URL"
	EnvfileKeyPostgresSecretsPath = "POSTGRES_SECRETS_PATH"

	// Log level (e.g. "debug", "info", "warn", "error")
	EnvfileKeyLogLevel = "LOG_LEVEL"
	// Log output format (e.g. "text", "json")
	EnvfileKeyLogFormat = "LOG_FORMAT"
	// Optional rotating log file, written in addition to stderr
	EnvfileKeyLogFile           = "LOG_FILE"
	EnvfileKeyLogFileMaxSize    = "LOG_FILE_MAX_SIZE_MB"
	EnvfileKeyLogFileMaxBackups = "LOG_FILE_MAX_BACKUPS"
	EnvfileKeyLogFileMaxAge     = "LOG_FILE_MAX_AGE_DAYS"
	// Enables "test mode" (publishes are simulated)
	EnvfileKeyTestMode = "TEST_MODE"
)

func init() {
	setDefaults()
}

func setDefaults() {
	viper.SetDefault(EnvfileKeyGraphAPIVersion, "v21.0")
	viper.SetDefault(EnvfileKeyPollInterval, 10)
	viper.SetDefault(EnvfileKeyMaxPolls, 30)
	viper.SetDefault(EnvfileKeyImageMaxWidth, 1080)
	viper.SetDefault(EnvfileKeyImageMaxHeight, 1920)
	viper.SetDefault(EnvfileKeyImageFormat, "jpeg")
	viper.SetDefault(EnvfileKeyImageQuality, 2)
	viper.SetDefault(EnvfileKeyVideoMaxWidth, 1080)
	viper.SetDefault(EnvfileKeyVideoMaxHeight, 1920)
	viper.SetDefault(EnvfileKeyVideoCodec, "libx264")
	viper.SetDefault(EnvfileKeyVideoPreset, "medium")
	viper.SetDefault(EnvfileKeyVideoCRF, 23)
	viper.SetDefault(EnvfileKeyVideoFPS, 30)
	viper.SetDefault(EnvfileKeyVideoMaxBitrate, "4500k")
	viper.SetDefault(EnvfileKeyAudioCodec, "aac")
	viper.SetDefault(EnvfileKeyAudioBitrate, "128k")
	viper.SetDefault(EnvfileKeyAudioChannels, 2)
	viper.SetDefault(EnvfileKeyAudioSampleRate, 48000)
	viper.SetDefault(EnvfileKeyFFmpegPath, "ffmpeg")
	viper.SetDefault(EnvfileKeyPublishConcurrency, 1)
	viper.SetDefault(EnvfileKeyFileServerAddr, "0.0.0.0:8081")
	viper.SetDefault(EnvfileKeyServerPort, 8080)
	viper.SetDefault(EnvfileKeyS3Prefix, "crosspublisher/")
	viper.SetDefault(EnvfileKeyS3PresignTTL, 3600)
	viper.SetDefault(EnvfileKeyLogFileMaxSize, 50)
	viper.SetDefault(EnvfileKeyLogFileMaxBackups, 3)
	viper.SetDefault(EnvfileKeyLogFileMaxAge, 7)
}

// FromEnvfile reads .env (if present) plus the environment. defaultMode is the
// file server mode used when FILE_SERVER_MODE is unset, which differs between
// the one-shot publish command and the long-running server.
func FromEnvfile(defaultMode FileServerMode) Config {
	viper.AddConfigPath(".")
	viper.SetConfigName(".env")
	viper.SetConfigType("dotenv")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			log.Fatalf("error reading config: %v", err)
		}
		log.Debug("no .env file found, using environment only")
	}

	cfg, err := Load(defaultMode)
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	return cfg
}

// Load builds a Config from whatever viper and the environment currently hold.
func Load(defaultMode FileServerMode) (Config, error) {
	pageID := getConfigString(EnvfileKeyFacebookPageID)
	if pageID == "" {
		return Config{}, fmt.Errorf("%s must be set", EnvfileKeyFacebookPageID)
	}
	igUserID := getConfigString(EnvfileKeyInstagramUserID)
	if igUserID == "" {
		return Config{}, fmt.Errorf("%s must be set", EnvfileKeyInstagramUserID)
	}

	accessToken := getConfigString(EnvfileKeyGraphAccessToken)
	graphSecretPath := getConfigString(EnvfileKeyGraphSecretPath)
	if accessToken == "" && graphSecretPath == "" {
		return Config{}, fmt.Errorf("graph credentials not configured (set %s or %s)", EnvfileKeyGraphAccessToken, EnvfileKeyGraphSecretPath)
	}

	mode, err := parseFileServerMode(getConfigString(EnvfileKeyFileServerMode), defaultMode)
	if err != nil {
		return Config{}, err
	}

	var publicBase *url.URL
	if raw := getConfigString(EnvfileKeyPublicBaseURL); raw != "" {
		publicBase, err = url.Parse(strings.TrimRight(raw, "/"))
		if err != nil {
			return Config{}, fmt.Errorf("error parsing public base URL: %w", err)
		}
	}

	s3Bucket := getConfigString(EnvfileKeyS3Bucket)
	if mode == FileServerModeS3 && s3Bucket == "" {
		return Config{}, fmt.Errorf("%s must be set when %s=%s", EnvfileKeyS3Bucket, EnvfileKeyFileServerMode, FileServerModeS3)
	}

	logLevel, err := log.ParseLevel(getConfigString(EnvfileKeyLogLevel))
	if err != nil {
		// Default to info level but log a warning
		log.Warnf("unable to parse log level: %v", err)
		logLevel = log.InfoLevel
	}

	logFormat, err := parseLogFormat(getConfigString(EnvfileKeyLogFormat))
	if err != nil {
		// Default to text formatter but log a warning
		log.Warnf("unable to parse log format: %v", err)
		logFormat = LogFormatText
	}

	concurrency := getConfigInt(EnvfileKeyPublishConcurrency)
	if concurrency < 1 {
		concurrency = 1
	}

	return Config{
		Graph: GraphConfig{
			APIVersion:      getConfigString(EnvfileKeyGraphAPIVersion),
			AccessToken:     accessToken,
			SecretPath:      graphSecretPath,
			PageID:          pageID,
			InstagramUserID: igUserID,
			PollInterval:    time.Duration(getConfigInt(EnvfileKeyPollInterval)) * time.Second,
			MaxPolls:        getConfigInt(EnvfileKeyMaxPolls),
		},
		Image: ImageConfig{
			MaxWidth:  getConfigInt(EnvfileKeyImageMaxWidth),
			MaxHeight: getConfigInt(EnvfileKeyImageMaxHeight),
			Format:    strings.ToLower(getConfigString(EnvfileKeyImageFormat)),
			Quality:   getConfigInt(EnvfileKeyImageQuality),
		},
		Video: VideoConfig{
			MaxWidth:        getConfigInt(EnvfileKeyVideoMaxWidth),
			MaxHeight:       getConfigInt(EnvfileKeyVideoMaxHeight),
			Codec:           getConfigString(EnvfileKeyVideoCodec),
			Preset:          getConfigString(EnvfileKeyVideoPreset),
			CRF:             getConfigInt(EnvfileKeyVideoCRF),
			FPS:             getConfigInt(EnvfileKeyVideoFPS),
			MaxBitrate:      getConfigString(EnvfileKeyVideoMaxBitrate),
			AudioCodec:      getConfigString(EnvfileKeyAudioCodec),
			AudioBitrate:    getConfigString(EnvfileKeyAudioBitrate),
			AudioChannels:   getConfigInt(EnvfileKeyAudioChannels),
			AudioSampleRate: getConfigInt(EnvfileKeyAudioSampleRate),
		},
		FileServer: FileServerConfig{
			Mode:          mode,
			Addr:          getConfigString(EnvfileKeyFileServerAddr),
			PublicBaseURL: publicBase,
			S3Bucket:      s3Bucket,
			S3Prefix:      getConfigString(EnvfileKeyS3Prefix),
			S3PresignTTL:  time.Duration(getConfigInt(EnvfileKeyS3PresignTTL)) * time.Second,
		},
		Log: LogConfig{
			Level:          logLevel,
			Format:         logFormat,
			FilePath:       getConfigString(EnvfileKeyLogFile),
			FileMaxSizeMB:  getConfigInt(EnvfileKeyLogFileMaxSize),
			FileMaxBackups: getConfigInt(EnvfileKeyLogFileMaxBackups),
			FileMaxAgeDays: getConfigInt(EnvfileKeyLogFileMaxAge),
		},
		CaptionHashSuffix:  getConfigString(EnvfileKeyCaptionHashSuffix),
		FFmpegPath:         getConfigString(EnvfileKeyFFmpegPath),
		ServerPort:         getConfigInt(EnvfileKeyServerPort),
		Concurrency:        concurrency,
		PostgresURL:        getConfigString(EnvfileKeyPostgresURL),
		PostgresSecretPath: getConfigString(EnvfileKeyPostgresSecretsPath),
		TestModeEnabled:    getConfigBool(EnvfileKeyTestMode),
	}, nil
}

// LedgerEnabled reports whether a Postgres publish ledger is configured.
func (c Config) LedgerEnabled() bool {
	return c.PostgresURL != "" || c.PostgresSecretPath != ""
}

func parseLogFormat(raw string) (LogFormat, error) {
	switch strings.ToLower(raw) {
	case LogFormatJSON:
		return LogFormatJSON, nil
	case LogFormatText:
		return LogFormatText, nil
	default:
		return "", fmt.Errorf("unidentified log format: %s", raw)
	}
}

func parseFileServerMode(raw string, fallback FileServerMode) (FileServerMode, error) {
	switch FileServerMode(strings.ToLower(raw)) {
	case "":
		return fallback, nil
	case FileServerModeShared:
		return FileServerModeShared, nil
	case FileServerModeDedicated:
		return FileServerModeDedicated, nil
	case FileServerModeS3:
		return FileServerModeS3, nil
	default:
		return "", fmt.Errorf("unidentified file server mode: %s", raw)
	}
}

// Gets a config value as a string from env vars or a .env file
func getConfigString(key string) string {
	value := os.Getenv(key)
	if value == "" {
		value = viper.GetString(key)
	}
	return value
}

// Gets a config value as an int from env vars or a .env file
func getConfigInt(key string) int {
	envVarValue := os.Getenv(key)
	if envVarValue == "" {
		return viper.GetInt(key)
	}
	value, err := strconv.Atoi(envVarValue)
	if err != nil {
		log.Warnf("ignoring non-integer value for %s: %q", key, envVarValue)
		return viper.GetInt(key)
	}
	return value
}

func getConfigBool(key string) bool {
	envVarValue := os.Getenv(key)
	if envVarValue == "" {
		return viper.GetBool(key)
	}
	value, err := strconv.ParseBool(envVarValue)
	if err != nil {
		return false
	}
	return value
}
