// Package config 加载播放器配置：可选的 YAML 配置文件打底，
// 环境变量（含 .env）覆盖，最后落默认值。
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 播放器运行配置
type Config struct {
	LibraryDirs      []string      `yaml:"library_dirs"`        // 曲库目录
	DataDir          string        `yaml:"data_dir"`            // SQLite数据库文件存放目录
	DBFileName       string        `yaml:"db_file_name"`        // SQLite数据库文件名
	DBPath           string        `yaml:"-"`                   // 完整的数据库文件路径
	FFmpegPath       string        `yaml:"ffmpeg_path"`         // FFmpeg 可执行文件路径
	FFprobePath      string        `yaml:"ffprobe_path"`        // FFprobe 可执行文件路径
	MPRISService     string        `yaml:"mpris_service"`       // 轮询的 MPRIS 播放器服务名
	PollInterval     time.Duration `yaml:"poll_interval"`       // 播放位置轮询间隔
	RescanDelay      time.Duration `yaml:"rescan_delay"`        // 文件变动后的重扫延迟
	DisplayLines     int           `yaml:"display_lines"`       // 歌词输出的行数
	DisplayOutput    string        `yaml:"display_output"`      // 歌词输出文件路径
	ConvertTradToSim bool          `yaml:"convert_trad_to_sim"` // 是否把繁体歌词转为简体
	DefaultEncoding  string        `yaml:"default_encoding"`    // 没有偏好记录时的编码提示
}

const (
	defaultDataDir      = "data"
	defaultDBFileName   = "melody.db"
	defaultFFmpeg       = "ffmpeg"
	defaultFFprobe      = "ffprobe"
	defaultMPRISService = "org.mpris.MediaPlayer2.mpv"
	defaultPollInterval = 200 * time.Millisecond
	defaultRescanDelay  = 5 * time.Second
	defaultDisplayLines = 2
	defaultDisplayOut   = "/dev/stdout"
	defaultEncoding     = "auto"
)

// LoadConfig 按 配置文件 < 环境变量 < 默认值兜底 的顺序加载配置。
// configPath 为空时尝试 MELODY_CONFIG 指定的文件或当前目录的 melody.yaml。
func LoadConfig(configPath string, logger *log.Logger) (*Config, error) {
	// 尝试加载 .env 文件
	_ = godotenv.Load()

	cfg := &Config{}

	if configPath == "" {
		configPath = os.Getenv("MELODY_CONFIG")
	}
	if configPath == "" {
		if _, err := os.Stat("melody.yaml"); err == nil {
			configPath = "melody.yaml"
		}
	}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
		logger.Printf("Loaded config file: %s", configPath)
	}

	applyEnv(cfg, logger)
	applyDefaults(cfg)

	// 确认数据目录存在
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", cfg.DataDir, err)
	}
	cfg.DBPath = filepath.Join(cfg.DataDir, cfg.DBFileName)

	logger.Printf("Configuration loaded: LibraryDirs=%v, DataDir=%s, DBPath=%s, MPRISService=%s",
		cfg.LibraryDirs, cfg.DataDir, cfg.DBPath, cfg.MPRISService)
	return cfg, nil
}

// applyEnv 用环境变量覆盖配置文件的值
func applyEnv(cfg *Config, logger *log.Logger) {
	if v := os.Getenv("LIBRARY_DIRS"); v != "" {
		cfg.LibraryDirs = splitAndTrim(v)
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("DB_FILE_NAME"); v != "" {
		cfg.DBFileName = v
	}
	if v := os.Getenv("FFMPEG_PATH"); v != "" {
		cfg.FFmpegPath = v
	}
	if v := os.Getenv("FFPROBE_PATH"); v != "" {
		cfg.FFprobePath = v
	}
	if v := os.Getenv("MPRIS_SERVICE"); v != "" {
		cfg.MPRISService = v
	}
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		cfg.PollInterval = parseDurationOrDefault(v, cfg.PollInterval, logger)
	}
	if v := os.Getenv("RESCAN_DELAY"); v != "" {
		cfg.RescanDelay = parseDurationOrDefault(v, cfg.RescanDelay, logger)
	}
	if v := os.Getenv("DISPLAY_LINES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DisplayLines = n
		}
	}
	if v := os.Getenv("DISPLAY_OUTPUT"); v != "" {
		cfg.DisplayOutput = v
	}
	if v := os.Getenv("CONVERT_TRAD_TO_SIM"); v != "" {
		cfg.ConvertTradToSim = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("DEFAULT_ENCODING"); v != "" {
		cfg.DefaultEncoding = v
	}
}

// applyDefaults 填充缺失的配置项
func applyDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir
	}
	if cfg.DBFileName == "" {
		cfg.DBFileName = defaultDBFileName
	}
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = defaultFFmpeg
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = defaultFFprobe
	}
	if cfg.MPRISService == "" {
		cfg.MPRISService = defaultMPRISService
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.RescanDelay <= 0 {
		cfg.RescanDelay = defaultRescanDelay
	}
	if cfg.DisplayLines <= 0 {
		cfg.DisplayLines = defaultDisplayLines
	}
	if cfg.DisplayOutput == "" {
		cfg.DisplayOutput = defaultDisplayOut
	}
	if cfg.DefaultEncoding == "" {
		cfg.DefaultEncoding = defaultEncoding
	}
}

func parseDurationOrDefault(s string, defaultValue time.Duration, logger *log.Logger) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		logger.Printf("Warning: Could not parse duration '%s', using default '%v'. Error: %v", s, defaultValue, err)
		return defaultValue
	}
	return d
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
