package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type Upstream struct {
	BaseURL        string        `yaml:"baseUrl" validate:"required|fullUrl"`
	StatusInterval time.Duration `yaml:"statusInterval" validate:"required|min:1"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	SearchLimit    int           `yaml:"searchLimit"`
}

type DocStore struct {
	BaseURL  string        `yaml:"baseUrl" validate:"required|fullUrl"`
	WatchURL string        `yaml:"watchUrl" validate:"required"`
	Timeout  time.Duration `yaml:"timeout"`
}

type Snapshot struct {
	Dir           string        `yaml:"dir" validate:"required|unixPath"`
	SyncWrites    bool          `yaml:"syncWrites"`
	GCInterval    time.Duration `yaml:"gcInterval"`
	FlushInterval time.Duration `yaml:"flushInterval" validate:"required|min:1"`
}

type Downloads struct {
	Dir string `yaml:"dir" validate:"required|unixPath"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName   string
	Debug     bool
	Path      string
	WebServer Server        `yaml:"webServer"`
	Upstream  Upstream      `yaml:"upstream"`
	DocStore  DocStore      `yaml:"docStore"`
	Snapshot  Snapshot      `yaml:"snapshot"`
	Downloads Downloads     `yaml:"downloads"`
	Logger    LoggerConfig  `yaml:"logger"`
	Cache     CacheConfig   `yaml:"cache"`
	Metrics   MetricsConfig `yaml:"metrics"`
}
