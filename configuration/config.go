package configuration

import (
	"os"
	"path"

	"github.com/c2h5oh/datasize"

	"github.com/kraken-torrent/engine/bandwidth"
	"github.com/kraken-torrent/engine/rpc"
	"github.com/kraken-torrent/engine/utils/configutil"
	"github.com/kraken-torrent/engine/utils/log"
)

const (
	defaultConfigDir = "config"
	configDirKey     = "UBER_CONFIG_DIR"
)

// Agent configures the BitTorrent engine embedded in this process.
type Agent struct {
	PieceLength int  `yaml:"piece_length"`
	Backend     int  `yaml:"backend"`
	Seed        bool `yaml:"seed"`
	Debug       bool `yaml:"debug"`
	NoUpload    bool `yaml:"no_upload"`
	Download struct {
		Rate datasize.ByteSize `yaml:"rate"`
	} `yaml:"download"`
	Upload struct {
		Rate datasize.ByteSize `yaml:"rate"`
	} `yaml:"upload"`
	BandwidthGroups map[string]bandwidth.GroupConfig `yaml:"bandwidth_groups"`
}

// BandwidthConfig builds the shared limiter configuration from the agent's
// default rates and named group overrides (spec §5: one token bucket per
// (direction, group)).
func (a Agent) BandwidthConfig() bandwidth.Config {
	return bandwidth.Config{
		DefaultDownloadRate: a.Download.Rate,
		DefaultUploadRate:   a.Upload.Rate,
		Groups:              a.BandwidthGroups,
	}
}

// BandwidthLimiter builds the shared bandwidth.Limiter every torrent's
// ioengine.Engine clamps its transfers against.
func (a Agent) BandwidthLimiter() *bandwidth.Limiter {
	return bandwidth.New(a.BandwidthConfig())
}

// Config is the top-level application configuration.
type Config struct {
	Environment string `yaml:"environment"`
	DownloadDir string `yaml:"download_dir"`
	CacheDir    string `yaml:"cache_dir"`
	TrashDir    string `yaml:"trash_dir"`
	ResumeDir   string `yaml:"resume_dir"`
	WatchDir    string `yaml:"watch_dir"`

	Agent Agent      `yaml:"agent"`
	RPC   rpc.Config `yaml:"rpc"`
}

// NewConfig loads configuration from the default config directory,
// keyed off the UBER_CONFIG_DIR environment variable.
func NewConfig() *Config {
	return NewConfigWithPath(GetConfigFilePath("config.yaml"))
}

// NewConfigWithPath loads configuration from an explicit YAML file path.
func NewConfigWithPath(configPath string) *Config {
	var c Config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("Cannot find config file: %s", configPath)
	}
	log.Infof("Loading configuration from %q", configPath)

	if err := configutil.Load(configPath, &c); err != nil {
		log.Fatal(err)
	}

	log.Info("Configuration loaded.")
	return &c
}

// GetConfigFilePath returns the absolute path of a named config file,
// rooted at UBER_CONFIG_DIR if set, else the "config" directory relative
// to the working directory.
func GetConfigFilePath(filename string) string {
	realConfigDir := defaultConfigDir
	if configRoot := os.Getenv(configDirKey); configRoot != "" {
		realConfigDir = configRoot
	}
	return path.Join(realConfigDir, filename)
}
