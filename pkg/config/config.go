package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// NodeConf describes one output target; each node is served by its own engine.
type NodeConf struct {
	Name          string
	Filename      string
	Mode          string
	AppendNewline bool
	CreateDir     bool
	Encoding      string
}

type DynfileConfig struct {
	ModifiedTime time.Time
	ConfigFile   string
	Foreground   bool
	PidFile      string

	WorkingDir string
	Listen     string

	Log_level       logrus.Level
	LogDir          string
	LogMaxAge       time.Duration
	LogRotationTime time.Duration
	UseSyslog       bool

	DrainTimeout time.Duration

	Nodes []NodeConf
}

var (
	gConfig *DynfileConfig
	cfgLock sync.RWMutex
)

func GetGConfig() *DynfileConfig {
	cfgLock.RLock()
	defer cfgLock.RUnlock()

	return gConfig
}

func SetGConfig(cfg *DynfileConfig) {
	cfgLock.Lock()
	defer cfgLock.Unlock()

	gConfig = cfg
}

type FileNodeConfig struct {
	Name          string `yaml:"name"`
	Filename      string `yaml:"filename"`
	Mode          string `yaml:"mode"`
	OverwriteFile string `yaml:"overwrite_file"`
	AppendNewline bool   `yaml:"append_newline"`
	CreateDir     bool   `yaml:"create_dir"`
	Encoding      string `yaml:"encoding"`
}

type FileConfig struct {
	WorkingDir      string           `yaml:"working_dir"`
	Listen          string           `yaml:"listen"`
	Log_level       string           `yaml:"level"`
	LogDir          string           `yaml:"log_dir"`
	LogMaxAge       string           `yaml:"log_max_age"`
	LogRotationTime string           `yaml:"log_rotation_time"`
	DrainTimeout    string           `yaml:"drain_timeout"`
	Nodes           []FileNodeConfig `yaml:"nodes"`
}

func LoadFile(path string) (*FileConfig, time.Time, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, err
	}

	y, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, err
	}

	var fc FileConfig
	err = yaml.Unmarshal(y, &fc)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("parse config yaml %s: %w", path, err)
	}
	return &fc, fi.ModTime(), nil
}

// NodeConf folds the Node-RED overwrite_file spelling into Mode.
func (n FileNodeConfig) NodeConf() NodeConf {
	mode := n.Mode
	if mode == "" {
		mode = n.OverwriteFile
	}
	return NodeConf{
		Name:          n.Name,
		Filename:      n.Filename,
		Mode:          mode,
		AppendNewline: n.AppendNewline,
		CreateDir:     n.CreateDir,
		Encoding:      n.Encoding,
	}
}

func ParseDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value %s for %s: %w", value, name, err)
	}
	return d, nil
}

func (c *DynfileConfig) Validate() error {
	if len(c.Nodes) == 0 {
		return errors.New("no node configured, use --filename/--mode or a config file")
	}

	seen := make(map[string]struct{}, len(c.Nodes))
	for _, n := range c.Nodes {
		if n.Name == "" {
			return errors.New("node name is required")
		}
		if strings.ContainsAny(n.Name, " \t\n") {
			return fmt.Errorf("node name %q contains whitespace", n.Name)
		}
		if _, dup := seen[n.Name]; dup {
			return fmt.Errorf("duplicate node name %q", n.Name)
		}
		seen[n.Name] = struct{}{}
	}
	return nil
}
