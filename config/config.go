// Package config loads the TOML description of a host process: which contracts it serves,
// on which transports, and how.
//
//	log_level = "info"
//
//	[registry]
//	endpoints = ["127.0.0.1:2379"]
//
//	[[endpoint]]
//	name      = "computingEndpoint"
//	contract  = "computing"
//	transport = "pipe"
//
//	[[endpoint]]
//	name      = "systemEndpoint"
//	contract  = "system"
//	transport = "tcp"
//	address   = "127.0.0.1"
//	port      = 45684
package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"ipc-service/codec"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

const (
	TransportPipe = "pipe"
	TransportTCP  = "tcp"
)

// Duration is a time.Duration written as a Go duration string ("250ms", "5s").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type Config struct {
	LogLevel  string     `toml:"log_level"`
	Codec     string     `toml:"codec"` // default for endpoints that do not set one
	Registry  *Registry  `toml:"registry"`
	Endpoints []Endpoint `toml:"endpoint"`
}

// Registry enables publishing TCP endpoints to etcd.
type Registry struct {
	Endpoints     []string `toml:"endpoints"`
	TTL           int64    `toml:"ttl"`
	AdvertiseHost string   `toml:"advertise_host"`
	DialTimeout   Duration `toml:"dial_timeout"` // etcd connection timeout, 5s when unset
}

type Endpoint struct {
	Name      string `toml:"name"`
	Contract  string `toml:"contract"`
	Transport string `toml:"transport"`

	// pipe
	PipeName string `toml:"pipe_name"` // defaults to Name

	// tcp
	Address  string `toml:"address"`
	Port     int    `toml:"port"`
	CertFile string `toml:"cert_file"`
	KeyFile  string `toml:"key_file"`
	Weight   int    `toml:"weight"`

	Codec           string   `toml:"codec"`
	Concurrent      bool     `toml:"concurrent"`
	ExchangeTimeout Duration `toml:"exchange_timeout"`
	HandlerTimeout  Duration `toml:"handler_timeout"`
	RateLimit       float64  `toml:"rate_limit"` // requests per second, 0 disables
	RateBurst       int      `toml:"rate_burst"`
}

// Load reads and validates the file at path. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}
	return finish(&cfg, md)
}

// Parse reads and validates a TOML document.
func Parse(data string) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	return finish(&cfg, md)
}

func finish(cfg *Config, md toml.MetaData) (*Config, error) {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("%w: unknown keys %s", ErrInvalid, strings.Join(keys, ", "))
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	for i := range c.Endpoints {
		e := &c.Endpoints[i]
		if e.Transport == TransportPipe && e.PipeName == "" {
			e.PipeName = e.Name
		}
		if e.Codec == "" {
			e.Codec = c.Codec
		}
		if e.RateLimit > 0 && e.RateBurst <= 0 {
			e.RateBurst = 1
		}
	}
	if c.Registry != nil {
		if c.Registry.TTL <= 0 {
			c.Registry.TTL = 10
		}
		if c.Registry.DialTimeout.Duration == 0 {
			c.Registry.DialTimeout.Duration = 5 * time.Second
		}
	}
}

// Validate checks the whole configuration and reports the first problem.
func (c *Config) Validate() error {
	if len(c.Endpoints) == 0 {
		return fmt.Errorf("%w: no endpoints", ErrInvalid)
	}
	if c.Registry != nil {
		if len(c.Registry.Endpoints) == 0 {
			return fmt.Errorf("%w: registry has no etcd endpoints", ErrInvalid)
		}
		if c.Registry.DialTimeout.Duration < 0 {
			return fmt.Errorf("%w: registry dial_timeout is negative", ErrInvalid)
		}
	}

	names := make(map[string]bool, len(c.Endpoints))
	for i := range c.Endpoints {
		e := &c.Endpoints[i]
		if e.Name == "" {
			return fmt.Errorf("%w: endpoint %d has no name", ErrInvalid, i)
		}
		if names[e.Name] {
			return fmt.Errorf("%w: duplicate endpoint %q", ErrInvalid, e.Name)
		}
		names[e.Name] = true
		if err := e.validate(); err != nil {
			return fmt.Errorf("%w: endpoint %q: %v", ErrInvalid, e.Name, err)
		}
	}
	return nil
}

func (e *Endpoint) validate() error {
	if e.Contract == "" {
		return errors.New("no contract")
	}
	switch e.Transport {
	case TransportPipe:
		if e.CertFile != "" || e.KeyFile != "" {
			return errors.New("pipes do not support TLS")
		}
	case TransportTCP:
		if e.Port < 0 || e.Port > 65535 {
			return fmt.Errorf("port %d out of range", e.Port)
		}
		if (e.CertFile == "") != (e.KeyFile == "") {
			return errors.New("cert_file and key_file must be set together")
		}
	default:
		return fmt.Errorf("unknown transport %q", e.Transport)
	}
	if _, err := codec.ParseCodecType(e.Codec); err != nil {
		return err
	}
	if e.ExchangeTimeout.Duration < 0 || e.HandlerTimeout.Duration < 0 {
		return errors.New("timeouts must not be negative")
	}
	if e.RateLimit < 0 {
		return errors.New("rate_limit must not be negative")
	}
	return nil
}

// TLS reports whether the endpoint serves TLS.
func (e *Endpoint) TLS() bool {
	return e.CertFile != ""
}

// TLSConfig loads the endpoint's certificate, or returns nil when TLS is off.
func (e *Endpoint) TLSConfig() (*tls.Config, error) {
	if !e.TLS() {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(e.CertFile, e.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("config: endpoint %q: %w", e.Name, err)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}, nil
}

// CodecImpl returns the endpoint's serializer.
func (e *Endpoint) CodecImpl() codec.Codec {
	t, _ := codec.ParseCodecType(e.Codec)
	return codec.GetCodec(t)
}
